package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"model-market/internal/models"
	"model-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeasingService creates and expires lease records, computes commission
// splits, and updates creator earnings.
type LeasingService struct {
	db   *gorm.DB
	repo *repository.Repository
	// commissionBps is the platform cut in basis points (1000 = 10%).
	commissionBps int64
}

func NewLeasingService(db *gorm.DB, repo *repository.Repository, commissionBps int64) *LeasingService {
	return &LeasingService{
		db:            db,
		repo:          repo,
		commissionBps: commissionBps,
	}
}

// SplitPrice computes the commission split for a price in minor currency
// units. The invariant earnings + commission == price holds exactly: the
// commission is rounded half-even and the remainder goes to the creator.
func (s *LeasingService) SplitPrice(priceMinor int64) (commission, earnings int64) {
	commission = roundHalfEvenDiv(priceMinor*s.commissionBps, 10000)
	earnings = priceMinor - commission
	return commission, earnings
}

// roundHalfEvenDiv divides num by den, rounding half to even (banker's
// rounding). num and den must be non-negative, den > 0.
func roundHalfEvenDiv(num, den int64) int64 {
	quotient := num / den
	remainder := num % den
	switch {
	case remainder*2 < den:
		return quotient
	case remainder*2 > den:
		return quotient + 1
	case quotient%2 == 0:
		return quotient
	default:
		return quotient + 1
	}
}

// Lease purchases a 30-day lease on a published model for the lessee. The
// price snapshot, commission split, lease insert and creator counters commit
// in one transaction; the partial unique index on (lessee, model, ACTIVE)
// makes the duplicate check race-free, with the second writer failing.
func (s *LeasingService) Lease(
	ctx context.Context,
	lesseeID uint,
	modelID uuid.UUID,
) (*models.ModelLease, error) {
	var lease *models.ModelLease

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.Model
		if err := tx.Where("id = ?", modelID).First(&model).Error; err != nil {
			return err
		}

		if !model.IsPublished {
			return &NotPublishableError{Status: model.Status}
		}
		if model.OwnerID == lesseeID {
			return &ValidationError{Reason: "cannot lease your own model"}
		}

		existing, err := s.repo.GetActiveLease(ctx, lesseeID, modelID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &DuplicateLeaseError{LeaseID: existing.ID}
		}

		commission, earnings := s.SplitPrice(model.MonthlyLeasePrice)
		now := time.Now()

		lease = &models.ModelLease{
			ID:                 uuid.New(),
			LesseeID:           lesseeID,
			ModelID:            modelID,
			LeasePrice:         model.MonthlyLeasePrice,
			PlatformCommission: commission,
			CreatorEarnings:    earnings,
			Status:             models.LeaseStatusActive,
			StartDate:          now,
			EndDate:            now.Add(models.LeasePeriod),
		}

		if err := tx.Create(lease).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &DuplicateLeaseError{}
			}
			return fmt.Errorf("failed to create lease: %w", err)
		}

		return tx.Model(&models.Model{}).
			Where("id = ?", modelID).
			Updates(map[string]interface{}{
				"total_leases":   gorm.Expr("total_leases + 1"),
				"total_earnings": gorm.Expr("total_earnings + ?", earnings),
				"updated_at":     now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Lease %s created: model %s, lessee %d, price %d (commission %d, earnings %d)",
		lease.ID, modelID, lesseeID, lease.LeasePrice, lease.PlatformCommission, lease.CreatorEarnings)
	return lease, nil
}

// ExpireLeases transitions ACTIVE leases whose window has closed to EXPIRED.
// Idempotent: re-running over already-expired leases is a no-op.
func (s *LeasingService) ExpireLeases(ctx context.Context, now time.Time) (int64, error) {
	expired, err := s.repo.ExpireLeases(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire leases: %w", err)
	}
	if expired > 0 {
		log.Printf("Expired %d leases", expired)
	}
	return expired, nil
}

// Cancel terminates an ACTIVE lease. Only the lessee or an administrator may
// cancel. Creator earnings are realized at lease creation and are not clawed
// back.
func (s *LeasingService) Cancel(ctx context.Context, leaseID uuid.UUID, actorID uint) error {
	lease, err := s.repo.GetLeaseByID(ctx, leaseID)
	if err != nil {
		return err
	}

	if lease.LesseeID != actorID {
		actor, err := s.repo.GetUserByID(ctx, actorID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin {
			return &ValidationError{Reason: "only the lessee or an administrator can cancel a lease"}
		}
	}

	if lease.Status != models.LeaseStatusActive {
		return &ValidationError{Reason: fmt.Sprintf("lease is %s, not ACTIVE", lease.Status)}
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.ModelLease{}).
		Where("id = ? AND status = ?", leaseID, models.LeaseStatusActive).
		Updates(map[string]interface{}{
			"status":       models.LeaseStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &ValidationError{Reason: "lease is no longer ACTIVE"}
	}

	log.Printf("Lease %s cancelled by user %d", leaseID, actorID)
	return nil
}

// GetLesseeLeases retrieves all leases held by a lessee
func (s *LeasingService) GetLesseeLeases(ctx context.Context, lesseeID uint, limit, offset int) ([]*models.ModelLease, error) {
	return s.repo.GetLesseeLeases(ctx, lesseeID, limit, offset)
}
