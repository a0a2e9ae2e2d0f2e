package services

import (
	"context"
	"fmt"

	"model-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MarketplaceService serves the read-only marketplace projection of published models
type MarketplaceService struct {
	db *gorm.DB
}

func NewMarketplaceService(db *gorm.DB) *MarketplaceService {
	return &MarketplaceService{db: db}
}

// Browse lists published models matching the filter, with creator nickname
// and review aggregates attached.
func (s *MarketplaceService) Browse(
	ctx context.Context,
	filter *models.MarketplaceFilter,
) ([]*models.MarketplaceModel, int64, error) {
	base := s.db.WithContext(ctx).Table("models").
		Where("models.is_published = ?", true)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		base = base.Where("models.name LIKE ? OR models.description LIKE ?", pattern, pattern)
	}
	if filter.ModelType != "" {
		base = base.Where("models.model_type = ?", filter.ModelType)
	}
	if filter.MaxPriceMinor > 0 {
		base = base.Where("models.monthly_lease_price <= ?", filter.MaxPriceMinor)
	}
	if filter.ExcludeOwner != 0 {
		base = base.Where("models.owner_id != ?", filter.ExcludeOwner)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count marketplace models: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := base.
		Select(`models.id, models.owner_id, users.nickname AS creator_nickname,
			models.name, models.description, models.model_type, models.target_variable,
			models.status, models.accuracy, models.sharpe_ratio, models.total_return,
			models.win_rate, models.monthly_lease_price, models.total_leases,
			COALESCE(AVG(model_reviews.rating), 0) AS avg_rating,
			COUNT(model_reviews.id) AS review_count,
			models.created_at`).
		Joins("JOIN users ON users.id = models.owner_id").
		Joins("LEFT JOIN model_reviews ON model_reviews.model_id = models.id").
		Group("models.id, users.nickname").
		Limit(limit).
		Offset(filter.Offset)

	switch filter.Sort {
	case "price_asc":
		query = query.Order("models.monthly_lease_price ASC")
	case "price_desc":
		query = query.Order("models.monthly_lease_price DESC")
	case "popular":
		query = query.Order("models.total_leases DESC")
	case "rating":
		query = query.Order("avg_rating DESC")
	default:
		query = query.Order("models.created_at DESC")
	}

	var results []*models.MarketplaceModel
	if err := query.Scan(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to browse marketplace: %w", err)
	}

	return results, total, nil
}

// GetListing retrieves the marketplace projection of one published model
func (s *MarketplaceService) GetListing(ctx context.Context, modelID uuid.UUID) (*models.MarketplaceModel, error) {
	var listing models.MarketplaceModel
	err := s.db.WithContext(ctx).Table("models").
		Select(`models.id, models.owner_id, users.nickname AS creator_nickname,
			models.name, models.description, models.model_type, models.target_variable,
			models.status, models.accuracy, models.sharpe_ratio, models.total_return,
			models.win_rate, models.monthly_lease_price, models.total_leases,
			COALESCE(AVG(model_reviews.rating), 0) AS avg_rating,
			COUNT(model_reviews.id) AS review_count,
			models.created_at`).
		Joins("JOIN users ON users.id = models.owner_id").
		Joins("LEFT JOIN model_reviews ON model_reviews.model_id = models.id").
		Where("models.id = ? AND models.is_published = ?", modelID, true).
		Group("models.id, users.nickname").
		Scan(&listing).Error
	if err != nil {
		return nil, err
	}
	if listing.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &listing, nil
}
