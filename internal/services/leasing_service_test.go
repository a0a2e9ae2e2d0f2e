package services

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"model-market/internal/models"
	"model-market/internal/repository"
)

func setupLeasing(t *testing.T) (*LeasingService, *PublishingService, *RegistryService) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	publishing := NewPublishingService(db, repo, registry)
	leasing := NewLeasingService(db, repo, 1000)
	return leasing, publishing, registry
}

func publishTestModel(t *testing.T, registry *RegistryService, publishing *PublishingService, ownerID uint, priceMinor int64) *models.Model {
	t.Helper()
	model := createDraftModel(t, registry, ownerID, "Momentum Signal")
	completeModel(t, registry, model.ID)
	published, err := publishing.Publish(context.Background(), model.ID, ownerID, priceMinor)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	return published
}

func TestRoundHalfEvenDiv(t *testing.T) {
	cases := []struct {
		num, den, want int64
	}{
		{1000000, 10000, 100}, // exact
		{4999000, 10000, 500}, // 499.9 rounds up
		{5, 10, 0},            // 0.5 rounds to even 0
		{15, 10, 2},           // 1.5 rounds to even 2
		{25, 10, 2},           // 2.5 rounds to even 2
		{35, 10, 4},           // 3.5 rounds to even 4
		{0, 10000, 0},
	}
	for _, tc := range cases {
		if got := roundHalfEvenDiv(tc.num, tc.den); got != tc.want {
			t.Errorf("roundHalfEvenDiv(%d, %d) = %d, want %d", tc.num, tc.den, got, tc.want)
		}
	}
}

func TestSplitPriceConservesTotal(t *testing.T) {
	leasing, _, _ := setupLeasing(t)

	// 1000.00 at 10% splits into 100.00 commission and 900.00 earnings.
	commission, earnings := leasing.SplitPrice(100000)
	if commission != 10000 || earnings != 90000 {
		t.Errorf("expected 10000/90000, got %d/%d", commission, earnings)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		price := rng.Int63n(10000000)
		commission, earnings := leasing.SplitPrice(price)
		if commission+earnings != price {
			t.Fatalf("split of %d leaks money: %d + %d", price, commission, earnings)
		}
		exact := price * 1000 / 10000
		if commission < exact || commission > exact+1 {
			t.Fatalf("commission for %d off by more than rounding: %d (exact %d)", price, commission, exact)
		}
	}
}

func TestLeaseCreatesActiveLeaseAndPaysCreator(t *testing.T) {
	leasing, publishing, registry := setupLeasing(t)
	createTestUser(t, leasing.db, 1, false)
	createTestUser(t, leasing.db, 2, false)
	model := publishTestModel(t, registry, publishing, 1, 4999)
	ctx := context.Background()

	lease, err := leasing.Lease(ctx, 2, model.ID)
	if err != nil {
		t.Fatalf("lease failed: %v", err)
	}

	if lease.Status != models.LeaseStatusActive {
		t.Errorf("expected ACTIVE, got %s", lease.Status)
	}
	if lease.LeasePrice != 4999 || lease.PlatformCommission != 500 || lease.CreatorEarnings != 4499 {
		t.Errorf("unexpected split: price=%d commission=%d earnings=%d",
			lease.LeasePrice, lease.PlatformCommission, lease.CreatorEarnings)
	}
	if wantEnd := lease.StartDate.Add(models.LeasePeriod); !lease.EndDate.Equal(wantEnd) {
		t.Errorf("expected 30-day window, got %v", lease.EndDate.Sub(lease.StartDate))
	}

	updated, _ := registry.GetModel(ctx, model.ID)
	if updated.TotalLeases != 1 || updated.TotalEarnings != 4499 {
		t.Errorf("creator counters wrong: leases=%d earnings=%d", updated.TotalLeases, updated.TotalEarnings)
	}
}

func TestLeaseOwnModelRejected(t *testing.T) {
	leasing, publishing, registry := setupLeasing(t)
	createTestUser(t, leasing.db, 1, false)
	model := publishTestModel(t, registry, publishing, 1, 1000)

	_, err := leasing.Lease(context.Background(), 1, model.ID)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLeaseUnpublishedModelRejected(t *testing.T) {
	leasing, _, registry := setupLeasing(t)
	createTestUser(t, leasing.db, 1, false)
	createTestUser(t, leasing.db, 2, false)
	model := createDraftModel(t, registry, 1, "m")
	completeModel(t, registry, model.ID)

	_, err := leasing.Lease(context.Background(), 2, model.ID)
	var notPublishableErr *NotPublishableError
	if !errors.As(err, &notPublishableErr) {
		t.Fatalf("expected NotPublishableError, got %v", err)
	}
}

func TestDuplicateActiveLeaseRejected(t *testing.T) {
	leasing, publishing, registry := setupLeasing(t)
	createTestUser(t, leasing.db, 1, false)
	createTestUser(t, leasing.db, 2, false)
	model := publishTestModel(t, registry, publishing, 1, 1000)
	ctx := context.Background()

	first, err := leasing.Lease(ctx, 2, model.ID)
	if err != nil {
		t.Fatalf("first lease failed: %v", err)
	}

	_, err = leasing.Lease(ctx, 2, model.ID)
	var duplicateErr *DuplicateLeaseError
	if !errors.As(err, &duplicateErr) {
		t.Fatalf("expected DuplicateLeaseError, got %v", err)
	}
	if duplicateErr.LeaseID != first.ID {
		t.Errorf("expected existing lease %s in error, got %s", first.ID, duplicateErr.LeaseID)
	}
}

func TestLeaseAgainAfterExpiry(t *testing.T) {
	leasing, publishing, registry := setupLeasing(t)
	createTestUser(t, leasing.db, 1, false)
	createTestUser(t, leasing.db, 2, false)
	model := publishTestModel(t, registry, publishing, 1, 1000)
	ctx := context.Background()

	lease, err := leasing.Lease(ctx, 2, model.ID)
	if err != nil {
		t.Fatalf("lease failed: %v", err)
	}

	// Age the lease past its window and sweep.
	leasing.db.Model(&models.ModelLease{}).
		Where("id = ?", lease.ID).
		Update("end_date", time.Now().Add(-time.Hour))

	expired, err := leasing.ExpireLeases(ctx, time.Now())
	if err != nil || expired != 1 {
		t.Fatalf("expected 1 expired lease, got %d (%v)", expired, err)
	}

	// The sweep is idempotent.
	expired, err = leasing.ExpireLeases(ctx, time.Now())
	if err != nil || expired != 0 {
		t.Fatalf("expected idempotent sweep, got %d (%v)", expired, err)
	}

	// With no ACTIVE lease in the way, a fresh lease is allowed.
	if _, err := leasing.Lease(ctx, 2, model.ID); err != nil {
		t.Fatalf("re-lease after expiry failed: %v", err)
	}

	updated, _ := registry.GetModel(ctx, model.ID)
	if updated.TotalLeases != 2 {
		t.Errorf("expected 2 total leases, got %d", updated.TotalLeases)
	}
}

func TestCancelLease(t *testing.T) {
	leasing, publishing, registry := setupLeasing(t)
	createTestUser(t, leasing.db, 1, false)
	createTestUser(t, leasing.db, 2, false)
	createTestUser(t, leasing.db, 3, false)
	createTestUser(t, leasing.db, 4, true)
	model := publishTestModel(t, registry, publishing, 1, 1000)
	ctx := context.Background()

	lease, err := leasing.Lease(ctx, 2, model.ID)
	if err != nil {
		t.Fatalf("lease failed: %v", err)
	}

	// A stranger cannot cancel.
	err = leasing.Cancel(ctx, lease.ID, 3)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for stranger, got %v", err)
	}

	// The lessee can.
	if err := leasing.Cancel(ctx, lease.ID, 2); err != nil {
		t.Fatalf("lessee cancel failed: %v", err)
	}

	stored, _ := leasing.repo.GetLeaseByID(ctx, lease.ID)
	if stored.Status != models.LeaseStatusCancelled || stored.CancelledAt == nil {
		t.Errorf("expected CANCELLED with timestamp, got %s %v", stored.Status, stored.CancelledAt)
	}

	// Cancelling a non-ACTIVE lease is rejected.
	err = leasing.Cancel(ctx, lease.ID, 2)
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for repeat cancel, got %v", err)
	}

	// An administrator can cancel someone else's lease.
	second, err := leasing.Lease(ctx, 3, model.ID)
	if err != nil {
		t.Fatalf("second lease failed: %v", err)
	}
	if err := leasing.Cancel(ctx, second.ID, 4); err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
}
