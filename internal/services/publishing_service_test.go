package services

import (
	"context"
	"errors"
	"testing"

	"model-market/internal/models"
	"model-market/internal/repository"
)

func TestPublishRequiresCompletedModel(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	publishing := NewPublishingService(db, repo, registry)
	createTestUser(t, db, 1, false)
	model := createDraftModel(t, registry, 1, "m")

	_, err := publishing.Publish(context.Background(), model.ID, 1, 1000)
	var notPublishableErr *NotPublishableError
	if !errors.As(err, &notPublishableErr) {
		t.Fatalf("expected NotPublishableError, got %v", err)
	}
	if notPublishableErr.Status != models.ModelStatusDraft {
		t.Errorf("expected DRAFT in error, got %s", notPublishableErr.Status)
	}
}

func TestPublishRejectsNonPositivePrice(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	publishing := NewPublishingService(db, repo, registry)
	createTestUser(t, db, 1, false)
	model := createDraftModel(t, registry, 1, "m")
	completeModel(t, registry, model.ID)

	for _, price := range []int64{0, -100} {
		_, err := publishing.Publish(context.Background(), model.ID, 1, price)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("price %d: expected ValidationError, got %v", price, err)
		}
	}
}

func TestPublishNotOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	publishing := NewPublishingService(db, repo, registry)
	createTestUser(t, db, 1, false)
	createTestUser(t, db, 2, false)
	model := createDraftModel(t, registry, 1, "m")
	completeModel(t, registry, model.ID)

	_, err := publishing.Publish(context.Background(), model.ID, 2, 1000)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPublishUnpublishRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	publishing := NewPublishingService(db, repo, registry)
	createTestUser(t, db, 1, false)
	model := createDraftModel(t, registry, 1, "m")
	completeModel(t, registry, model.ID)
	ctx := context.Background()

	published, err := publishing.Publish(ctx, model.ID, 1, 1999)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if published.Status != models.ModelStatusPublished || !published.IsPublished || published.MonthlyLeasePrice != 1999 {
		t.Errorf("unexpected state after publish: %s published=%v price=%d",
			published.Status, published.IsPublished, published.MonthlyLeasePrice)
	}

	unpublished, err := publishing.Unpublish(ctx, model.ID, 1)
	if err != nil {
		t.Fatalf("unpublish failed: %v", err)
	}
	if unpublished.Status != models.ModelStatusCompleted || unpublished.IsPublished {
		t.Errorf("unexpected state after unpublish: %s published=%v",
			unpublished.Status, unpublished.IsPublished)
	}

	// Relisting at a new price is allowed.
	relisted, err := publishing.Publish(ctx, model.ID, 1, 2999)
	if err != nil {
		t.Fatalf("republish failed: %v", err)
	}
	if relisted.MonthlyLeasePrice != 2999 {
		t.Errorf("expected updated price 2999, got %d", relisted.MonthlyLeasePrice)
	}
}

func TestUnpublishLeavesExistingLeasesActive(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	publishing := NewPublishingService(db, repo, registry)
	leasing := NewLeasingService(db, repo, 1000)
	createTestUser(t, db, 1, false)
	createTestUser(t, db, 2, false)
	model := createDraftModel(t, registry, 1, "m")
	completeModel(t, registry, model.ID)
	ctx := context.Background()

	if _, err := publishing.Publish(ctx, model.ID, 1, 1000); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	lease, err := leasing.Lease(ctx, 2, model.ID)
	if err != nil {
		t.Fatalf("lease failed: %v", err)
	}

	if _, err := publishing.Unpublish(ctx, model.ID, 1); err != nil {
		t.Fatalf("unpublish failed: %v", err)
	}

	stored, _ := repo.GetLeaseByID(ctx, lease.ID)
	if stored.Status != models.LeaseStatusActive {
		t.Errorf("existing lease should survive unpublish, got %s", stored.Status)
	}

	// New leases are blocked while delisted.
	createTestUser(t, db, 3, false)
	_, err = leasing.Lease(ctx, 3, model.ID)
	var notPublishableErr *NotPublishableError
	if !errors.As(err, &notPublishableErr) {
		t.Fatalf("expected NotPublishableError, got %v", err)
	}
}

func TestArchiveBlocksFurtherPublishing(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	publishing := NewPublishingService(db, repo, registry)
	createTestUser(t, db, 1, false)
	model := createDraftModel(t, registry, 1, "m")
	completeModel(t, registry, model.ID)
	ctx := context.Background()

	archived, err := publishing.Archive(ctx, model.ID, 1)
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if archived.Status != models.ModelStatusArchived {
		t.Errorf("expected ARCHIVED, got %s", archived.Status)
	}

	_, err = publishing.Publish(ctx, model.ID, 1, 1000)
	var notPublishableErr *NotPublishableError
	if !errors.As(err, &notPublishableErr) {
		t.Fatalf("expected NotPublishableError after archive, got %v", err)
	}
}
