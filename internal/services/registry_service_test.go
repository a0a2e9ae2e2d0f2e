package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"model-market/internal/database"
	"model-market/internal/models"
	"model-market/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Each test gets its own named in-memory database; cache=shared keeps it
	// alive across the pooled connections GORM opens.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, id uint, isAdmin bool) *models.User {
	t.Helper()
	user := &models.User{
		ID:            id,
		WalletAddress: fmt.Sprintf("wallet-%d", id),
		Nickname:      fmt.Sprintf("trader-%d", id),
		IsAdmin:       isAdmin,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createDraftModel(t *testing.T, registry *RegistryService, ownerID uint, name string) *models.Model {
	t.Helper()
	model, err := registry.CreateModel(context.Background(), ownerID, &models.CreateModelRequest{
		Name:           name,
		Description:    "predicts short-term index direction",
		ModelType:      models.ModelTypeClassification,
		TargetVariable: "next_day_direction",
		Features:       []string{"rsi_14", "macd", "volume_ratio"},
	})
	if err != nil {
		t.Fatalf("failed to create model: %v", err)
	}
	return model
}

// completeModel walks a draft model through training to COMPLETED.
func completeModel(t *testing.T, registry *RegistryService, modelID uuid.UUID) *models.Model {
	t.Helper()
	ctx := context.Background()
	if _, err := registry.Transition(ctx, modelID, models.ModelStatusTraining, "test"); err != nil {
		t.Fatalf("failed to transition to TRAINING: %v", err)
	}
	model, err := registry.Transition(ctx, modelID, models.ModelStatusCompleted, "test")
	if err != nil {
		t.Fatalf("failed to transition to COMPLETED: %v", err)
	}
	return model
}

func TestCreateModelValidation(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistryService(db, repository.NewRepository(db))
	createTestUser(t, db, 1, false)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *models.CreateModelRequest
	}{
		{"empty name", &models.CreateModelRequest{
			Description: "d", ModelType: models.ModelTypeClassification,
			TargetVariable: "t", Features: []string{"f"},
		}},
		{"empty features", &models.CreateModelRequest{
			Name: "m", Description: "d", ModelType: models.ModelTypeClassification,
			TargetVariable: "t",
		}},
		{"unknown model type", &models.CreateModelRequest{
			Name: "m", Description: "d", ModelType: "ENSEMBLE",
			TargetVariable: "t", Features: []string{"f"},
		}},
		{"empty target variable", &models.CreateModelRequest{
			Name: "m", Description: "d", ModelType: models.ModelTypeRegression,
			Features: []string{"f"},
		}},
	}

	for _, tc := range cases {
		_, err := registry.CreateModel(ctx, 1, tc.req)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestCreateModelStartsInDraft(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistryService(db, repository.NewRepository(db))
	createTestUser(t, db, 1, false)

	model := createDraftModel(t, registry, 1, "NIFTY Predictor")

	if model.Status != models.ModelStatusDraft {
		t.Errorf("expected DRAFT, got %s", model.Status)
	}
	if model.Version != 0 {
		t.Errorf("expected version 0, got %d", model.Version)
	}

	features, err := model.FeatureList()
	if err != nil || len(features) != 3 {
		t.Errorf("expected 3 features, got %v (%v)", features, err)
	}

	var events int64
	db.Model(&models.ModelStatusEvent{}).Where("model_id = ?", model.ID).Count(&events)
	if events != 1 {
		t.Errorf("expected 1 status event, got %d", events)
	}
}

func TestLegalTransitions(t *testing.T) {
	cases := []struct {
		from, to models.ModelStatus
		legal    bool
	}{
		{models.ModelStatusDraft, models.ModelStatusTraining, true},
		{models.ModelStatusDraft, models.ModelStatusCompleted, false},
		{models.ModelStatusDraft, models.ModelStatusPublished, false},
		{models.ModelStatusTraining, models.ModelStatusCompleted, true},
		{models.ModelStatusTraining, models.ModelStatusFailed, true},
		{models.ModelStatusTraining, models.ModelStatusPublished, false},
		{models.ModelStatusFailed, models.ModelStatusTraining, true},
		{models.ModelStatusFailed, models.ModelStatusArchived, true},
		{models.ModelStatusFailed, models.ModelStatusCompleted, false},
		{models.ModelStatusCompleted, models.ModelStatusPublished, true},
		{models.ModelStatusCompleted, models.ModelStatusArchived, true},
		{models.ModelStatusCompleted, models.ModelStatusTraining, false},
		{models.ModelStatusPublished, models.ModelStatusCompleted, true},
		{models.ModelStatusPublished, models.ModelStatusArchived, true},
		{models.ModelStatusArchived, models.ModelStatusDraft, false},
		{models.ModelStatusArchived, models.ModelStatusTraining, false},
	}

	for _, tc := range cases {
		if got := IsLegalTransition(tc.from, tc.to); got != tc.legal {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.legal, got)
		}
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistryService(db, repository.NewRepository(db))
	createTestUser(t, db, 1, false)
	model := createDraftModel(t, registry, 1, "m")

	_, err := registry.Transition(context.Background(), model.ID, models.ModelStatusPublished, "test")
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transitionErr.From != models.ModelStatusDraft || transitionErr.To != models.ModelStatusPublished {
		t.Errorf("unexpected edge in error: %s -> %s", transitionErr.From, transitionErr.To)
	}
}

func TestTransitionBumpsVersionAndRecordsEvent(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistryService(db, repository.NewRepository(db))
	createTestUser(t, db, 1, false)
	model := createDraftModel(t, registry, 1, "m")

	updated, err := registry.Transition(context.Background(), model.ID, models.ModelStatusTraining, "user:1")
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if updated.Status != models.ModelStatusTraining || updated.Version != 1 {
		t.Errorf("expected TRAINING v1, got %s v%d", updated.Status, updated.Version)
	}

	var event models.ModelStatusEvent
	if err := db.Where("model_id = ? AND to_status = ?", model.ID, models.ModelStatusTraining).
		First(&event).Error; err != nil {
		t.Fatalf("expected transition event: %v", err)
	}
	if event.FromStatus != models.ModelStatusDraft || event.Actor != "user:1" {
		t.Errorf("unexpected event: from=%s actor=%s", event.FromStatus, event.Actor)
	}
}

func TestApplyTransitionStaleVersionConflicts(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	createTestUser(t, db, 1, false)
	model := createDraftModel(t, registry, 1, "m")

	stale := *model
	if _, err := registry.Transition(context.Background(), model.ID, models.ModelStatusTraining, "test"); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	// The stale copy still believes the model is DRAFT v0.
	err := registry.ApplyTransition(db, &stale, models.ModelStatusTraining, "test", nil)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestArchiveForcesUnpublish(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	publishing := NewPublishingService(db, repo, registry)
	createTestUser(t, db, 1, false)
	model := createDraftModel(t, registry, 1, "m")
	completeModel(t, registry, model.ID)

	if _, err := publishing.Publish(context.Background(), model.ID, 1, 5000); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	archived, err := registry.Transition(context.Background(), model.ID, models.ModelStatusArchived, "user:1")
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if archived.IsPublished {
		t.Error("archived model should not be published")
	}

	var stored models.Model
	db.First(&stored, "id = ?", model.ID)
	if stored.IsPublished || stored.Status != models.ModelStatusArchived {
		t.Errorf("expected unpublished ARCHIVED, got published=%v status=%s", stored.IsPublished, stored.Status)
	}
}

func TestDeleteModelBlockedByActiveLease(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	createTestUser(t, db, 1, false)
	createTestUser(t, db, 2, false)
	model := createDraftModel(t, registry, 1, "m")

	lease := &models.ModelLease{
		ID:        uuid.New(),
		LesseeID:  2,
		ModelID:   model.ID,
		Status:    models.LeaseStatusActive,
		StartDate: time.Now(),
		EndDate:   time.Now().Add(models.LeasePeriod),
	}
	if err := db.Create(lease).Error; err != nil {
		t.Fatalf("failed to create lease: %v", err)
	}

	err := registry.DeleteModel(context.Background(), model.ID, 1)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// Once the lease lapses deletion goes through.
	db.Model(lease).Update("status", models.LeaseStatusExpired)
	if err := registry.DeleteModel(context.Background(), model.ID, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	var count int64
	db.Model(&models.Model{}).Where("id = ?", model.ID).Count(&count)
	if count != 0 {
		t.Error("model should be gone")
	}
}

func TestDeleteModelBlockedByInFlightJob(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	registry := NewRegistryService(db, repo)
	createTestUser(t, db, 1, false)
	model := createDraftModel(t, registry, 1, "m")

	job := &models.TrainingJob{
		ID:       uuid.New(),
		ModelID:  model.ID,
		OwnerID:  1,
		Status:   models.TrainingJobStatusRunning,
		QueuedAt: time.Now(),
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	err := registry.DeleteModel(context.Background(), model.ID, 1)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDeleteModelNotOwner(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistryService(db, repository.NewRepository(db))
	createTestUser(t, db, 1, false)
	createTestUser(t, db, 2, false)
	model := createDraftModel(t, registry, 1, "m")

	err := registry.DeleteModel(context.Background(), model.ID, 2)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
