package services

import (
	"context"
	"fmt"

	"model-market/internal/models"
	"model-market/internal/repository"
)

// recentLimit caps the recent-items lists on the dashboard.
const recentLimit = 5

// DashboardStats is the per-owner rollup served to polling clients. It is a
// derived read; staleness of one polling interval is acceptable.
type DashboardStats struct {
	TotalModels     int64 `json:"total_models"`
	PublishedModels int64 `json:"published_models"`
	TrainingModels  int64 `json:"training_models"`
	CompletedModels int64 `json:"completed_models"`
	TotalEarnings   int64 `json:"total_earnings"`
	ActiveLeases    int64 `json:"active_leases"`
	InFlightJobs    int64 `json:"in_flight_jobs"`

	RecentModels []*models.Model            `json:"recent_models"`
	RecentJobs   []*models.TrainingJob      `json:"recent_jobs"`
	RecentEvents []*models.ModelStatusEvent `json:"recent_events"`
}

// DashboardService aggregates read-only rollups over models, jobs and leases.
// It never writes.
type DashboardService struct {
	repo *repository.Repository
}

func NewDashboardService(repo *repository.Repository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetOwnerDashboard assembles the dashboard rollup for one owner
func (s *DashboardService) GetOwnerDashboard(ctx context.Context, ownerID uint) (*DashboardStats, error) {
	stats := &DashboardStats{}
	var err error

	if stats.TotalModels, err = s.repo.CountOwnerModels(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to count models: %w", err)
	}
	if stats.PublishedModels, err = s.repo.CountOwnerPublishedModels(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to count published models: %w", err)
	}
	if stats.TrainingModels, err = s.repo.CountOwnerModelsByStatus(ctx, ownerID, models.ModelStatusTraining); err != nil {
		return nil, fmt.Errorf("failed to count training models: %w", err)
	}
	if stats.CompletedModels, err = s.repo.CountOwnerModelsByStatus(ctx, ownerID, models.ModelStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to count completed models: %w", err)
	}
	if stats.TotalEarnings, err = s.repo.SumOwnerEarnings(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to sum earnings: %w", err)
	}
	if stats.ActiveLeases, err = s.repo.CountOwnerActiveLeases(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to count active leases: %w", err)
	}
	if stats.InFlightJobs, err = s.repo.CountOwnerInFlightJobs(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to count in-flight jobs: %w", err)
	}

	recentModels, _, err := s.repo.GetOwnerModels(ctx, ownerID, recentLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent models: %w", err)
	}
	stats.RecentModels = recentModels

	if stats.RecentJobs, err = s.repo.GetOwnerJobs(ctx, ownerID, recentLimit, 0); err != nil {
		return nil, fmt.Errorf("failed to list recent jobs: %w", err)
	}
	if stats.RecentEvents, err = s.repo.GetRecentStatusEvents(ctx, ownerID, recentLimit); err != nil {
		return nil, fmt.Errorf("failed to list recent events: %w", err)
	}

	return stats, nil
}
