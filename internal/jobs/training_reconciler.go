package jobs

import (
	"context"
	"log"
	"time"

	"model-market/internal/services"
)

// TrainingReconciler replays terminal training jobs whose model-side status
// transition never committed, closing the gap a crash between the two writes
// leaves behind.
type TrainingReconciler struct {
	orchestrator *services.TrainingOrchestrator
}

func NewTrainingReconciler(orchestrator *services.TrainingOrchestrator) *TrainingReconciler {
	return &TrainingReconciler{orchestrator: orchestrator}
}

// Run executes one reconciliation pass
func (tr *TrainingReconciler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repaired, err := tr.orchestrator.Reconcile(ctx)
	if err != nil {
		log.Printf("[TrainingReconciler] Error reconciling jobs: %v", err)
		return
	}
	if repaired > 0 {
		log.Printf("[TrainingReconciler] Repaired %d unsynced jobs", repaired)
	}
}
