package engine

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"model-market/internal/models"
)

type recordingCallbacks struct {
	mu        sync.Mutex
	progress  []int
	result    *models.TrainingResult
	failure   string
	completed chan struct{}
}

func newRecordingCallbacks() *recordingCallbacks {
	return &recordingCallbacks{completed: make(chan struct{})}
}

func (c *recordingCallbacks) OnProgress(ctx context.Context, jobID uuid.UUID, percentage int, step string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = append(c.progress, percentage)
	return nil
}

func (c *recordingCallbacks) OnCompleted(ctx context.Context, jobID uuid.UUID, result *models.TrainingResult) error {
	c.mu.Lock()
	c.result = result
	c.mu.Unlock()
	close(c.completed)
	return nil
}

func (c *recordingCallbacks) OnFailed(ctx context.Context, jobID uuid.UUID, reason string) error {
	c.mu.Lock()
	c.failure = reason
	c.mu.Unlock()
	close(c.completed)
	return nil
}

func TestSimulatedEngineRunsJobToCompletion(t *testing.T) {
	eng := NewSimulatedEngine(time.Millisecond)
	cb := newRecordingCallbacks()
	eng.Start(cb)
	defer eng.Stop()

	req := &TrainingRequest{
		JobID:          uuid.New(),
		ModelID:        uuid.New(),
		ModelType:      models.ModelTypeClassification,
		Features:       []string{"rsi_14", "macd"},
		TargetVariable: "next_day_direction",
	}
	if err := eng.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	select {
	case <-cb.completed:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not complete in time")
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.failure != "" {
		t.Fatalf("unexpected failure: %s", cb.failure)
	}
	if len(cb.progress) == 0 || cb.progress[len(cb.progress)-1] != 100 {
		t.Errorf("expected staged progress ending at 100, got %v", cb.progress)
	}
	for i := 1; i < len(cb.progress); i++ {
		if cb.progress[i] < cb.progress[i-1] {
			t.Errorf("progress went backwards: %v", cb.progress)
		}
	}
	if cb.result == nil {
		t.Fatal("expected a training result")
	}
	if cb.result.Accuracy < 0.55 || cb.result.Accuracy > 0.9 {
		t.Errorf("accuracy out of simulated band: %f", cb.result.Accuracy)
	}
}

func TestSimulatedEngineFailsEmptyFeatureSet(t *testing.T) {
	eng := NewSimulatedEngine(time.Millisecond)
	cb := newRecordingCallbacks()
	eng.Start(cb)
	defer eng.Stop()

	req := &TrainingRequest{JobID: uuid.New(), ModelID: uuid.New()}
	if err := eng.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	select {
	case <-cb.completed:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish in time")
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.failure == "" {
		t.Error("expected a failure for an empty feature set")
	}
}

func TestSynthesizeResultDeterministic(t *testing.T) {
	eng := NewSimulatedEngine(time.Millisecond)
	req := &TrainingRequest{
		JobID:    uuid.New(),
		ModelID:  uuid.New(),
		Features: []string{"close", "volume", "rsi_14"},
	}

	first := eng.synthesizeResult(req)
	second := eng.synthesizeResult(req)
	if first.Accuracy != second.Accuracy || first.SharpeRatio != second.SharpeRatio {
		t.Error("same model should synthesize identical metrics")
	}

	sum := 0.0
	for _, weight := range first.FeatureImportance {
		sum += weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("feature importance should sum to 1, got %f", sum)
	}
}
