package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"time"

	"model-market/internal/models"
)

var simulatorStages = []struct {
	percentage int
	step       string
}{
	{5, "loading market data"},
	{20, "computing features"},
	{45, "fitting model"},
	{70, "running backtest"},
	{90, "evaluating metrics"},
	{100, "finalizing"},
}

// SimulatedEngine is a local stand-in for the real training engine. It
// consumes dispatched requests from a queue and emits staged progress and a
// synthetic result through the callbacks, the way the production engine does
// over its callback endpoints.
type SimulatedEngine struct {
	queue     chan *TrainingRequest
	callbacks Callbacks
	stepDelay time.Duration
	stopChan  chan struct{}
}

func NewSimulatedEngine(stepDelay time.Duration) *SimulatedEngine {
	return &SimulatedEngine{
		queue:     make(chan *TrainingRequest, 100),
		stepDelay: stepDelay,
		stopChan:  make(chan struct{}),
	}
}

// Start begins consuming dispatched requests, reporting through cb
func (e *SimulatedEngine) Start(cb Callbacks) {
	e.callbacks = cb
	go e.run()
}

// Stop stops the engine loop
func (e *SimulatedEngine) Stop() {
	close(e.stopChan)
}

// Dispatch accepts a training request for asynchronous execution
func (e *SimulatedEngine) Dispatch(ctx context.Context, req *TrainingRequest) error {
	select {
	case e.queue <- req:
		log.Printf("[SimulatedEngine] Accepted job %s for model %s", req.JobID, req.ModelID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("engine queue is full")
	}
}

func (e *SimulatedEngine) run() {
	for {
		select {
		case req := <-e.queue:
			e.train(req)
		case <-e.stopChan:
			log.Println("[SimulatedEngine] Stopping")
			return
		}
	}
}

func (e *SimulatedEngine) train(req *TrainingRequest) {
	ctx := context.Background()

	if len(req.Features) == 0 {
		if err := e.callbacks.OnFailed(ctx, req.JobID, "no features selected"); err != nil {
			log.Printf("[SimulatedEngine] Failure callback rejected for job %s: %v", req.JobID, err)
		}
		return
	}

	for _, stage := range simulatorStages {
		select {
		case <-e.stopChan:
			return
		case <-time.After(e.stepDelay):
		}

		if err := e.callbacks.OnProgress(ctx, req.JobID, stage.percentage, stage.step); err != nil {
			log.Printf("[SimulatedEngine] Progress callback rejected for job %s at %d%%: %v",
				req.JobID, stage.percentage, err)
			return
		}
	}

	result := e.synthesizeResult(req)
	if err := e.callbacks.OnCompleted(ctx, req.JobID, result); err != nil {
		log.Printf("[SimulatedEngine] Completion callback rejected for job %s: %v", req.JobID, err)
	}
}

// synthesizeResult fabricates plausible, deterministic metrics for a request
// so repeated local runs of the same model produce the same numbers.
func (e *SimulatedEngine) synthesizeResult(req *TrainingRequest) *models.TrainingResult {
	seed := fnv.New64a()
	seed.Write(req.ModelID[:])
	rng := rand.New(rand.NewSource(int64(seed.Sum64())))

	accuracy := 0.55 + rng.Float64()*0.35
	winRate := 0.45 + rng.Float64()*0.25

	importance := make(map[string]float64, len(req.Features))
	remaining := 1.0
	for i, feature := range req.Features {
		weight := remaining / float64(len(req.Features)-i)
		importance[feature] = weight
		remaining -= weight
	}

	return &models.TrainingResult{
		Accuracy:          accuracy,
		Precision:         accuracy - 0.02*rng.Float64(),
		Recall:            accuracy - 0.05*rng.Float64(),
		F1Score:           accuracy - 0.03*rng.Float64(),
		TotalReturn:       rng.Float64()*0.6 - 0.1,
		SharpeRatio:       rng.Float64() * 2.5,
		MaxDrawdown:       -(0.05 + rng.Float64()*0.25),
		WinRate:           winRate,
		FeatureImportance: importance,
		Backtest: map[string]interface{}{
			"period_days":      req.TrainingPeriodDays,
			"validation_split": req.ValidationSplit,
			"trades":           50 + rng.Intn(400),
		},
	}
}
