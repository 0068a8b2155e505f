package pipeline

import (
	"context"
	"errors"

	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunResult holds the full outcome of one pipeline run.
type RunResult struct {
	ID        string
	Key       datekey.Key
	Stages    []StageResult
	FailedIdx int // -1 if all stages passed
}

// StageResult holds the outcome of a single stage.
type StageResult struct {
	Name   string
	Status string // pass, fail, skipped
	Detail string // failure message (only on failure)
}

// StageNames lists the stages in execution order.
var StageNames = []string{"bronze", "silver", "gold"}

// Run executes bronze, silver, and gold strictly in order for one run
// date, stopping at the first failure. The returned error is the
// failing stage's error, nil when the whole chain passed; the result is
// always populated.
func (e *Engine) Run(ctx context.Context, key datekey.Key) (*RunResult, error) {
	runID := uuid.New().String()

	stages := []func(context.Context, datekey.Key) error{
		e.Bronze,
		e.Silver,
		e.Gold,
	}

	results := make([]StageResult, len(StageNames))
	for i, name := range StageNames {
		results[i] = StageResult{Name: name, Status: "skipped"}
	}

	rr := &RunResult{ID: runID, Key: key, Stages: results, FailedIdx: -1}

	log := e.logger().With(zap.String("run_id", runID), zap.Stringer("date", key))
	log.Info("pipeline run starting")

	var runErr error
	for i, stage := range stages {
		if err := stage(ctx, key); err != nil {
			results[i] = StageResult{Name: StageNames[i], Status: "fail", Detail: err.Error()}
			rr.FailedIdx = i
			runErr = err
			break
		}
		results[i] = StageResult{Name: StageNames[i], Status: "pass"}
	}

	if runErr != nil {
		log.Error("pipeline run failed",
			zap.String("stage", StageNames[rr.FailedIdx]),
			zap.Error(runErr),
		)
	} else {
		log.Info("pipeline run finished")
	}

	return rr, runErr
}

// ExitCode extracts the external tool's exit code from a stage error,
// or 0 when err is not a StageError.
func ExitCode(err error) int {
	var se *StageError
	if errors.As(err, &se) {
		return se.ExitCode
	}
	return 0
}
