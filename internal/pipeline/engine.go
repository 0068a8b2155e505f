// Package pipeline implements the bronze/silver/gold stages of the
// medallion pipeline and the linear run that chains them. Stages are
// keyed by an explicit, already-validated date key; there is no string
// templating between them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/report"
	"github.com/fedehofmann/medallion/internal/runner"
	"go.uber.org/zap"
)

// DBTInvoker runs a dbt subcommand for a run date and reports the exit
// code through the result rather than an error. Implemented by
// dbt.Invoker.
type DBTInvoker interface {
	Exec(ctx context.Context, subcommand string, key datekey.Key) (*runner.Result, error)
}

// Cleaner turns the raw extract for a calendar day into the cleaned
// columnar file. Implemented by clean.Command; the actual cleaning
// algorithm is external to this repository.
type Cleaner interface {
	Clean(ctx context.Context, day time.Time) error
}

// Engine holds shared dependencies for all pipeline stages.
type Engine struct {
	DBT     DBTInvoker
	Cleaner Cleaner
	Reports report.Store
	Log     *zap.Logger
}

func (e *Engine) logger() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

// StageError reports a stage failed because the external tool exited
// non-zero. It carries the run date and exit code for the run log.
type StageError struct {
	Stage    string
	Key      datekey.Key
	ExitCode int
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for %s with exit code %d", e.Stage, e.Key, e.ExitCode)
}
