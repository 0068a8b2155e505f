package pipeline

import (
	"context"
	"fmt"

	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/report"
	"go.uber.org/zap"
)

// Gold runs the dbt tests and persists the data quality report for the
// run date. The report is written before the exit code is evaluated, so
// a failing test run still leaves an auditable report on disk.
func (e *Engine) Gold(ctx context.Context, key datekey.Key) error {
	res, err := e.DBT.Exec(ctx, "test", key)
	if err != nil {
		return fmt.Errorf("gold: %w", err)
	}

	r := &report.Report{
		DateKey:  key.String(),
		Status:   report.StatusFromExitCode(res.ExitCode),
		ExitCode: res.ExitCode,
		Stdout:   string(res.Stdout),
		Stderr:   string(res.Stderr),
	}
	if err := e.Reports.Save(r); err != nil {
		return fmt.Errorf("gold: %w", err)
	}

	e.logger().Info("gold: dbt test finished",
		zap.Stringer("date", key),
		zap.Int("exit_code", res.ExitCode),
		zap.String("status", string(r.Status)),
		zap.String("stdout", r.Stdout),
		zap.String("stderr", r.Stderr),
	)

	if res.ExitCode != 0 {
		return &StageError{Stage: "gold dbt test", Key: key, ExitCode: res.ExitCode}
	}
	return nil
}
