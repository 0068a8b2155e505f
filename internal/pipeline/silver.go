package pipeline

import (
	"context"
	"fmt"

	"github.com/fedehofmann/medallion/internal/datekey"
	"go.uber.org/zap"
)

// Silver materializes the dbt models against the warehouse using the
// cleaned file produced by Bronze. Both captured streams are logged
// unconditionally; only the exit code decides failure.
func (e *Engine) Silver(ctx context.Context, key datekey.Key) error {
	res, err := e.DBT.Exec(ctx, "run", key)
	if err != nil {
		return fmt.Errorf("silver: %w", err)
	}

	e.logger().Info("silver: dbt run finished",
		zap.Stringer("date", key),
		zap.Int("exit_code", res.ExitCode),
		zap.String("stdout", string(res.Stdout)),
		zap.String("stderr", string(res.Stderr)),
	)

	if res.ExitCode != 0 {
		return &StageError{Stage: "silver dbt run", Key: key, ExitCode: res.ExitCode}
	}
	return nil
}
