package pipeline

import (
	"context"
	"fmt"

	"github.com/fedehofmann/medallion/internal/datekey"
	"go.uber.org/zap"
)

// Bronze cleans the raw transactions extract for the run date into the
// cleaned intermediate file, overwriting any previous output for the
// same date. Cleaner failures propagate unchanged.
func (e *Engine) Bronze(ctx context.Context, key datekey.Key) error {
	e.logger().Info("bronze: cleaning raw extract", zap.Stringer("date", key))

	if err := e.Cleaner.Clean(ctx, key.Time()); err != nil {
		return fmt.Errorf("bronze: %w", err)
	}

	e.logger().Info("bronze: cleaned file written", zap.Stringer("date", key))
	return nil
}
