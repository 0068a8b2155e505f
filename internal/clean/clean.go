// Package clean invokes the external cleaning routine that turns a raw
// per-date transactions extract into the cleaned columnar file. The
// cleaning algorithm itself lives outside this repository; this package
// only shells out to it and interprets the exit code.
package clean

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/runner"
)

// CommandRunner executes a subprocess and captures its output.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string, env []string) (*runner.Result, error)
}

// RawFileName returns the raw extract file name for a run date.
func RawFileName(key datekey.Key) string {
	return "transactions_" + key.String() + ".csv"
}

// CleanedFileName returns the cleaned intermediate file name for a run date.
func CleanedFileName(key datekey.Key) string {
	return "transactions_" + key.String() + "_clean.parquet"
}

// Command is an exec-backed cleaner. It appends the run date and the
// raw/clean directories to a configured argv prefix and fails on any
// non-zero exit.
type Command struct {
	Runner   CommandRunner
	Argv     []string // e.g. ["python3", "/srv/medallion/include/clean_transactions.py"]
	RawDir   string
	CleanDir string
}

// Clean runs the cleaning command for the given calendar day. The raw
// extract is read from RawDir and the cleaned file written to CleanDir,
// replacing any previous output for the same day.
func (c *Command) Clean(ctx context.Context, day time.Time) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("clean command not configured")
	}

	date := day.Format("2006-01-02")
	argv := make([]string, 0, len(c.Argv)+6)
	argv = append(argv, c.Argv...)
	argv = append(argv,
		"--date", date,
		"--raw-dir", c.RawDir,
		"--clean-dir", c.CleanDir,
	)

	res, err := c.Runner.Run(ctx, argv, "", nil)
	if err != nil {
		return fmt.Errorf("executing clean command: %w", err)
	}
	if res.ExitCode != 0 {
		detail := firstLine(string(res.Stderr))
		if detail == "" {
			detail = firstLine(string(res.Stdout))
		}
		if detail != "" {
			return fmt.Errorf("clean command exited %d for %s: %s", res.ExitCode, date, detail)
		}
		return fmt.Errorf("clean command exited %d for %s", res.ExitCode, date)
	}
	return nil
}

// firstLine returns the first non-empty line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
