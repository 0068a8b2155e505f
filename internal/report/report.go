// Package report defines the per-date data quality report written by
// the gold stage and its persistence.
package report

// Status is the outcome of a quality check run.
type Status string

const (
	// StatusPassed means the test invocation exited 0.
	StatusPassed Status = "passed"
	// StatusFailed means any non-zero exit, including signal exits.
	StatusFailed Status = "failed"
)

// StatusFromExitCode maps a process exit code to a report status.
// Only an exit code of exactly 0 passes.
func StatusFromExitCode(code int) Status {
	if code == 0 {
		return StatusPassed
	}
	return StatusFailed
}

// Report is the data quality report for one run date. Both captured
// streams are embedded alongside the exit code so the report stands
// alone for downstream inspection.
type Report struct {
	DateKey  string `json:"ds_nodash"`
	Status   Status `json:"status"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Store persists and retrieves quality reports keyed by run date.
type Store interface {
	Save(r *Report) error
	Load(dateKey string) (*Report, error)
}
