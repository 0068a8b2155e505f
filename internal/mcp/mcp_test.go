package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fedehofmann/medallion/internal/config"
	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/pipeline"
	"github.com/fedehofmann/medallion/internal/report"
	"github.com/fedehofmann/medallion/internal/runner"
	"github.com/fedehofmann/medallion/internal/schedule"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// fakeDBT scripts per-subcommand results.
type fakeDBT struct {
	results map[string]*runner.Result
}

func (f *fakeDBT) Exec(_ context.Context, subcommand string, _ datekey.Key) (*runner.Result, error) {
	if res, ok := f.results[subcommand]; ok {
		return res, nil
	}
	return &runner.Result{ExitCode: 0}, nil
}

type fakeCleaner struct{ err error }

func (f *fakeCleaner) Clean(_ context.Context, _ time.Time) error { return f.err }

// setup creates a full medallion MCP server + client over in-memory
// transports, with scripted dbt results.
func setup(t *testing.T, dbt *fakeDBT) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	base := t.TempDir()
	layout := (&config.Config{}).Layout(base)
	store := report.NewLRUStore(5, report.NewDiskStore(layout.QualityDir))
	engine := &pipeline.Engine{
		DBT:     dbt,
		Cleaner: &fakeCleaner{},
		Reports: store,
	}
	state := schedule.NewStateStore(filepath.Join(base, "state.json"))

	server := NewServer(engine, store, layout, state)

	ct, st := mcpsdk.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestRun_AllStagesPass(t *testing.T) {
	cs := setup(t, &fakeDBT{})

	res := callTool(t, cs, "medallion_run", map[string]any{"date": "20251201"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Status: ok") {
		t.Errorf("expected Status: ok, got:\n%s", text)
	}
	for _, stage := range []string{"bronze", "silver", "gold"} {
		if !strings.Contains(text, stage) {
			t.Errorf("expected %s in output, got:\n%s", stage, text)
		}
	}
}

func TestRun_TestFailureMentionsReport(t *testing.T) {
	dbt := &fakeDBT{results: map[string]*runner.Result{
		"test": {ExitCode: 1, Stderr: []byte("1 of 3 tests failed")},
	}}
	cs := setup(t, dbt)

	res := callTool(t, cs, "medallion_run", map[string]any{"date": "20251201"})
	text := resultText(res)
	if !strings.Contains(text, "Status: FAIL") {
		t.Errorf("expected Status: FAIL, got:\n%s", text)
	}
	if !strings.Contains(text, "medallion_report") {
		t.Errorf("expected report hint after gold failure, got:\n%s", text)
	}

	// The report is readable even though the run failed.
	repRes := callTool(t, cs, "medallion_report", map[string]any{"date": "20251201"})
	repText := resultText(repRes)
	if repRes.IsError {
		t.Fatalf("unexpected error: %s", repText)
	}
	if !strings.Contains(repText, "Status: failed") {
		t.Errorf("expected failed report, got:\n%s", repText)
	}
	if !strings.Contains(repText, "1 of 3 tests failed") {
		t.Errorf("expected captured stderr in report, got:\n%s", repText)
	}
}

func TestRun_InvalidDate(t *testing.T) {
	cs := setup(t, &fakeDBT{})

	res := callTool(t, cs, "medallion_run", map[string]any{"date": "2025-12-01"})
	if !res.IsError {
		t.Error("expected IsError for malformed date")
	}

	res = callTool(t, cs, "medallion_run", map[string]any{"date": ""})
	if !res.IsError {
		t.Error("expected IsError for empty date")
	}
}

func TestReport_Missing(t *testing.T) {
	cs := setup(t, &fakeDBT{})

	res := callTool(t, cs, "medallion_report", map[string]any{"date": "20250101"})
	if !res.IsError {
		t.Error("expected IsError for missing report")
	}
}

func TestStatus(t *testing.T) {
	cs := setup(t, &fakeDBT{})

	res := callTool(t, cs, "medallion_status", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Warehouse:") {
		t.Errorf("expected Warehouse: in output, got:\n%s", text)
	}
	if !strings.Contains(text, "Last completed run: none") {
		t.Errorf("expected no completed runs, got:\n%s", text)
	}

	// After a successful run the watermark is still owned by the
	// scheduler, not by ad-hoc runs.
	callTool(t, cs, "medallion_run", map[string]any{"date": "20251201"})
	res = callTool(t, cs, "medallion_status", nil)
	if !strings.Contains(resultText(res), "Last completed run: none") {
		t.Errorf("ad-hoc run advanced the scheduler watermark:\n%s", resultText(res))
	}
}
