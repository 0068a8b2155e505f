// Package mcp exposes the medallion pipeline over the Model Context
// Protocol: triggering runs, reading quality reports, and inspecting
// pipeline status.
package mcp

import (
	_ "embed"

	"github.com/fedehofmann/medallion"
	"github.com/fedehofmann/medallion/internal/config"
	"github.com/fedehofmann/medallion/internal/pipeline"
	"github.com/fedehofmann/medallion/internal/report"
	"github.com/fedehofmann/medallion/internal/schedule"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	engine *pipeline.Engine
	store  report.Store
	layout config.Layout
	state  *schedule.StateStore
}

// NewServer creates an MCP server with all medallion tools registered.
func NewServer(engine *pipeline.Engine, store report.Store, layout config.Layout, state *schedule.StateStore) *mcpsdk.Server {
	h := &handler{
		engine: engine,
		store:  store,
		layout: layout,
		state:  state,
	}

	opts := &mcpsdk.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcpsdk.ServerCapabilities{
			Tools: &mcpsdk.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "medallion", Version: medallion.Version}, opts)

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name: "medallion_run",
		Description: `Run the bronze/silver/gold pipeline for one run date.

Cleans the raw extract, materializes the dbt models, then runs the dbt tests.
Stops at the first failing stage. The gold stage always writes the quality
report before failing; read it with medallion_report.`,
	}, h.runHandler)

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name: "medallion_report",
		Description: `Read the stored data quality report for a run date.

Returns the test outcome, the dbt exit code, and the captured output of the
test invocation.`,
	}, h.reportHandler)

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "medallion_status",
		Description: "Summarise the pipeline: artifact locations and the last completed run date.",
	}, h.statusHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcpsdk.CallToolResult, any, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcpsdk.CallToolResult, any, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
