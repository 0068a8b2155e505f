package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type statusParams struct{}

func (h *handler) statusHandler(ctx context.Context, req *mcpsdk.CallToolRequest, params statusParams) (*mcpsdk.CallToolResult, any, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Base: %s\n", h.layout.Base)
	fmt.Fprintf(&b, "Raw extracts: %s\n", h.layout.RawDir)
	fmt.Fprintf(&b, "Cleaned files: %s\n", h.layout.CleanDir)
	fmt.Fprintf(&b, "Quality reports: %s\n", h.layout.QualityDir)
	fmt.Fprintf(&b, "dbt project: %s\n", h.layout.ProjectDir)
	fmt.Fprintf(&b, "Warehouse: %s\n", h.layout.WarehousePath)

	last, ok, err := h.state.LastCompleted()
	switch {
	case err != nil:
		fmt.Fprintf(&b, "Last completed run: unknown (%v)\n", err)
	case ok:
		fmt.Fprintf(&b, "Last completed run: %s\n", last)
	default:
		fmt.Fprintln(&b, "Last completed run: none")
	}

	return textResult(b.String())
}
