package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/report"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type reportParams struct {
	Date string `json:"date" jsonschema:"the run date in compact form, e.g. 20251208"`
}

func (h *handler) reportHandler(ctx context.Context, req *mcpsdk.CallToolRequest, params reportParams) (*mcpsdk.CallToolResult, any, error) {
	if params.Date == "" {
		return errorResult("date is required")
	}
	key, err := datekey.Parse(params.Date)
	if err != nil {
		return errorResult(err.Error())
	}

	r, err := h.store.Load(key.String())
	if err != nil {
		return errorResult(fmt.Sprintf("No quality report for %s: %v", key, err))
	}

	return textResult(formatReport(r))
}

func formatReport(r *report.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Date: %s\n", r.DateKey)
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	fmt.Fprintf(&b, "Exit code: %d\n", r.ExitCode)

	if out := strings.TrimRight(r.Stdout, "\n"); out != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Output:")
		for _, line := range strings.Split(out, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	if errOut := strings.TrimRight(r.Stderr, "\n"); errOut != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Errors:")
		for _, line := range strings.Split(errOut, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	return b.String()
}
