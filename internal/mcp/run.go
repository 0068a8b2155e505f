package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/pipeline"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct {
	Date string `json:"date" jsonschema:"the run date in compact form, e.g. 20251208"`
}

func (h *handler) runHandler(ctx context.Context, req *mcpsdk.CallToolRequest, params runParams) (*mcpsdk.CallToolResult, any, error) {
	if params.Date == "" {
		return errorResult("date is required")
	}
	key, err := datekey.Parse(params.Date)
	if err != nil {
		return errorResult(err.Error())
	}

	rr, runErr := h.engine.Run(ctx, key)
	return textResult(formatRun(rr, runErr))
}

func formatRun(rr *pipeline.RunResult, runErr error) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintf(&b, "Date: %s\n", rr.Key)
	if runErr == nil {
		fmt.Fprintln(&b, "Status: ok")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintln(&b)

	for _, s := range rr.Stages {
		switch s.Status {
		case "pass":
			fmt.Fprintf(&b, "  %-8s ok\n", s.Name)
		case "fail":
			fmt.Fprintf(&b, "  %-8s FAIL\n", s.Name)
		case "skipped":
			fmt.Fprintf(&b, "  %-8s -\n", s.Name)
		}
	}

	if runErr != nil {
		fmt.Fprintf(&b, "\n%s\n", runErr)
		if rr.FailedIdx == len(rr.Stages)-1 {
			fmt.Fprintf(&b, "The quality report for %s was written before the failure; read it with medallion_report.\n", rr.Key)
		}
	}

	return b.String()
}
