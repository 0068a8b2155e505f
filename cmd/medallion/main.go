// Command medallion runs the bronze/silver/gold transaction pipeline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/fedehofmann/medallion"
	"github.com/fedehofmann/medallion/internal/clean"
	"github.com/fedehofmann/medallion/internal/config"
	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/dbt"
	medmcp "github.com/fedehofmann/medallion/internal/mcp"
	"github.com/fedehofmann/medallion/internal/pipeline"
	"github.com/fedehofmann/medallion/internal/report"
	"github.com/fedehofmann/medallion/internal/runner"
	"github.com/fedehofmann/medallion/internal/schedule"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("medallion: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "bronze", "silver", "gold":
		err = stageMain(cmd, args)
	case "backfill":
		err = backfillMain(args)
	case "scheduler":
		err = schedulerMain(args)
	case "report":
		err = reportMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(medallion.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "medallion: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: medallion <command> [flags]

Commands:
  run         Run the full pipeline (bronze, silver, gold) for one date
  bronze      Clean the raw extract for one date
  silver      Run the dbt models for one date
  gold        Run the dbt tests and write the quality report for one date
  backfill    Run the full pipeline for a date range, in order
  scheduler   Run the daily scheduler loop
  report      Print the stored quality report for one date
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Dates are compact calendar dates, e.g. -date 20251208.
Use "medallion <command> -h" for command-specific flags.`)
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dateFlag := fs.String("date", "", "run date (YYYYMMDD, required)")
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	verboseFlag := fs.Bool("v", false, "verbose logging")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 45m)")
	_ = fs.Parse(args)

	key, err := parseDateFlag(*dateFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(*timeoutFlag, *verboseFlag)
	if err != nil {
		return err
	}
	defer app.close()

	rr, runErr := app.engine.Run(ctx, key)

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rr); err != nil {
			return err
		}
	} else {
		fmt.Print(formatRunCLI(rr, runErr))
	}

	if runErr != nil {
		exitStage(runErr)
	}
	return nil
}

func formatRunCLI(rr *pipeline.RunResult, runErr error) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	if runErr == nil {
		w("ok %s\n\n", rr.Key)
	} else {
		w("FAIL %s\n\n", rr.Key)
	}

	for _, s := range rr.Stages {
		switch s.Status {
		case "pass":
			w("  %-8s ok\n", s.Name)
		case "fail":
			w("  %-8s FAIL\n", s.Name)
		case "skipped":
			w("  %-8s -\n", s.Name)
		}
	}

	if runErr != nil {
		w("\n%s\n", runErr)
	}

	return string(b)
}

// --- bronze / silver / gold ---

func stageMain(stage string, args []string) error {
	fs := flag.NewFlagSet(stage, flag.ExitOnError)
	dateFlag := fs.String("date", "", "run date (YYYYMMDD, required)")
	verboseFlag := fs.Bool("v", false, "verbose logging")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 45m)")
	_ = fs.Parse(args)

	key, err := parseDateFlag(*dateFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(*timeoutFlag, *verboseFlag)
	if err != nil {
		return err
	}
	defer app.close()

	var stageErr error
	switch stage {
	case "bronze":
		stageErr = app.engine.Bronze(ctx, key)
	case "silver":
		stageErr = app.engine.Silver(ctx, key)
	case "gold":
		stageErr = app.engine.Gold(ctx, key)
	}
	if stageErr != nil {
		fmt.Fprintf(os.Stderr, "medallion: %v\n", stageErr)
		exitStage(stageErr)
	}

	fmt.Printf("ok %s %s\n", stage, key)
	return nil
}

// --- backfill ---

func backfillMain(args []string) error {
	fs := flag.NewFlagSet("backfill", flag.ExitOnError)
	fromFlag := fs.String("from", "", "first run date (YYYYMMDD, required)")
	toFlag := fs.String("to", "", "last run date (YYYYMMDD, required)")
	verboseFlag := fs.Bool("v", false, "verbose logging")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 45m)")
	_ = fs.Parse(args)

	from, err := parseDateFlag(*fromFlag)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	to, err := parseDateFlag(*toFlag)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(*timeoutFlag, *verboseFlag)
	if err != nil {
		return err
	}
	defer app.close()

	if err := schedule.Backfill(ctx, app.engine, from, to); err != nil {
		return err
	}

	fmt.Printf("ok backfill %s..%s\n", from, to)
	return nil
}

// --- scheduler ---

func schedulerMain(args []string) error {
	fs := flag.NewFlagSet("scheduler", flag.ExitOnError)
	intervalFlag := fs.Duration("interval", schedule.DefaultInterval, "how often to check for due dates")
	verboseFlag := fs.Bool("v", false, "verbose logging")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 45m)")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(*timeoutFlag, *verboseFlag)
	if err != nil {
		return err
	}
	defer app.close()

	start, err := app.cfg.StartKey()
	if err != nil {
		return fmt.Errorf("schedule start date: %w", err)
	}

	s := &schedule.Scheduler{
		Pipeline:  app.engine,
		State:     app.state,
		StartDate: start,
		Hour:      app.cfg.Hour(),
		Catchup:   app.cfg.Catchup(),
		Interval:  *intervalFlag,
		Log:       app.log,
	}

	app.log.Info("scheduler starting",
		zap.Stringer("start_date", start),
		zap.Int("hour_utc", app.cfg.Hour()),
		zap.Bool("catchup", app.cfg.Catchup()),
	)

	if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// --- report ---

func reportMain(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dateFlag := fs.String("date", "", "run date (YYYYMMDD, required)")
	jsonFlag := fs.Bool("json", false, "output the report as JSON")
	_ = fs.Parse(args)

	key, err := parseDateFlag(*dateFlag)
	if err != nil {
		return err
	}

	app, err := newApp(0, false)
	if err != nil {
		return err
	}
	defer app.close()

	r, err := app.store.Load(key.String())
	if err != nil {
		return fmt.Errorf("no quality report for %s: %w", key, err)
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Printf("%s %s (dbt exit %d)\n", r.DateKey, r.Status, r.ExitCode)
	if r.Stdout != "" {
		fmt.Println()
		fmt.Print(r.Stdout)
	}
	if r.Stderr != "" {
		fmt.Println()
		fmt.Fprint(os.Stderr, r.Stderr)
	}
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	verboseFlag := fs.Bool("v", false, "verbose logging")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(medmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(0, *verboseFlag)
	if err != nil {
		return err
	}
	defer app.close()

	server := medmcp.NewServer(app.engine, app.store, app.layout, app.state)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

// app bundles the wired pipeline dependencies for one CLI invocation.
type app struct {
	cfg    *config.Config
	layout config.Layout
	engine *pipeline.Engine
	store  report.Store
	state  *schedule.StateStore
	log    *zap.Logger
}

func (a *app) close() {
	_ = a.log.Sync()
}

func newApp(timeoutOverride time.Duration, verbose bool) (*app, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}

	loaded, err := config.Load(wd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config
	layout := cfg.Layout(loaded.Base)

	logger, err := newLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	timeout := cfg.Timeout()
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}

	r := &runner.Runner{
		Workspace: loaded.Base,
		Timeout:   timeout,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	store := report.NewLRUStore(5, report.NewDiskStore(layout.QualityDir))

	engine := &pipeline.Engine{
		DBT: &dbt.Invoker{
			Runner:        r,
			Binary:        cfg.DBTBinary(),
			Args:          cfg.DBT.Args,
			ProjectDir:    layout.ProjectDir,
			ProfilesDir:   layout.ProfilesDir,
			CleanDir:      layout.CleanDir,
			WarehousePath: layout.WarehousePath,
		},
		Cleaner: &clean.Command{
			Runner:   r,
			Argv:     cfg.CleanCommand(loaded.Base),
			RawDir:   layout.RawDir,
			CleanDir: layout.CleanDir,
		},
		Reports: store,
		Log:     logger,
	}

	return &app{
		cfg:    cfg,
		layout: layout,
		engine: engine,
		store:  store,
		state:  schedule.NewStateStore(layout.StatePath),
		log:    logger,
	}, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func parseDateFlag(s string) (datekey.Key, error) {
	if s == "" {
		return datekey.Key{}, fmt.Errorf("-date is required (YYYYMMDD)")
	}
	return datekey.Parse(s)
}

// exitStage terminates the process after a stage failure, passing the
// external tool's exit code through when one is known.
func exitStage(err error) {
	if code := pipeline.ExitCode(err); code > 0 {
		os.Exit(code)
	}
	os.Exit(1)
}
