package dbt

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/runner"
)

func mustKey(t *testing.T, s string) datekey.Key {
	t.Helper()
	k, err := datekey.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func testInvoker() *Invoker {
	return &Invoker{
		Binary:        "dbt",
		ProjectDir:    "/srv/medallion/dbt",
		ProfilesDir:   "/srv/medallion/profiles",
		CleanDir:      "/srv/medallion/data/clean",
		WarehousePath: "/srv/medallion/warehouse/medallion.duckdb",
		Environ: func() []string {
			return []string{"PATH=/usr/bin", "HOME=/home/etl", "DS_NODASH=stale"}
		},
	}
}

type runFunc func(ctx context.Context, argv []string, cwd string, env []string) (*runner.Result, error)

func (f runFunc) Run(ctx context.Context, argv []string, cwd string, env []string) (*runner.Result, error) {
	return f(ctx, argv, cwd, env)
}

func envMap(t *testing.T, env []string) map[string]string {
	t.Helper()
	m := make(map[string]string, len(env))
	for _, kv := range env {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			t.Fatalf("malformed env entry %q", kv)
		}
		if _, dup := m[name]; dup {
			t.Fatalf("duplicate env entry %q", name)
		}
		m[name] = value
	}
	return m
}

func TestEnv_OverlaysExactlyFourKeys(t *testing.T) {
	inv := testInvoker()
	env := envMap(t, inv.Env(mustKey(t, "20251208")))

	want := map[string]string{
		"PATH":         "/usr/bin",
		"HOME":         "/home/etl",
		EnvProfilesDir: "/srv/medallion/profiles",
		EnvCleanDir:    "/srv/medallion/data/clean",
		EnvDateKey:     "20251208",
		EnvWarehouse:   "/srv/medallion/warehouse/medallion.duckdb",
	}
	if !reflect.DeepEqual(env, want) {
		t.Errorf("Env = %v, want %v", env, want)
	}
}

func TestEnv_DoesNotMutateAmbientSnapshot(t *testing.T) {
	ambient := []string{"PATH=/usr/bin", "DS_NODASH=stale"}
	inv := testInvoker()
	inv.Environ = func() []string { return ambient }

	inv.Env(mustKey(t, "20251201"))

	if ambient[0] != "PATH=/usr/bin" || ambient[1] != "DS_NODASH=stale" {
		t.Errorf("ambient snapshot mutated: %v", ambient)
	}
}

func TestExec_ArgvAndCwd(t *testing.T) {
	var gotArgv []string
	var gotCwd string
	var gotEnv []string
	inv := testInvoker()
	inv.Runner = runFunc(func(_ context.Context, argv []string, cwd string, env []string) (*runner.Result, error) {
		gotArgv, gotCwd, gotEnv = argv, cwd, env
		return &runner.Result{ExitCode: 0}, nil
	})

	res, err := inv.Exec(context.Background(), "run", mustKey(t, "20251201"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}

	wantArgv := []string{"dbt", "run", "--project-dir", "/srv/medallion/dbt"}
	if !reflect.DeepEqual(gotArgv, wantArgv) {
		t.Errorf("argv = %v, want %v", gotArgv, wantArgv)
	}
	if gotCwd != "/srv/medallion/dbt" {
		t.Errorf("cwd = %q, want project dir", gotCwd)
	}
	if envMap(t, gotEnv)[EnvDateKey] != "20251201" {
		t.Errorf("env %s = %q, want 20251201", EnvDateKey, envMap(t, gotEnv)[EnvDateKey])
	}
}

func TestExec_ExtraArgs(t *testing.T) {
	var gotArgv []string
	inv := testInvoker()
	inv.Args = []string{"--no-use-colors"}
	inv.Runner = runFunc(func(_ context.Context, argv []string, _ string, _ []string) (*runner.Result, error) {
		gotArgv = argv
		return &runner.Result{}, nil
	})

	if _, err := inv.Exec(context.Background(), "test", mustKey(t, "20251201")); err != nil {
		t.Fatal(err)
	}
	want := []string{"dbt", "test", "--project-dir", "/srv/medallion/dbt", "--no-use-colors"}
	if !reflect.DeepEqual(gotArgv, want) {
		t.Errorf("argv = %v, want %v", gotArgv, want)
	}
}

func TestExec_NonZeroExitIsNotAnError(t *testing.T) {
	inv := testInvoker()
	inv.Runner = runFunc(func(_ context.Context, _ []string, _ string, _ []string) (*runner.Result, error) {
		return &runner.Result{ExitCode: 1, Stderr: []byte("1 of 3 tests failed")}, nil
	})

	res, err := inv.Exec(context.Background(), "test", mustKey(t, "20251201"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", res.ExitCode)
	}
}
