// Package dbt invokes the external transformation tool. It builds the
// per-date subprocess environment and runs dbt subcommands against the
// project directory; interpreting the exit code is the caller's job.
package dbt

import (
	"context"
	"os"
	"strings"

	"github.com/fedehofmann/medallion/internal/datekey"
	"github.com/fedehofmann/medallion/internal/runner"
)

// Environment variables exported to every dbt subprocess.
const (
	EnvProfilesDir = "DBT_PROFILES_DIR"
	EnvCleanDir    = "CLEAN_DIR"
	EnvDateKey     = "DS_NODASH"
	EnvWarehouse   = "DUCKDB_PATH"
)

// CommandRunner executes a subprocess and captures its output.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string, env []string) (*runner.Result, error)
}

// Invoker runs dbt subcommands with the pipeline's environment overlay.
type Invoker struct {
	Runner        CommandRunner
	Binary        string   // dbt binary name, e.g. "dbt"
	Args          []string // extra flags appended to every invocation
	ProjectDir    string
	ProfilesDir   string
	CleanDir      string
	WarehousePath string

	// Environ supplies the ambient environment snapshot.
	// Defaults to os.Environ; overridable in tests.
	Environ func() []string
}

// Env returns a copy of the ambient environment with the four pipeline
// variables overlaid. The process environment is never mutated.
func (i *Invoker) Env(key datekey.Key) []string {
	environ := os.Environ
	if i.Environ != nil {
		environ = i.Environ
	}

	overlay := map[string]string{
		EnvProfilesDir: i.ProfilesDir,
		EnvCleanDir:    i.CleanDir,
		EnvDateKey:     key.String(),
		EnvWarehouse:   i.WarehousePath,
	}

	ambient := environ()
	env := make([]string, 0, len(ambient)+len(overlay))
	for _, kv := range ambient {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := overlay[name]; ok {
			continue
		}
		env = append(env, kv)
	}
	for _, name := range []string{EnvProfilesDir, EnvCleanDir, EnvDateKey, EnvWarehouse} {
		env = append(env, name+"="+overlay[name])
	}
	return env
}

// Exec runs `dbt <subcommand> --project-dir <dir>` for the given date
// key with the working directory pinned to the project directory. A
// non-zero exit is not an error; it is reported through the result.
func (i *Invoker) Exec(ctx context.Context, subcommand string, key datekey.Key) (*runner.Result, error) {
	argv := []string{i.Binary, subcommand, "--project-dir", i.ProjectDir}
	argv = append(argv, i.Args...)
	return i.Runner.Run(ctx, argv, i.ProjectDir, i.Env(key))
}
