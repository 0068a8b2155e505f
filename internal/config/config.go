// Package config loads and validates the optional .medallion YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fedehofmann/medallion/internal/datekey"
	"gopkg.in/yaml.v3"
)

// Default values for runner configuration.
const (
	DefaultTimeout   = 30 * time.Minute
	DefaultMaxOutput = 1 << 20 // 1 MB
)

// ConfigFileName is the file looked up at the base directory.
const ConfigFileName = ".medallion"

// Config holds the parsed .medallion configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int            `yaml:"version"`
	RawTimeout   string         `yaml:"timeout"`    // e.g. "30m", "90s"
	RawMaxOutput int            `yaml:"max_output"` // bytes
	DBT          DBTConfig      `yaml:"dbt"`
	Clean        CleanConfig    `yaml:"clean"`
	Paths        PathsConfig    `yaml:"paths"`
	Schedule     ScheduleConfig `yaml:"schedule"`
}

// Timeout returns the configured subprocess timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// DBTConfig controls how the dbt binary is invoked.
type DBTConfig struct {
	Binary string   `yaml:"binary"` // default: "dbt"
	Args   []string `yaml:"args"`   // extra flags appended to every invocation
}

// DBTBinary returns the configured dbt binary name, falling back to "dbt".
func (c *Config) DBTBinary() string {
	if c.DBT.Binary != "" {
		return c.DBT.Binary
	}
	return "dbt"
}

// CleanConfig controls the external cleaning command run by the bronze stage.
type CleanConfig struct {
	Command []string `yaml:"command"` // argv prefix; date and dir flags are appended
}

// DefaultCleanCommand is used when no clean command is configured. It
// matches the repository convention of keeping the cleaning routine
// under include/.
var DefaultCleanCommand = []string{"python3", "include/clean_transactions.py"}

// CleanCommand returns the configured cleaning argv prefix, falling back
// to DefaultCleanCommand. Relative script arguments are resolved against
// base so the command works regardless of the process working directory.
func (c *Config) CleanCommand(base string) []string {
	argv := c.Clean.Command
	if len(argv) == 0 {
		argv = DefaultCleanCommand
	}
	out := make([]string, len(argv))
	copy(out, argv)
	for i := 1; i < len(out); i++ {
		if !filepath.IsAbs(out[i]) && filepath.Ext(out[i]) != "" {
			out[i] = filepath.Join(base, out[i])
		}
	}
	return out
}

// PathsConfig overrides the default artifact locations. All entries are
// resolved relative to the base directory unless absolute.
type PathsConfig struct {
	Raw       string `yaml:"raw"`       // default: data/raw
	Clean     string `yaml:"clean"`     // default: data/clean
	Quality   string `yaml:"quality"`   // default: data/quality
	Project   string `yaml:"project"`   // default: dbt
	Profiles  string `yaml:"profiles"`  // default: profiles
	Warehouse string `yaml:"warehouse"` // default: warehouse/medallion.duckdb
	State     string `yaml:"state"`     // default: data/scheduler_state.json
}

// Layout holds the resolved absolute locations of every pipeline artifact.
type Layout struct {
	Base          string
	RawDir        string
	CleanDir      string
	QualityDir    string
	ProjectDir    string
	ProfilesDir   string
	WarehousePath string
	StatePath     string
}

// Layout resolves the configured paths against the base directory.
func (c *Config) Layout(base string) Layout {
	resolve := func(configured, fallback string) string {
		p := configured
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}
	return Layout{
		Base:          base,
		RawDir:        resolve(c.Paths.Raw, "data/raw"),
		CleanDir:      resolve(c.Paths.Clean, "data/clean"),
		QualityDir:    resolve(c.Paths.Quality, "data/quality"),
		ProjectDir:    resolve(c.Paths.Project, "dbt"),
		ProfilesDir:   resolve(c.Paths.Profiles, "profiles"),
		WarehousePath: resolve(c.Paths.Warehouse, "warehouse/medallion.duckdb"),
		StatePath:     resolve(c.Paths.State, "data/scheduler_state.json"),
	}
}

// ScheduleConfig controls the daily cadence.
type ScheduleConfig struct {
	Hour      *int   `yaml:"hour"`       // UTC hour of the daily trigger; default 6
	StartDate string `yaml:"start_date"` // first logical date, YYYYMMDD; default 20251201
	Catchup   *bool  `yaml:"catchup"`    // backfill missed dates; default true
}

// Hour returns the configured UTC trigger hour, falling back to 6.
func (c *Config) Hour() int {
	if c.Schedule.Hour != nil && *c.Schedule.Hour >= 0 && *c.Schedule.Hour < 24 {
		return *c.Schedule.Hour
	}
	return 6
}

// StartKey returns the first logical date of the schedule.
func (c *Config) StartKey() (datekey.Key, error) {
	s := c.Schedule.StartDate
	if s == "" {
		s = "20251201"
	}
	return datekey.Parse(s)
}

// Catchup reports whether missed dates are backfilled, defaulting to true.
func (c *Config) Catchup() bool {
	if c.Schedule.Catchup != nil {
		return *c.Schedule.Catchup
	}
	return true
}

// LoadResult holds the parsed config and the discovered base directory.
type LoadResult struct {
	Config *Config
	Base   string // directory containing .medallion; falls back to dir
}

// Load reads the .medallion file for the pipeline rooted at dir.
// The base directory is discovered by walking upward from dir looking
// for a .medallion file. If none exists, dir itself is the base and a
// default Config is returned.
func Load(dir string) (*LoadResult, error) {
	base, err := findBase(dir)
	if err != nil {
		abs, absErr := filepath.Abs(dir)
		if absErr != nil {
			return nil, fmt.Errorf("resolving base directory: %w", absErr)
		}
		return &LoadResult{Config: &Config{}, Base: abs}, nil
	}

	data, err := os.ReadFile(filepath.Join(base, ConfigFileName))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}
	return &LoadResult{Config: cfg, Base: base}, nil
}

// findBase walks upward from dir looking for a directory containing .medallion.
func findBase(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", ConfigFileName)
		}
		dir = parent
	}
}
