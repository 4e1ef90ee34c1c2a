package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/hpungsan/daychain/internal/clock"
)

// Chain base modes.
const (
	ChainBaseNow            = "now"
	ChainBaseFirstScheduled = "first-scheduled"
)

// Interruption suffix modes.
const (
	SuffixNumeric = "numeric"
	SuffixHalf    = "half"
)

// Config holds application configuration and user settings.
type Config struct {
	// DayBoundaryHour shifts the start of a logical day (0-12).
	// With 3, work logged at 02:00 still belongs to yesterday.
	DayBoundaryHour int `json:"day_boundary_hour,omitempty"`

	// ApplyBoundaryToPlan makes plan day keys honor DayBoundaryHour.
	// When false, plans are keyed by the wall-clock date.
	ApplyBoundaryToPlan bool `json:"apply_boundary_to_plan,omitempty"`

	// ChainEnabled turns the schedule projection on or off. Nil means on.
	ChainEnabled *bool `json:"chain_enabled,omitempty"`

	// ChainBase anchors the projection sweep: "now" or "first-scheduled".
	ChainBase string `json:"chain_base,omitempty"`

	// InterruptionSuffixMode names resumed segments: "numeric" gives "base #2",
	// "half" gives "base 後半" for the second segment.
	InterruptionSuffixMode string `json:"interruption_suffix_mode,omitempty"`

	AutoEstimateLearn bool `json:"auto_estimate_learn,omitempty"`
	AutoDoneOnStop    bool `json:"auto_done_on_stop,omitempty"`
	AutoStartNext     bool `json:"auto_start_next,omitempty"`

	// AlertAfterMin flags a running task once it exceeds this many minutes.
	AlertAfterMin int `json:"alert_after_min,omitempty"`

	// Work and lunch windows (HH:MM) used by the capacity check.
	WorkStart  string `json:"work_start,omitempty"`
	WorkEnd    string `json:"work_end,omitempty"`
	LunchStart string `json:"lunch_start,omitempty"`
	LunchEnd   string `json:"lunch_end,omitempty"`

	// LunchMin is subtracted from capacity when no lunch window is set.
	LunchMin int `json:"lunch_min,omitempty"`

	// Bedtime (HH:MM) raises a warning when the chain ends after it.
	Bedtime string `json:"bedtime,omitempty"`

	// Timezone is an IANA zone name for day keys. Empty means local time.
	Timezone string `json:"timezone,omitempty"`

	LogLevel string `json:"log_level,omitempty"`

	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside <baseDir>/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	on := true
	return &Config{
		ChainEnabled:           &on,
		ChainBase:              ChainBaseNow,
		InterruptionSuffixMode: SuffixNumeric,
		AlertAfterMin:          120,
		LogLevel:               "info",
		WebBind:                "127.0.0.1",
		WebPort:                7780,
	}
}

// ChainOn reports whether schedule projection is enabled.
func (c *Config) ChainOn() bool {
	return c.ChainEnabled == nil || *c.ChainEnabled
}

// Validate rejects settings the rest of the program cannot interpret.
func (c *Config) Validate() error {
	if c.DayBoundaryHour < 0 || c.DayBoundaryHour > 12 {
		return fmt.Errorf("day_boundary_hour must be between 0 and 12, got %d", c.DayBoundaryHour)
	}
	switch c.ChainBase {
	case "", ChainBaseNow, ChainBaseFirstScheduled:
	default:
		return fmt.Errorf("chain_base must be %q or %q, got %q", ChainBaseNow, ChainBaseFirstScheduled, c.ChainBase)
	}
	switch c.InterruptionSuffixMode {
	case "", SuffixNumeric, SuffixHalf:
	default:
		return fmt.Errorf("interruption_suffix_mode must be %q or %q, got %q", SuffixNumeric, SuffixHalf, c.InterruptionSuffixMode)
	}
	for key, v := range map[string]string{
		"work_start":  c.WorkStart,
		"work_end":    c.WorkEnd,
		"lunch_start": c.LunchStart,
		"lunch_end":   c.LunchEnd,
		"bedtime":     c.Bedtime,
	} {
		if v != "" && !clock.ValidHHMM(v) {
			return fmt.Errorf("%s must be HH:MM, got %q", key, v)
		}
	}
	if c.AlertAfterMin < 0 || c.LunchMin < 0 {
		return errors.New("alert_after_min and lunch_min must not be negative")
	}
	if c.Timezone != "" {
		if _, err := c.Location(); err != nil {
			return err
		}
	}
	return nil
}

// Location resolves Timezone, falling back to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Resolver builds the day-key resolver for these settings.
func (c *Config) Resolver() clock.Resolver {
	loc, err := c.Location()
	if err != nil {
		loc = time.Local
	}
	return clock.Resolver{
		BoundaryHour: c.DayBoundaryHour,
		ApplyToPlan:  c.ApplyBoundaryToPlan,
		Loc:          loc,
	}
}

// BaseDir returns the data directory: $DAYCHAIN_HOME if set, else ~/.daychain.
func BaseDir() (string, error) {
	if env := os.Getenv("DAYCHAIN_HOME"); env != "" {
		return homedir.Expand(env)
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".daychain"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the global and repo (.daychain) directories.
// Repo config is found by walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .daychain/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".daychain", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero-valued config (not defaults) if the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.DayBoundaryHour = pickInt(overlay.DayBoundaryHour, base.DayBoundaryHour)
	result.AlertAfterMin = pickInt(overlay.AlertAfterMin, base.AlertAfterMin)
	result.LunchMin = pickInt(overlay.LunchMin, base.LunchMin)
	result.WebPort = pickInt(overlay.WebPort, base.WebPort)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.ChainBase = pickString(overlay.ChainBase, base.ChainBase)
	result.InterruptionSuffixMode = pickString(overlay.InterruptionSuffixMode, base.InterruptionSuffixMode)
	result.WorkStart = pickString(overlay.WorkStart, base.WorkStart)
	result.WorkEnd = pickString(overlay.WorkEnd, base.WorkEnd)
	result.LunchStart = pickString(overlay.LunchStart, base.LunchStart)
	result.LunchEnd = pickString(overlay.LunchEnd, base.LunchEnd)
	result.Bedtime = pickString(overlay.Bedtime, base.Bedtime)
	result.Timezone = pickString(overlay.Timezone, base.Timezone)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.WebBind = pickString(overlay.WebBind, base.WebBind)

	// Explicit tri-state: an overlay can switch the chain off
	result.ChainEnabled = base.ChainEnabled
	if overlay.ChainEnabled != nil {
		v := *overlay.ChainEnabled
		result.ChainEnabled = &v
	}

	// Booleans: overlay wins if true, else base
	result.ApplyBoundaryToPlan = base.ApplyBoundaryToPlan || overlay.ApplyBoundaryToPlan
	result.AutoEstimateLearn = base.AutoEstimateLearn || overlay.AutoEstimateLearn
	result.AutoDoneOnStop = base.AutoDoneOnStop || overlay.AutoDoneOnStop
	result.AutoStartNext = base.AutoStartNext || overlay.AutoStartNext
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
