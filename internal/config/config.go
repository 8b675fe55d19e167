// Package config loads and validates the INI configuration for go-nzbidx.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Defaults applied when the config file leaves a key unset.
const (
	DefaultPort       = 119
	DefaultTLSPort    = 563
	DefaultTimeout    = 60 // seconds
	DefaultMaxWorkers = 10
	DefaultChunkSize  = 100000
	MaxWorkersLimit   = 64
)

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// Config is the full configuration tree, one struct per INI section.
type Config struct {
	Server  ServerConfig `mapstructure:"server"`
	Fetch   FetchConfig  `mapstructure:"fetch"`
	Groups  GroupsConfig `mapstructure:"groups"`
	DB      DBConfig     `mapstructure:"db"`
	Filters FilterConfig `mapstructure:"filters"`
	NZB     NZBConfig    `mapstructure:"nzb"`
}

// ServerConfig is the NNTP endpoint.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	UseTLS   bool   `mapstructure:"use_tls"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Timeout  int    `mapstructure:"timeout"` // seconds
	MaxConns int    `mapstructure:"max_conns"`
}

// TimeoutDuration returns the socket timeout as a time.Duration.
func (s *ServerConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// FetchConfig controls the parallel overview fetch.
type FetchConfig struct {
	MaxWorkers     int    `mapstructure:"max_workers"`
	ChunkSize      uint64 `mapstructure:"chunk_size"`
	Start          uint64 `mapstructure:"start"`
	BackFilledUpTo uint64 `mapstructure:"back_filled_up_to"`
	Limit          uint64 `mapstructure:"limit"`
	MinDays        int    `mapstructure:"min_days"`
	MaxDays        int    `mapstructure:"max_days"`
	ArchivePath    string `mapstructure:"archive_path"`
}

// GroupsConfig names the target newsgroups.
type GroupsConfig struct {
	Names string `mapstructure:"names"`
}

// List splits the comma-separated group names, dropping empties.
func (g *GroupsConfig) List() []string {
	var names []string
	for _, name := range strings.Split(g.Names, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// DBConfig locates the per-group databases.
type DBConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// FilterConfig holds the query filters for the nzb command.
// not_subject and not_from carry multiple patterns separated by '|'.
type FilterConfig struct {
	SubjectLike string `mapstructure:"subject_like"`
	NotSubject  string `mapstructure:"not_subject"`
	FromLike    string `mapstructure:"from_like"`
	NotFrom     string `mapstructure:"not_from"`
	DateFrom    string `mapstructure:"date_from"`
	DateTo      string `mapstructure:"date_to"`
}

// NotSubjects returns the exclusion patterns for subjects.
func (f *FilterConfig) NotSubjects() []string {
	return splitPatterns(f.NotSubject)
}

// NotFroms returns the exclusion patterns for posters.
func (f *FilterConfig) NotFroms() []string {
	return splitPatterns(f.NotFrom)
}

// DateFromUnix returns the inclusive lower date bound, 0 when unset.
func (f *FilterConfig) DateFromUnix() (int64, error) {
	return parseDateBound(f.DateFrom, false)
}

// DateToUnix returns the inclusive upper date bound, 0 when unset.
// A bare date covers the whole named day.
func (f *FilterConfig) DateToUnix() (int64, error) {
	return parseDateBound(f.DateTo, true)
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDateBound accepts RFC 3339 timestamps or bare 2006-01-02 dates (UTC).
func parseDateBound(value string, endOfDay bool) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Unix(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q (want 2006-01-02 or RFC 3339)", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t.Unix(), nil
}

// NZBConfig controls NZB assembly and output.
type NZBConfig struct {
	RequireCompleteSets bool   `mapstructure:"require_complete_sets"`
	GroupByCollection   bool   `mapstructure:"group_by_collection"`
	SkipExe             bool   `mapstructure:"skip_exe"`
	OutputPath          string `mapstructure:"output_path"`
}

// Load reads the INI file at path (default config.ini in the working
// directory) and returns the merged configuration. A missing default file
// yields the builtin defaults; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("ini")
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || (!errors.As(err, &notFound) && !os.IsNotExist(err)) {
			return nil, &ConfigError{Key: "file", Reason: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Key: "file", Reason: err.Error()}
	}
	if cfg.Server.Port == 0 {
		if cfg.Server.UseTLS {
			cfg.Server.Port = DefaultTLSPort
		} else {
			cfg.Server.Port = DefaultPort
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.timeout", DefaultTimeout)
	v.SetDefault("fetch.max_workers", DefaultMaxWorkers)
	v.SetDefault("fetch.chunk_size", DefaultChunkSize)
	v.SetDefault("db.base_path", "data")
	v.SetDefault("nzb.skip_exe", true)
}

// Validate checks value ranges. Server reachability keys are checked
// separately by RequireServer so offline commands work without them.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Key: "server.port", Reason: fmt.Sprintf("%d out of range 1-65535", c.Server.Port)}
	}
	if c.Server.Timeout <= 0 {
		return &ConfigError{Key: "server.timeout", Reason: "must be positive"}
	}
	if c.Fetch.MaxWorkers < 1 || c.Fetch.MaxWorkers > MaxWorkersLimit {
		return &ConfigError{Key: "fetch.max_workers", Reason: fmt.Sprintf("%d out of range 1-%d", c.Fetch.MaxWorkers, MaxWorkersLimit)}
	}
	if c.Fetch.ChunkSize < 1 {
		return &ConfigError{Key: "fetch.chunk_size", Reason: "must be positive"}
	}
	if c.Fetch.MinDays < 0 || c.Fetch.MaxDays < 0 {
		return &ConfigError{Key: "fetch.min_days", Reason: "day bounds cannot be negative"}
	}
	if c.Fetch.MaxDays != 0 && c.Fetch.MaxDays <= c.Fetch.MinDays {
		return &ConfigError{Key: "fetch.max_days", Reason: "must be greater than fetch.min_days"}
	}
	if c.DB.BasePath == "" {
		return &ConfigError{Key: "db.base_path", Reason: "must not be empty"}
	}
	if _, err := c.Filters.DateFromUnix(); err != nil {
		return &ConfigError{Key: "filters.date_from", Reason: err.Error()}
	}
	if _, err := c.Filters.DateToUnix(); err != nil {
		return &ConfigError{Key: "filters.date_to", Reason: err.Error()}
	}
	return nil
}

// RequireServer checks the keys a network command needs.
func (c *Config) RequireServer() error {
	if c.Server.Host == "" {
		return &ConfigError{Key: "server.host", Reason: "must not be empty"}
	}
	return nil
}

// RequireGroups checks that at least one target newsgroup is named.
func (c *Config) RequireGroups() error {
	if len(c.Groups.List()) == 0 {
		return &ConfigError{Key: "groups.names", Reason: "must name at least one newsgroup"}
	}
	return nil
}

// PromptPassword asks for the NNTP password on the terminal when the config
// has a username but no password. Non-interactive runs leave it empty.
func (c *Config) PromptPassword() error {
	if c.Server.Username == "" || c.Server.Password != "" {
		return nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil
	}
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", c.Server.Username, c.Server.Host)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	c.Server.Password = string(password)
	return nil
}
