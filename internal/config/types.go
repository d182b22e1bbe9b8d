// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultDashboardPort is the port advertised for the Shiny dashboard.
	DefaultDashboardPort = 8000
	// DefaultDashboardPrefix is prepended to every relayed dashboard line.
	DefaultDashboardPrefix = "[shiny] "

	defaultVerifyTimeout = 15 * time.Second
	defaultStopGrace     = 5 * time.Second
	defaultWatchDebounce = 500 * time.Millisecond
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	// defaultWatchPatterns select the R sources and data inputs of the project.
	defaultWatchPatterns = []string{"**/*.R", "data/**/*.csv"}
)

type (
	// Config holds the application configuration.
	Config struct {
		// ProjectRoot is the directory script paths are resolved against.
		// Empty means the current working directory.
		ProjectRoot string `json:"project_root" toml:"project_root" mapstructure:"project_root"`
		// R locates the external runtime.
		R RConfig `json:"r" toml:"r" mapstructure:"r"`
		// Dashboard configures the background Shiny process.
		Dashboard DashboardConfig `json:"dashboard" toml:"dashboard" mapstructure:"dashboard"`
		// Scripts overrides the script path of a task, keyed by task name.
		Scripts map[string]string `json:"scripts" toml:"scripts" mapstructure:"scripts"`
		// Watch configures `rbridge watch`.
		Watch WatchConfig `json:"watch" toml:"watch" mapstructure:"watch"`
		// UI configures the user interface
		UI UIConfig `json:"ui" toml:"ui" mapstructure:"ui"`
	}

	// RConfig overrides runtime discovery. Empty fields fall back to R_HOME
	// and then PATH.
	RConfig struct {
		Home       string `json:"home" toml:"home" mapstructure:"home"`
		Executable string `json:"executable" toml:"executable" mapstructure:"executable"`
		Rscript    string `json:"rscript" toml:"rscript" mapstructure:"rscript"`
	}

	// DashboardConfig configures the dashboard launcher.
	DashboardConfig struct {
		// Port is informational only; it is echoed to the user, never bound.
		Port int `json:"port" toml:"port" mapstructure:"port"`
		// Prefix is written before each relayed output line.
		Prefix string `json:"prefix" toml:"prefix" mapstructure:"prefix"`
		// PTY attaches the child to a pseudo-terminal (unix only) so R
		// line-buffers its console output.
		PTY bool `json:"pty" toml:"pty" mapstructure:"pty"`
		// VerifyPort inspects the child's listening sockets after launch.
		VerifyPort bool `json:"verify_port" toml:"verify_port" mapstructure:"verify_port"`
		// VerifyTimeout bounds how long port verification polls.
		VerifyTimeout time.Duration `json:"verify_timeout" toml:"verify_timeout" mapstructure:"verify_timeout"`
		// StopGrace is the delay between SIGTERM and SIGKILL on stop.
		StopGrace time.Duration `json:"stop_grace" toml:"stop_grace" mapstructure:"stop_grace"`
	}

	// WatchConfig configures file watching.
	WatchConfig struct {
		Patterns []string      `json:"patterns" toml:"patterns" mapstructure:"patterns"`
		Ignore   []string      `json:"ignore" toml:"ignore" mapstructure:"ignore"`
		Debounce time.Duration `json:"debounce" toml:"debounce" mapstructure:"debounce"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables verbose output
		Verbose bool `json:"verbose" toml:"verbose" mapstructure:"verbose"`
	}

	// InvalidConfigError is returned when Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Dashboard: DashboardConfig{
			Port:          DefaultDashboardPort,
			Prefix:        DefaultDashboardPrefix,
			VerifyPort:    true,
			VerifyTimeout: defaultVerifyTimeout,
			StopGrace:     defaultStopGrace,
		},
		Scripts: map[string]string{},
		Watch: WatchConfig{
			Patterns: append([]string(nil), defaultWatchPatterns...),
			Debounce: defaultWatchDebounce,
		},
	}
}

// Validate checks constraints the CUE schema cannot see after env overrides
// have been applied.
func (c *Config) Validate() error {
	var errs []error
	if c.Dashboard.Port < 1 || c.Dashboard.Port > 65535 {
		errs = append(errs, fmt.Errorf("dashboard.port: %d out of range 1-65535", c.Dashboard.Port))
	}
	if c.Dashboard.VerifyTimeout < 0 {
		errs = append(errs, fmt.Errorf("dashboard.verify_timeout: must not be negative"))
	}
	if c.Dashboard.StopGrace < 0 {
		errs = append(errs, fmt.Errorf("dashboard.stop_grace: must not be negative"))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce: must not be negative"))
	}
	for name, path := range c.Scripts {
		if strings.TrimSpace(path) == "" {
			errs = append(errs, fmt.Errorf("scripts.%s: path must not be empty", name))
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid config: %v", e.FieldErrors[0])
	}
	return fmt.Sprintf("invalid config: %d field errors", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
