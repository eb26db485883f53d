// Package config loads runtime settings from defaults, an optional YAML
// file, TICTACTOE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/solver"
)

// cfgFile is looked up relative to the XDG config directories.
const cfgFile = "tictactoe/config.yaml"

// Keys understood by Load.
const (
	KeyAddr      = "addr"
	KeyLogLevel  = "log_level"
	KeyHeartbeat = "heartbeat_interval"
	KeyWorkers   = "solver.workers"
	KeySelection = "solver.selection"
)

type SolverConfig struct {
	Workers   int    `mapstructure:"workers"`
	Selection string `mapstructure:"selection"`
}

type Config struct {
	Addr              string        `mapstructure:"addr"`
	LogLevel          string        `mapstructure:"log_level"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	Solver            SolverConfig  `mapstructure:"solver"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

var ErrInvalid = errors.New("invalid config")

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyHeartbeat, 15*time.Second)
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeySelection, solver.Minimax.String())
}

// Load builds a Config. path names an explicit config file; when empty the
// XDG config directories are searched and a missing file is not an error.
// flags may be nil; set flags override every other source.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TICTACTOE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if found, err := xdg.SearchConfigFile(cfgFile); err == nil {
			path = found
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if flags != nil {
		bind := map[string]string{
			KeyAddr:      "addr",
			KeyLogLevel:  "log-level",
			KeyWorkers:   "workers",
			KeySelection: "selection",
		}
		for key, name := range bind {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	if _, err := solver.ParsePolicy(c.Solver.Selection); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Solver.Workers < 0 {
		return fmt.Errorf("%w: solver.workers must be >= 0, got %d", ErrInvalid, c.Solver.Workers)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval must be positive", ErrInvalid)
	}
	return nil
}

// Level returns the configured log level. Validate has already accepted it.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

// SolverOptions translates the solver section into solver options.
func (c *Config) SolverOptions() []solver.Option {
	p, _ := solver.ParsePolicy(c.Solver.Selection)
	return []solver.Option{solver.WithPolicy(p), solver.WithWorkers(c.Solver.Workers)}
}
