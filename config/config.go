// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and validates engine configuration.
//
// Values are layered: built-in defaults, then the YAML config file, then
// GATHERFI_* environment variables (for example GATHERFI_LOG_LEVEL).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "GATHERFI"

	configFileName = "config.yaml"
	dbFileName     = "gatherfi.db"
	fileHeader     = "# GatherFi Configuration\n"
)

// Config holds engine configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	DBPath   string `mapstructure:"db_path"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// PlatformAccount is the party that collects fees, as a 40-character
	// hex id or a hex public key.
	PlatformAccount string `mapstructure:"platform_account"`

	PlatformFeeBps    uint16 `mapstructure:"platform_fee_bps"`
	MaxFeeBps         uint16 `mapstructure:"max_fee_bps"`
	BackerShareBps    uint16 `mapstructure:"backer_share_bps"`
	OrganizerShareBps uint16 `mapstructure:"organizer_share_bps"`
	PlatformShareBps  uint16 `mapstructure:"platform_share_bps"`
	QuorumBps         uint16 `mapstructure:"quorum_bps"`

	MinContribution uint64 `mapstructure:"min_contribution"`

	FundingWindow         time.Duration `mapstructure:"funding_window"`
	BudgetVotingWindow    time.Duration `mapstructure:"budget_voting_window"`
	MilestoneVotingWindow time.Duration `mapstructure:"milestone_voting_window"`
	VotingCutoff          time.Duration `mapstructure:"voting_cutoff"`

	// MilestoneVotePolicy is one of "flagged", "budget", "always".
	MilestoneVotePolicy string `mapstructure:"milestone_vote_policy"`
}

// DefaultDataDir returns ~/.gatherfi, or .gatherfi when the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gatherfi"
	}
	return filepath.Join(home, ".gatherfi")
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:               DefaultDataDir(),
		LogLevel:              "info",
		PlatformFeeBps:        500,
		MaxFeeBps:             1000,
		BackerShareBps:        6000,
		OrganizerShareBps:     3500,
		PlatformShareBps:      500,
		QuorumBps:             5000,
		MinContribution:       1_000_000,
		FundingWindow:         30 * 24 * time.Hour,
		BudgetVotingWindow:    7 * 24 * time.Hour,
		MilestoneVotingWindow: 3 * 24 * time.Hour,
		VotingCutoff:          24 * time.Hour,
		MilestoneVotePolicy:   "flagged",
	}
}

// ResolvedDBPath returns DBPath, defaulting to a file inside DataDir.
func (c Config) ResolvedDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, dbFileName)
}

// values flattens cfg to its file keys. Durations are written as strings
// such as "720h0m0s".
func values(c Config) map[string]interface{} {
	return map[string]interface{}{
		"data_dir":                c.DataDir,
		"db_path":                 c.DBPath,
		"log_level":               c.LogLevel,
		"log_file":                c.LogFile,
		"platform_account":        c.PlatformAccount,
		"platform_fee_bps":        c.PlatformFeeBps,
		"max_fee_bps":             c.MaxFeeBps,
		"backer_share_bps":        c.BackerShareBps,
		"organizer_share_bps":     c.OrganizerShareBps,
		"platform_share_bps":      c.PlatformShareBps,
		"quorum_bps":              c.QuorumBps,
		"min_contribution":        c.MinContribution,
		"funding_window":          c.FundingWindow.String(),
		"budget_voting_window":    c.BudgetVotingWindow.String(),
		"milestone_voting_window": c.MilestoneVotingWindow.String(),
		"voting_cutoff":           c.VotingCutoff.String(),
		"milestone_vote_policy":   c.MilestoneVotePolicy,
	}
}

// newViper returns a viper instance seeded with defaults and env binding.
func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range values(DefaultConfig()) {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the YAML file at path over the defaults and applies
// environment overrides. Unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfigFile, err)
	}
	return decode(v)
}

// FromEnv returns the defaults with environment overrides applied, for
// running without a config file.
func FromEnv() (Config, error) {
	return decode(newViper())
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfigFile, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// Encode writes cfg to w in the config file format.
func Encode(w io.Writer, cfg Config) error {
	if _, err := io.WriteString(w, fileHeader); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(values(cfg)); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}
