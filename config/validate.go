// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitfsorg/gatherfi-go/governance"
	"github.com/bitfsorg/gatherfi-go/identity"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

const totalBps = 10000

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.PlatformAccount != "" {
		if _, err := identity.ParseParty(cfg.PlatformAccount); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPlatformAccount, err)
		}
	}

	shares := uint32(cfg.BackerShareBps) + uint32(cfg.OrganizerShareBps) + uint32(cfg.PlatformShareBps)
	if shares != totalBps {
		return fmt.Errorf("%w: got %d", ErrInvalidShares, shares)
	}

	if cfg.MaxFeeBps > totalBps || cfg.PlatformFeeBps > cfg.MaxFeeBps {
		return fmt.Errorf("%w: fee %d, max %d", ErrFeeTooHigh, cfg.PlatformFeeBps, cfg.MaxFeeBps)
	}

	if cfg.QuorumBps == 0 || cfg.QuorumBps > totalBps {
		return ErrInvalidQuorum
	}

	if cfg.MinContribution == 0 {
		return ErrInvalidMinContribution
	}

	windows := []struct {
		name string
		d    time.Duration
	}{
		{"funding_window", cfg.FundingWindow},
		{"budget_voting_window", cfg.BudgetVotingWindow},
		{"milestone_voting_window", cfg.MilestoneVotingWindow},
	}
	for _, w := range windows {
		if w.d <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidWindow, w.name)
		}
	}
	if cfg.VotingCutoff < 0 {
		return fmt.Errorf("%w: voting_cutoff", ErrInvalidWindow)
	}

	if _, err := governance.ParsePolicy(cfg.MilestoneVotePolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}

	return nil
}
