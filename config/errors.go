// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigFile indicates the configuration file could not be parsed.
	ErrInvalidConfigFile = errors.New("config: invalid configuration file")

	// ErrInvalidPlatformAccount indicates the platform account is neither a hex id nor a public key.
	ErrInvalidPlatformAccount = errors.New("config: invalid platform account")

	// ErrInvalidShares indicates the backer/organizer/platform shares do not sum to 10000.
	ErrInvalidShares = errors.New("config: profit shares must sum to 10000 basis points")

	// ErrFeeTooHigh indicates the platform fee exceeds the configured maximum.
	ErrFeeTooHigh = errors.New("config: platform fee exceeds maximum")

	// ErrInvalidQuorum indicates a quorum outside (0, 10000].
	ErrInvalidQuorum = errors.New("config: quorum must be in (0, 10000] basis points")

	// ErrInvalidMinContribution indicates a zero minimum contribution.
	ErrInvalidMinContribution = errors.New("config: minimum contribution must be positive")

	// ErrInvalidWindow indicates a non-positive time window.
	ErrInvalidWindow = errors.New("config: time windows must be positive")

	// ErrInvalidPolicy indicates an unknown milestone vote policy.
	ErrInvalidPolicy = errors.New("config: invalid milestone vote policy (must be \"flagged\", \"budget\", or \"always\")")
)
