// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package config

import "fmt"

// ValidationError describes one configuration problem. Level "error"
// fails Load; "warning" is surfaced but non-fatal.
type ValidationError struct {
	Field   string
	Message string
	Level   string
}

func (e ValidationError) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Level, e.Field, e.Message)
}

// ValidateConfiguration checks cfg against the hard bounds session and
// groupsession enforce regardless of operator overrides, plus a few
// sanity checks on the ambient fields.
func ValidateConfiguration(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Session.MaxLookAhead <= 0 {
		errs = append(errs, ValidationError{"session.max_look_ahead", "must be positive", "error"})
	} else if cfg.Session.MaxLookAhead > sessionLookAheadBound {
		errs = append(errs, ValidationError{"session.max_look_ahead", fmt.Sprintf("exceeds hard ceiling of %d", sessionLookAheadBound), "error"})
	}
	if cfg.Session.MaxArchivedStates <= 0 {
		errs = append(errs, ValidationError{"session.max_archived_states", "must be positive", "error"})
	}
	if cfg.Session.MaxSkippedKeysPerChain <= 0 {
		errs = append(errs, ValidationError{"session.max_skipped_keys_per_chain", "must be positive", "error"})
	}

	if cfg.GroupSession.MaxLookAhead <= 0 {
		errs = append(errs, ValidationError{"group_session.max_look_ahead", "must be positive", "error"})
	} else if cfg.GroupSession.MaxLookAhead > sessionLookAheadBound {
		errs = append(errs, ValidationError{"group_session.max_look_ahead", fmt.Sprintf("exceeds hard ceiling of %d", sessionLookAheadBound), "error"})
	}
	if cfg.GroupSession.MaxHistoricalChains <= 0 {
		errs = append(errs, ValidationError{"group_session.max_historical_chains", "must be positive", "error"})
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{"logging.level", "unrecognized level " + cfg.Logging.Level, "warning"})
	}

	switch cfg.Logging.Format {
	case "json", "pretty":
	default:
		errs = append(errs, ValidationError{"logging.format", "unrecognized format " + cfg.Logging.Format, "warning"})
	}

	return errs
}
