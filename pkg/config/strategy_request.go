// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Feature: CLI_STRATEGY_FROM_FILE
// Spec: spec.md section 6

// StrategyRequest mirrors the CLI knob flags documented in spec.md section 6
// so a `create --from-file` invocation can read the same knobs from a YAML
// document instead of (or alongside) individual flags. Zero-value fields
// mean "use the flag/default instead" -- a request file is free to set only
// the knobs it cares about.
type StrategyRequest struct {
	ControllerApplyType   string   `yaml:"controller_apply_type,omitempty"`
	StorageApplyType      string   `yaml:"storage_apply_type,omitempty"`
	WorkerApplyType       string   `yaml:"worker_apply_type,omitempty"`
	MaxParallelWorkerHosts int     `yaml:"max_parallel_worker_hosts,omitempty"`
	InstanceAction        string   `yaml:"instance_action,omitempty"`
	AlarmRestrictions     string   `yaml:"alarm_restrictions,omitempty"`
	IgnoreAlarms          []string `yaml:"ignore_alarms,omitempty"`
	ToVersion             string   `yaml:"to_version,omitempty"`
	Force                 bool     `yaml:"force,omitempty"`
}

// LoadStrategyRequest reads and parses a strategy request file. Unlike
// Load, a missing path is the caller's bug (the --from-file flag was set
// to a path that doesn't exist), so it is reported directly rather than
// through ErrConfigNotFound.
func LoadStrategyRequest(path string) (*StrategyRequest, error) {
	// nolint:gosec // G304: reading a file path the operator passed via --from-file is expected
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading strategy request file: %w", err)
	}

	var req StrategyRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing strategy request file: %w", err)
	}

	return &req, nil
}
