// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Feature: CLI_GLOBAL_FLAGS
// Spec: spec.md section 6

package commands

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"fleetctl/pkg/config"
)

// ResolvedFlags contains the resolved values for the global flags every
// strategy sub-command shares.
type ResolvedFlags struct {
	Env     string
	Config  string
	Verbose bool
	DryRun  bool
}

// ResolveFlags resolves global flags with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Built-in defaults (lowest priority)
//
// cfg is accepted for parity with callers that have already loaded a
// fleetctl.yml, but strategy commands have nothing environment-specific to
// validate it against; passing nil is expected and fine.
func ResolveFlags(cmd *cobra.Command, cfg *config.Config) (*ResolvedFlags, error) {
	flags := &ResolvedFlags{}

	envFlag, _ := cmd.Flags().GetString("env")
	envEnv := os.Getenv("FLEETCTL_ENV")
	flags.Env = resolveString(envFlag, envEnv, "")

	configFlag, _ := cmd.Flags().GetString("config")
	configEnv := os.Getenv("FLEETCTL_CONFIG")
	flags.Config = resolveString(configFlag, configEnv, config.DefaultConfigPath())

	verboseFlag, _ := cmd.Flags().GetBool("verbose")
	verboseEnv := parseBoolEnv(os.Getenv("FLEETCTL_VERBOSE"))
	flags.Verbose = resolveBool(verboseFlag, verboseEnv, false)

	dryRunFlag, _ := cmd.Flags().GetBool("dry-run")
	dryRunEnv := parseBoolEnv(os.Getenv("FLEETCTL_DRY_RUN"))
	flags.DryRun = resolveBool(dryRunFlag, dryRunEnv, false)

	return flags, nil
}

// resolveString resolves a string value with precedence: flag > env > default.
func resolveString(flag, env, defaultValue string) string {
	if flag != "" {
		return flag
	}
	if env != "" {
		return env
	}
	return defaultValue
}

// resolveBool resolves a boolean value with precedence: flag > env > default.
func resolveBool(flag, env, defaultValue bool) bool {
	if flag {
		return true
	}
	if env {
		return true
	}
	return defaultValue
}

// parseBoolEnv parses a boolean from an environment variable.
// Returns false if the env var is not set or cannot be parsed.
func parseBoolEnv(value string) bool {
	if value == "" {
		return false
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return parsed
}
