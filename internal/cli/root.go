// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package cli wires together the fleetctl root Cobra command and global CLI options.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fleetctl/internal/cli/commands"
)

// NewRootCommand constructs the fleetctl root Cobra command.
// This command wires the strategy sub-commands that drive the fleet update
// orchestrator (spec.md section 6).
//
// Feature: ARCH_OVERVIEW
// Spec: spec.md sections 1, 6
func NewRootCommand() *cobra.Command {
	version := os.Getenv("FLEETCTL_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "fleetctl",
		Short:         "fleetctl – fleet update orchestration CLI",
		Long:          "fleetctl drives software-patch, software-upgrade, firmware-update, and Kubernetes upgrade/root-CA-rotation strategies across a fleet of hosts.",
		SilenceUsage:  true, // don't dump usage on user errors
		SilenceErrors: true, // centralize error printing in main()
	}

	// Global flags - registered in lexicographic order for deterministic help output
	cmd.PersistentFlags().StringP("config", "c", "", "path to fleetctl config file")
	cmd.PersistentFlags().Bool("dry-run", false, "show actions without executing")
	cmd.PersistentFlags().StringP("env", "e", "", "target environment")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	// Version command – simple and explicit.
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of fleetctl",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "fleetctl version %s\n", version)
		},
	})

	// Strategy sub-commands - keep registrations in lexicographic order by
	// .Use to ensure deterministic help output.
	cmd.AddCommand(commands.NewFwUpdateStrategyCommand())
	cmd.AddCommand(commands.NewKubeUpgradeStrategyCommand())
	cmd.AddCommand(commands.NewPatchStrategyCommand())
	cmd.AddCommand(commands.NewUpgradeStrategyCommand())

	return cmd
}
