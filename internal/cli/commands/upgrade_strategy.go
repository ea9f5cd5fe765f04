// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"fleetctl/internal/orchestrator/builder"
	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/stage"
)

// Feature: CLI_UPGRADE_STRATEGY
// Spec: spec.md section 6

// NewUpgradeStrategyCommand returns the `fleetctl upgrade-strategy` command
// group: create|delete|apply|abort|show over a sw-upgrade strategy.
func NewUpgradeStrategyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade-strategy",
		Short: "Manage the fleet software-upgrade strategy",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Plan a new software-upgrade strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			toVersion, _ := cmd.Flags().GetString("to-version")
			if toVersion == "" {
				return fmt.Errorf("--to-version is required")
			}
			return runStrategyCreate(cmd, builder.KindSwUpgrade, func(tables *inventory.Tables, k knobs.Knobs) (*stage.Strategy, error) {
				return builder.BuildSwUpgradeStrategy(tables, k, toVersion)
			})
		},
	}
	addKnobFlags(create)
	create.Flags().String("to-version", "", "target software version")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the software-upgrade strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyDelete(cmd, builder.KindSwUpgrade)
		},
	}
	del.Flags().Bool("force", false, "delete even if applying")

	apply := &cobra.Command{
		Use:   "apply",
		Short: "Apply the software-upgrade strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyApply(cmd, builder.KindSwUpgrade)
		},
	}
	addApplyActionFlags(apply)
	apply.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")

	abort := &cobra.Command{
		Use:   "abort",
		Short: "Abort the software-upgrade strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyAbort(cmd, builder.KindSwUpgrade)
		},
	}
	addApplyActionFlags(abort)
	abort.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the software-upgrade strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyShow(cmd, builder.KindSwUpgrade)
		},
	}
	show.Flags().Bool("details", false, "show per-stage detail")
	show.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")

	cmd.AddCommand(create, del, apply, abort, show)
	return cmd
}
