// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"github.com/spf13/cobra"

	"fleetctl/internal/orchestrator/builder"
	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/stage"
)

// Feature: CLI_PATCH_STRATEGY
// Spec: spec.md section 6

// NewPatchStrategyCommand returns the `fleetctl patch-strategy` command
// group: create|delete|apply|abort|show over a sw-patch strategy.
func NewPatchStrategyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch-strategy",
		Short: "Manage the fleet software-patch strategy",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Plan a new patch strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			patchNames, _ := cmd.Flags().GetStringSlice("patch")
			return runStrategyCreate(cmd, builder.KindSwPatch, func(tables *inventory.Tables, k knobs.Knobs) (*stage.Strategy, error) {
				return builder.BuildSwPatchStrategy(tables, k, patchNames)
			})
		},
	}
	addKnobFlags(create)
	create.Flags().StringSlice("patch", nil, "patch names to apply")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the patch strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyDelete(cmd, builder.KindSwPatch)
		},
	}
	del.Flags().Bool("force", false, "delete even if applying")

	apply := &cobra.Command{
		Use:   "apply",
		Short: "Apply the patch strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyApply(cmd, builder.KindSwPatch)
		},
	}
	addApplyActionFlags(apply)
	apply.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")

	abort := &cobra.Command{
		Use:   "abort",
		Short: "Abort the patch strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyAbort(cmd, builder.KindSwPatch)
		},
	}
	addApplyActionFlags(abort)
	abort.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the patch strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyShow(cmd, builder.KindSwPatch)
		},
	}
	show.Flags().Bool("details", false, "show per-stage detail")
	show.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")

	cmd.AddCommand(create, del, apply, abort, show)
	return cmd
}
