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
	"fleetctl/pkg/config"
)

// Feature: CLI_KUBE_UPGRADE_STRATEGY
// Spec: spec.md section 6; SPEC_FULL.md's kube-rootca-update supplement

// NewKubeUpgradeStrategyCommand returns the `fleetctl kube-upgrade-strategy`
// command group: create|delete|apply|abort|show over a kube-upgrade
// strategy. Passing --rootca on any sub-command switches the target to the
// root-CA rotation strategy instead, since both share the control-plane
// upgrade domain and the audit-polled completion contract.
func NewKubeUpgradeStrategyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kube-upgrade-strategy",
		Short: "Manage the fleet Kubernetes upgrade strategy",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Plan a new Kubernetes upgrade (or root-CA rotation) strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			rootCA, _ := cmd.Flags().GetBool("rootca")
			if rootCA {
				return runStrategyCreate(cmd, builder.KindKubeRootCAUpdate, func(tables *inventory.Tables, k knobs.Knobs) (*stage.Strategy, error) {
					return builder.BuildKubeRootCAUpdateStrategy(tables, k)
				})
			}
			toVersion, _ := cmd.Flags().GetString("to-version")
			force, _ := cmd.Flags().GetBool("force")
			if fromFile, _ := cmd.Flags().GetString("from-file"); fromFile != "" {
				req, err := config.LoadStrategyRequest(fromFile)
				if err != nil {
					return err
				}
				if req.ToVersion != "" {
					toVersion = req.ToVersion
				}
				if req.Force {
					force = true
				}
			}
			if toVersion == "" {
				return fmt.Errorf("--to-version is required")
			}
			return runStrategyCreate(cmd, builder.KindKubeUpgrade, func(tables *inventory.Tables, k knobs.Knobs) (*stage.Strategy, error) {
				return builder.BuildKubeUpgradeStrategy(tables, k, toVersion, force)
			})
		},
	}
	addKnobFlags(create)
	create.Flags().String("to-version", "", "target Kubernetes version")
	create.Flags().Bool("force", false, "force the upgrade/rotation past non-fatal preconditions")
	create.Flags().Bool("rootca", false, "plan a root-CA rotation instead of a version upgrade")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the Kubernetes strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyDelete(cmd, kubeKind(cmd))
		},
	}
	del.Flags().Bool("force", false, "delete even if applying")
	del.Flags().Bool("rootca", false, "target the root-CA rotation strategy instead")

	apply := &cobra.Command{
		Use:   "apply",
		Short: "Apply the Kubernetes strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyApply(cmd, kubeKind(cmd))
		},
	}
	addApplyActionFlags(apply)
	apply.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")
	apply.Flags().Bool("rootca", false, "target the root-CA rotation strategy instead")

	abort := &cobra.Command{
		Use:   "abort",
		Short: "Abort the Kubernetes strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyAbort(cmd, kubeKind(cmd))
		},
	}
	addApplyActionFlags(abort)
	abort.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")
	abort.Flags().Bool("rootca", false, "target the root-CA rotation strategy instead")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the Kubernetes strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategyShow(cmd, kubeKind(cmd))
		},
	}
	show.Flags().Bool("details", false, "show per-stage detail")
	show.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")
	show.Flags().Bool("rootca", false, "target the root-CA rotation strategy instead")

	cmd.AddCommand(create, del, apply, abort, show)
	return cmd
}

func kubeKind(cmd *cobra.Command) string {
	rootCA, _ := cmd.Flags().GetBool("rootca")
	if rootCA {
		return builder.KindKubeRootCAUpdate
	}
	return builder.KindKubeUpgrade
}
