// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package builder

import (
	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/stage"
	"fleetctl/internal/orchestrator/step"
)

// KindSwUpgrade identifies the software-upgrade strategy kind.
const KindSwUpgrade = "sw-upgrade"

// BuildSwUpgradeStrategy plans a software-upgrade strategy: a prelude that
// queries the current upgrade object, a start-upgrade step, the
// controller/storage/worker wave sweep whose work step is upgrade-hosts(to
// toVersion), and finally activate-upgrade and complete-upgrade.
//
// Open Question (spec.md section 9): whether start-upgrade belongs to the
// strategy's own plan or is assumed already issued out-of-band. This
// builder includes it -- see DESIGN.md for the reasoning.
func BuildSwUpgradeStrategy(tables *inventory.Tables, k knobs.Knobs, toVersion string) (*stage.Strategy, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if toVersion == "" {
		return nil, errRequiredToVersion(KindSwUpgrade)
	}

	stages := []*stage.Stage{
		prelude("prelude", k, step.NewQueryUpgradeStep()),
		stage.NewStage("start-upgrade", []step.Step{step.NewStartUpgradeStep()}),
	}
	stages = append(stages, fleetWaves(tables, k, func(hosts []string) step.Step {
		return step.NewUpgradeHostsStep(hosts, toVersion)
	})...)
	stages = append(stages,
		stage.NewStage("activate-upgrade", []step.Step{step.NewActivateUpgradeStep()}),
		stage.NewStage("complete-upgrade", []step.Step{step.NewCompleteUpgradeStep()}),
	)

	return stage.NewStrategy(KindSwUpgrade, k, toVersion, stages), nil
}
