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

// KindSwPatch identifies the software-patch strategy kind.
const KindSwPatch = "sw-patch"

// BuildSwPatchStrategy plans a software-patch strategy: a prelude that
// inventories available patches and per-host patch state, an apply-patches
// step releasing the named patch set (only when patchNames is non-empty --
// an empty set means "install whatever is already released and queued"),
// the controller/storage/worker sweep of light per-host-group waves whose
// work step is sw-patch-hosts, and a trailing query-alarms gate (spec.md
// section 4.3; literal shape per section 8 scenario 1). sw-patch applies
// in-service, so unlike sw-upgrade/fw-update it never disables host
// services, migrates instances, or locks hosts around the work step.
func BuildSwPatchStrategy(tables *inventory.Tables, k knobs.Knobs, patchNames []string) (*stage.Strategy, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}

	allHosts := allHostNames(tables)

	stages := []*stage.Stage{
		prelude("prelude", k,
			step.NewQuerySwPatchesStep(),
			step.NewQuerySwPatchHostsStep(allHosts),
		),
	}
	if len(patchNames) > 0 {
		stages = append(stages, stage.NewStage("apply-patches", []step.Step{step.NewApplyPatchesStep(patchNames)}))
	}
	stages = append(stages, lightFleetWaves(tables, k, func(hosts []string) step.Step {
		return step.NewSwPatchHostsStep(hosts)
	})...)
	stages = append(stages, stage.NewStage("final-alarm-check", []step.Step{alarmGate(k)}))

	return stage.NewStrategy(KindSwPatch, k, "", stages), nil
}

func allHostNames(tables *inventory.Tables) []string {
	hosts := tables.AllHosts()
	names := make([]string, len(hosts))
	for i, h := range hosts {
		names[i] = h.Name
	}
	return names
}
