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

// KindFwUpdate identifies the firmware-update strategy kind.
const KindFwUpdate = "fw-update"

// BuildFwUpdateStrategy plans a firmware-update strategy: a prelude that
// queries each host's device-image-update state (appending pending ones to
// the strategy's fw_update_hosts workspace key), then the controller/
// storage/worker wave sweep whose work step is fw-update-hosts.
//
// fw-update-hosts keeps its flat per-step timeout regardless of wave size
// (spec.md section 9, Open Question: the original left the deadline
// ambiguous for multi-host waves; this build preserves the literal
// single-host value rather than inventing a scaling rule). See DESIGN.md.
func BuildFwUpdateStrategy(tables *inventory.Tables, k knobs.Knobs) (*stage.Strategy, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if k.AlarmRestriction == "" {
		k.AlarmRestriction = knobs.AlarmRestrictionStrict
	}
	k.IgnoreAlarms = append(append([]string(nil), k.IgnoreAlarms...), step.FirmwareUpdateAlarmLabel)

	allHosts := allHostNames(tables)
	queries := make([]step.Step, len(allHosts))
	for i, h := range allHosts {
		queries[i] = step.NewQueryFwUpdateHostStep([]string{h})
	}

	stages := []*stage.Stage{prelude("prelude", k, queries...)}
	stages = append(stages, fleetWaves(tables, k, func(hosts []string) step.Step {
		return step.NewFwUpdateHostsStep(hosts)
	})...)

	return stage.NewStrategy(KindFwUpdate, k, "", stages), nil
}
