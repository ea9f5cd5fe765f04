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

// KindKubeRootCAUpdate identifies the Kubernetes root-CA rotation strategy
// kind (supplemented feature; see SPEC_FULL.md and DESIGN.md).
const KindKubeRootCAUpdate = "kube-rootca-update"

// BuildKubeRootCAUpdateStrategy plans a root-CA rotation: a single alarm
// gate followed by one cluster-wide kube-rootca-update-start step. No
// per-host waves are needed -- certificate rotation is driven entirely by
// the control plane and observed via the same audit-polled completion
// contract as kube-upgrade-start.
func BuildKubeRootCAUpdateStrategy(tables *inventory.Tables, k knobs.Knobs) (*stage.Strategy, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	_ = tables // no host-targeted work; kept for a uniform builder signature

	stages := []*stage.Stage{
		prelude("prelude", k),
		stage.NewStage("kube-rootca-update-start", []step.Step{step.NewKubeRootCAUpdateStartStep()}),
	}

	return stage.NewStrategy(KindKubeRootCAUpdate, k, "", stages), nil
}
