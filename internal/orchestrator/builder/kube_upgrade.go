// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package builder

import (
	"fmt"

	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/stage"
	"fleetctl/internal/orchestrator/step"
)

// KindKubeUpgrade identifies the Kubernetes control-plane/kubelet upgrade
// strategy kind.
const KindKubeUpgrade = "kube-upgrade"

// kubeUpgradeAlarmIgnoreCode is the alarm code kube-upgrade-start always
// ignores, matching spec.md section 4.2's driver-call shape.
const kubeUpgradeAlarmIgnoreCode = "900.401"

// BuildKubeUpgradeStrategy plans a Kubernetes upgrade: prelude queries,
// kube-upgrade-start/download-images/networking, one control-plane upgrade
// per controller (always serial -- control-plane upgrades are never
// parallelized regardless of apply-type, per
// KubeHostUpgradeControlPlaneStep's own contract), then a kubelet upgrade
// wave per personality honoring each personality's apply-type, and finally
// kube-upgrade-complete/cleanup.
func BuildKubeUpgradeStrategy(tables *inventory.Tables, k knobs.Knobs, toVersion string, force bool) (*stage.Strategy, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if toVersion == "" {
		return nil, errRequiredToVersion(KindKubeUpgrade)
	}

	alarmIgnore := append(append([]string(nil), k.IgnoreAlarms...), kubeUpgradeAlarmIgnoreCode)

	stages := []*stage.Stage{
		prelude("prelude", k, step.NewQueryKubeUpgradeStep(), step.NewQueryKubeVersionsStep()),
		stage.NewStage("kube-upgrade-start", []step.Step{step.NewKubeUpgradeStartStep(toVersion, force, alarmIgnore)}),
		stage.NewStage("kube-upgrade-download-images", []step.Step{step.NewKubeUpgradeDownloadImagesStep()}),
		stage.NewStage("kube-upgrade-networking", []step.Step{step.NewKubeUpgradeNetworkingStep()}),
	}

	for i, host := range personalityHosts(tables, inventory.PersonalityController) {
		stages = append(stages,
			stage.NewStage(fmt.Sprintf("kube-control-plane-alarm-gate-%d", i), []step.Step{alarmGate(k)}),
			stage.NewStage(fmt.Sprintf("kube-control-plane-%d", i), []step.Step{
				step.NewKubeHostUpgradeControlPlaneStep(host, force, step.KubeControlPlaneStateUpgraded, step.KubeControlPlaneStateFailed),
			}),
		)
	}

	stages = append(stages, kubeletWaves(tables, k, toVersion, force)...)
	stages = append(stages,
		stage.NewStage("kube-upgrade-complete", []step.Step{step.NewKubeUpgradeCompleteStep()}),
		stage.NewStage("kube-upgrade-cleanup", []step.Step{step.NewKubeUpgradeCleanupStep()}),
	)

	return stage.NewStrategy(KindKubeUpgrade, k, toVersion, stages), nil
}

// kubeletWaves lays out a kube-host-upgrade-kubelet wave per personality,
// partitioned by that personality's own apply-type. Kubelet upgrades do not
// evict instances or lock hosts -- unlike the host-action waves -- so they
// skip the disable-services/migrate/lock sequence entirely.
func kubeletWaves(tables *inventory.Tables, k knobs.Knobs, toVersion string, force bool) []*stage.Stage {
	personalities := []struct {
		p      inventory.Personality
		pk     knobs.PersonalityKnobs
		prefix string
	}{
		{inventory.PersonalityController, k.Controller, "kube-kubelet-controller"},
		{inventory.PersonalityStorage, k.Storage, "kube-kubelet-storage"},
		{inventory.PersonalityWorker, k.Worker, "kube-kubelet-worker"},
	}

	var stages []*stage.Stage
	for _, pers := range personalities {
		groups := partition(personalityHosts(tables, pers.p), pers.pk)
		for i, group := range groups {
			stages = append(stages,
				stage.NewStage(fmt.Sprintf("%s-alarm-gate-%d", pers.prefix, i), []step.Step{alarmGate(k)}),
				stage.NewStage(fmt.Sprintf("%s-%d", pers.prefix, i), []step.Step{step.NewKubeHostUpgradeKubeletStep(group, toVersion, force)}),
			)
		}
	}
	return stages
}
