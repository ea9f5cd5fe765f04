// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package builder

import (
	"strings"
	"testing"

	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/stage"
	"fleetctl/internal/orchestrator/step"
)

func fleetTables() *inventory.Tables {
	tables := inventory.NewTables()
	tables.PutHost(inventory.Host{Name: "c-0", Personality: inventory.PersonalityController})
	tables.PutHost(inventory.Host{Name: "s-0", Personality: inventory.PersonalityStorage})
	tables.PutHost(inventory.Host{Name: "w-0", Personality: inventory.PersonalityWorker})
	tables.PutHost(inventory.Host{Name: "w-1", Personality: inventory.PersonalityWorker})
	return tables
}

func stageNames(s *stage.Strategy) []string {
	names := make([]string, len(s.Stages))
	for i, stg := range s.Stages {
		names[i] = stg.Name
	}
	return names
}

func requireStageName(t *testing.T, s *stage.Strategy, want string) {
	t.Helper()
	for _, name := range stageNames(s) {
		if name == want {
			return
		}
	}
	t.Fatalf("expected a %q stage, got stages: %s", want, strings.Join(stageNames(s), ","))
}

func TestBuildSwPatchStrategy_IncludesPreludeAndLightWavesForEveryPersonality(t *testing.T) {
	strategy, err := BuildSwPatchStrategy(fleetTables(), knobs.Default(), []string{"PATCH_0001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy.Kind != KindSwPatch {
		t.Fatalf("expected kind %q, got %q", KindSwPatch, strategy.Kind)
	}
	if strategy.Stages[0].Name != "prelude" {
		t.Fatalf("expected the first stage to be the prelude, got %q", strategy.Stages[0].Name)
	}
	if strategy.Stages[1].Name != "apply-patches" {
		t.Fatalf("expected the second stage to be apply-patches, got %q", strategy.Stages[1].Name)
	}
	requireStageName(t, strategy, "controller-patch-0")
	requireStageName(t, strategy, "storage-patch-0")
	requireStageName(t, strategy, "worker-patch-0")
	if last := strategy.Stages[len(strategy.Stages)-1]; last.Name != "final-alarm-check" {
		t.Fatalf("expected the last stage to be final-alarm-check, got %q", last.Name)
	}
	for _, name := range stageNames(strategy) {
		if strings.Contains(name, "alarm-gate") {
			t.Fatalf("sw-patch waves must not carry a per-wave alarm-gate stage, found %q", name)
		}
	}
}

// TestBuildSwPatchStrategy_OmitsApplyPatchesStageWhenNoPatchesNamed covers
// the "install whatever is already released" form of sw-patch, where no
// apply-patches stage is needed.
func TestBuildSwPatchStrategy_OmitsApplyPatchesStageWhenNoPatchesNamed(t *testing.T) {
	strategy, err := BuildSwPatchStrategy(fleetTables(), knobs.Default(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range stageNames(strategy) {
		if name == "apply-patches" {
			t.Fatalf("expected no apply-patches stage when no patch names are given, got stages: %v", stageNames(strategy))
		}
	}
}

// TestBuildSwPatchStrategy_NeverLocksOrDisablesHosts pins down the
// blocking fix for spec.md section 8 scenario 1: sw-patch applies
// in-service, so its wave steps must never include
// disable-host-services, migrate/stop-instances, or lock/unlock-hosts.
func TestBuildSwPatchStrategy_NeverLocksOrDisablesHosts(t *testing.T) {
	strategy, err := BuildSwPatchStrategy(fleetTables(), knobs.Default(), []string{"PATCH_0001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, stg := range strategy.Stages {
		for _, stp := range stg.Steps {
			switch stp.Kind() {
			case step.KindDisableHostServices, step.KindEnableHostServices,
				step.KindLockHosts, step.KindUnlockHosts,
				step.KindMigrateInstances, step.KindStopInstances, step.KindStartInstances:
				t.Fatalf("sw-patch must never plan a %q step", stp.Kind())
			}
		}
	}
}

func TestBuildFwUpdateStrategy_KeepsLiteral3600SecondTimeoutPerWave(t *testing.T) {
	strategy, err := BuildFwUpdateStrategy(fleetTables(), knobs.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, stg := range strategy.Stages {
		for _, stp := range stg.Steps {
			if stp.Kind() == step.KindFwUpdateHosts {
				if stp.TimeoutSecs() != 3600 {
					t.Fatalf("expected fw-update-hosts to keep the literal 3600s timeout regardless of wave size, got %d", stp.TimeoutSecs())
				}
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected at least one fw-update-hosts step across the worker waves")
	}
}

func TestBuildFwUpdateStrategy_AppendsFirmwareUpdateAlarmLabel(t *testing.T) {
	strategy, err := BuildFwUpdateStrategy(fleetTables(), knobs.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(strategy.Knobs.IgnoreAlarms) == 0 {
		t.Fatalf("expected the firmware-update alarm label to be appended to ignore-alarms")
	}
}

func TestBuildSwUpgradeStrategy_RequiresToVersion(t *testing.T) {
	if _, err := BuildSwUpgradeStrategy(fleetTables(), knobs.Default(), ""); err == nil {
		t.Fatalf("expected an error when to-version is empty")
	}
}

func TestBuildSwUpgradeStrategy_IncludesStartAndCompleteStages(t *testing.T) {
	strategy, err := BuildSwUpgradeStrategy(fleetTables(), knobs.Default(), "22.12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireStageName(t, strategy, "start-upgrade")
	requireStageName(t, strategy, "activate-upgrade")
	requireStageName(t, strategy, "complete-upgrade")
}

func TestBuildKubeUpgradeStrategy_RequiresToVersion(t *testing.T) {
	if _, err := BuildKubeUpgradeStrategy(fleetTables(), knobs.Default(), "", false); err == nil {
		t.Fatalf("expected an error when to-version is empty")
	}
}

func TestBuildKubeUpgradeStrategy_OneControlPlaneStagePerController(t *testing.T) {
	tables := fleetTables()
	tables.PutHost(inventory.Host{Name: "c-1", Personality: inventory.PersonalityController})
	strategy, err := BuildKubeUpgradeStrategy(tables, knobs.Default(), "1.29.0", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requireStageName(t, strategy, "kube-control-plane-0")
	requireStageName(t, strategy, "kube-control-plane-1")
}

func TestBuildKubeRootCAUpdateStrategy_HasNoPerHostWaves(t *testing.T) {
	strategy, err := BuildKubeRootCAUpdateStrategy(fleetTables(), knobs.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(strategy.Stages) != 2 {
		t.Fatalf("expected exactly a prelude and a kube-rootca-update-start stage, got %v", stageNames(strategy))
	}
	if strategy.Stages[1].Name != "kube-rootca-update-start" {
		t.Fatalf("expected the second stage to be kube-rootca-update-start, got %q", strategy.Stages[1].Name)
	}
}
