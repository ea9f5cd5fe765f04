// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package stage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/platform/platformtest"
	"fleetctl/internal/orchestrator/stage"
	"fleetctl/internal/orchestrator/step"
)

// TestController_KubeletUpgrade_SucceedsOnlyAfterBothHostsMatch reproduces
// spec.md section 8's kube-kubelet-upgrade scenario: two workers, one
// reaching the target kubelet version well before the other, and the step
// must not report SUCCESS until an audit observes both at once.
func TestController_KubeletUpgrade_SucceedsOnlyAfterBothHostsMatch(t *testing.T) {
	tables := inventory.NewTables()
	tables.PutHost(inventory.Host{Name: "w-0", KubeletVersion: "1.28.0"})
	tables.PutHost(inventory.Host{Name: "w-1", KubeletVersion: "1.28.0"})
	drv := platformtest.New()
	clock := &platformtest.Clock{}

	kubeletStep := step.NewKubeHostUpgradeKubeletStep([]string{"w-0", "w-1"}, "1.29.0", true)
	strategy := stage.NewStrategy("test-kubelet", knobs.Default(), "",
		[]*stage.Stage{stage.NewStage("kubelet", []step.Step{kubeletStep})})
	c := stage.NewController(drv, tables, clock, strategy)
	require.NoError(t, c.Apply())
	require.Equal(t, stage.StatusApplying, strategy.Status)

	// w-0 reaches the target version at 70s; an audit at that point must
	// not complete the step since w-1 hasn't caught up.
	clock.Advance(70 * time.Second)
	h, _ := tables.GetHost("w-0")
	h.KubeletVersion = "1.29.0"
	tables.PutHost(h)
	c.HandleEvent(step.EventHostAudit, nil)
	require.Equal(t, stage.StatusApplying, strategy.Status, "must not succeed while w-1 is still on the old version")

	// w-1 catches up at 200s; the next audit observes both matching and
	// completes the step.
	clock.Advance(130 * time.Second)
	h, _ = tables.GetHost("w-1")
	h.KubeletVersion = "1.29.0"
	tables.PutHost(h)
	c.HandleEvent(step.EventHostAudit, nil)
	require.Equal(t, stage.StatusApplied, strategy.Status)
}

// TestController_FirmwareUpdateAbort_TargetsOnlyTheFailedHost reproduces
// spec.md section 8's firmware-update-with-abort scenario: of two hosts,
// one completes cleanly and one fails, and only the failed host should be
// routed through fw-update-abort-hosts.
func TestController_FirmwareUpdateAbort_TargetsOnlyTheFailedHost(t *testing.T) {
	tables := inventory.NewTables()
	tables.PutHost(inventory.Host{Name: "w-0", DeviceImageUpdate: inventory.DeviceImageUpdatePending})
	tables.PutHost(inventory.Host{Name: "w-1", DeviceImageUpdate: inventory.DeviceImageUpdatePending})
	drv := platformtest.New()
	clock := &platformtest.Clock{}

	strategy := stage.NewStrategy("test-fw-abort", knobs.Default(), "",
		[]*stage.Stage{stage.NewStage("fw-update", []step.Step{step.NewFwUpdateHostsStep([]string{"w-0", "w-1"})})})
	c := stage.NewController(drv, tables, clock, strategy)
	require.NoError(t, c.Apply())
	require.Equal(t, 1, drv.CallCount("FwUpdateHosts"))

	h0, _ := tables.GetHost("w-0")
	h0.DeviceImageUpdate = inventory.DeviceImageUpdateCompleted
	tables.PutHost(h0)
	h1, _ := tables.GetHost("w-1")
	h1.DeviceImageUpdate = inventory.DeviceImageUpdateFailed
	tables.PutHost(h1)
	c.HandleEvent(step.EventHostAudit, nil)

	require.Equal(t, stage.StatusAborting, strategy.Status)
	hosts, ok := drv.LastCall("FwUpdateAbortHosts")
	require.True(t, ok)
	require.Equal(t, []string{"w-1"}, hosts)

	h1, _ = tables.GetHost("w-1")
	h1.DeviceImageUpdate = inventory.DeviceImageUpdateInProgressAborted
	tables.PutHost(h1)
	c.HandleEvent(step.EventHostAudit, nil)
	require.Equal(t, stage.StatusAborted, strategy.Status)
}

// TestController_AlarmGateRelaxed_FiltersNonManagementAffecting reproduces
// spec.md section 8's alarm-gate scenario: an active management-affecting
// alarm that's on the ignore list and a non-management-affecting alarm that
// isn't must both be filtered out under the relaxed restriction, so the
// gate succeeds.
func TestController_AlarmGateRelaxed_FiltersNonManagementAffecting(t *testing.T) {
	tables := inventory.NewTables()
	drv := platformtest.New()
	drv.Alarms = []step.Alarm{
		{ID: "100.101", MgmtAffecting: "False"},
		{ID: "200.005", MgmtAffecting: "True"},
	}
	clock := &platformtest.Clock{}

	gate := step.NewQueryAlarmsStep([]string{"200.005"}, step.AlarmRestrictionRelaxed, true)
	strategy := stage.NewStrategy("test-alarm-gate", knobs.Default(), "",
		[]*stage.Stage{stage.NewStage("alarms", []step.Step{gate})})
	c := stage.NewController(drv, tables, clock, strategy)
	require.NoError(t, c.Apply())

	require.Equal(t, stage.StatusApplied, strategy.Status)
}

// TestController_AlarmGateStrict_FailsOnResidualAlarm is the strict-mode
// counterpart: without the relaxed restriction, a non-management-affecting
// alarm that isn't on the ignore list still gates progress.
func TestController_AlarmGateStrict_FailsOnResidualAlarm(t *testing.T) {
	tables := inventory.NewTables()
	drv := platformtest.New()
	drv.Alarms = []step.Alarm{{ID: "100.101", MgmtAffecting: "False"}}
	clock := &platformtest.Clock{}

	gate := step.NewQueryAlarmsStep(nil, step.AlarmRestrictionStrict, true)
	strategy := stage.NewStrategy("test-alarm-gate-strict", knobs.Default(), "",
		[]*stage.Stage{stage.NewStage("alarms", []step.Step{gate})})
	c := stage.NewController(drv, tables, clock, strategy)
	require.NoError(t, c.Apply())

	require.Equal(t, stage.StatusFailed, strategy.Status)
	require.Contains(t, strategy.Reason, "100.101")
}
