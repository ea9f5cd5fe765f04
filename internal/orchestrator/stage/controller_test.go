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

	"fleetctl/internal/orchestrator/builder"
	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/platform"
	"fleetctl/internal/orchestrator/platform/platformtest"
	"fleetctl/internal/orchestrator/stage"
	"fleetctl/internal/orchestrator/step"
)

func oneControllerHost(name string) *inventory.Tables {
	tables := inventory.NewTables()
	tables.PutHost(inventory.Host{
		Name: name, UUID: name, Personality: inventory.PersonalityController,
		Admin: inventory.AdminUnlocked, Oper: inventory.OperEnabled, Avail: inventory.AvailOnline,
	})
	return tables
}

func stageNames(s *stage.Strategy) []string {
	names := make([]string, len(s.Stages))
	for i, stg := range s.Stages {
		names[i] = stg.Name
	}
	return names
}

// TestController_SerialPatch_NoAlarms_Succeeds drives a one-host,
// controller-only sw-patch strategy end to end through the literal stage
// sequence spec.md section 8's serial-patch scenario documents:
// query-alarms, query-sw-patches, query-sw-patch-hosts, apply-patches,
// sw-patch-hosts, system-stabilize, wait-alarms-clear, and a trailing
// query-alarms -- with no alarms present throughout and, since sw-patch
// applies in-service, no disable-services/lock/unlock anywhere in the run.
func TestController_SerialPatch_NoAlarms_Succeeds(t *testing.T) {
	tables := oneControllerHost("c-0")
	drv := platformtest.New()
	clock := &platformtest.Clock{}

	strategy, err := builder.BuildSwPatchStrategy(tables, knobs.Default(), []string{"patch-1"})
	require.NoError(t, err)
	require.Equal(t, []string{
		"prelude", "apply-patches", "controller-patch-0", "final-alarm-check",
	}, stageNames(strategy))

	c := stage.NewController(drv, tables, clock, strategy)
	require.NoError(t, c.Apply())
	require.Equal(t, stage.StatusApplying, strategy.Status)

	// query-alarms, query-sw-patches, query-sw-patch-hosts and apply-patches
	// all complete synchronously against the stub driver, landing on
	// sw-patch-hosts, which waits for the host to report patch-current.
	h, _ := tables.GetHost("c-0")
	h.PatchCurrent = true
	tables.PutHost(h)
	c.HandleEvent(step.EventHostStateChanged, nil)

	// system-stabilize succeeds on timeout (its default policy), not on an
	// event, so advance the clock past its 60s deadline and tick.
	clock.Advance(61 * time.Second)
	c.Tick(clock.MonotonicMillis())

	// wait-alarms-clear: first audit before first_query_delay_secs is a
	// no-op, then one past it queries and finds nothing.
	c.HandleEvent(step.EventHostAudit, nil)
	require.Equal(t, stage.StatusApplying, strategy.Status)
	clock.Advance(61 * time.Second)
	c.HandleEvent(step.EventHostAudit, nil)

	// trailing query-alarms gate completes synchronously.
	require.Equal(t, stage.StatusApplied, strategy.Status)
	require.Equal(t, 0, drv.CallCount("LockHosts"), "sw-patch must never lock hosts")
	require.Equal(t, 0, drv.CallCount("UnlockHosts"), "sw-patch must never unlock hosts")
	require.Equal(t, 0, drv.CallCount("DisableHostServices"), "sw-patch applies in-service")
}

// TestController_UnlockRetry_SucceedsOnSecondAttempt reproduces the
// documented retry contract: a transient unlock failure schedules exactly
// one retry after retry_delay, not an immediate re-issue (spec.md section
// 8, unlock-with-one-transient-failure scenario).
func TestController_UnlockRetry_SucceedsOnSecondAttempt(t *testing.T) {
	tables := inventory.NewTables()
	tables.PutHost(inventory.Host{Name: "c-0", Admin: inventory.AdminLocked, Oper: inventory.OperDisabled})
	drv := platformtest.New()
	clock := &platformtest.Clock{}

	strategy := stage.NewStrategy("test-unlock", knobs.Default(), "",
		[]*stage.Stage{stage.NewStage("unlock", []step.Step{step.NewUnlockHostsStep([]string{"c-0"}, 5, 1)})})
	c := stage.NewController(drv, tables, clock, strategy)
	require.NoError(t, c.Apply())
	require.Equal(t, 1, drv.CallCount("UnlockHosts"))

	c.HandleEvent(step.EventHostUnlockFailed, step.HostEventData{HostName: "c-0"})
	require.Equal(t, 1, drv.CallCount("UnlockHosts"), "a retryable failure must not re-issue immediately")

	clock.Advance(2 * time.Second)
	c.HandleEvent(step.EventHostAudit, nil)
	require.Equal(t, 2, drv.CallCount("UnlockHosts"), "the retry re-issues exactly once after retry_delay elapses")

	h, _ := tables.GetHost("c-0")
	h.Admin, h.Oper = inventory.AdminUnlocked, inventory.OperEnabled
	tables.PutHost(h)
	c.HandleEvent(step.EventHostStateChanged, nil)

	require.Equal(t, stage.StatusApplied, strategy.Status)
	require.Equal(t, 2, drv.CallCount("UnlockHosts"))
}

// TestController_MigrateBlockedByMovedInstance fails a migrate-instances
// step with the exact reason string spec.md documents when an instance
// moved off its captured host between planning and apply.
func TestController_MigrateBlockedByMovedInstance(t *testing.T) {
	tables := inventory.NewTables()
	tables.PutInstance(inventory.Instance{UUID: "inst-1", Name: "vm1", HostName: "c-0"})
	drv := platformtest.New()
	clock := &platformtest.Clock{}

	migrate := step.NewMigrateInstancesStep([]string{"inst-1"}, tables)
	// The instance moves after the step captured its source host but
	// before the strategy applies.
	tables.PutInstance(inventory.Instance{UUID: "inst-1", Name: "vm1", HostName: "c-1"})

	strategy := stage.NewStrategy("test-migrate", knobs.Default(), "",
		[]*stage.Stage{stage.NewStage("migrate", []step.Step{migrate})})
	c := stage.NewController(drv, tables, clock, strategy)
	require.NoError(t, c.Apply())

	require.Equal(t, stage.StatusFailed, strategy.Status, "nothing was applied yet, so there is nothing to compensate")
	require.Equal(t, "instance inst-1 has moved from c-0 to c-1", strategy.Reason)
}

// TestController_FailureWithNothingApplied_GoesDirectlyToFailed covers the
// StatusFailed reachability fix: a strategy whose very first step fails has
// no compensations queued and must not pass through an empty aborting
// stage.
func TestController_FailureWithNothingApplied_GoesDirectlyToFailed(t *testing.T) {
	tables := inventory.NewTables()
	drv := platformtest.New()
	drv.LockHostsOp = platform.StaticOperation{Failed: true, Why: "lock rejected"}
	clock := &platformtest.Clock{}

	strategy := stage.NewStrategy("test-fail-first", knobs.Default(), "",
		[]*stage.Stage{stage.NewStage("lock", []step.Step{step.NewLockHostsStep([]string{"c-0"}, false)})})
	c := stage.NewController(drv, tables, clock, strategy)
	require.NoError(t, c.Apply())

	require.Equal(t, stage.StatusFailed, strategy.Status)
	require.Equal(t, "lock rejected", strategy.Reason)
}

// TestController_AbortCompensatesOnlyAppliedSteps checks that when lock-hosts
// fails after disable-host-services has applied, only the applied step's
// abort chain (enable-host-services) runs, and the strategy ends aborted.
func TestController_AbortCompensatesOnlyAppliedSteps(t *testing.T) {
	tables := inventory.NewTables()
	tables.PutHost(inventory.Host{Name: "c-0", HostServices: map[string]inventory.HostServiceState{"vim": inventory.ServiceStateDisabled}})
	drv := platformtest.New()
	clock := &platformtest.Clock{}

	disable := step.NewDisableHostServicesStep([]string{"c-0"}, "vim")
	lock := step.NewLockHostsStep([]string{"c-0"}, false)
	strategy := stage.NewStrategy("test-abort-order", knobs.Default(), "",
		[]*stage.Stage{stage.NewStage("prepare", []step.Step{disable, lock})})
	c := stage.NewController(drv, tables, clock, strategy)
	require.NoError(t, c.Apply())

	// disable-host-services completed synchronously (already disabled
	// above); lock-hosts is now waiting on the driver.
	require.Equal(t, 1, drv.CallCount("LockHosts"))

	c.HandleEvent(step.EventHostLockFailed, step.HostEventData{HostName: "c-0"})
	require.Equal(t, stage.StatusAborting, strategy.Status)

	// Only disable-host-services had applied (lock-hosts itself failed), so
	// its abort chain -- enable-host-services -- is the only compensation.
	require.Equal(t, 1, drv.CallCount("EnableHostServices"))
	hosts, ok := drv.LastCall("EnableHostServices")
	require.True(t, ok)
	require.Equal(t, []string{"c-0"}, hosts)

	h, _ := tables.GetHost("c-0")
	h.HostServices["vim"] = inventory.ServiceStateEnabled
	tables.PutHost(h)
	c.HandleEvent(step.EventHostStateChanged, nil)

	require.Equal(t, stage.StatusAborted, strategy.Status)
}
