// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package step implements the closed set of strategy step kinds (spec.md
// section 4.2). Each step kind is a small event-driven state machine with
// Apply/HandleEvent/Timeout/Abort/Serialize/Deserialize contracts. Steps
// never talk to the platform driver's callbacks directly except through
// the ExecContext passed to them -- there is no process-global driver.
package step

import (
	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/platform"
)

// Feature: ORCHESTRATOR_STEP_LIBRARY
// Spec: spec.md section 4.2

// Kind is the closed enum of step kinds. New kinds require a matching entry
// in the dispatch table (dispatch.go); unknown kinds deserialize to NoOp.
type Kind string

const (
	KindQueryHosts                  Kind = "query-hosts" // carried for enum completeness; no builder emits it (see SPEC_FULL.md)
	KindSystemStabilize             Kind = "system-stabilize"
	KindLockHosts                   Kind = "lock-hosts"
	KindUnlockHosts                 Kind = "unlock-hosts"
	KindRebootHosts                 Kind = "reboot-hosts"
	KindSwactHosts                  Kind = "swact-hosts"
	KindUpgradeHosts                Kind = "upgrade-hosts"
	KindStartUpgrade                Kind = "start-upgrade"
	KindActivateUpgrade             Kind = "activate-upgrade"
	KindCompleteUpgrade             Kind = "complete-upgrade"
	KindSwPatchHosts                Kind = "sw-patch-hosts"
	KindFwUpdateHosts               Kind = "fw-update-hosts"
	KindFwUpdateAbortHosts          Kind = "fw-update-abort-hosts"
	KindMigrateInstances            Kind = "migrate-instances"
	KindStopInstances               Kind = "stop-instances"
	KindStartInstances              Kind = "start-instances"
	KindQueryAlarms                 Kind = "query-alarms"
	KindWaitDataSync                Kind = "wait-data-sync"
	KindWaitAlarmsClear             Kind = "wait-alarms-clear"
	KindQuerySwPatches              Kind = "query-sw-patches"
	KindQuerySwPatchHosts           Kind = "query-sw-patch-hosts"
	KindQueryFwUpdateHost           Kind = "query-fw-update-host"
	KindQueryUpgrade                Kind = "query-upgrade"
	KindDisableHostServices         Kind = "disable-host-services"
	KindEnableHostServices          Kind = "enable-host-services"
	KindApplyPatches                Kind = "apply-patches"
	KindQueryKubeHostUpgrade        Kind = "query-kube-host-upgrade"
	KindQueryKubeUpgrade            Kind = "query-kube-upgrade"
	KindQueryKubeVersions           Kind = "query-kube-versions"
	KindKubeUpgradeStart            Kind = "kube-upgrade-start"
	KindKubeUpgradeCleanup          Kind = "kube-upgrade-cleanup"
	KindKubeUpgradeComplete         Kind = "kube-upgrade-complete"
	KindKubeUpgradeDownloadImages   Kind = "kube-upgrade-download-images"
	KindKubeUpgradeNetworking       Kind = "kube-upgrade-networking"
	KindKubeHostUpgradeControlPlane Kind = "kube-host-upgrade-control-plane"
	KindKubeHostUpgradeKubelet      Kind = "kube-host-upgrade-kubelet"
	KindKubeRootCAUpdateStart       Kind = "kube-rootca-update-start"
	KindNoOp                        Kind = "no-op"
)

// CallbackResult re-exports platform.CallbackResult so step implementations
// need not import platform directly for callback signatures.
type CallbackResult = platform.CallbackResult

// Result is the terminal (or WAIT) outcome of Apply/HandleEvent/Timeout.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
	ResultWait    Result = "wait"
)

// Event enumerates the asynchronous signals the controller routes to the
// current step's HandleEvent (spec.md section 4.1).
type Event string

const (
	EventHostStateChanged                  Event = "host-state-changed"
	EventHostAudit                         Event = "host-audit"
	EventHostLockFailed                    Event = "host-lock-failed"
	EventHostUnlockFailed                  Event = "host-unlock-failed"
	EventHostRebootFailed                  Event = "host-reboot-failed"
	EventHostSwactFailed                   Event = "host-swact-failed"
	EventHostUpgradeFailed                 Event = "host-upgrade-failed"
	EventHostFwUpdateFailed                Event = "host-fw-update-failed"
	EventHostFwUpdateAbortFailed           Event = "host-fw-update-abort-failed"
	EventInstanceStateChanged              Event = "instance-state-changed"
	EventInstanceAudit                     Event = "instance-audit"
	EventMigrateInstancesFailed            Event = "migrate-instances-failed"
	EventDisableHostServicesFailed         Event = "disable-host-services-failed"
	EventEnableHostServicesFailed          Event = "enable-host-services-failed"
	EventKubeHostUpgradeControlPlaneFailed Event = "kube-host-upgrade-control-plane-failed"
	EventKubeHostUpgradeKubeletFailed      Event = "kube-host-upgrade-kubelet-failed"
)

// HostEventData is the payload carried by host-targeted events.
type HostEventData struct {
	HostName string
}

// InstanceEventData is the payload carried by instance-targeted events.
type InstanceEventData struct {
	InstanceUUID string
}

// Clock abstracts monotonic time so steps never read the wall clock for
// timeouts or back-off. Controller.Tick supplies the real value; tests
// supply a fake one.
type Clock interface {
	// MonotonicMillis returns a monotonically increasing millisecond
	// counter. Only deltas between two calls are meaningful.
	MonotonicMillis() int64
}

// ExecContext is everything a step needs to apply itself and is injected by
// the controller, never read from process globals (spec.md section 9).
type ExecContext struct {
	Driver platform.Driver
	Tables *inventory.Tables
	Clock  Clock

	// StepComplete is called by a step running in WAIT to report its
	// terminal result asynchronously, exactly once.
	StepComplete func(Result, string)

	// Workspace is the strategy's rolling scratch area (nfvi_alarms,
	// nfvi_upgrade, ...), shared read/write across the steps of one
	// strategy. Sole writer at any instant is the step whose callback
	// populated a given key.
	Workspace map[string]any
}

// Step is the contract every step kind satisfies (spec.md section 4.2/2).
type Step interface {
	Kind() Kind
	Name() string
	TimeoutSecs() int64

	// Apply starts the step. It may complete synchronously (SUCCESS/
	// FAILED) or return WAIT and later call ExecContext.StepComplete.
	Apply(ctx ExecContext) (Result, string)

	// HandleEvent routes an asynchronous signal to the step. It returns
	// true if the step consumed the event (whether or not it completed),
	// false if the event does not apply to this step's entities.
	HandleEvent(ctx ExecContext, event Event, data any) bool

	// Timeout is invoked by the controller when the step's absolute
	// deadline expires. Default policy is FAILED; steps may override
	// (system-stabilize succeeds on timeout).
	Timeout(ctx ExecContext) (Result, string)

	// AbortChain returns the steps to run, in order, to compensate for
	// this step having already been applied. Most steps return nil.
	AbortChain() []Step

	// AsDict serializes the step's persisted fields, matching spec.md
	// section 4.2's "name, timeout, entity_type, entity_names,
	// entity_uuids, plus kind-specific fields" contract.
	AsDict() map[string]any

	// FromDict re-hydrates runtime scratch (reset) and kind-specific
	// fields from data, re-resolving entities against tables. Missing
	// entities are dropped from the live set but their names are kept
	// for reporting (EntityNames()).
	FromDict(data map[string]any, tables *inventory.Tables) error

	// EntityNames returns every entity name/uuid this step was built
	// with, including ones later dropped from the live working set --
	// used for reporting, never for execution.
	EntityNames() []string
}
