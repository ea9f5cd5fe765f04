// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package platform defines the abstract async facade the strategy engine
// drives a fleet through. Concrete inventory, alarm, patching, upgrade,
// firmware, and Kubernetes backends are out of scope for this module; only
// the RPC shape they must satisfy lives here.
package platform

// Feature: ORCHESTRATOR_PLATFORM_DRIVER
// Spec: spec.md section 4.5

// CallbackResult is delivered to every driver completion callback.
type CallbackResult struct {
	Completed  bool
	Reason     string
	ResultData any
}

// Callback is invoked exactly once per outstanding driver request. The
// driver guarantees at-most-one pending completion per (step, verb); a step
// ignores any duplicate delivery it cannot attribute to an in-flight call.
type Callback func(CallbackResult)

// Operation is the handle returned by host-director verbs. It reports a
// coarse in-flight/failed/reason view so steps can make an immediate apply
// decision without waiting on a callback.
type Operation interface {
	IsInProgress() bool
	IsFailed() bool
	Reason() string
}

// StaticOperation is a trivial Operation used by fakes and by drivers whose
// verb either fails synchronously or is already known to be in flight.
type StaticOperation struct {
	InProgress bool
	Failed     bool
	Why        string
}

func (o StaticOperation) IsInProgress() bool { return o.InProgress }
func (o StaticOperation) IsFailed() bool     { return o.Failed }
func (o StaticOperation) Reason() string     { return o.Why }

// Driver is the abstract platform facade. Every method is non-blocking: it
// either returns an Operation handle immediately (host-director verbs) or
// schedules work and reports completion through cb (query/apply verbs).
// Implementations MUST marshal callback delivery onto the caller's event
// loop; callbacks MUST NOT run concurrently with a step's Apply or
// HandleEvent.
type Driver interface {
	// Inventory and alarm queries.
	GetHost(uuid, name string, cb Callback)
	GetAlarms(cb Callback)
	GetOpenStackAlarms(cb Callback)
	GetUpgrade(cb Callback)
	GetKubeUpgrade(cb Callback)
	GetKubeHostUpgradeList(cb Callback)
	GetKubeVersionList(cb Callback)

	// Software management.
	SwMgmtUpdateHosts(names []string, cb Callback)
	SwMgmtQueryUpdates(cb Callback)
	SwMgmtQueryHosts(cb Callback)
	SwMgmtApplyUpdates(names []string, cb Callback)

	// Upgrade lifecycle.
	UpgradeStart(cb Callback)
	UpgradeActivate(cb Callback)
	UpgradeComplete(cb Callback)

	// Kubernetes control-plane upgrade lifecycle.
	KubeUpgradeStart(toVersion string, force bool, alarmIgnoreList []string, cb Callback)
	KubeUpgradeDownloadImages(cb Callback)
	KubeUpgradeNetworking(cb Callback)
	KubeUpgradeComplete(cb Callback)
	KubeUpgradeCleanup(cb Callback)

	// Root-CA rotation (supplemented feature, see SPEC_FULL.md).
	KubeRootCAUpdateStart(cb Callback)

	// Host-director verbs. Each returns a handle describing the
	// just-issued request; completion is observed later via inventory
	// state changes, targeted *_FAILED events, or audits -- never via cb.
	LockHosts(hosts []string) Operation
	UnlockHosts(hosts []string) Operation
	RebootHosts(hosts []string) Operation
	SwactHosts(hosts []string) Operation
	UpgradeHosts(hosts []string) Operation
	FwUpdateHosts(hosts []string) Operation
	FwUpdateAbortHosts(hosts []string) Operation
	DisableHostServices(hosts []string, service string) Operation
	EnableHostServices(hosts []string, service string) Operation
	KubeUpgradeHostsControlPlane(host string, force bool) Operation
	KubeUpgradeHostsKubelet(hosts []string, force bool) Operation

	// Guest workload disposition.
	MigrateInstances(instances []string) Operation
	StopInstances(instances []string) Operation
	StartInstances(instances []string) Operation

	// Patching.
	SwPatchHosts(hosts []string) Operation
	ApplyPatches(names []string, cb Callback)
}
