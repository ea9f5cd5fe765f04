// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package platformtest provides a configurable platform.Driver test double
// and a fake monotonic clock, shared by the orchestrator packages' tests so
// each one isn't left hand-rolling its own stub (spec.md section 4.5).
package platformtest

import (
	"sync"
	"time"

	"fleetctl/internal/orchestrator/platform"
	"fleetctl/internal/orchestrator/step"
)

// Call records one invocation of a host-director or apply verb.
type Call struct {
	Verb  string
	Hosts []string
}

// Driver is a configurable platform.Driver test double. Host-director verbs
// return a pre-set Operation (success unless overridden) and are logged for
// call-count/argument assertions; query/apply verbs invoke their callback
// synchronously with a pre-set CallbackResult.
type Driver struct {
	mu    sync.Mutex
	Calls []Call

	LockHostsOp                    platform.Operation
	UnlockHostsOp                  platform.Operation
	RebootHostsOp                  platform.Operation
	SwactHostsOp                   platform.Operation
	UpgradeHostsOp                 platform.Operation
	FwUpdateHostsOp                platform.Operation
	FwUpdateAbortHostsOp           platform.Operation
	DisableHostServicesOp          platform.Operation
	EnableHostServicesOp           platform.Operation
	KubeUpgradeHostsControlPlaneOp platform.Operation
	KubeUpgradeHostsKubeletOp      platform.Operation
	MigrateInstancesOp             platform.Operation
	StopInstancesOp                platform.Operation
	StartInstancesOp               platform.Operation
	SwPatchHostsOp                 platform.Operation

	GetHostResult                   platform.CallbackResult
	GetAlarmsResult                 platform.CallbackResult
	Alarms                          []step.Alarm
	GetOpenStackAlarmsResult        platform.CallbackResult
	GetUpgradeResult                platform.CallbackResult
	GetKubeUpgradeResult            platform.CallbackResult
	GetKubeHostUpgradeListResult    platform.CallbackResult
	GetKubeVersionListResult        platform.CallbackResult
	SwMgmtUpdateHostsResult         platform.CallbackResult
	SwMgmtQueryUpdatesResult        platform.CallbackResult
	SwMgmtQueryHostsResult          platform.CallbackResult
	SwMgmtApplyUpdatesResult        platform.CallbackResult
	UpgradeStartResult              platform.CallbackResult
	UpgradeActivateResult           platform.CallbackResult
	UpgradeCompleteResult           platform.CallbackResult
	KubeUpgradeStartResult          platform.CallbackResult
	KubeUpgradeDownloadImagesResult platform.CallbackResult
	KubeUpgradeNetworkingResult     platform.CallbackResult
	KubeUpgradeCompleteResult       platform.CallbackResult
	KubeUpgradeCleanupResult        platform.CallbackResult
	KubeRootCAUpdateStartResult     platform.CallbackResult
	ApplyPatchesResult              platform.CallbackResult
}

var _ platform.Driver = (*Driver)(nil)

// New returns a Driver whose every callback verb completes immediately and
// successfully, and whose host-director verbs report no failure.
func New() *Driver {
	ok := platform.CallbackResult{Completed: true}
	return &Driver{
		GetHostResult: ok, GetAlarmsResult: ok, GetOpenStackAlarmsResult: ok,
		GetUpgradeResult: ok, GetKubeUpgradeResult: ok, GetKubeHostUpgradeListResult: ok,
		GetKubeVersionListResult: ok, SwMgmtUpdateHostsResult: ok, SwMgmtQueryUpdatesResult: ok,
		SwMgmtQueryHostsResult: ok, SwMgmtApplyUpdatesResult: ok, UpgradeStartResult: ok,
		UpgradeActivateResult: ok, UpgradeCompleteResult: ok, KubeUpgradeStartResult: ok,
		KubeUpgradeDownloadImagesResult: ok, KubeUpgradeNetworkingResult: ok,
		KubeUpgradeCompleteResult: ok, KubeUpgradeCleanupResult: ok,
		KubeRootCAUpdateStartResult: ok, ApplyPatchesResult: ok,
	}
}

func (d *Driver) record(verb string, hosts []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, Call{Verb: verb, Hosts: append([]string(nil), hosts...)})
}

// CallCount returns how many times verb was invoked.
func (d *Driver) CallCount(verb string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.Calls {
		if c.Verb == verb {
			n++
		}
	}
	return n
}

// LastCall returns the hosts passed to the most recent invocation of verb.
func (d *Driver) LastCall(verb string) ([]string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.Calls) - 1; i >= 0; i-- {
		if d.Calls[i].Verb == verb {
			return d.Calls[i].Hosts, true
		}
	}
	return nil, false
}

func op(o platform.Operation) platform.Operation {
	if o == nil {
		return platform.StaticOperation{}
	}
	return o
}

func (d *Driver) GetHost(uuid, name string, cb platform.Callback) { cb(d.GetHostResult) }

func (d *Driver) GetAlarms(cb platform.Callback) {
	r := d.GetAlarmsResult
	if r.Completed && r.ResultData == nil {
		r.ResultData = d.Alarms
	}
	cb(r)
}

func (d *Driver) GetOpenStackAlarms(cb platform.Callback)     { cb(d.GetOpenStackAlarmsResult) }
func (d *Driver) GetUpgrade(cb platform.Callback)             { cb(d.GetUpgradeResult) }
func (d *Driver) GetKubeUpgrade(cb platform.Callback)         { cb(d.GetKubeUpgradeResult) }
func (d *Driver) GetKubeHostUpgradeList(cb platform.Callback) { cb(d.GetKubeHostUpgradeListResult) }
func (d *Driver) GetKubeVersionList(cb platform.Callback)     { cb(d.GetKubeVersionListResult) }

func (d *Driver) SwMgmtUpdateHosts(names []string, cb platform.Callback) {
	d.record("SwMgmtUpdateHosts", names)
	cb(d.SwMgmtUpdateHostsResult)
}
func (d *Driver) SwMgmtQueryUpdates(cb platform.Callback) { cb(d.SwMgmtQueryUpdatesResult) }
func (d *Driver) SwMgmtQueryHosts(cb platform.Callback)   { cb(d.SwMgmtQueryHostsResult) }
func (d *Driver) SwMgmtApplyUpdates(names []string, cb platform.Callback) {
	d.record("SwMgmtApplyUpdates", names)
	cb(d.SwMgmtApplyUpdatesResult)
}

func (d *Driver) UpgradeStart(cb platform.Callback)    { cb(d.UpgradeStartResult) }
func (d *Driver) UpgradeActivate(cb platform.Callback) { cb(d.UpgradeActivateResult) }
func (d *Driver) UpgradeComplete(cb platform.Callback) { cb(d.UpgradeCompleteResult) }

func (d *Driver) KubeUpgradeStart(toVersion string, force bool, alarmIgnoreList []string, cb platform.Callback) {
	d.record("KubeUpgradeStart", nil)
	cb(d.KubeUpgradeStartResult)
}
func (d *Driver) KubeUpgradeDownloadImages(cb platform.Callback) { cb(d.KubeUpgradeDownloadImagesResult) }
func (d *Driver) KubeUpgradeNetworking(cb platform.Callback)     { cb(d.KubeUpgradeNetworkingResult) }
func (d *Driver) KubeUpgradeComplete(cb platform.Callback)       { cb(d.KubeUpgradeCompleteResult) }
func (d *Driver) KubeUpgradeCleanup(cb platform.Callback)        { cb(d.KubeUpgradeCleanupResult) }
func (d *Driver) KubeRootCAUpdateStart(cb platform.Callback)     { cb(d.KubeRootCAUpdateStartResult) }

func (d *Driver) LockHosts(hosts []string) platform.Operation {
	d.record("LockHosts", hosts)
	return op(d.LockHostsOp)
}
func (d *Driver) UnlockHosts(hosts []string) platform.Operation {
	d.record("UnlockHosts", hosts)
	return op(d.UnlockHostsOp)
}
func (d *Driver) RebootHosts(hosts []string) platform.Operation {
	d.record("RebootHosts", hosts)
	return op(d.RebootHostsOp)
}
func (d *Driver) SwactHosts(hosts []string) platform.Operation {
	d.record("SwactHosts", hosts)
	return op(d.SwactHostsOp)
}
func (d *Driver) UpgradeHosts(hosts []string) platform.Operation {
	d.record("UpgradeHosts", hosts)
	return op(d.UpgradeHostsOp)
}
func (d *Driver) FwUpdateHosts(hosts []string) platform.Operation {
	d.record("FwUpdateHosts", hosts)
	return op(d.FwUpdateHostsOp)
}
func (d *Driver) FwUpdateAbortHosts(hosts []string) platform.Operation {
	d.record("FwUpdateAbortHosts", hosts)
	return op(d.FwUpdateAbortHostsOp)
}
func (d *Driver) DisableHostServices(hosts []string, service string) platform.Operation {
	d.record("DisableHostServices", hosts)
	return op(d.DisableHostServicesOp)
}
func (d *Driver) EnableHostServices(hosts []string, service string) platform.Operation {
	d.record("EnableHostServices", hosts)
	return op(d.EnableHostServicesOp)
}
func (d *Driver) KubeUpgradeHostsControlPlane(host string, force bool) platform.Operation {
	d.record("KubeUpgradeHostsControlPlane", []string{host})
	return op(d.KubeUpgradeHostsControlPlaneOp)
}
func (d *Driver) KubeUpgradeHostsKubelet(hosts []string, force bool) platform.Operation {
	d.record("KubeUpgradeHostsKubelet", hosts)
	return op(d.KubeUpgradeHostsKubeletOp)
}

func (d *Driver) MigrateInstances(instances []string) platform.Operation {
	d.record("MigrateInstances", instances)
	return op(d.MigrateInstancesOp)
}
func (d *Driver) StopInstances(instances []string) platform.Operation {
	d.record("StopInstances", instances)
	return op(d.StopInstancesOp)
}
func (d *Driver) StartInstances(instances []string) platform.Operation {
	d.record("StartInstances", instances)
	return op(d.StartInstancesOp)
}

func (d *Driver) SwPatchHosts(hosts []string) platform.Operation {
	d.record("SwPatchHosts", hosts)
	return op(d.SwPatchHostsOp)
}
func (d *Driver) ApplyPatches(names []string, cb platform.Callback) {
	d.record("ApplyPatches", names)
	cb(d.ApplyPatchesResult)
}

// Clock is a fake step.Clock whose monotonic value only moves when Advance
// or Set is called, so tests can deterministically cross a step's timeout
// boundary without a real sleep.
type Clock struct {
	millis int64
}

var _ step.Clock = (*Clock)(nil)

func (c *Clock) MonotonicMillis() int64 { return c.millis }
func (c *Clock) Advance(d time.Duration) { c.millis += d.Milliseconds() }
func (c *Clock) Set(millis int64)        { c.millis = millis }
