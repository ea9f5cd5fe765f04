// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package platform

import "fleetctl/pkg/logging"

// Feature: ORCHESTRATOR_PLATFORM_DRIVER_LOGGING
// Spec: spec.md section 4.5 ("concrete ... backends are out of scope");
// grounded on the generic provider's command-based stand-in
// (internal/providers/backend/generic.GenericProvider) for a concern whose
// real backend is intentionally out of tree.

// LogDriver is a Driver that issues every call by logging it and completing
// immediately and successfully. It has no fleet to drive; it exists so the
// CLI has something concrete to run a strategy against until a real
// host-director/OpenStack client is wired in -- the same role the generic
// provider plays for backend/frontend/cloud concerns elsewhere in this
// module.
type LogDriver struct {
	logger logging.Logger
}

var _ Driver = (*LogDriver)(nil)

// NewLogDriver returns a Driver that logs every call through logger.
func NewLogDriver(logger logging.Logger) *LogDriver {
	return &LogDriver{logger: logger}
}

func (d *LogDriver) call(verb string, fields ...logging.Field) {
	d.logger.Info("driver call", append([]logging.Field{logging.NewField("verb", verb)}, fields...)...)
}

func (d *LogDriver) GetHost(uuid, name string, cb Callback) {
	d.call("get-host", logging.NewField("uuid", uuid), logging.NewField("name", name))
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) GetAlarms(cb Callback) {
	d.call("get-alarms")
	cb(CallbackResult{Completed: true, ResultData: []any{}})
}

func (d *LogDriver) GetOpenStackAlarms(cb Callback) {
	d.call("get-openstack-alarms")
	cb(CallbackResult{Completed: true, ResultData: []any{}})
}

func (d *LogDriver) GetUpgrade(cb Callback) {
	d.call("get-upgrade")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) GetKubeUpgrade(cb Callback) {
	d.call("get-kube-upgrade")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) GetKubeHostUpgradeList(cb Callback) {
	d.call("get-kube-host-upgrade-list")
	cb(CallbackResult{Completed: true, ResultData: []any{}})
}

func (d *LogDriver) GetKubeVersionList(cb Callback) {
	d.call("get-kube-version-list")
	cb(CallbackResult{Completed: true, ResultData: []any{}})
}

func (d *LogDriver) SwMgmtUpdateHosts(names []string, cb Callback) {
	d.call("sw-mgmt-update-hosts", logging.NewField("hosts", names))
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) SwMgmtQueryUpdates(cb Callback) {
	d.call("sw-mgmt-query-updates")
	cb(CallbackResult{Completed: true, ResultData: []any{}})
}

func (d *LogDriver) SwMgmtQueryHosts(cb Callback) {
	d.call("sw-mgmt-query-hosts")
	cb(CallbackResult{Completed: true, ResultData: []any{}})
}

func (d *LogDriver) SwMgmtApplyUpdates(names []string, cb Callback) {
	d.call("sw-mgmt-apply-updates", logging.NewField("patches", names))
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) UpgradeStart(cb Callback) {
	d.call("upgrade-start")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) UpgradeActivate(cb Callback) {
	d.call("upgrade-activate")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) UpgradeComplete(cb Callback) {
	d.call("upgrade-complete")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) KubeUpgradeStart(toVersion string, force bool, alarmIgnoreList []string, cb Callback) {
	d.call("kube-upgrade-start", logging.NewField("to_version", toVersion), logging.NewField("force", force))
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) KubeUpgradeDownloadImages(cb Callback) {
	d.call("kube-upgrade-download-images")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) KubeUpgradeNetworking(cb Callback) {
	d.call("kube-upgrade-networking")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) KubeUpgradeComplete(cb Callback) {
	d.call("kube-upgrade-complete")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) KubeUpgradeCleanup(cb Callback) {
	d.call("kube-upgrade-cleanup")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) KubeRootCAUpdateStart(cb Callback) {
	d.call("kube-rootca-update-start")
	cb(CallbackResult{Completed: true})
}

func (d *LogDriver) LockHosts(hosts []string) Operation {
	d.call("lock-hosts", logging.NewField("hosts", hosts))
	return StaticOperation{}
}

func (d *LogDriver) UnlockHosts(hosts []string) Operation {
	d.call("unlock-hosts", logging.NewField("hosts", hosts))
	return StaticOperation{}
}

func (d *LogDriver) RebootHosts(hosts []string) Operation {
	d.call("reboot-hosts", logging.NewField("hosts", hosts))
	return StaticOperation{}
}

func (d *LogDriver) SwactHosts(hosts []string) Operation {
	d.call("swact-hosts", logging.NewField("hosts", hosts))
	return StaticOperation{}
}

func (d *LogDriver) UpgradeHosts(hosts []string) Operation {
	d.call("upgrade-hosts", logging.NewField("hosts", hosts))
	return StaticOperation{}
}

func (d *LogDriver) FwUpdateHosts(hosts []string) Operation {
	d.call("fw-update-hosts", logging.NewField("hosts", hosts))
	return StaticOperation{}
}

func (d *LogDriver) FwUpdateAbortHosts(hosts []string) Operation {
	d.call("fw-update-abort-hosts", logging.NewField("hosts", hosts))
	return StaticOperation{}
}

func (d *LogDriver) DisableHostServices(hosts []string, service string) Operation {
	d.call("disable-host-services", logging.NewField("hosts", hosts), logging.NewField("service", service))
	return StaticOperation{}
}

func (d *LogDriver) EnableHostServices(hosts []string, service string) Operation {
	d.call("enable-host-services", logging.NewField("hosts", hosts), logging.NewField("service", service))
	return StaticOperation{}
}

func (d *LogDriver) KubeUpgradeHostsControlPlane(host string, force bool) Operation {
	d.call("kube-upgrade-hosts-control-plane", logging.NewField("host", host), logging.NewField("force", force))
	return StaticOperation{}
}

func (d *LogDriver) KubeUpgradeHostsKubelet(hosts []string, force bool) Operation {
	d.call("kube-upgrade-hosts-kubelet", logging.NewField("hosts", hosts), logging.NewField("force", force))
	return StaticOperation{}
}

func (d *LogDriver) MigrateInstances(instances []string) Operation {
	d.call("migrate-instances", logging.NewField("instances", instances))
	return StaticOperation{}
}

func (d *LogDriver) StopInstances(instances []string) Operation {
	d.call("stop-instances", logging.NewField("instances", instances))
	return StaticOperation{}
}

func (d *LogDriver) StartInstances(instances []string) Operation {
	d.call("start-instances", logging.NewField("instances", instances))
	return StaticOperation{}
}

func (d *LogDriver) SwPatchHosts(hosts []string) Operation {
	d.call("sw-patch-hosts", logging.NewField("hosts", hosts))
	return StaticOperation{}
}

func (d *LogDriver) ApplyPatches(names []string, cb Callback) {
	d.call("apply-patches", logging.NewField("patches", names))
	cb(CallbackResult{Completed: true})
}
