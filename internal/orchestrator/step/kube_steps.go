// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package step

import (
	"fleetctl/internal/orchestrator/inventory"
)

// kubeQueryBase is shared by the three read-only kube inventory refresh
// steps: each issues one driver query, stashes the result in Workspace
// under a fixed key, and always succeeds (a failed refresh degrades
// planning information but does not itself abort the strategy).
type kubeQueryBase struct {
	kind         Kind
	workspaceKey string
}

func (s *kubeQueryBase) Kind() Kind            { return s.kind }
func (s *kubeQueryBase) Name() string          { return string(s.kind) }
func (s *kubeQueryBase) TimeoutSecs() int64    { return 60 }
func (s *kubeQueryBase) EntityNames() []string { return nil }
func (s *kubeQueryBase) HandleEvent(ctx ExecContext, event Event, data any) bool { return false }
func (s *kubeQueryBase) Timeout(ctx ExecContext) (Result, string)                { return ResultSuccess, "" }
func (s *kubeQueryBase) AbortChain() []Step                                     { return nil }
func (s *kubeQueryBase) AsDict() map[string]any {
	return map[string]any{
		"name": string(s.kind), "timeout": int64(60),
		"entity_type": "", "entity_names": []string{}, "entity_uuids": []string{},
	}
}

// QueryKubeUpgradeStep refreshes the workspace's view of the in-progress
// Kubernetes control-plane upgrade state.
type QueryKubeUpgradeStep struct{ kubeQueryBase }

func NewQueryKubeUpgradeStep() *QueryKubeUpgradeStep {
	return &QueryKubeUpgradeStep{kubeQueryBase{kind: KindQueryKubeUpgrade, workspaceKey: "nfvi_kube_upgrade"}}
}
func (s *QueryKubeUpgradeStep) Apply(ctx ExecContext) (Result, string) {
	done := false
	ctx.Driver.GetKubeUpgrade(func(cb CallbackResult) {
		if cb.Completed {
			ctx.Workspace[s.workspaceKey] = cb.ResultData
		}
		done = true
	})
	if done {
		return ResultSuccess, ""
	}
	return ResultWait, ""
}
func (s *QueryKubeUpgradeStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindQueryKubeUpgrade
	s.workspaceKey = "nfvi_kube_upgrade"
	return nil
}

// QueryKubeHostUpgradeStep refreshes the per-host Kubernetes upgrade
// progress list (kubelet versions, control-plane status per host).
type QueryKubeHostUpgradeStep struct{ kubeQueryBase }

func NewQueryKubeHostUpgradeStep() *QueryKubeHostUpgradeStep {
	return &QueryKubeHostUpgradeStep{kubeQueryBase{kind: KindQueryKubeHostUpgrade, workspaceKey: "nfvi_kube_host_upgrade_list"}}
}
func (s *QueryKubeHostUpgradeStep) Apply(ctx ExecContext) (Result, string) {
	done := false
	ctx.Driver.GetKubeHostUpgradeList(func(cb CallbackResult) {
		if cb.Completed {
			ctx.Workspace[s.workspaceKey] = cb.ResultData
		}
		done = true
	})
	if done {
		return ResultSuccess, ""
	}
	return ResultWait, ""
}
func (s *QueryKubeHostUpgradeStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindQueryKubeHostUpgrade
	s.workspaceKey = "nfvi_kube_host_upgrade_list"
	return nil
}

// QueryKubeVersionsStep refreshes the platform's available/active Kubernetes
// version list, consulted by the builder to pick a target version.
type QueryKubeVersionsStep struct{ kubeQueryBase }

func NewQueryKubeVersionsStep() *QueryKubeVersionsStep {
	return &QueryKubeVersionsStep{kubeQueryBase{kind: KindQueryKubeVersions, workspaceKey: "nfvi_kube_version_list"}}
}
func (s *QueryKubeVersionsStep) Apply(ctx ExecContext) (Result, string) {
	done := false
	ctx.Driver.GetKubeVersionList(func(cb CallbackResult) {
		if cb.Completed {
			ctx.Workspace[s.workspaceKey] = cb.ResultData
		}
		done = true
	})
	if done {
		return ResultSuccess, ""
	}
	return ResultWait, ""
}
func (s *QueryKubeVersionsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindQueryKubeVersions
	s.workspaceKey = "nfvi_kube_version_list"
	return nil
}

// kubeLifecycleBase is shared by the cluster-wide (non-host-targeted) kube
// upgrade lifecycle steps: start/download-images/networking/complete/cleanup,
// each a single driver call awaiting its completion callback.
type kubeLifecycleBase struct {
	kind Kind
}

func (s *kubeLifecycleBase) Kind() Kind            { return s.kind }
func (s *kubeLifecycleBase) Name() string          { return string(s.kind) }
func (s *kubeLifecycleBase) TimeoutSecs() int64    { return 1800 }
func (s *kubeLifecycleBase) EntityNames() []string { return nil }
func (s *kubeLifecycleBase) HandleEvent(ctx ExecContext, event Event, data any) bool { return false }
func (s *kubeLifecycleBase) Timeout(ctx ExecContext) (Result, string) {
	return ResultFailed, string(s.kind) + " timed out"
}
func (s *kubeLifecycleBase) AbortChain() []Step { return nil }
func (s *kubeLifecycleBase) AsDict() map[string]any {
	return map[string]any{
		"name": string(s.kind), "timeout": int64(1800),
		"entity_type": "", "entity_names": []string{}, "entity_uuids": []string{},
	}
}

// KubeUpgradeStartStep begins a Kubernetes control-plane upgrade to a
// target version.
type KubeUpgradeStartStep struct {
	kubeLifecycleBase
	toVersion       string
	force           bool
	alarmIgnoreList []string
}

func NewKubeUpgradeStartStep(toVersion string, force bool, alarmIgnoreList []string) *KubeUpgradeStartStep {
	return &KubeUpgradeStartStep{
		kubeLifecycleBase: kubeLifecycleBase{kind: KindKubeUpgradeStart},
		toVersion:         toVersion, force: force, alarmIgnoreList: append([]string(nil), alarmIgnoreList...),
	}
}
func (s *KubeUpgradeStartStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.KubeUpgradeStart(s.toVersion, s.force, s.alarmIgnoreList, func(cb CallbackResult) {
		runCallback(&result, &reason, &done, cb)
	})
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *KubeUpgradeStartStep) AsDict() map[string]any {
	d := s.kubeLifecycleBase.AsDict()
	d["to_version"] = s.toVersion
	d["force"] = s.force
	d["alarm_ignore_list"] = append([]string(nil), s.alarmIgnoreList...)
	return d
}
func (s *KubeUpgradeStartStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindKubeUpgradeStart
	s.toVersion = stringFromDict(data, "to_version", "")
	s.force = boolFromDict(data, "force", false)
	s.alarmIgnoreList = stringsFromAny(data["alarm_ignore_list"])
	return nil
}

// KubeUpgradeDownloadImagesStep pre-stages container images for the target
// Kubernetes version across the fleet.
type KubeUpgradeDownloadImagesStep struct{ kubeLifecycleBase }

func NewKubeUpgradeDownloadImagesStep() *KubeUpgradeDownloadImagesStep {
	return &KubeUpgradeDownloadImagesStep{kubeLifecycleBase{kind: KindKubeUpgradeDownloadImages}}
}
func (s *KubeUpgradeDownloadImagesStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.KubeUpgradeDownloadImages(func(cb CallbackResult) { runCallback(&result, &reason, &done, cb) })
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *KubeUpgradeDownloadImagesStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindKubeUpgradeDownloadImages
	return nil
}

// KubeUpgradeNetworkingStep upgrades the cluster networking fabric
// (CNI/overlay) component.
type KubeUpgradeNetworkingStep struct{ kubeLifecycleBase }

func NewKubeUpgradeNetworkingStep() *KubeUpgradeNetworkingStep {
	return &KubeUpgradeNetworkingStep{kubeLifecycleBase{kind: KindKubeUpgradeNetworking}}
}
func (s *KubeUpgradeNetworkingStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.KubeUpgradeNetworking(func(cb CallbackResult) { runCallback(&result, &reason, &done, cb) })
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *KubeUpgradeNetworkingStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindKubeUpgradeNetworking
	return nil
}

// KubeUpgradeCompleteStep marks the cluster-wide Kubernetes upgrade
// complete once every host has finished its control-plane/kubelet upgrade.
type KubeUpgradeCompleteStep struct{ kubeLifecycleBase }

func NewKubeUpgradeCompleteStep() *KubeUpgradeCompleteStep {
	return &KubeUpgradeCompleteStep{kubeLifecycleBase{kind: KindKubeUpgradeComplete}}
}
func (s *KubeUpgradeCompleteStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.KubeUpgradeComplete(func(cb CallbackResult) { runCallback(&result, &reason, &done, cb) })
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *KubeUpgradeCompleteStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindKubeUpgradeComplete
	return nil
}

// KubeUpgradeCleanupStep releases resources held by the completed Kubernetes
// upgrade (old image cache, upgrade bookkeeping).
type KubeUpgradeCleanupStep struct{ kubeLifecycleBase }

func NewKubeUpgradeCleanupStep() *KubeUpgradeCleanupStep {
	return &KubeUpgradeCleanupStep{kubeLifecycleBase{kind: KindKubeUpgradeCleanup}}
}
func (s *KubeUpgradeCleanupStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.KubeUpgradeCleanup(func(cb CallbackResult) { runCallback(&result, &reason, &done, cb) })
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *KubeUpgradeCleanupStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindKubeUpgradeCleanup
	return nil
}

// KubeHostUpgradeControlPlaneStep upgrades a single host's Kubernetes
// control-plane components; host-targeted because the source applies
// control-plane upgrades one host at a time regardless of apply-type.
// Completion and failure are driven by the host's reported
// KubeControlPlaneState reaching targetState or targetFailureState
// (spec.md section 4.2's "kube upgrade reaches target_state" /
// "reaches target_failure_state" rule).
type KubeHostUpgradeControlPlaneStep struct {
	hostsBase
	force              bool
	targetState        string
	targetFailureState string
}

func NewKubeHostUpgradeControlPlaneStep(host string, force bool, targetState, targetFailureState string) *KubeHostUpgradeControlPlaneStep {
	return &KubeHostUpgradeControlPlaneStep{
		hostsBase: newHostsBase(KindKubeHostUpgradeControlPlane, 1200, []string{host}),
		force:     force, targetState: targetState, targetFailureState: targetFailureState,
	}
}

func (s *KubeHostUpgradeControlPlaneStep) state(tables *inventory.Tables) (string, bool) {
	if len(s.liveHosts) == 0 {
		return "", false
	}
	h, ok := tables.GetHost(s.liveHosts[0])
	if !ok {
		return "", false
	}
	return h.KubeControlPlaneState, true
}

func (s *KubeHostUpgradeControlPlaneStep) Apply(ctx ExecContext) (Result, string) {
	if len(s.liveHosts) == 0 {
		return ResultFailed, "host no longer exists"
	}
	op := ctx.Driver.KubeUpgradeHostsControlPlane(s.liveHosts[0], s.force)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *KubeHostUpgradeControlPlaneStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventHostAudit:
		state, ok := s.state(ctx.Tables)
		if !ok {
			return true
		}
		switch {
		case state == s.targetState:
			ctx.StepComplete(ResultSuccess, "")
		case s.targetFailureState != "" && state == s.targetFailureState:
			ctx.StepComplete(ResultFailed, "kube host upgrade control plane reached "+state)
		}
		return true
	case EventKubeHostUpgradeControlPlaneFailed:
		ctx.StepComplete(ResultFailed, "kube control-plane upgrade failed")
		return true
	}
	return false
}
func (s *KubeHostUpgradeControlPlaneStep) Timeout(ctx ExecContext) (Result, string) {
	return ResultFailed, "kube-host-upgrade-control-plane timed out"
}
func (s *KubeHostUpgradeControlPlaneStep) AbortChain() []Step { return nil }
func (s *KubeHostUpgradeControlPlaneStep) AsDict() map[string]any {
	d := s.baseDict()
	d["force"] = s.force
	d["target_state"] = s.targetState
	d["target_failure_state"] = s.targetFailureState
	return d
}
func (s *KubeHostUpgradeControlPlaneStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindKubeHostUpgradeControlPlane
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 1200)
	s.force = boolFromDict(data, "force", false)
	s.targetState = stringFromDict(data, "target_state", "")
	s.targetFailureState = stringFromDict(data, "target_failure_state", "")
	s.resolveLive(tables)
	return nil
}

// Kube control-plane upgrade states a host reports via
// KubeControlPlaneState, consulted by kube-host-upgrade-control-plane's
// target_state/target_failure_state.
const (
	KubeControlPlaneStateUpgraded = "kube-control-plane-upgraded"
	KubeControlPlaneStateFailed   = "kube-control-plane-upgrade-failed"
)

// KubeHostUpgradeKubeletStep upgrades the kubelet on a set of hosts,
// succeeding once every live host's KubeletVersion matches ToVersion
// (spec.md section 4.2: "SUCCESS when every target's kubelet_version ==
// strategy.to_version").
type KubeHostUpgradeKubeletStep struct {
	hostsBase
	toVersion string
	force     bool
}

func NewKubeHostUpgradeKubeletStep(hosts []string, toVersion string, force bool) *KubeHostUpgradeKubeletStep {
	return &KubeHostUpgradeKubeletStep{
		hostsBase: newHostsBase(KindKubeHostUpgradeKubelet, 1200, hosts),
		toVersion: toVersion, force: force,
	}
}

func (s *KubeHostUpgradeKubeletStep) allUpgraded(tables *inventory.Tables) bool {
	for _, name := range s.liveHosts {
		h, ok := tables.GetHost(name)
		if !ok || h.KubeletVersion != s.toVersion {
			return false
		}
	}
	return true
}

func (s *KubeHostUpgradeKubeletStep) Apply(ctx ExecContext) (Result, string) {
	if s.allUpgraded(ctx.Tables) {
		return ResultSuccess, ""
	}
	op := ctx.Driver.KubeUpgradeHostsKubelet(s.liveHosts, s.force)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *KubeHostUpgradeKubeletStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventHostAudit:
		if s.allUpgraded(ctx.Tables) {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventKubeHostUpgradeKubeletFailed:
		ctx.StepComplete(ResultFailed, "kube kubelet upgrade failed")
		return true
	}
	return false
}
func (s *KubeHostUpgradeKubeletStep) Timeout(ctx ExecContext) (Result, string) {
	return ResultFailed, "kube-host-upgrade-kubelet timed out"
}
func (s *KubeHostUpgradeKubeletStep) AbortChain() []Step { return nil }
func (s *KubeHostUpgradeKubeletStep) AsDict() map[string]any {
	d := s.baseDict()
	d["to_version"] = s.toVersion
	d["force"] = s.force
	return d
}
func (s *KubeHostUpgradeKubeletStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindKubeHostUpgradeKubelet
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 1200)
	s.toVersion = stringFromDict(data, "to_version", "")
	s.force = boolFromDict(data, "force", false)
	s.resolveLive(tables)
	return nil
}

// KubeRootCAUpdateStartStep begins a cluster root-CA rotation (supplemented
// feature; see SPEC_FULL.md's Open Question decision). It is cluster-wide,
// not host-targeted, mirroring the other lifecycle steps' single
// driver-call/await-callback shape.
type KubeRootCAUpdateStartStep struct{ kubeLifecycleBase }

func NewKubeRootCAUpdateStartStep() *KubeRootCAUpdateStartStep {
	return &KubeRootCAUpdateStartStep{kubeLifecycleBase{kind: KindKubeRootCAUpdateStart}}
}
func (s *KubeRootCAUpdateStartStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.KubeRootCAUpdateStart(func(cb CallbackResult) { runCallback(&result, &reason, &done, cb) })
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *KubeRootCAUpdateStartStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindKubeRootCAUpdateStart
	return nil
}
