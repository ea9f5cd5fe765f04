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

// NoOpStep is deserialized in place of any persisted step whose Kind is not
// in the dispatch table (e.g. a newer binary's step kind loaded by an older
// one). It fails immediately rather than silently skipping work.
type NoOpStep struct {
	persistedName string
}

func (s *NoOpStep) Kind() Kind                                                  { return KindNoOp }
func (s *NoOpStep) Name() string                                                { return string(KindNoOp) }
func (s *NoOpStep) TimeoutSecs() int64                                          { return 0 }
func (s *NoOpStep) EntityNames() []string                                       { return nil }
func (s *NoOpStep) Apply(ctx ExecContext) (Result, string)                      { return ResultFailed, "unrecognized step kind: " + s.persistedName }
func (s *NoOpStep) HandleEvent(ctx ExecContext, event Event, data any) bool      { return false }
func (s *NoOpStep) Timeout(ctx ExecContext) (Result, string)                    { return ResultFailed, "unrecognized step kind: " + s.persistedName }
func (s *NoOpStep) AbortChain() []Step                                          { return nil }
func (s *NoOpStep) AsDict() map[string]any {
	return map[string]any{
		"name": s.persistedName, "timeout": int64(0),
		"entity_type": "", "entity_names": []string{}, "entity_uuids": []string{},
	}
}
func (s *NoOpStep) FromDict(data map[string]any, tables *inventory.Tables) error { return nil }

// Deserialize rebuilds a Step from its persisted dict via the closed static
// dispatch table keyed by the "name" field, grounded on gravitational-
// gravity's fsmSpec switch-based executor dispatch (other_examples/). An
// unrecognized name deserializes to NoOpStep instead of erroring, so an
// older controller can still load (and fail) a strategy written by a newer
// one rather than refusing to load it at all.
func Deserialize(data map[string]any, tables *inventory.Tables) Step {
	name, _ := data["name"].(string)
	var s Step
	switch Kind(name) {
	case KindQueryHosts:
		s = &QueryHostsStep{}
	case KindSystemStabilize:
		s = &SystemStabilizeStep{}
	case KindLockHosts:
		s = &LockHostsStep{}
	case KindUnlockHosts:
		s = &UnlockHostsStep{}
	case KindRebootHosts:
		s = &RebootHostsStep{}
	case KindSwactHosts:
		s = &SwactHostsStep{}
	case KindUpgradeHosts:
		s = &UpgradeHostsStep{}
	case KindStartUpgrade:
		s = &StartUpgradeStep{}
	case KindActivateUpgrade:
		s = &ActivateUpgradeStep{}
	case KindCompleteUpgrade:
		s = &CompleteUpgradeStep{}
	case KindQueryUpgrade:
		s = &QueryUpgradeStep{}
	case KindSwPatchHosts:
		s = &SwPatchHostsStep{}
	case KindQuerySwPatches:
		s = &QuerySwPatchesStep{}
	case KindQuerySwPatchHosts:
		s = &QuerySwPatchHostsStep{}
	case KindApplyPatches:
		s = &ApplyPatchesStep{}
	case KindFwUpdateHosts:
		s = &FwUpdateHostsStep{}
	case KindFwUpdateAbortHosts:
		s = &FwUpdateAbortHostsStep{}
	case KindQueryFwUpdateHost:
		s = &QueryFwUpdateHostStep{}
	case KindMigrateInstances:
		s = &MigrateInstancesStep{}
	case KindStopInstances:
		s = &StopInstancesStep{}
	case KindStartInstances:
		s = &StartInstancesStep{}
	case KindQueryAlarms:
		s = &QueryAlarmsStep{}
	case KindWaitDataSync:
		s = &WaitDataSyncStep{}
	case KindWaitAlarmsClear:
		s = &WaitAlarmsClearStep{}
	case KindDisableHostServices:
		s = &DisableHostServicesStep{}
	case KindEnableHostServices:
		s = &EnableHostServicesStep{}
	case KindQueryKubeUpgrade:
		s = &QueryKubeUpgradeStep{}
	case KindQueryKubeHostUpgrade:
		s = &QueryKubeHostUpgradeStep{}
	case KindQueryKubeVersions:
		s = &QueryKubeVersionsStep{}
	case KindKubeUpgradeStart:
		s = &KubeUpgradeStartStep{}
	case KindKubeUpgradeDownloadImages:
		s = &KubeUpgradeDownloadImagesStep{}
	case KindKubeUpgradeNetworking:
		s = &KubeUpgradeNetworkingStep{}
	case KindKubeUpgradeComplete:
		s = &KubeUpgradeCompleteStep{}
	case KindKubeUpgradeCleanup:
		s = &KubeUpgradeCleanupStep{}
	case KindKubeHostUpgradeControlPlane:
		s = &KubeHostUpgradeControlPlaneStep{}
	case KindKubeHostUpgradeKubelet:
		s = &KubeHostUpgradeKubeletStep{}
	case KindKubeRootCAUpdateStart:
		s = &KubeRootCAUpdateStartStep{}
	default:
		return &NoOpStep{persistedName: name}
	}
	if err := s.FromDict(data, tables); err != nil {
		return &NoOpStep{persistedName: name}
	}
	return s
}
