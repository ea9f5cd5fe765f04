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

// QuerySwPatchesStep refreshes the workspace's view of available patches.
// It never fails on its own: a patch-management outage is reported but does
// not block the strategy, matching the source's "best effort" query steps.
type QuerySwPatchesStep struct{}

func NewQuerySwPatchesStep() *QuerySwPatchesStep { return &QuerySwPatchesStep{} }

func (s *QuerySwPatchesStep) Kind() Kind            { return KindQuerySwPatches }
func (s *QuerySwPatchesStep) Name() string          { return string(KindQuerySwPatches) }
func (s *QuerySwPatchesStep) TimeoutSecs() int64    { return 60 }
func (s *QuerySwPatchesStep) EntityNames() []string { return nil }

func (s *QuerySwPatchesStep) Apply(ctx ExecContext) (Result, string) {
	result, reason, done := ResultWait, "", false
	ctx.Driver.SwMgmtQueryUpdates(func(cb CallbackResult) {
		if cb.Completed {
			ctx.Workspace["nfvi_sw_patches"] = cb.ResultData
		}
		result, reason, done = ResultSuccess, "", true
	})
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *QuerySwPatchesStep) HandleEvent(ctx ExecContext, event Event, data any) bool { return false }
func (s *QuerySwPatchesStep) Timeout(ctx ExecContext) (Result, string)                { return ResultSuccess, "" }
func (s *QuerySwPatchesStep) AbortChain() []Step                                      { return nil }
func (s *QuerySwPatchesStep) AsDict() map[string]any {
	return map[string]any{"name": string(KindQuerySwPatches), "timeout": int64(60), "entity_type": "", "entity_names": []string{}, "entity_uuids": []string{}}
}
func (s *QuerySwPatchesStep) FromDict(data map[string]any, tables *inventory.Tables) error { return nil }

// QuerySwPatchHostsStep refreshes each host's patch-current/patch-failed
// flags in the inventory tables via the patch-management host query.
type QuerySwPatchHostsStep struct{ hostsBase }

func NewQuerySwPatchHostsStep(hosts []string) *QuerySwPatchHostsStep {
	return &QuerySwPatchHostsStep{hostsBase: newHostsBase(KindQuerySwPatchHosts, 60, hosts)}
}

func (s *QuerySwPatchHostsStep) Apply(ctx ExecContext) (Result, string) {
	result, done := ResultWait, false
	ctx.Driver.SwMgmtQueryHosts(func(cb CallbackResult) {
		result, done = ResultSuccess, true
		if !cb.Completed {
			result = ResultFailed
		}
	})
	if done {
		return result, ""
	}
	return ResultWait, ""
}
func (s *QuerySwPatchHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool { return false }
func (s *QuerySwPatchHostsStep) Timeout(ctx ExecContext) (Result, string)                { return ResultFailed, "query-sw-patch-hosts timed out" }
func (s *QuerySwPatchHostsStep) AbortChain() []Step                                      { return nil }
func (s *QuerySwPatchHostsStep) AsDict() map[string]any                                  { return s.baseDict() }
func (s *QuerySwPatchHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindQuerySwPatchHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 60)
	s.resolveLive(tables)
	return nil
}

// SwPatchHostsStep installs queued patches on each target host and
// succeeds once all live hosts report PatchCurrent.
type SwPatchHostsStep struct{ hostsBase }

func NewSwPatchHostsStep(hosts []string) *SwPatchHostsStep {
	return &SwPatchHostsStep{hostsBase: newHostsBase(KindSwPatchHosts, 1800, hosts)}
}

func (s *SwPatchHostsStep) allCurrent(tables *inventory.Tables) bool {
	for _, name := range s.liveHosts {
		h, ok := tables.GetHost(name)
		if !ok || !h.PatchCurrent || h.PatchFailed {
			return false
		}
	}
	return true
}

func (s *SwPatchHostsStep) Apply(ctx ExecContext) (Result, string) {
	if s.allCurrent(ctx.Tables) {
		return ResultSuccess, ""
	}
	op := ctx.Driver.SwPatchHosts(s.liveHosts)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *SwPatchHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventHostAudit:
		for _, name := range s.liveHosts {
			if h, ok := ctx.Tables.GetHost(name); ok && h.PatchFailed {
				ctx.StepComplete(ResultFailed, "host "+name+" patch install failed")
				return true
			}
		}
		if s.allCurrent(ctx.Tables) {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	}
	return false
}
func (s *SwPatchHostsStep) Timeout(ctx ExecContext) (Result, string) { return ResultFailed, "sw-patch-hosts timed out" }
func (s *SwPatchHostsStep) AbortChain() []Step                       { return nil }
func (s *SwPatchHostsStep) AsDict() map[string]any                   { return s.baseDict() }
func (s *SwPatchHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindSwPatchHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 1800)
	s.resolveLive(tables)
	return nil
}

// ApplyPatchesStep tells patch-management to commit a patch set's release
// state platform-wide (no host targets of its own).
type ApplyPatchesStep struct {
	patchNames []string
}

func NewApplyPatchesStep(patchNames []string) *ApplyPatchesStep {
	return &ApplyPatchesStep{patchNames: append([]string(nil), patchNames...)}
}

func (s *ApplyPatchesStep) Kind() Kind            { return KindApplyPatches }
func (s *ApplyPatchesStep) Name() string          { return string(KindApplyPatches) }
func (s *ApplyPatchesStep) TimeoutSecs() int64    { return 300 }
func (s *ApplyPatchesStep) EntityNames() []string { return append([]string(nil), s.patchNames...) }

func (s *ApplyPatchesStep) Apply(ctx ExecContext) (Result, string) {
	result, reason, done := ResultWait, "", false
	ctx.Driver.ApplyPatches(s.patchNames, func(cb CallbackResult) {
		done = true
		if cb.Completed {
			result = ResultSuccess
		} else {
			result, reason = ResultFailed, cb.Reason
		}
	})
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *ApplyPatchesStep) HandleEvent(ctx ExecContext, event Event, data any) bool { return false }
func (s *ApplyPatchesStep) Timeout(ctx ExecContext) (Result, string)                { return ResultFailed, "apply-patches timed out" }
func (s *ApplyPatchesStep) AbortChain() []Step                                      { return nil }
func (s *ApplyPatchesStep) AsDict() map[string]any {
	return map[string]any{
		"name": string(KindApplyPatches), "timeout": int64(300),
		"entity_type": "patches", "entity_names": append([]string(nil), s.patchNames...), "entity_uuids": []string{},
	}
}
func (s *ApplyPatchesStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.patchNames = stringsFromAny(data["entity_names"])
	return nil
}
