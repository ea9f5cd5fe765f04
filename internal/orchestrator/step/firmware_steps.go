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

// FirmwareUpdateAlarmLabel tags device-image-update alarms during a
// firmware strategy so query-alarms/wait-alarms-clear gates can be told to
// ignore them alongside the numeric alarm codes a deployment configures
// (supplemented from the source's FW_UPDATE_LABEL grouping constant; see
// DESIGN.md).
const FirmwareUpdateAlarmLabel = "fw-update"

// QueryFwUpdateHostStep queries its host and, when the host's
// device-image-update state is pending, appends it to the strategy's
// fw_update_hosts workspace key.
type QueryFwUpdateHostStep struct{ hostsBase }

func NewQueryFwUpdateHostStep(hosts []string) *QueryFwUpdateHostStep {
	return &QueryFwUpdateHostStep{hostsBase: newHostsBase(KindQueryFwUpdateHost, 60, hosts)}
}

func (s *QueryFwUpdateHostStep) Apply(ctx ExecContext) (Result, string) {
	result, done := ResultWait, false
	ctx.Driver.GetHost("", "", func(cb CallbackResult) {
		result, done = ResultSuccess, true
		if !cb.Completed {
			result = ResultFailed
			return
		}
		pending := stringsFromAny(ctx.Workspace["fw_update_hosts"])
		for _, name := range s.liveHosts {
			if h, ok := ctx.Tables.GetHost(name); ok && h.DeviceImageUpdate == inventory.DeviceImageUpdatePending && !containsString(pending, name) {
				pending = append(pending, name)
			}
		}
		ctx.Workspace["fw_update_hosts"] = pending
	})
	if done {
		return result, ""
	}
	return ResultWait, ""
}
func (s *QueryFwUpdateHostStep) HandleEvent(ctx ExecContext, event Event, data any) bool { return false }
func (s *QueryFwUpdateHostStep) Timeout(ctx ExecContext) (Result, string)                { return ResultFailed, "query-fw-update-host timed out" }
func (s *QueryFwUpdateHostStep) AbortChain() []Step                                      { return nil }
func (s *QueryFwUpdateHostStep) AsDict() map[string]any                                  { return s.baseDict() }
func (s *QueryFwUpdateHostStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindQueryFwUpdateHost
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 60)
	s.resolveLive(tables)
	return nil
}

// FwUpdateHostsStep drives a firmware/device-image update across its host
// set, tracking per-host completion via DeviceImageUpdate state, and aborts
// via fw-update-abort-hosts against whichever hosts did not complete,
// failed ones included (spec.md section 4.2, firmware family).
type FwUpdateHostsStep struct {
	hostsBase
	lastTables *inventory.Tables

	// seenInProgress records, per host, whether an in-progress device-image
	// update has been observed. A host that regresses from in-progress back
	// to pending mid-flight fails the step immediately (spec.md section 4.2:
	// "transition back to pending mid-flight ⇒ FAILED (needs retry)").
	// Runtime-only scratch, reset on (de)serialize.
	seenInProgress map[string]bool
}

func NewFwUpdateHostsStep(hosts []string) *FwUpdateHostsStep {
	return &FwUpdateHostsStep{hostsBase: newHostsBase(KindFwUpdateHosts, 3600, hosts), seenInProgress: map[string]bool{}}
}

// unfinishedHosts returns every target host that did not cleanly complete,
// which is the abort-chain target set: a failed host still needs
// fw-update-abort-hosts to clean up its in-progress device-image update, so
// only a Completed (or never-started) host is excluded.
func (s *FwUpdateHostsStep) unfinishedHosts(tables *inventory.Tables) []string {
	var unfinished []string
	for _, name := range s.liveHosts {
		h, ok := tables.GetHost(name)
		if !ok {
			continue
		}
		switch h.DeviceImageUpdate {
		case inventory.DeviceImageUpdateCompleted, inventory.DeviceImageUpdateNone:
			continue
		default:
			unfinished = append(unfinished, name)
		}
	}
	return unfinished
}

func (s *FwUpdateHostsStep) anyFailed(tables *inventory.Tables) bool {
	for _, name := range s.liveHosts {
		if h, ok := tables.GetHost(name); ok && h.DeviceImageUpdate == inventory.DeviceImageUpdateFailed {
			return true
		}
	}
	return false
}

func (s *FwUpdateHostsStep) allTerminal(tables *inventory.Tables) bool {
	for _, name := range s.liveHosts {
		h, ok := tables.GetHost(name)
		if !ok {
			continue
		}
		if h.DeviceImageUpdate != inventory.DeviceImageUpdateCompleted && h.DeviceImageUpdate != inventory.DeviceImageUpdateFailed {
			return false
		}
	}
	return true
}

// regressedToPending updates seenInProgress from the current snapshot and
// reports the first host that was previously observed in-progress but has
// now dropped back to pending -- the mid-flight regression spec.md section
// 4.2 calls out as a hard failure rather than something to keep polling.
func (s *FwUpdateHostsStep) regressedToPending(tables *inventory.Tables) (string, bool) {
	for _, name := range s.liveHosts {
		h, ok := tables.GetHost(name)
		if !ok {
			continue
		}
		switch h.DeviceImageUpdate {
		case inventory.DeviceImageUpdateInProgress, inventory.DeviceImageUpdateInProgressAborted:
			s.seenInProgress[name] = true
		case inventory.DeviceImageUpdatePending:
			if s.seenInProgress[name] {
				return name, true
			}
		}
	}
	return "", false
}

func (s *FwUpdateHostsStep) Apply(ctx ExecContext) (Result, string) {
	s.lastTables = ctx.Tables
	op := ctx.Driver.FwUpdateHosts(s.liveHosts)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *FwUpdateHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	s.lastTables = ctx.Tables
	switch event {
	case EventHostStateChanged, EventHostAudit:
		if name, regressed := s.regressedToPending(ctx.Tables); regressed {
			ctx.StepComplete(ResultFailed, "host "+name+" needs retry (firmware update regressed to pending)")
			return true
		}
		if s.anyFailed(ctx.Tables) {
			ctx.StepComplete(ResultFailed, "firmware update failed on one or more hosts")
			return true
		}
		if s.allTerminal(ctx.Tables) {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventHostFwUpdateFailed:
		ctx.StepComplete(ResultFailed, "firmware update request failed")
		return true
	}
	return false
}

func (s *FwUpdateHostsStep) Timeout(ctx ExecContext) (Result, string) {
	s.lastTables = ctx.Tables
	return ResultFailed, "fw-update-hosts timed out"
}

// AbortChain resolves, against the most recently seen inventory snapshot,
// which target hosts did not complete their device-image update (see
// unfinishedHosts) and routes only those to fw-update-abort-hosts. If no snapshot was ever
// observed (abort before any Apply), it falls back to the full host set.
func (s *FwUpdateHostsStep) AbortChain() []Step {
	if s.lastTables == nil {
		return []Step{NewFwUpdateAbortHostsStep(s.liveHosts)}
	}
	return []Step{NewFwUpdateAbortHostsStep(s.unfinishedHosts(s.lastTables))}
}

func (s *FwUpdateHostsStep) AsDict() map[string]any { return s.baseDict() }
func (s *FwUpdateHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindFwUpdateHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 3600)
	s.resolveLive(tables)
	s.lastTables = tables
	s.seenInProgress = map[string]bool{}
	return nil
}

// FwUpdateAbortHostsStep issues a firmware-update abort against hosts whose
// device-image-update did not complete before fw-update-hosts
// failed or was aborted. Per spec.md section 4.2 it does not wait for every
// host to report an aborted terminal state -- the first HOST_AUDIT observed
// after apply completes the step.
type FwUpdateAbortHostsStep struct {
	hostsBase
	auditSeen bool
}

func NewFwUpdateAbortHostsStep(hosts []string) *FwUpdateAbortHostsStep {
	return &FwUpdateAbortHostsStep{hostsBase: newHostsBase(KindFwUpdateAbortHosts, 300, hosts)}
}

func (s *FwUpdateAbortHostsStep) Apply(ctx ExecContext) (Result, string) {
	if len(s.liveHosts) == 0 {
		return ResultSuccess, ""
	}
	s.auditSeen = false
	op := ctx.Driver.FwUpdateAbortHosts(s.liveHosts)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *FwUpdateAbortHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostAudit:
		if !s.auditSeen {
			s.auditSeen = true
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventHostFwUpdateAbortFailed:
		ctx.StepComplete(ResultFailed, "firmware update abort failed")
		return true
	}
	return false
}
func (s *FwUpdateAbortHostsStep) Timeout(ctx ExecContext) (Result, string) { return ResultFailed, "fw-update-abort-hosts timed out" }
func (s *FwUpdateAbortHostsStep) AbortChain() []Step                       { return nil }
func (s *FwUpdateAbortHostsStep) AsDict() map[string]any                  { return s.baseDict() }
func (s *FwUpdateAbortHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindFwUpdateAbortHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 300)
	s.resolveLive(tables)
	s.auditSeen = false
	return nil
}
