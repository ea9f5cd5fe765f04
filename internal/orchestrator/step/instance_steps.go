// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package step

import (
	"fmt"

	"fleetctl/internal/orchestrator/inventory"
)

// MigrateInstancesStep fails immediately if any captured instance has moved
// off the host it was captured on (spec.md section 3 invariant), else
// invokes the instance-director and succeeds once no instance remains on
// any originally-captured source host.
type MigrateInstancesStep struct {
	instancesBase
	sourceHosts map[string]bool
}

func NewMigrateInstancesStep(instanceUUIDs []string, tables *inventory.Tables) *MigrateInstancesStep {
	base := newInstancesBase(KindMigrateInstances, 1800, instanceUUIDs, tables)
	sources := make(map[string]bool, len(base.capturedHost))
	for _, host := range base.capturedHost {
		sources[host] = true
	}
	return &MigrateInstancesStep{instancesBase: base, sourceHosts: sources}
}

func (s *MigrateInstancesStep) movedFailure(tables *inventory.Tables) (Result, string, bool) {
	if uuid, from, to, moved := s.movedInstance(tables); moved {
		return ResultFailed, fmt.Sprintf("instance %s has moved from %s to %s", uuid, from, to), true
	}
	return "", "", false
}

func (s *MigrateInstancesStep) sourcesEmpty(tables *inventory.Tables) bool {
	for host := range s.sourceHosts {
		if tables.ExistOnHost(host) {
			return false
		}
	}
	return true
}

func (s *MigrateInstancesStep) Apply(ctx ExecContext) (Result, string) {
	if r, reason, moved := s.movedFailure(ctx.Tables); moved {
		return r, reason
	}
	if s.sourcesEmpty(ctx.Tables) {
		return ResultSuccess, ""
	}
	op := ctx.Driver.MigrateInstances(s.instanceUUIDs)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *MigrateInstancesStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventInstanceStateChanged, EventInstanceAudit:
		if r, reason, moved := s.movedFailure(ctx.Tables); moved {
			ctx.StepComplete(r, reason)
			return true
		}
		if s.sourcesEmpty(ctx.Tables) {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventMigrateInstancesFailed:
		ctx.StepComplete(ResultFailed, "instance migration failed")
		return true
	}
	return false
}

func (s *MigrateInstancesStep) Timeout(ctx ExecContext) (Result, string) { return ResultFailed, "migrate-instances timed out" }
func (s *MigrateInstancesStep) AbortChain() []Step                       { return nil }
func (s *MigrateInstancesStep) AsDict() map[string]any                   { return s.baseDict() }
func (s *MigrateInstancesStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindMigrateInstances
	s.instanceUUIDs = stringsFromAny(data["entity_uuids"])
	s.timeoutSecs = intFromDict(data, "timeout", 1800)
	s.capturedHost = capturedHostsFromDict(data)
	s.resolveLive(tables)
	s.sourceHosts = make(map[string]bool, len(s.capturedHost))
	for _, host := range s.capturedHost {
		s.sourceHosts[host] = true
	}
	return nil
}

// StopInstancesStep stops guest workloads before a lock; succeeds once all
// target hosts report locked+disabled.
type StopInstancesStep struct {
	instancesBase
}

func NewStopInstancesStep(instanceUUIDs []string, tables *inventory.Tables) *StopInstancesStep {
	return &StopInstancesStep{instancesBase: newInstancesBase(KindStopInstances, 900, instanceUUIDs, tables)}
}

func (s *StopInstancesStep) targetsStopped(tables *inventory.Tables) bool {
	for _, uuid := range s.instanceUUIDs {
		host, known := s.capturedHost[uuid]
		if !known {
			continue
		}
		h, ok := tables.GetHost(host)
		if !ok || !(h.IsLocked() && h.IsDisabled()) {
			return false
		}
	}
	return true
}

func (s *StopInstancesStep) Apply(ctx ExecContext) (Result, string) {
	if r, reason, moved := movedCheck(s.instancesBase, ctx.Tables); moved {
		return r, reason
	}
	if s.targetsStopped(ctx.Tables) {
		return ResultSuccess, ""
	}
	op := ctx.Driver.StopInstances(s.instanceUUIDs)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *StopInstancesStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventHostAudit:
		if s.targetsStopped(ctx.Tables) {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventMigrateInstancesFailed:
		ctx.StepComplete(ResultFailed, "stop instances failed")
		return true
	}
	return false
}

func (s *StopInstancesStep) Timeout(ctx ExecContext) (Result, string) { return ResultFailed, "stop-instances timed out" }
func (s *StopInstancesStep) AbortChain() []Step {
	start := NewStartInstancesStep(s.instanceUUIDs, nil)
	for uuid, host := range s.capturedHost {
		start.capturedHost[uuid] = host
	}
	return []Step{start}
}
func (s *StopInstancesStep) AsDict() map[string]any { return s.baseDict() }
func (s *StopInstancesStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindStopInstances
	s.instanceUUIDs = stringsFromAny(data["entity_uuids"])
	s.timeoutSecs = intFromDict(data, "timeout", 900)
	s.capturedHost = capturedHostsFromDict(data)
	s.resolveLive(tables)
	return nil
}

// StartInstancesStep starts guest workloads after an unlock, appended after
// unlock-hosts in the stop-start instance-action wave; succeeds once all
// target hosts report enabled. tables may be nil when constructed purely as
// an abort-chain continuation (captured hosts already known).
type StartInstancesStep struct {
	instancesBase
}

func NewStartInstancesStep(instanceUUIDs []string, tables *inventory.Tables) *StartInstancesStep {
	if tables == nil {
		return &StartInstancesStep{instancesBase: instancesBase{
			name: KindStartInstances, timeoutSecs: 900,
			instanceUUIDs: append([]string(nil), instanceUUIDs...),
			capturedHost:  map[string]string{},
			liveInstances: append([]string(nil), instanceUUIDs...),
		}}
	}
	return &StartInstancesStep{instancesBase: newInstancesBase(KindStartInstances, 900, instanceUUIDs, tables)}
}

func (s *StartInstancesStep) targetsStarted(tables *inventory.Tables) bool {
	for _, uuid := range s.instanceUUIDs {
		host, known := s.capturedHost[uuid]
		if !known {
			continue
		}
		h, ok := tables.GetHost(host)
		if !ok || !h.IsEnabled() {
			return false
		}
	}
	return true
}

func (s *StartInstancesStep) Apply(ctx ExecContext) (Result, string) {
	if s.targetsStarted(ctx.Tables) {
		return ResultSuccess, ""
	}
	op := ctx.Driver.StartInstances(s.instanceUUIDs)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *StartInstancesStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventHostAudit:
		if s.targetsStarted(ctx.Tables) {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	}
	return false
}

func (s *StartInstancesStep) Timeout(ctx ExecContext) (Result, string) { return ResultFailed, "start-instances timed out" }
func (s *StartInstancesStep) AbortChain() []Step                       { return nil }
func (s *StartInstancesStep) AsDict() map[string]any                   { return s.baseDict() }
func (s *StartInstancesStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindStartInstances
	s.instanceUUIDs = stringsFromAny(data["entity_uuids"])
	s.timeoutSecs = intFromDict(data, "timeout", 900)
	s.capturedHost = capturedHostsFromDict(data)
	s.resolveLive(tables)
	return nil
}

func movedCheck(b instancesBase, tables *inventory.Tables) (Result, string, bool) {
	if uuid, from, to, moved := b.movedInstance(tables); moved {
		return ResultFailed, fmt.Sprintf("instance %s has moved from %s to %s", uuid, from, to), true
	}
	return "", "", false
}

func capturedHostsFromDict(data map[string]any) map[string]string {
	out := map[string]string{}
	raw, _ := data["captured_hosts"].(map[string]any)
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
