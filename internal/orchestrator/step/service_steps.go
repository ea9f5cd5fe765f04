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

// DisableHostServicesStep disables a named service (e.g. a compute agent)
// across its host set ahead of a destructive action, aborting via
// enable-host-services on the same hosts.
type DisableHostServicesStep struct {
	hostsBase
	service string
}

func NewDisableHostServicesStep(hosts []string, service string) *DisableHostServicesStep {
	return &DisableHostServicesStep{hostsBase: newHostsBase(KindDisableHostServices, 300, hosts), service: service}
}

func (s *DisableHostServicesStep) allDisabled(tables *inventory.Tables) bool {
	for _, name := range s.liveHosts {
		h, ok := tables.GetHost(name)
		if !ok {
			continue
		}
		if h.HostServices[s.service] != inventory.ServiceStateDisabled {
			return false
		}
	}
	return true
}

func (s *DisableHostServicesStep) Apply(ctx ExecContext) (Result, string) {
	if s.allDisabled(ctx.Tables) {
		return ResultSuccess, ""
	}
	op := ctx.Driver.DisableHostServices(s.liveHosts, s.service)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *DisableHostServicesStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventHostAudit:
		if s.allDisabled(ctx.Tables) {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventDisableHostServicesFailed:
		ctx.StepComplete(ResultFailed, "disable host services failed")
		return true
	}
	return false
}
func (s *DisableHostServicesStep) Timeout(ctx ExecContext) (Result, string) {
	return ResultFailed, "disable-host-services timed out"
}
func (s *DisableHostServicesStep) AbortChain() []Step {
	return []Step{NewEnableHostServicesStep(s.hostNames, s.service)}
}
func (s *DisableHostServicesStep) AsDict() map[string]any {
	d := s.baseDict()
	d["service"] = s.service
	return d
}
func (s *DisableHostServicesStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindDisableHostServices
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 300)
	s.service = stringFromDict(data, "service", "")
	s.resolveLive(tables)
	return nil
}

// EnableHostServicesStep re-enables a service disabled by
// DisableHostServicesStep, either as a forward step or as its abort
// compensation.
type EnableHostServicesStep struct {
	hostsBase
	service string
}

func NewEnableHostServicesStep(hosts []string, service string) *EnableHostServicesStep {
	return &EnableHostServicesStep{hostsBase: newHostsBase(KindEnableHostServices, 300, hosts), service: service}
}

func (s *EnableHostServicesStep) allEnabled(tables *inventory.Tables) bool {
	for _, name := range s.liveHosts {
		h, ok := tables.GetHost(name)
		if !ok {
			continue
		}
		if h.HostServices[s.service] != inventory.ServiceStateEnabled {
			return false
		}
	}
	return true
}

func (s *EnableHostServicesStep) Apply(ctx ExecContext) (Result, string) {
	if s.allEnabled(ctx.Tables) {
		return ResultSuccess, ""
	}
	op := ctx.Driver.EnableHostServices(s.liveHosts, s.service)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *EnableHostServicesStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventHostAudit:
		if s.allEnabled(ctx.Tables) {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventEnableHostServicesFailed:
		ctx.StepComplete(ResultFailed, "enable host services failed")
		return true
	}
	return false
}
func (s *EnableHostServicesStep) Timeout(ctx ExecContext) (Result, string) {
	return ResultFailed, "enable-host-services timed out"
}
func (s *EnableHostServicesStep) AbortChain() []Step { return nil }
func (s *EnableHostServicesStep) AsDict() map[string]any {
	d := s.baseDict()
	d["service"] = s.service
	return d
}
func (s *EnableHostServicesStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindEnableHostServices
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 300)
	s.service = stringFromDict(data, "service", "")
	s.resolveLive(tables)
	return nil
}
