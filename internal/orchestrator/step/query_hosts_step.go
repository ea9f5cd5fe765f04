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

// QueryHostsStep refreshes a set of hosts from the platform driver without
// taking any other action. No builder currently emits this kind -- the
// controller consumes inventory updates pushed by the event ingest path
// instead of polling -- but it is kept in the closed enum and dispatch table
// for completeness and for tools/tests that want an explicit one-shot
// refresh (see SPEC_FULL.md).
type QueryHostsStep struct{ hostsBase }

func NewQueryHostsStep(hosts []string) *QueryHostsStep {
	return &QueryHostsStep{hostsBase: newHostsBase(KindQueryHosts, 60, hosts)}
}

func (s *QueryHostsStep) Apply(ctx ExecContext) (Result, string) {
	if len(s.liveHosts) == 0 {
		return ResultSuccess, ""
	}
	remaining := len(s.liveHosts)
	result := ResultSuccess
	for _, name := range s.liveHosts {
		ctx.Driver.GetHost("", name, func(cb CallbackResult) {
			remaining--
			if !cb.Completed {
				result = ResultFailed
			}
		})
	}
	if remaining == 0 {
		return result, ""
	}
	return ResultWait, ""
}
func (s *QueryHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool { return false }
func (s *QueryHostsStep) Timeout(ctx ExecContext) (Result, string)                { return ResultFailed, "query-hosts timed out" }
func (s *QueryHostsStep) AbortChain() []Step                                      { return nil }
func (s *QueryHostsStep) AsDict() map[string]any                                  { return s.baseDict() }
func (s *QueryHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindQueryHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 60)
	s.resolveLive(tables)
	return nil
}
