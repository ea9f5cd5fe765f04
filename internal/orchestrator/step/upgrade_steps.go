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

// upgradeLifecycleBase is shared by the four platform-upgrade lifecycle
// steps (start/activate/complete/query), none of which target specific
// hosts: they each issue one driver call and wait for its completion
// callback.
type upgradeLifecycleBase struct {
	kind Kind
}

func (s *upgradeLifecycleBase) Kind() Kind            { return s.kind }
func (s *upgradeLifecycleBase) Name() string          { return string(s.kind) }
func (s *upgradeLifecycleBase) TimeoutSecs() int64    { return 1800 }
func (s *upgradeLifecycleBase) EntityNames() []string { return nil }
func (s *upgradeLifecycleBase) HandleEvent(ctx ExecContext, event Event, data any) bool { return false }
func (s *upgradeLifecycleBase) Timeout(ctx ExecContext) (Result, string) {
	return ResultFailed, string(s.kind) + " timed out"
}
func (s *upgradeLifecycleBase) AbortChain() []Step { return nil }
func (s *upgradeLifecycleBase) AsDict() map[string]any {
	return map[string]any{
		"name": string(s.kind), "timeout": int64(1800),
		"entity_type": "", "entity_names": []string{}, "entity_uuids": []string{},
	}
}

func runCallback(result *Result, reason *string, done *bool, cb CallbackResult) {
	*done = true
	if cb.Completed {
		*result = ResultSuccess
	} else {
		*result, *reason = ResultFailed, cb.Reason
	}
}

// StartUpgradeStep begins the platform software-upgrade procedure.
type StartUpgradeStep struct{ upgradeLifecycleBase }

func NewStartUpgradeStep() *StartUpgradeStep {
	return &StartUpgradeStep{upgradeLifecycleBase{kind: KindStartUpgrade}}
}
func (s *StartUpgradeStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.UpgradeStart(func(cb CallbackResult) { runCallback(&result, &reason, &done, cb) })
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *StartUpgradeStep) FromDict(data map[string]any, tables *inventory.Tables) error { s.kind = KindStartUpgrade; return nil }

// ActivateUpgradeStep switches running services onto the new release.
type ActivateUpgradeStep struct{ upgradeLifecycleBase }

func NewActivateUpgradeStep() *ActivateUpgradeStep {
	return &ActivateUpgradeStep{upgradeLifecycleBase{kind: KindActivateUpgrade}}
}
func (s *ActivateUpgradeStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.UpgradeActivate(func(cb CallbackResult) { runCallback(&result, &reason, &done, cb) })
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *ActivateUpgradeStep) FromDict(data map[string]any, tables *inventory.Tables) error { s.kind = KindActivateUpgrade; return nil }

// CompleteUpgradeStep finalizes the upgrade, releasing the prior release's
// resources.
type CompleteUpgradeStep struct{ upgradeLifecycleBase }

func NewCompleteUpgradeStep() *CompleteUpgradeStep {
	return &CompleteUpgradeStep{upgradeLifecycleBase{kind: KindCompleteUpgrade}}
}
func (s *CompleteUpgradeStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.UpgradeComplete(func(cb CallbackResult) { runCallback(&result, &reason, &done, cb) })
	if done {
		return result, reason
	}
	return ResultWait, ""
}
func (s *CompleteUpgradeStep) FromDict(data map[string]any, tables *inventory.Tables) error { s.kind = KindCompleteUpgrade; return nil }

// QueryUpgradeStep refreshes the workspace's view of the platform upgrade's
// progress state (nfvi_upgrade), consulted by the builder for resume
// decisions and never failing the strategy on its own.
type QueryUpgradeStep struct{ upgradeLifecycleBase }

func NewQueryUpgradeStep() *QueryUpgradeStep {
	return &QueryUpgradeStep{upgradeLifecycleBase{kind: KindQueryUpgrade}}
}
func (s *QueryUpgradeStep) Apply(ctx ExecContext) (Result, string) {
	done := false
	ctx.Driver.GetUpgrade(func(cb CallbackResult) {
		if cb.Completed {
			ctx.Workspace["nfvi_upgrade"] = cb.ResultData
		}
		done = true
	})
	if done {
		return ResultSuccess, ""
	}
	return ResultWait, ""
}
func (s *QueryUpgradeStep) Timeout(ctx ExecContext) (Result, string) { return ResultSuccess, "" }
func (s *QueryUpgradeStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.kind = KindQueryUpgrade
	return nil
}
