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

// LockHostsStep refuses to lock a host with a running, undisabled instance
// on it, then drives lock-hosts to completion (spec.md section 4.2).
type LockHostsStep struct {
	hostsBase
	waitUntilDisabled bool
}

// NewLockHostsStep builds a lock-hosts step. If waitUntilDisabled is true,
// SUCCESS additionally requires every target to be operationally disabled.
func NewLockHostsStep(hosts []string, waitUntilDisabled bool) *LockHostsStep {
	return &LockHostsStep{
		hostsBase:         newHostsBase(KindLockHosts, 900, hosts),
		waitUntilDisabled: waitUntilDisabled,
	}
}

func (s *LockHostsStep) allTargetsLocked(tables *inventory.Tables) (bool, bool) {
	total := 0
	for _, name := range s.hostNames {
		h, ok := tables.GetHost(name)
		if !ok {
			continue
		}
		if h.IsLocked() && (!s.waitUntilDisabled || h.IsDisabled()) {
			total++
		}
	}
	return total == len(s.hostNames), total == len(s.hostNames)
}

func (s *LockHostsStep) Apply(ctx ExecContext) (Result, string) {
	for _, name := range s.hostNames {
		if ctx.Tables.ExistOnHost(name) {
			for _, inst := range ctx.Tables.OnHost(name) {
				if !(inst.Admin == inventory.AdminLocked && inst.Oper == inventory.OperDisabled) {
					return ResultFailed, fmt.Sprintf("host %s has instance %s that is not locked and disabled", name, inst.Name)
				}
			}
		}
	}
	if done, _ := s.allTargetsLocked(ctx.Tables); done {
		return ResultSuccess, ""
	}
	op := ctx.Driver.LockHosts(s.hostNames)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *LockHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventHostAudit:
		if done, _ := s.allTargetsLocked(ctx.Tables); done {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventHostLockFailed:
		if d, ok := data.(HostEventData); ok && containsString(s.hostNames, d.HostName) {
			ctx.StepComplete(ResultFailed, fmt.Sprintf("host %s lock failed", d.HostName))
			return true
		}
	}
	return false
}

func (s *LockHostsStep) Timeout(ctx ExecContext) (Result, string) {
	return ResultFailed, "lock-hosts timed out"
}

func (s *LockHostsStep) AbortChain() []Step {
	return []Step{NewUnlockHostsStep(s.hostNames, 0, UnlockRetryDelayDefault)}
}

func (s *LockHostsStep) AsDict() map[string]any {
	d := s.baseDict()
	d["wait_until_disabled"] = s.waitUntilDisabled
	return d
}

func (s *LockHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindLockHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 900)
	s.waitUntilDisabled = boolFromDict(data, "wait_until_disabled", false)
	s.resolveLive(tables)
	return nil
}

// UnlockHostsStep implements the retrying unlock documented in spec.md's
// step table and grounded on the source's UnlockHostsStep._trigger_retry.
const (
	UnlockMaxRetriesDefault = 5
	UnlockRetryDelayDefault = 120
)

type UnlockHostsStep struct {
	hostsBase
	retryCount int64
	retryDelay int64

	// non-persisted scratch, reset on (de)serialize
	retriesLeft    map[string]int64
	retryRequested bool
	waitTimeMillis int64
}

// NewUnlockHostsStep builds an unlock-hosts step. retryCount is the number
// of retries allowed per host; retryDelay is the monotonic seconds to wait
// before re-issuing unlock after a failure.
func NewUnlockHostsStep(hosts []string, retryCount, retryDelay int64) *UnlockHostsStep {
	if retryDelay <= 0 {
		retryDelay = UnlockRetryDelayDefault
	}
	s := &UnlockHostsStep{
		hostsBase:  newHostsBase(KindUnlockHosts, 1800, hosts),
		retryCount: retryCount,
		retryDelay: retryDelay,
	}
	s.resetRetries()
	return s
}

func (s *UnlockHostsStep) resetRetries() {
	s.retriesLeft = make(map[string]int64, len(s.hostNames))
	for _, name := range s.hostNames {
		s.retriesLeft[name] = s.retryCount
	}
	s.retryRequested = false
	s.waitTimeMillis = 0
}

func (s *UnlockHostsStep) totalUnlockedEnabled(tables *inventory.Tables) (count int, allExist bool) {
	for _, name := range s.hostNames {
		h, ok := tables.GetHost(name)
		if !ok {
			return count, false
		}
		if h.IsUnlocked() && h.IsEnabled() {
			count++
		}
	}
	return count, true
}

func (s *UnlockHostsStep) Apply(ctx ExecContext) (Result, string) {
	count, _ := s.totalUnlockedEnabled(ctx.Tables)
	if count == len(s.hostNames) {
		return ResultSuccess, ""
	}
	op := ctx.Driver.UnlockHosts(s.hostNames)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	return ResultWait, ""
}

func (s *UnlockHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventHostAudit:
		count, allExist := s.totalUnlockedEnabled(ctx.Tables)
		if !allExist {
			ctx.StepComplete(ResultFailed, "host no longer exists")
			return true
		}
		if count == len(s.hostNames) {
			ctx.StepComplete(ResultSuccess, "")
			return true
		}
		if s.retryRequested {
			elapsed := (ctx.Clock.MonotonicMillis() - s.waitTimeMillis) / 1000
			if elapsed >= s.retryDelay {
				s.retryRequested = false
				op := ctx.Driver.UnlockHosts(s.hostNames)
				if op.IsFailed() {
					ctx.StepComplete(ResultFailed, "host unlock failed")
				}
			}
		}
		return true
	case EventHostUnlockFailed:
		d, ok := data.(HostEventData)
		if !ok || !containsString(s.hostNames, d.HostName) {
			return false
		}
		h, exists := ctx.Tables.GetHost(d.HostName)
		if exists && h.IsLocked() && s.retriesLeft[d.HostName] > 0 {
			s.retriesLeft[d.HostName]--
			s.retryRequested = true
			s.waitTimeMillis = ctx.Clock.MonotonicMillis()
		} else {
			ctx.StepComplete(ResultFailed, "host unlock failed")
		}
		return true
	}
	return false
}

func (s *UnlockHostsStep) Timeout(ctx ExecContext) (Result, string) {
	return ResultFailed, "unlock-hosts timed out"
}

func (s *UnlockHostsStep) AbortChain() []Step { return nil }

func (s *UnlockHostsStep) AsDict() map[string]any {
	d := s.baseDict()
	d["retry_count"] = s.retryCount
	d["retry_delay"] = s.retryDelay
	return d
}

func (s *UnlockHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindUnlockHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 1800)
	s.retryCount = intFromDict(data, "retry_count", 0)
	s.retryDelay = intFromDict(data, "retry_delay", UnlockRetryDelayDefault)
	s.resolveLive(tables)
	s.resetRetries()
	return nil
}

// RebootHostsStep succeeds once at least 60s elapsed since apply, observed
// on a HOST_AUDIT heartbeat.
type RebootHostsStep struct {
	hostsBase
	appliedAtMillis int64
}

func NewRebootHostsStep(hosts []string) *RebootHostsStep {
	return &RebootHostsStep{hostsBase: newHostsBase(KindRebootHosts, 900, hosts)}
}

func (s *RebootHostsStep) Apply(ctx ExecContext) (Result, string) {
	op := ctx.Driver.RebootHosts(s.hostNames)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	s.appliedAtMillis = ctx.Clock.MonotonicMillis()
	return ResultWait, ""
}

func (s *RebootHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostAudit:
		if (ctx.Clock.MonotonicMillis()-s.appliedAtMillis)/1000 >= 60 {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventHostRebootFailed:
		if d, ok := data.(HostEventData); ok && containsString(s.hostNames, d.HostName) {
			ctx.StepComplete(ResultFailed, fmt.Sprintf("host %s reboot failed", d.HostName))
			return true
		}
	}
	return false
}

func (s *RebootHostsStep) Timeout(ctx ExecContext) (Result, string) { return ResultFailed, "reboot-hosts timed out" }
func (s *RebootHostsStep) AbortChain() []Step                       { return nil }
func (s *RebootHostsStep) AsDict() map[string]any                   { return s.baseDict() }
func (s *RebootHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindRebootHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 900)
	s.resolveLive(tables)
	s.appliedAtMillis = 0
	return nil
}

// SwactHostsStep succeeds once at least 120s elapsed since apply.
type SwactHostsStep struct {
	hostsBase
	appliedAtMillis int64
}

func NewSwactHostsStep(hosts []string) *SwactHostsStep {
	return &SwactHostsStep{hostsBase: newHostsBase(KindSwactHosts, 900, hosts)}
}

func (s *SwactHostsStep) Apply(ctx ExecContext) (Result, string) {
	op := ctx.Driver.SwactHosts(s.hostNames)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	s.appliedAtMillis = ctx.Clock.MonotonicMillis()
	return ResultWait, ""
}

func (s *SwactHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostAudit:
		if (ctx.Clock.MonotonicMillis()-s.appliedAtMillis)/1000 >= 120 {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventHostSwactFailed:
		if d, ok := data.(HostEventData); ok && containsString(s.hostNames, d.HostName) {
			ctx.StepComplete(ResultFailed, fmt.Sprintf("host %s swact failed", d.HostName))
			return true
		}
	}
	return false
}

func (s *SwactHostsStep) Timeout(ctx ExecContext) (Result, string) { return ResultFailed, "swact-hosts timed out" }
func (s *SwactHostsStep) AbortChain() []Step                       { return nil }
func (s *SwactHostsStep) AsDict() map[string]any                   { return s.baseDict() }
func (s *SwactHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindSwactHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 900)
	s.resolveLive(tables)
	s.appliedAtMillis = 0
	return nil
}

// UpgradeHostsStep succeeds once ≥120s elapsed and every target reports
// online with target_load == software_load == ToVersion.
type UpgradeHostsStep struct {
	hostsBase
	toVersion       string
	appliedAtMillis int64
}

func NewUpgradeHostsStep(hosts []string, toVersion string) *UpgradeHostsStep {
	return &UpgradeHostsStep{hostsBase: newHostsBase(KindUpgradeHosts, 3600, hosts), toVersion: toVersion}
}

func (s *UpgradeHostsStep) allUpgraded(tables *inventory.Tables) (bool, bool) {
	for _, name := range s.hostNames {
		h, ok := tables.GetHost(name)
		if !ok {
			return false, false
		}
		if !(h.IsOnline() && h.TargetLoad == s.toVersion && h.SoftwareLoad == s.toVersion) {
			return false, true
		}
	}
	return true, true
}

func (s *UpgradeHostsStep) Apply(ctx ExecContext) (Result, string) {
	op := ctx.Driver.UpgradeHosts(s.hostNames)
	if op.IsFailed() {
		return ResultFailed, op.Reason()
	}
	s.appliedAtMillis = ctx.Clock.MonotonicMillis()
	return ResultWait, ""
}

func (s *UpgradeHostsStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostAudit:
		if (ctx.Clock.MonotonicMillis()-s.appliedAtMillis)/1000 < 120 {
			return true
		}
		done, allExist := s.allUpgraded(ctx.Tables)
		if !allExist {
			ctx.StepComplete(ResultFailed, "host no longer exists")
			return true
		}
		if done {
			ctx.StepComplete(ResultSuccess, "")
		}
		return true
	case EventHostUpgradeFailed:
		if d, ok := data.(HostEventData); ok && containsString(s.hostNames, d.HostName) {
			ctx.StepComplete(ResultFailed, fmt.Sprintf("host %s upgrade failed", d.HostName))
			return true
		}
	}
	return false
}

func (s *UpgradeHostsStep) Timeout(ctx ExecContext) (Result, string) { return ResultFailed, "upgrade-hosts timed out" }
func (s *UpgradeHostsStep) AbortChain() []Step                       { return nil }
func (s *UpgradeHostsStep) AsDict() map[string]any {
	d := s.baseDict()
	d["to_version"] = s.toVersion
	return d
}
func (s *UpgradeHostsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.name = KindUpgradeHosts
	s.hostNames = stringsFromAny(data["entity_names"])
	s.timeoutSecs = intFromDict(data, "timeout", 3600)
	s.toVersion = stringFromDict(data, "to_version", "")
	s.resolveLive(tables)
	s.appliedAtMillis = 0
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
