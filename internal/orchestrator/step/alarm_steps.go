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
	"sort"
	"strings"

	"fleetctl/internal/orchestrator/inventory"
)

// Alarm is a fleet alarm as reported by the platform driver.
type Alarm struct {
	ID             string
	MgmtAffecting  string // "True" / "False", matching the source's string encoding
}

// AlarmRestriction controls whether query-alarms additionally drops
// non-management-affecting alarms.
type AlarmRestriction string

const (
	AlarmRestrictionStrict  AlarmRestriction = "strict"
	AlarmRestrictionRelaxed AlarmRestriction = "relaxed"
)

// SystemStabilizeStep waits out a settle period. It is the one step kind
// whose default timeout policy is SUCCESS rather than FAILED.
type SystemStabilizeStep struct {
	timeoutSecs     int64
	appliedAtMillis int64
}

func NewSystemStabilizeStep(timeoutSecs int64) *SystemStabilizeStep {
	if timeoutSecs <= 0 {
		timeoutSecs = 60
	}
	return &SystemStabilizeStep{timeoutSecs: timeoutSecs}
}

func (s *SystemStabilizeStep) Kind() Kind         { return KindSystemStabilize }
func (s *SystemStabilizeStep) Name() string       { return string(KindSystemStabilize) }
func (s *SystemStabilizeStep) TimeoutSecs() int64 { return s.timeoutSecs }
func (s *SystemStabilizeStep) EntityNames() []string { return nil }

func (s *SystemStabilizeStep) Apply(ctx ExecContext) (Result, string) {
	s.appliedAtMillis = ctx.Clock.MonotonicMillis()
	return ResultWait, ""
}

func (s *SystemStabilizeStep) HandleEvent(ctx ExecContext, event Event, data any) bool {
	switch event {
	case EventHostStateChanged, EventInstanceStateChanged:
		ctx.StepComplete(ResultFailed, "fleet state changed during system stabilize")
		return true
	}
	return false
}

func (s *SystemStabilizeStep) Timeout(ctx ExecContext) (Result, string) { return ResultSuccess, "" }
func (s *SystemStabilizeStep) AbortChain() []Step                       { return nil }
func (s *SystemStabilizeStep) AsDict() map[string]any {
	return map[string]any{
		"name":         string(KindSystemStabilize),
		"timeout":      s.timeoutSecs,
		"entity_type":  "",
		"entity_names": []string{},
		"entity_uuids": []string{},
	}
}
func (s *SystemStabilizeStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.timeoutSecs = intFromDict(data, "timeout", 60)
	s.appliedAtMillis = 0
	return nil
}

// QueryAlarmsStep queries active alarms, filters by ignore-list (and, in
// relaxed mode, drops non-management-affecting alarms), and fails when
// FailOnAlarms is set and a residual list remains.
type QueryAlarmsStep struct {
	ignoreList   []string
	restriction  AlarmRestriction
	failOnAlarms bool
}

func NewQueryAlarmsStep(ignoreList []string, restriction AlarmRestriction, failOnAlarms bool) *QueryAlarmsStep {
	return &QueryAlarmsStep{ignoreList: append([]string(nil), ignoreList...), restriction: restriction, failOnAlarms: failOnAlarms}
}

func (s *QueryAlarmsStep) Kind() Kind         { return KindQueryAlarms }
func (s *QueryAlarmsStep) Name() string       { return string(KindQueryAlarms) }
func (s *QueryAlarmsStep) TimeoutSecs() int64 { return 60 }
func (s *QueryAlarmsStep) EntityNames() []string { return nil }

func (s *QueryAlarmsStep) residual(alarms []Alarm) []string {
	ignored := make(map[string]bool, len(s.ignoreList))
	for _, id := range s.ignoreList {
		ignored[id] = true
	}
	var remaining []string
	for _, a := range alarms {
		if ignored[a.ID] {
			continue
		}
		if s.restriction == AlarmRestrictionRelaxed && a.MgmtAffecting == "False" {
			continue
		}
		remaining = append(remaining, a.ID)
	}
	sort.Strings(remaining)
	return remaining
}

func (s *QueryAlarmsStep) Apply(ctx ExecContext) (Result, string) {
	var result Result
	var reason string
	done := false
	ctx.Driver.GetAlarms(func(cb CallbackResult) {
		if !cb.Completed {
			result, reason = ResultFailed, cb.Reason
			done = true
			return
		}
		alarms, _ := cb.ResultData.([]Alarm)
		ctx.Workspace["nfvi_alarms"] = alarms
		remaining := s.residual(alarms)
		if s.failOnAlarms && len(remaining) > 0 {
			result = ResultFailed
			reason = fmt.Sprintf("alarms present: %s", strings.Join(remaining, ","))
		} else {
			result = ResultSuccess
		}
		done = true
	})
	if done {
		return result, reason
	}
	return ResultWait, ""
}

func (s *QueryAlarmsStep) HandleEvent(ctx ExecContext, event Event, data any) bool { return false }
func (s *QueryAlarmsStep) Timeout(ctx ExecContext) (Result, string)                { return ResultFailed, "query-alarms timed out" }
func (s *QueryAlarmsStep) AbortChain() []Step                                      { return nil }
func (s *QueryAlarmsStep) AsDict() map[string]any {
	return map[string]any{
		"name":           string(KindQueryAlarms),
		"timeout":        int64(60),
		"entity_type":    "",
		"entity_names":   []string{},
		"entity_uuids":   []string{},
		"ignore_list":    append([]string(nil), s.ignoreList...),
		"restriction":    string(s.restriction),
		"fail_on_alarms": s.failOnAlarms,
	}
}
func (s *QueryAlarmsStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.ignoreList = stringsFromAny(data["ignore_list"])
	s.restriction = AlarmRestriction(stringFromDict(data, "restriction", string(AlarmRestrictionStrict)))
	s.failOnAlarms = boolFromDict(data, "fail_on_alarms", false)
	return nil
}

// waitAlarmsBase is shared by wait-data-sync and wait-alarms-clear: both
// return WAIT immediately and poll on HOST_AUDIT once FirstQueryDelaySecs
// has elapsed, succeeding once the residual alarm list is empty.
type waitAlarmsBase struct {
	kind                Kind
	timeoutSecs         int64
	firstQueryDelaySecs int64
	ignoreList          []string
	restriction         AlarmRestriction

	appliedAtMillis int64
	queryInProgress bool
}

func (s *waitAlarmsBase) Kind() Kind         { return s.kind }
func (s *waitAlarmsBase) Name() string       { return string(s.kind) }
func (s *waitAlarmsBase) TimeoutSecs() int64 { return s.timeoutSecs }
func (s *waitAlarmsBase) EntityNames() []string { return nil }

func (s *waitAlarmsBase) Apply(ctx ExecContext) (Result, string) {
	s.appliedAtMillis = ctx.Clock.MonotonicMillis()
	return ResultWait, ""
}

func (s *waitAlarmsBase) residual(alarms []Alarm) []string {
	ignored := make(map[string]bool, len(s.ignoreList))
	for _, id := range s.ignoreList {
		ignored[id] = true
	}
	var remaining []string
	for _, a := range alarms {
		if ignored[a.ID] {
			continue
		}
		if s.restriction == AlarmRestrictionRelaxed && a.MgmtAffecting == "False" {
			continue
		}
		remaining = append(remaining, a.ID)
	}
	return remaining
}

func (s *waitAlarmsBase) HandleEvent(ctx ExecContext, event Event, data any) bool {
	if event != EventHostAudit || s.queryInProgress {
		return event == EventHostAudit
	}
	elapsed := (ctx.Clock.MonotonicMillis() - s.appliedAtMillis) / 1000
	if elapsed < s.firstQueryDelaySecs {
		return true
	}
	s.queryInProgress = true
	ctx.Driver.GetAlarms(func(cb CallbackResult) {
		s.queryInProgress = false
		if !cb.Completed {
			ctx.StepComplete(ResultFailed, cb.Reason)
			return
		}
		alarms, _ := cb.ResultData.([]Alarm)
		if len(s.residual(alarms)) == 0 {
			ctx.StepComplete(ResultSuccess, "")
		}
	})
	return true
}

func (s *waitAlarmsBase) Timeout(ctx ExecContext) (Result, string) {
	return ResultFailed, fmt.Sprintf("%s timed out waiting for alarms to clear", s.kind)
}
func (s *waitAlarmsBase) AbortChain() []Step { return nil }

func (s *waitAlarmsBase) baseDict() map[string]any {
	return map[string]any{
		"name":                   string(s.kind),
		"timeout":                s.timeoutSecs,
		"entity_type":            "",
		"entity_names":           []string{},
		"entity_uuids":           []string{},
		"first_query_delay_secs": s.firstQueryDelaySecs,
		"ignore_list":            append([]string(nil), s.ignoreList...),
		"restriction":            string(s.restriction),
	}
}

func (s *waitAlarmsBase) fromDict(kind Kind, data map[string]any, defaultTimeout int64) {
	s.kind = kind
	s.timeoutSecs = intFromDict(data, "timeout", defaultTimeout)
	s.firstQueryDelaySecs = intFromDict(data, "first_query_delay_secs", 60)
	s.ignoreList = stringsFromAny(data["ignore_list"])
	s.restriction = AlarmRestriction(stringFromDict(data, "restriction", string(AlarmRestrictionStrict)))
	s.appliedAtMillis = 0
	s.queryInProgress = false
}

// WaitDataSyncStep waits until database/config replication alarms clear.
type WaitDataSyncStep struct{ waitAlarmsBase }

func NewWaitDataSyncStep(timeoutSecs, firstQueryDelaySecs int64, ignoreList []string, restriction AlarmRestriction) *WaitDataSyncStep {
	return &WaitDataSyncStep{waitAlarmsBase{
		kind: KindWaitDataSync, timeoutSecs: timeoutSecs, firstQueryDelaySecs: firstQueryDelaySecs,
		ignoreList: append([]string(nil), ignoreList...), restriction: restriction,
	}}
}
func (s *WaitDataSyncStep) AsDict() map[string]any { return s.baseDict() }
func (s *WaitDataSyncStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.fromDict(KindWaitDataSync, data, 1800)
	return nil
}

// WaitAlarmsClearStep waits until the full fleet alarm list clears.
type WaitAlarmsClearStep struct{ waitAlarmsBase }

func NewWaitAlarmsClearStep(timeoutSecs, firstQueryDelaySecs int64, ignoreList []string, restriction AlarmRestriction) *WaitAlarmsClearStep {
	return &WaitAlarmsClearStep{waitAlarmsBase{
		kind: KindWaitAlarmsClear, timeoutSecs: timeoutSecs, firstQueryDelaySecs: firstQueryDelaySecs,
		ignoreList: append([]string(nil), ignoreList...), restriction: restriction,
	}}
}
func (s *WaitAlarmsClearStep) AsDict() map[string]any { return s.baseDict() }
func (s *WaitAlarmsClearStep) FromDict(data map[string]any, tables *inventory.Tables) error {
	s.fromDict(KindWaitAlarmsClear, data, 1800)
	return nil
}
