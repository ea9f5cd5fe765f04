// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package stage

import (
	"fmt"

	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/step"
)

// Feature: ORCHESTRATOR_STAGE_STRATEGY_CONTROLLER
// Spec: spec.md section 3, 4.1

// AsDict serializes a stage's steps (each via step.Step.AsDict), current
// index, and result, matching the round-trip contract spec.md requires at
// the step level extended one level up.
func (s *Stage) AsDict() map[string]any {
	steps := make([]map[string]any, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = st.AsDict()
	}
	return map[string]any{
		"name":    s.Name,
		"steps":   steps,
		"current": s.Current,
		"result":  string(s.Result),
		"reason":  s.Reason,
	}
}

// stageFromDict re-hydrates a stage, dispatching each step via
// step.Deserialize so entities are re-resolved against the live tables.
func stageFromDict(data map[string]any, tables *inventory.Tables) (*Stage, error) {
	name, _ := data["name"].(string)
	s := &Stage{Name: name}

	rawSteps, _ := data["steps"].([]any)
	s.Steps = make([]step.Step, 0, len(rawSteps))
	for _, rs := range rawSteps {
		sd, ok := rs.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("stage %q: malformed step entry", name)
		}
		s.Steps = append(s.Steps, step.Deserialize(sd, tables))
	}

	if cur, ok := data["current"].(float64); ok {
		s.Current = int(cur)
	}
	if result, ok := data["result"].(string); ok {
		s.Result = step.Result(result)
	}
	if reason, ok := data["reason"].(string); ok {
		s.Reason = reason
	}
	return s, nil
}

// AsDict serializes the full strategy: kind, knobs, stages, positions,
// status, and workspace. The workspace is carried verbatim -- its values
// (alarm lists, sw-patch listings, kube version reports) are themselves
// already JSON-shaped by the steps that populated them.
func (s *Strategy) AsDict() map[string]any {
	stages := make([]map[string]any, len(s.Stages))
	for i, stg := range s.Stages {
		stages[i] = stg.AsDict()
	}
	return map[string]any{
		"kind":          s.Kind,
		"knobs":         knobsAsDict(s.Knobs),
		"to_version":    s.ToVersion,
		"stages":        stages,
		"current_stage": s.CurrentStage,
		"status":        string(s.Status),
		"reason":        s.Reason,
		"workspace":     s.Workspace,
	}
}

// FromDict re-hydrates a strategy from its serialized form, re-resolving
// every step's entities against the live inventory tables (spec.md section
// 4.2's version-tolerant deserialization contract, applied transitively).
func FromDict(data map[string]any, tables *inventory.Tables) (*Strategy, error) {
	s := &Strategy{Workspace: map[string]any{}}

	s.Kind, _ = data["kind"].(string)
	s.ToVersion, _ = data["to_version"].(string)
	if kd, ok := data["knobs"].(map[string]any); ok {
		s.Knobs = knobsFromDict(kd)
	}
	if status, ok := data["status"].(string); ok {
		s.Status = Status(status)
	}
	if reason, ok := data["reason"].(string); ok {
		s.Reason = reason
	}
	if ws, ok := data["workspace"].(map[string]any); ok {
		s.Workspace = ws
	}
	if cur, ok := data["current_stage"].(float64); ok {
		s.CurrentStage = int(cur)
	}

	rawStages, _ := data["stages"].([]any)
	s.Stages = make([]*Stage, 0, len(rawStages))
	for _, rs := range rawStages {
		sd, ok := rs.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("malformed stage entry")
		}
		stg, err := stageFromDict(sd, tables)
		if err != nil {
			return nil, err
		}
		s.Stages = append(s.Stages, stg)
	}
	return s, nil
}

func personalityAsDict(p knobs.PersonalityKnobs) map[string]any {
	return map[string]any{
		"apply":                     string(p.Apply),
		"max_parallel_worker_hosts": p.MaxParallelWorkerHosts,
		"instance_action":           string(p.InstanceAction),
	}
}

func personalityFromDict(data map[string]any) knobs.PersonalityKnobs {
	p := knobs.PersonalityKnobs{}
	if v, ok := data["apply"].(string); ok {
		p.Apply = knobs.ApplyType(v)
	}
	if v, ok := data["max_parallel_worker_hosts"].(float64); ok {
		p.MaxParallelWorkerHosts = int(v)
	}
	if v, ok := data["instance_action"].(string); ok {
		p.InstanceAction = knobs.InstanceAction(v)
	}
	return p
}

func knobsAsDict(k knobs.Knobs) map[string]any {
	ignore := append([]string(nil), k.IgnoreAlarms...)
	return map[string]any{
		"controller":        personalityAsDict(k.Controller),
		"storage":           personalityAsDict(k.Storage),
		"worker":            personalityAsDict(k.Worker),
		"alarm_restriction": string(k.AlarmRestriction),
		"ignore_alarms":     ignore,
	}
}

func knobsFromDict(data map[string]any) knobs.Knobs {
	k := knobs.Knobs{}
	if v, ok := data["controller"].(map[string]any); ok {
		k.Controller = personalityFromDict(v)
	}
	if v, ok := data["storage"].(map[string]any); ok {
		k.Storage = personalityFromDict(v)
	}
	if v, ok := data["worker"].(map[string]any); ok {
		k.Worker = personalityFromDict(v)
	}
	if v, ok := data["alarm_restriction"].(string); ok {
		k.AlarmRestriction = knobs.AlarmRestriction(v)
	}
	if v, ok := data["ignore_alarms"].([]any); ok {
		for _, a := range v {
			if str, ok := a.(string); ok {
				k.IgnoreAlarms = append(k.IgnoreAlarms, str)
			}
		}
	}
	return k
}
