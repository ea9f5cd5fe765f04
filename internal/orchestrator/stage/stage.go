// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package stage implements the strategy/stage hierarchy and the controller
// that drives it: an ordered list of stages, each an ordered list of steps,
// run strictly sequentially with timeout, retry, and abort/compensation
// handling (spec.md sections 3 and 4.1).
package stage

import (
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/step"
)

// Feature: ORCHESTRATOR_STAGE_STRATEGY_CONTROLLER
// Spec: spec.md section 4.1

// Stage is an ordered list of steps sharing one result. It is terminal once
// its step list is exhausted (SUCCESS) or a step fails and its abort chain
// (if any) has been run (FAILED).
type Stage struct {
	Name    string
	Steps   []step.Step
	Current int
	Result  step.Result
	Reason  string
}

// NewStage wraps a pre-built step list under a label (e.g. "wave-1",
// "prelude") used for --stage-id addressing and reporting.
func NewStage(name string, steps []step.Step) *Stage {
	return &Stage{Name: name, Steps: steps}
}

func (s *Stage) done() bool { return s.Result == step.ResultSuccess || s.Result == step.ResultFailed }

func (s *Stage) currentStep() (step.Step, bool) {
	if s.Current < 0 || s.Current >= len(s.Steps) {
		return nil, false
	}
	return s.Steps[s.Current], true
}

// Status is the strategy's coarse lifecycle state (spec.md section 3).
type Status string

const (
	StatusBuilding     Status = "building"
	StatusReadyToApply Status = "ready-to-apply"
	StatusApplying     Status = "applying"
	StatusAborting     Status = "aborting"
	StatusApplied      Status = "applied"
	StatusFailed       Status = "failed"
	StatusAborted      Status = "aborted"
)

// Strategy is the root, persisted entity: a kind, the knobs it was built
// with, its ordered stages, and a rolling workspace steps use to hand
// query results to one another (spec.md section 3).
type Strategy struct {
	Kind      string
	Knobs     knobs.Knobs
	ToVersion string

	Stages       []*Stage
	CurrentStage int

	Status Status
	Reason string

	Workspace map[string]any

	// appliedStack records every step that has completed a successful
	// Apply/HandleEvent transition into a live state, across the whole
	// strategy, in the order they were applied. Abort walks it in reverse.
	appliedStack []step.Step
}

// NewStrategy wraps a builder's planned stages into a fresh, unapplied
// strategy.
func NewStrategy(kind string, k knobs.Knobs, toVersion string, stages []*Stage) *Strategy {
	return &Strategy{
		Kind: kind, Knobs: k, ToVersion: toVersion,
		Stages: stages, Status: StatusReadyToApply,
		Workspace: map[string]any{},
	}
}

func (s *Strategy) currentStage() (*Stage, bool) {
	if s.CurrentStage < 0 || s.CurrentStage >= len(s.Stages) {
		return nil, false
	}
	return s.Stages[s.CurrentStage], true
}
