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
	"fleetctl/internal/orchestrator/platform"
	"fleetctl/internal/orchestrator/step"
)

// Feature: ORCHESTRATOR_STAGE_STRATEGY_CONTROLLER
// Spec: spec.md section 4.1

// Controller drives one Strategy's stages to completion, routing fleet
// events and timeouts to whichever step is current, and handling the
// abort/compensation chain when a step fails or an operator aborts.
//
// A Controller holds no process-global state: the driver, inventory
// tables, and clock are all injected, matching the no-globals discipline
// step.ExecContext already follows (spec.md section 9).
type Controller struct {
	Driver   platform.Driver
	Tables   *inventory.Tables
	Clock    step.Clock
	Strategy *Strategy

	// abortSteps/abortIndex hold the flattened compensation sequence built
	// by beginAbort, walked like an extra synthetic stage.
	abortSteps []step.Step
	abortIndex int

	deadlineMillis int64
	generation     uint64
	stepDone       bool
}

// NewController wires a strategy to the driver/tables/clock it will run
// against. The strategy must be in status ready-to-apply, or applying/
// aborting if this is a resume after a restart (spec.md section 4.1).
func NewController(driver platform.Driver, tables *inventory.Tables, clock step.Clock, strategy *Strategy) *Controller {
	return &Controller{Driver: driver, Tables: tables, Clock: clock, Strategy: strategy}
}

// Apply transitions a ready-to-apply strategy to applying and begins stage
// 0, step 0.
func (c *Controller) Apply() error {
	s := c.Strategy
	if s.Status != StatusReadyToApply {
		return fmt.Errorf("cannot apply strategy in status %q", s.Status)
	}
	s.Status = StatusApplying
	s.CurrentStage = 0
	return c.runCurrent()
}

// ApplyStage re-enters the applying state at a specific stage, or resumes
// the current one if stageID is nil. It is the entry point a process
// restart uses after deserializing a strategy that was mid-flight.
func (c *Controller) ApplyStage(stageID *int) error {
	s := c.Strategy
	if s.Status != StatusApplying && s.Status != StatusReadyToApply {
		return fmt.Errorf("cannot apply-stage while strategy is %q", s.Status)
	}
	if stageID != nil {
		if *stageID < 0 || *stageID >= len(s.Stages) {
			return fmt.Errorf("stage id %d out of range (have %d stages)", *stageID, len(s.Stages))
		}
		s.CurrentStage = *stageID
	}
	s.Status = StatusApplying
	return c.runCurrent()
}

// Abort transitions the strategy to aborting and schedules the abort chain
// for every already-applied step, in reverse application order (spec.md
// section 4.1). stageID is accepted for future stage-scoped abort but the
// current implementation always compensates the full applied stack; see
// DESIGN.md for the open-question decision.
func (c *Controller) Abort(stageID *int) error {
	s := c.Strategy
	if s.Status != StatusApplying && s.Status != StatusReadyToApply {
		return fmt.Errorf("cannot abort strategy in status %q", s.Status)
	}
	if stageID != nil && (*stageID < 0 || *stageID >= len(s.Stages)) {
		return fmt.Errorf("stage id %d out of range (have %d stages)", *stageID, len(s.Stages))
	}
	if s.Reason == "" {
		s.Reason = "aborted by operator"
	}
	c.beginAbort()
	return nil
}

// HandleEvent routes an asynchronous fleet event to whichever step is
// current (applying or aborting). Events are discarded once the strategy
// has reached a terminal status.
func (c *Controller) HandleEvent(event step.Event, data any) {
	st, ok := c.currentStep()
	if !ok {
		return
	}
	ctx := c.execContext(c.generation)
	st.HandleEvent(ctx, event, data)
}

// Tick compares the current step's absolute deadline against now
// (monotonic milliseconds) and invokes Timeout if it has expired. The
// caller is responsible for calling Tick on a schedule fine-grained enough
// for the shortest step timeout in use; the controller itself never reads
// a clock outside of what Clock provides.
func (c *Controller) Tick(nowMillis int64) {
	if c.Strategy.Status != StatusApplying && c.Strategy.Status != StatusAborting {
		return
	}
	if c.deadlineMillis == 0 || nowMillis < c.deadlineMillis {
		return
	}
	st, ok := c.currentStep()
	if !ok {
		return
	}
	gen := c.generation
	ctx := c.execContext(gen)
	result, reason := st.Timeout(ctx)
	c.stepComplete(gen, result, reason)
}

func (c *Controller) currentStep() (step.Step, bool) {
	if c.Strategy.Status == StatusAborting {
		if c.abortIndex < 0 || c.abortIndex >= len(c.abortSteps) {
			return nil, false
		}
		return c.abortSteps[c.abortIndex], true
	}
	stg, ok := c.Strategy.currentStage()
	if !ok {
		return nil, false
	}
	return stg.currentStep()
}

func (c *Controller) execContext(gen uint64) step.ExecContext {
	return step.ExecContext{
		Driver:    c.Driver,
		Tables:    c.Tables,
		Clock:     c.Clock,
		Workspace: c.Strategy.Workspace,
		StepComplete: func(result step.Result, reason string) {
			c.stepComplete(gen, result, reason)
		},
	}
}

// runCurrent applies whichever step is now current, advancing synchronously
// through any chain of steps that complete without ever returning WAIT.
func (c *Controller) runCurrent() error {
	st, ok := c.currentStep()
	if !ok {
		if c.Strategy.Status == StatusAborting {
			c.Strategy.Status = StatusAborted
		}
		return nil
	}
	c.generation++
	gen := c.generation
	c.stepDone = false
	c.deadlineMillis = c.Clock.MonotonicMillis() + st.TimeoutSecs()*1000
	ctx := c.execContext(gen)
	result, reason := st.Apply(ctx)
	if result == step.ResultWait {
		return nil
	}
	c.stepComplete(gen, result, reason)
	return nil
}

// stepComplete is the single funnel every synchronous return and every
// asynchronous ExecContext.StepComplete callback passes through. The
// generation guard enforces the idempotent first-terminal-decision-wins
// rule: a stale callback from a step the controller has already moved past
// (superseded by a timeout, or orphaned by abort) is a no-op.
func (c *Controller) stepComplete(gen uint64, result step.Result, reason string) {
	if gen != c.generation || c.stepDone {
		return
	}
	c.stepDone = true
	switch result {
	case step.ResultSuccess:
		c.onStepSuccess()
	default:
		c.onStepFailed(reason)
	}
}

func (c *Controller) onStepSuccess() {
	s := c.Strategy
	if s.Status == StatusAborting {
		c.abortIndex++
		_ = c.runCurrent()
		return
	}

	stg, ok := s.currentStage()
	if !ok {
		return
	}
	st, _ := stg.currentStep()
	if st != nil {
		s.appliedStack = append(s.appliedStack, st)
	}
	stg.Current++
	if stg.Current >= len(stg.Steps) {
		stg.Result = step.ResultSuccess
		s.CurrentStage++
		if s.CurrentStage >= len(s.Stages) {
			s.Status = StatusApplied
			return
		}
	}
	_ = c.runCurrent()
}

func (c *Controller) onStepFailed(reason string) {
	s := c.Strategy
	if s.Status == StatusAborting {
		// A compensation step itself failed. The abort is best-effort: stop
		// running the remaining chain and surface the failure.
		s.Reason = reason
		s.Status = StatusAborted
		return
	}

	stg, ok := s.currentStage()
	if ok {
		stg.Result = step.ResultFailed
		stg.Reason = reason
	}
	s.Reason = reason
	c.beginAbort()
}

// beginAbort flattens the abort chain for every step the strategy has
// already successfully applied, in reverse application order, and starts
// running it as a synthetic stage (spec.md section 4.1, section 8). A
// strategy with nothing yet applied (the failure happened in its first
// step) has nothing to compensate and goes straight to failed rather than
// through an empty aborting stage.
func (c *Controller) beginAbort() {
	s := c.Strategy
	var compensations []step.Step
	for i := len(s.appliedStack) - 1; i >= 0; i-- {
		compensations = append(compensations, s.appliedStack[i].AbortChain()...)
	}
	s.appliedStack = nil
	if len(compensations) == 0 {
		s.Status = StatusFailed
		return
	}
	c.abortSteps = compensations
	c.abortIndex = 0
	s.Status = StatusAborting
	_ = c.runCurrent()
}
