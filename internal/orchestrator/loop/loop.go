// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package loop drives one Controller to a terminal status on a single
// goroutine: fleet events and ticks are serialized onto one channel so the
// controller never observes concurrent calls (platform.Driver's own
// callback-delivery contract, spec.md section 4.1/4.5, requires exactly
// this).
package loop

import (
	"context"
	"time"

	"fleetctl/internal/orchestrator/stage"
	"fleetctl/internal/orchestrator/step"
)

// Feature: ORCHESTRATOR_EVENT_LOOP
// Spec: spec.md section 5 (concurrency & resource model)

// TickInterval is how often the loop checks the current step's deadline.
// It must be smaller than the shortest step timeout in use; every step
// kind in this module times out no sooner than system-stabilize's 60s.
const TickInterval = time.Second

type fleetEvent struct {
	event step.Event
	data  any
}

// Loop serializes a Controller's Tick and HandleEvent calls onto a single
// goroutine, and reports back once the strategy reaches a terminal status
// (Applied, Failed, or Aborted) or the context is cancelled.
type Loop struct {
	controller *stage.Controller
	clock      step.Clock
	events     chan fleetEvent
	done       chan struct{}
}

// New wraps a controller for single-goroutine driving.
func New(controller *stage.Controller, clock step.Clock) *Loop {
	return &Loop{
		controller: controller,
		clock:      clock,
		events:     make(chan fleetEvent, 64),
		done:       make(chan struct{}),
	}
}

// Submit enqueues an asynchronous fleet event for the loop goroutine to
// deliver to the controller. Safe to call from any goroutine; never blocks
// once Run is underway except under sustained event flooding past the
// channel's buffer.
func (l *Loop) Submit(event step.Event, data any) {
	select {
	case l.events <- fleetEvent{event: event, data: data}:
	case <-l.done:
	}
}

// Run drives the controller until its strategy reaches a terminal status or
// ctx is cancelled, whichever comes first. It returns the strategy's final
// Status.
func (l *Loop) Run(ctx context.Context) stage.Status {
	defer close(l.done)

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		if terminal(l.controller.Strategy.Status) {
			return l.controller.Strategy.Status
		}
		select {
		case <-ctx.Done():
			return l.controller.Strategy.Status
		case fe := <-l.events:
			l.controller.HandleEvent(fe.event, fe.data)
		case <-ticker.C:
			l.controller.Tick(l.clock.MonotonicMillis())
		}
	}
}

func terminal(s stage.Status) bool {
	switch s {
	case stage.StatusApplied, stage.StatusFailed, stage.StatusAborted:
		return true
	}
	return false
}
