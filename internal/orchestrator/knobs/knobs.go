// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package knobs holds the strategy-wide options a CLI invocation selects
// before a strategy is built: how hosts are grouped into waves, how
// strictly alarms gate progress, and what happens to guest workloads ahead
// of a host action (spec.md section 6).
package knobs

import "fmt"

// Feature: ORCHESTRATOR_KNOBS
// Spec: spec.md section 6

// ApplyType controls how the builder partitions a host list into waves.
type ApplyType string

const (
	// ApplySerial processes one host at a time.
	ApplySerial ApplyType = "serial"
	// ApplyParallel processes up to MaxParallelWorkerHosts hosts per wave.
	ApplyParallel ApplyType = "parallel"
	// ApplyIgnore never gates on this personality at all -- its hosts are
	// excluded from the strategy entirely.
	ApplyIgnore ApplyType = "ignore"
)

func (a ApplyType) Valid() bool {
	switch a {
	case ApplySerial, ApplyParallel, ApplyIgnore:
		return true
	}
	return false
}

// AlarmRestriction controls whether query/wait-alarms steps additionally
// drop non-management-affecting alarms.
type AlarmRestriction string

const (
	AlarmRestrictionStrict  AlarmRestriction = "strict"
	AlarmRestrictionRelaxed AlarmRestriction = "relaxed"
)

func (a AlarmRestriction) Valid() bool {
	switch a {
	case AlarmRestrictionStrict, AlarmRestrictionRelaxed:
		return true
	}
	return false
}

// InstanceAction controls how guest workloads are disposed of before a host
// is acted on.
type InstanceAction string

const (
	// InstanceActionMigrate live-migrates instances off the host.
	InstanceActionMigrate InstanceAction = "migrate"
	// InstanceActionStopStart stops instances before the host action and
	// restarts them once the host is unlocked again.
	InstanceActionStopStart InstanceAction = "stop-start"
)

func (a InstanceAction) Valid() bool {
	switch a {
	case InstanceActionMigrate, InstanceActionStopStart:
		return true
	}
	return false
}

// MinParallelHosts and MaxParallelHosts bound the per-wave host count a
// parallel apply-type may request (spec.md section 6).
const (
	MinParallelHosts = 2
	MaxParallelHosts = 100
)

// PersonalityKnobs bundles the per-personality options a strategy builder
// consults when partitioning the fleet into waves.
type PersonalityKnobs struct {
	Apply                  ApplyType
	MaxParallelWorkerHosts int
	InstanceAction         InstanceAction
}

// Validate checks a personality's knob combination, returning an error
// naming the first invalid field.
func (k PersonalityKnobs) Validate() error {
	if !k.Apply.Valid() {
		return fmt.Errorf("invalid apply-type %q", k.Apply)
	}
	if k.Apply == ApplyParallel {
		if k.MaxParallelWorkerHosts < MinParallelHosts || k.MaxParallelWorkerHosts > MaxParallelHosts {
			return fmt.Errorf("max-parallel-worker-hosts %d out of range [%d,%d]", k.MaxParallelWorkerHosts, MinParallelHosts, MaxParallelHosts)
		}
	}
	if !k.InstanceAction.Valid() {
		return fmt.Errorf("invalid instance-action %q", k.InstanceAction)
	}
	return nil
}

// Knobs is the full set of options a strategy create operation accepts,
// grouped by host personality plus the cluster-wide alarm restriction.
type Knobs struct {
	Controller         PersonalityKnobs
	Storage            PersonalityKnobs
	Worker             PersonalityKnobs
	AlarmRestriction   AlarmRestriction
	IgnoreAlarms       []string
}

// Default returns the source's documented defaults: serial on controllers
// and storage, parallel with a conservative fan-out on workers, strict
// alarm gating, migrate for worker instance disposition.
func Default() Knobs {
	return Knobs{
		Controller:       PersonalityKnobs{Apply: ApplySerial, InstanceAction: InstanceActionMigrate},
		Storage:          PersonalityKnobs{Apply: ApplySerial, InstanceAction: InstanceActionMigrate},
		Worker:           PersonalityKnobs{Apply: ApplyParallel, MaxParallelWorkerHosts: 10, InstanceAction: InstanceActionMigrate},
		AlarmRestriction: AlarmRestrictionStrict,
	}
}

// Validate checks every personality's knobs and the cluster-wide alarm
// restriction.
func (k Knobs) Validate() error {
	if err := k.Controller.Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if err := k.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := k.Worker.Validate(); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	if !k.AlarmRestriction.Valid() {
		return fmt.Errorf("invalid alarm-restrictions %q", k.AlarmRestriction)
	}
	return nil
}
