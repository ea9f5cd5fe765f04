// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package builder translates a fleet snapshot and a set of knobs into the
// ordered stage list a strategy will run. Builders are pure functions: no
// driver calls, no side effects, matching spec.md section 4.3's "pure
// planning" requirement.
package builder

import (
	"fmt"

	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/stage"
	"fleetctl/internal/orchestrator/step"
)

// Feature: ORCHESTRATOR_STRATEGY_BUILDERS
// Spec: spec.md section 4.3

// hostServiceName is the service every worker/controller wave quiesces
// before migrating or stopping instances, matching the source's VIM
// (virtual infrastructure manager) service-disable convention.
const hostServiceName = "vim"

// WorkStepFactory builds the kind-specific step that does the actual work
// of one wave (sw-patch-hosts, upgrade-hosts, fw-update-hosts, ...) for a
// given host group.
type WorkStepFactory func(hosts []string) step.Step

func personalityHosts(tables *inventory.Tables, p inventory.Personality) []string {
	var names []string
	for _, h := range tables.AllHosts() {
		if h.Personality == p {
			names = append(names, h.Name)
		}
	}
	return names
}

// partition splits hosts into per-stage groups according to apply-type:
// serial yields one host per group, parallel yields groups no larger than
// MaxParallelWorkerHosts, ignore yields no groups at all (spec.md 4.3).
func partition(hosts []string, pk knobs.PersonalityKnobs) [][]string {
	switch pk.Apply {
	case knobs.ApplyIgnore:
		return nil
	case knobs.ApplyParallel:
		max := pk.MaxParallelWorkerHosts
		if max < knobs.MinParallelHosts {
			max = knobs.MinParallelHosts
		}
		var groups [][]string
		for i := 0; i < len(hosts); i += max {
			end := i + max
			if end > len(hosts) {
				end = len(hosts)
			}
			groups = append(groups, hosts[i:end])
		}
		return groups
	default: // serial
		groups := make([][]string, 0, len(hosts))
		for _, h := range hosts {
			groups = append(groups, []string{h})
		}
		return groups
	}
}

func instanceUUIDsOnHosts(tables *inventory.Tables, hosts []string) []string {
	var uuids []string
	for _, h := range hosts {
		for _, inst := range tables.OnHost(h) {
			uuids = append(uuids, inst.UUID)
		}
	}
	return uuids
}

// alarmGate is the query-alarms(fail_on_alarms=true) step that brackets
// every wave. relaxed alarm-restrictions additionally drop
// non-management-affecting alarms at evaluation time; strict does not.
func alarmGate(k knobs.Knobs) step.Step {
	return step.NewQueryAlarmsStep(k.IgnoreAlarms, step.AlarmRestriction(k.AlarmRestriction), true)
}

// waveStage builds one personality wave's step sequence for a single host
// group: disable-host-services, migrate-instances (or stop-instances),
// lock-hosts, the kind-specific work step, unlock-hosts, and -- for
// stop-start -- start-instances, followed by system-stabilize and
// wait-alarms-clear (spec.md section 4.3).
func waveStage(name string, tables *inventory.Tables, group []string, pk knobs.PersonalityKnobs, k knobs.Knobs, work WorkStepFactory) *stage.Stage {
	uuids := instanceUUIDsOnHosts(tables, group)

	steps := []step.Step{
		step.NewDisableHostServicesStep(group, hostServiceName),
	}
	if pk.InstanceAction == knobs.InstanceActionStopStart {
		steps = append(steps, step.NewStopInstancesStep(uuids, tables))
	} else {
		steps = append(steps, step.NewMigrateInstancesStep(uuids, tables))
	}
	steps = append(steps,
		step.NewLockHostsStep(group, true),
		work(group),
		step.NewUnlockHostsStep(group, step.UnlockMaxRetriesDefault, step.UnlockRetryDelayDefault),
	)
	if pk.InstanceAction == knobs.InstanceActionStopStart {
		steps = append(steps, step.NewStartInstancesStep(uuids, tables))
	}
	steps = append(steps,
		step.NewSystemStabilizeStep(60),
		step.NewWaitAlarmsClearStep(1800, 60, k.IgnoreAlarms, step.AlarmRestriction(k.AlarmRestriction)),
	)
	return stage.NewStage(name, steps)
}

// personalityWaves lays out one alarm-gate-plus-wave pair of stages per
// host group for a given personality, skipping the personality entirely
// when its apply-type is ignore.
func personalityWaves(tables *inventory.Tables, k knobs.Knobs, personality inventory.Personality, pk knobs.PersonalityKnobs, namePrefix string, work WorkStepFactory) []*stage.Stage {
	groups := partition(personalityHosts(tables, personality), pk)
	stages := make([]*stage.Stage, 0, len(groups)*2)
	for i, group := range groups {
		stages = append(stages,
			stage.NewStage(fmt.Sprintf("%s-alarm-gate-%d", namePrefix, i), []step.Step{alarmGate(k)}),
			waveStage(fmt.Sprintf("%s-wave-%d", namePrefix, i), tables, group, pk, k, work),
		)
	}
	return stages
}

// fleetWaves lays out the full controller -> storage -> worker sweep for
// one work step factory, shared by the out-of-service strategy kinds
// (sw-upgrade, fw-update).
func fleetWaves(tables *inventory.Tables, k knobs.Knobs, work WorkStepFactory) []*stage.Stage {
	var stages []*stage.Stage
	stages = append(stages, personalityWaves(tables, k, inventory.PersonalityController, k.Controller, "controller", work)...)
	stages = append(stages, personalityWaves(tables, k, inventory.PersonalityStorage, k.Storage, "storage", work)...)
	stages = append(stages, personalityWaves(tables, k, inventory.PersonalityWorker, k.Worker, "worker", work)...)
	return stages
}

// prelude is the query-alarms + query-* stage every builder opens with,
// run before any host wave begins.
func prelude(name string, k knobs.Knobs, queries ...step.Step) *stage.Stage {
	steps := append([]step.Step{alarmGate(k)}, queries...)
	return stage.NewStage(name, steps)
}

// lightWaveStage builds one personality wave's step sequence for a single
// host group of an in-service strategy: the kind-specific work step
// followed by system-stabilize and wait-alarms-clear. Unlike waveStage it
// does not disable host services, migrate or stop instances, or
// lock/unlock hosts -- sw-patch applies without taking a host out of
// service, so those steps would only make the fleet wait on a "disabled"
// state it never reaches (spec.md section 8, scenario 1).
func lightWaveStage(name string, group []string, k knobs.Knobs, work WorkStepFactory) *stage.Stage {
	steps := []step.Step{
		work(group),
		step.NewSystemStabilizeStep(60),
		step.NewWaitAlarmsClearStep(1800, 60, k.IgnoreAlarms, step.AlarmRestriction(k.AlarmRestriction)),
	}
	return stage.NewStage(name, steps)
}

// lightPersonalityWaves lays out one light wave stage per host group for a
// given personality, skipping the personality entirely when its apply-type
// is ignore. Unlike personalityWaves it does not bracket each group with
// its own alarm-gate stage: an in-service patch wave checks alarms only
// after each host group via wait-alarms-clear, not before.
func lightPersonalityWaves(tables *inventory.Tables, k knobs.Knobs, personality inventory.Personality, pk knobs.PersonalityKnobs, namePrefix string, work WorkStepFactory) []*stage.Stage {
	groups := partition(personalityHosts(tables, personality), pk)
	stages := make([]*stage.Stage, 0, len(groups))
	for i, group := range groups {
		stages = append(stages, lightWaveStage(fmt.Sprintf("%s-patch-%d", namePrefix, i), group, k, work))
	}
	return stages
}

// lightFleetWaves lays out the controller -> storage -> worker sweep of
// light waves, for in-service strategy kinds (sw-patch).
func lightFleetWaves(tables *inventory.Tables, k knobs.Knobs, work WorkStepFactory) []*stage.Stage {
	var stages []*stage.Stage
	stages = append(stages, lightPersonalityWaves(tables, k, inventory.PersonalityController, k.Controller, "controller", work)...)
	stages = append(stages, lightPersonalityWaves(tables, k, inventory.PersonalityStorage, k.Storage, "storage", work)...)
	stages = append(stages, lightPersonalityWaves(tables, k, inventory.PersonalityWorker, k.Worker, "worker", work)...)
	return stages
}
