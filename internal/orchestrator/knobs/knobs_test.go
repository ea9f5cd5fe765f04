// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package knobs

import "testing"

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() must validate clean, got: %v", err)
	}
}

func TestPersonalityKnobs_Validate_RejectsUnknownApplyType(t *testing.T) {
	k := PersonalityKnobs{Apply: "bogus", InstanceAction: InstanceActionMigrate}
	if err := k.Validate(); err == nil {
		t.Fatalf("expected an error for an unknown apply-type")
	}
}

func TestPersonalityKnobs_Validate_RejectsUnknownInstanceAction(t *testing.T) {
	k := PersonalityKnobs{Apply: ApplySerial, InstanceAction: "bogus"}
	if err := k.Validate(); err == nil {
		t.Fatalf("expected an error for an unknown instance-action")
	}
}

func TestPersonalityKnobs_Validate_ParallelRequiresMaxHostsInRange(t *testing.T) {
	tooLow := PersonalityKnobs{Apply: ApplyParallel, MaxParallelWorkerHosts: 1, InstanceAction: InstanceActionMigrate}
	if err := tooLow.Validate(); err == nil {
		t.Fatalf("expected an error for max-parallel-worker-hosts below MinParallelHosts")
	}

	tooHigh := PersonalityKnobs{Apply: ApplyParallel, MaxParallelWorkerHosts: 101, InstanceAction: InstanceActionMigrate}
	if err := tooHigh.Validate(); err == nil {
		t.Fatalf("expected an error for max-parallel-worker-hosts above MaxParallelHosts")
	}

	inRange := PersonalityKnobs{Apply: ApplyParallel, MaxParallelWorkerHosts: MinParallelHosts, InstanceAction: InstanceActionMigrate}
	if err := inRange.Validate(); err != nil {
		t.Fatalf("expected MinParallelHosts to be an accepted boundary, got: %v", err)
	}
}

func TestPersonalityKnobs_Validate_IgnoresMaxHostsWhenNotParallel(t *testing.T) {
	k := PersonalityKnobs{Apply: ApplySerial, MaxParallelWorkerHosts: 0, InstanceAction: InstanceActionMigrate}
	if err := k.Validate(); err != nil {
		t.Fatalf("serial apply-type must not require a max-parallel-worker-hosts bound, got: %v", err)
	}
}

func TestKnobs_Validate_RejectsUnknownAlarmRestriction(t *testing.T) {
	k := Default()
	k.AlarmRestriction = "bogus"
	if err := k.Validate(); err == nil {
		t.Fatalf("expected an error for an unknown alarm-restrictions value")
	}
}

func TestKnobs_Validate_PropagatesPerPersonalityErrors(t *testing.T) {
	k := Default()
	k.Worker.Apply = "bogus"
	err := k.Validate()
	if err == nil {
		t.Fatalf("expected the worker personality's error to propagate")
	}
}
