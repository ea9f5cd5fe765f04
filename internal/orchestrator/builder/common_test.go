// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package builder

import (
	"testing"

	"fleetctl/internal/orchestrator/knobs"
)

func TestPartition_Serial_YieldsOneHostPerGroup(t *testing.T) {
	hosts := []string{"a", "b", "c"}
	groups := partition(hosts, knobs.PersonalityKnobs{Apply: knobs.ApplySerial})
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	for i, g := range groups {
		if len(g) != 1 || g[0] != hosts[i] {
			t.Fatalf("expected group %d to be [%s], got %v", i, hosts[i], g)
		}
	}
}

func TestPartition_Parallel_CapsGroupSize(t *testing.T) {
	hosts := []string{"a", "b", "c", "d", "e"}
	groups := partition(hosts, knobs.PersonalityKnobs{Apply: knobs.ApplyParallel, MaxParallelWorkerHosts: 2})
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups of at most 2, got %d groups: %v", len(groups), groups)
	}
	if len(groups[0]) != 2 || len(groups[1]) != 2 || len(groups[2]) != 1 {
		t.Fatalf("expected group sizes [2,2,1], got %v", groups)
	}
}

func TestPartition_Parallel_ClampsBelowMinParallelHosts(t *testing.T) {
	hosts := []string{"a", "b", "c"}
	groups := partition(hosts, knobs.PersonalityKnobs{Apply: knobs.ApplyParallel, MaxParallelWorkerHosts: 1})
	if len(groups) != 2 {
		t.Fatalf("expected max-parallel-worker-hosts to clamp up to MinParallelHosts, got groups: %v", groups)
	}
}

func TestPartition_Ignore_YieldsNoGroups(t *testing.T) {
	groups := partition([]string{"a", "b"}, knobs.PersonalityKnobs{Apply: knobs.ApplyIgnore})
	if groups != nil {
		t.Fatalf("expected ignore apply-type to yield no groups, got %v", groups)
	}
}
