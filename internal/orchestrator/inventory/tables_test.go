// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package inventory

import "testing"

func TestTables_PutGetDeleteHost(t *testing.T) {
	tables := NewTables()
	if _, ok := tables.GetHost("h0"); ok {
		t.Fatalf("expected a fresh Tables to have no hosts")
	}

	tables.PutHost(Host{Name: "h0", Admin: AdminLocked})
	h, ok := tables.GetHost("h0")
	if !ok || h.Admin != AdminLocked {
		t.Fatalf("expected to read back the host just inserted, got %+v, %v", h, ok)
	}

	tables.DeleteHost("h0")
	if _, ok := tables.GetHost("h0"); ok {
		t.Fatalf("expected the host to be gone after DeleteHost")
	}
}

func TestTables_AllHosts_SortedByName(t *testing.T) {
	tables := NewTables()
	tables.PutHost(Host{Name: "w-2"})
	tables.PutHost(Host{Name: "w-0"})
	tables.PutHost(Host{Name: "w-1"})

	hosts := tables.AllHosts()
	if len(hosts) != 3 {
		t.Fatalf("expected 3 hosts, got %d", len(hosts))
	}
	for i, want := range []string{"w-0", "w-1", "w-2"} {
		if hosts[i].Name != want {
			t.Fatalf("expected hosts[%d].Name == %q, got %q", i, want, hosts[i].Name)
		}
	}
}

func TestTables_InstanceLifecycleAndHostLookup(t *testing.T) {
	tables := NewTables()
	tables.PutInstance(Instance{UUID: "i0", Name: "vm0", HostName: "w-0"})
	tables.PutInstance(Instance{UUID: "i1", Name: "vm1", HostName: "w-0"})
	tables.PutInstance(Instance{UUID: "i2", Name: "vm2", HostName: "w-1"})

	if !tables.ExistOnHost("w-0") {
		t.Fatalf("expected w-0 to have instances")
	}
	if tables.ExistOnHost("w-2") {
		t.Fatalf("expected w-2 to have no instances")
	}

	onHost := tables.OnHost("w-0")
	if len(onHost) != 2 {
		t.Fatalf("expected 2 instances on w-0, got %d", len(onHost))
	}

	tables.DeleteInstance("i0")
	if _, ok := tables.GetInstance("i0"); ok {
		t.Fatalf("expected i0 to be gone after DeleteInstance")
	}
	if len(tables.OnHost("w-0")) != 1 {
		t.Fatalf("expected 1 instance left on w-0 after deleting i0")
	}
}

func TestHost_StatePredicates(t *testing.T) {
	h := Host{Admin: AdminLocked, Oper: OperDisabled, Avail: AvailOffline}
	if !h.IsLocked() || h.IsUnlocked() {
		t.Fatalf("expected IsLocked true, IsUnlocked false")
	}
	if !h.IsDisabled() || h.IsEnabled() {
		t.Fatalf("expected IsDisabled true, IsEnabled false")
	}
	if h.IsOnline() {
		t.Fatalf("expected IsOnline false for an offline host")
	}
}
