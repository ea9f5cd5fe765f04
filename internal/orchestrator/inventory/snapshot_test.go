// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package inventory

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSnapshot_ParsesHostsAndInstances(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "fleet.yaml")
	contents := "" +
		"hosts:\n" +
		"  - uuid: \"u-0\"\n" +
		"    name: w-0\n" +
		"    personality: worker\n" +
		"    admin: unlocked\n" +
		"    oper: enabled\n" +
		"    avail: online\n" +
		"    software_load: \"1.0\"\n" +
		"    target_load: \"2.0\"\n" +
		"instances:\n" +
		"  - uuid: \"i-0\"\n" +
		"    name: vm0\n" +
		"    host_name: w-0\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write fleet snapshot: %v", err)
	}

	tables, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	h, ok := tables.GetHost("w-0")
	if !ok {
		t.Fatalf("expected host w-0 to be loaded")
	}
	if h.Personality != PersonalityWorker || h.Admin != AdminUnlocked || h.Avail != AvailOnline {
		t.Fatalf("unexpected host fields: %+v", h)
	}
	if h.SoftwareLoad != "1.0" || h.TargetLoad != "2.0" {
		t.Fatalf("expected software/target load to round-trip, got %+v", h)
	}

	i, ok := tables.GetInstance("i-0")
	if !ok {
		t.Fatalf("expected instance i-0 to be loaded")
	}
	if i.HostName != "w-0" || i.Admin != AdminUnlocked || i.Oper != OperEnabled {
		t.Fatalf("unexpected instance fields: %+v", i)
	}
}

func TestLoadSnapshot_MissingFileErrors(t *testing.T) {
	tmpDir := t.TempDir()
	if _, err := LoadSnapshot(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing snapshot file")
	}
}
