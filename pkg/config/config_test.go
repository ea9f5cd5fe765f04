// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Feature: CORE_CONFIG
// Spec: spec.md section 6

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if path != "fleetctl.yml" {
		t.Fatalf("expected DefaultConfigPath to return 'fleetctl.yml', got %q", path)
	}
}

func TestExists_ReportsCorrectly(t *testing.T) {
	tmpDir := t.TempDir()

	nonExisting := filepath.Join(tmpDir, "nope.yml")
	ok, err := Exists(nonExisting)
	if err != nil {
		t.Fatalf("expected no error for non-existing file, got: %v", err)
	}
	if ok {
		t.Fatalf("expected Exists to return false for non-existing file")
	}

	existing := filepath.Join(tmpDir, "config.yml")
	if err := os.WriteFile(existing, []byte("project:\n  name: test\n"), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	ok, err = Exists(existing)
	if err != nil {
		t.Fatalf("expected no error for existing file, got: %v", err)
	}
	if !ok {
		t.Fatalf("expected Exists to return true for existing file")
	}
}

func TestLoad_ReturnsErrConfigNotFoundWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()
	missing := filepath.Join(tmpDir, "fleetctl.yml")

	_, err := Load(missing)
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got: %v", err)
	}
}

func TestLoad_ParsesFleetDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "fleetctl.yml")
	contents := "project:\n  name: example-cloud\nfleet:\n  snapshot_path: fleet.yaml\n  store_path: /var/lib/fleetctl/strategies\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Project.Name != "example-cloud" {
		t.Fatalf("expected project.name to be 'example-cloud', got %q", cfg.Project.Name)
	}
	if cfg.Fleet.SnapshotPath != "fleet.yaml" {
		t.Fatalf("expected fleet.snapshot_path to be 'fleet.yaml', got %q", cfg.Fleet.SnapshotPath)
	}
	if cfg.Fleet.StorePath != "/var/lib/fleetctl/strategies" {
		t.Fatalf("expected fleet.store_path to round-trip, got %q", cfg.Fleet.StorePath)
	}
}

func TestLoad_RejectsMissingProjectName(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "fleetctl.yml")
	if err := os.WriteFile(path, []byte("fleet:\n  snapshot_path: fleet.yaml\n"), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected an error for missing project.name")
	}
}
