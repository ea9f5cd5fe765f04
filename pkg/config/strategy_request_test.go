// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// Feature: CLI_STRATEGY_FROM_FILE
// Spec: spec.md section 6

func TestLoadStrategyRequest_ParsesKnobs(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "request.yaml")
	contents := "" +
		"controller_apply_type: serial\n" +
		"worker_apply_type: parallel\n" +
		"max_parallel_worker_hosts: 4\n" +
		"instance_action: stop-start\n" +
		"alarm_restrictions: relaxed\n" +
		"ignore_alarms: [\"900.401\"]\n" +
		"to_version: \"1.29.0\"\n" +
		"force: true\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write request file: %v", err)
	}

	req, err := LoadStrategyRequest(path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if req.ControllerApplyType != "serial" {
		t.Fatalf("expected controller_apply_type 'serial', got %q", req.ControllerApplyType)
	}
	if req.MaxParallelWorkerHosts != 4 {
		t.Fatalf("expected max_parallel_worker_hosts 4, got %d", req.MaxParallelWorkerHosts)
	}
	if !req.Force {
		t.Fatalf("expected force to be true")
	}
	if len(req.IgnoreAlarms) != 1 || req.IgnoreAlarms[0] != "900.401" {
		t.Fatalf("expected ignore_alarms to round-trip, got %v", req.IgnoreAlarms)
	}
}

func TestLoadStrategyRequest_MissingFileErrors(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := LoadStrategyRequest(filepath.Join(tmpDir, "missing.yaml"))
	if err == nil {
		t.Fatalf("expected an error for a missing request file")
	}
}
