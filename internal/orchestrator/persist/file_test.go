// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package persist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/stage"
	"fleetctl/internal/orchestrator/step"
)

func TestFileStore_Load_ReturnsErrNotFoundWhenMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "strategies"))
	_, err := store.Load(context.Background(), "sw-patch", inventory.NewTables())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestFileStore_SaveLoadDelete_RoundTrips(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "strategies"))
	tables := inventory.NewTables()
	tables.PutHost(inventory.Host{Name: "w-0"})

	strategy := stage.NewStrategy("sw-patch", knobs.Default(), "",
		[]*stage.Stage{stage.NewStage("patch", []step.Step{step.NewQueryAlarmsStep(nil, step.AlarmRestrictionStrict, false)})})

	ctx := context.Background()
	if err := store.Save(ctx, strategy); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "sw-patch", tables)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Kind != strategy.Kind || loaded.Status != strategy.Status {
		t.Fatalf("expected the loaded strategy to round-trip kind/status, got %+v", loaded)
	}
	if len(loaded.Stages) != len(strategy.Stages) {
		t.Fatalf("expected %d stages, got %d", len(strategy.Stages), len(loaded.Stages))
	}

	if err := store.Delete(ctx, "sw-patch"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "sw-patch", tables); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after Delete, got: %v", err)
	}
}

func TestFileStore_Delete_IsIdempotentWhenMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "strategies"))
	if err := store.Delete(context.Background(), "sw-patch"); err != nil {
		t.Fatalf("expected deleting a nonexistent strategy to be a no-op, got: %v", err)
	}
}

func TestFileStore_Load_RespectsCanceledContext(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "strategies"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Load(ctx, "sw-patch", inventory.NewTables()); err == nil {
		t.Fatalf("expected Load to fail on a canceled context")
	}
}
