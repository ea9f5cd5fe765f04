// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package persist provides durable storage for strategies so they survive
// process restarts: every strategy/stage/step must serialize and rehydrate
// losslessly (spec.md section 8). At most one strategy of a given kind is
// ever live, so both store implementations key purely on kind.
package persist

import (
	"context"
	"errors"

	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/stage"
)

// Feature: ORCHESTRATOR_PERSISTENCE
// Spec: spec.md section 3, 8

// ErrNotFound is returned when no strategy of the requested kind exists.
var ErrNotFound = errors.New("no strategy of that kind exists")

// Store persists and retrieves the single active strategy per kind.
// Implementations must re-resolve every step's entities against tables on
// Load, matching step.Deserialize's version-tolerant contract.
type Store interface {
	// Load fetches the strategy of the given kind, or ErrNotFound.
	Load(ctx context.Context, kind string, tables *inventory.Tables) (*stage.Strategy, error)
	// Save persists the strategy, overwriting any prior one of the same kind.
	Save(ctx context.Context, strategy *stage.Strategy) error
	// Delete removes the strategy of the given kind, if any. Not an error if
	// none exists.
	Delete(ctx context.Context, kind string) error
}
