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
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/stage"
)

// Feature: ORCHESTRATOR_PERSISTENCE_POSTGRES
// Spec: spec.md section 8 (round-trip requirement); grounded on
// internal/providers/migration/raw.Engine's database/sql + pgx/v5 stdlib
// driver usage.

// PostgresStore persists strategies as JSONB rows in Postgres, one row per
// kind, for multi-process/multi-replica deployments where a local file
// store's single-owner assumption does not hold.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgresStore connects to the database at dbURL (a standard
// postgres:// DSN) via the pgx stdlib driver and ensures the strategies
// table exists.
func OpenPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	store := &PostgresStore{db: db}
	if err := store.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) ensureTable(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS fleetctl_strategies (
			kind       VARCHAR(64) PRIMARY KEY,
			document   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("ensuring strategies table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context, kind string, tables *inventory.Tables) (*stage.Strategy, error) {
	var document []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT document FROM fleetctl_strategies WHERE kind = $1", kind,
	).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading strategy %q: %w", kind, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(document, &raw); err != nil {
		return nil, fmt.Errorf("parsing strategy %q: %w", kind, err)
	}
	return stage.FromDict(raw, tables)
}

func (p *PostgresStore) Save(ctx context.Context, strategy *stage.Strategy) error {
	document, err := json.Marshal(strategy.AsDict())
	if err != nil {
		return fmt.Errorf("marshaling strategy %q: %w", strategy.Kind, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO fleetctl_strategies (kind, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (kind) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()
	`, strategy.Kind, document)
	if err != nil {
		return fmt.Errorf("saving strategy %q: %w", strategy.Kind, err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, kind string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM fleetctl_strategies WHERE kind = $1", kind)
	if err != nil {
		return fmt.Errorf("deleting strategy %q: %w", kind, err)
	}
	return nil
}
