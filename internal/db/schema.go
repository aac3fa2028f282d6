package db

import (
	"database/sql"
	"fmt"
)

// Schema DDL. Alias rows are curator-managed reference data; the engine
// only ever reads them. Audit rows are append-only.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS entity_alias (
		alias_id        BIGSERIAL PRIMARY KEY,
		entity_kind     TEXT NOT NULL CHECK (entity_kind IN ('business', 'location', 'terminal')),
		canonical_id    TEXT NOT NULL,
		alias_text      TEXT NOT NULL,
		alias_kind      TEXT NOT NULL DEFAULT 'full_name',
		confidence_boost INTEGER NOT NULL DEFAULT 0 CHECK (confidence_boost BETWEEN 0 AND 50),
		exact_match_required BOOLEAN NOT NULL DEFAULT FALSE,
		created_by      TEXT NOT NULL DEFAULT 'curator',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (entity_kind, canonical_id, alias_text)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_entity_alias_kind ON entity_alias (entity_kind)`,

	`CREATE TABLE IF NOT EXISTS trip_record (
		trip_id         BIGINT PRIMARY KEY,
		vehicle_rego    TEXT NOT NULL,
		business_name   TEXT NOT NULL DEFAULT '',
		location_name   TEXT NOT NULL DEFAULT '',
		terminal_name   TEXT NOT NULL DEFAULT '',
		latitude        DOUBLE PRECISION,
		longitude       DOUBLE PRECISION,
		trip_date       DATE,
		litres_loaded   NUMERIC(12,2)
	)`,

	`CREATE TABLE IF NOT EXISTS payment_record (
		payment_key     TEXT PRIMARY KEY,
		supplier_name   TEXT NOT NULL DEFAULT '',
		delivery_location TEXT NOT NULL DEFAULT '',
		terminal_name   TEXT NOT NULL DEFAULT '',
		latitude        DOUBLE PRECISION,
		longitude       DOUBLE PRECISION,
		payment_date    DATE,
		amount          NUMERIC(14,2),
		litres_delivered NUMERIC(12,2)
	)`,

	`CREATE TABLE IF NOT EXISTS correlation (
		correlation_id  UUID PRIMARY KEY,
		trip_id         BIGINT NOT NULL,
		payment_key     TEXT NOT NULL,
		signal_scores   JSONB NOT NULL DEFAULT '[]',
		confidence_score INTEGER NOT NULL CHECK (confidence_score BETWEEN 0 AND 100),
		quality_tier    TEXT NOT NULL CHECK (quality_tier IN ('excellent', 'good', 'fair', 'poor')),
		quality_flags   TEXT[] NOT NULL DEFAULT '{}',
		business_identifier_match BOOLEAN NOT NULL DEFAULT FALSE,
		location_reference_match  BOOLEAN NOT NULL DEFAULT FALSE,
		within_service_area       BOOLEAN NOT NULL DEFAULT FALSE,
		requires_manual_review    BOOLEAN NOT NULL DEFAULT FALSE,
		verified_by_user          BOOLEAN NOT NULL DEFAULT FALSE,
		is_active_match           BOOLEAN NOT NULL DEFAULT TRUE,
		algorithm_version         TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (trip_id, payment_key, algorithm_version)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_correlation_trip ON correlation (trip_id)`,
	`CREATE INDEX IF NOT EXISTS idx_correlation_review ON correlation (requires_manual_review) WHERE requires_manual_review`,

	`CREATE TABLE IF NOT EXISTS correlation_audit (
		audit_id        UUID PRIMARY KEY,
		correlation_id  UUID NOT NULL,
		action          TEXT NOT NULL CHECK (action IN ('created', 'updated', 'verified', 'rejected', 'deleted')),
		changed_fields  TEXT[] NOT NULL DEFAULT '{}',
		old_values      JSONB,
		new_values      JSONB,
		confidence_delta INTEGER,
		actor_id        TEXT NOT NULL,
		note            TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_correlation_audit_corr ON correlation_audit (correlation_id, created_at)`,
}

// InitSchema creates all tables and indexes if they do not exist
func InitSchema(conn *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
