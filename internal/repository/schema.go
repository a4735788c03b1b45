package repository

// Schema is the DDL for the tables this gateway owns, applied by cmd/seed
// and by the integration tests. The child row always carries a non-null
// master reference and the matching tenant/engagement pair.
const Schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	domain TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS master_flows (
	id UUID PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	engagement_id TEXT NOT NULL,
	flow_kind TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS child_flows (
	id UUID PRIMARY KEY,
	master_flow_id UUID NOT NULL REFERENCES master_flows(id),
	tenant_id TEXT NOT NULL,
	engagement_id TEXT NOT NULL,
	flow_kind TEXT NOT NULL,
	current_phase TEXT NOT NULL,
	phase_status TEXT NOT NULL,
	phase_results JSONB NOT NULL DEFAULT '{}',
	selected_asset_ids TEXT[] NOT NULL DEFAULT '{}',
	version INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS child_flows_master_idx ON child_flows (master_flow_id);
CREATE INDEX IF NOT EXISTS master_flows_tenant_idx ON master_flows (tenant_id, engagement_id);

CREATE TABLE IF NOT EXISTS assets (
	id UUID PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	engagement_id TEXT NOT NULL,
	name TEXT NOT NULL,
	kind TEXT,
	environment TEXT,
	assessment_readiness TEXT NOT NULL DEFAULT 'not_ready',
	assessment_readiness_score DOUBLE PRECISION,
	required_fields_present BOOLEAN NOT NULL DEFAULT FALSE,
	questionnaire_state TEXT NOT NULL DEFAULT 'none',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS assets_tenant_idx ON assets (tenant_id, engagement_id);
`
