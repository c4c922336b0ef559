package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the relational layout of the workforce core: the position
// store with its self-referential manager set, the employment ledger with
// its append-only status log, the department role tags, and user accounts.
const Schema = `
CREATE TABLE IF NOT EXISTS departments (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	parent_id  BIGINT REFERENCES departments(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS job_titles (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS positions (
	id            BIGSERIAL PRIMARY KEY,
	department_id BIGINT NOT NULL REFERENCES departments(id),
	job_title_id  BIGINT NOT NULL REFERENCES job_titles(id),
	name          TEXT NOT NULL DEFAULT '',
	vacancies     INTEGER NOT NULL DEFAULT 1 CHECK (vacancies >= 0),
	is_manager    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (department_id, job_title_id)
);

CREATE TABLE IF NOT EXISTS position_managers (
	position_id         BIGINT NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
	manager_position_id BIGINT NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
	PRIMARY KEY (position_id, manager_position_id),
	CHECK (position_id <> manager_position_id)
);

CREATE TABLE IF NOT EXISTS persons (
	id         BIGSERIAL PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL DEFAULT '',
	birthdate  DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS employments (
	id              BIGSERIAL PRIMARY KEY,
	person_id       BIGINT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	position_id     BIGINT NOT NULL REFERENCES positions(id),
	role            TEXT NOT NULL,
	employment_type TEXT NOT NULL,
	current_status  TEXT NOT NULL,
	hire_date       DATE NOT NULL,
	end_date        DATE,
	exit_reason     TEXT,
	exit_notes      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS employments_position_status_idx
	ON employments (position_id, current_status);
CREATE INDEX IF NOT EXISTS employments_person_idx
	ON employments (person_id);

CREATE TABLE IF NOT EXISTS employment_status_logs (
	id            BIGSERIAL PRIMARY KEY,
	employment_id BIGINT NOT NULL REFERENCES employments(id) ON DELETE CASCADE,
	status        TEXT NOT NULL,
	start_date    DATE NOT NULL,
	reason        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS person_department_roles (
	id                BIGSERIAL PRIMARY KEY,
	person_id         BIGINT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	department_id     BIGINT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
	hierarchical_role TEXT NOT NULL,
	start_date        DATE NOT NULL,
	end_date          DATE,
	notes             TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	person_id     BIGINT REFERENCES persons(id) ON DELETE SET NULL,
	is_staff      BOOLEAN NOT NULL DEFAULT FALSE,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
