package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/adaptiq/internal/profile"
	"github.com/hrygo/adaptiq/store"
)

// PostgreSQL is the production driver. Vector similarity runs inside the
// database through the pgvector extension, so the global index stays usable
// as it grows.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Modest pool: the pipeline batches its reads and writes.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	driver := &DB{db: db, profile: profile}
	return driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const latestSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS question (
	id BIGSERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	creator_id TEXT NOT NULL,
	question_text TEXT NOT NULL,
	options JSONB NOT NULL,
	correct_answers JSONB NOT NULL,
	difficulty TEXT NOT NULL,
	discrimination DOUBLE PRECISION NOT NULL,
	difficulty_b DOUBLE PRECISION NOT NULL,
	guessing DOUBLE PRECISION NOT NULL,
	verified_answer TEXT NOT NULL DEFAULT '',
	is_verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_question_creator_id ON question (creator_id);

CREATE TABLE IF NOT EXISTS quiz_session (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	requested_count INTEGER NOT NULL,
	distribution JSONB NOT NULL,
	questions JSONB NOT NULL,
	partial BOOLEAN NOT NULL DEFAULT FALSE,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_session_user_id ON quiz_session (user_id);

CREATE TABLE IF NOT EXISTS response_record (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	question_text TEXT NOT NULL,
	selected_answer TEXT NOT NULL,
	is_correct BOOLEAN NOT NULL,
	time_taken INTEGER NOT NULL,
	difficulty TEXT NOT NULL,
	submitted_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_response_record_user_id ON response_record (user_id);
CREATE INDEX IF NOT EXISTS idx_response_record_session_id ON response_record (user_id, session_id);

CREATE TABLE IF NOT EXISTS performance_record (
	user_id TEXT PRIMARY KEY,
	stats JSONB NOT NULL,
	history JSONB NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS question_embedding (
	id BIGSERIAL PRIMARY KEY,
	question_id BIGINT NOT NULL,
	user_id TEXT NOT NULL,
	question_text TEXT NOT NULL,
	embedding vector(%d) NOT NULL,
	model TEXT NOT NULL,
	created_ts BIGINT NOT NULL,
	UNIQUE(question_id, model)
);
CREATE INDEX IF NOT EXISTS idx_question_embedding_user_id ON question_embedding (user_id);
`

// Migrate creates the schema when missing. The embedding column dimension
// comes from the profile and must match the configured embedding model.
func (d *DB) Migrate(ctx context.Context) error {
	schema := fmt.Sprintf(latestSchema, d.profile.AIEmbeddingDims)
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply schema")
		}
	}
	return nil
}

// placeholder returns the PostgreSQL positional placeholder $n.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n PostgreSQL placeholders $1..$n.
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
