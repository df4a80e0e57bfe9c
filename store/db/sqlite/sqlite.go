package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/adaptiq/internal/profile"
	"github.com/hrygo/adaptiq/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens (and creates if missing) the SQLite database at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// WAL mode tolerates a writer (session persistence) running next to the
	// pipeline's index reads.
	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
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
CREATE TABLE IF NOT EXISTS question (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	creator_id TEXT NOT NULL,
	question_text TEXT NOT NULL,
	options TEXT NOT NULL,
	correct_answers TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	discrimination REAL NOT NULL,
	difficulty_b REAL NOT NULL,
	guessing REAL NOT NULL,
	verified_answer TEXT NOT NULL DEFAULT '',
	is_verified INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_question_creator_id ON question (creator_id);

CREATE TABLE IF NOT EXISTS quiz_session (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	requested_count INTEGER NOT NULL,
	distribution TEXT NOT NULL,
	questions TEXT NOT NULL,
	partial INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_session_user_id ON quiz_session (user_id);

CREATE TABLE IF NOT EXISTS response_record (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	question_text TEXT NOT NULL,
	selected_answer TEXT NOT NULL,
	is_correct INTEGER NOT NULL,
	time_taken INTEGER NOT NULL,
	difficulty TEXT NOT NULL,
	submitted_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_response_record_user_id ON response_record (user_id);
CREATE INDEX IF NOT EXISTS idx_response_record_session_id ON response_record (user_id, session_id);

CREATE TABLE IF NOT EXISTS performance_record (
	user_id TEXT PRIMARY KEY,
	stats TEXT NOT NULL,
	history TEXT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS question_embedding (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question_id BIGINT NOT NULL,
	user_id TEXT NOT NULL,
	question_text TEXT NOT NULL,
	embedding TEXT NOT NULL,
	model TEXT NOT NULL,
	created_ts BIGINT NOT NULL,
	UNIQUE(question_id, model)
);
CREATE INDEX IF NOT EXISTS idx_question_embedding_user_id ON question_embedding (user_id);
`

// Migrate creates the schema when missing.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(latestSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply schema")
		}
	}
	return nil
}

// placeholders returns n SQLite placeholders.
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = "?"
	}
	return strings.Join(list, ", ")
}
