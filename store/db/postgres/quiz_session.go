package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/adaptiq/store"
)

func (d *DB) CreateQuizSession(ctx context.Context, create *store.QuizSession) (*store.QuizSession, error) {
	distribution, err := json.Marshal(create.Distribution)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal distribution")
	}
	questions, err := json.Marshal(create.Questions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal questions")
	}

	stmt := `
		INSERT INTO quiz_session (id, user_id, requested_count, distribution, questions, partial, created_ts)
		VALUES (` + placeholders(7) + `)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.UserID,
		create.RequestedCount,
		string(distribution),
		string(questions),
		create.Partial,
		create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create quiz session")
	}

	return create, nil
}

func (d *DB) GetQuizSession(ctx context.Context, id string) (*store.QuizSession, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, user_id, requested_count, distribution, questions, partial, created_ts
		FROM quiz_session
		WHERE id = $1
	`, id)

	session, err := scanQuizSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return session, err
}

func (d *DB) ListQuizSessions(ctx context.Context, find *store.FindQuizSession) ([]*store.QuizSession, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `
		SELECT id, user_id, requested_count, distribution, questions, partial, created_ts
		FROM quiz_session
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list quiz sessions")
	}
	defer rows.Close()

	list := []*store.QuizSession{}
	for rows.Next() {
		session, err := scanQuizSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, session)
	}
	return list, rows.Err()
}

type singleRowScanner interface {
	Scan(dest ...any) error
}

func scanQuizSession(row singleRowScanner) (*store.QuizSession, error) {
	var session store.QuizSession
	var distribution, questions []byte
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RequestedCount,
		&distribution,
		&questions,
		&session.Partial,
		&session.CreatedTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "failed to scan quiz session")
	}
	if err := json.Unmarshal(distribution, &session.Distribution); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal distribution")
	}
	if err := json.Unmarshal(questions, &session.Questions); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal questions")
	}
	return &session, nil
}
