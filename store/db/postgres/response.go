package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/adaptiq/store"
)

func (d *DB) CreateResponseRecord(ctx context.Context, create *store.ResponseRecord) (*store.ResponseRecord, error) {
	stmt := `
		INSERT INTO response_record (
			user_id, session_id, question_text, selected_answer, is_correct,
			time_taken, difficulty, submitted_ts
		)
		VALUES (` + placeholders(8) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.SessionID,
		create.QuestionText,
		create.SelectedAnswer,
		create.IsCorrect,
		create.TimeTaken,
		string(create.Difficulty),
		create.SubmittedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create response record")
	}

	return create, nil
}

func (d *DB) ListResponseRecords(ctx context.Context, find *store.FindResponseRecord) ([]*store.ResponseRecord, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.SessionID != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *find.SessionID)
	}

	query := `
		SELECT id, user_id, session_id, question_text, selected_answer, is_correct,
			time_taken, difficulty, submitted_ts
		FROM response_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY submitted_ts DESC, id DESC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list response records")
	}
	defer rows.Close()

	list := []*store.ResponseRecord{}
	for rows.Next() {
		var record store.ResponseRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.SessionID,
			&record.QuestionText,
			&record.SelectedAnswer,
			&record.IsCorrect,
			&record.TimeTaken,
			&record.Difficulty,
			&record.SubmittedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan response record")
		}
		list = append(list, &record)
	}
	return list, rows.Err()
}

func (d *DB) HasSubmission(ctx context.Context, userID, sessionID string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM response_record WHERE user_id = $1 AND session_id = $2)",
		userID, sessionID,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check submission")
	}
	return exists, nil
}
