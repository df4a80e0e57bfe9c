package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hrygo/adaptiq/store"
)

func (d *DB) GetPerformanceRecord(ctx context.Context, userID string) (*store.PerformanceRecord, error) {
	var record store.PerformanceRecord
	var stats, history string
	err := d.db.QueryRowContext(ctx,
		"SELECT user_id, stats, history, updated_ts FROM performance_record WHERE user_id = ?",
		userID,
	).Scan(&record.UserID, &stats, &history, &record.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get performance record")
	}

	if err := json.Unmarshal([]byte(stats), &record.Stats); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal stats")
	}
	if err := json.Unmarshal([]byte(history), &record.History); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal history")
	}
	return &record, nil
}

func (d *DB) UpsertPerformanceRecord(ctx context.Context, record *store.PerformanceRecord) (*store.PerformanceRecord, error) {
	stats, err := json.Marshal(record.Stats)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal stats")
	}
	history, err := json.Marshal(record.History)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal history")
	}

	stmt := `
		INSERT INTO performance_record (user_id, stats, history, updated_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (user_id) DO UPDATE SET
			stats = EXCLUDED.stats,
			history = EXCLUDED.history,
			updated_ts = EXCLUDED.updated_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		record.UserID,
		string(stats),
		string(history),
		record.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert performance record")
	}

	return record, nil
}
