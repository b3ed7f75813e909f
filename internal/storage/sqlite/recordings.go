package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Relay/internal/domain"
)

func (s *Store) SaveRecording(ctx context.Context, rec domain.Recording) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (ticket_id, data_type, payload, ts) VALUES (?, ?, ?, ?)`,
		string(rec.Room), rec.DataType, rec.Frame, rec.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("save %s recording: %w", rec.DataType, err)
	}
	return nil
}

// Recordings returns what was recorded for room, oldest first.
func (s *Store) Recordings(ctx context.Context, room domain.RoomID) ([]domain.Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data_type, payload, ts FROM recordings WHERE ticket_id = ? ORDER BY ts, id`, string(room))
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var out []domain.Recording
	for rows.Next() {
		rec := domain.Recording{Room: room}
		var ts int64
		if err := rows.Scan(&rec.DataType, &rec.Frame, &ts); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		rec.At = time.UnixMilli(ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}
