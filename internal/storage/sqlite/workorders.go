package sqlite

import (
	"context"
	"fmt"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// OpenWorkOrder records the work order the first time a room is joined.
// Joining an existing one is a no-op.
func (s *Store) OpenWorkOrder(ctx context.Context, room domain.RoomID, creator string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO work_orders (ticket_id, creator_id) SELECT ?, id FROM users WHERE username = ?`,
		string(room), creator)
	if err != nil {
		return fmt.Errorf("open work order %s: %w", room, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Info().Str("module", "storage").Str("room", string(room)).Str("user", creator).Msg("work order opened")
	}
	return nil
}

// WorkOrderStatus returns the status of a known work order.
func (s *Store) WorkOrderStatus(ctx context.Context, room domain.RoomID) (string, error) {
	var status string
	if err := s.db.QueryRowContext(ctx, `SELECT status FROM work_orders WHERE ticket_id = ?`, string(room)).Scan(&status); err != nil {
		return "", fmt.Errorf("work order %s: %w", room, err)
	}
	return status, nil
}
