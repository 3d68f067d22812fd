package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cybernerd/agriconnect/internal/domain"
)

type statusHistoryRepository struct {
	db *sql.DB
}

// NewStatusHistoryRepository создаёт PostgreSQL-реализацию StatusHistoryRepository.
func NewStatusHistoryRepository(store *Store) domain.StatusHistoryRepository {
	return &statusHistoryRepository{db: store.DB()}
}

func (r *statusHistoryRepository) Append(event domain.StatusEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor, occurred)
		VALUES ($1,$2,$3,$4,$5)
	`, event.OrderID, string(event.From), string(event.To), event.Actor, event.Occurred); err != nil {
		return fmt.Errorf("append status event: %w", err)
	}

	return nil
}

func (r *statusHistoryRepository) List(orderID string) ([]domain.StatusEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, from_status, to_status, actor, occurred
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY occurred ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.StatusEvent, 0)
	for rows.Next() {
		var (
			event domain.StatusEvent
			from  string
			to    string
		)
		if err := rows.Scan(&event.OrderID, &from, &to, &event.Actor, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan status event: %w", err)
		}
		event.From = domain.OrderStatus(from)
		event.To = domain.OrderStatus(to)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status events: %w", err)
	}

	return events, nil
}

var _ domain.StatusHistoryRepository = (*statusHistoryRepository)(nil)
