package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier covers both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var ErrNoRowsWritten = errors.New("postgres: no rows written")

type EventRepository struct {
	q querier
}

func NewEventRepository(q querier) *EventRepository {
	return &EventRepository{q: q}
}

// Append stores one presence journal entry.
func (r *EventRepository) Append(ctx context.Context, evt domain.PresenceEvent) error {
	tag, err := r.q.Exec(ctx, queryAppendEvent,
		string(evt.Kind),
		evt.ParticipantID,
		evt.Nickname,
		evt.Reason,
		evt.OccurredAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsWritten
	}
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 42P01 - undefined table
		if pgErr.Code == "42P01" {
			return fmt.Errorf("presence_events missing, run migrations: %w", err)
		}
	}
	return err
}
