package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	sql  string
	args []any
	tag  pgconn.CommandTag
	err  error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return f.tag, f.err
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func TestEventRepository_Append(t *testing.T) {
	req := require.New(t)
	q := &fakeQuerier{tag: pgconn.NewCommandTag("INSERT 0 1")}
	repo := NewEventRepository(q)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := repo.Append(context.Background(), domain.PresenceEvent{
		Kind:          domain.EventLeft,
		ParticipantID: "p-1",
		Nickname:      "Alice",
		Reason:        "heartbeat",
		OccurredAt:    at,
	})
	req.NoError(err)
	req.Equal(queryAppendEvent, q.sql)
	req.Equal([]any{"left", "p-1", "Alice", "heartbeat", at}, q.args)
}

func TestEventRepository_AppendNoRows(t *testing.T) {
	q := &fakeQuerier{tag: pgconn.NewCommandTag("INSERT 0 0")}
	err := NewEventRepository(q).Append(context.Background(), domain.PresenceEvent{Kind: domain.EventJoined})
	require.ErrorIs(t, err, ErrNoRowsWritten)
}

func TestEventRepository_AppendMissingTable(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	q := &fakeQuerier{err: pgErr}
	err := NewEventRepository(q).Append(context.Background(), domain.PresenceEvent{Kind: domain.EventJoined})

	require.Error(t, err)
	require.ErrorIs(t, err, pgErr)
	require.Contains(t, err.Error(), "run migrations")

	plain := errors.New("conn reset")
	q.err = plain
	require.Equal(t, plain, NewEventRepository(q).Append(context.Background(), domain.PresenceEvent{}))
}
