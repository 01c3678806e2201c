package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/geoglitch/presence-service/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=journal.go -destination=mocks/mock_event_store.go -package=mocks

// EventStore persists presence journal entries.
type EventStore interface {
	Append(ctx context.Context, evt domain.PresenceEvent) error
}

// Journal records join/leave events best-effort through a bounded queue.
// A nil *Journal records nothing.
type Journal struct {
	store   EventStore
	events  chan domain.PresenceEvent
	timeout time.Duration
	now     func() time.Time
}

func NewJournal(store EventStore, queueSize int, timeout time.Duration) *Journal {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Journal{
		store:   store,
		events:  make(chan domain.PresenceEvent, queueSize),
		timeout: timeout,
		now:     time.Now,
	}
}

func (j *Journal) Joined(p domain.Participant) {
	j.record(domain.PresenceEvent{Kind: domain.EventJoined, ParticipantID: p.ID, Nickname: p.Nickname})
}

func (j *Journal) Left(p domain.Participant, reason string) {
	j.record(domain.PresenceEvent{Kind: domain.EventLeft, ParticipantID: p.ID, Nickname: p.Nickname, Reason: reason})
}

func (j *Journal) record(evt domain.PresenceEvent) {
	if j == nil {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = j.now()
	}
	select {
	case j.events <- evt:
	default:
		slog.Warn("journal queue full, event dropped",
			"kind", evt.Kind, "participant", evt.ParticipantID)
	}
}

// Run writes queued events until ctx is done, then flushes what is left.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-j.events:
			j.write(context.Background(), evt)
		case <-ctx.Done():
			j.flush()
			return nil
		}
	}
}

func (j *Journal) flush() {
	for {
		select {
		case evt := <-j.events:
			j.write(context.Background(), evt)
		default:
			return
		}
	}
}

func (j *Journal) write(ctx context.Context, evt domain.PresenceEvent) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if err := j.store.Append(ctx, evt); err != nil {
		slog.Warn("journal append failed",
			"kind", evt.Kind, "participant", evt.ParticipantID, "err", err)
	}
}
