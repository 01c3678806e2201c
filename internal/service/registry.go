package service

import (
	"sort"
	"sync"
	"time"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type entry struct {
	p   domain.Participant
	seq uint64
}

// Registry is the authoritative in-memory store of connected participants.
// All mutations and snapshot reads share one mutex; no I/O happens under it.
type Registry struct {
	mu        sync.Mutex
	byID      map[string]*entry
	nicknames map[string]string        // nickname -> id
	byConn    map[domain.Sender]string // connection -> id
	seq       uint64

	now   func() time.Time
	newID func() string
}

func NewRegistry() *Registry {
	return &Registry{
		byID:      make(map[string]*entry),
		nicknames: make(map[string]string),
		byConn:    make(map[domain.Sender]string),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Register reserves nickname and inserts a participant bound to conn.
func (r *Registry) Register(nickname string, conn domain.Sender) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.nicknames[nickname]; taken {
		return "", domain.ErrNicknameTaken
	}
	if conn != nil {
		if _, bound := r.byConn[conn]; bound {
			return "", domain.ErrAlreadyRegistered
		}
	}

	id := r.newID()
	for _, clash := r.byID[id]; clash; _, clash = r.byID[id] {
		id = r.newID()
	}

	now := r.now()
	r.seq++
	r.byID[id] = &entry{
		p: domain.Participant{
			ID:       id,
			Nickname: nickname,
			Conn:     conn,
			JoinedAt: now,
			LastSeen: now,
		},
		seq: r.seq,
	}
	r.nicknames[nickname] = id
	if conn != nil {
		r.byConn[conn] = id
	}
	return id, nil
}

// UpdatePosition stores pos for id. Out-of-range coordinates are rejected
// without touching the stored position.
func (r *Registry) UpdatePosition(id string, pos domain.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return domain.ErrUnknownParticipant
	}
	e.p.Position = &pos
	e.p.LastSeen = r.now()
	return nil
}

// Touch refreshes lastSeen; unknown ids are ignored.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byID[id]; ok {
		e.p.LastSeen = r.now()
	}
}

// Remove deletes id and frees its nickname. It reports whether an entry was
// actually removed; removing an absent id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	delete(r.nicknames, e.p.Nickname)
	if e.p.Conn != nil {
		delete(r.byConn, e.p.Conn)
	}
	return true
}

func (r *Registry) Find(id string) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return domain.Participant{}, false
	}
	p := e.p
	if p.Position != nil {
		pos := *p.Position
		p.Position = &pos
	}
	return p, true
}

// FindByConn resolves the participant bound to a connection handle.
func (r *Registry) FindByConn(conn domain.Sender) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byConn[conn]
	return id, ok
}

// Snapshot returns participant summaries in registration order.
func (r *Registry) Snapshot() []domain.Summary {
	r.mu.Lock()
	entries := lo.Values(r.byID)
	out := make([]domain.Summary, 0, len(entries))
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	for _, e := range entries {
		out = append(out, e.p.Summary())
	}
	r.mu.Unlock()

	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byID)
}
