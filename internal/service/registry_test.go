package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/geoglitch/presence-service/internal/domain"
	"github.com/geoglitch/presence-service/internal/domain/mocks"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRegistry_Register_Find_Remove_RoundTrip(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given Alice registers
	id, err := registry.Register("Alice", nil)
	req.NoError(err)
	req.NotEmpty(id)

	// Then she can be found with a null position
	p, ok := registry.Find(id)
	req.True(ok)
	req.Equal("Alice", p.Nickname)
	req.Nil(p.Position)

	// When she is removed
	req.True(registry.Remove(id))

	// Then the old id is gone and the nickname is free again
	_, ok = registry.Find(id)
	req.False(ok)

	newID, err := registry.Register("Alice", nil)
	req.NoError(err)
	req.NotEqual(id, newID)
}

func TestRegistry_Register_NicknameTaken(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, err := registry.Register("Bob", nil)
	req.NoError(err)

	_, err = registry.Register("Bob", nil)
	req.ErrorIs(err, domain.ErrNicknameTaken)
	req.Equal(1, registry.Len())
}

func TestRegistry_Register_ConcurrentSameNickname(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const attempts = 64
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		mu        sync.Mutex
		succeeded int
		taken     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := registry.Register("Carol", nil)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrNicknameTaken):
				taken++
			}
		}()
	}
	close(start)
	wg.Wait()

	req.Equal(1, succeeded)
	req.Equal(attempts-1, taken)
	req.Len(registry.Snapshot(), 1)
}

func TestRegistry_Snapshot_AfterRegistrationsAndRemovals(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const n, k = 10, 4
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := registry.Register(fmt.Sprintf("user-%d", i), nil)
		req.NoError(err)
		ids = append(ids, id)
	}
	for _, id := range ids[:k] {
		req.True(registry.Remove(id))
	}

	snap := registry.Snapshot()
	req.Len(snap, n-k)

	got := lo.Map(snap, func(s domain.Summary, _ int) string { return s.ID })
	req.Equal(ids[k:], got, "snapshot keeps registration order")
	req.Len(lo.Uniq(got), n-k)
}

func TestRegistry_Remove_IsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	id, err := registry.Register("Dave", nil)
	req.NoError(err)

	req.True(registry.Remove(id))
	req.False(registry.Remove(id))
	req.False(registry.Remove("never-existed"))
	req.Zero(registry.Len())
}

func TestRegistry_UpdatePosition(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	id, err := registry.Register("Eve", nil)
	req.NoError(err)

	// When a valid position arrives
	req.NoError(registry.UpdatePosition(id, domain.Position{Lat: 48.85, Lng: 2.35, Accuracy: lo.ToPtr(10.0)}))

	p, _ := registry.Find(id)
	req.Equal(48.85, p.Position.Lat)

	// When an out-of-range position arrives
	err = registry.UpdatePosition(id, domain.Position{Lat: 120, Lng: 2.35})

	// Then it is rejected and the stored position is untouched
	req.ErrorIs(err, domain.ErrInvalidPosition)
	p, _ = registry.Find(id)
	req.Equal(48.85, p.Position.Lat)
}

func TestRegistry_UpdatePosition_UnknownParticipant(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	err := registry.UpdatePosition("ghost", domain.Position{Lat: 1, Lng: 1})

	req.ErrorIs(err, domain.ErrUnknownParticipant)
	req.Zero(registry.Len())
	req.Empty(registry.Snapshot())
}

func TestRegistry_ConnectionHandleMapping(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	conn := mocks.NewMockSender(ctrl)

	id, err := registry.Register("Frank", conn)
	req.NoError(err)

	got, ok := registry.FindByConn(conn)
	req.True(ok)
	req.Equal(id, got)

	// A connection can hold only one participant
	_, err = registry.Register("Frank2", conn)
	req.ErrorIs(err, domain.ErrAlreadyRegistered)

	registry.Remove(id)
	_, ok = registry.FindByConn(conn)
	req.False(ok)
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	id, err := registry.Register("Grace", nil)
	req.NoError(err)
	req.NoError(registry.UpdatePosition(id, domain.Position{Lat: 1, Lng: 1}))

	snap := registry.Snapshot()
	snap[0].Position.Lat = 80

	p, _ := registry.Find(id)
	req.Equal(1.0, p.Position.Lat)
}
