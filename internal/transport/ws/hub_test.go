package ws

import (
	"encoding/json"
	"testing"

	"github.com/geoglitch/presence-service/internal/domain"
	"github.com/geoglitch/presence-service/internal/domain/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type staticSnapshot []domain.Summary

func (s staticSnapshot) Snapshot() []domain.Summary { return s }

func TestHub_BroadcastIsolatesFailures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	hub := NewHub(staticSnapshot{{ID: "a", Nickname: "Alice"}})

	var got [][]byte
	ok1 := mocks.NewMockSender(ctrl)
	ok2 := mocks.NewMockSender(ctrl)
	broken := mocks.NewMockSender(ctrl)

	keep := func(b []byte) error { got = append(got, b); return nil }
	ok1.EXPECT().Send(gomock.Any()).DoAndReturn(keep).Times(1)
	ok2.EXPECT().Send(gomock.Any()).DoAndReturn(keep).Times(1)
	broken.EXPECT().Send(gomock.Any()).Return(domain.ErrTransport).Times(1)

	hub.Add(ok1)
	hub.Add(broken)
	hub.Add(ok2)
	hub.Broadcast()

	req.Len(got, 2)
	req.Equal(got[0], got[1])

	var f UserUpdateFrame
	req.NoError(json.Unmarshal(got[0], &f))
	req.Equal(TypeUserUpdate, f.Type)
	req.Equal([]domain.Summary{{ID: "a", Nickname: "Alice"}}, f.Users)
}

func TestHub_EmptyRegistrySendsEmptyList(t *testing.T) {
	ctrl := gomock.NewController(t)
	hub := NewHub(staticSnapshot(nil))

	conn := mocks.NewMockSender(ctrl)
	conn.EXPECT().Send([]byte(`{"type":"userUpdate","users":[]}`)).Return(nil)

	hub.Add(conn)
	hub.Broadcast()

	hub.Remove(conn)
	require.Zero(t, hub.Len())
	hub.Broadcast()
}
