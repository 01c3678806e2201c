//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=mocks/mock_sender.go -package=mocks

package domain

import "time"

// Sender delivers one serialized frame to a participant's connection.
// Implementations must not block on network I/O.
type Sender interface {
	Send(frame []byte) error
}

type Participant struct {
	ID       string
	Nickname string
	Position *Position
	Conn     Sender
	JoinedAt time.Time
	LastSeen time.Time
}

// Summary is the public view of a participant; it never carries the connection.
type Summary struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	Position *Position `json:"position"`
}

func (p Participant) Summary() Summary {
	s := Summary{ID: p.ID, Nickname: p.Nickname}
	if p.Position != nil {
		pos := *p.Position
		s.Position = &pos
	}
	return s
}
