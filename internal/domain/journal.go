package domain

import "time"

type PresenceEventKind string

const (
	EventJoined PresenceEventKind = "joined"
	EventLeft   PresenceEventKind = "left"
)

// PresenceEvent is one entry of the presence journal.
type PresenceEvent struct {
	Kind          PresenceEventKind
	ParticipantID string
	Nickname      string
	Reason        string
	OccurredAt    time.Time
}
