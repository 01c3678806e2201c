package ws

import "github.com/geoglitch/presence-service/internal/domain"

// Frame types on the wire.
const (
	TypeRegister       = "register"
	TypePositionUpdate = "positionUpdate"
	TypeOffer          = "offer"
	TypeAnswer         = "answer"
	TypeICECandidate   = "iceCandidate"

	TypeRegistered = "registered"
	TypeUserUpdate = "userUpdate"
	TypeError      = "error"
)

// Codes carried by error frames. They only ever go to the sender.
const (
	CodeNicknameTaken   = "nickname_taken"
	CodeInvalidNickname = "invalid_nickname"
	CodeInvalidPosition = "invalid_position"
)

type envelope struct {
	Type string `json:"type" validate:"required"`
}

type RegisterFrame struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname" validate:"required"`
}

type PositionUpdateFrame struct {
	Type     string        `json:"type"`
	ID       string        `json:"id,omitempty"`
	Position *positionWire `json:"position"`
}

// positionWire keeps an absent or null coordinate apart from a zero one.
type positionWire struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

func (w *positionWire) position() (domain.Position, bool) {
	if w == nil || w.Lat == nil || w.Lng == nil {
		return domain.Position{}, false
	}
	return domain.Position{Lat: *w.Lat, Lng: *w.Lng, Accuracy: w.Accuracy}, true
}

// signalTarget is the only part of offer/answer/iceCandidate the relay reads.
type signalTarget struct {
	TargetID string `json:"targetId" validate:"required"`
}

type RegisteredFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type UserUpdateFrame struct {
	Type  string           `json:"type"`
	Users []domain.Summary `json:"users"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func isSignal(t string) bool {
	return t == TypeOffer || t == TypeAnswer || t == TypeICECandidate
}
