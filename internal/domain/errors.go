package domain

import "errors"

var (
	ErrNicknameTaken      = errors.New("nickname already taken")
	ErrAlreadyRegistered  = errors.New("connection already registered")
	ErrInvalidNickname    = errors.New("invalid nickname")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrUnknownTarget      = errors.New("unknown target")
	ErrInvalidPosition    = errors.New("invalid position")
	ErrProtocol           = errors.New("protocol error")
	ErrTransport          = errors.New("transport failure")

	ErrParticipantNotFound = errors.New("participant not found")
)
