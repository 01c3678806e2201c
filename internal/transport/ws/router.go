package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/go-playground/validator/v10"
)

type Registry interface {
	Snapshotter
	Register(nickname string, conn domain.Sender) (string, error)
	UpdatePosition(id string, pos domain.Position) error
	Touch(id string)
	Find(id string) (domain.Participant, bool)
	FindByConn(conn domain.Sender) (string, bool)
	Remove(id string) bool
}

type Broadcaster interface {
	Broadcast()
}

type Journal interface {
	Joined(p domain.Participant)
	Left(p domain.Participant, reason string)
}

// Session is the per-connection state the router needs. It is only touched by
// the connection's read goroutine.
type Session struct {
	Conn          domain.Sender
	ParticipantID string
	Remote        string
}

func (s *Session) registered() bool { return s.ParticipantID != "" }

// Router is the single dispatch table for inbound frames.
type Router struct {
	registry Registry
	fanout   Broadcaster
	journal  Journal
	validate *validator.Validate
}

func NewRouter(registry Registry, fanout Broadcaster, journal Journal) *Router {
	return &Router{
		registry: registry,
		fanout:   fanout,
		journal:  journal,
		validate: validator.New(),
	}
}

// Route handles one inbound frame. It returns an error wrapping
// domain.ErrProtocol only while the session is unregistered; every other
// problem is logged and the frame dropped.
func (r *Router) Route(s *Session, data []byte) error {
	var env envelope
	if err := r.decode(data, &env); err != nil {
		if !s.registered() {
			return fmt.Errorf("%w: expected register frame: %v", domain.ErrProtocol, err)
		}
		slog.Debug("ws malformed frame dropped", "participant", s.ParticipantID, "err", err)
		return nil
	}

	if !s.registered() {
		if env.Type != TypeRegister {
			return fmt.Errorf("%w: expected register frame, got %q", domain.ErrProtocol, env.Type)
		}
		return r.register(s, data)
	}

	r.registry.Touch(s.ParticipantID)

	switch {
	case env.Type == TypeRegister:
		slog.Debug("ws register on registered connection dropped", "participant", s.ParticipantID)
	case env.Type == TypePositionUpdate:
		r.positionUpdate(s, data)
	case isSignal(env.Type):
		r.forward(s, env.Type, data)
	default:
		slog.Debug("ws unknown frame type dropped", "participant", s.ParticipantID, "type", env.Type)
	}
	return nil
}

func (r *Router) register(s *Session, data []byte) error {
	var f RegisterFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: register: %v", domain.ErrProtocol, err)
	}
	f.Nickname = strings.TrimSpace(f.Nickname)
	if err := r.validate.Struct(f); err != nil {
		return fmt.Errorf("%w: register without nickname", domain.ErrProtocol)
	}

	nickname, err := domain.NormalizeNickname(f.Nickname)
	if err != nil {
		r.reject(s, CodeInvalidNickname, err)
		return nil
	}

	id, err := r.registry.Register(nickname, s.Conn)
	switch {
	case errors.Is(err, domain.ErrNicknameTaken):
		r.reject(s, CodeNicknameTaken, fmt.Errorf("nickname %q is already in use", nickname))
		return nil
	case err != nil:
		slog.Warn("ws register failed", "remote", s.Remote, "err", err)
		return nil
	}

	s.ParticipantID = id
	slog.Info("participant registered", "participant", id, "nickname", nickname, "remote", s.Remote)

	r.reply(s, RegisteredFrame{Type: TypeRegistered, ID: id})
	if r.journal != nil {
		if p, ok := r.registry.Find(id); ok {
			r.journal.Joined(p)
		}
	}
	r.fanout.Broadcast()
	return nil
}

func (r *Router) positionUpdate(s *Session, data []byte) {
	var f PositionUpdateFrame
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Debug("ws positionUpdate dropped", "participant", s.ParticipantID, "err", err)
		return
	}
	pos, ok := f.Position.position()
	if !ok {
		slog.Debug("ws positionUpdate without lat/lng dropped", "participant", s.ParticipantID)
		return
	}
	if f.ID != "" && f.ID != s.ParticipantID {
		slog.Warn("ws positionUpdate for another participant dropped",
			"participant", s.ParticipantID, "id", f.ID)
		return
	}

	err := r.registry.UpdatePosition(s.ParticipantID, pos)
	switch {
	case errors.Is(err, domain.ErrInvalidPosition):
		r.reject(s, CodeInvalidPosition, err)
		return
	case err != nil:
		slog.Debug("ws positionUpdate failed", "participant", s.ParticipantID, "err", err)
		return
	}
	r.fanout.Broadcast()
}

// forward relays a negotiation frame to targetId. Fields other than targetId
// and senderId pass through untouched.
func (r *Router) forward(s *Session, typ string, data []byte) {
	var target signalTarget
	if err := r.decode(data, &target); err != nil {
		slog.Debug("ws signal dropped", "participant", s.ParticipantID, "type", typ, "err", err)
		return
	}

	p, ok := r.registry.Find(target.TargetID)
	if !ok || p.Conn == nil {
		slog.Debug("ws signal dropped", "participant", s.ParticipantID, "type", typ,
			"target", target.TargetID, "err", domain.ErrUnknownTarget)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		slog.Debug("ws signal dropped", "participant", s.ParticipantID, "type", typ, "err", err)
		return
	}
	delete(fields, "targetId")
	sender, _ := json.Marshal(s.ParticipantID)
	fields["senderId"] = sender

	out, err := json.Marshal(fields)
	if err != nil {
		slog.Warn("ws signal marshal failed", "participant", s.ParticipantID, "err", err)
		return
	}
	if err := p.Conn.Send(out); err != nil {
		slog.Warn("ws signal send failed", "participant", s.ParticipantID,
			"target", target.TargetID, "type", typ, "err", err)
	}
}

func (r *Router) reject(s *Session, code string, err error) {
	slog.Info("ws frame rejected", "participant", s.ParticipantID, "remote", s.Remote, "code", code, "err", err)
	r.reply(s, ErrorFrame{Type: TypeError, Code: code, Message: err.Error()})
}

func (r *Router) reply(s *Session, v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		slog.Error("ws marshal reply failed", "err", err)
		return
	}
	if err := s.Conn.Send(frame); err != nil {
		slog.Warn("ws reply send failed", "participant", s.ParticipantID, "remote", s.Remote, "err", err)
	}
}

func (r *Router) decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}
	return r.validate.Struct(dst)
}
