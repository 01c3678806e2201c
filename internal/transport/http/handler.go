package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/pion/webrtc/v4"
	"github.com/samber/lo"
)

// Directory is the read side of the participant registry.
type Directory interface {
	Snapshot() []domain.Summary
	Find(id string) (domain.Participant, bool)
}

type Handler struct {
	users Directory
	ice   []webrtc.ICEServer
}

func NewHandler(users Directory, ice []webrtc.ICEServer) *Handler {
	return &Handler{users: users, ice: ice}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.users.Snapshot()
	if users == nil {
		users = []domain.Summary{}
	}
	writeJSON(w, http.StatusOK, users)
}

// GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.users.Find(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: domain.ErrParticipantNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p.Summary())
}

// GET /webrtc/ice
func (h *Handler) ICEServers(w http.ResponseWriter, r *http.Request) {
	items := lo.Map(h.ice, func(s webrtc.ICEServer, _ int) ICEServerItem {
		item := ICEServerItem{URLs: s.URLs, Username: s.Username}
		if cred, ok := s.Credential.(string); ok {
			item.Credential = cred
		}
		return item
	})
	writeJSON(w, http.StatusOK, ICEServersResponse{ICEServers: items})
}

// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
