package http

import (
	"net/http"
	"time"

	httpmw "github.com/geoglitch/presence-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type CORS struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int
}

type Deps struct {
	Handler        *Handler
	WSPath         string
	WS             http.HandlerFunc
	CORS           CORS
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", httpmw.HeaderRequestID},
		ExposedHeaders:   []string{httpmw.HeaderRequestID},
		AllowCredentials: d.CORS.AllowCredentials,
		MaxAge:           d.CORS.MaxAge,
	}))

	// The upgrade needs the raw ResponseWriter, so the socket stays out of the
	// wrapping middleware below.
	if d.WS != nil {
		r.Get(d.WSPath, d.WS)
	}

	r.Group(func(api chi.Router) {
		api.Use(httpmw.Logging)
		if d.RequestTimeout > 0 {
			api.Use(middlewareChi.Timeout(d.RequestTimeout))
		}

		api.Get("/users", d.Handler.ListUsers)
		api.Get("/users/{id}", d.Handler.GetUser)
		api.Get("/webrtc/ice", d.Handler.ICEServers)
		api.Get("/healthz", d.Handler.Healthz)
	})

	return r
}
