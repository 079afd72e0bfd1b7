// Package api wires the HTTP surface: middleware chain, public
// endpoints, the websocket upgrade and the authenticated API group.
package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Bufv/NGULIKANG-FINAL/internal/api/middleware"
	"github.com/Bufv/NGULIKANG-FINAL/internal/auth"
	"github.com/Bufv/NGULIKANG-FINAL/internal/handlers"
	"github.com/Bufv/NGULIKANG-FINAL/internal/ws"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, gateway *ws.Gateway, verifier *auth.Verifier) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(16 * 1024))
	r.Use(middleware.RequireJSON)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Websocket upgrade; the gateway verifies the credential itself so
	// it can also be carried in the query string.
	r.Get("/ws", gateway.ServeWS)

	// Authenticated API
	r.Group(func(r chi.Router) {
		r.Use(verifier.RequireAuth)

		r.Route("/api/chat", func(r chi.Router) {
			r.Post("/support", h.SupportRoom)
			r.Get("/rooms", h.ListRooms)
			r.Get("/rooms/{roomID}/messages", h.RoomMessages)
			r.Post("/rooms/{roomID}/messages", h.SendMessage)
			r.Put("/rooms/{roomID}/close", h.CloseRoom)
		})

		r.Route("/api/negotiation", func(r chi.Router) {
			r.Post("/start", h.StartNegotiation)
			r.Get("/rooms", h.NegotiationRooms)
			r.Get("/rooms/{roomID}/order", h.RoomOrder)
			r.Get("/workers", h.Workers)
		})
	})

	return r
}
