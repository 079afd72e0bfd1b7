// Package handlers implements the HTTP API: room access, message
// reads and sends, the negotiation workflow and health checks. The
// handlers are the polling read path; live delivery goes through the
// ws package, sharing the same stores and send pipeline.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bufv/NGULIKANG-FINAL/internal/chaterr"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
	"github.com/Bufv/NGULIKANG-FINAL/internal/negotiation"
	"github.com/Bufv/NGULIKANG-FINAL/internal/store"
)

// Sender runs the full send pipeline (persist, touch, cache, fan-out)
// for messages arriving over HTTP, so REST sends reach socket clients
// without the handlers referencing any global transport state.
type Sender interface {
	SendFromHTTP(ctx context.Context, roomID, senderID uuid.UUID, content string) (*models.Message, error)
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store       store.DataStore
	redis       *store.RedisStore
	negotiation *negotiation.Service
	sender      Sender
	logger      zerolog.Logger
}

// NewHandler creates a Handler over the given stores and services.
func NewHandler(ds store.DataStore, redis *store.RedisStore, neg *negotiation.Service, sender Sender, logger zerolog.Logger) *Handler {
	return &Handler{
		store:       ds,
		redis:       redis,
		negotiation: neg,
		sender:      sender,
		logger:      logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Fail classifies err against the shared taxonomy and sends the
// matching status. Unclassified errors are logged and reported as 500
// without leaking internals.
func (h *Handler) Fail(w http.ResponseWriter, err error) {
	status := chaterr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("request failed")
		h.Error(w, status, "internal error")
		return
	}
	h.Error(w, status, err.Error())
}
