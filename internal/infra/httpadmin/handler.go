// Package httpadmin is the operator JSON API. It runs in a process that does
// not own the Telegram session, so every chat-bound action goes to the queue.
package httpadmin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"matchday_notification_bot/internal/app"
	"matchday_notification_bot/internal/domain/access"
	idb "matchday_notification_bot/internal/infra/database"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// AdminServiceInterface is what the handlers need from the admin service.
type AdminServiceInterface interface {
	ListSubscribers(ctx context.Context) ([]app.SubscriberView, error)
	AccessMode(ctx context.Context) (access.Mode, error)
	SetAccessMode(ctx context.Context, mode string) (access.Mode, error)
	AddAccessEntry(ctx context.Context, mode string, subscriberID int64) error
	RemoveAccessEntry(ctx context.Context, mode string, subscriberID int64) error
	SetBlocked(ctx context.Context, subscriberID int64, blocked bool) error
	QueueMessage(ctx context.Context, subscriberID int64, text string) error
	RequestCleanup(ctx context.Context) error
}

type Handler struct {
	service  AdminServiceInterface
	validate *validator.Validate
	logger   *logrus.Entry
}

func NewHandler(service AdminServiceInterface, logger *logrus.Entry) *Handler {
	return &Handler{service: service, validate: validator.New(), logger: logger}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type modeRequest struct {
	Mode string `json:"mode" validate:"required"`
}

type modeResponse struct {
	Mode access.Mode `json:"mode"`
}

type messageRequest struct {
	SubscriberID int64  `json:"subscriber_id" validate:"required"`
	Text         string `json:"text" validate:"required,max=4096"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// ListSubscribers returns every subscriber with its authorization.
// GET /api/subscribers
func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListSubscribers(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetAccessMode GET /api/access/mode
func (h *Handler) GetAccessMode(w http.ResponseWriter, r *http.Request) {
	mode, err := h.service.AccessMode(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modeResponse{Mode: mode})
}

// SetAccessMode PUT /api/access/mode
func (h *Handler) SetAccessMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !h.decode(w, r, &req) {
		return
	}
	mode, err := h.service.SetAccessMode(r.Context(), req.Mode)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.logger.WithField("mode", mode).Info("Access mode changed")
	writeJSON(w, http.StatusOK, modeResponse{Mode: mode})
}

// AddAccessEntry POST /api/access/{mode}/{id}
func (h *Handler) AddAccessEntry(w http.ResponseWriter, r *http.Request) {
	h.changeEntry(w, r, h.service.AddAccessEntry)
}

// RemoveAccessEntry DELETE /api/access/{mode}/{id}
func (h *Handler) RemoveAccessEntry(w http.ResponseWriter, r *http.Request) {
	h.changeEntry(w, r, h.service.RemoveAccessEntry)
}

func (h *Handler) changeEntry(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, int64) error) {
	id, ok := subscriberIDParam(w, r)
	if !ok {
		return
	}
	if err := apply(r.Context(), chi.URLParam(r, "mode"), id); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Block POST /api/subscribers/{id}/block
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// Unblock DELETE /api/subscribers/{id}/block
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id, ok := subscriberIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.SetBlocked(r.Context(), id, blocked); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueueMessage queues a manual notification.
// POST /api/messages
func (h *Handler) QueueMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.QueueMessage(r.Context(), req.SubscriberID, req.Text); err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "queued"})
}

// RequestCleanup queues the blocked-user reconciliation.
// POST /api/maintenance/cleanup
func (h *Handler) RequestCleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RequestCleanup(r.Context()); err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "queued"})
}

// decode reads a JSON body into req and validates its tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Code: "INVALID_REQUEST", Message: "request body must be JSON"})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Code: "VALIDATION_FAILED", Message: err.Error()})
		return false
	}
	return true
}

func subscriberIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Code: "INVALID_ID", Message: "subscriber id must be an integer"})
		return 0, false
	}
	return id, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidAccessMode):
		writeJSON(w, http.StatusBadRequest, apiError{Code: "INVALID_MODE", Message: err.Error()})
	case errors.Is(err, app.ErrEmptyMessage), errors.Is(err, app.ErrReservedDestination):
		writeJSON(w, http.StatusBadRequest, apiError{Code: "INVALID_MESSAGE", Message: err.Error()})
	case errors.Is(err, idb.ErrSubscriberNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Code: "NOT_FOUND", Message: err.Error()})
	default:
		h.logger.WithError(err).Error("Admin request failed")
		writeJSON(w, http.StatusInternalServerError, apiError{Code: "INTERNAL", Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
