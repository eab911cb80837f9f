package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jmtsu/supablog/internal/config"
	"github.com/jmtsu/supablog/internal/middleware"
	"github.com/jmtsu/supablog/internal/respond"
	"github.com/jmtsu/supablog/internal/tasks"
)

// TaskObserver counts submitted tasks for metrics.
type TaskObserver interface {
	ObserveTaskEnqueued(task string)
}

// API serves the versioned API surface: health, the protected identity echo,
// and background task submission.
type API struct {
	cfg      config.APIConfig
	tasks    *tasks.Client
	observer TaskObserver
	logger   *slog.Logger
}

// NewAPI wires the versioned API handlers. tasks and observer may be nil.
func NewAPI(cfg config.APIConfig, taskClient *tasks.Client, observer TaskObserver, logger *slog.Logger) *API {
	return &API{
		cfg:      cfg,
		tasks:    taskClient,
		observer: observer,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// Health handles GET under the API prefix.
func (h *API) Health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.cfg.Version,
		"service": h.cfg.ServiceName,
	})
}

// WebHealth handles the unversioned GET /health probe.
func (h *API) WebHealth(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.cfg.ServiceName,
	})
}

// Protected echoes the identity the auth middleware attached to the context.
func (h *API) Protected(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		// Only reachable when the route is miswired without RequireAuth.
		respond.Error(w, http.StatusUnauthorized, "Missing authorization header")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{
		"message":    "This is a protected endpoint",
		"user_id":    identity.UserID,
		"user_email": identity.Email,
	})
}

type enqueueRequest struct {
	Name    tasks.Name      `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// EnqueueTask handles POST /tasks: validate the typed envelope at the
// boundary, push it, and return immediately without waiting on execution.
func (h *API) EnqueueTask(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		respond.Error(w, http.StatusServiceUnavailable, "Task queue not configured")
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respond.Error(w, http.StatusBadRequest, "Task name required")
		return
	}
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage(`{}`)
	}
	if err := tasks.ValidatePayload(req.Name, req.Payload); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	envelope, err := h.tasks.Enqueue(r.Context(), req.Name, req.Payload)
	if err != nil {
		h.logger.Error("task enqueue failed",
			slog.String("request_id", middleware.RequestIDFrom(r.Context())),
			slog.String("task", string(req.Name)),
			slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "Failed to enqueue task")
		return
	}
	if h.observer != nil {
		h.observer.ObserveTaskEnqueued(string(req.Name))
	}
	respond.JSON(w, http.StatusAccepted, map[string]string{
		"task_id": envelope.ID,
		"name":    string(envelope.Name),
		"status":  "queued",
	})
}
