// Package handler exposes index publishing over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// Publisher installs an index for a collection.
type Publisher interface {
	Publish(ctx context.Context, req *publish.Request) (*publish.Result, error)
}

// BuildLister lists recent builds of a collection.
type BuildLister interface {
	Recent(ctx context.Context, collection string, limit int) ([]publish.Result, error)
}

// Reloader makes the local process pick up a freshly installed index
// without waiting for the file watcher or Kafka.
type Reloader func(ctx context.Context, collection string) error

type Handler struct {
	publisher Publisher
	builds    BuildLister
	reload    Reloader
	logger    *slog.Logger
}

// New creates a Handler. builds and reload may be nil.
func New(pub Publisher, builds BuildLister, reload Reloader) *Handler {
	return &Handler{
		publisher: pub,
		builds:    builds,
		reload:    reload,
		logger:    slog.Default().With("component", "publish-handler"),
	}
}

// Register mounts the publish routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/v1/collections/{collection}/index", h.Publish)
	mux.HandleFunc("GET /api/v1/collections/{collection}/builds", h.Builds)
}

// Publish accepts a complete index file as the request body.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithCollection(r.Context(), r.PathValue("collection"))
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validator.MaxBodyBytes+1))
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "index body too large")
		return
	}
	req := publish.Request{
		Collection: r.PathValue("collection"),
		Format:     r.URL.Query().Get("format"),
		Body:       body,
	}
	if err := validator.ValidateRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.publisher.Publish(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("publish failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, err.Error())
		return
	}
	if res.Status == publish.StatusPublished && h.reload != nil {
		if err := h.reload(ctx, req.Collection); err != nil {
			log.Warn("local reload after publish failed", "error", err)
		}
	}
	log.Info("index publish handled",
		"status", res.Status,
		"build_id", res.BuildID,
	)
	status := http.StatusOK
	if res.Status == publish.StatusPublished {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, res)
}

// Builds lists the recorded builds of a collection.
func (h *Handler) Builds(w http.ResponseWriter, r *http.Request) {
	if h.builds == nil {
		h.writeError(w, http.StatusNotImplemented, "build history is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	collection := r.PathValue("collection")
	builds, err := h.builds.Recent(r.Context(), collection, limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing builds failed", "collection", collection, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "listing builds failed")
		return
	}
	if builds == nil {
		builds = []publish.Result{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"collection": collection,
		"builds":     builds,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
