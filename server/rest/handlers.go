package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mediahub-app/mediahub/server/internal/capability"
	"github.com/mediahub-app/mediahub/server/internal/kv"
	"github.com/mediahub-app/mediahub/server/internal/stream"
)

type Handler struct {
	service *Service
	policy  capability.Policy
}

func NewHandler(svc *Service, policy capability.Policy) *Handler {
	return &Handler{
		service: svc,
		policy:  policy,
	}
}

// Info answers with the metadata and selectable video formats of a single
// media item.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing url parameter"})
		return
	}

	m, err := h.service.Info(r.Context(), url, h.policy.HasPostProcessing())
	if err != nil {
		slog.Error("failed retrieving metadata", slog.String("url", url), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to fetch video info. Make sure the URL is valid.",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// Download streams the selected rendition as an attachment. Once the first
// chunk is out, failures can only be reported by aborting the connection.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	url, typ := strings.TrimSpace(q.Get("url")), q.Get("type")
	if url == "" || typ == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing url or type"})
		return
	}

	kind, err := stream.ParseKind(typ)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	req, err := stream.NewMediaRequest(url, kind, q.Get("quality"), stream.ParseAudioTier(q.Get("audioQuality")))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s, err := h.service.Download(r.Context(), req, h.policy.HasPostProcessing())
	if err != nil {
		slog.Error("failed starting download", slog.String("url", url), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to start download",
			Details: err.Error(),
		})
		return
	}
	defer s.Close()

	w.Header().Set("Content-Type", s.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.Filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	// the status line goes out with the first chunk
	if _, err := s.WriteTo(newFlushWriter(w)); err != nil {
		if errors.Is(err, stream.ErrCanceled) {
			slog.Info("download canceled", slog.String("id", s.ID), slog.String("url", url))
		} else {
			slog.Error("download aborted", slog.String("id", s.ID), slog.String("url", url), slog.Any("err", err))
		}

		if s.Written() == 0 {
			w.Header().Del("Content-Disposition")
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Failed to start download",
				Details: err.Error(),
			})
			return
		}

		// a truncated body must not pass for a complete one
		panic(http.ErrAbortHandler)
	}
}

func (h *Handler) AudioTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stream.Tiers)
}

// Streams lists the downloads currently in flight.
func (h *Handler) Streams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Running())
}

func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Stream(chi.URLParam(r, "id"))
	if errors.Is(err, kv.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Stream not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	res := statusResponse{
		Version:        Version,
		PostProcessing: h.policy.HasPostProcessing(),
		ActiveStreams:  h.service.ActiveStreams(),
	}

	path, version, err := h.service.ToolVersion(r.Context())
	if err != nil {
		slog.Warn("failed retrieving yt-dlp version", slog.Any("err", err))
	}
	res.ToolPath, res.ToolVersion = path, version

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed writing response", slog.Any("err", err))
	}
}

// flushWriter pushes every chunk to the client as soon as it is written.
type flushWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	return &flushWriter{w: w, rc: http.NewResponseController(w)}
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := f.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}
