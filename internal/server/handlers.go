package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"slot-editor/internal/slots"
)

// maxBodyBytes bounds the size of a save request.
const maxBodyBytes = 1 << 20

// Handler serves the slot API and lot pages.
type Handler struct {
	store   *Store
	metrics *Metrics
	logger  *slog.Logger
}

// NewHandler creates a handler over store.
func NewHandler(store *Store, metrics *Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{store: store, metrics: metrics, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/save_slots", h.saveSlots)
	r.Get("/api/slots/{lotID}", h.getSlots)
	r.Get("/lots", h.lots)
	r.Get("/lots/{lotID}", h.lot)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}
}

func (h *Handler) saveSlots(w http.ResponseWriter, r *http.Request) {
	var payload slots.Payload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		h.reject(w, "bad_request", http.StatusBadRequest, "invalid JSON body")
		return
	}

	lotID := strings.TrimSpace(string(payload.LotID))
	if lotID == "" {
		h.reject(w, "bad_request", http.StatusBadRequest, "lot_id is required")
		return
	}
	if payload.Rects == nil {
		h.reject(w, "bad_request", http.StatusBadRequest, "rects is required")
		return
	}
	for i, p := range payload.Rects {
		if len(p) < 3 {
			h.reject(w, "invalid_polygon", http.StatusBadRequest,
				fmt.Sprintf("polygon %d has fewer than 3 points", i+1))
			return
		}
	}

	if err := h.store.Replace(lotID, payload.Rects); err != nil {
		if errors.Is(err, ErrInvalidLotID) {
			h.reject(w, "bad_request", http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("save slots", "lot", lotID, slog.Any("err", err))
		h.reject(w, "storage", http.StatusInternalServerError, "failed to store slots")
		return
	}

	if h.metrics != nil {
		h.metrics.saved()
	}
	h.logger.Info("slots saved", "lot", lotID, "count", len(payload.Rects))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) getSlots(w http.ResponseWriter, r *http.Request) {
	lotID := chi.URLParam(r, "lotID")
	labeled, err := h.store.Get(lotID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct {
		LotID string          `json:"lot_id"`
		Slots []slots.Labeled `json:"slots"`
	}{LotID: lotID, Slots: labeled})
}

func (h *Handler) lots(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, lotsPage(h.store.Lots()))
}

func (h *Handler) lot(w http.ResponseWriter, r *http.Request) {
	lotID := chi.URLParam(r, "lotID")
	labeled, err := h.store.Get(lotID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	render(w, r, http.StatusOK, lotPage(lotID, labeled))
}

func (h *Handler) reject(w http.ResponseWriter, reason string, status int, msg string) {
	if h.metrics != nil {
		h.metrics.failed(reason)
	}
	h.logger.Warn("save rejected", "reason", reason, "status", status, "msg", msg)
	writeError(w, status, msg)
}
