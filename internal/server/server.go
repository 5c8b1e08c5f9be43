// Package server implements the save endpoint that the slot editor posts
// to, plus read-back of saved slots and a small lot overview.
package server

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	h.RegisterRoutes(r)
	return r
}

// ListenAddr returns ":$PORT" when PORT is set, otherwise fallback.
func ListenAddr(fallback string) string {
	addr := ":" + strings.TrimSpace(os.Getenv("PORT"))
	if addr == ":" {
		return fallback
	}
	return addr
}

// New returns an http.Server for handler on addr.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
