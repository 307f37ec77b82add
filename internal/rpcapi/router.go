// Package rpcapi implements the torrent-daemon RPC dialect subset media
// managers speak, wired into a chi.Mux with a fixed middleware chain.
package rpcapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/putioarr/bridge/internal/domain"
	"github.com/putioarr/bridge/internal/metrics"
)

// TransferLister lists current cloud transfers for torrent-get.
type TransferLister interface {
	ListTransfers(ctx context.Context) ([]domain.RemoteTransfer, error)
}

// TransferDeleter removes a transfer for torrent-remove.
type TransferDeleter interface {
	DeleteTransfer(ctx context.Context, id int64) error
}

// TransferAdder submits a new transfer for torrent-add.
type TransferAdder interface {
	AddTransfer(ctx context.Context, magnetOrURL string) (*domain.RemoteTransfer, error)
	AddTransferFromMetainfo(ctx context.Context, metainfo []byte) (*domain.RemoteTransfer, error)
}

// Server holds the RPC endpoint's dependencies and wires them into a
// chi.Mux.
type Server struct {
	lister  TransferLister
	deleter TransferDeleter
	adder   TransferAdder

	username string
	password string

	downloadDir string

	metrics *metrics.Manager
}

// New builds a Server. downloadDir is reported verbatim in session-get's
// download-dir field.
func New(lister TransferLister, deleter TransferDeleter, adder TransferAdder, username, password, downloadDir string, m *metrics.Manager) *Server {
	return &Server{
		lister:      lister,
		deleter:     deleter,
		adder:       adder,
		username:    username,
		password:    password,
		downloadDir: downloadDir,
		metrics:     m,
	}
}

// Router builds the HTTP handler: /transmission/rpc (session+auth gated),
// /health (unauthenticated), /metrics (unauthenticated).
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.With(s.sessionAndAuth).HandleFunc("/transmission/rpc", s.handleRPC)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleRPC decodes the request envelope and dispatches it. A malformed
// body is returned as HTTP 400 — every other failure is swallowed into a
// structurally valid RPC response so the client never sees a 500 from a
// method call.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("[RPC] malformed request body")
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	resp := s.dispatch(r, req)
	if len(req.Tag) > 0 {
		resp.Tag = req.Tag
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
