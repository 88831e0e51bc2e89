// Package http exposes the background pipeline over HTTP: the generic
// message endpoint the page side talks to, thin REST conveniences, and
// the health and metrics surfaces.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/metrics"
	"github.com/rugscan/rugscan/internal/msg"
	"github.com/rugscan/rugscan/internal/scan"
	"github.com/rugscan/rugscan/internal/storage/postgres"
)

// Config holds the server settings.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig binds locally on the default port.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8347,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// AlertReader serves archived watchlist alerts. A nil reader means no
// archive is configured and the route returns an empty list.
type AlertReader interface {
	Recent(ctx context.Context, addr domain.Address, limit int) ([]postgres.AlertRow, error)
}

// Server hosts the message protocol.
type Server struct {
	config     Config
	dispatcher *msg.Dispatcher
	alerts     AlertReader
	httpServer *http.Server
}

// NewServer wires the router.
func NewServer(config Config, dispatcher *msg.Dispatcher, alerts AlertReader, reg *metrics.Registry) *Server {
	def := DefaultConfig()
	if config.Host == "" {
		config.Host = def.Host
	}
	if config.Port == 0 {
		config.Port = def.Port
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = def.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = def.WriteTimeout
	}

	s := &Server{config: config, dispatcher: dispatcher, alerts: alerts}

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/message", s.handleMessage).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/scan", s.handleScan).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/watchlist", s.handleWatchlistGet).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/watchlist", s.handleWatchlistAdd).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/watchlist", s.handleWatchlistRemove).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/settings", s.handleSettingsGet).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/settings", s.handleSettingsUpdate).Methods(http.MethodPatch)
	router.HandleFunc("/api/v1/cache", s.handleCacheClear).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/alerts", s.handleAlerts).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(reg.Prometheus(), promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req msg.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, msg.Fail(fmt.Errorf("decoding request: %w", err)))
		return
	}
	writeResponse(w, s.dispatcher.Dispatch(r.Context(), req))
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	s.dispatchAs(w, r, msg.TypeScanToken)
}

func (s *Server) handleWatchlistGet(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, s.dispatcher.Dispatch(r.Context(), msg.Request{Type: msg.TypeWatchlistGet}))
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	s.dispatchAs(w, r, msg.TypeWatchlistAdd)
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	s.dispatchAs(w, r, msg.TypeWatchlistRemove)
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, s.dispatcher.Dispatch(r.Context(), msg.Request{Type: msg.TypeSettingsGet}))
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	s.dispatchAs(w, r, msg.TypeSettingsUpdate)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, s.dispatcher.Dispatch(r.Context(), msg.Request{Type: msg.TypeClearCache}))
}

// dispatchAs decodes the body as a request payload and forces the type
// implied by the route.
func (s *Server) dispatchAs(w http.ResponseWriter, r *http.Request, t msg.Type) {
	var req msg.Request
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, msg.Fail(fmt.Errorf("decoding request: %w", err)))
			return
		}
	}
	req.Type = t
	writeResponse(w, s.dispatcher.Dispatch(r.Context(), req))
}

// handleAlerts lists the archived alerts for one watched token, newest
// first. Query parameters: address (required), chain, limit.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chain := domain.Chain(q.Get("chain"))
	if chain == "" {
		chain = domain.DefaultEVMChain
	}
	addr := domain.NewAddress(chain, q.Get("address"))
	if err := scan.ValidateAddress(addr); err != nil {
		writeJSON(w, http.StatusBadRequest, msg.Fail(err))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	var (
		rows []postgres.AlertRow
		err  error
	)
	if s.alerts != nil {
		rows, err = s.alerts.Recent(r.Context(), addr, limit)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, msg.Fail(err))
		return
	}
	if rows == nil {
		rows = []postgres.AlertRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "alerts": rows})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeResponse(w http.ResponseWriter, resp msg.Response) {
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encoding http response failed")
	}
}
