// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/config"
	"github.com/rs/zerolog"
)

// DefaultSecret keys tokens and passcodes when no secret is configured.
const DefaultSecret = "proctor-development-secret"

const maxRequestBytes = 64 << 10

// Options configures a Server.
type Options struct {
	Config config.MockConfig
	// Ledger defaults to a MemoryLedger
	Ledger Ledger
	Log    zerolog.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// Server is the development Assessment Service.
type Server struct {
	ledger  Ledger
	tokens  *TokenCodec
	codes   *Passcodes
	bank    *Bank
	metrics *Metrics
	log     zerolog.Logger
	now     func() time.Time

	// mu serializes read-modify-write cycles on the ledger
	mu sync.Mutex
}

// New creates a Server from opts.
func New(opts Options) (*Server, error) {
	secret := opts.Config.Secret
	if secret == "" {
		opts.Log.Warn().Msg("mock.secret not set, using the built-in development secret")
		secret = DefaultSecret
	}
	tokens, err := NewTokenCodec(secret)
	if err != nil {
		return nil, err
	}
	codes, err := NewPasscodes(secret)
	if err != nil {
		return nil, err
	}

	ledger := opts.Ledger
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sections := max(opts.Config.Sections, 1)
	perSection := max(opts.Config.QuestionsPerSection, 1)
	sectionSecs := max(opts.Config.SectionSeconds, 1)

	return &Server{
		ledger:  ledger,
		tokens:  tokens,
		codes:   codes,
		bank:    NewBank(sections, perSection, sectionSecs),
		metrics: NewMetrics(),
		log:     opts.Log.With().Str("component", "mock-service").Logger(),
		now:     now,
	}, nil
}

// Tokens returns the codec used by validate-encrypted-email.
func (s *Server) Tokens() *TokenCodec { return s.tokens }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Passcode returns the passcode currently valid for email.
func (s *Server) Passcode(email string) (string, error) {
	return s.codes.Generate(key(email), s.now())
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "proctor-mock"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/validate-encrypted-email", s.instrument("validate-encrypted-email", s.handleValidateToken))
		api.Post("/check-test-status", s.instrument("check-test-status", s.handleCheckStatus))
		api.Post("/send-otp", s.instrument("send-otp", s.handleSendOTP))
		api.Post("/verify-otp", s.instrument("verify-otp", s.handleVerifyOTP))
		api.Post("/current-question", s.instrument("current-question", s.handleCurrentQuestion))
		api.Post("/responses", s.instrument("responses", s.handleResponses))
		api.Post("/ban-user", s.instrument("ban-user", s.handleBanUser))
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("mock assessment service listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) instrument(call string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		h(ww, r)
		s.metrics.RequestDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
		s.metrics.RequestsTotal.WithLabelValues(call, outcome(ww.Status())).Inc()
	}
}

func outcome(status int) string {
	switch {
	case status >= 500:
		return "error"
	case status >= 400:
		return "rejected"
	}
	return "ok"
}

// =============================================================================
// RESPONSES
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	env := map[string]any{"success": true}
	if data != nil {
		env["data"] = data
	}
	writeJSON(w, http.StatusOK, env)
}

func writeFail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, assessment.Envelope{Success: false, Code: code, Message: message})
}

func writeCompleted(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, assessment.Envelope{Success: true, Completed: true, Message: "Test completed"})
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(out); err != nil {
		writeFail(w, http.StatusBadRequest, "", "malformed request body")
		return false
	}
	return true
}

// requireEmail normalizes email, writing a 400 when it is blank.
func requireEmail(w http.ResponseWriter, email string) (string, bool) {
	e := key(email)
	if e == "" {
		writeFail(w, http.StatusBadRequest, "", "email is required")
		return "", false
	}
	return e, true
}
