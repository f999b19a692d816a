package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	interfaces "github.com/sheikh-saqib/points-ledger/internal/interfaces"
	"github.com/sheikh-saqib/points-ledger/internal/ledger"
	"github.com/sheikh-saqib/points-ledger/internal/observability"
)

const (
	defaultMaxBody = 1 << 20
	rootText       = "Points Ledger"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Ledger       interfaces.PointsLedger
	Metrics      *observability.Metrics
	Logger       *slog.Logger
	MaxBodyBytes int64
	RateLimit    RateLimitConfig
}

// Server exposes the ledger over HTTP.
type Server struct {
	ledger  interfaces.PointsLedger
	metrics *observability.Metrics
	logger  *slog.Logger
	maxBody int64

	router http.Handler
}

// NewServer wires the routes and middleware around cfg.Ledger.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("api: ledger required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	s := &Server{
		ledger:  cfg.Ledger,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		maxBody: cfg.MaxBodyBytes,
	}
	s.router = s.routes(newRateLimiter(cfg.RateLimit))
	s.metrics.SetLedgerState(s.ledger.Total(), len(s.ledger.Transactions()))
	return s, nil
}

func (s *Server) routes(limiter *rateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(limiter.Middleware)

	observe := func(route string) func(http.Handler) http.Handler {
		return s.metrics.Middleware(route, s.logger)
	}

	r.With(observe("root")).Get("/", s.handleRoot)
	r.With(observe("add")).Post("/add", s.handleAdd)
	r.With(observe("spend")).Post("/spend", s.handleSpend)
	r.With(observe("balance")).Get("/balance", s.handleBalance)
	r.With(observe("transactions")).Get("/transactions", s.handleTransactions)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, rootText)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	input, fieldErrs, err := ValidateAdd(body)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if len(fieldErrs) > 0 {
		writeFieldErrors(w, fieldErrs)
		return
	}

	tx, err := s.ledger.AddTransaction(r.Context(), input.Payer, input.Points, input.Timestamp)
	switch {
	case errors.Is(err, ledger.ErrPointsOverflow):
		raw, _ := rawField(body, "points")
		writeFieldErrors(w, []FieldError{fieldError("points", "Points would overflow the balance", raw)})
		return
	case err != nil:
		writeFieldErrors(w, []FieldError{fieldError("payer", err.Error(), nil)})
		return
	}
	s.logger.InfoContext(r.Context(), "transaction added",
		"transaction_id", tx.ID,
		"payer", tx.Payer,
		"points", tx.Points,
		"timestamp", tx.Timestamp,
	)
	s.metrics.SetLedgerState(s.ledger.Total(), len(s.ledger.Transactions()))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	input, fieldErrs, err := ValidateSpend(body)
	if err != nil {
		s.metrics.ObserveSpend("invalid")
		writeBodyError(w, err)
		return
	}
	if len(fieldErrs) > 0 {
		s.metrics.ObserveSpend("invalid")
		writeFieldErrors(w, fieldErrs)
		return
	}

	// The sufficiency check happens inside Spend so it sees the same total
	// the walk deducts from.
	deltas, err := s.ledger.Spend(r.Context(), input.Points)
	var insufficient *ledger.InsufficientPointsError
	switch {
	case errors.As(err, &insufficient):
		s.metrics.ObserveSpend("insufficient")
		s.logger.InfoContext(r.Context(), "spend rejected",
			"requested", insufficient.Requested,
			"available", insufficient.Available,
		)
		writeText(w, http.StatusBadRequest,
			fmt.Sprintf("Insufficient points, currently only have %d points.", insufficient.Available))
		return
	case errors.Is(err, ledger.ErrInvalidAmount):
		s.metrics.ObserveSpend("invalid")
		writeFieldErrors(w, []FieldError{fieldError("points", "Points must be positive", nil)})
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "spend failed", "error", err)
		writeText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	s.metrics.ObserveSpend("ok")
	s.metrics.SetLedgerState(s.ledger.Total(), len(s.ledger.Transactions()))
	s.logger.InfoContext(r.Context(), "points spent", "points", input.Points, "deltas", deltas)
	writeJSON(w, http.StatusOK, deltas)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Balances())
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Transactions())
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeText(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func writeBodyError(w http.ResponseWriter, err error) {
	msg := "Request body must be valid JSON"
	if errors.Is(err, errNotObject) {
		msg = "Request body must be a JSON object"
	}
	writeJSON(w, http.StatusBadRequest, map[string][]FieldError{
		"errors": {{Type: "body", Msg: msg, Location: locationBody}},
	})
}

func writeFieldErrors(w http.ResponseWriter, errs []FieldError) {
	writeJSON(w, http.StatusBadRequest, map[string][]FieldError{"errors": errs})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}
