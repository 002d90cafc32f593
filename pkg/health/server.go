package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/scenario"
)

// Progress reports what the running scenario has done so far
type Progress interface {
	Scenario() string
	Steps() []scenario.Step
}

// StepStatus is the JSON form of an executed step
type StepStatus struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Status  string `json:"status"`
	TxHash  string `json:"tx_hash,omitempty"`
	Block   string `json:"block,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Elapsed string `json:"elapsed"`
}

// Status is the body of the /status endpoint
type Status struct {
	Scenario string       `json:"scenario"`
	NodeURL  string       `json:"node_url"`
	Ready    bool         `json:"ready"`
	Steps    []StepStatus `json:"steps"`
}

// Server represents a health check HTTP server
type Server struct {
	addr          string
	nodeURL       string
	progress      Progress
	ready         func() bool
	metricsAPIKey string
	logger        logger.Logger
	srv           *http.Server
}

// NewServer creates a new health check server. ready reports whether the
// node connection is up.
func NewServer(addr, nodeURL string, progress Progress, ready func() bool, log logger.Logger) *Server {
	s := &Server{
		addr:          addr,
		nodeURL:       nodeURL,
		progress:      progress,
		ready:         ready,
		metricsAPIKey: os.Getenv("METRICS_API_KEY"),
		logger:        log,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.ready == nil || !s.ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Node not connected"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.status()); err != nil {
			s.logger.Error("Error encoding status JSON: %v", err)
		}
	})

	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))
	return mux
}

func (s *Server) status() Status {
	st := Status{
		NodeURL: s.nodeURL,
		Ready:   s.ready != nil && s.ready(),
		Steps:   []StepStatus{},
	}
	if s.progress == nil {
		return st
	}
	st.Scenario = s.progress.Scenario()
	for _, step := range s.progress.Steps() {
		out := StepStatus{
			Index:   step.Index,
			Name:    step.Name,
			Role:    step.Role.String(),
			Status:  string(step.Status),
			Detail:  step.Detail,
			Elapsed: step.Elapsed.Round(time.Millisecond).String(),
		}
		if step.TxHash != (common.Hash{}) {
			out.TxHash = step.TxHash.Hex()
		}
		if step.Block != (common.Hash{}) {
			out.Block = step.Block.Hex()
		}
		st.Steps = append(st.Steps, out)
	}
	return st
}

// Start listens in the background until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.logger.Info("Starting health and metrics server on %s", ln.Addr())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Health server error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()
	return nil
}
