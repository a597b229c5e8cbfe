package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/recship/pkg/log"
	"github.com/bft-labs/recship/pkg/page"
)

// Relay defaults.
const (
	DefaultRequestLimit = 120
	DefaultWindow       = time.Minute
	maxBodyBytes        = 4 << 10
)

// ServerConfig configures the HTTP relay.
type ServerConfig struct {
	// Addr is the listen address. It should be a loopback address.
	Addr string
	// RequestLimit requests per Window are allowed per client IP.
	RequestLimit int
	Window       time.Duration
}

// PageInfo is the body of GET /v1/page.
type PageInfo struct {
	URL      string `json:"url"`
	Eligible bool   `json:"eligible"`
}

// Server exposes a Handler over HTTP.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	logger  log.Logger
	router  chi.Router

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
	done chan struct{}
}

func NewServer(cfg ServerConfig, handler *Handler, logger log.Logger) *Server {
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = DefaultRequestLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &Server{cfg: cfg, handler: handler, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RequestLimit, s.cfg.Window))
		r.Post("/commands", s.handleCommand)
		r.Get("/page", s.handlePage)
	})
	return r
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, Response{Error: "rate limit exceeded"})
		}),
	)
}

// ServeHTTP makes the relay usable without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid command"})
		return
	}
	writeJSON(w, http.StatusOK, s.handler.Handle(cmd))
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	var info PageInfo
	if s.handler.resolve != nil {
		if t := s.handler.resolve(); t != nil {
			info.URL, _ = t.Status()
			info.Eligible = page.Eligible(info.URL)
		}
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("control server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.addr = ln.Addr()
	s.done = make(chan struct{})

	srv, done := s.srv, s.done
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control server stopped", log.Err(err))
		}
	}()
	s.logger.Info("control server listening", log.String("addr", s.addr.String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops accepting requests and waits for the serve loop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	<-done
	return err
}
