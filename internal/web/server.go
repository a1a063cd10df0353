package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zheng/ctb/internal/config"
	"github.com/zheng/ctb/internal/display"
	"github.com/zheng/ctb/internal/graph"
	"github.com/zheng/ctb/internal/metrics"
)

// Server is the web server for browsing the call graph
type Server struct {
	graph *graph.Handle
	cfg   config.ServerConfig
}

// NewServer creates a new web server over the current graph of h
func NewServer(h *graph.Handle, cfg config.ServerConfig) *Server {
	return &Server{graph: h, cfg: cfg}
}

// Handler returns the router with HTML pages, the JSON API and /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(instrument)

	r.Get("/", s.handleEntrypointsPage)
	r.Get("/classes", s.handleClassesPage)
	r.Get("/class/{cls}", s.handleClassPage)
	r.Get("/method/{cls}/{sig}", s.handleMethodPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/classes", s.handleClasses)
		r.Get("/class/{cls}", s.handleClass)
		r.Get("/entrypoints", s.handleEntrypoints)
		r.Get("/method/{cls}/{sig}", s.handleMethod)
		r.Get("/tree/{cls}/{sig}", s.handleTree)
		r.Get("/search", s.handleSearch)
	})

	r.Handle("/metrics", metrics.Handler())
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web.start", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("web.shutdown")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// instrument counts requests by route pattern and logs them at debug level.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		slog.Debug("web.request",
			"method", r.Method,
			"route", route,
			"status", status,
			"elapsed", time.Since(start),
		)
	})
}

// pathParam returns a decoded URL parameter. chi matches on the raw path when
// the request carries escapes the default encoding would not produce, and
// the parameter is still escaped then.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return display.DecodeSignature(v)
}

func methodParams(r *http.Request) (graph.MethodRef, error) {
	cls, err := pathParam(r, "cls")
	if err != nil {
		return graph.MethodRef{}, err
	}
	sig, err := pathParam(r, "sig")
	if err != nil {
		return graph.MethodRef{}, err
	}
	return graph.MethodRef{Class: cls, Signature: sig}, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps graph lookup errors to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, graph.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
