// Package serve exposes the parser, introspector, and discoverer over a
// local REST API.
package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Dicklesworthstone/cmdlens/internal/config"
	"github.com/Dicklesworthstone/cmdlens/internal/discover"
	"github.com/Dicklesworthstone/cmdlens/internal/helptext"
	"github.com/Dicklesworthstone/cmdlens/internal/introspect"
)

// maxParseBody caps POST /parse payloads. Help text beyond this is not
// help text.
const maxParseBody = 1 << 20

// Server provides the HTTP API.
type Server struct {
	cfg    *config.Config
	exec   introspect.Executor
	disc   *discover.Discoverer
	parser *helptext.Parser
	router chi.Router
	server *http.Server

	// lookPath resolves a bare program name. Test hook.
	lookPath func(string) (string, error)

	mu         sync.Mutex
	inspectors map[string]*introspect.Introspector
}

// New creates a server backed by the given executor.
func New(cfg *config.Config, execer introspect.Executor) *Server {
	s := &Server{
		cfg:        cfg,
		exec:       execer,
		disc:       discover.New(execer),
		parser:     helptext.NewParserWith(cfg.Parser.Weights),
		lookPath:   exec.LookPath,
		inspectors: make(map[string]*introspect.Introspector),
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/clis", s.handleCLIs)
		r.Get("/structure/{name}", s.handleStructure)
		r.Post("/parse", s.handleParse)
	})

	s.router = r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Serve.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting cmdlens server", "addr", s.server.Addr)

	go s.sweepLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// sweepLoop evicts expired structure-cache entries so idle targets do not
// pin memory between requests.
func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			inspectors := make([]*introspect.Introspector, 0, len(s.inspectors))
			for _, it := range s.inspectors {
				inspectors = append(inspectors, it)
			}
			s.mu.Unlock()
			for _, it := range inspectors {
				it.Sweep()
			}
		}
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleCLIs(w http.ResponseWriter, r *http.Request) {
	opts := s.cfg.DiscoverOptions()

	q := r.URL.Query()
	if v := q.Get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_score must be an integer")
			return
		}
		opts.MinScore = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}
	if q.Get("refresh") == "1" {
		opts.UseCache = false
	}

	clis, err := s.disc.Discover(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if clis == nil {
		clis = []discover.CLI{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clis":  clis,
		"count": len(clis),
	})
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || strings.ContainsAny(name, "/\\") {
		writeError(w, http.StatusBadRequest, "name must be a bare program name")
		return
	}

	path, err := s.lookPath(name)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s: not found on the search path", name))
		return
	}

	it := s.inspectorFor(path)
	if r.URL.Query().Get("no_cache") == "1" {
		it.ClearCache()
	}

	structure, err := it.Structure(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

// inspectorFor returns the per-target introspector, creating it on first
// use. Each introspector carries its own TTL cache.
func (s *Server) inspectorFor(path string) *introspect.Introspector {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.inspectors[path]; ok {
		return it
	}
	it := introspect.NewWith(path, s.exec, helptext.NewParserWith(s.cfg.Parser.Weights), s.cfg.IntrospectLimits())
	s.inspectors[path] = it
	return it
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxParseBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	if len(body) > maxParseBody {
		writeError(w, http.StatusRequestEntityTooLarge, "help text too large")
		return
	}

	text := string(body)
	// JSON bodies carry the text in a "text" field; anything else is raw.
	if strings.HasPrefix(strings.TrimSpace(r.Header.Get("Content-Type")), "application/json") {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		text = req.Text
	}

	doc := s.parser.Parse(text)
	writeJSON(w, http.StatusOK, doc)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
