// Package server exposes a read-only HTTP view of the archive tree so
// it can be browsed without any extra tooling. It never talks to the
// remote API and never writes to the archive.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/compmonks/instArchiver/pkg/logger"
	"github.com/compmonks/instArchiver/pkg/metadata"
)

// DefaultAddr binds to loopback only; the archive may contain private
// media and the server has no authentication.
const DefaultAddr = "127.0.0.1:8243"

// Server serves one archive directory.
type Server struct {
	baseDir string
	logger  logger.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New creates a server over the archive rooted at baseDir.
func New(baseDir string, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		baseDir: baseDir,
		logger:  log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/items", s.handleItems)
	r.Get("/items/{date}/{id}", s.handleItem)
	r.Get("/items/{date}/{id}/caption", s.handleCaption)
	r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(s.baseDir))))

	s.router = r
}

// Handler returns the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server and blocks until the context is canceled or
// the listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.InfoWithFields("archive browser listening", map[string]interface{}{
			"addr":    addr,
			"archive": s.baseDir,
		})
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("server exited gracefully")
	return nil
}

type dateSummary struct {
	Date  string `json:"date"`
	Items int    `json:"items"`
}

type itemSummary struct {
	ID        string   `json:"id"`
	Date      string   `json:"date"`
	MediaType string   `json:"media_type,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Caption   string   `json:"caption,omitempty"`
	Permalink string   `json:"permalink,omitempty"`
	Files     []string `json:"files"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := metadata.ScanArchive(s.baseDir)
	if err != nil {
		http.Error(w, "failed to scan archive", http.StatusInternalServerError)
		return
	}

	// Entries arrive newest first; keep that order for the dates too
	var dates []dateSummary
	for _, entry := range entries {
		if n := len(dates); n > 0 && dates[n-1].Date == entry.Date {
			dates[n-1].Items++
			continue
		}
		dates = append(dates, dateSummary{Date: entry.Date, Items: 1})
	}
	if dates == nil {
		dates = []dateSummary{}
	}

	writeJSON(w, map[string]interface{}{
		"items": len(entries),
		"dates": dates,
	})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	entries, err := metadata.ScanArchive(s.baseDir)
	if err != nil {
		http.Error(w, "failed to scan archive", http.StatusInternalServerError)
		return
	}

	items := make([]itemSummary, 0, len(entries))
	for _, entry := range entries {
		items = append(items, itemSummary{
			ID:        entry.Item.ID,
			Date:      entry.Date,
			MediaType: entry.Item.MediaType,
			Timestamp: entry.Item.Timestamp,
			Caption:   entry.Item.Caption,
			Permalink: entry.Item.Permalink,
			Files:     entry.Files,
		})
	}

	writeJSON(w, items)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.findEntry(w, r)
	if !ok {
		return
	}

	// Serve the metadata file exactly as archived
	http.ServeFile(w, r, filepath.Join(entry.Dir, metadata.MetaFileName))
}

func (s *Server) handleCaption(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.findEntry(w, r)
	if !ok {
		return
	}

	caption, err := os.ReadFile(filepath.Join(entry.Dir, metadata.CaptionFileName))
	if err != nil {
		http.Error(w, "caption not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(caption)
}

// findEntry resolves the {date}/{id} route pair, writing the error
// response itself when the item cannot be served.
func (s *Server) findEntry(w http.ResponseWriter, r *http.Request) (*metadata.Entry, bool) {
	date := chi.URLParam(r, "date")
	id := chi.URLParam(r, "id")

	entry, err := metadata.FindEntry(s.baseDir, date, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "item not found", http.StatusNotFound)
		} else {
			http.Error(w, "invalid item reference", http.StatusBadRequest)
		}
		return nil, false
	}

	return entry, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per completed request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(lrw, r)

		s.logger.InfoWithFields("http request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      lrw.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"bytes":       lrw.bytesWritten,
		})
	})
}

// loggingResponseWriter captures status code and response size
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

// Unwrap returns the original ResponseWriter
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}
