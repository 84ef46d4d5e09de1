// Package httpapi assembles the HTTP surface of the relay around the WebSocket endpoint.
package httpapi

import (
	"chat-relay/contract"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	// StaticDir serves the client pages when set: "/" -> index.html, "/chat" -> chat.html.
	StaticDir string
	Gatherer  prometheus.Gatherer
}

// NewRouter mounts the relay routes. relay handles the WebSocket upgrade on /ws.
func NewRouter(log *slog.Logger, relay http.Handler, sessions contract.ISnapshotter, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/sessions", sessionsHandler(log, sessions))
	r.Get("/inspect", inspectHandler(log, sessions))
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Handle("/ws", relay)

	if opts.StaticDir != "" {
		mountStatic(r, opts.StaticDir)
	}
	return r
}

func sessionsHandler(log *slog.Logger, sessions contract.ISnapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sessions.Snapshot()); err != nil {
			log.Debug("Failed to write sessions snapshot", "error", err)
		}
	}
}

func mountStatic(r chi.Router, dir string) {
	page := func(name string) http.HandlerFunc {
		path := filepath.Join(dir, name)
		return func(w http.ResponseWriter, req *http.Request) {
			if _, err := os.Stat(path); err != nil {
				http.NotFound(w, req)
				return
			}
			http.ServeFile(w, req, path)
		}
	}
	r.Get("/", page("index.html"))
	r.Get("/chat", page("chat.html"))
	r.Handle("/*", http.FileServer(http.Dir(dir)))
}
