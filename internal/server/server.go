// Package server exposes the schemapub admin API: health, a preview of the
// document that would be published, and a trigger for background publishes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/schemapub/internal/filestore"
	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/model"
	"github.com/koustreak/schemapub/internal/publisher"
)

// Pinger checks the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Publisher is the part of *publisher.Publisher the API drives.
type Publisher interface {
	Enabled() bool
	Build(ctx context.Context) (*model.Document, error)
	PublishAsync() (string, error)
	LastRun() (publisher.Run, bool)
}

// History lists archived documents of a component.
type History interface {
	History(ctx context.Context, component string, limit int) ([]filestore.ObjectInfo, error)
}

type Config struct {
	Addr      string
	Component string
}

type Server struct {
	cfg     Config
	db      Pinger
	pub     Publisher
	history History
	log     *logger.Logger
}

// New returns a Server. history may be nil, in which case the archive
// listing is not served.
func New(cfg Config, db Pinger, pub Publisher, history History, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{cfg: cfg, db: db, pub: pub, history: history, log: log.Component("http")}
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.log.InfoWith("http server starting", map[string]any{"addr": s.cfg.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RequestLogger(s.log))

	r.Method(http.MethodGet, "/healthz", HealthHandler{DB: s.db})

	r.Route("/api", func(api chi.Router) {
		api.Get("/schema", s.handleSchema)
		api.Post("/publish", s.handlePublish)
		api.Get("/publish/status", s.handlePublishStatus)
		if s.history != nil {
			api.Get("/archives", s.handleArchives)
		}
	})
	return r
}
