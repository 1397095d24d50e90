package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"passdist/internal/config"
	"passdist/internal/http-server/handlers/codes"
	"passdist/internal/http-server/handlers/errors"
	"passdist/internal/http-server/handlers/health"
	"passdist/internal/http-server/middleware/authenticate"
	"passdist/internal/http-server/middleware/requestlog"
	"passdist/internal/http-server/middleware/timeout"
	"passdist/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	codes.Core
}

// NewRouter builds the route table; gatherer may be nil to skip /metrics.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler, gatherer prometheus.Gatherer) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestlog.New(log))
	router.Use(timeout.Timeout(time.Duration(conf.RequestTimeout) * time.Second))
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/", health.Root())

	router.Route("/api", func(r chi.Router) {
		r.Get("/get-password", codes.GetPassword(log, handler))
		r.Get("/stats", codes.Stats(log, handler))
		r.Group(func(admin chi.Router) {
			admin.Use(authenticate.New(log, handler))
			admin.Post("/reset-passwords", codes.Reset(log, handler))
		})
	})

	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorLog: slog.NewLogLogger(log.Handler(), slog.LevelError),
		}))
	}

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler, gatherer prometheus.Gatherer) *Server {
	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	writeTimeout := time.Duration(conf.RequestTimeout+5) * time.Second

	return &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
		httpServer: &http.Server{
			Handler:      NewRouter(conf, log, handler, gatherer),
			ErrorLog:     httpLog,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Run blocks until the server stops; http.ErrServerClosed after Shutdown.
func (s *Server) Run() error {
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIp, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	s.log.Info("starting api server", slog.String("address", serverAddress))

	return s.httpServer.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
