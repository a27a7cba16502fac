// Package api exposes the HTTP surface: accounts, sessions and the file tree.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/filevault/internal/config"
	"github.com/dharsanguruparan/filevault/internal/files"
	"github.com/dharsanguruparan/filevault/internal/metrics"
	"github.com/dharsanguruparan/filevault/internal/repository"
	"github.com/dharsanguruparan/filevault/internal/users"
)

// Pinger is anything /status can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Store    repository.Store
	Sessions Pinger
	Users    *users.Service
	Files    *files.Service
	Metrics  *metrics.Metrics
}

// Server exposes HTTP endpoints for accounts and files.
type Server struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    repository.Store
	sessions Pinger
	users    *users.Service
	files    *files.Service
	metrics  *metrics.Metrics
	router   *gin.Engine
	server   *http.Server
	once     sync.Once
}

// New constructs a Server and registers its routes.
func New(d Deps) (*Server, error) {
	s := &Server{
		cfg:      d.Config,
		log:      d.Logger,
		store:    d.Store,
		sessions: d.Sessions,
		users:    d.Users,
		files:    d.Files,
		metrics:  d.Metrics,
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	connectLimit, err := RateLimiter(s.cfg.ConnectRateLimit)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LogHandler(s.log, s.metrics))
	router.Use(ErrorHandler(s.log))
	router.Use(cors.New(s.corsConfig()))

	router.GET("/status", s.getStatus)
	router.GET("/stats", s.getStats)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	router.POST("/users", s.postUser)
	router.GET("/connect", connectLimit, s.getConnect)
	router.GET("/disconnect", s.requireUser, s.getDisconnect)
	router.GET("/users/me", s.requireUser, s.getMe)

	router.POST("/files", BodyLimit(s.cfg.MaxUploadBytes), s.requireUser, s.postFile)
	router.GET("/files", s.requireUser, s.getIndex)
	router.GET("/files/:id", s.requireUser, s.getShow)
	router.PUT("/files/:id/publish", s.requireUser, s.putPublish)
	router.PUT("/files/:id/unpublish", s.requireUser, s.putUnpublish)
	router.GET("/files/:id/data", s.optionalUser, s.getData)

	s.router = router
	return s, nil
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", "Authorization", "X-Token"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cfg
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.router,
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Infof("api listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
