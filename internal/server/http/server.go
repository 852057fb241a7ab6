// Package httpserver exposes the queue service over a REST API.
package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CryLyo/EduBot/internal/config"
	queuesvc "github.com/CryLyo/EduBot/internal/services/queues"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// Server is the HTTP front of the queue service.
type Server struct {
	cfg    config.Server
	engine *gin.Engine
	svc    *queuesvc.Service
	logger logpkg.Logger
}

// New builds the server and registers all routes.
func New(cfg config.Server, svc *queuesvc.Service, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		engine: engine,
		svc:    svc,
		logger: logger.With(logpkg.Component("http")),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/v1")
	v1.GET("/queues", s.listQueues)
	v1.POST("/queues", s.makeQueue)
	v1.POST("/queues/save", s.saveAll)
	v1.POST("/queues/load", s.loadAll)

	q := v1.Group("/queues/:guild/:channel")
	q.DELETE("", s.deleteQueue)
	q.POST("/convert", s.convert)
	q.POST("/join", s.join)
	q.POST("/leave", s.leave)
	q.GET("/whereis/:participant", s.whereIs)
	q.GET("/entries", s.entries)
	q.POST("/takenext", s.takeNext)
	q.POST("/putback", s.putBack)
	q.POST("/topics", s.startReviewing)
	q.DELETE("/topics/:topic", s.stopReviewing)
	q.GET("/questions", s.listQuestions)
	q.POST("/questions", s.ask)
	q.POST("/questions/:idx/follow", s.follow)
	q.POST("/questions/:idx/answer", s.answer)
	q.POST("/questions/:idx/amend", s.amend)
	q.POST("/save", s.saveOne)
	q.POST("/load", s.loadOne)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Serve runs the listener until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("http server starting", logpkg.Str("addr", s.cfg.Addr))
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-srvErr:
		return err
	}
}
