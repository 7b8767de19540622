// Package server wires the HTTP surface to the script engine. Each
// accepted connection is bound to at most one engine session for its
// lifetime; closing the connection releases the session's worker and
// execution context.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fortunadb/ateles/internal/api/middleware"
	"github.com/fortunadb/ateles/internal/engine"
	"github.com/fortunadb/ateles/internal/infrastructure/config"
	"github.com/fortunadb/ateles/internal/infrastructure/logging"
	"github.com/fortunadb/ateles/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	env     *engine.Environment
	router  *gin.Engine
	httpSrv *http.Server

	sessions sync.Map // net.Conn -> *sessionHolder
}

// New builds a server. The bootstrap environment is compiled here; any
// failure is fatal because the process must not serve without it.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing ateles server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	env, err := engine.BuildEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to build engine environment: %w", err)
	}
	logger.Info("Bootstrap environment built")

	metrics := monitoring.New()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		env:     env,
		router:  router,
	}

	router.GET("/", s.root)
	router.GET("/Health", s.health)
	router.POST("/Ateles/Execute", s.execute)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized")
	return s, nil
}

// connSessionKey carries the connection's session holder through request
// contexts.
type connSessionKey struct{}

// Run starts the HTTP server and blocks until it stops. The underlying
// http.Server is built here rather than through gin so session lifetimes
// can be tied to connection lifetimes via ConnContext/ConnState.
func (s *Server) Run() error {
	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ConnContext: s.bindSession,
		ConnState:   s.releaseSession,
	}
	s.logger.Info("Listening", zap.String("addr", addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the server and releases every live session.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("Shutdown failed", zap.Error(err))
		}
	}

	s.sessions.Range(func(key, value any) bool {
		value.(*sessionHolder).close()
		s.sessions.Delete(key)
		return true
	})

	s.logger.Sync()
	return nil
}

func (s *Server) bindSession(ctx context.Context, conn net.Conn) context.Context {
	holder := s.newHolder()
	s.sessions.Store(conn, holder)
	return context.WithValue(ctx, connSessionKey{}, holder)
}

func (s *Server) releaseSession(conn net.Conn, state http.ConnState) {
	if state != http.StateClosed && state != http.StateHijacked {
		return
	}
	if v, ok := s.sessions.LoadAndDelete(conn); ok {
		v.(*sessionHolder).close()
	}
}

func (s *Server) newHolder() *sessionHolder {
	return &sessionHolder{
		create: func() *engine.Session {
			return engine.NewSession(s.env, engine.Options{
				QueueCapacity: s.cfg.Engine.QueueCapacity,
				MaxCallStack:  s.cfg.Engine.MaxCallStack,
				Logger:        s.logger.Logger,
				Recorder:      s.metrics,
			})
		},
	}
}

// sessionHolder creates the connection's session on first use so health
// checks and greetings never spawn an execution context.
type sessionHolder struct {
	mu     sync.Mutex
	sess   *engine.Session
	closed bool
	create func() *engine.Session
}

func (h *sessionHolder) session() (*engine.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, engine.ErrSessionClosed
	}
	if h.sess == nil {
		h.sess = h.create()
	}
	return h.sess, nil
}

func (h *sessionHolder) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.sess != nil {
		h.sess.Close()
	}
}
