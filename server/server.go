package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/meetmind/meetmind/config"
	"github.com/meetmind/meetmind/logger"
)

// HealthCheck probes one dependency; false marks the service unhealthy.
type HealthCheck func(ctx context.Context) bool

// Server hosts the meeting websocket endpoint plus the health probes.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	cfg        config.ServerConfig
	service    string
	checks     map[string]HealthCheck
	log        *logger.Logger
}

// New creates a server with the websocket handler mounted at /ws.
func New(serviceName string, cfg config.ServerConfig, ws http.Handler) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		engine:  engine,
		cfg:     cfg,
		service: serviceName,
		checks:  make(map[string]HealthCheck),
		log:     logger.WithComponent("server"),
	}

	engine.GET("/health", s.handleHealth)
	engine.GET("/ready", s.handleReadiness)
	if ws != nil {
		engine.GET("/ws", gin.WrapH(ws))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Engine returns the underlying Gin engine for extra route registration.
func (s *Server) Engine() *gin.Engine { return s.engine }

// AddHealthCheck registers a named dependency probe.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.ErrorFields("serve", err))
		}
	}()

	s.log.Info("http server started", logger.Fields("addr", s.httpServer.Addr))
	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if check(c.Request.Context()) {
			components[name] = "healthy"
		} else {
			components[name] = "unhealthy"
			status = "unhealthy"
		}
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":     status,
		"service":    s.service,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": components,
	})
}

func (s *Server) handleReadiness(c *gin.Context) {
	for name, check := range s.checks {
		if !check(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"service": s.service,
				"failed":  name,
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": s.service,
	})
}

// requestLogger logs each request through the shared logger, skipping the
// long-lived websocket upgrade.
func requestLogger() gin.HandlerFunc {
	log := logger.WithComponent("http")
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/ws" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		log.Info("request", logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}
}
