// Package server exposes a small HTTP control surface for a running
// pipeline: lifecycle endpoints, status, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/drostifrosti/openpose/internal/config"
	"github.com/drostifrosti/openpose/internal/logging"
	"github.com/drostifrosti/openpose/internal/monitoring"
)

// Pipeline is the narrow control handle the server drives. The facade
// satisfies it for any item type.
type Pipeline interface {
	Start() error
	Stop()
	IsRunning() bool
	Err() error
}

// Server wires the control API around one pipeline instance.
type Server struct {
	log     *logging.Logger
	pipe    Pipeline
	metrics *monitoring.Metrics
	http    *http.Server
}

// New builds the server and its routes.
func New(cfg config.ControlConfig, pipe Pipeline, metrics *monitoring.Metrics, log *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if metrics != nil {
		router.Use(monitoring.Middleware(metrics))
	}

	s := &Server{
		log:     log,
		pipe:    pipe,
		metrics: metrics,
		http: &http.Server{
			Addr:    cfg.Host + ":" + cfg.Port,
			Handler: router,
		},
	}

	router.POST("/pipeline/start", s.handleStart)
	router.POST("/pipeline/stop", s.handleStop)
	router.GET("/pipeline/status", s.handleStatus)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return s
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("control API listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStart(c *gin.Context) {
	if err := s.pipe.Start(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (s *Server) handleStop(c *gin.Context) {
	start := time.Now()
	s.pipe.Stop()
	c.JSON(http.StatusOK, gin.H{
		"running":    false,
		"stopped_in": time.Since(start).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	status := gin.H{"running": s.pipe.IsRunning()}
	if err := s.pipe.Err(); err != nil {
		status["error"] = err.Error()
	}
	c.JSON(http.StatusOK, status)
}
