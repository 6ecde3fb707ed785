package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/txlogd/txlog/utils/log"
)

// Server serves a Dashboard's routes over plain HTTP.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the gin engine, wires the dashboard's routes onto it,
// and binds an *http.Server to listenAddr without starting to serve yet.
func NewServer(listenAddr string, d *Dashboard) *Server {
	e := gin.Default()
	e.Use(gin.Recovery())
	d.AddRoutes(e)

	return &Server{
		httpServer: &http.Server{
			Addr:    listenAddr,
			Handler: e,
		},
	}
}

// Start begins serving in its own goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("admin: serve error")
		}
	}()
}

// Stop gracefully shuts the server down, waiting up to 5s for in-flight
// requests to finish.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("admin: shutdown error")
	}
}
