package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/modbot/pkg/db/store"
	"github.com/mwantia/modbot/pkg/log"
)

const requestTimeout = 5 * time.Second

// Server exposes a read-only view of the tag knowledge base.
type Server struct {
	store  store.TagStore
	log    log.LoggerService
	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the router. tags may be nil when persistence is disabled.
func NewServer(address string, tags store.TagStore, logger log.LoggerService) *Server {
	s := &Server{
		store:  tags,
		log:    logger,
		engine: gin.New(),
	}
	s.engine.Use(s.logging(), gin.Recovery())

	s.engine.GET("/health", s.Health)

	group := s.engine.Group("/api")
	group.Use(s.requireStore())
	group.GET("/tags", s.ListTags)
	group.GET("/tags/:name", s.GetTag)
	group.GET("/stats", s.ServerStats)
	group.GET("/stats/:creator", s.MemberStats)

	s.http = &http.Server{
		Addr:              address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens until ctx is cancelled and then shuts the listener down.
func (s *Server) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("Admin API listening on '%s'", s.http.Addr)
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdown); err != nil {
		return err
	}
	return nil
}

func (s *Server) Health(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "persistence": false})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := s.store.Health(ctx); err != nil {
		s.log.Warn("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "persistence": true})
}

func (s *Server) requireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.store == nil {
			ErrorResponse(c, http.StatusServiceUnavailable, ErrCodePersistenceDisabled, "persistence is disabled")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
