// Package server exposes the HTTP admin surface: health, manual queue
// injection, queue stats, and a manual run trigger. Every /admin route sits
// behind the operator token and the boundary rate limiter.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gradfeed/ingest/internal/model"
	"github.com/gradfeed/ingest/internal/queue"
	"github.com/gradfeed/ingest/internal/ratelimit"
)

// AdminQueue is the slice of the work queue the admin surface needs.
type AdminQueue interface {
	Enqueue(ctx context.Context, taskType string, payload json.RawMessage, priority int, scheduledFor time.Time) (string, error)
	Get(ctx context.Context, id string) (*queue.Item, error)
	Stats(ctx context.Context, window time.Duration) (*queue.Stats, error)
}

// RunFunc triggers one ingestion cycle for the given date.
type RunFunc func(ctx context.Context, date time.Time, dryRun bool) (model.RunMetadata, error)

// Server is the admin HTTP server.
type Server struct {
	engine     *gin.Engine
	queue      AdminQueue
	limiter    *ratelimit.Limiter
	rateLimit  int
	rateWindow time.Duration
	token      string
	run        RunFunc
	logger     *slog.Logger
}

// New builds the admin server and registers its routes. Each client IP gets
// rateLimit admin requests per rateWindow.
func New(q AdminQueue, limiter *ratelimit.Limiter, rateLimit int, rateWindow time.Duration, operatorToken string, run RunFunc, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		queue:      q,
		limiter:    limiter,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
		token:      operatorToken,
		run:        run,
		logger:     logger,
	}

	engine.GET("/healthz", s.health)

	admin := engine.Group("/admin", s.throttleClient, s.authorize)
	admin.POST("/queue", s.enqueue)
	admin.GET("/queue/stats", s.stats)
	admin.GET("/queue/:id", s.getItem)
	admin.POST("/run", s.triggerRun)

	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks serving the admin surface until the context is
// canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) throttleClient(c *gin.Context) {
	res := s.limiter.Check(c.Request.Context(), c.ClientIP(), s.rateLimit, s.rateWindow)
	if !res.Allowed {
		retryAfter := time.Until(res.ResetTime)
		if retryAfter < 0 {
			retryAfter = 0
		}
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Next()
}

func (s *Server) authorize(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid operator token"})
		return
	}
	c.Next()
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type enqueueRequest struct {
	Type         string          `json:"type" binding:"required"`
	Payload      json.RawMessage `json:"payload" binding:"required"`
	Priority     int             `json:"priority"`
	ScheduledFor *time.Time      `json:"scheduledFor"`
}

func (s *Server) enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Priority == 0 {
		req.Priority = 5
	}
	var scheduledFor time.Time
	if req.ScheduledFor != nil {
		scheduledFor = *req.ScheduledFor
	}

	id, err := s.queue.Enqueue(c.Request.Context(), req.Type, req.Payload, req.Priority, scheduledFor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("queue item injected", "id", id, "type", req.Type, "client", c.ClientIP())
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

func (s *Server) stats(c *gin.Context) {
	window := 24 * time.Hour
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window: " + err.Error()})
			return
		}
		window = d
	}

	stats, err := s.queue.Stats(c.Request.Context(), window)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getItem(c *gin.Context) {
	item, err := s.queue.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, queue.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "queue item not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, item)
}

type runRequest struct {
	Date   string `json:"date"` // YYYY-MM-DD, defaults to today
	DryRun bool   `json:"dryRun"`
}

func (s *Server) triggerRun(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + err.Error()})
			return
		}
		date = parsed
	}

	meta, err := s.run(c.Request.Context(), date, req.DryRun)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, meta)
}
