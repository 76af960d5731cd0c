package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lithammer/shortuuid/v4"
)

// middlewareDuration records the handler's wall-clock duration on the gin
// context for the logger middleware to surface.
func (s *Service) middlewareDuration(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := time.Now()
		c.Next()
		c.Set("duration", time.Since(t))
	}
}

// middlewareRequestID stamps every request with a short, unique trace id.
func (s *Service) middlewareRequestID(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := shortuuid.New()
		c.Set("req_id", id)
		c.Header("req_id", id)
		c.Next()
	}
}

// middlewareLogger logs one structured line per request after it completes.
func (s *Service) middlewareLogger(ctx context.Context) gin.HandlerFunc {
	log := s.log.New("http")
	return func(c *gin.Context) {
		c.Next()
		log.Info("request",
			"status", c.Writer.Status(),
			"url", c.Request.URL.String(),
			"method", c.Request.Method,
			"req_id", c.GetString("req_id"),
			"duration", c.GetDuration("duration"),
		)
	}
}

// middlewareCrash recovers from a panic in a handler and returns a 500
// instead of crashing the process.
func (s *Service) middlewareCrash(ctx context.Context) gin.HandlerFunc {
	log := s.log.New("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Trace("crash", "error", r, "url", c.Request.URL.Path, "method", c.Request.Method)
				c.JSON(500, gin.H{"success": false, "error": "ErrInternal"})
				c.Abort()
			}
		}()
		c.Next()
	}
}
