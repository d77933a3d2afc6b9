package middleware

import (
	"time" // Latency measurement

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Request ids
	"github.com/sirupsen/logrus" // Structured logging
)

// RequestIDMiddleware reuses the caller's X-Request-ID or generates one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" || len(id) > 64 {
			id = uuid.NewString() // Fresh v4 id
		}
		c.Set(RequestIDKey, id)
		c.Header("X-Request-ID", id) // Echo back to the client
		c.Next()
	}
}

// LoggerMiddleware writes one access log line per request
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Request start
		c.Next()
		fields := logrus.Fields{
			"request_id": c.GetString(RequestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if userID, ok := c.Get(UserIDKey); ok {
			fields["user_id"] = userID
		}
		entry := logrus.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// Logger returns a request-scoped entry carrying the request and user ids
func Logger(c *gin.Context) *logrus.Entry {
	fields := logrus.Fields{"request_id": c.GetString(RequestIDKey)}
	if userID, ok := c.Get(UserIDKey); ok {
		fields["user_id"] = userID
	}
	return logrus.WithFields(fields)
}
