package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func accessLogMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		entry := requestLogger(c, logger).WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      path,
			"status":    status,
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("http request")
		case status >= http.StatusBadRequest:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}

func requestLogger(c *gin.Context, logger *logrus.Logger) *logrus.Entry {
	return logger.WithField("request_id", c.GetString(requestIDKey))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+requestIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Location, "+requestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
