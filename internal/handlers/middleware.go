package handlers

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ArowuTest/random-module/internal/models"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// IsLocalIP reports whether ip is IPv4 loopback/private or IPv6 loopback.
func IsLocalIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		return v4.IsLoopback() || v4.IsPrivate()
	}
	return ip.IsLoopback()
}

// LocalNetworkOnly rejects requests whose direct peer is outside the local
// network. Forwarding headers are ignored.
func (h *Handler) LocalNetworkOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := net.ParseIP(c.RemoteIP())
		if ip == nil || !IsLocalIP(ip) {
			h.logger(c).Warn("rejected non-local client", slog.String("remote_addr", c.Request.RemoteAddr))
			c.AbortWithStatusJSON(http.StatusForbidden, models.APIResponse{Success: false, Data: "forbidden"})
			return
		}
		c.Next()
	}
}

// RequestID tags every request with an ID, reusing the caller's one if sent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs one line per request. Bodies are never logged.
func (h *Handler) AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.logger(c).LogAttrs(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery turns a panic into an opaque 500 response.
func (h *Handler) Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		h.logger(c).Error("panic during request",
			slog.String("path", c.Request.URL.Path),
			slog.Any("panic", err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			models.APIResponse{Success: false, Data: internalErrorMessage})
	})
}

// BodyLimit caps the request body at Limits.MaxBodyBytes. Bodies that
// announce a larger length are refused before they are read.
func (h *Handler) BodyLimit(operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > h.limits.MaxBodyBytes {
			h.tooLarge(c, operation)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.MaxBodyBytes)
		c.Next()
	}
}

// Limit bounds the number of requests running the engine at once.
func (h *Handler) Limit(sem *semaphore.Weighted) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				models.APIResponse{Success: false, Data: "Service unavailable"})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
