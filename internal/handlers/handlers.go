package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/random-module/internal/logging"
	"github.com/ArowuTest/random-module/internal/metrics"
	"github.com/ArowuTest/random-module/internal/models"
	"github.com/ArowuTest/random-module/internal/rng"
)

const (
	internalErrorMessage = "Internal server error"
	tooLargeMessage      = "Payload too large"

	// DefaultMaxBodyBytes caps request bodies when Limits leaves it unset.
	DefaultMaxBodyBytes int64 = 2 << 20
)

// Limits is the bounds policy applied before calling the engine.
type Limits struct {
	MaxLength    int
	MaxCount     int
	MaxBodyBytes int64
}

// Config carries the handler dependencies.
type Config struct {
	Engine      *rng.Engine
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Limits      Limits
	ServiceName string
	Version     string
	StartedAt   time.Time
	// Stop is called shortly after GET /stop has answered.
	Stop func()
}

// Handler serves the random module endpoints.
type Handler struct {
	engine    *rng.Engine
	log       *slog.Logger
	metrics   *metrics.Metrics
	limits    Limits
	service   string
	version   string
	startedAt time.Time
	stop      func()
	stopDelay time.Duration
}

// New builds a Handler. Missing optional dependencies get harmless defaults.
func New(cfg Config) *Handler {
	h := &Handler{
		engine:    cfg.Engine,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		limits:    cfg.Limits,
		service:   cfg.ServiceName,
		version:   cfg.Version,
		startedAt: cfg.StartedAt,
		stop:      cfg.Stop,
		stopDelay: time.Second,
	}
	if h.engine == nil {
		h.engine = rng.NewEngine(nil)
	}
	if h.log == nil {
		h.log = logging.Discard()
	}
	if h.limits.MaxBodyBytes <= 0 {
		h.limits.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if h.startedAt.IsZero() {
		h.startedAt = time.Now()
	}
	if h.stop == nil {
		h.stop = func() {}
	}
	return h
}

// logger returns the request-scoped logger.
func (h *Handler) logger(c *gin.Context) *slog.Logger {
	if id := c.GetString(requestIDKey); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}

func (h *Handler) observe(operation, outcome string, start time.Time) {
	if h.metrics != nil {
		h.metrics.ObserveGeneration(operation, outcome, start)
	}
}

// reject answers a validation failure with 400 and a readable message.
func (h *Handler) reject(c *gin.Context, operation, msg string) {
	h.logger(c).Warn(msg, slog.String("operation", operation))
	h.observe(operation, metrics.OutcomeRejected, time.Now())
	c.JSON(http.StatusBadRequest, models.APIResponse{Success: false, Data: msg})
}

// tooLarge answers an oversized body with 413.
func (h *Handler) tooLarge(c *gin.Context, operation string) {
	h.logger(c).Warn(tooLargeMessage,
		slog.String("operation", operation),
		slog.Int64("limit", h.limits.MaxBodyBytes),
	)
	h.observe(operation, metrics.OutcomeRejected, time.Now())
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, models.APIResponse{Success: false, Data: tooLargeMessage})
}

// bind decodes the JSON body into req, answering the request itself when it
// cannot.
func (h *Handler) bind(c *gin.Context, operation string, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		h.tooLarge(c, operation)
		return false
	}
	h.reject(c, operation, "Invalid payload: "+err.Error())
	return false
}

// fail maps an engine error to a response. Contract violations become 400;
// anything else is reported as an opaque 500.
func (h *Handler) fail(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, rng.ErrEmptyCharset),
		errors.Is(err, rng.ErrInvalidLength),
		errors.Is(err, rng.ErrInvalidBound):
		h.reject(c, operation, err.Error())
	default:
		h.logger(c).Error("generation failed", slog.String("operation", operation), logging.Err(err))
		h.observe(operation, metrics.OutcomeFailed, time.Now())
		c.JSON(http.StatusInternalServerError, models.APIResponse{Success: false, Data: internalErrorMessage})
	}
}
