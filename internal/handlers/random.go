package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/random-module/internal/metrics"
	"github.com/ArowuTest/random-module/internal/models"
	"github.com/ArowuTest/random-module/internal/rng"
)

const (
	opString = "string"
	opChoose = "choose"
)

// GenerateString handles POST /generate_random_string
func (h *Handler) GenerateString(c *gin.Context) {
	log := h.logger(c)
	log.Info("generate string request", slog.String("client_ip", c.ClientIP()))

	var req models.GenerateStringRequest
	if !h.bind(c, opString, &req) {
		return
	}

	length := *req.Length
	if length < 1 || length > h.limits.MaxLength {
		h.reject(c, opString, fmt.Sprintf("Invalid length: %d (must be 1–%d)", length, h.limits.MaxLength))
		return
	}
	sel := rng.ClassSelection{
		Digits:    req.UseDigits,
		Lowercase: req.UseLowercase,
		Uppercase: req.UseUppercase,
		Special:   req.UseSpec,
	}
	if sel.Empty() {
		h.reject(c, opString, "At least one charset must be enabled (digits, lowercase, uppercase, special).")
		return
	}

	start := time.Now()
	out, err := rng.GenerateString(h.engine, sel, length)
	if err != nil {
		h.fail(c, opString, err)
		return
	}
	h.observe(opString, metrics.OutcomeOK, start)
	log.Info("generation completed", slog.Int("length", length), slog.Duration("took", time.Since(start)))

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: out})
}

// Choose handles POST /generate_random_choose
func (h *Handler) Choose(c *gin.Context) {
	log := h.logger(c)
	log.Info("random choose request", slog.String("client_ip", c.ClientIP()))

	var req models.ChooseRequest
	if !h.bind(c, opChoose, &req) {
		return
	}

	count := *req.Count
	if count < 1 || count > h.limits.MaxCount {
		h.reject(c, opChoose, fmt.Sprintf("Invalid count: %d (must be 1–%d)", count, h.limits.MaxCount))
		return
	}
	if count > len(req.Items) {
		h.reject(c, opChoose, "Count must be <= item count.")
		return
	}

	start := time.Now()
	picked, err := rng.GenerateChoice(h.engine, req.Items, count)
	if err != nil {
		h.fail(c, opChoose, err)
		return
	}
	h.observe(opChoose, metrics.OutcomeOK, start)
	log.Info("random choice completed",
		slog.Int("items", len(req.Items)),
		slog.Int("count", count),
		slog.Duration("took", time.Since(start)),
	)

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: picked})
}
