package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/process"

	"github.com/ArowuTest/random-module/internal/logging"
	"github.com/ArowuTest/random-module/internal/models"
)

// Status handles GET /status
func (h *Handler) Status(c *gin.Context) {
	now := time.Now()
	st := models.Status{
		Service:       h.service,
		Version:       h.version,
		StartedAt:     h.startedAt.UTC(),
		UptimeSeconds: int64(now.Sub(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfo(); err == nil {
			st.RSSBytes = mem.RSS
		}
		if cpu, err := p.CPUPercent(); err == nil {
			st.CPUPercent = cpu
		}
	} else {
		h.logger(c).Debug("process stats unavailable", logging.Err(err))
	}

	h.logger(c).Info("status requested", slog.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: st})
}

// Stop handles GET /stop. The shutdown starts after the reply is written.
func (h *Handler) Stop(c *gin.Context) {
	h.logger(c).Info("received stop request, shutting down", slog.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: nil})
	time.AfterFunc(h.stopDelay, h.stop)
}
