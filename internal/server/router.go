package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/ArowuTest/random-module/internal/handlers"
	"github.com/ArowuTest/random-module/internal/metrics"
	"github.com/ArowuTest/random-module/internal/models"
)

// RouterOptions controls router construction.
type RouterOptions struct {
	LocalOnly    bool
	WorkersCount int
}

// NewRouter wires the endpoints and middleware.
func NewRouter(h *handlers.Handler, m *metrics.Metrics, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.APIResponse{Success: false, Data: "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, models.APIResponse{Success: false, Data: "method not allowed"})
	})

	r.Use(handlers.RequestID())
	r.Use(h.AccessLog())
	if m != nil {
		r.Use(m.Middleware())
	}
	r.Use(h.Recovery())
	if opts.LocalOnly {
		r.Use(h.LocalNetworkOnly())
	}

	r.GET("/status", h.Status)
	r.GET("/stop", h.Stop)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	workers := opts.WorkersCount
	if workers < 1 {
		workers = 1
	}
	gen := r.Group("", h.Limit(semaphore.NewWeighted(int64(workers))))
	{
		gen.POST("/generate_random_string", h.BodyLimit("string"), h.GenerateString)
		gen.POST("/generate_random_choose", h.BodyLimit("choose"), h.Choose)
	}

	return r
}
