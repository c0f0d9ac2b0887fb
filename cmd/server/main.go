package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ArowuTest/random-module/internal/config"
	"github.com/ArowuTest/random-module/internal/handlers"
	"github.com/ArowuTest/random-module/internal/logging"
	"github.com/ArowuTest/random-module/internal/metrics"
	"github.com/ArowuTest/random-module/internal/portmanager"
	"github.com/ArowuTest/random-module/internal/rng"
	"github.com/ArowuTest/random-module/internal/server"
)

var version = "dev"

func main() {
	startedAt := time.Now()

	// Load config & init
	appCfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", logging.Err(err))
		os.Exit(1)
	}
	gin.SetMode(appCfg.GinMode)

	log, logFile, err := logging.New(
		logging.WithLevel(appCfg.LogLevel),
		logging.WithJSON(appCfg.LogJSON),
		logging.WithDir(appCfg.LogsDir),
		logging.WithName(appCfg.ServiceName),
	)
	if err != nil {
		slog.Error("failed to initialise logging", logging.Err(err))
		os.Exit(1)
	}
	defer logFile.Close()

	ctx := context.Background()

	// Resolve the listen port
	port := appCfg.Port
	if appCfg.UsePortManager() {
		pm := portmanager.NewClient(appCfg, portmanager.WithLogger(log.With(slog.String("component", "port_resolver"))))
		port, err = pm.FetchPort(ctx)
		if err != nil {
			log.Error("failed to retrieve port, service will not start",
				slog.String("service", appCfg.ServiceName), logging.Err(err))
			logFile.Close()
			os.Exit(1)
		}
	}
	ip := appCfg.IP
	if ip == "" {
		ip = server.LocalIP()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var srv *server.Server
	h := handlers.New(handlers.Config{
		Engine:  rng.NewEngine(nil),
		Logger:  log,
		Metrics: m,
		Limits: handlers.Limits{
			MaxLength:    appCfg.MaxLength,
			MaxCount:     appCfg.MaxCount,
			MaxBodyBytes: appCfg.MaxBodyBytes,
		},
		ServiceName: appCfg.ServiceName,
		Version:     version,
		StartedAt:   startedAt,
		Stop:        func() { srv.Stop() },
	})

	// Setup router
	r := server.NewRouter(h, m, server.RouterOptions{
		LocalOnly:    appCfg.LocalOnly,
		WorkersCount: appCfg.WorkersCount,
	})

	srv = server.New(ip, port, r, log)
	log.Info("starting service",
		slog.String("service", appCfg.ServiceName),
		slog.String("addr", srv.Addr()),
		slog.String("version", version),
	)
	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped with error", logging.Err(err))
		logFile.Close()
		os.Exit(1)
	}
	log.Info("service stopped")
}
