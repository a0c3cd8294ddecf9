package main

import (
	"github.com/wfunc/stationhub/config"
	"github.com/wfunc/stationhub/logger"
	"github.com/wfunc/stationhub/monitor"
	"github.com/wfunc/stationhub/persistence"
	"github.com/wfunc/stationhub/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Snapshot store is optional; the hub runs fine without one.
	var store persistence.Store
	if cfg.Database.Enabled {
		store, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Warnf("Snapshot store unavailable, running without persistence: %v", err)
			store = nil
		} else {
			logger.Log.Info("Snapshot store connection successful.")
		}
	}

	// Metrics endpoint
	mon := monitor.NewMonitor("stationhub")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Hub Server
	hubServer := server.NewHubServer(cfg, store, mon)

	// Start Server
	logger.Log.Infof("Starting hub server on %s", cfg.Server.WSAddress)
	if err := hubServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
