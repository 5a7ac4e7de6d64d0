package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"section8map/internal/boundary"
	"section8map/internal/config"
	"section8map/internal/database"
	"section8map/internal/dataset"
	"section8map/internal/filter"
	"section8map/internal/logger"
	"section8map/internal/metrics"
	"section8map/internal/render"
	"section8map/internal/server"
)

const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

func main() {
	logger.Init("section8map")
	cfg := config.Load()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	loader, closeSource := newLoader(cfg)
	defer closeSource()

	datasetStart := time.Now()
	table, err := loader.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load dataset: %v", err)
	}
	m.SetDatasetRecords(table.Len())
	logger.Log.Infof("Dataset ready in %v", time.Since(datasetStart).Truncate(time.Millisecond))

	// County outlines are optional decoration; a bad file only costs the overlay.
	var bounds *boundary.Set
	if cfg.BoundaryPath != "" {
		bounds, err = boundary.Load(cfg.BoundaryPath, cfg.BoundaryNameField, cfg.BoundaryRegionField)
		if err != nil {
			logger.Log.Warnf("warning: %v", err)
		} else {
			logger.Log.Infof("Loaded %d county outlines", bounds.Len())
		}
	}

	renderer := &render.Renderer{
		Engine:      filter.NewEngine(m),
		Boundaries:  bounds,
		MapboxToken: cfg.MapboxToken,
		Metrics:     m,
	}

	if cfg.UIMode == config.ModeTerminal {
		browse(table, renderer)
		return
	}

	handler := server.NewDashboardHandler(loader, renderer)
	srv := server.NewHTTPServer(":"+cfg.Port, server.NewRouter(handler, reg))

	logger.Log.Infof("Starting server on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

// newLoader picks the dataset source. The returned func releases it.
func newLoader(cfg *config.Config) (*dataset.Loader, func()) {
	if cfg.DataSource != config.SourceOracle {
		return dataset.NewLoader(cfg.DataPath, dataset.WithDelimiter(cfg.DataDelimiter)), func() {}
	}

	db, err := database.NewDatabase(cfg.DB, cfg.ListingsTable)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	return dataset.NewLoader("", dataset.WithSource(db)), func() { db.Close() }
}
