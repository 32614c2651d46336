package main

import (
	"cmp"
	"flag"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"apicatalog/internal/backend"
	_ "apicatalog/internal/db/extractors"
	"apicatalog/internal/logger"

	"apicatalog/internal/db"
	"apicatalog/pkg/config"
)

func main() {
	// flags
	cfgPath := flag.String("config", filepath.Join(".", "configs", "example.yaml"), "path to config YAML")
	envPath := flag.String("env", ".env", "path to .env file")
	port := flag.Int("port", 0, "http port (overrides config, default"+fmt.Sprintf(" %d)", config.DefaultServerPort))
	timeout := flag.Int("timeout", 0, "db connect timeout seconds")
	flag.Parse()

	// attempt to load config file (optional)
	appCfg := config.Default()
	if *cfgPath != "" {
		logger.Info("config file %s", *cfgPath)
		if c, err := config.LoadFile(*cfgPath); err == nil {
			appCfg = c
		} else {
			logger.Error("error reading config file: %v", err)
		}
	}
	appCfg, err := config.LoadEnv(appCfg, *envPath)
	if err != nil {
		logger.Fatal("%v", err)
	}
	appCfg = appCfg.WithDefaults()

	if err := logger.SetLevel(appCfg.Log.Level); err != nil {
		logger.Error("%v", err)
	}
	logger.SetJSON(appCfg.Log.JSON)

	*port = cmp.Or(*port, appCfg.Server.Port)
	dbTimeout := cmp.Or(*timeout, appCfg.Server.DBTimeoutSeconds)

	opts := []backend.Option{
		backend.WithDBTimeout(dbTimeout),
		backend.WithCallTimeout(appCfg.Client.ProbeTimeout()),
	}
	if appCfg.Database.Engine != "" || appCfg.Database.DSN != "" {
		if _, _, err := config.BuildDriverAndDSN(appCfg.Database); err != nil {
			logger.Error("error building DSN: %v", err)
		} else {
			logger.Info("default database: %s %s", config.NormalizeDriver(appCfg.Database.Engine), appCfg.Database.DatabaseName)
			opts = append(opts, backend.WithDefaultDatabase(appCfg.Database))
		}
	}
	srv := backend.NewServer(backend.NewRepository(), opts...)

	// HTTP server
	addr := fmt.Sprintf(":%d", *port)
	hs := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logger.Info("listening on %s", addr)
	logger.Info("registered dialects: %v", db.RegisteredDialects())
	if err := hs.ListenAndServe(); err != nil {
		logger.Fatal("%v", err)
	}
}
