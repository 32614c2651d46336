package main

import (
	"flag"
	"fmt"
	"os"

	"apicatalog/internal/cli"
	"apicatalog/internal/logger"
	"apicatalog/pkg/config"
)

func main() {
	cfgPath := flag.String("config", "", "path to config YAML")
	envPath := flag.String("env", ".env", "path to .env file")
	baseURL := flag.String("base-url", "", "backend base URL (overrides config and "+config.EnvBaseURL+")")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: apicatalog [flags] <command> [args]\n\n")
		flag.PrintDefaults()
		cli.NewRootCommand(cli.NewApp(config.Default())).Execute(flag.CommandLine.Output(), nil)
	}
	flag.Parse()

	var cfg config.AppConfig
	if *cfgPath != "" {
		c, err := config.LoadFile(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = c
	}
	cfg, err := config.LoadEnv(cfg, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if cfg.Log.Level == "" {
		// failures are already printed as notices
		cfg.Log.Level = "error"
	}
	cfg = cfg.WithDefaults()
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.SetJSON(cfg.Log.JSON)

	app := cli.NewApp(cfg)
	if err := cli.NewRootCommand(app).Execute(os.Stdout, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
