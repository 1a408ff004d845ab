package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pmc-rag/internal/app"
	"pmc-rag/internal/config"
	"pmc-rag/internal/server"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		addr    string
		debug   bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/pmc-rag/config.yaml if not provided)")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := app.NewLogger(debug)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	repo, err := app.BuildRepository(cfg)
	if err != nil {
		logger.Fatal("repository init failed", zap.Error(err))
	}
	svc, err := app.BuildService(cfg, repo, logger)
	if err != nil {
		logger.Fatal("service init failed", zap.Error(err))
	}
	sc := app.BuildScraper(cfg, repo, logger)

	srv := server.New(svc, repo, sc, logger)
	if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
