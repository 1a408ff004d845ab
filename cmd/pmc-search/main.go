package main

import (
	"flag"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"pmc-rag/internal/app"
	"pmc-rag/internal/config"
	"pmc-rag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/pmc-rag/config.yaml if not provided)")
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

	logger, err := app.NewLogger(false)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	repo, err := app.BuildRepository(cfg)
	if err != nil {
		log.Fatalf("repository init failed: %v", err)
	}
	svc, err := app.BuildService(cfg, repo, logger)
	if err != nil {
		log.Fatalf("service init failed: %v", err)
	}

	chunks, err := svc.IngestAll()
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	ids, err := repo.ListDocIDs()
	if err != nil {
		log.Fatalf("listing papers failed: %v", err)
	}
	banner := fmt.Sprintf("%d papers, %d chunks indexed", len(ids), chunks)

	m := tui.New(svc, banner)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
