package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pmc-rag/internal/app"
	"pmc-rag/internal/config"
	"pmc-rag/internal/scraper"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath  string
		maxN     int
		sections string
		dir      string
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.IntVar(&maxN, "max", 0, "Maximum number of articles to scrape (overrides config)")
	flag.StringVar(&sections, "sections", "", "Comma-separated target sections (overrides config)")
	flag.StringVar(&dir, "dir", "", "Output folder for paper JSON files (overrides config)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: pmc-scrape [flags] <pubmed-search-url>")
		os.Exit(1)
	}
	searchURL := flag.Arg(0)

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
	if maxN > 0 {
		cfg.Scraper.MaxArticles = maxN
	}
	if sections != "" {
		var names []string
		for _, s := range strings.Split(sections, ",") {
			if s = strings.TrimSpace(s); s != "" {
				names = append(names, s)
			}
		}
		cfg.Scraper.TargetSections = names
	}
	if dir != "" {
		cfg.PapersDir = dir
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
	sc := scraper.NewPMCScraper(repo, scraper.Config{
		MaxArticles:    cfg.Scraper.MaxArticles,
		TargetSections: cfg.Scraper.TargetSections,
		Delay:          time.Duration(cfg.Scraper.DelayMillis) * time.Millisecond,
	}, logger)

	stats, err := sc.ScrapeAndStore(searchURL)
	if err != nil {
		log.Fatalf("scrape failed: %v", err)
	}
	fmt.Printf("collected %d urls, stored %d papers, skipped %d\n", stats.URLsCollected, stats.Stored, stats.Skipped)
}
