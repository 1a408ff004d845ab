// Package scraper crawls PMC search results and scrapes target
// sections of each article into stored papers.
package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pmc-rag/internal/domain"
)

// Config tunes the PMC crawl.
type Config struct {
	MaxArticles    int
	TargetSections []string
	Delay          time.Duration
	UserAgent      string
}

// Stats summarizes a scrape-and-store run.
type Stats struct {
	URLsCollected int `json:"urls_collected"`
	Stored        int `json:"stored"`
	Skipped       int `json:"skipped"`
}

// PMCScraper collects article URLs from paginated PMC search results,
// scrapes each article's target sections, and persists papers that
// carry at least one of them.
type PMCScraper struct {
	repo domain.PaperRepository
	cfg  Config
	log  *zap.Logger
}

// NewPMCScraper builds a scraper over the given repository.
func NewPMCScraper(repo domain.PaperRepository, cfg Config, log *zap.Logger) *PMCScraper {
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = 50
	}
	if len(cfg.TargetSections) == 0 {
		cfg.TargetSections = []string{"Results", "Discussion"}
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "pmc-rag/1.0 (research indexing)"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PMCScraper{repo: repo, cfg: cfg, log: log}
}

// CrawlArticleURLs walks search result pages until maxArticles URLs are
// collected or a page comes back empty.
func (s *PMCScraper) CrawlArticleURLs(searchURL string, maxArticles int) ([]string, error) {
	if maxArticles <= 0 {
		maxArticles = s.cfg.MaxArticles
	}
	var urls []string
	seen := map[string]bool{}

	c := s.newCollector()
	c.OnHTML("div.docsum-wrap a.docsum-link", func(e *colly.HTMLElement) {
		if len(urls) >= maxArticles {
			return
		}
		href := e.Attr("href")
		if href == "" {
			return
		}
		full := href
		if strings.HasPrefix(href, "/") {
			full = "https://www.ncbi.nlm.nih.gov" + href
		}
		if !seen[full] {
			seen[full] = true
			urls = append(urls, full)
		}
	})

	for page := 1; len(urls) < maxArticles; page++ {
		before := len(urls)
		pageURL := fmt.Sprintf("%s&page=%d", searchURL, page)
		s.log.Info("visiting search page", zap.Int("page", page), zap.String("url", pageURL))
		if err := c.Visit(pageURL); err != nil {
			return urls, fmt.Errorf("visit search page %d: %w", page, err)
		}
		if len(urls) == before {
			s.log.Info("no more results", zap.Int("page", page))
			break
		}
	}
	if len(urls) > maxArticles {
		urls = urls[:maxArticles]
	}
	s.log.Info("search crawl finished", zap.Int("urls", len(urls)))
	return urls, nil
}

// ScrapeArticle scrapes one article page. It returns false when none of
// the target sections carried text, in which case the paper is not
// worth storing.
func (s *PMCScraper) ScrapeArticle(url string) (domain.Paper, bool, error) {
	paper := domain.Paper{
		DocID:     uuid.NewString(),
		DocTitle:  "Unknown Article Title",
		SourceURL: url,
		CreatedAt: time.Now().Format("2006-01-02"),
	}

	c := s.newCollector()
	c.OnHTML("html", func(e *colly.HTMLElement) {
		if title := strings.TrimSpace(e.DOM.Find("h1").First().Text()); title != "" {
			paper.DocTitle = title
		}
		for _, name := range s.cfg.TargetSections {
			text, ok := s.findSectionText(e.DOM, name)
			if !ok {
				s.log.Warn("section not found", zap.String("section", name), zap.String("url", url))
				continue
			}
			paper.Sections = append(paper.Sections, domain.Section{
				Title: name,
				Order: len(paper.Sections),
				Text:  text,
			})
		}
	})
	if err := c.Visit(url); err != nil {
		return domain.Paper{}, false, fmt.Errorf("visit article %s: %w", url, err)
	}
	if len(paper.Sections) == 0 {
		return domain.Paper{}, false, nil
	}
	return paper, true, nil
}

// ScrapeAndStore crawls the search results, scrapes every collected
// article, and stores those with at least one target section.
func (s *PMCScraper) ScrapeAndStore(searchURL string) (Stats, error) {
	urls, err := s.CrawlArticleURLs(searchURL, s.cfg.MaxArticles)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{URLsCollected: len(urls)}
	for _, url := range urls {
		paper, ok, err := s.ScrapeArticle(url)
		if err != nil {
			s.log.Warn("scrape failed", zap.String("url", url), zap.Error(err))
			stats.Skipped++
			continue
		}
		if !ok {
			s.log.Info("no target sections, skipping", zap.String("url", url))
			stats.Skipped++
			continue
		}
		if err := s.repo.Save(paper); err != nil {
			return stats, fmt.Errorf("store paper from %s: %w", url, err)
		}
		s.log.Info("stored paper",
			zap.String("doc_id", paper.DocID),
			zap.String("title", paper.DocTitle),
			zap.Int("sections", len(paper.Sections)))
		stats.Stored++
	}
	return stats, nil
}

// findSectionText locates an h2.pmc_sec_title heading matching name and
// joins the paragraph texts of its enclosing section.
func (s *PMCScraper) findSectionText(doc *goquery.Selection, name string) (string, bool) {
	var parts []string
	found := false
	doc.Find("h2.pmc_sec_title").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(h.Text(), name) {
			return true
		}
		found = true
		h.Parent().Find("p").Each(func(_ int, p *goquery.Selection) {
			if t := strings.TrimSpace(p.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		return false
	})
	if !found || len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

func (s *PMCScraper) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(s.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: s.cfg.Delay})
	return c
}
