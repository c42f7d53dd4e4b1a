package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"coin-trading-bot/internal/logger"
)

// Scraper collects crypto market headlines from multiple sources.
type Scraper struct {
	sources []Source
	timeout time.Duration
}

// Source defines a headline source configuration
type Source struct {
	Name      string
	BaseURL   string
	Path      string
	Selector  string // CSS selector for headline elements
	RateLimit time.Duration
}

// NewScraper creates a new headline scraper with default sources
func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{
		sources: defaultSources(),
		timeout: timeout,
	}
}

func defaultSources() []Source {
	return []Source{
		{
			Name:      "CoinDesk",
			BaseURL:   "https://www.coindesk.com",
			Path:      "/markets/",
			Selector:  "h2 a, h3 a",
			RateLimit: 2 * time.Second,
		},
		{
			Name:      "Cointelegraph",
			BaseURL:   "https://cointelegraph.com",
			Path:      "/tags/bitcoin",
			Selector:  "span.post-card-inline__title, h2 a",
			RateLimit: 2 * time.Second,
		},
	}
}

// Scrape fetches up to maxHeadlines headlines across all sources. A failing
// source is logged and skipped; the remaining sources still contribute.
func (s *Scraper) Scrape(ctx context.Context, maxHeadlines int) ([]string, error) {
	logger.Info(ctx, "Starting headline scraping", "sources", len(s.sources))

	perSource := maxHeadlines / len(s.sources)
	if perSource < 1 {
		perSource = 1
	}

	var all []string
	for _, source := range s.sources {
		headlines, err := s.scrapeSource(ctx, source, perSource)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", source.Name)
			continue
		}
		all = append(all, headlines...)

		time.Sleep(source.RateLimit)
	}

	if len(all) > maxHeadlines {
		all = all[:maxHeadlines]
	}

	logger.Info(ctx, "Headline scraping completed", "headlines", len(all))
	return all, nil
}

func (s *Scraper) scrapeSource(ctx context.Context, source Source, max int) ([]string, error) {
	var headlines []string

	c := colly.NewCollector(
		colly.AllowedDomains(hostOf(source.BaseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnResponse(func(r *colly.Response) {
		parsed, err := parseHeadlines(strings.NewReader(string(r.Body)), source.Selector, max)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to parse headlines", err, "source", source.Name)
			return
		}
		headlines = parsed
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "source", source.Name, "url", r.Request.URL.String())
	})

	if err := c.Visit(source.BaseURL + source.Path); err != nil {
		return nil, fmt.Errorf("failed to visit %s%s: %w", source.BaseURL, source.Path, err)
	}
	c.Wait()

	return headlines, nil
}

// parseHeadlines extracts deduplicated headline texts matching the selector.
func parseHeadlines(body *strings.Reader, selector string, max int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var headlines []string
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" || len(text) < 15 || seen[text] {
			return true
		}
		seen[text] = true
		headlines = append(headlines, text)
		return len(headlines) < max
	})
	return headlines, nil
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
