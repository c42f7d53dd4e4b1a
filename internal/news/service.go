package news

import (
	"context"
	"sync"
	"time"

	"coin-trading-bot/internal/interfaces"
	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/store"
)

// fetcher abstracts the scraper so the cache logic is testable offline.
type fetcher interface {
	Scrape(ctx context.Context, maxHeadlines int) ([]string, error)
}

// Service provides market headlines with TTL caching. Implements the
// HeadlineSource port; scraping failures surface to the caller, who treats
// headlines as best-effort.
type Service struct {
	scraper      fetcher
	maxHeadlines int

	mu      sync.RWMutex
	cached  []string
	fetched time.Time
	ttl     time.Duration
	now     func() time.Time
}

var _ interfaces.HeadlineSource = (*Service)(nil)

func NewService(cfg *store.Config) *Service {
	return &Service{
		scraper:      NewScraper(time.Duration(cfg.Timeouts.CollaboratorSeconds) * time.Second),
		maxHeadlines: cfg.News.MaxHeadlines,
		ttl:          time.Duration(cfg.News.CacheMinutes) * time.Minute,
		now:          time.Now,
	}
}

// Headlines returns cached headlines while they are fresh, otherwise
// scrapes anew.
func (s *Service) Headlines(ctx context.Context) ([]string, error) {
	if cached, ok := s.fresh(); ok {
		logger.Debug(ctx, "Using cached headlines", "count", len(cached))
		return cached, nil
	}

	headlines, err := s.scraper.Scrape(ctx, s.maxHeadlines)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = headlines
	s.fetched = s.now()
	s.mu.Unlock()

	return headlines, nil
}

func (s *Service) fresh() ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cached == nil || s.now().Sub(s.fetched) > s.ttl {
		return nil, false
	}
	return s.cached, true
}
