// Package stocks answers the read side of the web app: companies, price
// series and range analytics, served from a short-lived cache over the store.
package stocks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"StockAnalysis/internal/cache"
	"StockAnalysis/internal/calculator"
	"StockAnalysis/internal/model"
	"StockAnalysis/internal/store"
)

// Cache keys of the two datasets.
const (
	KeyCompanies = "companies"
	KeyPrices    = "prices"
)

// DefaultTTL is how long a loaded dataset is served before reloading.
const DefaultTTL = 60 * time.Second

// Service reads companies and prices through the cache.
type Service struct {
	reader store.Reader
	cache  *cache.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for range windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service over r. A nil cache gets a private one.
func NewService(r store.Reader, c *cache.Cache, opts ...Option) *Service {
	if c == nil {
		c = cache.New()
	}
	s := &Service{
		reader: r,
		cache:  c,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Companies returns every registered company.
func (s *Service) Companies(ctx context.Context) ([]model.Company, error) {
	companies, err := cache.Load(ctx, s.cache, KeyCompanies, s.ttl, s.reader.AllCompanies)
	if err != nil {
		s.logger.Error("load companies", zap.Error(err))
		return nil, err
	}
	return companies, nil
}

// Prices returns every stored bar, date ascending.
func (s *Service) Prices(ctx context.Context) ([]model.PriceBar, error) {
	prices, err := cache.Load(ctx, s.cache, KeyPrices, s.ttl, s.reader.AllPriceBars)
	if err != nil {
		s.logger.Error("load prices", zap.Error(err))
		return nil, err
	}
	return prices, nil
}

// CompanyByName finds the first company with the exact display name.
func (s *Service) CompanyByName(ctx context.Context, name string) (model.Company, error) {
	companies, err := s.Companies(ctx)
	if err != nil {
		return model.Company{}, err
	}
	for _, c := range companies {
		if c.Name == name {
			return c, nil
		}
	}
	return model.Company{}, fmt.Errorf("company %q: %w", name, model.ErrNotFound)
}

// CompanyByTicker finds the company registered under ticker.
func (s *Service) CompanyByTicker(ctx context.Context, ticker string) (model.Company, error) {
	companies, err := s.Companies(ctx)
	if err != nil {
		return model.Company{}, err
	}
	for _, c := range companies {
		if c.Ticker == ticker {
			return c, nil
		}
	}
	return model.Company{}, fmt.Errorf("ticker %q: %w", ticker, model.ErrNotFound)
}

// CompanyNames returns the distinct company names, sorted.
func (s *Service) CompanyNames(ctx context.Context) ([]string, error) {
	companies, err := s.Companies(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(companies))
	names := make([]string, 0, len(companies))
	for _, c := range companies {
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Series returns ticker's bars inside the range option and its full
// history, both date ascending.
func (s *Service) Series(ctx context.Context, ticker, rangeOption string) (window, full []model.PriceBar, err error) {
	prices, err := s.Prices(ctx)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	full = calculator.Query(prices, ticker, calculator.RangeAll, now)
	window = calculator.FilterByRange(full, rangeOption, now)
	return window, full, nil
}

// LastUpdate reports the newest bar in the store. It bypasses the cache so
// the index page shows ingestion progress immediately.
func (s *Service) LastUpdate(ctx context.Context) (model.LastUpdate, bool, error) {
	return s.reader.LatestUpdate(ctx)
}
