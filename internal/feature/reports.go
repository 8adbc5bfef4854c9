package feature

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"granaflow/internal/cache"
	"granaflow/internal/core"
	applog "granaflow/internal/log"
	"granaflow/internal/notify"
)

const reportCacheSize = 64

// ReportCache holds fetched reports across Reports instances, keyed by
// wallet so that a change to one wallet drops only its entries.
type ReportCache struct {
	annual *cache.LRUCache[[]core.AnnualReportEntry]
	months *cache.LRUCache[core.MonthReport]
}

func NewReportCache(ttl time.Duration) *ReportCache {
	return &ReportCache{
		annual: cache.NewLRUCache[[]core.AnnualReportEntry](reportCacheSize, ttl),
		months: cache.NewLRUCache[core.MonthReport](reportCacheSize, ttl),
	}
}

// WithClock swaps the time source of both caches.
func (c *ReportCache) WithClock(now func() time.Time) *ReportCache {
	c.annual.WithClock(now)
	c.months.WithClock(now)
	return c
}

// Register hands both caches to m for periodic expiry.
func (c *ReportCache) Register(m *cache.Manager) {
	m.Register(c.annual)
	m.Register(c.months)
}

// InvalidateWallet drops every cached report of walletID.
func (c *ReportCache) InvalidateWallet(walletID int64) int {
	prefix := fmt.Sprintf("%d/", walletID)
	return c.annual.DeletePrefix(prefix) + c.months.DeletePrefix(prefix)
}

// Purge drops every cached report.
func (c *ReportCache) Purge() {
	c.annual.Purge()
	c.months.Purge()
}

type ReportsDeps struct {
	Auth     Authenticator
	Cache    *ReportCache
	Notifier notify.Notifier
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Reports serves the annual and monthly reports of one wallet.
type Reports struct {
	walletID int64
	deps     ReportsDeps
	logger   *slog.Logger
	years    []int

	mu   sync.Mutex
	year int
}

func NewReports(walletID int64, deps ReportsDeps) *Reports {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	current := deps.Now().Year()
	years := make([]int, 0, 6)
	for y := current + 1; y >= current-4; y-- {
		years = append(years, y)
	}
	return &Reports{
		walletID: walletID,
		deps:     deps,
		logger:   applog.ForComponent(deps.Logger, applog.ComponentFeature).With("feature", "reports"),
		years:    years,
		year:     current,
	}
}

// AvailableYears lists next year followed by the current year and the four
// before it, newest first.
func (r *Reports) AvailableYears() []int {
	return slices.Clone(r.years)
}

func (r *Reports) SelectedYear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.year
}

func (r *Reports) SelectYear(year int) error {
	if !slices.Contains(r.years, year) {
		return fmt.Errorf("%w: %d", ErrYearUnavailable, year)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.year = year
	return nil
}

// Annual returns the per-month report for the selected year. The session is
// checked before the cache, so cached reports are never served without one.
func (r *Reports) Annual(ctx context.Context) ([]core.AnnualReportEntry, error) {
	client, err := r.deps.Auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	year := r.SelectedYear()
	key := fmt.Sprintf("%d/%d", r.walletID, year)
	if r.deps.Cache != nil {
		if entries, ok := r.deps.Cache.annual.Get(key); ok {
			return entries, nil
		}
	}
	entries, err := client.AnnualReport(ctx, r.walletID, year)
	if err != nil {
		applog.LogError(ctx, r.logger, "Failed to fetch annual report", err, applog.OpFetch,
			applog.NewFields().WithWallet(r.walletID))
		notify.Surface(ctx, r.deps.Notifier, err, "Erro ao buscar relatório anual.")
		return nil, fmt.Errorf("annual report %d: %w", year, err)
	}

	if r.deps.Cache != nil {
		r.deps.Cache.annual.Set(key, entries)
	}
	return entries, nil
}

// Month returns the category breakdown of month in the selected year.
func (r *Reports) Month(ctx context.Context, month int) (core.MonthReport, error) {
	if month < 1 || month > 12 {
		return core.MonthReport{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	client, err := r.deps.Auth.Authenticate(ctx)
	if err != nil {
		return core.MonthReport{}, err
	}

	year := r.SelectedYear()
	key := fmt.Sprintf("%d/%d/%d", r.walletID, year, month)
	if r.deps.Cache != nil {
		if report, ok := r.deps.Cache.months.Get(key); ok {
			return report, nil
		}
	}
	report, err := client.MonthReport(ctx, r.walletID, year, month)
	if err != nil {
		applog.LogError(ctx, r.logger, "Failed to fetch month report", err, applog.OpFetch,
			applog.NewFields().WithWallet(r.walletID))
		notify.Surface(ctx, r.deps.Notifier, err, "Erro ao buscar relatório mensal.")
		return core.MonthReport{}, fmt.Errorf("month report %d-%02d: %w", year, month, err)
	}

	if r.deps.Cache != nil {
		r.deps.Cache.months.Set(key, report)
	}
	return report, nil
}
