// Package subito scrapes motorcycle listings from subito.it search pages and
// reconciles them into the listing store.
package subito

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"moto-scraper/config"
	"moto-scraper/models"
	"moto-scraper/services"
	"moto-scraper/storage"
	"moto-scraper/utils"
)

// Scraper drives the page loop: list page → links → detail pages → validate →
// batch upsert. Listings are processed through the worker pool; with the
// default concurrency of 1 the randomized delay between fetches is the
// effective throttle.
type Scraper struct {
	cfg       *config.Config
	logger    *utils.Logger
	fetcher   PageFetcher
	store     storage.ListingStore
	validator *services.Validator
	pool      *utils.WorkerPool
	visited   *utils.URLSet
	retry     *utils.RetryConfig
}

// New creates a ready-to-use Scraper.
func New(cfg *config.Config, logger *utils.Logger, fetcher PageFetcher, store storage.ListingStore) *Scraper {
	return &Scraper{
		cfg:       cfg,
		logger:    logger,
		fetcher:   fetcher,
		store:     store,
		validator: services.NewValidator(logger),
		pool:      utils.NewWorkerPool(cfg.MaxConcurrency, 0),
		visited:   utils.NewURLSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
		},
	}
}

// Run executes one full scrape pass and returns the run statistics together
// with every raw listing collected (for the CSV artifact). Pagination always
// restarts at page 1; there is no cross-run checkpoint.
func (s *Scraper) Run(ctx context.Context) (*models.RunStats, []*models.RawListing) {
	s.logger.Info("[subito] Starting scrape — up to %d pages, %d listings/page",
		s.cfg.MaxPages, s.cfg.MaxListingsPerPage)

	stats := &models.RunStats{}
	var allRaw []*models.RawListing

	for page := 1; page <= s.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			s.logger.Warn("[subito] Context cancelled — stopping at page %d", page)
			break
		}

		pageURL := s.pageURL(page)
		s.logger.Info("[subito] Page %d: %s", page, pageURL)
		stats.PagesScraped++

		links, err := s.fetchListingLinks(ctx, page, pageURL)
		if err != nil {
			// Recoverable: log, count, move on to the next page.
			s.logger.Error("[subito] Page %d navigation failed: %v", page, err)
			stats.Errors++
			continue
		}

		if len(links) == 0 {
			s.logger.Info("[subito] Page %d has no listings — end of results", page)
			break
		}

		fresh := s.freshLinks(links)
		stats.ListingsFound += len(fresh)
		s.logger.Info("[subito] Page %d: %d links (%d new)", page, len(links), len(fresh))

		listings, raws, errCount := s.scrapeDetails(ctx, fresh)
		stats.Errors += errCount
		stats.ListingsProcessed += len(listings)
		allRaw = append(allRaw, raws...)

		batch := storage.UpsertBatch(s.store, listings, s.logger)
		stats.Inserted += batch.Inserted
		stats.Updated += batch.Updated
		stats.Skipped += batch.Skipped
		stats.Errors += batch.Errors

		s.logger.Info("[subito] Page %d done — inserted %d, updated %d, skipped %d, errors %d",
			page, batch.Inserted, batch.Updated, batch.Skipped, batch.Errors)

		if page < s.cfg.MaxPages {
			utils.RandomDelay(s.cfg.DelayMinMs, s.cfg.DelayMaxMs)
		}
	}

	s.logger.Info("[subito] Scrape complete — %d pages, %d listings processed",
		stats.PagesScraped, stats.ListingsProcessed)
	return stats, allRaw
}

// pageURL builds the list-page URL: page 1 is the base URL, page N adds the
// ?o=N pagination parameter.
func (s *Scraper) pageURL(page int) string {
	if page == 1 {
		return s.cfg.BaseURL
	}
	return fmt.Sprintf("%s?o=%d", s.cfg.BaseURL, page)
}

// fetchListingLinks loads a list page (with retries) and extracts its
// detail-page links.
func (s *Scraper) fetchListingLinks(ctx context.Context, page int, pageURL string) ([]string, error) {
	var links []string

	err := s.retry.Do(fmt.Sprintf("list-page-%d", page), func() error {
		html, err := s.fetcher.FetchPage(ctx, pageURL)
		if err != nil {
			return err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return fmt.Errorf("parse page %d: %w", page, err)
		}
		links = ExtractListingLinks(doc, pageURL)
		return nil
	})

	return links, err
}

// freshLinks drops URLs already seen earlier in the run, then applies the
// per-page cap. The cap counts deduplicated links.
func (s *Scraper) freshLinks(links []string) []string {
	fresh := make([]string, 0, len(links))
	for _, link := range links {
		if s.visited.Add(link) {
			fresh = append(fresh, link)
		}
	}
	if limit := s.cfg.MaxListingsPerPage; limit > 0 && len(fresh) > limit {
		fresh = fresh[:limit]
	}
	return fresh
}

// scrapeDetails fetches, extracts and validates every link. Failures after
// retries and pages missing both title and price are dropped and counted.
func (s *Scraper) scrapeDetails(ctx context.Context, links []string) ([]*models.Listing, []*models.RawListing, int) {
	var (
		mu       sync.Mutex
		listings []*models.Listing
		raws     []*models.RawListing
		errCount int
	)

	for _, link := range links {
		link := link
		s.pool.Submit(func() {
			utils.RandomDelay(s.cfg.DelayMinMs, s.cfg.DelayMaxMs)

			raw, err := s.fetchDetail(ctx, link)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				s.logger.Warn("[subito] Detail fetch failed for %s: %v", link, err)
				errCount++
				return
			}
			if raw == nil {
				s.logger.Warn("[subito] Discarding %s — neither title nor price found", link)
				errCount++
				return
			}

			raws = append(raws, raw)
			listings = append(listings, s.validator.Validate(raw))
			s.logger.Debug("[subito] Extracted %s (%s)", raw.Title, link)
		})
	}
	s.pool.Wait()

	return listings, raws, errCount
}

// fetchDetail loads a detail page with retries and extracts its fields. A nil
// result with nil error means the page loaded but had nothing worth keeping.
func (s *Scraper) fetchDetail(ctx context.Context, link string) (*models.RawListing, error) {
	var raw *models.RawListing

	err := s.retry.Do("detail-page", func() error {
		html, err := s.fetcher.FetchPage(ctx, link)
		if err != nil {
			return err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return fmt.Errorf("parse detail %s: %w", link, err)
		}
		raw = ExtractListingDetail(doc, link)
		return nil
	})

	return raw, err
}
