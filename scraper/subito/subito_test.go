package subito

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moto-scraper/config"
	"moto-scraper/models"
	"moto-scraper/utils"
)

// stubFetcher serves canned HTML per URL. Unknown URLs render as empty pages
// so pagination ends naturally; URLs in errs always fail.
type stubFetcher struct {
	pages   map[string]string
	errs    map[string]error
	fetched []string
	closed  bool
}

func (f *stubFetcher) FetchPage(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	if err := f.errs[url]; err != nil {
		return "", err
	}
	if html, ok := f.pages[url]; ok {
		return html, nil
	}
	return "<html><body></body></html>", nil
}

func (f *stubFetcher) Close() { f.closed = true }

// recordingStore implements storage.ListingStore in memory.
type recordingStore struct {
	upserts []*models.Listing
	actions map[string]models.UpsertAction
	fail    map[string]bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		actions: make(map[string]models.UpsertAction),
		fail:    make(map[string]bool),
	}
}

func (r *recordingStore) UpsertOne(l *models.Listing) (models.UpsertAction, error) {
	if r.fail[l.URL] {
		return "", errors.New("db write failed")
	}
	r.upserts = append(r.upserts, l)
	if a, ok := r.actions[l.URL]; ok {
		return a, nil
	}
	return models.ActionInserted, nil
}

func (r *recordingStore) BulkUpsert([]*models.Listing) error   { return nil }
func (r *recordingStore) FetchAll() ([]*models.Listing, error) { return nil, nil }
func (r *recordingStore) Close() error                         { return nil }

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:            "https://www.subito.it/annunci-italia/vendita/moto/",
		MaxPages:           5,
		MaxListingsPerPage: 30,
		MaxRetries:         2,
		RetryBaseDelay:     time.Millisecond,
		MaxConcurrency:     1,
	}
}

func listPageHTML(hrefs ...string) string {
	html := ""
	for _, h := range hrefs {
		html += fmt.Sprintf(
			`<article class="index-module_card__t"><a class="index-module_link__t" href="%s">ad</a></article>`, h)
	}
	return "<html><body>" + html + "</body></html>"
}

func detailPageHTML(title, price string) string {
	return fmt.Sprintf(`<html><body>
		<h1 class="index-module_title__t">%s</h1>
		<p class="index-module_price__t">%s</p>
	</body></html>`, title, price)
}

func TestRunStopsOnEmptyPage(t *testing.T) {
	cfg := testConfig()
	link1 := "https://www.subito.it/moto-e-scooter/ducati-1.htm"
	link2 := "https://www.subito.it/moto-e-scooter/honda-2.htm"

	fetcher := &stubFetcher{
		pages: map[string]string{
			cfg.BaseURL:          listPageHTML(link1, link2),
			cfg.BaseURL + "?o=2": listPageHTML(), // empty page ends pagination
			link1:                detailPageHTML("Ducati Monster", "€ 7.500"),
			link2:                detailPageHTML("Honda CB500", "€ 4.200"),
		},
	}
	store := newRecordingStore()

	stats, raws := New(cfg, utils.NewLogger(), fetcher, store).Run(context.Background())

	assert.Equal(t, 2, stats.PagesScraped, "empty page 2 still counts as scraped")
	assert.Equal(t, 2, stats.ListingsFound)
	assert.Equal(t, 2, stats.ListingsProcessed)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 0, stats.Errors)
	assert.Len(t, raws, 2)
	require.Len(t, store.upserts, 2)
	assert.NotContains(t, fetcher.fetched, cfg.BaseURL+"?o=3", "pagination must stop after the empty page")
}

func TestRunContinuesAfterNavigationFailure(t *testing.T) {
	cfg := testConfig()
	link := "https://www.subito.it/moto-e-scooter/vespa-3.htm"

	fetcher := &stubFetcher{
		pages: map[string]string{
			cfg.BaseURL + "?o=2": listPageHTML(link),
			link:                 detailPageHTML("Vespa PX", "€ 2.000"),
		},
		errs: map[string]error{
			cfg.BaseURL: errors.New("net::ERR_TIMED_OUT"),
		},
	}
	store := newRecordingStore()

	stats, _ := New(cfg, utils.NewLogger(), fetcher, store).Run(context.Background())

	assert.Equal(t, 1, stats.Errors, "failed page counted, not fatal")
	assert.Equal(t, 1, stats.Inserted, "page 2 still processed")
	assert.Equal(t, 3, stats.PagesScraped, "stopped at empty page 3")
}

func TestRunCapsListingsPerPageAfterDedup(t *testing.T) {
	cfg := testConfig()
	cfg.MaxListingsPerPage = 2
	links := []string{
		"https://www.subito.it/moto-e-scooter/a-1.htm",
		"https://www.subito.it/moto-e-scooter/a-1.htm", // duplicate href
		"https://www.subito.it/moto-e-scooter/b-2.htm",
		"https://www.subito.it/moto-e-scooter/c-3.htm",
	}

	fetcher := &stubFetcher{pages: map[string]string{
		cfg.BaseURL: listPageHTML(links...),
	}}
	for _, l := range links {
		fetcher.pages[l] = detailPageHTML("Moto", "€ 1.000")
	}
	store := newRecordingStore()

	stats, _ := New(cfg, utils.NewLogger(), fetcher, store).Run(context.Background())

	assert.Equal(t, 2, stats.ListingsFound, "cap applies after deduplication")
	assert.Equal(t, 2, stats.ListingsProcessed)
}

func TestRunSkipsAlreadySeenLinksAcrossPages(t *testing.T) {
	cfg := testConfig()
	shared := "https://www.subito.it/moto-e-scooter/shared-1.htm"
	only2 := "https://www.subito.it/moto-e-scooter/only-2.htm"

	fetcher := &stubFetcher{pages: map[string]string{
		cfg.BaseURL:          listPageHTML(shared),
		cfg.BaseURL + "?o=2": listPageHTML(shared, only2),
		shared:               detailPageHTML("Shared", "€ 1.000"),
		only2:                detailPageHTML("Only2", "€ 2.000"),
	}}
	store := newRecordingStore()

	stats, _ := New(cfg, utils.NewLogger(), fetcher, store).Run(context.Background())

	assert.Equal(t, 2, stats.ListingsProcessed, "shared link fetched once")
}

func TestRunDiscardsDetailWithoutTitleOrPrice(t *testing.T) {
	cfg := testConfig()
	good := "https://www.subito.it/moto-e-scooter/good-1.htm"
	bad := "https://www.subito.it/moto-e-scooter/bad-2.htm"

	fetcher := &stubFetcher{pages: map[string]string{
		cfg.BaseURL: listPageHTML(good, bad),
		good:        detailPageHTML("Buona", "€ 3.000"),
		bad:         "<html><body><div>cookie wall</div></body></html>",
	}}
	store := newRecordingStore()

	stats, _ := New(cfg, utils.NewLogger(), fetcher, store).Run(context.Background())

	assert.Equal(t, 1, stats.ListingsProcessed)
	assert.Equal(t, 1, stats.Errors)
	require.Len(t, store.upserts, 1)
	assert.Equal(t, good, store.upserts[0].URL)
}

func TestRunCountsStoreFailuresWithoutAborting(t *testing.T) {
	cfg := testConfig()
	l1 := "https://www.subito.it/moto-e-scooter/x-1.htm"
	l2 := "https://www.subito.it/moto-e-scooter/x-2.htm"
	l3 := "https://www.subito.it/moto-e-scooter/x-3.htm"

	fetcher := &stubFetcher{pages: map[string]string{
		cfg.BaseURL: listPageHTML(l1, l2, l3),
		l1:          detailPageHTML("Uno", "€ 1.000"),
		l2:          detailPageHTML("Due", "€ 2.000"),
		l3:          detailPageHTML("Tre", "€ 3.000"),
	}}
	store := newRecordingStore()
	store.fail[l2] = true

	stats, _ := New(cfg, utils.NewLogger(), fetcher, store).Run(context.Background())

	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 1, stats.Errors)
	assert.Len(t, store.upserts, 2)
}

func TestRunRetriesTransientDetailFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 3
	link := "https://www.subito.it/moto-e-scooter/flaky-1.htm"

	fetcher := &flakyFetcher{
		stubFetcher: stubFetcher{pages: map[string]string{
			cfg.BaseURL: listPageHTML(link),
			link:        detailPageHTML("Flaky", "€ 5.000"),
		}},
		failFirst: map[string]int{link: 2},
	}
	store := newRecordingStore()

	stats, _ := New(cfg, utils.NewLogger(), fetcher, store).Run(context.Background())

	assert.Equal(t, 1, stats.Inserted, "detail recovered on the third attempt")
	assert.Equal(t, 0, stats.Errors)
}

// flakyFetcher fails the first N fetches of selected URLs.
type flakyFetcher struct {
	stubFetcher
	failFirst map[string]int
}

func (f *flakyFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	if n := f.failFirst[url]; n > 0 {
		f.failFirst[url] = n - 1
		f.fetched = append(f.fetched, url)
		return "", errors.New("transient failure")
	}
	return f.stubFetcher.FetchPage(ctx, url)
}
