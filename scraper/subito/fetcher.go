package subito

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"moto-scraper/config"
	"moto-scraper/utils"
)

// PageFetcher loads a URL and returns the rendered HTML document. The run
// loop only ever sees this interface, so everything above it can be tested
// without a browser.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
	Close()
}

// dismissCookieJS clicks subito.it's "continue without agreeing" consent
// button, or failing that removes the overlay host. Best effort only.
const dismissCookieJS = `
	(function() {
		var btn = document.querySelector('span.didomi-continue-without-agreeing');
		if (btn) { btn.click(); return true; }
		var host = document.getElementById('didomi-host');
		if (host) {
			host.remove();
			document.body.style.overflow = 'auto';
			return true;
		}
		return false;
	})()
`

// ChromeFetcher drives a shared headless browser. Each FetchPage opens a
// fresh tab context so requests never share page state; the browser itself
// lives for the whole run and must be released with Close.
type ChromeFetcher struct {
	cfg           *config.Config
	logger        *utils.Logger
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewChromeFetcher launches the browser allocator with the configured
// options. The browser process itself starts lazily on the first fetch.
func NewChromeFetcher(cfg *config.Config, logger *utils.Logger) *ChromeFetcher {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	if chromeBin != "" {
		logger.Info("[browser] Using binary: %s", chromeBin)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(cfg.RandomUserAgent()),
		chromedp.WindowSize(1920, 1080),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	return &ChromeFetcher{
		cfg:           cfg,
		logger:        logger,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}
}

// FetchPage navigates a fresh tab to the URL and returns the rendered HTML.
// The consent overlay is dismissed on every page; a navigation that exceeds
// the configured timeout is a recoverable error for the caller.
func (f *ChromeFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.cfg.NavTimeout)
	defer cancelTimeout()

	var html string
	var dismissed bool
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(dismissCookieJS, &dismissed),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}

	if dismissed {
		f.logger.Debug("[browser] Dismissed cookie overlay on %s", url)
	}
	return html, nil
}

// Close tears the browser down. Safe to call exactly once, on every exit path.
func (f *ChromeFetcher) Close() {
	f.cancelBrowser()
	f.cancelAlloc()
}

// findChromeBinary locates the Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
