package protocol

import (
	"context"

	"github.com/lepinkainen/shelf/internal/automation"
)

// BrowserFetcher renders pages in headless Chrome, for providers whose
// product pages only carry their data after scripts run.
type BrowserFetcher struct {
	Runner  automation.CDPRunner
	Options automation.AutomationOptions
}

// NewBrowserFetcher creates a BrowserFetcher backed by a real browser.
func NewBrowserFetcher(opts automation.AutomationOptions) *BrowserFetcher {
	return &BrowserFetcher{Runner: automation.DefaultRunner, Options: opts}
}

// Fetch implements Fetcher.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	html, err := automation.RenderHTML(ctx, b.Runner, url, b.Options)
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}
