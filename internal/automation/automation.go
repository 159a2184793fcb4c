// Package automation renders JavaScript-heavy provider pages in a headless
// Chrome instance driven by chromedp.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

const (
	defaultRenderTimeout = 45 * time.Second
	selectorPollInterval = 250 * time.Millisecond
)

// ErrEmptyPage is returned when the browser produced no markup.
var ErrEmptyPage = errors.New("rendered page is empty")

// AutomationOptions holds common configuration for browser automation
type AutomationOptions struct {
	Headless bool
	// UserAgent overrides the browser user agent when set.
	UserAgent string
	// WaitSelector is a CSS selector that must exist before the page is captured.
	WaitSelector string
	// Timeout bounds the whole render. Defaults to 45s.
	Timeout time.Duration
}

// CDPRunner abstracts the chromedp entry points so rendering can be tested
// without a browser.
type CDPRunner interface {
	NewExecAllocator(ctx context.Context, opts ...chromedp.ExecAllocatorOption) (context.Context, context.CancelFunc)
	NewContext(parent context.Context, opts ...chromedp.ContextOption) (context.Context, context.CancelFunc)
	Run(ctx context.Context, actions ...chromedp.Action) error
}

type chromedpRunner struct{}

func (chromedpRunner) NewExecAllocator(ctx context.Context, opts ...chromedp.ExecAllocatorOption) (context.Context, context.CancelFunc) {
	return chromedp.NewExecAllocator(ctx, opts...)
}

func (chromedpRunner) NewContext(parent context.Context, opts ...chromedp.ContextOption) (context.Context, context.CancelFunc) {
	return chromedp.NewContext(parent, opts...)
}

func (chromedpRunner) Run(ctx context.Context, actions ...chromedp.Action) error {
	return chromedp.Run(ctx, actions...)
}

// DefaultRunner drives a real Chrome installation.
var DefaultRunner CDPRunner = chromedpRunner{}

// BuildExecAllocatorOptions returns the Chrome flags used for rendering.
func BuildExecAllocatorOptions(opts AutomationOptions) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-default-browser-check", true),
	}
}

// RenderHTML loads url in a fresh browser and returns the outer HTML of the
// document once opts.WaitSelector (if any) is present.
func RenderHTML(parentCtx context.Context, runner CDPRunner, url string, opts AutomationOptions) (string, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultRenderTimeout
	}

	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	allocCtx, cancelAllocator := runner.NewExecAllocator(ctx, BuildExecAllocatorOptions(opts)...)
	defer cancelAllocator()

	browserCtx, cancelBrowser := runner.NewContext(allocCtx)
	defer cancelBrowser()

	tasks := chromedp.Tasks{}
	if opts.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(opts.UserAgent))
	}
	tasks = append(tasks, chromedp.Navigate(url))

	slog.Debug("Rendering page", "url", url, "headless", opts.Headless)
	if err := runner.Run(browserCtx, tasks...); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}

	if opts.WaitSelector != "" {
		if err := waitForSelector(browserCtx, runner, opts.WaitSelector, timeout); err != nil {
			return "", err
		}
	}

	var html string
	if err := runner.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture %s: %w", url, err)
	}
	if html == "" {
		return "", ErrEmptyPage
	}
	return html, nil
}

func waitForSelector(ctx context.Context, runner CDPRunner, selector string, timeout time.Duration) error {
	script := "document.querySelector(" + strconv.Quote(selector) + ") !== null"
	_, err := PollWithTimeout(ctx, selectorPollInterval, timeout, selector, func() (struct{}, bool, error) {
		var present bool
		if err := runner.Run(ctx, chromedp.Evaluate(script, &present)); err != nil {
			return struct{}{}, false, fmt.Errorf("failed to check %s: %w", selector, err)
		}
		return struct{}{}, present, nil
	})
	return err
}

// PollWithTimeout repeatedly calls checkFunc until it reports found, the timeout elapses, or ctx is done.
// If checkFunc returns an error, polling stops and the error is returned.
// The description is used in timeout error messages.
func PollWithTimeout[T any](ctx context.Context, interval, timeout time.Duration, description string, checkFunc func() (T, bool, error)) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tries := 0
	for {
		result, found, err := checkFunc()
		if err != nil {
			return zero, err
		}
		if found {
			return result, nil
		}

		tries++
		if tries%5 == 0 {
			slog.Debug("Polling", "description", description, "tries", tries)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("polling canceled for %s: %w", description, ctx.Err())
		case <-ticker.C:
			if time.Now().After(deadline) {
				return zero, fmt.Errorf("timeout waiting for %s", description)
			}
		}
	}
}
