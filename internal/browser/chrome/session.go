package chrome

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/interfaces"
)

// Options configures a browser session
type Options struct {
	Headless       bool
	WindowWidth    int
	WindowHeight   int
	UserAgent      string
	ExecPath       string
	CommandTimeout time.Duration // Bound on one CDP round trip
	StartupTimeout time.Duration // Bound on launching Chrome and loading about:blank
	NavTimeout     time.Duration // Bound on a page load
}

// OptionsFromConfig builds session options from the [browser] section
func OptionsFromConfig(config common.BrowserConfig) Options {
	return Options{
		Headless:       config.Headless,
		WindowWidth:    config.WindowWidth,
		WindowHeight:   config.WindowHeight,
		UserAgent:      config.UserAgent,
		ExecPath:       config.ExecPath,
		CommandTimeout: common.MustDuration(config.CommandTimeout, 15*time.Second),
		StartupTimeout: 30 * time.Second,
		NavTimeout:     30 * time.Second,
	}
}

// Session owns one Chrome process and the tab the checks run in
type Session struct {
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	tabCtx        context.Context
	page          *Page
	opts          Options
	logger        arbor.ILogger
}

// NewSession launches Chrome and verifies it responds
func NewSession(opts Options, logger arbor.ILogger) (*Session, error) {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 15 * time.Second
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = 30 * time.Second
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocatorOpts = append(allocatorOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	tabCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Trace().Msg(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			logger.Debug().Msg(fmt.Sprintf(format, args...))
		}),
	)

	startCtx, startCancel := context.WithTimeout(tabCtx, opts.StartupTimeout)
	defer startCancel()

	start := time.Now()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	logger.Debug().
		Bool("headless", opts.Headless).
		Dur("startup_time", time.Since(start)).
		Msg("Browser session started")

	return &Session{
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		tabCtx:        tabCtx,
		page:          newPage(tabCtx, opts.CommandTimeout, logger),
		opts:          opts,
		logger:        logger,
	}, nil
}

// Page returns the tab's page surface
func (s *Session) Page() interfaces.Page {
	return s.page
}

// Navigate loads url and waits for the document to be ready
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug().Str("url", url).Msg("Navigating")
	if err := s.page.run(ctx, s.opts.NavTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Location returns the current URL
func (s *Session) Location(ctx context.Context) (string, error) {
	var location string
	err := s.page.run(ctx, s.opts.CommandTimeout, chromedp.Location(&location))
	return location, err
}

// Screenshot captures the viewport as PNG
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.page.run(ctx, s.opts.CommandTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// HTML returns the serialized document
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.page.run(ctx, s.opts.CommandTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

// Close shuts the tab and the browser process
func (s *Session) Close() error {
	s.browserCancel()
	s.allocCancel()
	s.logger.Debug().Msg("Browser session closed")
	return nil
}
