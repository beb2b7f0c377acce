package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/arca/internal/common"
)

// Pool manages a set of chromedp browser instances with round-robin
// allocation. Each extraction run opens its own tab on a pooled
// browser, so concurrent runs share instances without sharing state.
type Pool struct {
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	mu               sync.Mutex
	maxInstances     int
	currentIndex     int
	logger           arbor.ILogger
	initialized      bool
}

// NewPool creates an uninitialized browser pool.
func NewPool(logger arbor.ILogger) *Pool {
	return &Pool{logger: logger}
}

// Init starts the configured number of browser instances.
func (p *Pool) Init(cfg common.BrowserConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("browser pool already initialized")
	}
	if cfg.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be greater than 0, got: %d", cfg.PoolSize)
	}

	p.maxInstances = cfg.PoolSize
	p.browsers = make([]context.Context, 0, p.maxInstances)
	p.browserCancels = make([]context.CancelFunc, 0, p.maxInstances)
	p.allocatorCancels = make([]context.CancelFunc, 0, p.maxInstances)
	p.currentIndex = 0

	p.logger.Info().
		Int("pool_size", p.maxInstances).
		Bool("headless", cfg.Headless).
		Msg("Initializing browser pool")

	successCount := 0
	var lastErr error
	for i := 0; i < p.maxInstances; i++ {
		if err := p.createInstance(i, cfg); err != nil {
			lastErr = err
			p.logger.Warn().
				Err(err).
				Int("browser_index", i).
				Msg("Failed to create browser instance")

			if successCount == 0 && i == p.maxInstances-1 {
				p.cleanupInstances()
				return fmt.Errorf("failed to create any browser instances, last error: %w", err)
			}
			continue
		}
		successCount++
	}

	if successCount == 0 {
		p.cleanupInstances()
		return fmt.Errorf("failed to create any browser instances, last error: %w", lastErr)
	}
	if successCount < p.maxInstances {
		p.logger.Warn().
			Int("requested", p.maxInstances).
			Int("created", successCount).
			Msg("Created fewer browser instances than requested")
		p.maxInstances = successCount
	}

	p.initialized = true
	p.logger.Info().
		Int("browsers_created", len(p.browsers)).
		Msg("Browser pool initialized")

	return nil
}

func (p *Pool) createInstance(index int, cfg common.BrowserConfig) error {
	startTime := time.Now()

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.DisableGPU),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testTimeout := 30 * time.Second
	if cfg.NavigationTimeout > 0 {
		testTimeout = cfg.NavigationTimeout
	}
	testCtx, testCancel := context.WithTimeout(browserCtx, testTimeout)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser instance failed startup test: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)

	p.logger.Debug().
		Int("browser_index", index).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser instance created")

	return nil
}

// GetBrowser returns a browser context using round-robin allocation,
// plus a release function to call when the caller is done with it.
func (p *Pool) GetBrowser() (context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, nil, fmt.Errorf("browser pool not initialized")
	}
	if len(p.browsers) == 0 {
		return nil, nil, fmt.Errorf("no browser instances available")
	}

	index := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)

	release := func() {
		p.logger.Debug().Int("browser_index", index).Msg("Browser context released")
	}

	return p.browsers[index], release, nil
}

// Shutdown cleans up all browser instances in the pool.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}

	browserCount := len(p.browsers)
	p.logger.Info().Int("browser_count", browserCount).Msg("Shutting down browser pool")

	done := make(chan struct{})
	go func() {
		p.cleanupInstances()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		p.logger.Warn().Msg("Browser pool shutdown timed out")
	}

	p.initialized = false
	return nil
}

// cleanupInstances must be called with the mutex held.
func (p *Pool) cleanupInstances() {
	for _, cancel := range p.browserCancels {
		if cancel != nil {
			cancel()
		}
	}
	for _, cancel := range p.allocatorCancels {
		if cancel != nil {
			cancel()
		}
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.currentIndex = 0
}

// IsInitialized returns whether the pool has been initialized.
func (p *Pool) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}
