// Package browser is the chromedp-backed automation engine. The
// orchestrator core talks to it only through the Browser/Context/Page
// interfaces and never parses markup or JSON itself.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"agoda-scraper/fingerprint"
	"agoda-scraper/utils"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Browser opens isolated browser contexts, one per worker. Contexts
// are never shared or pooled — that isolation is what makes
// fingerprint uniqueness meaningful.
type Browser interface {
	OpenContext(ctx context.Context, id fingerprint.Identity) (Context, error)
}

// Context is one worker's exclusively-owned browser for its lifetime.
// It is not reentrant: callers must never issue two concurrent
// navigations.
type Context interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) (Page, error)
	Close() error
}

// Page is the currently loaded document.
type Page interface {
	// WaitForCondition polls the given JS predicate until it returns
	// true or timeout elapses. A false return is not an error.
	WaitForCondition(ctx context.Context, js string, poll, timeout time.Duration) (bool, error)
	Scroll(ctx context.Context, px int) error
	Content(ctx context.Context) (string, error)
	// Payloads returns the rooms-API response bodies intercepted since
	// the last navigation.
	Payloads() [][]byte
}

// roomsAPIPattern identifies Agoda's room JSON endpoint. Intercepting
// it beats waiting for the DOM: it distinguishes "no rooms rendered
// yet" from "API returned nothing / was blocked".
const roomsAPIPattern = "BelowFoldParams/GetSecondaryData"

// Reported coordinates are jittered around Jaipur so each identity
// appears to browse from a slightly different place.
const (
	baseLatitude  = 26.9124
	baseLongitude = 75.7873
)

// Engine launches one dedicated Chrome process per opened context.
type Engine struct {
	headless bool
}

func NewEngine(headless bool) *Engine {
	return &Engine{headless: headless}
}

func (e *Engine) OpenContext(ctx context.Context, id fingerprint.Identity) (Context, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, StealthOpts(id, e.headless)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	c := &chromeContext{
		tabCtx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}

	err := chromedp.Run(tabCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(id.UserAgent).WithAcceptLanguage(id.Locale),
		emulation.SetDeviceMetricsOverride(int64(id.Viewport.Width), int64(id.Viewport.Height), 1, false),
		emulation.SetTimezoneOverride(id.Timezone),
		emulation.SetGeolocationOverride().
			WithLatitude(baseLatitude+id.Geo.LatOffset).
			WithLongitude(baseLongitude+id.Geo.LonOffset).
			WithAccuracy(100),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(
				hideWebDriverScript + languagesScript(id.Locale),
			).Do(ctx)
			return err
		}),
	)
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("launch browser context: %w", err)
	}

	c.listen()

	utils.Debug("Browser context up | instance=%d slot=%d ua=%.50s viewport=%dx%d tz=%s",
		id.InstanceID, id.WorkerSlot, id.UserAgent, id.Viewport.Width, id.Viewport.Height, id.Timezone)

	return c, nil
}

type chromeContext struct {
	tabCtx context.Context
	cancel context.CancelFunc

	// gen is the navigation generation. Body fetches run async and can
	// outlive the page they were intercepted on; a fetch only lands if
	// its generation still matches, so a late body from the previous
	// date never pollutes the next task's payloads.
	mu       sync.Mutex
	gen      uint64
	pending  map[network.RequestID]bool
	payloads [][]byte
}

// beginNavigation invalidates everything intercepted for the previous
// page and returns the new generation.
func (c *chromeContext) beginNavigation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.payloads = nil
	c.pending = make(map[network.RequestID]bool)
	return c.gen
}

// appendPayload stores a fetched body unless a newer navigation has
// started since the fetch was spawned.
func (c *chromeContext) appendPayload(gen uint64, body []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.payloads = append(c.payloads, body)
	return true
}

// listen wires the network interceptor: remember room-API request IDs
// on response, fetch the body once loading finishes.
func (c *chromeContext) listen() {
	c.pending = make(map[network.RequestID]bool)

	chromedp.ListenTarget(c.tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if strings.Contains(e.Response.URL, roomsAPIPattern) {
				c.mu.Lock()
				c.pending[e.RequestID] = true
				c.mu.Unlock()
			}
		case *network.EventLoadingFinished:
			c.mu.Lock()
			ok := c.pending[e.RequestID]
			delete(c.pending, e.RequestID)
			gen := c.gen
			c.mu.Unlock()
			if !ok {
				return
			}
			// Body fetch must not run inside the event handler.
			go c.fetchBody(e.RequestID, gen)
		}
	})
}

func (c *chromeContext) fetchBody(id network.RequestID, gen uint64) {
	cc := chromedp.FromContext(c.tabCtx)
	if cc == nil || cc.Target == nil {
		return
	}
	ectx := cdp.WithExecutor(c.tabCtx, cc.Target)

	body, err := network.GetResponseBody(id).Do(ectx)
	if err != nil {
		utils.Debug("Rooms API body fetch failed: %v", err)
		return
	}

	if !c.appendPayload(gen, body) {
		utils.Debug("Dropped stale rooms API body (%d bytes)", len(body))
	}
}

func (c *chromeContext) Navigate(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	c.beginNavigation()

	navCtx, cancel := context.WithTimeout(c.tabCtx, timeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	// Respect the caller's cancellation too, not just the nav timeout.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &chromePage{owner: c}, nil
}

func (c *chromeContext) Close() error {
	c.cancel()
	return nil
}

type chromePage struct {
	owner *chromeContext
}

func (p *chromePage) WaitForCondition(ctx context.Context, js string, poll, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)

	for {
		var ready bool
		evalCtx, cancel := context.WithTimeout(p.owner.tabCtx, poll+5*time.Second)
		err := chromedp.Run(evalCtx, chromedp.Evaluate(js, &ready))
		cancel()
		if err == nil && ready {
			return true, nil
		}

		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-time.After(poll):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

func (p *chromePage) Scroll(ctx context.Context, px int) error {
	scrollCtx, cancel := context.WithTimeout(p.owner.tabCtx, 10*time.Second)
	defer cancel()

	js := fmt.Sprintf(`window.scrollBy(0, %d)`, px)
	if err := chromedp.Run(scrollCtx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return ctx.Err()
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var html string
	htmlCtx, cancel := context.WithTimeout(p.owner.tabCtx, 20*time.Second)
	defer cancel()

	if err := chromedp.Run(htmlCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return html, nil
}

func (p *chromePage) Payloads() [][]byte {
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()

	out := make([][]byte, len(p.owner.payloads))
	copy(out, p.owner.payloads)
	return out
}
