// Package pdf renders HTML documents to PDF with a headless Chromium.
package pdf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// A4 in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// networkQuiet is how long the page must have no requests in flight before it
// counts as idle.
const networkQuiet = 500 * time.Millisecond

// ChromeRenderer launches a fresh browser for every render. Nothing is shared
// between calls.
type ChromeRenderer struct {
	execPath string
	timeout  time.Duration
}

// NewChromeRenderer creates a renderer using the Chromium binary at execPath.
// A zero timeout leaves the deadline to the caller's context.
func NewChromeRenderer(execPath string, timeout time.Duration) *ChromeRenderer {
	return &ChromeRenderer{execPath: execPath, timeout: timeout}
}

// Render loads document into a blank page, waits for the network to go idle and
// prints it as an A4 PDF with backgrounds. The browser process is torn down
// before Render returns, on success and on failure.
func (r *ChromeRenderer) Render(ctx context.Context, document string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(r.execPath),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	tracker := newIdleTracker(time.Now())
	chromedp.ListenTarget(browserCtx, tracker.observe)

	start := time.Now()
	var buf []byte
	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate("about:blank"),
		setContent(document),
		tracker.wait(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithPrintBackground(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	log.Debug().Dur("elapsed", time.Since(start)).Int("bytes", len(buf)).Msg("Rendered PDF")
	return buf, nil
}

func setContent(document string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, document).Do(ctx)
	})
}

// idleTracker tracks in-flight requests of the page under render by id.
// Redirect hops reuse the id of the original request.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
}

func newIdleTracker(now time.Time) *idleTracker {
	return &idleTracker{inflight: make(map[network.RequestID]struct{}), last: now}
}

func (t *idleTracker) observe(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[ev.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, ev.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, ev.RequestID)
	default:
		return
	}
	t.last = time.Now()
}

func (t *idleTracker) idle(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && now.Sub(t.last) >= networkQuiet
}

func (t *idleTracker) wait() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		// Let anything started by the new content register first.
		t.mu.Lock()
		t.last = time.Now()
		t.mu.Unlock()

		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				if t.idle(now) {
					return nil
				}
			}
		}
	})
}
