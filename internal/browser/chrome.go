package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/goccy/go-json"
	"github.com/ternarybob/arbor"
)

// Options configures the Chrome allocator and per-page timing
type Options struct {
	Headless      bool
	WindowWidth   int
	WindowHeight  int
	ExecPath      string
	ActionTimeout time.Duration
	PollInterval  time.Duration
}

// Browser owns a Chrome process. Pages are tabs within it.
type Browser struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	options     Options
	logger      arbor.ILogger
}

// NewBrowser creates the exec allocator. Chrome itself starts lazily with
// the first page.
func NewBrowser(options Options, logger arbor.ILogger) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", options.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(options.WindowWidth, options.WindowHeight),
	)
	if options.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(options.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug().
		Bool("headless", options.Headless).
		Int("width", options.WindowWidth).
		Int("height", options.WindowHeight).
		Msg("Browser allocator created")

	return &Browser{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		options:     options,
		logger:      logger,
	}
}

// PageOptions configures a new tab
type PageOptions struct {
	State  *StorageState // Optional session to restore before the first navigation
	Tracer *Tracer       // Optional, attached to console events and actions
}

// NewPage opens a tab. The tab closes when ctx is done or the returned
// cancel is called, whichever comes first.
func (b *Browser) NewPage(ctx context.Context, opts PageOptions) (*ChromePage, context.CancelFunc, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)

	// Allocate the tab on its own context so a later action timeout does not close it
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		return nil, nil, fmt.Errorf("failed to open browser tab: %w", err)
	}

	stop := context.AfterFunc(ctx, cancelTab)
	cancel := func() {
		stop()
		cancelTab()
	}

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		prev := cancel
		cancel = func() {
			cancelDeadline()
			prev()
		}
	}

	if opts.Tracer != nil {
		opts.Tracer.Attach(tabCtx)
	}

	if opts.State != nil {
		if err := opts.State.Apply(tabCtx); err != nil {
			cancel()
			return nil, nil, err
		}
	}

	page := &ChromePage{
		ctx:           tabCtx,
		actionTimeout: b.options.ActionTimeout,
		pollInterval:  b.options.PollInterval,
		tracer:        opts.Tracer,
	}
	return page, cancel, nil
}

// Close stops the Chrome process
func (b *Browser) Close() {
	b.cancelAlloc()
	b.logger.Debug().Msg("Browser allocator closed")
}

// ChromePage implements Page over a chromedp tab context
type ChromePage struct {
	ctx           context.Context
	actionTimeout time.Duration
	pollInterval  time.Duration
	tracer        *Tracer
}

func (p *ChromePage) run(actions ...chromedp.Action) error {
	ctx := p.ctx
	if p.actionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.actionTimeout)
		defer cancel()
	}
	return chromedp.Run(ctx, actions...)
}

func (p *ChromePage) trace(format string, args ...any) {
	if p.tracer != nil {
		p.tracer.Action(format, args...)
	}
}

func (p *ChromePage) Goto(url string) error {
	p.trace("goto %s", url)
	if err := p.run(chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *ChromePage) URL() (string, error) {
	var location string
	if err := p.run(chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return location, nil
}

func (p *ChromePage) Reload() error {
	p.trace("reload")
	if err := p.run(chromedp.Reload()); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return nil
}

func (p *ChromePage) WaitForURL(match func(url string) bool) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.actionTimeout)
	defer cancel()

	var last string
	for {
		if err := chromedp.Run(ctx, chromedp.Location(&last)); err == nil && match(last) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("url did not match within %v (last: %s): %w", p.actionTimeout, last, ctx.Err())
		case <-time.After(p.pollInterval):
		}
	}
}

func (p *ChromePage) Click(selector string) error {
	p.trace("click %s", selector)
	if err := p.run(
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// Fill replaces the value of an input, textarea or contenteditable editor.
// The old value is cleared through the native setter so React controlled
// inputs see the change, then the new value is typed key by key.
func (p *ChromePage) Fill(selector, value string) error {
	p.trace("fill %s", selector)
	clearScript := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		if (el.isContentEditable) {
			el.innerHTML = '';
			el.dispatchEvent(new Event('input', { bubbles: true }));
			return true;
		}
		const proto = el.tagName === 'TEXTAREA' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
		Object.getOwnPropertyDescriptor(proto, 'value').set.call(el, '');
		el.dispatchEvent(new Event('input', { bubbles: true }));
		return true;
	})()`, quoteJS(selector))

	var cleared bool
	actions := []chromedp.Action{
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.Evaluate(clearScript, &cleared),
	}
	if value != "" {
		actions = append(actions, chromedp.SendKeys(selector, value, chromedp.ByQuery))
	}
	if err := p.run(actions...); err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	if !cleared {
		return fmt.Errorf("failed to fill %s: %w", selector, ErrNotFound)
	}
	return nil
}

var keyNames = map[string]string{
	"Enter":     kb.Enter,
	"Escape":    kb.Escape,
	"Tab":       kb.Tab,
	"Backspace": kb.Backspace,
	"ArrowDown": kb.ArrowDown,
	"ArrowUp":   kb.ArrowUp,
}

func (p *ChromePage) Press(selector, key string) error {
	p.trace("press %s %s", selector, key)
	if mapped, ok := keyNames[key]; ok {
		key = mapped
	}
	if err := p.run(
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, key, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to press %q on %s: %w", key, selector, err)
	}
	return nil
}

func (p *ChromePage) WaitVisible(selector string) error {
	if err := p.run(chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%s not visible: %w", selector, err)
	}
	return nil
}

func (p *ChromePage) WaitHidden(selector string) error {
	// Unmounted elements count as hidden
	ctx, cancel := context.WithTimeout(p.ctx, p.actionTimeout)
	defer cancel()
	for {
		visible, err := p.IsVisible(selector)
		if err == nil && !visible {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s still visible after %v: %w", selector, p.actionTimeout, ctx.Err())
		case <-time.After(p.pollInterval):
		}
	}
}

func (p *ChromePage) IsVisible(selector string) (bool, error) {
	var visible bool
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		const style = window.getComputedStyle(el);
		if (style.visibility === 'hidden' || style.display === 'none') return false;
		return el.getClientRects().length > 0;
	})()`, quoteJS(selector))
	if err := p.run(chromedp.Evaluate(script, &visible)); err != nil {
		return false, fmt.Errorf("failed to check visibility of %s: %w", selector, err)
	}
	return visible, nil
}

// readNode evaluates expr against the first match; expr sees the element as el
func (p *ChromePage) readNode(selector, expr string) (string, error) {
	var out *string
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return null;
		const v = %s;
		return v === null || v === undefined ? null : String(v);
	})()`, quoteJS(selector), expr)
	if err := p.run(chromedp.Evaluate(script, &out)); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", selector, err)
	}
	if out == nil {
		return "", fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return *out, nil
}

func (p *ChromePage) Text(selector string) (string, error) {
	return p.readNode(selector, `el.innerText`)
}

func (p *ChromePage) Attribute(selector, name string) (string, error) {
	return p.readNode(selector, fmt.Sprintf(`el.getAttribute(%s)`, quoteJS(name)))
}

func (p *ChromePage) OuterHTML(selector string) (string, error) {
	return p.readNode(selector, `el.outerHTML`)
}

func (p *ChromePage) Count(selector string) (int, error) {
	var count int
	script := fmt.Sprintf(`document.querySelectorAll(%s).length`, quoteJS(selector))
	if err := p.run(chromedp.Evaluate(script, &count)); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", selector, err)
	}
	return count, nil
}

func (p *ChromePage) Screenshot() ([]byte, error) {
	var buf []byte
	if err := p.run(chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// quoteJS renders s as a JavaScript string literal
func quoteJS(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return string(b)
}
