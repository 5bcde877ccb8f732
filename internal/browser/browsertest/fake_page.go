// Package browsertest provides an in-memory browser.Page for unit tests.
package browsertest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
)

// FakePage records every action and answers reads from scripted state.
// Elements are visible unless hidden; reads of unscripted selectors return
// browser.ErrNotFound.
type FakePage struct {
	mu sync.Mutex

	url     string
	hidden  map[string]bool
	missing map[string]bool
	texts   map[string]string
	attrs   map[string]map[string]string
	html    map[string]string
	counts  map[string]int
	onClick map[string][]func(*FakePage)
	onFill  map[string]func(*FakePage, string)
	errs    map[string]error

	OnGoto   func(p *FakePage, url string)
	OnReload func(p *FakePage)

	actions []string
}

var _ browser.Page = (*FakePage)(nil)

func NewFakePage() *FakePage {
	return &FakePage{
		hidden:  map[string]bool{},
		missing: map[string]bool{},
		texts:   map[string]string{},
		attrs:   map[string]map[string]string{},
		html:    map[string]string{},
		counts:  map[string]int{},
		onClick: map[string][]func(*FakePage){},
		onFill:  map[string]func(*FakePage, string){},
		errs:    map[string]error{},
	}
}

// SetURL sets the current location
func (p *FakePage) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// SetText scripts the text of selector
func (p *FakePage) SetText(selector, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts[selector] = text
}

// SetAttr scripts an attribute of selector
func (p *FakePage) SetAttr(selector, name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attrs[selector] == nil {
		p.attrs[selector] = map[string]string{}
	}
	p.attrs[selector][name] = value
}

// SetHTML scripts the outer HTML of selector
func (p *FakePage) SetHTML(selector, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html[selector] = html
}

// SetCount scripts the number of matches for selector
func (p *FakePage) SetCount(selector string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[selector] = n
}

// Hide makes selector invisible while keeping it in the DOM
func (p *FakePage) Hide(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden[selector] = true
}

// Show reverses Hide and Remove
func (p *FakePage) Show(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.hidden, selector)
	delete(p.missing, selector)
}

// Remove makes selector absent: not visible, not clickable
func (p *FakePage) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missing[selector] = true
}

// FailOn makes actions on selector return err
func (p *FakePage) FailOn(selector string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[selector] = err
}

// OnClick registers fn to run after selector is clicked
func (p *FakePage) OnClick(selector string, fn func(*FakePage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick[selector] = append(p.onClick[selector], fn)
}

// OnFill registers fn to run after selector is filled
func (p *FakePage) OnFill(selector string, fn func(*FakePage, string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFill[selector] = fn
}

// Actions returns the recorded action log
func (p *FakePage) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

// Clicked reports whether selector was clicked
func (p *FakePage) Clicked(selector string) bool {
	return p.hasAction("click " + selector)
}

// Filled returns the last value filled into selector
func (p *FakePage) Filled(selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix := "fill " + selector + "="
	for i := len(p.actions) - 1; i >= 0; i-- {
		if strings.HasPrefix(p.actions[i], prefix) {
			return strings.TrimPrefix(p.actions[i], prefix), true
		}
	}
	return "", false
}

func (p *FakePage) hasAction(action string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.actions {
		if a == action {
			return true
		}
	}
	return false
}

func (p *FakePage) record(action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, action)
}

func (p *FakePage) check(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.errs[selector]; ok {
		return err
	}
	if p.missing[selector] || p.hidden[selector] {
		return fmt.Errorf("%s not visible: %w", selector, browser.ErrNotFound)
	}
	return nil
}

func (p *FakePage) Goto(url string) error {
	p.record("goto " + url)
	p.SetURL(url)
	if p.OnGoto != nil {
		p.OnGoto(p, url)
	}
	return nil
}

func (p *FakePage) URL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *FakePage) Reload() error {
	p.record("reload")
	if p.OnReload != nil {
		p.OnReload(p)
	}
	return nil
}

func (p *FakePage) WaitForURL(match func(string) bool) error {
	url, _ := p.URL()
	if !match(url) {
		return fmt.Errorf("url %q did not match", url)
	}
	return nil
}

func (p *FakePage) Click(selector string) error {
	if err := p.check(selector); err != nil {
		return err
	}
	p.record("click " + selector)

	p.mu.Lock()
	hooks := append([]func(*FakePage){}, p.onClick[selector]...)
	p.mu.Unlock()
	for _, fn := range hooks {
		fn(p)
	}
	return nil
}

func (p *FakePage) Fill(selector, value string) error {
	if err := p.check(selector); err != nil {
		return err
	}
	p.record("fill " + selector + "=" + value)

	p.mu.Lock()
	hook := p.onFill[selector]
	p.mu.Unlock()
	if hook != nil {
		hook(p, value)
	}
	return nil
}

func (p *FakePage) Press(selector, key string) error {
	if err := p.check(selector); err != nil {
		return err
	}
	p.record("press " + selector + " " + key)
	return nil
}

func (p *FakePage) WaitVisible(selector string) error {
	return p.check(selector)
}

func (p *FakePage) WaitHidden(selector string) error {
	visible, _ := p.IsVisible(selector)
	if visible {
		return fmt.Errorf("%s still visible", selector)
	}
	return nil
}

func (p *FakePage) IsVisible(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.missing[selector] && !p.hidden[selector], nil
}

func (p *FakePage) Text(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.texts[selector]
	if !ok || p.missing[selector] {
		return "", fmt.Errorf("%s: %w", selector, browser.ErrNotFound)
	}
	return text, nil
}

func (p *FakePage) Attribute(selector, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	attrs, ok := p.attrs[selector]
	if !ok || p.missing[selector] {
		return "", fmt.Errorf("%s: %w", selector, browser.ErrNotFound)
	}
	return attrs[name], nil
}

func (p *FakePage) OuterHTML(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	html, ok := p.html[selector]
	if !ok || p.missing[selector] {
		return "", fmt.Errorf("%s: %w", selector, browser.ErrNotFound)
	}
	return html, nil
}

func (p *FakePage) Count(selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.missing[selector] {
		return 0, nil
	}
	return p.counts[selector], nil
}

func (p *FakePage) Screenshot() ([]byte, error) {
	return []byte("\x89PNG"), nil
}
