package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Expectation polls a page until a condition holds or the timeout passes,
// the way web-first assertions retry instead of reading the DOM once.
type Expectation struct {
	page     Page
	timeout  time.Duration
	interval time.Duration
}

// Expect returns assertions against page. A zero interval polls every 100ms.
func Expect(page Page, timeout, interval time.Duration) *Expectation {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Expectation{page: page, timeout: timeout, interval: interval}
}

// WithTimeout returns a copy with a different timeout
func (e *Expectation) WithTimeout(timeout time.Duration) *Expectation {
	c := *e
	c.timeout = timeout
	return &c
}

// ErrExpectTimeout wraps every failed expectation
var ErrExpectTimeout = errors.New("expectation not met")

// poll runs check until it reports ok. check returns the observed value for
// the failure message; read errors count as "not yet".
func (e *Expectation) poll(desc string, check func() (bool, string, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(e.interval), 1)
	var lastObserved string
	var lastErr error
	attempts := 0

	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		attempts++
		ok, observed, err := check()
		if err == nil && ok {
			return nil
		}
		lastObserved, lastErr = observed, err
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %s after %v (%d checks): %v", ErrExpectTimeout, desc, e.timeout, attempts, lastErr)
	}
	return fmt.Errorf("%w: %s after %v (%d checks), got %q", ErrExpectTimeout, desc, e.timeout, attempts, lastObserved)
}

// ToBeVisible waits for selector to be visible
func (e *Expectation) ToBeVisible(selector string) error {
	return e.poll(fmt.Sprintf("%s to be visible", selector), func() (bool, string, error) {
		visible, err := e.page.IsVisible(selector)
		return visible, fmt.Sprintf("visible=%t", visible), err
	})
}

// ToBeHidden waits for selector to be hidden or removed
func (e *Expectation) ToBeHidden(selector string) error {
	return e.poll(fmt.Sprintf("%s to be hidden", selector), func() (bool, string, error) {
		visible, err := e.page.IsVisible(selector)
		return !visible, fmt.Sprintf("visible=%t", visible), err
	})
}

// ToHaveText waits for the trimmed text of selector to equal want
func (e *Expectation) ToHaveText(selector, want string) error {
	return e.poll(fmt.Sprintf("%s to have text %q", selector, want), func() (bool, string, error) {
		text, err := e.page.Text(selector)
		text = strings.TrimSpace(text)
		return text == want, text, err
	})
}

// ToContainText waits for the text of selector to contain want
func (e *Expectation) ToContainText(selector, want string) error {
	return e.poll(fmt.Sprintf("%s to contain text %q", selector, want), func() (bool, string, error) {
		text, err := e.page.Text(selector)
		return strings.Contains(text, want), text, err
	})
}

// ToHaveClass waits for the class attribute of selector to match re
func (e *Expectation) ToHaveClass(selector string, re *regexp.Regexp) error {
	return e.poll(fmt.Sprintf("%s to have class matching %s", selector, re), func() (bool, string, error) {
		class, err := e.page.Attribute(selector, "class")
		return re.MatchString(class), class, err
	})
}

// ToHaveCount waits for exactly n elements to match selector
func (e *Expectation) ToHaveCount(selector string, n int) error {
	return e.poll(fmt.Sprintf("%s to have count %d", selector, n), func() (bool, string, error) {
		count, err := e.page.Count(selector)
		return count == n, fmt.Sprintf("%d", count), err
	})
}

// ToHaveURL waits for the page URL to satisfy match
func (e *Expectation) ToHaveURL(desc string, match func(string) bool) error {
	return e.poll(fmt.Sprintf("url %s", desc), func() (bool, string, error) {
		url, err := e.page.URL()
		return match(url), url, err
	})
}
