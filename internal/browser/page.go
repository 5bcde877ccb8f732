// Package browser drives the application under test through Chrome.
//
// Page is the narrow surface the ingestion fixtures script against. ChromePage
// implements it on chromedp; tests use browsertest.FakePage. Selectors are CSS
// query selectors throughout.
package browser

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by the immediate read methods when no element matches.
var ErrNotFound = errors.New("element not found")

// Page is a single browser tab.
//
// Click, Fill and Press wait for the element to become visible first. Text,
// Attribute, OuterHTML, Count and IsVisible read the current DOM and
// never wait; use Expect to poll them.
type Page interface {
	Goto(url string) error
	URL() (string, error)
	Reload() error
	WaitForURL(match func(url string) bool) error

	Click(selector string) error
	Fill(selector, value string) error
	Press(selector, key string) error

	WaitVisible(selector string) error
	WaitHidden(selector string) error
	IsVisible(selector string) (bool, error)

	Text(selector string) (string, error)
	Attribute(selector, name string) (string, error)
	OuterHTML(selector string) (string, error)
	Count(selector string) (int, error)

	Screenshot() ([]byte, error)
}

// TestID returns the selector for a data-testid attribute
func TestID(id string) string {
	return fmt.Sprintf(`[data-testid="%s"]`, id)
}

// ByID returns the selector for an element id. Slashes, as used by the
// JSON-schema generated connection forms (root/hostPort), are escaped.
func ByID(id string) string {
	escaped := make([]rune, 0, len(id)+4)
	for _, r := range id {
		switch r {
		case '/', '.', ':', '[', ']':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, r)
	}
	return "#" + string(escaped)
}
