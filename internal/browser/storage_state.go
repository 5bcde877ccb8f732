package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goccy/go-json"
)

// StorageState is a saved browser session: cookies plus per-origin
// localStorage. The file layout matches Playwright's storageState so sessions
// produced by the application's login setup can be reused as is.
type StorageState struct {
	Cookies []Cookie `json:"cookies"`
	Origins []Origin `json:"origins"`
}

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // Unix seconds, -1 for session cookies
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"` // Strict, Lax or None
}

type Origin struct {
	Origin       string      `json:"origin"`
	LocalStorage []NameValue `json:"localStorage"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadStorageState reads a session file
func LoadStorageState(path string) (*StorageState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage state %s: %w", path, err)
	}
	return ParseStorageState(data)
}

// ParseStorageState decodes a session document
func ParseStorageState(data []byte) (*StorageState, error) {
	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse storage state: %w", err)
	}
	for i, c := range state.Cookies {
		if c.Name == "" {
			return nil, fmt.Errorf("storage state cookie %d has no name", i)
		}
	}
	for i, o := range state.Origins {
		if o.Origin == "" {
			return nil, fmt.Errorf("storage state origin %d has no origin", i)
		}
	}
	return &state, nil
}

// CookieParams converts the saved cookies to CDP parameters
func (s *StorageState) CookieParams() []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			param.SameSite = network.CookieSameSiteStrict
		case "lax":
			param.SameSite = network.CookieSameSiteLax
		case "none":
			param.SameSite = network.CookieSameSiteNone
		}
		if c.Expires > 0 {
			sec := int64(c.Expires)
			nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
			expires := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
			param.Expires = &expires
		}
		params = append(params, param)
	}
	return params
}

// LocalStorageScript returns a script that restores localStorage for the
// matching origin. It runs before any page script on every navigation, so it
// only writes keys that are still missing and leaves app updates alone.
func (s *StorageState) LocalStorageScript() string {
	if len(s.Origins) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("(() => {\n")
	b.WriteString("\tconst origins = {\n")
	for _, o := range s.Origins {
		entries := make(map[string]string, len(o.LocalStorage))
		for _, kv := range o.LocalStorage {
			entries[kv.Name] = kv.Value
		}
		encoded, err := json.Marshal(entries)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\t\t%s: %s,\n", quoteJS(o.Origin), encoded)
	}
	b.WriteString("\t};\n")
	b.WriteString("\tconst entries = origins[window.location.origin];\n")
	b.WriteString("\tif (!entries) return;\n")
	b.WriteString("\tfor (const [k, v] of Object.entries(entries)) {\n")
	b.WriteString("\t\tif (window.localStorage.getItem(k) === null) window.localStorage.setItem(k, v);\n")
	b.WriteString("\t}\n")
	b.WriteString("})();")
	return b.String()
}

// Apply restores the session into the tab behind ctx
func (s *StorageState) Apply(ctx context.Context) error {
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if cookies := s.CookieParams(); len(cookies) > 0 {
			if err := network.SetCookies(cookies).Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookies: %w", err)
			}
		}
		if script := s.LocalStorageScript(); script != "" {
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return fmt.Errorf("failed to install localStorage script: %w", err)
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("failed to apply storage state: %w", err)
	}
	return nil
}
