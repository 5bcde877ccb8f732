// uitest_context.go - Shared UI test context and helpers for the browser suites
// NOTE: This is NOT a test file - it contains shared test infrastructure.

package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
	"github.com/ternarybob/ingestion-e2e/test/common"
)

// serviceErr records why the application is unusable, nil when it answered
var serviceErr error

// requireService skips t when TestMain could not reach the application
func requireService(t *testing.T) {
	t.Helper()
	if serviceErr != nil {
		t.Skipf("application not reachable: %v", serviceErr)
	}
}

// UITestContext holds one tab with the saved session for a single test
type UITestContext struct {
	T       *testing.T
	Env     *common.TestEnvironment
	Ctx     context.Context
	Page    browser.Page
	BaseURL string

	// Internal cleanup functions
	cleanup []func()

	// Screenshot counter for sequential naming
	screenshotNum int
}

// NewUITestContext creates the environment and opens a page bounded by timeout
func NewUITestContext(t *testing.T, timeout time.Duration) *UITestContext {
	requireService(t)

	env, err := common.SetupTestEnvironment(t.Name())
	if err != nil {
		t.Fatalf("Failed to setup test environment: %v", err)
	}

	ctx, cancelTimeout := context.WithTimeout(context.Background(), timeout)

	page, closePage, err := env.NewPage(ctx, nil)
	if err != nil {
		cancelTimeout()
		env.Cleanup()
		t.Fatalf("Failed to open browser page: %v", err)
	}

	utc := &UITestContext{
		T:       t,
		Env:     env,
		Ctx:     ctx,
		Page:    page,
		BaseURL: env.Config.BaseURL(),
		cleanup: make([]func(), 0),
	}

	// Cleanup runs in reverse order (LIFO)
	utc.cleanup = append(utc.cleanup, func() { env.Cleanup() })
	utc.cleanup = append(utc.cleanup, func() { cancelTimeout() })
	utc.cleanup = append(utc.cleanup, func() { closePage() })

	return utc
}

// Cleanup releases all resources. Call this with defer.
func (utc *UITestContext) Cleanup() {
	// Write test result to log file before cleanup
	if utc.T.Failed() {
		utc.Screenshot("failure")
		utc.Log("=== TEST RESULT: FAIL ===")
	} else {
		utc.Log("=== TEST RESULT: PASS ===")
	}

	for i := len(utc.cleanup) - 1; i >= 0; i-- {
		utc.cleanup[i]()
	}
}

// Log writes a message to the test log
func (utc *UITestContext) Log(format string, args ...interface{}) {
	utc.Env.LogTest(utc.T, format, args...)
}

// Expect returns web-first assertions using the configured timeouts
func (utc *UITestContext) Expect() *browser.Expectation {
	cfg := utc.Env.Config.Browser
	return browser.Expect(utc.Page, cfg.ExpectTimeoutDuration(), cfg.PollIntervalDuration())
}

// Screenshot saves a numbered screenshot into the results directory
func (utc *UITestContext) Screenshot(name string) {
	utc.screenshotNum++
	buf, err := utc.Page.Screenshot()
	if err != nil {
		utc.Log("Warning: screenshot %s failed: %v", name, err)
		return
	}
	path := filepath.Join(utc.Env.ResultsDir, fmt.Sprintf("%02d_%s.png", utc.screenshotNum, browser.SanitizeFileName(name)))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		utc.Log("Warning: failed to save screenshot: %v", err)
	}
}

// OpenSettings lands on the home page and opens option's service list
func (utc *UITestContext) OpenSettings(option settings.Option) error {
	if err := settings.RedirectToHomePage(utc.Page, utc.BaseURL, utc.Env.Config.App.HomePath); err != nil {
		return err
	}
	return settings.SettingClick(utc.Page, option)
}
