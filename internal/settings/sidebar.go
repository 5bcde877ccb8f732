package settings

import (
	"fmt"
	"strings"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
)

// RedirectToHomePage opens the application root and waits for the landing
// redirect, which only happens for an authenticated session.
func RedirectToHomePage(page browser.Page, baseURL, homePath string) error {
	if err := page.Goto(strings.TrimRight(baseURL, "/") + "/"); err != nil {
		return err
	}
	if err := page.WaitForURL(func(url string) bool {
		return strings.HasSuffix(strings.TrimRight(url, "/"), homePath)
	}); err != nil {
		return fmt.Errorf("home page %s not reached, is the session valid: %w", homePath, err)
	}
	return nil
}

// SettingClick opens the settings app-bar entry and follows option's menu path
func SettingClick(page browser.Page, option Option) error {
	if !option.Valid() {
		return fmt.Errorf("unknown settings option %q", option)
	}

	if err := page.Click(browser.TestID("app-bar-item-settings")); err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}

	for _, id := range option.MenuPath() {
		if err := page.Click(browser.TestID(id)); err != nil {
			return fmt.Errorf("failed to open settings %s: %w", option, err)
		}
	}

	want := option.URLPath()
	if err := page.WaitForURL(func(url string) bool {
		return strings.Contains(url, want)
	}); err != nil {
		return fmt.Errorf("settings %s did not load: %w", option, err)
	}
	return nil
}
