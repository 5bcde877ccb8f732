package ingestion

import (
	"fmt"
	"strings"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
)

// field is one connection form input, addressed by its json-schema path
type field struct {
	path  string // e.g. "connection/hostPort"
	value string
}

// fieldSelector returns the rjsf input id for a schema path
func fieldSelector(path string) string {
	return browser.ByID("root/" + path)
}

func fillFields(page browser.Page, fields ...field) error {
	for _, f := range fields {
		if err := page.Fill(fieldSelector(f.path), f.value); err != nil {
			return fmt.Errorf("failed to fill %s: %w", f.path, err)
		}
	}
	return nil
}

// optionSelector matches an entry of the open antd select dropdown
func optionSelector(title string) string {
	return fmt.Sprintf(`.ant-select-dropdown:not(.ant-select-dropdown-hidden) .ant-select-item-option[title="%s"]`,
		strings.ReplaceAll(title, `"`, `\"`))
}

// selectOption opens the antd select behind trigger and picks title
func selectOption(page browser.Page, trigger, title string) error {
	if err := page.Click(trigger); err != nil {
		return fmt.Errorf("failed to open select %s: %w", trigger, err)
	}
	if err := page.Click(optionSelector(title)); err != nil {
		return fmt.Errorf("failed to select %q: %w", title, err)
	}
	return nil
}

// addFilterPattern enters an include pattern into a filter tag input such as
// schemaFilterPattern. The tag is committed with Enter.
func addFilterPattern(page browser.Page, filter, pattern string) error {
	sel := browser.ByID(fmt.Sprintf("root/%s/includes", filter))
	if err := page.Fill(sel, pattern); err != nil {
		return fmt.Errorf("failed to enter %s: %w", filter, err)
	}
	if err := page.Press(sel, "Enter"); err != nil {
		return fmt.Errorf("failed to commit %s: %w", filter, err)
	}
	return nil
}

// clickAll clicks each selector in order
func clickAll(page browser.Page, selectors ...string) error {
	for _, sel := range selectors {
		if err := page.Click(sel); err != nil {
			return err
		}
	}
	return nil
}
