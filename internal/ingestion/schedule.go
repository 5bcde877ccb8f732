package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
)

// ScheduleOption is a schedule picked in the ingestion schedule step
type ScheduleOption struct {
	Frequency string // cron-type option title
	Hour      string // two digit hour, empty for frequencies without one
	Minute    string
	Cron      string // expression the pipeline should report
}

// DailyMidnight is the schedule the update step applies
var DailyMidnight = ScheduleOption{
	Frequency: "Day",
	Hour:      "00",
	Minute:    "00",
	Cron:      "0 0 * * *",
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// SameSchedule reports whether two cron expressions fire at the same times.
// Textual differences such as "@daily" against "0 0 * * *" are ignored.
func SameSchedule(a, b string) (bool, error) {
	sa, err := cronParser.Parse(strings.TrimSpace(a))
	if err != nil {
		return false, fmt.Errorf("invalid cron %q: %w", a, err)
	}
	sb, err := cronParser.Parse(strings.TrimSpace(b))
	if err != nil {
		return false, fmt.Errorf("invalid cron %q: %w", b, err)
	}

	next := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	for range 8 {
		na, nb := sa.Next(next), sb.Next(next)
		if !na.Equal(nb) {
			return false, nil
		}
		next = na
	}
	return true, nil
}

// VerifySchedule checks the schedule cells of row against want. The primary
// cell carries the cron expression, the secondary a human description.
func VerifySchedule(row PipelineRow, want ScheduleOption) error {
	same, err := SameSchedule(row.SchedulePrimary, want.Cron)
	if err != nil {
		return fmt.Errorf("pipeline %s schedule: %w", row.Name, err)
	}
	if !same {
		return fmt.Errorf("pipeline %s schedule is %q, want %q", row.Name, row.SchedulePrimary, want.Cron)
	}
	if row.ScheduleSecondary == "" {
		return fmt.Errorf("pipeline %s has no schedule description", row.Name)
	}
	return nil
}

// ValidSchedule checks that row carries a parseable cron expression
func ValidSchedule(row PipelineRow) error {
	if row.SchedulePrimary == "" {
		return fmt.Errorf("pipeline %s has no schedule", row.Name)
	}
	if _, err := cronParser.Parse(row.SchedulePrimary); err != nil {
		return fmt.Errorf("pipeline %s schedule %q: %w", row.Name, row.SchedulePrimary, err)
	}
	return nil
}

// selectSchedule picks want in the schedule step of the ingestion wizard
func selectSchedule(page browser.Page, want ScheduleOption) error {
	if err := selectOption(page, browser.TestID("cron-type"), want.Frequency); err != nil {
		return err
	}
	if want.Hour != "" {
		if err := selectOption(page, browser.TestID("hour-options"), want.Hour); err != nil {
			return err
		}
	}
	if want.Minute != "" {
		if err := selectOption(page, browser.TestID("minute-options"), want.Minute); err != nil {
			return err
		}
	}
	return nil
}
