package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
)

// Pipeline types as rendered in the agents table
const (
	PipelineMetadata = "metadata"
	PipelineUsage    = "usage"
	PipelineLineage  = "lineage"
	PipelineDBT      = "dbt"
)

// Pipeline run states shown in the status column
const (
	StatusSuccess        = "Success"
	StatusFailed         = "Failed"
	StatusPartialSuccess = "Partial Success"
	StatusQueued         = "Queued"
	StatusRunning        = "Running"
)

var pipelineTable = browser.TestID("ingestion-list-table")

// PipelineRow is one ingestion agent as listed on the service page
type PipelineRow struct {
	Name              string
	Type              string
	SchedulePrimary   string
	ScheduleSecondary string
	Status            string // state of the latest recent run
	Runs              int    // recent runs listed, oldest first
	LastRun           string // start time of the latest run, when rendered
}

// ParsePipelineTable extracts the agent rows from the ingestion table markup
func ParsePipelineTable(html string) ([]PipelineRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ingestion table: %w", err)
	}

	var rows []PipelineRow
	doc.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		name := cellText(tr, "pipeline-name")
		if name == "" {
			return
		}
		runs := tr.Find(browser.TestID("pipeline-status"))
		rows = append(rows, PipelineRow{
			Name:              name,
			Type:              strings.ToLower(cellText(tr, "pipeline-type")),
			SchedulePrimary:   cellText(tr, "schedule-primary-details"),
			ScheduleSecondary: cellText(tr, "schedule-secondary-details"),
			Status:            strings.TrimSpace(runs.Last().Text()),
			Runs:              runs.Length(),
			LastRun:           cellText(tr, "pipeline-last-run"),
		})
	})
	return rows, nil
}

func cellText(s *goquery.Selection, testID string) string {
	return strings.TrimSpace(s.Find(browser.TestID(testID)).First().Text())
}

// FindPipeline returns the first row of pipelineType
func FindPipeline(rows []PipelineRow, pipelineType string) (PipelineRow, bool) {
	for _, row := range rows {
		if row.Type == pipelineType || strings.Contains(strings.ToLower(row.Name), pipelineType) {
			return row, true
		}
	}
	return PipelineRow{}, false
}

// ReadPipelines reads the agents table currently rendered on page
func ReadPipelines(page browser.Page) ([]PipelineRow, error) {
	html, err := page.OuterHTML(pipelineTable)
	if err != nil {
		return nil, err
	}
	return ParsePipelineTable(html)
}

var (
	errPipelinePending = errors.New("pipeline has not finished")
	errStaleRun        = errors.New("pipeline still shows the previous run")
)

// NewerThan reports whether row shows a later run than before
func (row PipelineRow) NewerThan(before PipelineRow) bool {
	if row.LastRun != "" && row.LastRun != before.LastRun {
		return true
	}
	return row.Runs > before.Runs
}

func pending(status string) bool {
	switch status {
	case StatusSuccess, StatusFailed, StatusPartialSuccess:
		return false
	}
	return true
}

// WaitForPipelineSuccess reloads the service's ingestions tab until the
// pipelineType agent reports success. A failed run stops the wait at once.
func WaitForPipelineSuccess(ctx context.Context, page browser.Page, pipelineType string, interval, timeout time.Duration) (PipelineRow, error) {
	return waitForPipeline(ctx, page, pipelineType, nil, interval, timeout)
}

// WaitForPipelineRerun waits for a run started after before was read to
// succeed. A terminal status is only accepted once the row shows a newer run
// or the agent was seen queued or running during the wait.
func WaitForPipelineRerun(ctx context.Context, page browser.Page, pipelineType string, before PipelineRow, interval, timeout time.Duration) (PipelineRow, error) {
	return waitForPipeline(ctx, page, pipelineType, &before, interval, timeout)
}

func waitForPipeline(ctx context.Context, page browser.Page, pipelineType string, before *PipelineRow, interval, timeout time.Duration) (PipelineRow, error) {
	attempt := 0
	sawPending := false
	operation := func() (PipelineRow, error) {
		attempt++
		if attempt > 1 {
			if err := page.Reload(); err != nil {
				return PipelineRow{}, err
			}
		}
		if err := openIngestionsTab(page); err != nil {
			return PipelineRow{}, err
		}

		rows, err := ReadPipelines(page)
		if err != nil {
			return PipelineRow{}, err
		}
		row, ok := FindPipeline(rows, pipelineType)
		if !ok {
			return PipelineRow{}, fmt.Errorf("%s pipeline not listed", pipelineType)
		}

		if pending(row.Status) {
			sawPending = true
			return row, fmt.Errorf("%w: %s is %q", errPipelinePending, row.Name, row.Status)
		}
		if before != nil && !sawPending && !row.NewerThan(*before) {
			return row, fmt.Errorf("%w: %s is %q", errStaleRun, row.Name, row.Status)
		}
		if row.Status != StatusSuccess {
			return row, backoff.Permanent(fmt.Errorf("%s pipeline %s finished with status %s", pipelineType, row.Name, row.Status))
		}
		return row, nil
	}

	row, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxElapsedTime(timeout),
	)
	if err != nil {
		return row, fmt.Errorf("waiting for %s pipeline: %w", pipelineType, err)
	}
	return row, nil
}

func openIngestionsTab(page browser.Page) error {
	if err := page.Click(browser.TestID("ingestions")); err != nil {
		return fmt.Errorf("failed to open ingestions tab: %w", err)
	}
	return page.WaitVisible(pipelineTable)
}
