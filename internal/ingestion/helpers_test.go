package ingestion

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/browser/browsertest"
)

func testEnv(t *testing.T, creds map[string]string) Env {
	t.Helper()
	return Env{
		BaseURL:       "http://localhost:8585",
		ExpectTimeout: 100 * time.Millisecond,
		PollInterval:  time.Millisecond,
		StatusTimeout: 200 * time.Millisecond,
		StatusPoll:    time.Millisecond,
		Credential:    func(key string) string { return creds[key] },
		Logger:        arbor.NewLogger(),
	}
}

// pipelineTableHTML renders an ingestion table with one row per status in
// the shape the agents tab uses.
func pipelineTableHTML(rows ...PipelineRow) string {
	var b strings.Builder
	b.WriteString(`<table data-testid="ingestion-list-table"><thead><tr><th>Name</th></tr></thead><tbody>`)
	for _, r := range rows {
		var runs strings.Builder
		for i := 1; i < max(r.Runs, 1); i++ {
			runs.WriteString(`<span data-testid="pipeline-status">Success</span>`)
		}
		fmt.Fprintf(&runs, `<span data-testid="pipeline-status">%s</span>`, r.Status)
		if r.LastRun != "" {
			fmt.Fprintf(&runs, `<span data-testid="pipeline-last-run">%s</span>`, r.LastRun)
		}
		fmt.Fprintf(&b, `<tr>
			<td><span data-testid="pipeline-name">%s</span></td>
			<td><span data-testid="pipeline-type">%s</span></td>
			<td><div data-testid="schedule-primary-details">%s</div><div data-testid="schedule-secondary-details">%s</div></td>
			<td>%s</td>
		</tr>`, r.Name, r.Type, r.SchedulePrimary, r.ScheduleSecondary, runs.String())
	}
	b.WriteString(`</tbody></table>`)
	return b.String()
}

func setPipelines(page *browsertest.FakePage, rows ...PipelineRow) {
	page.SetHTML(pipelineTable, pipelineTableHTML(rows...))
}

func metadataRow(status string) PipelineRow {
	return PipelineRow{
		Name:              "pw_metadata_agent",
		Type:              "Metadata",
		SchedulePrimary:   "0 0 * * *",
		ScheduleSecondary: "At 12:00 AM, every day",
		Status:            status,
		Runs:              1,
	}
}

// wizardPage scripts a fake page through a successful create flow
func wizardPage() *browsertest.FakePage {
	page := browsertest.NewFakePage()
	page.SetText(browser.TestID("success-line"),
		"Service has been created successfully. Ingestion has been created and deployed successfully")
	page.SetText(browser.TestID("messag-text"), "Connection test was successful")
	page.OnClick(`[data-testid="test-connection-modal"] button.ant-modal-close`, func(p *browsertest.FakePage) {
		p.Hide(browser.TestID("test-connection-modal"))
	})
	setPipelines(page, metadataRow(StatusSuccess))
	return page
}
