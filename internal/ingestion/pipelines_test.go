package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/ingestion-e2e/internal/browser/browsertest"
)

func TestParsePipelineTable(t *testing.T) {
	html := pipelineTableHTML(
		metadataRow(StatusSuccess),
		PipelineRow{Name: "pw_usage_agent", Type: "Usage", SchedulePrimary: "0 2 * * *", Status: StatusRunning},
	)

	rows, err := ParsePipelineTable(html)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "pw_metadata_agent", rows[0].Name)
	assert.Equal(t, "metadata", rows[0].Type)
	assert.Equal(t, "0 0 * * *", rows[0].SchedulePrimary)
	assert.Equal(t, "At 12:00 AM, every day", rows[0].ScheduleSecondary)
	assert.Equal(t, StatusSuccess, rows[0].Status)

	assert.Equal(t, "usage", rows[1].Type)
	assert.Equal(t, StatusRunning, rows[1].Status)
}

func TestParsePipelineTableRecentRuns(t *testing.T) {
	row := metadataRow(StatusRunning)
	row.Runs = 3
	row.LastRun = "Oct 17, 2026, 10:15 AM"

	rows, err := ParsePipelineTable(pipelineTableHTML(row))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, StatusRunning, rows[0].Status)
	assert.Equal(t, 3, rows[0].Runs)
	assert.Equal(t, "Oct 17, 2026, 10:15 AM", rows[0].LastRun)
}

func TestPipelineRowNewerThan(t *testing.T) {
	before := PipelineRow{Runs: 2, LastRun: "10:00"}

	assert.False(t, PipelineRow{Runs: 2, LastRun: "10:00"}.NewerThan(before))
	assert.True(t, PipelineRow{Runs: 2, LastRun: "10:05"}.NewerThan(before))
	assert.True(t, PipelineRow{Runs: 3}.NewerThan(PipelineRow{Runs: 2}))
	assert.False(t, PipelineRow{Runs: 5}.NewerThan(PipelineRow{Runs: 5}))
}

func TestParsePipelineTableSkipsPlaceholderRows(t *testing.T) {
	html := `<table><tbody><tr class="ant-table-placeholder"><td>No data</td></tr></tbody></table>`
	rows, err := ParsePipelineTable(html)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindPipeline(t *testing.T) {
	rows := []PipelineRow{
		{Name: "a", Type: "metadata"},
		{Name: "pw-postgres-lineage-x", Type: ""},
	}

	row, ok := FindPipeline(rows, PipelineLineage)
	assert.True(t, ok)
	assert.Equal(t, "pw-postgres-lineage-x", row.Name)

	_, ok = FindPipeline(rows, PipelineDBT)
	assert.False(t, ok)
}

func TestWaitForPipelineSuccessAfterReloads(t *testing.T) {
	page := browsertest.NewFakePage()
	setPipelines(page, metadataRow(StatusQueued))

	reloads := 0
	page.OnReload = func(p *browsertest.FakePage) {
		reloads++
		if reloads == 2 {
			setPipelines(p, metadataRow(StatusSuccess))
		} else {
			setPipelines(p, metadataRow(StatusRunning))
		}
	}

	row, err := WaitForPipelineSuccess(context.Background(), page, PipelineMetadata, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, row.Status)
	assert.Equal(t, 2, reloads)
}

func TestWaitForPipelineSuccessStopsOnFailure(t *testing.T) {
	page := browsertest.NewFakePage()
	setPipelines(page, metadataRow(StatusFailed))

	_, err := WaitForPipelineSuccess(context.Background(), page, PipelineMetadata, time.Millisecond, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finished with status Failed")
	assert.NotContains(t, page.Actions(), "reload")
}

func TestWaitForPipelineSuccessTimesOut(t *testing.T) {
	page := browsertest.NewFakePage()
	setPipelines(page, metadataRow(StatusRunning))

	_, err := WaitForPipelineSuccess(context.Background(), page, PipelineMetadata, 5*time.Millisecond, 30*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, errPipelinePending)
}

func TestWaitForPipelineSuccessMissingPipeline(t *testing.T) {
	page := browsertest.NewFakePage()
	setPipelines(page)

	_, err := WaitForPipelineSuccess(context.Background(), page, PipelineUsage, time.Millisecond, 10*time.Millisecond)
	assert.ErrorContains(t, err, "usage pipeline not listed")
}

func TestWaitForPipelineRerunKeepsPollingStaleSuccess(t *testing.T) {
	page := browsertest.NewFakePage()
	before := metadataRow(StatusSuccess)
	setPipelines(page, before)

	reloads := 0
	page.OnReload = func(*browsertest.FakePage) { reloads++ }

	_, err := WaitForPipelineRerun(context.Background(), page, PipelineMetadata, before, time.Millisecond, 30*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStaleRun)
	assert.Greater(t, reloads, 1)
}

func TestWaitForPipelineRerunAcceptsSuccessAfterRunning(t *testing.T) {
	page := browsertest.NewFakePage()
	before := metadataRow(StatusSuccess)
	setPipelines(page, metadataRow(StatusRunning))
	page.OnReload = func(p *browsertest.FakePage) { setPipelines(p, metadataRow(StatusSuccess)) }

	row, err := WaitForPipelineRerun(context.Background(), page, PipelineMetadata, before, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, row.Status)
}

func TestWaitForPipelineRerunAcceptsNewerRun(t *testing.T) {
	page := browsertest.NewFakePage()
	before := metadataRow(StatusSuccess)
	before.LastRun = "10:00"
	after := metadataRow(StatusSuccess)
	after.LastRun = "10:07"
	setPipelines(page, after)

	row, err := WaitForPipelineRerun(context.Background(), page, PipelineMetadata, before, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "10:07", row.LastRun)
	assert.NotContains(t, page.Actions(), "reload")
}

func TestWaitForPipelineRerunFailedRun(t *testing.T) {
	page := browsertest.NewFakePage()
	before := metadataRow(StatusSuccess)
	failed := metadataRow(StatusFailed)
	failed.Runs = 2
	setPipelines(page, failed)

	_, err := WaitForPipelineRerun(context.Background(), page, PipelineMetadata, before, time.Millisecond, time.Second)
	assert.ErrorContains(t, err, "finished with status Failed")
}
