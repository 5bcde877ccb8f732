package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/browser/browsertest"
	"github.com/ternarybob/ingestion-e2e/internal/ingestion"
)

// fakePages hands out fake pages and records which attempts were traced
type fakePages struct {
	opened int
	closed int
	traced []bool
}

func (f *fakePages) factory(ctx context.Context, tracer *browser.Tracer) (browser.Page, func(), error) {
	f.opened++
	f.traced = append(f.traced, tracer != nil)
	return browsertest.NewFakePage(), func() { f.closed++ }, nil
}

func discard(string, ...any) {}

func passStep(name string) Step {
	return Step{Name: name, Run: func(browser.Page, ingestion.StepFunc) error { return nil }}
}

func failStep(name string, err error) Step {
	return Step{Name: name, Run: func(browser.Page, ingestion.StepFunc) error { return err }}
}

func statuses(results []StepResult) []Status {
	out := make([]Status, 0, len(results))
	for _, r := range results {
		out = append(out, r.Status)
	}
	return out
}

func TestRunnerSerialSkipAfterFailure(t *testing.T) {
	pages := &fakePages{}
	boom := errors.New("toast never appeared")
	group := Group{
		Name:  "S3",
		Steps: []Step{passStep("create"), failStep("update", boom), passStep("schedule"), passStep("delete")},
	}

	runner := NewRunner(group, pages.factory, Options{Trace: browser.TraceOff})
	defer runner.Close()
	results, err := runner.Execute(discard)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Status{StatusPassed, StatusFailed, StatusSkipped, StatusSkipped}, statuses(results))
	assert.ErrorIs(t, results[1].Err, boom)
	assert.Equal(t, "previous step failed: update", results[2].Reason)
	assert.Equal(t, 2, pages.opened)
	assert.Equal(t, pages.opened, pages.closed)
}

func TestRunnerRetryRestartsGroup(t *testing.T) {
	pages := &fakePages{}
	var ran []string
	record := func(name string) Step {
		return Step{Name: name, Run: func(browser.Page, ingestion.StepFunc) error {
			ran = append(ran, name)
			return nil
		}}
	}
	updates := 0
	flaky := Step{Name: "update", Run: func(browser.Page, ingestion.StepFunc) error {
		updates++
		ran = append(ran, "update")
		if updates == 1 {
			return errors.New("flaky")
		}
		return nil
	}}

	group := Group{Name: "Mysql", Steps: []Step{record("create"), flaky, record("delete")}}
	runner := NewRunner(group, pages.factory, Options{
		Retries:    2,
		Trace:      browser.TraceOnFirstRetry,
		ResultsDir: t.TempDir(),
	})
	defer runner.Close()
	results, err := runner.Execute(discard)

	require.NoError(t, err)
	assert.Equal(t, []string{"create", "update", "create", "update", "delete"}, ran)
	assert.Equal(t, []Status{StatusPassed, StatusPassed, StatusPassed}, statuses(results))
	for _, r := range results {
		assert.Equal(t, 2, r.Attempts, r.Name)
	}
	assert.Equal(t, []bool{false, false, true, true, true}, pages.traced)
}

// nameGroup builds a group whose steps act on a freshly named fixture, the
// way service groups do
func nameGroup(names *[]string, failFirst *bool) Group {
	name := uuid.NewString()
	return Group{
		Name: "S3",
		Steps: []Step{
			{Name: "create", Run: func(browser.Page, ingestion.StepFunc) error {
				*names = append(*names, name)
				return nil
			}},
			{Name: "update", Run: func(browser.Page, ingestion.StepFunc) error {
				if *failFirst {
					*failFirst = false
					return fmt.Errorf("service %s not updated", name)
				}
				return nil
			}},
		},
		Rebuild: func() Group { return nameGroup(names, failFirst) },
	}
}

func TestRunnerRetryUsesRebuiltFixture(t *testing.T) {
	pages := &fakePages{}
	var names []string
	failFirst := true

	runner := NewRunner(nameGroup(&names, &failFirst), pages.factory, Options{Retries: 1})
	defer runner.Close()
	results, err := runner.Execute(discard)

	require.NoError(t, err)
	assert.Equal(t, []Status{StatusPassed, StatusPassed}, statuses(results))
	require.Len(t, names, 2)
	assert.NotEqual(t, names[0], names[1])
}

func TestRunnerRetryWithoutRebuildReusesSteps(t *testing.T) {
	pages := &fakePages{}
	calls := 0
	flaky := Step{Name: "create", Run: func(browser.Page, ingestion.StepFunc) error {
		calls++
		if calls == 1 {
			return errors.New("flaky")
		}
		return nil
	}}

	runner := NewRunner(Group{Name: "Mysql", Steps: []Step{flaky}}, pages.factory, Options{Retries: 2})
	defer runner.Close()
	results, err := runner.Execute(discard)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, results[0].Attempts)
}

func TestRunnerFinalAttemptErrorAndTraceArtifacts(t *testing.T) {
	pages := &fakePages{}
	dir := t.TempDir()
	group := Group{Name: "Kafka", Steps: []Step{failStep("Create & Ingest Kafka service", errors.New("no success"))}}

	runner := NewRunner(group, pages.factory, Options{Retries: 1, Trace: browser.TraceOnFirstRetry, ResultsDir: dir})
	defer runner.Close()
	results, err := runner.Execute(discard)

	assert.ErrorContains(t, err, "no success")
	require.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, 2, results[0].Attempts)

	first := ArtifactDir(dir, "Kafka", "Create & Ingest Kafka service", 0)
	second := ArtifactDir(dir, "Kafka", "Create & Ingest Kafka service", 1)
	assert.NoDirExists(t, first)
	assert.FileExists(t, filepath.Join(second, "trace.log"))
	assert.FileExists(t, filepath.Join(second, "01_failure.png"))

	log, err := os.ReadFile(filepath.Join(second, "trace.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "failed: no success")
}

func TestRunnerRetainOnFailureDropsPassingTraces(t *testing.T) {
	pages := &fakePages{}
	dir := t.TempDir()
	runner := NewRunner(Group{Name: "S3", Steps: []Step{passStep("create")}}, pages.factory, Options{
		Trace:      browser.TraceRetainOnFailure,
		ResultsDir: dir,
	})
	defer runner.Close()
	_, err := runner.Execute(discard)
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, pages.traced)
	assert.NoDirExists(t, ArtifactDir(dir, "S3", "create", 0))
}

func TestRunnerBeforeEachFailure(t *testing.T) {
	pages := &fakePages{}
	group := Group{
		Name:       "Postgres",
		BeforeEach: func(browser.Page) error { return errors.New("session expired") },
		Steps:      []Step{passStep("create"), passStep("delete")},
	}

	runner := NewRunner(group, pages.factory, Options{})
	defer runner.Close()
	results, err := runner.Execute(discard)

	assert.Error(t, err)
	assert.Equal(t, []Status{StatusFailed, StatusSkipped}, statuses(results))
	assert.ErrorContains(t, results[0].Err, "before each: session expired")
}

func TestRunnerTimeoutIsPerStep(t *testing.T) {
	pages := &fakePages{}
	step := func(name string) Step {
		return Step{Name: name, Run: func(browser.Page, ingestion.StepFunc) error {
			time.Sleep(60 * time.Millisecond)
			return nil
		}}
	}
	group := Group{
		Name:    "Redshift",
		Timeout: 150 * time.Millisecond,
		Steps:   []Step{step("create"), step("update"), step("schedule"), step("delete")},
	}

	runner := NewRunner(group, pages.factory, Options{})
	defer runner.Close()
	results, err := runner.Execute(discard)

	require.NoError(t, err)
	assert.Equal(t, []Status{StatusPassed, StatusPassed, StatusPassed, StatusPassed}, statuses(results))
}

func TestRunnerStepTimeout(t *testing.T) {
	pages := &fakePages{}
	release := make(chan struct{})
	defer close(release)
	stuck := Step{Name: "create", Run: func(browser.Page, ingestion.StepFunc) error {
		<-release
		return nil
	}}
	group := Group{Name: "Snowflake", Timeout: 20 * time.Millisecond, Steps: []Step{stuck, passStep("delete")}}

	runner := NewRunner(group, pages.factory, Options{Retries: 1})
	defer runner.Close()
	results, err := runner.Execute(discard)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []Status{StatusFailed, StatusSkipped}, statuses(results))
	assert.ErrorContains(t, results[0].Err, "timeout of 20ms exceeded")
	assert.Equal(t, 2, results[0].Attempts)
	assert.Equal(t, pages.opened, pages.closed)
}

func TestRunnerFilterSkipsWithoutBreakingSerial(t *testing.T) {
	pages := &fakePages{}
	filter, err := NewFilter(nil, []string{"schedule"})
	require.NoError(t, err)

	group := Group{Name: "S3", Tags: []string{IngestionTag}, Steps: []Step{passStep("create"), passStep("schedule"), passStep("delete")}}
	runner := NewRunner(group, pages.factory, Options{Filter: filter})
	defer runner.Close()
	results, err := runner.Execute(discard)

	require.NoError(t, err)
	assert.Equal(t, []Status{StatusPassed, StatusSkipped, StatusPassed}, statuses(results))
	assert.Contains(t, results[1].Reason, "excluded by filter")
}

func TestRunnerPrepareFailureSkipsGroup(t *testing.T) {
	pages := &fakePages{}
	prepared := 0
	group := Group{
		Name: "Kafka",
		Prepare: func(context.Context) error {
			prepared++
			return errors.New("broker down")
		},
		Steps: []Step{passStep("create"), passStep("delete")},
	}

	runner := NewRunner(group, pages.factory, Options{Retries: 1})
	defer runner.Close()
	results, err := runner.Execute(discard)

	assert.ErrorContains(t, err, "failed to prepare Kafka: broker down")
	assert.Equal(t, []Status{StatusSkipped, StatusSkipped}, statuses(results))
	assert.Equal(t, "prepare failed: broker down", results[0].Reason)
	assert.Equal(t, 2, prepared)
	assert.Equal(t, 0, pages.opened)
}

func TestRunnerPrepareRunsPerGroupAttempt(t *testing.T) {
	pages := &fakePages{}
	prepared := 0
	group := Group{
		Name:    "Kafka",
		Prepare: func(context.Context) error { prepared++; return nil },
		Steps:   []Step{passStep("create"), failStep("delete", errors.New("still listed"))},
	}

	runner := NewRunner(group, pages.factory, Options{Retries: 2})
	defer runner.Close()
	_, err := runner.Execute(discard)

	assert.ErrorContains(t, err, "still listed")
	assert.Equal(t, 3, prepared)
}

func TestRunnerSubSteps(t *testing.T) {
	pages := &fakePages{}
	var logged []string
	logf := func(format string, args ...any) { logged = append(logged, format) }

	step := Step{Name: "Service specific tests", Run: func(_ browser.Page, sub ingestion.StepFunc) error {
		if err := sub("Add Usage ingestion", func() error { return nil }); err != nil {
			return err
		}
		return sub("Add Lineage ingestion", func() error { return errors.New("lineage failed") })
	}}

	runner := NewRunner(Group{Name: "Postgres", Steps: []Step{step}}, pages.factory, Options{})
	defer runner.Close()
	results, err := runner.Execute(logf)

	assert.Error(t, err)
	assert.ErrorContains(t, results[0].Err, "Add Lineage ingestion: lineage failed")
	assert.Contains(t, logged, "  step: %s")
}

func TestRunnerRecoversStepPanic(t *testing.T) {
	pages := &fakePages{}
	dir := t.TempDir()
	panicky := Step{Name: "create", Run: func(browser.Page, ingestion.StepFunc) error {
		panic("connector not registered")
	}}

	runner := NewRunner(Group{Name: "Kafka", Steps: []Step{panicky, passStep("delete")}}, pages.factory, Options{
		Trace:      browser.TraceOff,
		ResultsDir: dir,
	})
	defer runner.Close()
	results, err := runner.Execute(discard)

	assert.Error(t, err)
	assert.Equal(t, []Status{StatusFailed, StatusSkipped}, statuses(results))
	assert.ErrorContains(t, results[0].Err, "panic: connector not registered")
	assert.Equal(t, pages.opened, pages.closed)

	crashes, err := filepath.Glob(filepath.Join(ArtifactDir(dir, "Kafka", "create", 0), "crash-*.log"))
	require.NoError(t, err)
	assert.Len(t, crashes, 1)
}

func TestSummary(t *testing.T) {
	out := Summary([]StepResult{
		{Name: "create", Status: StatusPassed},
		{Name: "update", Status: StatusFailed, Attempts: 2, Err: errors.New("boom")},
		{Name: "delete", Status: StatusSkipped, Reason: "previous step failed: update"},
	})
	assert.Equal(t, "passed  create\nfailed  update (attempt 2): boom\nskipped delete (previous step failed: update)\n", out)
}

func TestRunSubtests(t *testing.T) {
	pages := &fakePages{}
	group := Group{Name: "S3", Tags: []string{IngestionTag}, Steps: []Step{passStep("create"), passStep("delete")}}
	Run(t, group, pages.factory, Options{})
	assert.Equal(t, 2, pages.opened)
}
