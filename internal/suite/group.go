// Package suite runs groups of browser steps in serial mode: a failed step
// skips the rest of its group, each step attempt has its own deadline, and a
// failed group is retried from its first step with tracing per the
// configured trace mode.
package suite

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/common"
	"github.com/ternarybob/ingestion-e2e/internal/ingestion"
)

// Step is one serial test of a group
type Step struct {
	Name string
	Run  func(page browser.Page, step ingestion.StepFunc) error
}

// Group is a set of serial steps sharing a BeforeEach hook
type Group struct {
	Name       string
	Tags       []string
	Timeout    time.Duration                   // per step attempt
	Prepare    func(ctx context.Context) error // before the first step of every group attempt
	BeforeEach func(page browser.Page) error   // on every step's fresh page
	Steps      []Step

	// Rebuild returns the group for a retry, with fresh fixtures. The step
	// names must not change. Nil retries the same steps.
	Rebuild func() Group
}

// PageFactory opens a fresh page for a step. tracer is nil when the attempt
// is not traced.
type PageFactory func(ctx context.Context, tracer *browser.Tracer) (browser.Page, func(), error)

// Options control retries, tracing and step selection
type Options struct {
	Retries    int // group retries
	Trace      browser.TraceMode
	ResultsDir string
	Filter     Filter
	Logger     arbor.ILogger
}

// Status of a finished step
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records the outcome of one step in the final group attempt
type StepResult struct {
	Name     string
	Status   Status
	Attempts int    // group attempt the result comes from, 1-based
	Reason   string // why the step was skipped
	Err      error
	Duration time.Duration
}

// Runner executes one group. Run wraps it in subtests; it is usable on its
// own for tooling and tests.
type Runner struct {
	group  Group
	pages  PageFactory
	opts   Options
	logger arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(group Group, pages PageFactory, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = arbor.NewLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		group:  group,
		pages:  pages,
		opts:   opts,
		logger: logger.WithCorrelationId(group.Name),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close aborts a running step
func (r *Runner) Close() {
	r.cancel()
}

// Execute runs the group and returns the results of its final attempt. When
// a step fails and retries remain, the group starts over from its first step
// with a rebuilt group. The error is the failure of the final attempt.
func (r *Runner) Execute(logf func(string, ...any)) ([]StepResult, error) {
	group := r.group
	rounds := 1 + max(r.opts.Retries, 0)

	var results []StepResult
	var err error
	for round := 0; round < rounds; round++ {
		if round > 0 {
			logf("Retrying group %s (attempt %d of %d): %v", group.Name, round+1, rounds, err)
			if r.group.Rebuild != nil {
				group = r.group.Rebuild()
			}
		}

		results, err = r.runRound(group, round, logf)
		if err == nil || r.ctx.Err() != nil {
			break
		}
		r.logger.Warn().
			Int("attempt", round+1).
			Err(err).
			Msg("Group attempt failed")
	}
	return results, err
}

func (r *Runner) runRound(group Group, round int, logf func(string, ...any)) ([]StepResult, error) {
	results := make([]StepResult, 0, len(group.Steps))

	var failure error
	skipReason := ""
	if group.Prepare != nil {
		if err := group.Prepare(r.ctx); err != nil {
			failure = fmt.Errorf("failed to prepare %s: %w", group.Name, err)
			skipReason = fmt.Sprintf("prepare failed: %v", err)
			logf("%v", failure)
		}
	}

	for _, step := range group.Steps {
		result := StepResult{Name: step.Name}
		switch {
		case failure != nil:
			result.Status = StatusSkipped
			result.Reason = skipReason
		case !r.opts.Filter.Match(StepID(group, step.Name)):
			result.Status = StatusSkipped
			result.Reason = fmt.Sprintf("excluded by filter: %s", r.opts.Filter.Describe())
		default:
			start := time.Now()
			result.Attempts = round + 1
			result.Err = r.runAttempt(group, step, round, logf)
			result.Duration = time.Since(start)
			if result.Err != nil {
				result.Status = StatusFailed
				failure = fmt.Errorf("%s: %w", step.Name, result.Err)
				skipReason = fmt.Sprintf("previous step failed: %s", step.Name)
				r.logger.Warn().Str("step", step.Name).Int("attempt", round+1).Err(result.Err).Msg("Step failed")
			} else {
				result.Status = StatusPassed
				r.logger.Info().Str("step", step.Name).Dur("duration", result.Duration).Msg("Step passed")
			}
		}
		results = append(results, result)
	}
	return results, failure
}

func (r *Runner) runAttempt(group Group, step Step, attempt int, logf func(string, ...any)) (err error) {
	ctx, cancel := r.ctx, context.CancelFunc(func() {})
	if group.Timeout > 0 {
		ctx, cancel = context.WithTimeout(r.ctx, group.Timeout)
	}
	defer cancel()

	var tracer *browser.Tracer
	if r.opts.Trace.ShouldTrace(attempt) {
		tracer = browser.NewTracer()
		tracer.Note("%s > %s, attempt %d", group.Name, step.Name, attempt+1)
	}

	page, closePage, err := r.pages(ctx, tracer)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer closePage()

	defer func() {
		if tracer == nil {
			return
		}
		if err != nil {
			tracer.Note("failed: %v", err)
			tracer.Snapshot(page, "failure")
		}
		if r.opts.Trace.ShouldKeep(err != nil) {
			dir := ArtifactDir(r.opts.ResultsDir, group.Name, step.Name, attempt)
			if flushErr := tracer.Flush(dir); flushErr != nil {
				r.logger.Warn().Err(flushErr).Str("dir", dir).Msg("Failed to write trace")
			} else {
				logf("Trace written to %s", dir)
			}
		}
	}()

	// a step abandoned at its deadline must not log into a finished test
	var mu sync.Mutex
	open := true
	stepLog := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		if open {
			logf(format, args...)
		}
	}
	defer func() {
		mu.Lock()
		open = false
		mu.Unlock()
	}()

	done := make(chan error, 1)
	go func() {
		done <- r.runStep(group, step, page, tracer, attempt, stepLog)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("timeout of %v exceeded: %w", group.Timeout, ctx.Err())
	}
	return err
}

func (r *Runner) runStep(group Group, step Step, page browser.Page, tracer *browser.Tracer, attempt int, logf func(string, ...any)) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			if r.opts.ResultsDir == "" {
				return
			}
			dir := ArtifactDir(r.opts.ResultsDir, group.Name, step.Name, attempt)
			if path, crashErr := common.WriteCrashFile(dir, p, string(debug.Stack())); crashErr == nil {
				logf("Crash report written to %s", path)
			}
		}
	}()

	if group.BeforeEach != nil {
		if err := group.BeforeEach(page); err != nil {
			return fmt.Errorf("before each: %w", err)
		}
	}

	sub := func(name string, fn func() error) error {
		logf("  step: %s", name)
		if tracer != nil {
			tracer.Note("step %s", name)
		}
		if err := fn(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
	return step.Run(page, sub)
}

// ArtifactDir is where a traced attempt is written:
// <results>/<group>/<step>/attempt-N
func ArtifactDir(resultsDir, group, step string, attempt int) string {
	return filepath.Join(resultsDir,
		browser.SanitizeFileName(group),
		browser.SanitizeFileName(step),
		fmt.Sprintf("attempt-%d", attempt+1))
}

// Run executes group and reports each step of the final attempt as a
// subtest of t
func Run(t *testing.T, group Group, pages PageFactory, opts Options) {
	t.Helper()

	if !opts.Filter.Match(StepID(group, "")) && !anyStepMatches(group, opts.Filter) {
		t.Skipf("%s excluded by filter: %s", group.Name, opts.Filter.Describe())
	}

	runner := NewRunner(group, pages, opts)
	defer runner.Close()

	results, err := runner.Execute(t.Logf)
	t.Logf("%s results:\n%s", group.Name, Summary(results))

	stepFailed := false
	for _, result := range results {
		t.Run(result.Name, func(t *testing.T) {
			switch result.Status {
			case StatusSkipped:
				t.Skip(result.Reason)
			case StatusFailed:
				t.Fatalf("failed on group attempt %d: %v", result.Attempts, result.Err)
			default:
				t.Logf("passed in %v on group attempt %d", result.Duration.Round(time.Millisecond), result.Attempts)
			}
		})
		if result.Status == StatusFailed {
			stepFailed = true
		}
	}

	// a prepare failure leaves every step skipped
	if err != nil && !stepFailed {
		t.Error(err)
	}
}

func anyStepMatches(group Group, filter Filter) bool {
	for _, step := range group.Steps {
		if filter.Match(StepID(group, step.Name)) {
			return true
		}
	}
	return false
}

// Summary renders results as one line per step
func Summary(results []StepResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%-7s %s", r.Status, r.Name)
		switch {
		case r.Err != nil:
			fmt.Fprintf(&b, " (attempt %d): %v", r.Attempts, r.Err)
		case r.Reason != "":
			fmt.Fprintf(&b, " (%s)", r.Reason)
		}
		b.WriteString("\n")
	}
	return b.String()
}
