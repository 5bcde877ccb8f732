package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// TraceMode selects when attempts are recorded
type TraceMode string

const (
	TraceOff             TraceMode = "off"
	TraceOn              TraceMode = "on"
	TraceOnFirstRetry    TraceMode = "on-first-retry"
	TraceRetainOnFailure TraceMode = "retain-on-failure"
)

// ParseTraceMode validates a configured trace mode
func ParseTraceMode(s string) (TraceMode, error) {
	switch mode := TraceMode(strings.TrimSpace(s)); mode {
	case TraceOff, TraceOn, TraceOnFirstRetry, TraceRetainOnFailure:
		return mode, nil
	case "":
		return TraceOff, nil
	default:
		return "", fmt.Errorf("unknown trace mode %q", s)
	}
}

// ShouldTrace reports whether attempt (0 is the first run) is recorded
func (m TraceMode) ShouldTrace(attempt int) bool {
	switch m {
	case TraceOn, TraceRetainOnFailure:
		return true
	case TraceOnFirstRetry:
		return attempt == 1
	default:
		return false
	}
}

// ShouldKeep reports whether a recorded attempt is written out
func (m TraceMode) ShouldKeep(failed bool) bool {
	switch m {
	case TraceOn, TraceOnFirstRetry:
		return true
	case TraceRetainOnFailure:
		return failed
	default:
		return false
	}
}

type traceEntry struct {
	at   time.Time
	kind string
	text string
}

type snapshot struct {
	name string
	png  []byte
	html string
}

// Tracer records actions, console output and page snapshots for one attempt.
// It is safe for use from chromedp's event goroutine.
type Tracer struct {
	mu        sync.Mutex
	started   time.Time
	entries   []traceEntry
	snapshots []snapshot
}

func NewTracer() *Tracer {
	return &Tracer{started: time.Now()}
}

func (t *Tracer) add(kind, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, traceEntry{at: time.Now(), kind: kind, text: text})
}

// Action records a page action
func (t *Tracer) Action(format string, args ...any) {
	t.add("action", fmt.Sprintf(format, args...))
}

// Note records free text, typically a step boundary
func (t *Tracer) Note(format string, args ...any) {
	t.add("note", fmt.Sprintf(format, args...))
}

// Attach subscribes to console and exception events of the tab behind ctx
func (t *Tracer) Attach(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventExceptionThrown:
			if e.ExceptionDetails == nil {
				return
			}
			msg := e.ExceptionDetails.Text
			if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
				msg = e.ExceptionDetails.Exception.Description
			}
			t.add("exception", msg)
		case *runtime.EventConsoleAPICalled:
			var parts []string
			for _, arg := range e.Args {
				if arg.Value != nil {
					parts = append(parts, string(arg.Value))
				} else if arg.Description != "" {
					parts = append(parts, arg.Description)
				}
			}
			t.add("console."+string(e.Type), strings.Join(parts, " "))
		}
	})
}

// Snapshot captures a screenshot and the document HTML. Capture failures are
// recorded in the trace rather than returned; a broken page is often the
// reason for the snapshot.
func (t *Tracer) Snapshot(p Page, name string) {
	png, err := p.Screenshot()
	if err != nil {
		t.add("snapshot", fmt.Sprintf("%s: screenshot failed: %v", name, err))
	}
	html, err := p.OuterHTML("html")
	if err != nil {
		t.add("snapshot", fmt.Sprintf("%s: html failed: %v", name, err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshots = append(t.snapshots, snapshot{name: name, png: png, html: html})
}

// Entries returns the recorded log lines, mainly for tests
func (t *Tracer) Entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		lines = append(lines, fmt.Sprintf("[%s] %s", e.kind, e.text))
	}
	return lines
}

// Flush writes trace.log and the snapshots into dir
func (t *Tracer) Flush(dir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}

	var b strings.Builder
	for _, e := range t.entries {
		fmt.Fprintf(&b, "+%8.3fs [%s] %s\n", e.at.Sub(t.started).Seconds(), e.kind, e.text)
	}
	if err := os.WriteFile(filepath.Join(dir, "trace.log"), []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write trace log: %w", err)
	}

	for i, s := range t.snapshots {
		base := fmt.Sprintf("%02d_%s", i+1, SanitizeFileName(s.name))
		if len(s.png) > 0 {
			if err := os.WriteFile(filepath.Join(dir, base+".png"), s.png, 0644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
		}
		if s.html != "" {
			if err := os.WriteFile(filepath.Join(dir, base+".html"), []byte(s.html), 0644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
		}
	}
	return nil
}

// SanitizeFileName converts a name to a safe filename format
func SanitizeFileName(name string) string {
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
		"&", "and",
		"%", "pct",
	)
	return strings.ToLower(replacer.Replace(name))
}
