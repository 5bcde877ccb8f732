package main

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

// TestResult is one PASS/FAIL/SKIP line of go test -v output
type TestResult struct {
	Name     string
	Status   string
	Duration time.Duration
}

// Depth is the subtest nesting level, 0 for top level tests
func (r TestResult) Depth() int {
	return strings.Count(r.Name, "/")
}

var resultLine = regexp.MustCompile(`^\s*--- (PASS|FAIL|SKIP): (\S+) \((\d+(?:\.\d+)?)s\)`)

// parseTestOutput extracts the results in the order go test printed them
func parseTestOutput(output string) []TestResult {
	var results []TestResult
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := resultLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		secs, _ := strconv.ParseFloat(m[3], 64)
		results = append(results, TestResult{
			Name:     m[2],
			Status:   m[1],
			Duration: time.Duration(secs * float64(time.Second)),
		})
	}
	return results
}

func printSummary(w io.Writer, results []TestResult, total time.Duration) {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	skip := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "TEST SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 80))

	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++

		status := r.Status
		switch r.Status {
		case "PASS":
			status = pass(status)
		case "FAIL":
			status = fail(status)
		case "SKIP":
			status = skip(status)
		}

		name := r.Name
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		fmt.Fprintf(w, "%s%-4s %s (%.2fs)\n", strings.Repeat("  ", r.Depth()), status, strings.ReplaceAll(name, "_", " "), r.Duration.Seconds())
	}

	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "Total: %d passed, %d failed, %d skipped (%.2fs)\n",
		counts["PASS"], counts["FAIL"], counts["SKIP"], total.Seconds())

	if counts["FAIL"] == 0 {
		fmt.Fprintln(w, pass("\n✓ ALL TESTS PASSED"))
	} else {
		fmt.Fprintln(w, fail("\n✗ SOME TESTS FAILED"))
	}
}
