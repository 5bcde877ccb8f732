// -----------------------------------------------------------------------
// Crash Protection - panic capture and crash file generation
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// CrashLogDir is where RecoverWithCrashFile writes. The runner points it at
// the results directory of the run.
var CrashLogDir = "./logs"

// InstallCrashHandler sets CrashLogDir and makes sure it exists
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}

	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to create log directory: %v\n", err)
	}
}

// CrashReport formats a recovered panic with its stack and runtime details
func CrashReport(panicVal interface{}, stackTrace string) []byte {
	var report bytes.Buffer

	report.WriteString("=== CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n\n", GetFullVersion())

	report.WriteString("=== PANIC VALUE ===\n")
	fmt.Fprintf(&report, "%v\n\n", panicVal)

	report.WriteString("=== STACK TRACE ===\n")
	report.WriteString(stackTrace)
	report.WriteString("\n")

	report.WriteString("=== SYSTEM INFO ===\n")
	fmt.Fprintf(&report, "NumGoroutine: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&report, "GOOS: %s\n", runtime.GOOS)
	fmt.Fprintf(&report, "GOARCH: %s\n", runtime.GOARCH)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	fmt.Fprintf(&report, "Alloc: %d MB\n", memStats.Alloc/1024/1024)
	fmt.Fprintf(&report, "Sys: %d MB\n", memStats.Sys/1024/1024)

	report.WriteString("=== END CRASH REPORT ===\n")
	return report.Bytes()
}

// WriteCrashFile writes the crash report for panicVal into dir and returns
// the file path
func WriteCrashFile(dir string, panicVal interface{}, stackTrace string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create crash directory: %w", err)
	}

	crashPath := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))
	if err := os.WriteFile(crashPath, CrashReport(panicVal, stackTrace), 0644); err != nil {
		return "", fmt.Errorf("failed to write crash file: %w", err)
	}
	return crashPath, nil
}

// RecoverWithCrashFile is deferred at the top of main. It writes the crash
// report into CrashLogDir and exits.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		buf := make([]byte, 8192)
		stackTrace := string(buf[:runtime.Stack(buf, false)])

		path, err := WriteCrashFile(CrashLogDir, r, stackTrace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "CRASH: %v\n%s", err, CrashReport(r, stackTrace))
		} else {
			fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\n", path)
		}
		fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
		os.Exit(1)
	}
}
