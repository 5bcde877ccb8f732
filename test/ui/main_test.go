// -----------------------------------------------------------------------
// Last Modified: Friday, 16th October 2026 3:24:10 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package ui

import (
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/ternarybob/ingestion-e2e/test/common"
)

// TestMain runs before all tests in the ui package
// It verifies the application is reachable; suites skip when it is not
func TestMain(m *testing.M) {
	// Capture TestMain output for inclusion in test logs
	mw := io.MultiWriter(&common.TestMainOutput, os.Stderr)

	serviceErr = verifyServiceConnectivity()
	if serviceErr != nil {
		fmt.Fprintf(mw, "\n⚠ Application not reachable, browser suites will be skipped\n")
		fmt.Fprintf(mw, "   Note: %v\n\n", serviceErr)
	} else {
		fmt.Fprintln(mw, "✓ Application connectivity verified - proceeding with UI tests")
	}

	var exitCode int
	func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(mw, "\n⚠ PANIC during test execution: %v\n", r)
				exitCode = 1
			}
		}()
		exitCode = m.Run()
	}()

	os.Exit(exitCode)
}

// verifyServiceConnectivity checks the configured base URL answers
func verifyServiceConnectivity() error {
	config, err := common.LoadTestConfig()
	if err != nil {
		return err
	}
	if err := common.CheckConnectivity(config.BaseURL(), 5*time.Second); err != nil {
		return err
	}
	fmt.Printf("   Application URL: %s\n", config.BaseURL())
	return nil
}
