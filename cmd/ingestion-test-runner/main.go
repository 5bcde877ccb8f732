// -----------------------------------------------------------------------
// Last Modified: Friday, 16th October 2026 4:02:37 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/ingestion-e2e/internal/common"
)

var logger arbor.ILogger

var rootCmd = &cobra.Command{
	Use:   "ingestion-test-runner",
	Short: "Run the ingestion service browser suites",
	Long: `Runs the service ingestion browser suites with go test against a running
application, saves the output into the results directory and prints a
PASS/FAIL summary per test.`,
	SilenceUsage: true,
	RunE:         runTests,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "ingestion-test-runner.toml", "Runner configuration file")
	flags.StringVar(&opts.suiteConfig, "suite-config", "", "Suite configuration file (overrides the runner config)")
	flags.BoolVar(&opts.oss, "oss", false, "Run against the open source build (adds Airflow, disables tracing)")
	flags.StringVar(&opts.trace, "trace", "", "Trace mode: off, on, on-first-retry, retain-on-failure")
	flags.IntVar(&opts.retries, "retries", -1, "Group retries (default from suite config)")
	flags.StringArrayVar(&opts.tags, "tags", nil, "Regex a step must match, e.g. @ingestion or Postgres (repeatable)")
	flags.StringVar(&opts.run, "run", "", "go test -run expression")
	flags.DurationVar(&opts.timeout, "timeout", 0, "go test timeout (default from runner config)")
	flags.BoolVar(&opts.skipCheck, "skip-check", false, "Do not check the application answers before running")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	defer common.RecoverWithCrashFile()

	logger = common.GetLogger()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
