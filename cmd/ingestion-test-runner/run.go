package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alessio/shellescape"
	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"

	"github.com/ternarybob/ingestion-e2e/internal/common"
)

type runOptions struct {
	configPath  string
	suiteConfig string
	oss         bool
	trace       string
	retries     int
	tags        []string
	run         string
	timeout     time.Duration
	skipCheck   bool
}

var opts = runOptions{retries: -1}

// commandBuilder renders a command line with every argument shell quoted
type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// goTestArgs builds the go test invocation for the suites in testsDir
func goTestArgs(testsDir string, timeout time.Duration, run string) []string {
	pkg := testsDir
	if !strings.HasPrefix(pkg, ".") && !filepath.IsAbs(pkg) {
		pkg = "./" + pkg
	}
	args := []string{"test", "-v", "-count=1", "-timeout", timeout.String(), pkg}
	if run != "" {
		args = append(args, "-run", run)
	}
	return args
}

// suiteEnv returns the E2E_* variables passed to the suites. Only flags the
// user set are exported so the suite config stays authoritative otherwise.
// Tags are regexes and may contain commas, so they go one per line.
func suiteEnv(o runOptions, suiteConfig, resultsDir string) []string {
	env := []string{
		"E2E_CONFIG=" + suiteConfig,
		"E2E_RESULTS_DIR=" + resultsDir,
	}
	if o.oss {
		env = append(env, "E2E_IS_OSS=true")
	}
	if o.trace != "" {
		env = append(env, "E2E_TRACE="+o.trace)
	}
	if o.retries >= 0 {
		env = append(env, "E2E_RETRIES="+strconv.Itoa(o.retries))
	}
	if len(o.tags) > 0 {
		env = append(env, "E2E_TAGS="+strings.Join(o.tags, "\n"))
	}
	return env
}

// waitForApplication polls baseURL until it answers below 500
func waitForApplication(ctx context.Context, baseURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 5 * time.Second}
	_, err := backoff.Retry(ctx, func() (int, error) {
		resp, err := client.Get(baseURL)
		if err != nil {
			return 0, err
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(2*time.Second)),
		backoff.WithMaxElapsedTime(timeout),
	)
	if err != nil {
		return fmt.Errorf("application at %s did not answer within %v: %w", baseURL, timeout, err)
	}
	return nil
}

func runTests(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runnerConfig, err := loadRunnerConfig(opts.configPath)
	if err != nil {
		return err
	}

	suitePath := runnerConfig.TestRunner.SuiteConfig
	if opts.suiteConfig != "" {
		suitePath = opts.suiteConfig
	}
	suitePath, err = filepath.Abs(suitePath)
	if err != nil {
		return fmt.Errorf("failed to resolve suite config: %w", err)
	}

	suiteConfig, err := common.LoadConfig(suitePath)
	if err != nil {
		return err
	}

	timeout, err := runnerConfig.timeout(opts.timeout)
	if err != nil {
		return err
	}

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("base_url", suiteConfig.BaseURL()).
		Str("suite_config", suitePath).
		Str("tests_dir", runnerConfig.TestRunner.TestsDir).
		Bool("oss", opts.oss || suiteConfig.Run.IsOSS).
		Dur("timeout", timeout).
		Msg("Starting ingestion browser suites")

	if !opts.skipCheck {
		if err := waitForApplication(ctx, suiteConfig.BaseURL(), 30*time.Second); err != nil {
			return err
		}
		logger.Info().Str("url", suiteConfig.BaseURL()).Msg("Application is reachable")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsDir, err := filepath.Abs(filepath.Join(runnerConfig.TestRunner.OutputDir, "run-"+timestamp))
	if err != nil {
		return fmt.Errorf("failed to resolve results directory: %w", err)
	}
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	common.InstallCrashHandler(resultsDir)

	goArgs := goTestArgs(runnerConfig.TestRunner.TestsDir, timeout, opts.run)
	env := suiteEnv(opts, suitePath, resultsDir)

	var printable commandBuilder
	printable.add(env...)
	printable.add("go")
	printable.add(goArgs...)
	fmt.Printf("\nRunning: %s\n\n", printable)

	logFile, err := os.Create(filepath.Join(resultsDir, "test.log"))
	if err != nil {
		return fmt.Errorf("failed to create test log: %w", err)
	}
	defer logFile.Close()

	var captured bytes.Buffer
	out := io.MultiWriter(os.Stdout, logFile, &captured)

	start := time.Now()
	goTest := exec.CommandContext(ctx, "go", goArgs...)
	goTest.Env = append(os.Environ(), env...)
	goTest.Stdout = out
	goTest.Stderr = out
	runErr := goTest.Run()
	duration := time.Since(start)

	results := parseTestOutput(captured.String())
	printSummary(os.Stdout, results, duration)
	fmt.Printf("Results: %s\n", resultsDir)

	if runErr != nil {
		return fmt.Errorf("go test failed: %w", runErr)
	}
	return nil
}
