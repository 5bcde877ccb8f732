// -----------------------------------------------------------------------
// Shared test environment for the browser suites
// Last Modified: Friday, 16th October 2026 3:10:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	appcommon "github.com/ternarybob/ingestion-e2e/internal/common"
	"github.com/ternarybob/ingestion-e2e/internal/ingestion"
	"github.com/ternarybob/ingestion-e2e/internal/suite"
)

// TestMainOutput captures the TestMain output for later inclusion in test logs
var TestMainOutput bytes.Buffer

// suiteDirectories tracks parent directories for test suites
// Maps suite name (e.g., "serviceingestion") to parent directory path
var suiteDirectories = make(map[string]string)
var suiteDirectoriesMutex sync.Mutex

// DefaultConfigFile is relative to the test/ui package directory
const DefaultConfigFile = "../config/setup.toml"

// TestEnvironment is the per-test browser, session and results directory
type TestEnvironment struct {
	Config     *appcommon.Config
	ResultsDir string
	TestLog    *os.File // Test execution log
	Logger     arbor.ILogger
	Browser    *browser.Browser
	State      *browser.StorageState
	Ingestion  ingestion.Env
}

// extractSuiteName derives the lowercase suite name from a test name
// Example: "TestServiceIngestion" -> "serviceingestion"
//
//	"TestServiceForm/name_validation" -> "serviceform"
func extractSuiteName(testName string) string {
	name := strings.TrimPrefix(testName, "Test")
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// getOrCreateSuiteDirectory gets or creates a parent directory for a test suite
// Returns the suite parent directory path
func getOrCreateSuiteDirectory(suiteName string, baseDir string) (string, error) {
	suiteDirectoriesMutex.Lock()
	defer suiteDirectoriesMutex.Unlock()

	if existingDir, ok := suiteDirectories[suiteName]; ok {
		return existingDir, nil
	}

	timestamp := time.Now().Format("20060102-150405")
	suiteDir := filepath.Join(baseDir, fmt.Sprintf("%s-%s", suiteName, timestamp))

	if err := os.MkdirAll(suiteDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create suite directory: %w", err)
	}

	suiteDirectories[suiteName] = suiteDir
	return suiteDir, nil
}

// LoadTestConfig loads test/config/setup.toml, or the file named by
// E2E_CONFIG, with E2E_* overrides applied
func LoadTestConfig() (*appcommon.Config, error) {
	path := os.Getenv("E2E_CONFIG")
	if path == "" {
		path = DefaultConfigFile
	}
	config, err := appcommon.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load test config %s: %w", path, err)
	}
	return config, nil
}

// SetupTestEnvironment prepares the results directory, logger, browser and
// saved session for testName
func SetupTestEnvironment(testName string) (*TestEnvironment, error) {
	config, err := LoadTestConfig()
	if err != nil {
		return nil, err
	}

	// Results layout: {results_dir}/ui/{suite-name}-{datetime}/{test}
	suiteDir, err := getOrCreateSuiteDirectory(extractSuiteName(testName), filepath.Join(config.Output.ResultsDir, "ui"))
	if err != nil {
		return nil, err
	}
	resultsDir := filepath.Join(suiteDir, browser.SanitizeFileName(testName))
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create test directory: %w", err)
	}

	testLogFile, err := os.Create(filepath.Join(resultsDir, "test.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to create test log file: %w", err)
	}

	if TestMainOutput.Len() > 0 {
		testLogFile.WriteString("=== TEST MAIN OUTPUT ===\n")
		testLogFile.Write(TestMainOutput.Bytes())
		testLogFile.WriteString("========================\n\n")
	}

	state, err := browser.LoadStorageState(config.Session.StorageState)
	if err != nil {
		testLogFile.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	logger := appcommon.InitLogger(config)

	b := browser.NewBrowser(browser.Options{
		Headless:      config.Browser.Headless,
		WindowWidth:   config.Browser.WindowWidth,
		WindowHeight:  config.Browser.WindowHeight,
		ExecPath:      config.Browser.ExecPath,
		ActionTimeout: config.Browser.ActionTimeoutDuration(),
		PollInterval:  config.Browser.PollIntervalDuration(),
	}, logger)

	env := &TestEnvironment{
		Config:     config,
		ResultsDir: resultsDir,
		TestLog:    testLogFile,
		Logger:     logger,
		Browser:    b,
		State:      state,
		Ingestion:  ingestion.NewEnv(config, logger),
	}

	fmt.Fprintf(testLogFile, "Base URL:      %s\n", config.BaseURL())
	fmt.Fprintf(testLogFile, "OSS build:     %t\n", config.Run.IsOSS)
	fmt.Fprintf(testLogFile, "Trace mode:    %s\n", config.Run.Trace)
	fmt.Fprintf(testLogFile, "Retries:       %d\n", config.Run.Retries)
	fmt.Fprintf(testLogFile, "Session state: %s\n\n", config.Session.StorageState)

	for _, name := range config.UnresolvedCredentials {
		logger.Warn().Str("credential", name).Msg("Unresolved credential reference")
	}

	return env, nil
}

// NewPage opens a tab with the saved session applied. It matches
// suite.PageFactory.
func (env *TestEnvironment) NewPage(ctx context.Context, tracer *browser.Tracer) (browser.Page, func(), error) {
	page, cancel, err := env.Browser.NewPage(ctx, browser.PageOptions{State: env.State, Tracer: tracer})
	if err != nil {
		return nil, nil, err
	}
	return page, cancel, nil
}

// SuiteOptions returns the retry, trace and filter settings for suite.Run
func (env *TestEnvironment) SuiteOptions() (suite.Options, error) {
	mode, err := browser.ParseTraceMode(env.Config.Run.Trace)
	if err != nil {
		return suite.Options{}, err
	}
	filter, err := suite.NewFilter(env.Config.Run.Tags, env.Config.Run.SkipTags)
	if err != nil {
		return suite.Options{}, err
	}
	return suite.Options{
		Retries:    env.Config.Run.Retries,
		Trace:      mode,
		ResultsDir: filepath.Join(env.ResultsDir, "traces"),
		Filter:     filter,
		Logger:     env.Logger,
	}, nil
}

// ServiceGroupConfig returns the navigation settings for suite.ServiceGroup
func (env *TestEnvironment) ServiceGroupConfig() suite.ServiceGroupConfig {
	return suite.ServiceGroupConfig{
		BaseURL:  env.Config.BaseURL(),
		HomePath: env.Config.App.HomePath,
		Timeout:  env.Config.Run.StepTimeoutDuration(),
	}
}

// Cleanup closes the browser and the test log
func (env *TestEnvironment) Cleanup() {
	if env.TestLog != nil {
		fmt.Fprintf(env.TestLog, "\n=== TEST COMPLETED ===\n")
	}
	if env.Browser != nil {
		env.Browser.Close()
	}
	if env.TestLog != nil {
		env.TestLog.Close()
	}
}

// LogTest writes a message to both the test log file and the test output (via t.Log)
func (env *TestEnvironment) LogTest(t *testing.T, format string, args ...interface{}) {
	t.Helper()
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("15:04:05")

	if env.TestLog != nil {
		env.TestLog.WriteString(fmt.Sprintf("[%s] %s\n", timestamp, msg))
	}
	t.Log(msg)
}

// CheckConnectivity reports whether baseURL answers over HTTP
func CheckConnectivity(baseURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL)
	if err != nil {
		return fmt.Errorf("application not accessible at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("application returned status %d", resp.StatusCode)
	}
	return nil
}
