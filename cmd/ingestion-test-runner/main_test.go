package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `=== RUN   TestServiceIngestion
=== RUN   TestServiceIngestion/S3
=== RUN   TestServiceIngestion/S3/Create_&_Ingest_S3_service
--- FAIL: TestServiceIngestion (95.20s)
    --- FAIL: TestServiceIngestion/S3 (95.10s)
        --- PASS: TestServiceIngestion/S3/Create_&_Ingest_S3_service (80.00s)
        --- FAIL: TestServiceIngestion/S3/Update_schedule_options_and_verify (15.10s)
        --- SKIP: TestServiceIngestion/S3/Delete_S3_service (0.00s)
    --- SKIP: TestServiceIngestion/Snowflake (0.00s)
--- PASS: TestServiceFormNameValidation (4.5s)
FAIL
`

func TestParseTestOutput(t *testing.T) {
	results := parseTestOutput(sampleOutput)
	require.Len(t, results, 7)

	assert.Equal(t, "TestServiceIngestion", results[0].Name)
	assert.Equal(t, "FAIL", results[0].Status)
	assert.Equal(t, 0, results[0].Depth())

	assert.Equal(t, "TestServiceIngestion/S3/Create_&_Ingest_S3_service", results[2].Name)
	assert.Equal(t, "PASS", results[2].Status)
	assert.Equal(t, 80*time.Second, results[2].Duration)
	assert.Equal(t, 2, results[2].Depth())

	assert.Equal(t, "SKIP", results[5].Status)
	assert.Equal(t, 4500*time.Millisecond, results[6].Duration)
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printSummary(&buf, parseTestOutput(sampleOutput), 100*time.Second)

	out := buf.String()
	assert.Contains(t, out, "    PASS Create & Ingest S3 service (80.00s)")
	assert.Contains(t, out, "Total: 2 passed, 3 failed, 2 skipped (100.00s)")
	assert.Contains(t, out, "SOME TESTS FAILED")
}

func TestGoTestArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"test", "-v", "-count=1", "-timeout", "2h0m0s", "./test/ui"},
		goTestArgs("./test/ui", 2*time.Hour, ""))
	assert.Equal(t,
		[]string{"test", "-v", "-count=1", "-timeout", "30m0s", "./test/ui", "-run", "TestServiceIngestion/Postgres"},
		goTestArgs("test/ui", 30*time.Minute, "TestServiceIngestion/Postgres"))
}

func TestSuiteEnv(t *testing.T) {
	env := suiteEnv(runOptions{retries: -1}, "/cfg/setup.toml", "/results")
	assert.Equal(t, []string{"E2E_CONFIG=/cfg/setup.toml", "E2E_RESULTS_DIR=/results"}, env)

	env = suiteEnv(runOptions{oss: true, trace: "on", retries: 0, tags: []string{"@ingestion", "Kafka"}}, "c", "r")
	assert.Contains(t, env, "E2E_IS_OSS=true")
	assert.Contains(t, env, "E2E_TRACE=on")
	assert.Contains(t, env, "E2E_RETRIES=0")
	assert.Contains(t, env, "E2E_TAGS=@ingestion\nKafka")
}

func TestSuiteEnvKeepsCommasInTags(t *testing.T) {
	env := suiteEnv(runOptions{retries: -1, tags: []string{"Postgres|Redshift", `pw-s3-\w{1,2}`}}, "c", "r")
	assert.Contains(t, env, "E2E_TAGS=Postgres|Redshift\npw-s3-\\w{1,2}")
}

func TestTagsFlagDoesNotSplitOnComma(t *testing.T) {
	t.Cleanup(func() { opts.tags = nil })

	require.NoError(t, rootCmd.ParseFlags([]string{"--tags", "a{1,2}", "--tags", "@ingestion"}))
	assert.Equal(t, []string{"a{1,2}", "@ingestion"}, opts.tags)
}

func TestCommandBuilderQuotes(t *testing.T) {
	var b commandBuilder
	b.add("go", "test", "-run", "TestServiceIngestion/Create & Ingest")
	assert.Equal(t, `go test -run 'TestServiceIngestion/Create & Ingest'`, b.String())
}

func TestLoadRunnerConfig(t *testing.T) {
	config, err := loadRunnerConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "./test/ui", config.TestRunner.TestsDir)
	assert.Equal(t, "120m", config.TestRunner.Timeout)

	path := filepath.Join(t.TempDir(), "runner.toml")
	require.NoError(t, os.WriteFile(path, []byte("[test_runner]\noutput_dir = \"/tmp/out\"\ntimeout = \"45m\"\n"), 0644))
	config, err = loadRunnerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", config.TestRunner.OutputDir)
	assert.Equal(t, "45m", config.TestRunner.Timeout)
	assert.Equal(t, "./test/config/setup.toml", config.TestRunner.SuiteConfig)

	require.NoError(t, os.WriteFile(path, []byte("[test_runner]\ntimeout = \"soon\"\n"), 0644))
	_, err = loadRunnerConfig(path)
	assert.ErrorContains(t, err, "invalid timeout")
}

func TestRunnerConfigTimeout(t *testing.T) {
	config := &RunnerConfig{}
	config.TestRunner.Timeout = "45m"

	d, err := config.timeout(0)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, d)

	d, err = config.timeout(10 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, d)

	config.TestRunner.Timeout = "soon"
	_, err = config.timeout(0)
	assert.ErrorContains(t, err, `invalid timeout "soon"`)
}
