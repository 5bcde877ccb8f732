package main

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/pelletier/go-toml/v2"
)

// RunnerConfig is read from ingestion-test-runner.toml
type RunnerConfig struct {
	TestRunner struct {
		TestsDir    string `toml:"tests_dir" default:"./test/ui"`
		OutputDir   string `toml:"output_dir" default:"./test/results"`
		SuiteConfig string `toml:"suite_config" default:"./test/config/setup.toml"`
		Timeout     string `toml:"timeout" default:"120m"`
	} `toml:"test_runner"`
}

// loadRunnerConfig reads path. A missing file yields the defaults.
func loadRunnerConfig(path string) (*RunnerConfig, error) {
	config := &RunnerConfig{}
	if err := defaults.Set(config); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if _, err := config.timeout(0); err != nil {
		return nil, err
	}
	return config, nil
}

// timeout returns override when set, otherwise the configured go test timeout
func (c *RunnerConfig) timeout(override time.Duration) (time.Duration, error) {
	if override > 0 {
		return override, nil
	}
	d, err := time.ParseDuration(c.TestRunner.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.TestRunner.Timeout, err)
	}
	return d, nil
}
