// Package ingestion holds the service fixtures exercised by the ingestion
// suite. Every fixture drives the same add-service wizard and lifecycle; the
// connectors differ only in the connection form, the ingestion filters and a
// few service-specific checks.
package ingestion

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/common"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

// Service is the lifecycle contract run for every connector type
type Service interface {
	ServiceType() string
	Category() settings.Option
	Name() string
	RequiredCredentials() []string

	CreateService(page browser.Page) error
	UpdateService(page browser.Page) error
	UpdateScheduleOptions(page browser.Page) error
	DeleteService(page browser.Page) error
}

// StepFunc runs fn as a named sub-step of the current test
type StepFunc func(name string, fn func() error) error

// AdditionalTester is implemented by services with extra checks beyond the
// shared lifecycle.
type AdditionalTester interface {
	RunAdditionalTests(page browser.Page, step StepFunc) error
}

// Preparer is implemented by services that seed their source system before
// the group runs.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Env is the run configuration the fixtures read
type Env struct {
	BaseURL       string
	ExpectTimeout time.Duration
	PollInterval  time.Duration
	StatusTimeout time.Duration
	StatusPoll    time.Duration
	Credential    func(key string) string
	KafkaBrokers  []string
	SeedKafka     bool
	Logger        arbor.ILogger
}

// NewEnv derives fixture settings from the suite config
func NewEnv(config *common.Config, logger arbor.ILogger) Env {
	return Env{
		BaseURL:       config.BaseURL(),
		ExpectTimeout: config.Browser.ExpectTimeoutDuration(),
		PollInterval:  config.Browser.PollIntervalDuration(),
		StatusTimeout: config.Ingestion.StatusTimeoutDuration(),
		StatusPoll:    config.Ingestion.StatusPollDuration(),
		Credential:    config.Credential,
		KafkaBrokers:  config.Kafka.Brokers,
		SeedKafka:     config.Kafka.SeedTopics,
		Logger:        logger,
	}
}

// MissingCredentials returns the keys of svc that env cannot resolve
func MissingCredentials(env Env, svc Service) []string {
	var missing []string
	for _, key := range svc.RequiredCredentials() {
		if env.Credential == nil || env.Credential(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
