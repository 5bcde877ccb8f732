package suite

import (
	"fmt"
	"time"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/ingestion"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

// IngestionTag marks every service lifecycle group
const IngestionTag = "@ingestion"

// DefaultServiceTimeout bounds each step of a service lifecycle group
const DefaultServiceTimeout = 11 * time.Minute

// ServiceGroupConfig holds the navigation settings shared by every group
type ServiceGroupConfig struct {
	BaseURL  string
	HomePath string
	Timeout  time.Duration
}

// ServiceGroup builds the create, update, schedule, optional extra and
// delete steps for a fixture from newService. Each step starts from the
// service list of the service's settings category. A retry rebuilds the
// group around a new fixture, so the service is created under a new name.
func ServiceGroup(newService ingestion.Factory, cfg ServiceGroupConfig) Group {
	svc := newService()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultServiceTimeout
	}

	steps := []Step{
		{
			Name: fmt.Sprintf("Create & Ingest %s service", svc.ServiceType()),
			Run: func(page browser.Page, _ ingestion.StepFunc) error {
				return svc.CreateService(page)
			},
		},
		{
			Name: "Update description and verify description after re-run",
			Run: func(page browser.Page, _ ingestion.StepFunc) error {
				return svc.UpdateService(page)
			},
		},
		{
			Name: "Update schedule options and verify",
			Run: func(page browser.Page, _ ingestion.StepFunc) error {
				return svc.UpdateScheduleOptions(page)
			},
		},
	}

	if extra, ok := svc.(ingestion.AdditionalTester); ok {
		steps = append(steps, Step{
			Name: "Service specific tests",
			Run:  extra.RunAdditionalTests,
		})
	}

	steps = append(steps, Step{
		Name: fmt.Sprintf("Delete %s service", svc.ServiceType()),
		Run: func(page browser.Page, _ ingestion.StepFunc) error {
			return svc.DeleteService(page)
		},
	})

	group := Group{
		Name:    svc.ServiceType(),
		Tags:    []string{IngestionTag},
		Timeout: timeout,
		BeforeEach: func(page browser.Page) error {
			if err := settings.RedirectToHomePage(page, cfg.BaseURL, cfg.HomePath); err != nil {
				return err
			}
			return settings.SettingClick(page, svc.Category())
		},
		Steps: steps,
		Rebuild: func() Group {
			return ServiceGroup(newService, cfg)
		},
	}
	if p, ok := svc.(ingestion.Preparer); ok {
		group.Prepare = p.Prepare
	}
	return group
}
