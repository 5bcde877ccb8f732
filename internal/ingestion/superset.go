package ingestion

import (
	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

const supersetDashboard = "World Bank's Data"

type Superset struct {
	serviceBase
}

func NewSuperset(env Env) *Superset {
	s := &Superset{}
	s.serviceBase = newServiceBase(env, "Superset", settings.Dashboards, []string{
		"SUPERSET_HOST_PORT",
		"SUPERSET_USERNAME",
		"SUPERSET_PASSWORD",
	}, s)
	return s
}

func (s *Superset) fillConnectionDetails(page browser.Page) error {
	if err := fillFields(page, field{"connection/hostPort", s.cred("SUPERSET_HOST_PORT")}); err != nil {
		return err
	}
	if err := selectOption(page, fieldSelector("connection/connection__oneof_select"), "SupersetApiConnection"); err != nil {
		return err
	}
	return fillFields(page,
		field{"connection/connection/username", s.cred("SUPERSET_USERNAME")},
		field{"connection/connection/password", s.cred("SUPERSET_PASSWORD")},
	)
}

func (s *Superset) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "dashboardFilterPattern", supersetDashboard)
}

func (s *Superset) validateIngestionDetails(page browser.Page) error {
	return s.expectChildAsset(page, "dashboards", supersetDashboard)
}
