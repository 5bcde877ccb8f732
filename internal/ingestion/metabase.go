package ingestion

import (
	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

type Metabase struct {
	serviceBase
}

func NewMetabase(env Env) *Metabase {
	m := &Metabase{}
	m.serviceBase = newServiceBase(env, "Metabase", settings.Dashboards, []string{
		"METABASE_USERNAME",
		"METABASE_PASSWORD",
		"METABASE_HOST_PORT",
	}, m)
	return m
}

func (m *Metabase) fillConnectionDetails(page browser.Page) error {
	return fillFields(page,
		field{"connection/username", m.cred("METABASE_USERNAME")},
		field{"connection/password", m.cred("METABASE_PASSWORD")},
		field{"connection/hostPort", m.cred("METABASE_HOST_PORT")},
	)
}

func (m *Metabase) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "dashboardFilterPattern", "jaffle_shop_dashboard")
}

func (m *Metabase) validateIngestionDetails(page browser.Page) error {
	return m.expectChildAsset(page, "dashboards", "jaffle_shop_dashboard")
}
