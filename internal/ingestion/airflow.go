package ingestion

import (
	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

// Airflow is only registered for the open source build, where the bundled
// Airflow instance is reachable from the server.
type Airflow struct {
	serviceBase
}

func NewAirflow(env Env) *Airflow {
	a := &Airflow{}
	a.serviceBase = newServiceBase(env, "Airflow", settings.Pipelines, []string{
		"AIRFLOW_HOST_PORT",
	}, a)
	return a
}

func (a *Airflow) fillConnectionDetails(page browser.Page) error {
	if err := fillFields(page, field{"connection/hostPort", a.cred("AIRFLOW_HOST_PORT")}); err != nil {
		return err
	}
	// Metadata database connection of the bundled instance
	return selectOption(page, fieldSelector("connection/connection__oneof_select"), "BackendConnection")
}

func (a *Airflow) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "pipelineFilterPattern", "sample_etl")
}
