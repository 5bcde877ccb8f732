package ingestion

import (
	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

// MlFlow ingests a single registered model from the tracking server
type MlFlow struct {
	serviceBase
}

func NewMlFlow(env Env) *MlFlow {
	m := &MlFlow{}
	m.serviceBase = newServiceBase(env, "Mlflow", settings.MLModels, []string{
		"MLFLOW_TRACKING_URI",
		"MLFLOW_REGISTRY_URI",
	}, m)
	return m
}

func (m *MlFlow) fillConnectionDetails(page browser.Page) error {
	return fillFields(page,
		field{"connection/trackingUri", m.cred("MLFLOW_TRACKING_URI")},
		field{"connection/registryUri", m.cred("MLFLOW_REGISTRY_URI")},
	)
}

func (m *MlFlow) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "mlModelFilterPattern", "ElasticnetWineModel")
}
