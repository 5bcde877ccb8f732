package ingestion

import (
	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

// BigQuery authenticates with service account values rather than a key file
type BigQuery struct {
	serviceBase
}

var bigQueryCredentials = []string{
	"PLAYWRIGHT_BQ_PRIVATE_KEY",
	"PLAYWRIGHT_BQ_PROJECT_ID",
	"PLAYWRIGHT_BQ_PRIVATE_KEY_ID",
	"PLAYWRIGHT_BQ_PROJECT_ID_TAXONOMY",
	"PLAYWRIGHT_BQ_CLIENT_EMAIL",
	"PLAYWRIGHT_BQ_CLIENT_ID",
}

func NewBigQuery(env Env) *BigQuery {
	b := &BigQuery{}
	b.serviceBase = newServiceBase(env, "BigQuery", settings.Databases, bigQueryCredentials, b)
	return b
}

func (b *BigQuery) fillConnectionDetails(page browser.Page) error {
	if err := selectOption(page, fieldSelector("connection/credentials/gcpConfig__oneof_select"), "GCP Credentials Values"); err != nil {
		return err
	}

	const gcp = "connection/credentials/gcpConfig/"
	return fillFields(page,
		field{gcp + "type", "service_account"},
		field{gcp + "projectId", b.cred("PLAYWRIGHT_BQ_PROJECT_ID")},
		field{gcp + "privateKeyId", b.cred("PLAYWRIGHT_BQ_PRIVATE_KEY_ID")},
		field{gcp + "privateKey", b.cred("PLAYWRIGHT_BQ_PRIVATE_KEY")},
		field{gcp + "clientEmail", b.cred("PLAYWRIGHT_BQ_CLIENT_EMAIL")},
		field{gcp + "clientId", b.cred("PLAYWRIGHT_BQ_CLIENT_ID")},
		field{gcp + "authUri", "https://accounts.google.com/o/oauth2/auth"},
		field{gcp + "tokenUri", "https://oauth2.googleapis.com/token"},
		field{gcp + "authProviderX509CertUrl", "https://www.googleapis.com/oauth2/v1/certs"},
		field{gcp + "clientX509CertUrl", "https://www.googleapis.com/oauth2/v1/certs"},
		field{"connection/taxonomyProjectID", b.cred("PLAYWRIGHT_BQ_PROJECT_ID_TAXONOMY")},
	)
}

func (b *BigQuery) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "schemaFilterPattern", "testdataset")
}
