package ingestion

import (
	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

// RedshiftWithDBT ingests the dbt_jaffle schema and then layers dbt models
// read from an S3 bucket on top of it.
type RedshiftWithDBT struct {
	serviceBase
}

var _ AdditionalTester = (*RedshiftWithDBT)(nil)

func NewRedshiftWithDBT(env Env) *RedshiftWithDBT {
	r := &RedshiftWithDBT{}
	r.serviceBase = newServiceBase(env, "Redshift", settings.Databases, []string{
		"REDSHIFT_USERNAME",
		"REDSHIFT_PASSWORD",
		"REDSHIFT_HOST_PORT",
		"REDSHIFT_DATABASE",
		"DBT_S3_ACCESS_KEY_ID",
		"DBT_S3_SECRET_ACCESS_KEY",
		"DBT_S3_REGION",
		"DBT_S3_BUCKET",
		"DBT_S3_PREFIX",
	}, r)
	return r
}

func (r *RedshiftWithDBT) fillConnectionDetails(page browser.Page) error {
	return fillFields(page,
		field{"connection/username", r.cred("REDSHIFT_USERNAME")},
		field{"connection/password", r.cred("REDSHIFT_PASSWORD")},
		field{"connection/hostPort", r.cred("REDSHIFT_HOST_PORT")},
		field{"connection/database", r.cred("REDSHIFT_DATABASE")},
	)
}

func (r *RedshiftWithDBT) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "schemaFilterPattern", "dbt_jaffle")
}

func (r *RedshiftWithDBT) RunAdditionalTests(page browser.Page, step StepFunc) error {
	return step("Add DBT ingestion", func() error {
		_, err := r.addAgent(page, PipelineDBT, r.fillDBTSource)
		return err
	})
}

func (r *RedshiftWithDBT) fillDBTSource(page browser.Page) error {
	if err := selectOption(page, browser.TestID("dbt-source"), "S3 Config Source"); err != nil {
		return err
	}
	return fillFields(page,
		field{"dbtConfigSource/dbtSecurityConfig/awsAccessKeyId", r.cred("DBT_S3_ACCESS_KEY_ID")},
		field{"dbtConfigSource/dbtSecurityConfig/awsSecretAccessKey", r.cred("DBT_S3_SECRET_ACCESS_KEY")},
		field{"dbtConfigSource/dbtSecurityConfig/awsRegion", r.cred("DBT_S3_REGION")},
		field{"dbtConfigSource/dbtPrefixConfig/dbtBucketName", r.cred("DBT_S3_BUCKET")},
		field{"dbtConfigSource/dbtPrefixConfig/dbtObjectPrefix", r.cred("DBT_S3_PREFIX")},
	)
}
