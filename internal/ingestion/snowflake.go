package ingestion

import (
	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

type Snowflake struct {
	serviceBase
}

func NewSnowflake(env Env) *Snowflake {
	s := &Snowflake{}
	s.serviceBase = newServiceBase(env, "Snowflake", settings.Databases, []string{
		"SNOWFLAKE_USERNAME",
		"SNOWFLAKE_PASSWORD",
		"SNOWFLAKE_ACCOUNT",
		"SNOWFLAKE_DATABASE",
		"SNOWFLAKE_WAREHOUSE",
	}, s)
	return s
}

func (s *Snowflake) fillConnectionDetails(page browser.Page) error {
	return fillFields(page,
		field{"connection/username", s.cred("SNOWFLAKE_USERNAME")},
		field{"connection/password", s.cred("SNOWFLAKE_PASSWORD")},
		field{"connection/account", s.cred("SNOWFLAKE_ACCOUNT")},
		field{"connection/database", s.cred("SNOWFLAKE_DATABASE")},
		field{"connection/warehouse", s.cred("SNOWFLAKE_WAREHOUSE")},
	)
}

func (s *Snowflake) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "schemaFilterPattern", "TEST_SCHEMA")
}
