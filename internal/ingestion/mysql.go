package ingestion

import (
	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

type MySQL struct {
	serviceBase
}

func NewMySQL(env Env) *MySQL {
	m := &MySQL{}
	m.serviceBase = newServiceBase(env, "Mysql", settings.Databases, []string{
		"MYSQL_USERNAME",
		"MYSQL_PASSWORD",
		"MYSQL_HOST_PORT",
		"MYSQL_DATABASE_SCHEMA",
	}, m)
	return m
}

func (m *MySQL) fillConnectionDetails(page browser.Page) error {
	return fillFields(page,
		field{"connection/username", m.cred("MYSQL_USERNAME")},
		field{"connection/authType/password", m.cred("MYSQL_PASSWORD")},
		field{"connection/hostPort", m.cred("MYSQL_HOST_PORT")},
		field{"connection/databaseSchema", m.cred("MYSQL_DATABASE_SCHEMA")},
	)
}

func (m *MySQL) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "schemaFilterPattern", "openmetadata_db")
}
