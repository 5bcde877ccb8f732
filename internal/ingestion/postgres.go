package ingestion

import (
	"fmt"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

// Postgres additionally runs the usage and lineage agents, which read the
// query log of the same database.
type Postgres struct {
	serviceBase
}

var _ AdditionalTester = (*Postgres)(nil)

func NewPostgres(env Env) *Postgres {
	p := &Postgres{}
	p.serviceBase = newServiceBase(env, "Postgres", settings.Databases, []string{
		"POSTGRES_USERNAME",
		"POSTGRES_PASSWORD",
		"POSTGRES_HOST_PORT",
		"POSTGRES_DATABASE",
	}, p)
	return p
}

func (p *Postgres) fillConnectionDetails(page browser.Page) error {
	return fillFields(page,
		field{"connection/username", p.cred("POSTGRES_USERNAME")},
		field{"connection/authType/password", p.cred("POSTGRES_PASSWORD")},
		field{"connection/hostPort", p.cred("POSTGRES_HOST_PORT")},
		field{"connection/database", p.cred("POSTGRES_DATABASE")},
	)
}

func (p *Postgres) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "schemaFilterPattern", "public")
}

func (p *Postgres) RunAdditionalTests(page browser.Page, step StepFunc) error {
	for _, agent := range []struct {
		name         string
		pipelineType string
		fill         func(browser.Page) error
	}{
		{"Add Usage ingestion", PipelineUsage, fillQueryLogDuration},
		{"Add Lineage ingestion", PipelineLineage, fillQueryLogDuration},
	} {
		err := step(agent.name, func() error {
			row, err := p.addAgent(page, agent.pipelineType, agent.fill)
			if err != nil {
				return err
			}
			if err := ValidSchedule(row); err != nil {
				return fmt.Errorf("%s agent: %w", agent.pipelineType, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Back to the service list for the next agent
		if err := settings.SettingClick(page, p.category); err != nil {
			return err
		}
	}
	return nil
}

// fillQueryLogDuration limits usage and lineage to the last day of queries
func fillQueryLogDuration(page browser.Page) error {
	return fillFields(page, field{"queryLogDuration", "1"})
}
