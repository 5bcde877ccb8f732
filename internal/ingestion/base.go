package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

// connector is what a concrete service contributes to the shared wizard
type connector interface {
	fillConnectionDetails(page browser.Page) error
	fillIngestionDetails(page browser.Page) error
}

// ingestionValidator is implemented by connectors that check the ingested
// assets after the first metadata run.
type ingestionValidator interface {
	validateIngestionDetails(page browser.Page) error
}

const (
	connectionSuccessMessage = "Connection test was successful"
	serviceCreatedMessage    = "has been created successfully"
	pipelineDeployedMessage  = "has been created and deployed successfully"
	pipelineUpdatedMessage   = "has been updated and deployed successfully"
	pipelineTriggeredMessage = "triggered successfully"
	serviceDeletedMessage    = "deleted successfully"
	deleteConfirmation       = "DELETE"

	toastSelector = ".Toastify__toast-body"
)

// serviceBase runs the add-service wizard and lifecycle shared by every
// connector.
type serviceBase struct {
	env         Env
	logger      arbor.ILogger
	serviceType string
	category    settings.Option
	name        string
	credentials []string

	testConnection bool
	description    string
	schedule       ScheduleOption

	conn connector
}

func newServiceBase(env Env, serviceType string, category settings.Option, credentials []string, conn connector) serviceBase {
	logger := env.Logger
	if logger == nil {
		logger = arbor.NewLogger()
	}
	name := NewServiceName(serviceType)
	return serviceBase{
		env:            env,
		logger:         logger.WithCorrelationId(serviceType),
		serviceType:    serviceType,
		category:       category,
		name:           name,
		credentials:    credentials,
		testConnection: true,
		description:    fmt.Sprintf("Updated description for %s", name),
		schedule:       DailyMidnight,
		conn:           conn,
	}
}

func (b *serviceBase) ServiceType() string           { return b.serviceType }
func (b *serviceBase) Category() settings.Option     { return b.category }
func (b *serviceBase) Name() string                  { return b.name }
func (b *serviceBase) RequiredCredentials() []string { return b.credentials }

func (b *serviceBase) cred(key string) string {
	if b.env.Credential == nil {
		return ""
	}
	return b.env.Credential(key)
}

func (b *serviceBase) expect(page browser.Page) *browser.Expectation {
	return browser.Expect(page, b.env.ExpectTimeout, b.env.PollInterval)
}

// CreateService walks the add-service wizard, deploys the metadata agent and
// waits for its first run to succeed.
func (b *serviceBase) CreateService(page browser.Page) error {
	b.logger.Info().Str("service", b.name).Msg("Creating service")

	if err := page.Click(browser.TestID("add-service-button")); err != nil {
		return fmt.Errorf("failed to start add service wizard: %w", err)
	}
	if err := page.Fill(browser.TestID("searchbar"), b.serviceType); err != nil {
		return err
	}
	if err := clickAll(page, browser.TestID(b.serviceType), browser.TestID("next-button")); err != nil {
		return fmt.Errorf("failed to pick %s: %w", b.serviceType, err)
	}

	if err := page.Fill(browser.TestID("service-name"), b.name); err != nil {
		return err
	}
	if err := page.Click(browser.TestID("next-button")); err != nil {
		return err
	}

	if err := b.conn.fillConnectionDetails(page); err != nil {
		return fmt.Errorf("%s connection details: %w", b.serviceType, err)
	}
	if b.testConnection {
		if err := b.runConnectionTest(page); err != nil {
			return err
		}
	}

	if err := page.Click(browser.TestID("submit-btn")); err != nil {
		return err
	}
	if err := b.expect(page).ToContainText(browser.TestID("success-line"), serviceCreatedMessage); err != nil {
		return err
	}
	if err := page.Click(browser.TestID("add-ingestion-button")); err != nil {
		return fmt.Errorf("failed to add ingestion: %w", err)
	}

	if err := b.conn.fillIngestionDetails(page); err != nil {
		return fmt.Errorf("%s ingestion details: %w", b.serviceType, err)
	}
	if err := page.Click(browser.TestID("submit-btn")); err != nil {
		return err
	}
	if err := b.deploy(page, pipelineDeployedMessage); err != nil {
		return err
	}

	row, err := b.waitForSuccess(page, PipelineMetadata)
	if err != nil {
		return err
	}
	b.logger.Info().Str("pipeline", row.Name).Msg("Metadata ingestion succeeded")

	if v, ok := b.conn.(ingestionValidator); ok {
		if err := v.validateIngestionDetails(page); err != nil {
			return fmt.Errorf("%s ingestion validation: %w", b.serviceType, err)
		}
	}
	return nil
}

func (b *serviceBase) runConnectionTest(page browser.Page) error {
	if err := page.Click(browser.TestID("test-connection-btn")); err != nil {
		return err
	}
	e := b.expect(page).WithTimeout(b.env.StatusTimeout)
	if err := e.ToBeVisible(browser.TestID("test-connection-modal")); err != nil {
		return err
	}
	if err := e.ToContainText(browser.TestID("messag-text"), connectionSuccessMessage); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	if err := page.Click(`[data-testid="test-connection-modal"] button.ant-modal-close`); err != nil {
		return err
	}
	return b.expect(page).ToBeHidden(browser.TestID("test-connection-modal"))
}

// deploy confirms the schedule step and leaves the wizard on the service page
func (b *serviceBase) deploy(page browser.Page, message string) error {
	if err := page.Click(browser.TestID("deploy-button")); err != nil {
		return err
	}
	if err := b.expect(page).ToContainText(browser.TestID("success-line"), message); err != nil {
		return err
	}
	return page.Click(browser.TestID("view-service-button"))
}

func (b *serviceBase) waitForSuccess(page browser.Page, pipelineType string) (PipelineRow, error) {
	return WaitForPipelineSuccess(context.Background(), page, pipelineType, b.env.StatusPoll, b.env.StatusTimeout)
}

// visitService opens the service page from the settings service list
func (b *serviceBase) visitService(page browser.Page) error {
	if err := page.Fill(browser.TestID("searchbar"), b.name); err != nil {
		return err
	}
	if err := page.Click(browser.TestID("service-name-" + b.name)); err != nil {
		return fmt.Errorf("service %s not listed: %w", b.name, err)
	}
	route := b.category.ServicePath(b.name)
	if err := b.expect(page).ToHaveURL(route, func(url string) bool {
		return strings.Contains(url, route)
	}); err != nil {
		return fmt.Errorf("service page of %s did not open: %w", b.name, err)
	}
	return b.expect(page).ToContainText(browser.TestID("entity-header-name"), b.name)
}

// UpdateService edits the service description, re-runs the metadata agent
// and checks the description survives the run.
func (b *serviceBase) UpdateService(page browser.Page) error {
	if err := b.visitService(page); err != nil {
		return err
	}

	if err := page.Click(browser.TestID("edit-description")); err != nil {
		return err
	}
	if err := page.Fill(`.om-block-editor [contenteditable="true"]`, b.description); err != nil {
		return err
	}
	if err := page.Click(browser.TestID("save")); err != nil {
		return err
	}
	if err := b.expect(page).ToContainText(browser.TestID("asset-description-container"), b.description); err != nil {
		return err
	}

	if err := openIngestionsTab(page); err != nil {
		return err
	}
	rows, err := ReadPipelines(page)
	if err != nil {
		return err
	}
	before, ok := FindPipeline(rows, PipelineMetadata)
	if !ok {
		return fmt.Errorf("metadata pipeline not listed for %s", b.name)
	}
	if err := clickAll(page, browser.TestID("more-actions"), browser.TestID("run-button")); err != nil {
		return fmt.Errorf("failed to re-run metadata pipeline: %w", err)
	}
	if err := b.expect(page).ToContainText(toastSelector, pipelineTriggeredMessage); err != nil {
		return err
	}
	row, err := WaitForPipelineRerun(context.Background(), page, PipelineMetadata, before, b.env.StatusPoll, b.env.StatusTimeout)
	if err != nil {
		return err
	}
	b.logger.Info().Str("pipeline", row.Name).Int("runs", row.Runs).Msg("Metadata re-run succeeded")

	if err := page.Reload(); err != nil {
		return err
	}
	return b.expect(page).ToContainText(browser.TestID("asset-description-container"), b.description)
}

// UpdateScheduleOptions moves the metadata agent to the daily schedule and
// checks the cron the agents table reports.
func (b *serviceBase) UpdateScheduleOptions(page browser.Page) error {
	if err := b.visitService(page); err != nil {
		return err
	}
	if err := openIngestionsTab(page); err != nil {
		return err
	}
	if err := clickAll(page, browser.TestID("more-actions"), browser.TestID("edit-button")); err != nil {
		return fmt.Errorf("failed to edit metadata pipeline: %w", err)
	}
	if err := page.Click(browser.TestID("submit-btn")); err != nil {
		return err
	}
	if err := selectSchedule(page, b.schedule); err != nil {
		return err
	}
	if err := b.deploy(page, pipelineUpdatedMessage); err != nil {
		return err
	}

	if err := openIngestionsTab(page); err != nil {
		return err
	}
	rows, err := ReadPipelines(page)
	if err != nil {
		return err
	}
	row, ok := FindPipeline(rows, PipelineMetadata)
	if !ok {
		return fmt.Errorf("metadata pipeline not listed for %s", b.name)
	}
	return VerifySchedule(row, b.schedule)
}

// DeleteService hard deletes the service and checks it left the list
func (b *serviceBase) DeleteService(page browser.Page) error {
	if err := b.visitService(page); err != nil {
		return err
	}
	if err := clickAll(page, browser.TestID("manage-button"), browser.TestID("delete-button-title")); err != nil {
		return fmt.Errorf("failed to open delete modal: %w", err)
	}
	if err := page.Fill(browser.TestID("confirmation-text-input"), deleteConfirmation); err != nil {
		return err
	}
	if err := page.Click(browser.TestID("confirm-button")); err != nil {
		return err
	}
	if err := b.expect(page).ToContainText(toastSelector, serviceDeletedMessage); err != nil {
		return err
	}

	listPath := b.category.URLPath()
	if err := page.WaitForURL(func(url string) bool { return strings.Contains(url, listPath) }); err != nil {
		return fmt.Errorf("not returned to %s after delete: %w", listPath, err)
	}
	if err := page.Fill(browser.TestID("searchbar"), b.name); err != nil {
		return err
	}
	if err := b.expect(page).ToBeHidden(browser.TestID("service-name-" + b.name)); err != nil {
		return fmt.Errorf("service %s still listed: %w", b.name, err)
	}
	b.logger.Info().Str("service", b.name).Msg("Service deleted")
	return nil
}

// expectChildAsset checks that an ingested asset is listed under tab of the
// service page
func (b *serviceBase) expectChildAsset(page browser.Page, tab, name string) error {
	if err := page.Click(browser.TestID(tab)); err != nil {
		return fmt.Errorf("failed to open %s tab: %w", tab, err)
	}
	return b.expect(page).ToContainText(browser.TestID("service-children-table"), name)
}

// addAgent adds a non-metadata agent from the service's ingestions tab and
// waits for its first run.
func (b *serviceBase) addAgent(page browser.Page, pipelineType string, fill func(browser.Page) error) (PipelineRow, error) {
	if err := b.visitService(page); err != nil {
		return PipelineRow{}, err
	}
	if err := openIngestionsTab(page); err != nil {
		return PipelineRow{}, err
	}
	if err := clickAll(page,
		browser.TestID("add-new-ingestion-button"),
		fmt.Sprintf(`[data-menu-id*="%s"]`, pipelineType),
	); err != nil {
		return PipelineRow{}, fmt.Errorf("failed to add %s agent: %w", pipelineType, err)
	}
	if fill != nil {
		if err := fill(page); err != nil {
			return PipelineRow{}, fmt.Errorf("%s agent details: %w", pipelineType, err)
		}
	}
	if err := page.Click(browser.TestID("submit-btn")); err != nil {
		return PipelineRow{}, err
	}
	if err := b.deploy(page, pipelineDeployedMessage); err != nil {
		return PipelineRow{}, err
	}

	row, err := b.waitForSuccess(page, pipelineType)
	if err != nil {
		return row, err
	}
	b.logger.Info().Str("pipeline", row.Name).Str("type", pipelineType).Msg("Agent run succeeded")
	return row, nil
}
