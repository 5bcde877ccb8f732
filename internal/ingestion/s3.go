package ingestion

import (
	"github.com/ternarybob/ingestion-e2e/internal/browser"
	"github.com/ternarybob/ingestion-e2e/internal/settings"
)

// S3 is an object storage service ingesting containers under the om- prefix
type S3 struct {
	serviceBase
	region string
}

func NewS3(env Env) *S3 {
	s := &S3{region: "us-east-2"}
	s.serviceBase = newServiceBase(env, "S3", settings.Storages, []string{
		"S3_STORAGE_ACCESS_KEY_ID",
		"S3_STORAGE_SECRET_ACCESS_KEY",
	}, s)
	return s
}

func (s *S3) fillConnectionDetails(page browser.Page) error {
	return fillFields(page,
		field{"connection/awsConfig/awsAccessKeyId", s.cred("S3_STORAGE_ACCESS_KEY_ID")},
		field{"connection/awsConfig/awsSecretAccessKey", s.cred("S3_STORAGE_SECRET_ACCESS_KEY")},
		field{"connection/awsConfig/awsRegion", s.region},
	)
}

func (s *S3) fillIngestionDetails(page browser.Page) error {
	return addFilterPattern(page, "containerFilterPattern", "om-.*")
}
