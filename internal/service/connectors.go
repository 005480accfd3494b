package service

import (
	"github.com/timmy/recordhub/internal/config"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/source"
	"github.com/timmy/recordhub/internal/source/api"
	"github.com/timmy/recordhub/internal/source/file"
	"github.com/timmy/recordhub/internal/storage"
)

// NewConnectorRegistry registers the API and file connectors.
// Parameters:
//   - cfg: ETL settings shared by API sources.
//   - opener: resolves file locations; may wrap nil object storage.
// Returns:
//   - *source.Registry: registry for both source types.
func NewConnectorRegistry(cfg config.ETLConfig, opener *storage.Opener) *source.Registry {
	reg := source.NewRegistry()
	reg.Register(domain.SourceTypeAPI, api.Factory(api.Options{
		Timeout:   cfg.APITimeout,
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
	}))
	reg.Register(domain.SourceTypeFile, file.Factory(opener))
	return reg
}

// PipelineConfigFrom maps the ETL configuration section onto PipelineConfig.
func PipelineConfigFrom(cfg config.ETLConfig) PipelineConfig {
	return PipelineConfig{
		BatchSize:        cfg.BatchSize,
		Workers:          cfg.Workers,
		FetchConcurrency: cfg.FetchConcurrency,
		MaxRetries:       cfg.MaxRetries,
		BackoffBase:      cfg.BackoffBase,
	}
}
