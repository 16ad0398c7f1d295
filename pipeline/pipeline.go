package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/rasnes/healthcare-etl/config"
	"github.com/rasnes/healthcare-etl/extract"
	"github.com/rasnes/healthcare-etl/load"
	"github.com/rasnes/healthcare-etl/query"
	"github.com/rasnes/healthcare-etl/utils"
)

// ErrEmptyResult means a step had nothing to work on and was skipped. It is
// a warning, not a failure.
var ErrEmptyResult = errors.New("empty result")

type Pipeline struct {
	Store           *load.Store
	APIClient       *extract.APIClient
	Logger          *slog.Logger
	sqlDir          string
	schemaFile      string
	vaccinationPath string
}

// NewPipeline opens the store and, when an API base URL is configured, the
// API client. Commands that only touch the store work without API settings.
func NewPipeline(ctx context.Context, config *config.Config, logger *slog.Logger) (*Pipeline, error) {
	sqlDir, err := utils.FindSQLDir()
	if err != nil {
		return nil, err
	}

	store, err := load.NewStore(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating store: %w", err)
	}

	var apiClient *extract.APIClient
	if config.API.BaseURL != "" {
		apiClient, err = extract.NewAPIClient(config, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("error creating API client: %w", err)
		}
	}

	schemaFile := config.Store.SchemaFile
	if schemaFile == "" {
		schemaFile = "create_tables.sql"
	}

	return &Pipeline{
		Store:           store,
		APIClient:       apiClient,
		Logger:          logger,
		sqlDir:          sqlDir,
		schemaFile:      schemaFile,
		vaccinationPath: config.Vaccination.CSVPath,
	}, nil
}

func (p *Pipeline) Close() {
	p.Store.Close()
}

func (p *Pipeline) getSQLPath(filename string) string {
	return filepath.Join(p.sqlDir, filename)
}

// EnsureTables creates any missing table.
func (p *Pipeline) EnsureTables(ctx context.Context) error {
	return p.Store.CreateTables(ctx, p.getSQLPath(p.schemaFile))
}

// ListTables returns the existing tables. When there are none they are
// created first and created is true.
func (p *Pipeline) ListTables(ctx context.Context) (tables []string, created bool, err error) {
	tables, err = p.Store.ListTables(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(tables) > 0 {
		return tables, false, nil
	}

	p.Logger.Info("No tables found. Creating tables.")
	if err := p.EnsureTables(ctx); err != nil {
		return nil, false, err
	}
	tables, err = p.Store.ListTables(ctx)
	if err != nil {
		return nil, false, err
	}
	return tables, true, nil
}

func (p *Pipeline) DropTables(ctx context.Context) ([]string, error) {
	dropped, err := p.Store.DropTables(ctx)
	if err != nil {
		return nil, err
	}
	p.Logger.Info(fmt.Sprintf("Dropped tables: %v", dropped))
	return dropped, nil
}

// Query runs one query_data intent against the store and returns the
// formatted output.
func (p *Pipeline) Query(ctx context.Context, column, country, extra string) (string, error) {
	return query.NewRunner(p.Store.DB, p.Logger).Execute(ctx, column, country, extra)
}
