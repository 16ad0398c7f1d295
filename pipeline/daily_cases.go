package pipeline

import (
	"context"
	"fmt"

	"github.com/rasnes/healthcare-etl/load"
	"github.com/rasnes/healthcare-etl/transform"
)

var dailyCasesKey = []string{transform.ColCountryName, transform.ColReportDate}

type FetchOptions struct {
	Country   string
	StartDate string
	EndDate   string
	// Date is forwarded to the API as is.
	Date string
}

// FetchDailyCases fetches one country's case history, normalizes it and
// loads the rows not yet stored. It returns the number of rows inserted.
func (p *Pipeline) FetchDailyCases(ctx context.Context, opts FetchOptions) (int, error) {
	if p.APIClient == nil {
		return 0, fmt.Errorf("api.base_url is not configured")
	}
	if opts.Country == "" {
		return 0, fmt.Errorf("country is required")
	}

	window, err := transform.NewDateRange(opts.StartDate, opts.EndDate)
	if err != nil {
		return 0, err
	}

	raw, err := p.APIClient.FetchRecords(map[string]string{
		"country": opts.Country,
		"date":    opts.Date,
	})
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: no data returned from API for %s", ErrEmptyResult, opts.Country)
	}

	records, warnings, err := transform.NormalizeDaily(raw, window)
	if err != nil {
		return 0, err
	}
	p.logWarnings(warnings)

	if len(records) == 0 {
		return 0, fmt.Errorf("%w: no cleaned records for %s", ErrEmptyResult, opts.Country)
	}
	p.Logger.Info(fmt.Sprintf("Cleaned and transformed %d records for %s", len(records), opts.Country))

	if err := p.EnsureTables(ctx); err != nil {
		return 0, err
	}

	rows := make([]load.Record, len(records))
	for i, record := range records {
		rows[i] = record.Fields()
	}
	return p.Store.UpsertBatch(ctx, load.DailyCasesTable, dailyCasesKey, rows)
}

func (p *Pipeline) logWarnings(warnings []transform.CoercionWarning) {
	for _, w := range warnings {
		p.Logger.Warn(w.Error(), "country", w.Country, "date", w.Date, "field", w.Field)
	}
	if len(warnings) > 0 {
		p.Logger.Warn(fmt.Sprintf("%d values could not be coerced", len(warnings)))
	}
}
