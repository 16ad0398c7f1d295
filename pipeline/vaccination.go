package pipeline

import (
	"context"
	"fmt"

	"github.com/rasnes/healthcare-etl/extract"
	"github.com/rasnes/healthcare-etl/load"
	"github.com/rasnes/healthcare-etl/transform"
)

var vaccinationKey = []string{transform.ColCountryName}

// LoadVaccination loads the latest row per country from a CSV export (or a
// zip holding one). An empty path falls back to the configured one.
func (p *Pipeline) LoadVaccination(ctx context.Context, path string) (int, error) {
	if path == "" {
		path = p.vaccinationPath
	}

	data, err := extract.ReadCSVFile(path)
	if err != nil {
		return 0, err
	}

	records, warnings, err := transform.NormalizeVaccination(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	p.logWarnings(warnings)

	if len(records) == 0 {
		return 0, fmt.Errorf("%w: no usable vaccination rows in %s", ErrEmptyResult, path)
	}

	if err := p.EnsureTables(ctx); err != nil {
		return 0, err
	}

	rows := make([]load.Record, len(records))
	for i, record := range records {
		rows[i] = record.Fields()
	}
	return p.Store.UpsertBatch(ctx, load.VaccinationTable, vaccinationKey, rows)
}
