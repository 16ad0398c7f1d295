package query

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rasnes/healthcare-etl/load"
	"github.com/rasnes/healthcare-etl/template"
	"github.com/rasnes/healthcare-etl/transform"
)

// ErrInvalidArgument means a caller-supplied column, metric or limit was
// rejected before any SQL was assembled.
var ErrInvalidArgument = errors.New("invalid argument")

// Columns that may be interpolated into SQL text. Everything else is bound.
var (
	DailyColumns = []string{
		transform.ColTotalCases,
		transform.ColNewCases,
	}
	VaccinationMetrics = []string{
		transform.ColTotalVaccinations,
		transform.ColPeopleVaccinated,
		transform.ColPeopleFullyVaccinated,
	}
)

const (
	scalarTemplate = `SELECT MAX({{.Column}}) FROM {{.Table}} WHERE country_name = ?`

	timeSeriesTemplate = `SELECT report_date, {{.Column}} FROM {{.Table}} WHERE country_name = ? ORDER BY report_date ASC`

	topNTemplate = `SELECT country_name, MAX({{.Metric}}) AS total FROM {{.Table}} GROUP BY country_name ORDER BY total DESC LIMIT ?`
)

// Statement is SQL text plus its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// ScalarAggregate builds MAX(column) over daily cases for one country.
func ScalarAggregate(column, country string) (Statement, error) {
	col, err := allowed(column, DailyColumns)
	if err != nil {
		return Statement{}, err
	}
	return render(scalarTemplate, map[string]any{"Column": col, "Table": load.DailyCasesTable}, country)
}

// TimeSeries builds the date-ordered series of one daily column for a country.
func TimeSeries(column, country string) (Statement, error) {
	col, err := allowed(column, DailyColumns)
	if err != nil {
		return Statement{}, err
	}
	return render(timeSeriesTemplate, map[string]any{"Column": col, "Table": load.DailyCasesTable}, country)
}

// TopN ranks countries by their highest value of a vaccination metric. n is
// the raw user input and must be a positive integer.
func TopN(metric, n string) (Statement, error) {
	m, err := allowed(metric, VaccinationMetrics)
	if err != nil {
		return Statement{}, err
	}
	limit, err := ParseLimit(n)
	if err != nil {
		return Statement{}, err
	}
	return render(topNTemplate, map[string]any{"Metric": m, "Table": load.VaccinationTable}, limit)
}

func ParseLimit(n string) (int, error) {
	limit, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil {
		return 0, fmt.Errorf("%w: N must be an integer, got %q", ErrInvalidArgument, n)
	}
	if limit <= 0 {
		return 0, fmt.Errorf("%w: N must be positive, got %d", ErrInvalidArgument, limit)
	}
	return limit, nil
}

// allowed returns the allow-listed spelling of name. Matching ignores case
// and surrounding space.
func allowed(name string, allowList []string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "", fmt.Errorf("%w: column name is required (one of %s)", ErrInvalidArgument, strings.Join(allowList, ", "))
	}
	if i := slices.Index(allowList, normalized); i >= 0 {
		return allowList[i], nil
	}
	return "", fmt.Errorf("%w: unknown column %q (one of %s)", ErrInvalidArgument, name, strings.Join(allowList, ", "))
}

func render(tmpl string, params map[string]any, args ...any) (Statement, error) {
	sql, err := template.RenderSql(tmpl, params)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Args: args}, nil
}
