package transform

import (
	"fmt"
	"time"
)

// Canonical column names shared by the normalizer, the loader and the query
// builder.
const (
	ColCountryName           = "country_name"
	ColReportDate            = "report_date"
	ColTotalCases            = "total_cases"
	ColNewCases              = "new_cases"
	ColTotalVaccinations     = "total_vaccinations"
	ColPeopleVaccinated      = "people_vaccinated"
	ColPeopleFullyVaccinated = "people_fully_vaccinated"
)

const DateLayout = "2006-01-02"

// DailyCaseRecord is one country-day of case counts. A nil count means the
// source value could not be coerced to a non-negative integer.
type DailyCaseRecord struct {
	CountryName string
	ReportDate  time.Time
	TotalCases  *int64
	NewCases    *int64
}

func (r DailyCaseRecord) Key() string {
	return r.CountryName + "|" + r.ReportDate.Format(DateLayout)
}

// Fields returns the row keyed by canonical column names. Dates are rendered
// as ISO strings so every supported driver binds them the same way.
func (r DailyCaseRecord) Fields() map[string]any {
	return map[string]any{
		ColCountryName: r.CountryName,
		ColReportDate:  r.ReportDate.Format(DateLayout),
		ColTotalCases:  r.TotalCases,
		ColNewCases:    r.NewCases,
	}
}

// VaccinationRecord is the latest vaccination snapshot for a country.
type VaccinationRecord struct {
	CountryName           string
	ReportDate            time.Time
	TotalVaccinations     *float64
	PeopleVaccinated      *float64
	PeopleFullyVaccinated *float64
}

func (r VaccinationRecord) Fields() map[string]any {
	return map[string]any{
		ColCountryName:           r.CountryName,
		ColReportDate:            r.ReportDate.Format(DateLayout),
		ColTotalVaccinations:     r.TotalVaccinations,
		ColPeopleVaccinated:      r.PeopleVaccinated,
		ColPeopleFullyVaccinated: r.PeopleFullyVaccinated,
	}
}

// DateRange bounds report dates inclusively. A zero Start or End leaves that
// side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses optional start and end strings.
func NewDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error
	if start != "" {
		if r.Start, err = ParseDate(start); err != nil {
			return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
		}
	}
	if end != "" {
		if r.End, err = ParseDate(end); err != nil {
			return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
		}
	}
	return r, nil
}

func (r DateRange) Contains(d time.Time) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}
