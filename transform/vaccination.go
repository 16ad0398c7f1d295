package transform

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

const utf8BOM = "\uFEFF"

// VaccinationColumns maps export headers to canonical column names.
var VaccinationColumns = map[string]string{
	"COUNTRY":                     ColCountryName,
	"DATE":                        ColReportDate,
	"COVID_VACCINE_ADM_TOT_DOSES": ColTotalVaccinations,
	"COVID_VACCINE_ADM_TOT_A1D":   ColPeopleVaccinated,
	"COVID_VACCINE_ADM_TOT_CPS":   ColPeopleFullyVaccinated,
}

// NormalizeVaccination reduces a vaccination CSV export to the most recent
// row per country.
//
// Rows without a country or with an unparseable date are dropped and
// reported; unparseable numbers become null. Headers may use either the
// export names or the canonical names. The result is ordered by report date,
// then country.
func NormalizeVaccination(csvData []byte) ([]VaccinationRecord, []CoercionWarning, error) {
	reader := csv.NewReader(bytes.NewReader(csvData))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%w: empty CSV", ErrMalformedInput)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrMalformedInput, err)
	}

	index := canonicalHeaderIndex(stripHeaderBOM(header))
	for _, required := range []string{ColCountryName, ColReportDate} {
		if _, ok := index[required]; !ok {
			return nil, nil, fmt.Errorf("%w: CSV header has no column for %s", ErrMalformedInput, required)
		}
	}

	var warnings []CoercionWarning
	latest := make(map[string]VaccinationRecord)

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to read CSV data: %v", ErrMalformedInput, err)
		}

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		country := cell(ColCountryName)
		rawDate := cell(ColReportDate)
		if country == "" {
			warnings = append(warnings, CoercionWarning{
				Date: rawDate, Field: ColCountryName, Value: "",
				Reason: fmt.Sprintf("row %d dropped: missing country", line),
			})
			continue
		}
		reportDate, err := ParseDate(rawDate)
		if err != nil {
			warnings = append(warnings, CoercionWarning{
				Country: country, Date: rawDate, Field: ColReportDate, Value: rawDate,
				Reason: fmt.Sprintf("row %d dropped: %v", line, err),
			})
			continue
		}

		record := VaccinationRecord{CountryName: country, ReportDate: reportDate}
		targets := []struct {
			col string
			dst **float64
		}{
			{ColTotalVaccinations, &record.TotalVaccinations},
			{ColPeopleVaccinated, &record.PeopleVaccinated},
			{ColPeopleFullyVaccinated, &record.PeopleFullyVaccinated},
		}
		for _, target := range targets {
			raw := cell(target.col)
			v, ok := coerceNumber(raw)
			if !ok {
				warnings = append(warnings, CoercionWarning{
					Country: country, Date: rawDate, Field: target.col, Value: raw,
					Reason: "not a number",
				})
			}
			*target.dst = v
		}

		// later dates win; on equal dates the later row wins
		if prev, ok := latest[country]; !ok || !reportDate.Before(prev.ReportDate) {
			latest[country] = record
		}
	}

	records := make([]VaccinationRecord, 0, len(latest))
	for _, record := range latest {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].ReportDate.Equal(records[j].ReportDate) {
			return records[i].ReportDate.Before(records[j].ReportDate)
		}
		return records[i].CountryName < records[j].CountryName
	})

	return records, warnings, nil
}

// stripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func stripHeaderBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	return headers
}

func canonicalHeaderIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		canonical, ok := VaccinationColumns[strings.ToUpper(name)]
		if !ok {
			canonical = strings.ToLower(name)
		}
		if _, seen := index[canonical]; !seen {
			index[canonical] = i
		}
	}
	return index
}
