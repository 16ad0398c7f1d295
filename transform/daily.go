package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NormalizeDaily flattens an API payload into one row per country-day.
//
// Only the first element of the payload is read. It must carry a string
// "country" and a "cases" object keyed by date, each value an object with
// optional "total" and "new" counts. A missing count becomes 0; a count that
// cannot be coerced becomes null and is reported as a CoercionWarning. A date
// key that cannot be parsed fails the whole batch, since the date is part of
// the natural key.
//
// Rows sharing (country, date) after date parsing collapse to the one whose
// key sorts last. The result is ordered by date and restricted to window.
func NormalizeDaily(payload []map[string]any, window DateRange) ([]DailyCaseRecord, []CoercionWarning, error) {
	if len(payload) == 0 {
		return nil, nil, fmt.Errorf("%w: empty payload", ErrMalformedInput)
	}

	first := payload[0]
	rawCountry, ok := first["country"]
	if !ok {
		return nil, nil, fmt.Errorf("%w: first record has no country field", ErrMalformedInput)
	}
	country, ok := rawCountry.(string)
	if !ok || strings.TrimSpace(country) == "" {
		return nil, nil, fmt.Errorf("%w: country must be a non-empty string, got %v", ErrMalformedInput, rawCountry)
	}

	rawCases, ok := first["cases"]
	if !ok {
		return nil, nil, fmt.Errorf("%w: first record has no cases field", ErrMalformedInput)
	}
	cases, ok := rawCases.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: cases must be an object keyed by date, got %T", ErrMalformedInput, rawCases)
	}

	dateKeys := make([]string, 0, len(cases))
	for k := range cases {
		dateKeys = append(dateKeys, k)
	}
	sort.Strings(dateKeys)

	var warnings []CoercionWarning
	byKey := make(map[string]DailyCaseRecord, len(dateKeys))

	for _, dateKey := range dateKeys {
		reportDate, err := ParseDate(dateKey)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: case date key for %s: %v", ErrMalformedInput, country, err)
		}

		entry, ok := cases[dateKey].(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("%w: cases[%q] for %s is %T, want object", ErrMalformedInput, dateKey, country, cases[dateKey])
		}

		record := DailyCaseRecord{
			CountryName: country,
			ReportDate:  reportDate,
		}
		var w *CoercionWarning
		record.TotalCases, w = countField(entry, "total", country, reportDate)
		if w != nil {
			warnings = append(warnings, *w)
		}
		record.NewCases, w = countField(entry, "new", country, reportDate)
		if w != nil {
			warnings = append(warnings, *w)
		}

		byKey[record.Key()] = record
	}

	records := make([]DailyCaseRecord, 0, len(byKey))
	for _, record := range byKey {
		if window.Contains(record.ReportDate) {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ReportDate.Before(records[j].ReportDate)
	})

	return records, warnings, nil
}

func countField(entry map[string]any, field, country string, date time.Time) (*int64, *CoercionWarning) {
	raw, present := entry[field]
	if !present {
		var zero int64
		return &zero, nil
	}

	n, ok := coerceCount(raw)
	if !ok {
		return nil, &CoercionWarning{
			Country: country,
			Date:    date.Format(DateLayout),
			Field:   field,
			Value:   raw,
			Reason:  "not a non-negative integer",
		}
	}
	return &n, nil
}
