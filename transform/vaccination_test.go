package transform

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func number(f float64) *float64 { return &f }

func TestNormalizeVaccination_LatestPerCountry(t *testing.T) {
	csvData, err := os.ReadFile("testdata/vaccinations.csv")
	require.NoError(t, err)

	records, warnings, err := NormalizeVaccination(csvData)
	require.NoError(t, err)

	assert.Equal(t, []VaccinationRecord{
		{
			CountryName:           "Chile",
			ReportDate:            date("2021-12-31"),
			TotalVaccinations:     number(40000000),
			PeopleVaccinated:      nil,
			PeopleFullyVaccinated: number(16000000),
		},
		{
			CountryName:           "Kenya",
			ReportDate:            date("2022-01-10"),
			TotalVaccinations:     number(10000000),
			PeopleVaccinated:      number(6000000),
			PeopleFullyVaccinated: number(4000000),
		},
		{
			CountryName:           "Norway",
			ReportDate:            date("2022-01-15"),
			TotalVaccinations:     number(9500000),
			PeopleVaccinated:      number(4300000),
			PeopleFullyVaccinated: number(4100000),
		},
	}, records)

	// one row without a country, one with a bad date
	require.Len(t, warnings, 2)
	assert.Equal(t, ColCountryName, warnings[0].Field)
	assert.Equal(t, ColReportDate, warnings[1].Field)
	assert.Equal(t, "Chile", warnings[1].Country)
}

func TestNormalizeVaccination_LaterDateWins(t *testing.T) {
	csvData := []byte("COUNTRY,DATE,COVID_VACCINE_ADM_TOT_DOSES\n" +
		"Peru,2022-03-01,200\n" +
		"Peru,2021-03-01,100\n")

	records, warnings, err := NormalizeVaccination(csvData)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, records, 1)
	assert.Equal(t, date("2022-03-01"), records[0].ReportDate)
	assert.Equal(t, number(200), records[0].TotalVaccinations)
}

func TestNormalizeVaccination_HeaderVariants(t *testing.T) {
	csvData := []byte("\uFEFFcountry_name,report_date,total_vaccinations,people_vaccinated,people_fully_vaccinated\n" +
		"Peru,2022-03-01,\"1,200\",abc,\n")

	records, warnings, err := NormalizeVaccination(csvData)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Peru", records[0].CountryName)
	assert.Equal(t, number(1200), records[0].TotalVaccinations)
	assert.Nil(t, records[0].PeopleVaccinated)
	assert.Nil(t, records[0].PeopleFullyVaccinated)
	require.Len(t, warnings, 1, "only the unparseable cell warns, empty cells are plain nulls")
	assert.Equal(t, ColPeopleVaccinated, warnings[0].Field)
}

func TestNormalizeVaccination_Malformed(t *testing.T) {
	tests := []struct {
		name        string
		csv         string
		errContains string
	}{
		{name: "empty", csv: "", errContains: "empty CSV"},
		{name: "no country column", csv: "DATE,COVID_VACCINE_ADM_TOT_DOSES\n2021-01-01,1\n", errContains: "country_name"},
		{name: "no date column", csv: "COUNTRY,COVID_VACCINE_ADM_TOT_DOSES\nPeru,1\n", errContains: "report_date"},
		{name: "broken quoting", csv: "COUNTRY,DATE\n\"Peru,2021-01-01\n", errContains: "failed to read CSV data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NormalizeVaccination([]byte(tt.csv))
			assert.ErrorIs(t, err, ErrMalformedInput)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestVaccinationRecord_Fields(t *testing.T) {
	r := VaccinationRecord{CountryName: "Peru", ReportDate: date("2022-03-01"), TotalVaccinations: number(5)}
	fields := r.Fields()

	assert.Len(t, fields, 5)
	assert.Equal(t, "2022-03-01", fields[ColReportDate])
	assert.Equal(t, number(5), fields[ColTotalVaccinations])
}
