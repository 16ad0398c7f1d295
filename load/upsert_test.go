package load

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dailyKey = []string{"country_name", "report_date"}

func count(n int64) *int64 { return &n }

func dailyRecords() []Record {
	return []Record{
		{"country_name": "X", "report_date": "2021-01-01", "total_cases": count(10), "new_cases": count(10)},
		{"country_name": "X", "report_date": "2021-01-02", "total_cases": count(15), "new_cases": (*int64)(nil)},
	}
}

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Store{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		DB:     db,
		Driver: "mock",
	}, mock
}

const (
	dailyProbe  = "SELECT 1 FROM daily_cases WHERE country_name = ? AND report_date = ? LIMIT 1"
	dailyInsert = "INSERT INTO daily_cases (country_name, report_date, new_cases, total_cases) VALUES (?, ?, ?, ?), (?, ?, ?, ?)"
)

func TestUpsertBatch_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	inserted, err := store.UpsertBatch(ctx, DailyCasesTable, dailyKey, dailyRecords())
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = store.UpsertBatch(ctx, DailyCasesTable, dailyKey, dailyRecords())
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	results, err := store.GetQueryResults("SELECT count(*) AS n, count(new_cases) AS non_null FROM daily_cases;")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, results["n"])
	assert.Equal(t, []string{"1"}, results["non_null"], "null new_cases is stored as NULL")
}

func TestUpsertBatch_PartialOverlap(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertBatch(ctx, DailyCasesTable, dailyKey, dailyRecords()[:1])
	require.NoError(t, err)

	inserted, err := store.UpsertBatch(ctx, DailyCasesTable, dailyKey, dailyRecords())
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestUpsertBatch_DuplicatesWithinBatch(t *testing.T) {
	store := setupTestStore(t)

	records := append(dailyRecords(), dailyRecords()...)
	inserted, err := store.UpsertBatch(context.Background(), DailyCasesTable, dailyKey, records)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

func TestUpsertBatch_LegacyFieldNames(t *testing.T) {
	store := setupTestStore(t)

	records := []Record{
		{"country": "Y", "date": "2021-02-01", "total_cases": int64(3), "new_cases": int64(1)},
	}
	inserted, err := store.UpsertBatch(context.Background(), DailyCasesTable, dailyKey, records)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	results, err := store.GetQueryResults("SELECT country_name FROM daily_cases;")
	require.NoError(t, err)
	assert.Equal(t, []string{"Y"}, results["country_name"])
	// caller's map is left untouched
	assert.Contains(t, records[0], "country")
}

func TestUpsertBatch_VaccinationKeyedByCountry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	total := 100.0

	first := []Record{{"country_name": "Peru", "report_date": "2021-01-01", "total_vaccinations": &total,
		"people_vaccinated": (*float64)(nil), "people_fully_vaccinated": (*float64)(nil)}}
	later := []Record{{"country_name": "Peru", "report_date": "2022-01-01", "total_vaccinations": &total,
		"people_vaccinated": (*float64)(nil), "people_fully_vaccinated": (*float64)(nil)}}

	inserted, err := store.UpsertBatch(ctx, VaccinationTable, []string{"country_name"}, first)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = store.UpsertBatch(ctx, VaccinationTable, []string{"country_name"}, later)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted, "one row per country")
}

func TestUpsertBatch_EmptyBatchIssuesNoStatements(t *testing.T) {
	store, mock := setupMockStore(t)

	inserted, err := store.UpsertBatch(context.Background(), DailyCasesTable, dailyKey, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_CommitsNewRows(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(dailyProbe).WithArgs("X", "2021-01-01").WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery(dailyProbe).WithArgs("X", "2021-01-02").WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectBegin()
	mock.ExpectExec(dailyInsert).
		WithArgs("X", "2021-01-01", int64(10), int64(10), "X", "2021-01-02", nil, int64(15)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	inserted, err := store.UpsertBatch(context.Background(), DailyCasesTable, dailyKey, dailyRecords())
	assert.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_SkipsExistingWithoutTransaction(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(dailyProbe).WithArgs("X", "2021-01-01").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(dailyProbe).WithArgs("X", "2021-01-02").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	inserted, err := store.UpsertBatch(context.Background(), DailyCasesTable, dailyKey, dailyRecords())
	assert.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_RollsBackOnInsertFailure(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(dailyProbe).WithArgs("X", "2021-01-01").WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery(dailyProbe).WithArgs("X", "2021-01-02").WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectBegin()
	mock.ExpectExec(dailyInsert).WillReturnError(errors.New("Duplicate entry"))
	mock.ExpectRollback()

	inserted, err := store.UpsertBatch(context.Background(), DailyCasesTable, dailyKey, dailyRecords())
	assert.ErrorIs(t, err, ErrInsertFailure)
	assert.Contains(t, err.Error(), "Duplicate entry")
	assert.Equal(t, 0, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_CommitFailure(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(dailyProbe).WithArgs("X", "2021-01-01").WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery(dailyProbe).WithArgs("X", "2021-01-02").WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectBegin()
	mock.ExpectExec(dailyInsert).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit().WillReturnError(errors.New("connection lost"))

	inserted, err := store.UpsertBatch(context.Background(), DailyCasesTable, dailyKey, dailyRecords())
	assert.ErrorIs(t, err, ErrInsertFailure)
	assert.Equal(t, 0, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_ProbeFailure(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(dailyProbe).WithArgs("X", "2021-01-01").WillReturnError(errors.New("table missing"))

	inserted, err := store.UpsertBatch(context.Background(), DailyCasesTable, dailyKey, dailyRecords())
	assert.ErrorIs(t, err, ErrInsertFailure)
	assert.Equal(t, 0, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_InvalidBatch(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		table       string
		key         []string
		records     []Record
		errContains string
	}{
		{name: "bad table", table: "daily_cases; DROP TABLE x", key: dailyKey, records: dailyRecords(), errContains: "invalid table name"},
		{name: "no key", table: DailyCasesTable, records: dailyRecords(), errContains: "at least one column"},
		{name: "key not in rows", table: DailyCasesTable, key: []string{"iso_code"}, records: dailyRecords(), errContains: "key column iso_code missing"},
		{name: "bad column", table: DailyCasesTable, key: []string{"country_name"},
			records: []Record{{"country_name": "X", "1=1 --": 1}}, errContains: "invalid column name"},
		{name: "ragged rows", table: DailyCasesTable, key: dailyKey,
			records: []Record{
				{"country_name": "X", "report_date": "2021-01-01", "total_cases": int64(1)},
				{"country_name": "X", "report_date": "2021-01-02", "new_cases": int64(1)},
			}, errContains: "missing column total_cases"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inserted, err := store.UpsertBatch(ctx, tt.table, tt.key, tt.records)
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrInsertFailure)
			assert.Contains(t, err.Error(), tt.errContains)
			assert.Equal(t, 0, inserted)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindValue(t *testing.T) {
	f := 1.5
	s := "x"
	assert.Nil(t, bindValue((*int64)(nil)))
	assert.Nil(t, bindValue((*float64)(nil)))
	assert.Nil(t, bindValue((*string)(nil)))
	assert.Equal(t, int64(4), bindValue(count(4)))
	assert.Equal(t, 1.5, bindValue(&f))
	assert.Equal(t, "x", bindValue(&s))
	assert.Equal(t, "y", bindValue("y"))
}
