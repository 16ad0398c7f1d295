package load

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// ErrInsertFailure means a batch was rolled back; nothing from it is stored.
var ErrInsertFailure = errors.New("batch insert failed")

// Record is one row keyed by column name.
type Record map[string]any

// maxRowsPerStatement keeps multi-row INSERTs under driver placeholder limits.
const maxRowsPerStatement = 500

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// pre-normalized field names still accepted from older callers
var legacyColumns = map[string]string{
	"date":    "report_date",
	"country": "country_name",
}

// UpsertBatch inserts the records of a batch whose natural key is not yet in
// table and returns how many rows were inserted.
//
// Existence is probed row by row outside the insert transaction, so the
// result is only correct with a single writer per table. All new rows are
// written in one transaction: on failure it is rolled back, logged, and the
// returned count is 0 with an error wrapping ErrInsertFailure. An empty batch
// issues no statements.
func (s *Store) UpsertBatch(ctx context.Context, table string, keyColumns []string, records []Record) (int, error) {
	if len(records) == 0 {
		s.Logger.Info("Batch is empty. Nothing to insert.", "table", table)
		return 0, nil
	}

	if !identifierPattern.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	if len(keyColumns) == 0 {
		return 0, fmt.Errorf("natural key for %s must have at least one column", table)
	}

	rows := make([]Record, len(records))
	for i, record := range records {
		rows[i] = canonicalize(record)
	}

	columns, err := batchColumns(rows, keyColumns)
	if err != nil {
		return 0, fmt.Errorf("invalid batch for %s: %w", table, err)
	}

	newRows, err := s.filterExisting(ctx, table, keyColumns, rows)
	if err != nil {
		s.Logger.Error("Existence check failed", "table", table, "error", err)
		return 0, fmt.Errorf("%w: %s: %v", ErrInsertFailure, table, err)
	}

	if len(newRows) == 0 {
		s.Logger.Info("No new records to insert.", "table", table, "duplicates", len(rows))
		return 0, nil
	}

	if err := s.insertRows(ctx, table, columns, newRows); err != nil {
		s.Logger.Error("Insert failed", "table", table, "rows", len(newRows), "error", err)
		return 0, fmt.Errorf("%w: %s: %v", ErrInsertFailure, table, err)
	}

	s.Logger.Info(fmt.Sprintf("Inserted %d new records into %s.", len(newRows), table),
		"duplicates", len(rows)-len(newRows))
	return len(newRows), nil
}

// filterExisting keeps rows whose key is neither stored nor repeated earlier
// in the batch.
func (s *Store) filterExisting(ctx context.Context, table string, keyColumns []string, rows []Record) ([]Record, error) {
	conditions := make([]string, len(keyColumns))
	for i, col := range keyColumns {
		conditions[i] = col + " = ?"
	}
	probe := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", table, strings.Join(conditions, " AND "))

	seen := make(map[string]struct{}, len(rows))
	var newRows []Record
	for _, row := range rows {
		keyArgs := make([]any, len(keyColumns))
		for i, col := range keyColumns {
			keyArgs[i] = bindValue(row[col])
		}

		batchKey := fmt.Sprintf("%#v", keyArgs)
		if _, dup := seen[batchKey]; dup {
			continue
		}
		seen[batchKey] = struct{}{}

		var one int
		err := s.DB.QueryRowContext(ctx, probe, keyArgs...).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			newRows = append(newRows, row)
		case err != nil:
			return nil, fmt.Errorf("probing key %v: %w", keyArgs, err)
		}
	}
	return newRows, nil
}

func (s *Store) insertRows(ctx context.Context, table string, columns []string, rows []Record) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	for start := 0; start < len(rows); start += maxRowsPerStatement {
		end := min(start+maxRowsPerStatement, len(rows))
		chunk := rows[start:end]

		tuples := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			tuples[i] = placeholders
			for _, col := range columns {
				args = append(args, bindValue(row[col]))
			}
		}

		if _, err = tx.ExecContext(ctx, prefix+strings.Join(tuples, ", "), args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func canonicalize(record Record) Record {
	out := make(Record, len(record))
	for col, v := range record {
		if canonical, ok := legacyColumns[col]; ok {
			col = canonical
		}
		out[col] = v
	}
	return out
}

// batchColumns returns the key columns followed by the remaining columns in
// name order, after checking every row has the same column set.
func batchColumns(rows []Record, keyColumns []string) ([]string, error) {
	var rest []string
	for col := range rows[0] {
		if !identifierPattern.MatchString(col) {
			return nil, fmt.Errorf("invalid column name %q", col)
		}
		if !slices.Contains(keyColumns, col) {
			rest = append(rest, col)
		}
	}
	sort.Strings(rest)

	for _, col := range keyColumns {
		if !identifierPattern.MatchString(col) {
			return nil, fmt.Errorf("invalid key column %q", col)
		}
		if _, ok := rows[0][col]; !ok {
			return nil, fmt.Errorf("key column %s missing from rows", col)
		}
	}

	columns := append(slices.Clone(keyColumns), rest...)
	for i, row := range rows[1:] {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i+1, len(row), len(columns))
		}
		for _, col := range columns {
			if _, ok := row[col]; !ok {
				return nil, fmt.Errorf("row %d is missing column %s", i+1, col)
			}
		}
	}
	return columns, nil
}

// bindValue dereferences the nullable pointers produced by the normalizer.
func bindValue(v any) any {
	switch val := v.(type) {
	case *int64:
		if val == nil {
			return nil
		}
		return *val
	case *float64:
		if val == nil {
			return nil
		}
		return *val
	case *string:
		if val == nil {
			return nil
		}
		return *val
	default:
		return v
	}
}
