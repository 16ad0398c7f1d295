package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Point struct {
	Date  time.Time
	Value *float64
}

type Ranking struct {
	Country string
	Total   *float64
}

type Runner struct {
	DB     Querier
	Logger *slog.Logger
}

func NewRunner(db Querier, logger *slog.Logger) *Runner {
	return &Runner{DB: db, Logger: logger}
}

// Scalar returns the single value of stmt, or nil when there is no row or
// the aggregate is NULL.
func (r *Runner) Scalar(ctx context.Context, stmt Statement) (*float64, error) {
	rows, err := r.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var v sql.NullFloat64
	if err := rows.Scan(&v); err != nil {
		return nil, fmt.Errorf("failed to scan scalar: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return nullable(v), nil
}

func (r *Runner) TimeSeries(ctx context.Context, stmt Statement) ([]Point, error) {
	rows, err := r.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var (
			date time.Time
			v    sql.NullFloat64
		)
		if err := rows.Scan(&date, &v); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		points = append(points, Point{Date: date, Value: nullable(v)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return points, nil
}

func (r *Runner) Ranking(ctx context.Context, stmt Statement) ([]Ranking, error) {
	rows, err := r.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranking []Ranking
	for rows.Next() {
		var (
			country string
			v       sql.NullFloat64
		)
		if err := rows.Scan(&country, &v); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ranking = append(ranking, Ranking{Country: country, Total: nullable(v)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return ranking, nil
}

func (r *Runner) query(ctx context.Context, stmt Statement) (*sql.Rows, error) {
	r.Logger.Debug("Running query", "sql", stmt.SQL, "args", stmt.Args)
	rows, err := r.DB.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
