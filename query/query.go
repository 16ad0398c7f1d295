package query

import (
	"context"
	"fmt"
)

// Intents selected by the first query_data argument. Any other value is a
// daily column for the scalar aggregate.
const (
	IntentDailyTrends = "daily_trends"
	IntentTopN        = "top_n_countries_by_metric"
)

// Execute builds, runs and formats the query selected by column. For
// daily_trends the series column is extra; for top_n_countries_by_metric the
// country argument is N and extra is the metric.
func (r *Runner) Execute(ctx context.Context, column, country, extra string) (string, error) {
	switch {
	case column == IntentDailyTrends && extra != "":
		stmt, err := TimeSeries(extra, country)
		if err != nil {
			return "", err
		}
		points, err := r.TimeSeries(ctx, stmt)
		if err != nil {
			return "", fmt.Errorf("daily trends for %s: %w", country, err)
		}
		return FormatTimeSeries(extra, points), nil

	case column == IntentTopN:
		stmt, err := TopN(extra, country)
		if err != nil {
			return "", err
		}
		ranking, err := r.Ranking(ctx, stmt)
		if err != nil {
			return "", fmt.Errorf("top %s countries by %s: %w", country, extra, err)
		}
		return FormatRanking(extra, ranking), nil

	default:
		stmt, err := ScalarAggregate(column, country)
		if err != nil {
			return "", err
		}
		v, err := r.Scalar(ctx, stmt)
		if err != nil {
			return "", fmt.Errorf("max %s for %s: %w", column, country, err)
		}
		return FormatScalar(column, country, v), nil
	}
}
