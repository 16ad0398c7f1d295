package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/rasnes/healthcare-etl/transform"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const NoData = "No data found."

var (
	titleCaser = cases.Title(language.English)
	printer    = message.NewPrinter(language.English)
)

// Label turns a column name into a header, e.g. total_cases -> Total Cases.
func Label(column string) string {
	return titleCaser.String(strings.ReplaceAll(column, "_", " "))
}

// FormatValue groups thousands and drops the fraction of whole numbers.
func FormatValue(v *float64) string {
	switch {
	case v == nil:
		return "NULL"
	case *v == math.Trunc(*v) && math.Abs(*v) < 1<<53:
		return printer.Sprintf("%d", int64(*v))
	default:
		return printer.Sprintf("%.2f", *v)
	}
}

func FormatScalar(column, country string, v *float64) string {
	if v == nil {
		return NoData
	}
	return fmt.Sprintf("Total COVID-19 %s in %s: %s", Label(column), country, FormatValue(v))
}

func FormatTimeSeries(column string, points []Point) string {
	if len(points) == 0 {
		return NoData
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s | %s\n", "Date", Label(column))
	b.WriteString(strings.Repeat("-", 30) + "\n")
	for _, p := range points {
		fmt.Fprintf(&b, "%s | %s\n", p.Date.Format(transform.DateLayout), FormatValue(p.Value))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func FormatRanking(metric string, ranking []Ranking) string {
	if len(ranking) == 0 {
		return NoData
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-4s | %-15s | %s\n", "Rank", "Country", Label(metric))
	b.WriteString(strings.Repeat("-", 43) + "\n")
	for i, r := range ranking {
		fmt.Fprintf(&b, "%-4d | %-15s | %s\n", i+1, r.Country, FormatValue(r.Total))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
