package importer

import (
	"strconv"
	"strings"
	"time"

	"assetdb-api/internal/apperr"

	"github.com/shopspring/decimal"
)

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// decimalOr parses s, falling back to def when s is blank or not a number.
func decimalOr(s string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return d
}

func intOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return int(d.IntPart())
	}
	return def
}

// boolExact is true only for the literal "true".
func boolExact(s string) bool {
	return strings.TrimSpace(s) == "true"
}

// parseDate returns nil for a blank value.
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	return nil, apperr.Validation(field + " must be a date (YYYY-MM-DD)")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
