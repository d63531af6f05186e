package typecheck

import (
	"fmt"
	"strings"

	"github.com/tallylang/tally/internal/dims"
)

// Unit marker contract. Literals arrive from the parser with a unit string;
// this table is the documented mapping to dimensions. Scale converts the
// written magnitude into the canonical internal units (months for
// durations, per-month for rates, plain ratio for percentages).
//
//	"USD", "EUR", ...      Currency<code>      (three uppercase letters)
//	"ratio"                dimensionless
//	"%"                    dimensionless, scale 0.01
//	"months"/"month"       Duration
//	"quarters"/"quarter"   Duration, scale 3
//	"years"/"year"         Duration, scale 12
//	"per_month"            1/Duration
//	"per_quarter"          1/Duration, scale 1/3
//	"per_year"             1/Duration, scale 1/12
//	"count:<Entity>"       Count<Entity>
//	"capacity:<Resource>"  Capacity<Resource>
//
// An empty unit is not an error here; the checker decides whether the
// context supplies an expected dimension (check mode) or the literal is
// ambiguous (synthesis mode).

// ParseUnit maps a unit marker to its dimension and magnitude scale.
func ParseUnit(unit string) (dims.Dimension, float64, error) {
	switch unit {
	case "ratio", "fraction":
		return dims.Dimensionless(), 1, nil
	case "%":
		return dims.Dimensionless(), 0.01, nil
	case "month", "months":
		return dims.Duration(), 1, nil
	case "quarter", "quarters":
		return dims.Duration(), 3, nil
	case "year", "years":
		return dims.Duration(), 12, nil
	case "per_month":
		return dims.Rate(), 1, nil
	case "per_quarter":
		return dims.Rate(), 1.0 / 3.0, nil
	case "per_year":
		return dims.Rate(), 1.0 / 12.0, nil
	}
	if tag, ok := strings.CutPrefix(unit, "count:"); ok {
		if tag == "" {
			return dims.Dimension{}, 0, fmt.Errorf("count unit requires an entity tag")
		}
		return dims.Count(tag), 1, nil
	}
	if tag, ok := strings.CutPrefix(unit, "capacity:"); ok {
		if tag == "" {
			return dims.Dimension{}, 0, fmt.Errorf("capacity unit requires a resource tag")
		}
		return dims.Capacity(tag), 1, nil
	}
	if isCurrencyCode(unit) {
		return dims.Currency(unit), 1, nil
	}
	return dims.Dimension{}, 0, fmt.Errorf("unknown unit marker %q", unit)
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
