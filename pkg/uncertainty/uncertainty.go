// Package uncertainty normalizes coordinate uncertainty of occurrences.
package uncertainty

import (
	"database/sql"
	"math"

	"github.com/gnames/gncube/pkg/occurrence"
)

// Normalize returns v when it is a positive finite number, otherwise def.
func Normalize(v sql.NullFloat64, def float64) float64 {
	if v.Valid && v.Float64 > 0 && !math.IsInf(v.Float64, 1) {
		return v.Float64
	}
	return def
}

// NormalizeRecord replaces a missing or non-positive uncertainty of r with
// def. It returns true when the default was substituted.
func NormalizeRecord(r *occurrence.Record, def float64) bool {
	v := Normalize(r.Uncertainty, def)
	substituted := !r.Uncertainty.Valid || r.Uncertainty.Float64 != v
	r.Uncertainty = sql.NullFloat64{Float64: v, Valid: true}
	return substituted
}
