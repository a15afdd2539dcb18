package uncertainty_test

import (
	"database/sql"
	"math"
	"testing"

	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/uncertainty"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		msg string
		in  sql.NullFloat64
		res float64
	}{
		{"null", sql.NullFloat64{}, 1000},
		{"zero", sql.NullFloat64{Float64: 0, Valid: true}, 1000},
		{"negative", sql.NullFloat64{Float64: -10, Valid: true}, 1000},
		{"NaN", sql.NullFloat64{Float64: math.NaN(), Valid: true}, 1000},
		{"infinity", sql.NullFloat64{Float64: math.Inf(1), Valid: true}, 1000},
		{"positive", sql.NullFloat64{Float64: 30, Valid: true}, 30},
		{"tiny positive", sql.NullFloat64{Float64: 0.001, Valid: true}, 0.001},
		{"larger than default", sql.NullFloat64{Float64: 25_000, Valid: true}, 25_000},
	}

	for _, v := range tests {
		res := uncertainty.Normalize(v.in, 1000)
		assert.Equal(t, v.res, res, v.msg)
	}
}

func TestNormalizeRecord(t *testing.T) {
	r := occurrence.Record{ID: 1}

	assert.True(t, uncertainty.NormalizeRecord(&r, 1000),
		"missing value is substituted")
	assert.Equal(t, sql.NullFloat64{Float64: 1000, Valid: true}, r.Uncertainty)

	assert.False(t, uncertainty.NormalizeRecord(&r, 1000),
		"second normalization is a no-op")
	assert.Equal(t, 1000.0, r.Uncertainty.Float64)

	r.Uncertainty = sql.NullFloat64{Float64: 0, Valid: true}
	assert.True(t, uncertainty.NormalizeRecord(&r, 500))
	assert.Equal(t, 500.0, r.Uncertainty.Float64)

	r.Uncertainty = sql.NullFloat64{Float64: 12.5, Valid: true}
	assert.False(t, uncertainty.NormalizeRecord(&r, 500))
	assert.Equal(t, 12.5, r.Uncertainty.Float64)
}
