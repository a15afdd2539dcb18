// Package cube aggregates enriched occurrences into a species data cube.
//
// A cube row is a unique combination of year, grid cell and species key
// together with the number of occurrences and the smallest coordinate
// uncertainty among them. Occurrences identified above species rank
// (species key absent or 0) are not part of the cube, they are only
// counted.
package cube

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gncube/pkg/occurrence"
)

// Key groups occurrences of a cube row.
type Key struct {
	Year       int16
	CellCode   string
	SpeciesKey int64
}

// Row is a cube row.
type Row struct {
	Key
	// Count is the number of occurrences.
	Count int
	// MinUncertainty is the minimum coordinate uncertainty in meters.
	MinUncertainty float64
}

// KeyError describes a record without a required grouping field.
type KeyError struct {
	ID    int64
	Field string
}

func (e KeyError) Error() string {
	return fmt.Sprintf("record %d has no %s", e.ID, e.Field)
}

// Result is the outcome of an aggregation.
type Result struct {
	// Rows sorted by year, cell code and species key.
	Rows []Row
	// Records is the number of records folded into Rows.
	Records int
	// NoSpeciesKey counts records with absent species key.
	NoSpeciesKey int
	// ZeroSpeciesKey counts records with species key 0.
	ZeroSpeciesKey int
	// KeyErrors are records that miss year, cell code or uncertainty.
	KeyErrors []KeyError
}

// MissingKey returns the number of records without a grouping field.
func (r *Result) MissingKey() int {
	return len(r.KeyErrors)
}

// Excluded returns the number of records not present in the cube.
func (r *Result) Excluded() int {
	return r.NoSpeciesKey + r.ZeroSpeciesKey + r.MissingKey()
}

type agg struct {
	count  int
	minUnc float64
}

// Aggregate builds the cube from all records of the scanner. It only
// reads records.
func Aggregate(ctx context.Context, sc occurrence.Scanner) (*Result, error) {
	res := &Result{}
	groups := make(map[Key]*agg)

	err := sc.Scan(ctx, func(r occurrence.Record) error {
		switch {
		case !r.SpeciesKey.Valid:
			res.NoSpeciesKey++
			return nil
		case r.SpeciesKey.Int64 == 0:
			res.ZeroSpeciesKey++
			return nil
		}

		if kerr, ok := checkKey(r); !ok {
			res.KeyErrors = append(res.KeyErrors, kerr)
			return nil
		}

		k := Key{
			Year:       r.Year.Int16,
			CellCode:   r.CellCode.String,
			SpeciesKey: r.SpeciesKey.Int64,
		}
		res.Records++
		unc := r.Uncertainty.Float64
		if a, ok := groups[k]; ok {
			a.count++
			a.minUnc = min(a.minUnc, unc)
			return nil
		}
		groups[k] = &agg{count: 1, minUnc: unc}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot aggregate species cube: %w", err)
	}

	res.Rows = make([]Row, 0, len(groups))
	for k, a := range groups {
		res.Rows = append(res.Rows, Row{Key: k, Count: a.count, MinUncertainty: a.minUnc})
	}
	slices.SortFunc(res.Rows, func(a, b Row) int {
		return CompareKeys(a.Key, b.Key)
	})

	slog.Info("Species cube aggregated",
		"rows", humanize.Comma(int64(len(res.Rows))),
		"records", humanize.Comma(int64(res.Records)),
		"excluded", humanize.Comma(int64(res.Excluded())),
	)
	return res, nil
}

// CompareKeys orders keys by year, cell code and species key.
func CompareKeys(a, b Key) int {
	if c := cmp.Compare(a.Year, b.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(a.CellCode, b.CellCode); c != 0 {
		return c
	}
	return cmp.Compare(a.SpeciesKey, b.SpeciesKey)
}

func checkKey(r occurrence.Record) (KeyError, bool) {
	switch {
	case !r.Year.Valid:
		return KeyError{ID: r.ID, Field: "year"}, false
	case !r.CellCode.Valid || r.CellCode.String == "":
		return KeyError{ID: r.ID, Field: "cell code"}, false
	case !r.Uncertainty.Valid || r.Uncertainty.Float64 <= 0:
		return KeyError{ID: r.ID, Field: "uncertainty"}, false
	}
	return KeyError{}, true
}
