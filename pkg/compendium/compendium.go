// Package compendium builds the taxonomic cross-reference of a species
// cube. For every species key it lists all taxa (synonyms, infraspecific
// taxa, the species itself) whose occurrences were counted under that key.
package compendium

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gncube/pkg/occurrence"
	"golang.org/x/sync/errgroup"
)

// Taxon is a taxon observed in occurrence records.
type Taxon struct {
	Key            int64
	ScientificName string
}

// Species holds attributes of a species from a taxonomy backbone.
type Species struct {
	Key             int64
	ScientificName  string
	CanonicalName   string
	Rank            string
	TaxonomicStatus string
	Kingdom         string
}

// Lookup retrieves species attributes by key.
type Lookup interface {
	Species(ctx context.Context, key int64) (Species, error)
}

// Canonicalizer returns a canonical form of a scientific name.
type Canonicalizer interface {
	Canonical(name, kingdom string) string
}

// Row is a compendium row.
type Row struct {
	Species
	// Included taxa sorted by key, without duplicates. When records give
	// different names to one taxon key, the name of the record with the
	// smallest ID is kept.
	Included []Taxon
}

// Includes returns a human-readable list of included taxa.
func (r Row) Includes() string {
	parts := make([]string, len(r.Included))
	for i, t := range r.Included {
		parts[i] = strconv.FormatInt(t.Key, 10) + ": " + t.ScientificName
	}
	return strings.Join(parts, " | ")
}

// Result of a compendium build.
type Result struct {
	// Rows sorted by species key.
	Rows []Row
	// Missing are species keys that could not be looked up.
	Missing []int64
}

// Builder creates compendiums.
type Builder struct {
	lookup Lookup
	canon  Canonicalizer
	jobs   int
}

// Option configures a Builder.
type Option func(*Builder)

// OptJobsNumber sets the number of concurrent lookups.
func OptJobsNumber(i int) Option {
	return func(b *Builder) {
		if i > 0 {
			b.jobs = i
		}
	}
}

// OptCanonicalizer sets a source of canonical names for species that
// come without one.
func OptCanonicalizer(c Canonicalizer) Option {
	return func(b *Builder) {
		b.canon = c
	}
}

// New creates a Builder.
func New(lookup Lookup, opts ...Option) *Builder {
	res := &Builder{lookup: lookup, jobs: 4}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Build collects taxa per species key from the scanner and looks up
// every species key once. Species attributes always come from the lookup,
// even if the species itself is among observed taxa. Failed lookups are
// not fatal, such species are reported in Result.Missing.
func (b *Builder) Build(ctx context.Context, sc occurrence.Scanner) (*Result, error) {
	taxa, err := collect(ctx, sc)
	if err != nil {
		return nil, err
	}

	keys := make([]int64, 0, len(taxa))
	for k := range taxa {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	species := make([]Species, len(keys))
	failed := make([]error, len(keys))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)
	for i, key := range keys {
		g.Go(func() error {
			sp, err := b.lookup.Species(gCtx, key)
			if err != nil {
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed[i] = err
				return nil
			}
			sp.Key = key
			species[i] = sp
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, fmt.Errorf("cannot build compendium: %w", err)
	}

	res := &Result{Rows: make([]Row, 0, len(keys))}
	for i, key := range keys {
		if failed[i] != nil {
			slog.Warn("Species lookup failed", "key", key, "error", failed[i])
			res.Missing = append(res.Missing, key)
			continue
		}
		sp := species[i]
		if sp.CanonicalName == "" && b.canon != nil {
			sp.CanonicalName = b.canon.Canonical(sp.ScientificName, sp.Kingdom)
		}
		res.Rows = append(res.Rows, Row{Species: sp, Included: taxa[key]})
	}

	slog.Info("Compendium built",
		"species", humanize.Comma(int64(len(res.Rows))),
		"missing", len(res.Missing),
	)
	return res, nil
}

// collect returns distinct taxa per species key. The first name seen
// for a taxon key wins.
func collect(ctx context.Context, sc occurrence.Scanner) (map[int64][]Taxon, error) {
	seen := make(map[int64]map[int64]string)
	err := sc.Scan(ctx, func(r occurrence.Record) error {
		if !r.SpeciesKey.Valid || r.SpeciesKey.Int64 == 0 {
			return nil
		}
		sk := r.SpeciesKey.Int64
		ts, ok := seen[sk]
		if !ok {
			ts = make(map[int64]string)
			seen[sk] = ts
		}
		name, ok := ts[r.TaxonKey]
		switch {
		case !ok:
			ts[r.TaxonKey] = r.ScientificName
		case name != r.ScientificName:
			slog.Debug("Conflicting names of taxon, keeping the first",
				"taxon_key", r.TaxonKey,
				"kept", name,
				"skipped", r.ScientificName,
				"gbif_id", r.ID,
			)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot collect taxa: %w", err)
	}

	res := make(map[int64][]Taxon, len(seen))
	for sk, ts := range seen {
		taxa := make([]Taxon, 0, len(ts))
		for k, name := range ts {
			taxa = append(taxa, Taxon{Key: k, ScientificName: name})
		}
		slices.SortFunc(taxa, func(a, b Taxon) int {
			return cmp.Compare(a.Key, b.Key)
		})
		res[sk] = taxa
	}
	return res, nil
}
