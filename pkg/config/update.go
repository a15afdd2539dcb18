package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gnames/gn"
)

// Update applies a slice of Option functions to the Config.
// This is the only way to modify a Config after creation.
// Invalid options are rejected with warnings - config remains in valid state.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ToOptions converts the Config to a slice of Option functions.
// Only includes persistent fields appropriate for config.yaml.
// Excludes runtime-only fields (HomeDir).
// Used for round-tripping config.yaml ↔ Config conversions.
//
// Zero values are treated as "not set". For Grid.Seed it means that seed 0
// can only be given through the --seed flag.
func (c *Config) ToOptions() []Option {
	var res []Option
	var s string
	var i int
	s = c.Store.Backend
	if s != "" {
		res = append(res, OptStoreBackend(s))
	}
	s = c.Store.Path
	if s != "" {
		res = append(res, OptStorePath(s))
	}
	i = c.Store.BatchSize
	if i > 0 {
		res = append(res, OptStoreBatchSize(i))
	}

	s = c.Database.Host
	if s != "" {
		res = append(res, OptDatabaseHost(s))
	}
	i = c.Database.Port
	if i > 0 {
		res = append(res, OptDatabasePort(i))
	}
	s = c.Database.User
	if s != "" {
		res = append(res, OptDatabaseUser(s))
	}
	s = c.Database.Password
	if s != "" {
		res = append(res, OptDatabasePassword(s))
	}
	s = c.Database.Database
	if s != "" {
		res = append(res, OptDatabaseDatabase(s))
	}
	s = c.Database.SSLMode
	if s != "" {
		res = append(res, OptDatabaseSSLMode(s))
	}

	s = c.Grid.SourceCRS
	if s != "" {
		res = append(res, OptGridSourceCRS(s))
	}
	s = c.Grid.TargetCRS
	if s != "" {
		res = append(res, OptGridTargetCRS(s))
	}
	i = c.Grid.CellSize
	if i > 0 {
		res = append(res, OptGridCellSize(i))
	}
	i = c.Grid.ChunkSize
	if i > 0 {
		res = append(res, OptGridChunkSize(i))
	}
	if c.Grid.Seed != 0 {
		res = append(res, OptGridSeed(c.Grid.Seed))
	}
	if c.Grid.DefaultUncertainty > 0 {
		res = append(res, OptGridDefaultUncertainty(c.Grid.DefaultUncertainty))
	}

	if c.Filter.Issues != nil {
		res = append(res, OptFilterIssues(c.Filter.Issues))
	}
	if c.Filter.OccurrenceStatuses != nil {
		res = append(res, OptFilterOccurrenceStatuses(c.Filter.OccurrenceStatuses))
	}
	if c.Filter.TaxonomicStatuses != nil {
		res = append(res, OptFilterTaxonomicStatuses(c.Filter.TaxonomicStatuses))
	}
	if c.Filter.Countries != nil {
		res = append(res, OptFilterCountries(c.Filter.Countries))
	}

	s = c.Taxonomy.URL
	if s != "" {
		res = append(res, OptTaxonomyURL(s))
	}
	i = c.Taxonomy.Timeout
	if i > 0 {
		res = append(res, OptTaxonomyTimeout(i))
	}
	i = c.Taxonomy.Retries
	if i > 0 {
		res = append(res, OptTaxonomyRetries(i))
	}
	i = c.Taxonomy.CacheTTL
	if i > 0 {
		res = append(res, OptTaxonomyCacheTTL(i))
	}

	s = c.Export.Dir
	if s != "" {
		res = append(res, OptExportDir(s))
	}
	s = c.Export.Delimiter
	if s != "" {
		res = append(res, OptExportDelimiter(s))
	}
	s = c.Export.NullMarker
	if s != "" {
		res = append(res, OptExportNullMarker(s))
	}

	s = c.Log.Format
	if s != "" {
		res = append(res, OptLogFormat(s))
	}
	s = c.Log.Level
	if s != "" {
		res = append(res, OptLogLevel(s))
	}
	s = c.Log.Destination
	if s != "" {
		res = append(res, OptLogDestination(s))
	}

	i = c.JobsNumber
	if i > 0 {
		res = append(res, OptJobsNumber(i))
	}
	return res
}

func isValidString(name, s string) bool {
	res := s != ""
	if !res {
		gn.Warn("<em>%s</em> cannot be empty, ignoring", name)
	}
	return res
}

func isValidInt(name string, i int) bool {
	res := i > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive number, ignoring %d", name, i)
	}
	return res
}

func isValidNonNegativeInt(name string, i int) bool {
	res := i >= 0
	if !res {
		gn.Warn("<em>%s</em> cannot be negative, ignoring %d", name, i)
	}
	return res
}

func isValidFloat(name string, f float64) bool {
	res := f > 0 && isFinite(f)
	if !res {
		gn.Warn("<em>%s</em> has to be positive number, ignoring %v", name, f)
	}
	return res
}

func isValidEnum(name, val string) bool {
	s := struct{}{}
	data := map[string]map[string]struct{}{
		"Store.Backend": {"sqlite": s, "postgres": s},
		"Database.SSLMode": {"disable": s, "require": s,
			"verify-ca": s, "verify-full": s},
		"Export.Delimiter": {"tab": s, "comma": s},
		"Log.Level":        {"debug": s, "info": s, "warn": s, "error": s},
		"Log.Format":       {"json": s, "text": s, "tint": s},
		"Log.Destination":  {"file": s, "stderr": s, "stdout": s},
	}
	vals := slices.Sorted(maps.Keys(data[name]))
	var lines []string
	for _, v := range vals {
		line := fmt.Sprintf("  * %s", v)
		lines = append(lines, line)
	}
	if _, ok := data[name][val]; ok {
		return true
	}
	gn.Warn(
		"<em>%s</em> does not support '%s' as a value. "+
			"Valid values are: \n%s\nIgnoring...",
		name, val, strings.Join(lines, "\n"),
	)
	return false
}
