// Package filter removes occurrences that should not be part of a cube:
// records without usable coordinates, with blacklisted GBIF issues,
// occurrence or taxonomic status, or outside of requested countries.
package filter

import (
	"math"
	"strings"

	"github.com/gnames/gncube/pkg/config"
	"github.com/gnames/gncube/pkg/occurrence"
)

// Reason tells why a record was rejected.
type Reason int

const (
	Accepted Reason = iota
	NoCoordinates
	Issue
	OccurrenceStatus
	TaxonomicStatus
	Country
)

var reasonNames = map[Reason]string{
	Accepted:         "accepted",
	NoCoordinates:    "no coordinates",
	Issue:            "issue",
	OccurrenceStatus: "occurrence status",
	TaxonomicStatus:  "taxonomic status",
	Country:          "country",
}

func (r Reason) String() string {
	return reasonNames[r]
}

// Filter is a blacklist predicate. It counts rejected records by
// reason. Filter is not safe for concurrent use.
type Filter struct {
	issues  map[string]struct{}
	occStat map[string]struct{}
	taxStat map[string]struct{}
	country map[string]struct{}
	counts  map[Reason]int
}

// New creates a Filter from configuration.
func New(cfg config.FilterConfig) *Filter {
	return &Filter{
		issues:  toSet(cfg.Issues),
		occStat: toSet(cfg.OccurrenceStatuses),
		taxStat: toSet(cfg.TaxonomicStatuses),
		country: toSet(cfg.Countries),
		counts:  make(map[Reason]int),
	}
}

// Check returns Accepted or the first reason to reject a record and
// updates counts. Missing coordinates are NaN.
func (f *Filter) Check(r occurrence.Record) Reason {
	res := f.reason(r)
	f.counts[res]++
	return res
}

// Keep reports whether a record passes the filter.
func (f *Filter) Keep(r occurrence.Record) bool {
	return f.Check(r) == Accepted
}

// Counts returns the number of records per reason.
func (f *Filter) Counts() map[Reason]int {
	res := make(map[Reason]int, len(f.counts))
	for k, v := range f.counts {
		res[k] = v
	}
	return res
}

// Rejected returns the number of rejected records.
func (f *Filter) Rejected() int {
	var res int
	for k, v := range f.counts {
		if k != Accepted {
			res += v
		}
	}
	return res
}

func (f *Filter) reason(r occurrence.Record) Reason {
	if math.IsNaN(r.Latitude) || math.IsNaN(r.Longitude) {
		return NoCoordinates
	}
	if len(f.issues) > 0 && r.Issues != "" {
		for _, iss := range strings.Split(r.Issues, ";") {
			if in(f.issues, iss) {
				return Issue
			}
		}
	}
	if in(f.occStat, r.OccurrenceStatus) {
		return OccurrenceStatus
	}
	if in(f.taxStat, r.TaxonomicStatus) {
		return TaxonomicStatus
	}
	if len(f.country) > 0 && !in(f.country, r.CountryCode) {
		return Country
	}
	return Accepted
}

func in(set map[string]struct{}, s string) bool {
	if len(set) == 0 {
		return false
	}
	_, ok := set[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

func toSet(ss []string) map[string]struct{} {
	res := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			res[s] = struct{}{}
		}
	}
	return res
}
