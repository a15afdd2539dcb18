// Package parserpool provides a pool of gnparser instances for concurrent
// name parsing. Compendium rows use it to get canonical forms of species
// names. This is a pure package - parsing is computation, not I/O.
package parserpool

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gnparser"
	"github.com/gnames/gnparser/ent/parsed"
)

// Pool provides a pool of gnparser instances for concurrent parsing.
// It maintains separate pools for botanical and zoological nomenclatural codes.
type Pool interface {
	// Parse parses a scientific name string using the specified nomenclatural code.
	// This method is safe for concurrent use.
	Parse(nameString string, code nomcode.Code) (parsed.Parsed, error)

	// Canonical returns the simple canonical form of a name, choosing the
	// nomenclatural code from the GBIF kingdom. Empty string means the
	// name could not be parsed.
	Canonical(nameString, kingdom string) string

	// Close shuts down the parser pools and releases resources.
	// After calling Close, the pool should not be used.
	Close()
}

// PoolImpl implements the Pool interface using gnparser.NewPool.
type PoolImpl struct {
	botanicalCh  chan gnparser.GNparser
	zoologicalCh chan gnparser.GNparser
	poolSize     int
}

// NewPool creates a new parser pool with the specified number of workers.
// If jobsNum is 0, it defaults to runtime.NumCPU().
// Total parsers created = 2 * poolsSize (one pool per nomenclatural code).
func NewPool(jobsNum int) Pool {
	poolSize := jobsNum
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}

	botanicalCfg := gnparser.NewConfig(gnparser.OptCode(nomcode.Botanical))
	botanicalCh := gnparser.NewPool(botanicalCfg, poolSize)

	zoologicalCfg := gnparser.NewConfig(gnparser.OptCode(nomcode.Zoological))
	zoologicalCh := gnparser.NewPool(zoologicalCfg, poolSize)

	return &PoolImpl{
		botanicalCh:  botanicalCh,
		zoologicalCh: zoologicalCh,
		poolSize:     poolSize,
	}
}

// CodeForKingdom returns the nomenclatural code that governs names of a
// GBIF kingdom. Plants, fungi and chromists follow the botanical code,
// everything else is parsed as zoological.
func CodeForKingdom(kingdom string) nomcode.Code {
	switch strings.ToLower(strings.TrimSpace(kingdom)) {
	case "plantae", "fungi", "chromista":
		return nomcode.Botanical
	default:
		return nomcode.Zoological
	}
}

// Parse parses a scientific name string using the specified nomenclatural code.
// It selects the appropriate parser pool based on the code, retrieves a parser,
// parses the name, returns the parser to the pool, and returns the parsed result.
func (p *PoolImpl) Parse(nameString string, code nomcode.Code) (parsed.Parsed, error) {
	var ch chan gnparser.GNparser
	switch code {
	case nomcode.Botanical:
		ch = p.botanicalCh
	case nomcode.Zoological:
		ch = p.zoologicalCh
	default:
		return parsed.Parsed{}, fmt.Errorf("unsupported nomenclatural code: %v", code)
	}

	// blocks if all parsers are busy
	parser := <-ch
	result := parser.ParseName(nameString)
	ch <- parser

	return result, nil
}

// Canonical returns the simple canonical form of a name.
func (p *PoolImpl) Canonical(nameString, kingdom string) string {
	if strings.TrimSpace(nameString) == "" {
		return ""
	}
	res, err := p.Parse(nameString, CodeForKingdom(kingdom))
	if err != nil || !res.Parsed || res.Canonical == nil {
		return ""
	}
	return res.Canonical.Simple
}

// Close shuts down both parser pools and releases resources.
func (p *PoolImpl) Close() {
	if p.botanicalCh != nil {
		close(p.botanicalCh)
		for range p.botanicalCh {
		}
	}

	if p.zoologicalCh != nil {
		close(p.zoologicalCh)
		for range p.zoologicalCh {
		}
	}
}
