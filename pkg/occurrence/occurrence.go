// Package occurrence defines GBIF occurrence records and the contract of
// the Coordinate Store that owns them during a run.
// This is a pure package; I/O implementations of Store live in internal/.
package occurrence

import (
	"context"
	"database/sql"
)

// Record is a single GBIF occurrence.
type Record struct {
	// ID is the GBIF identifier of the occurrence (gbifID).
	ID int64

	// Latitude is decimalLatitude in degrees.
	Latitude float64

	// Longitude is decimalLongitude in degrees.
	Longitude float64

	// Uncertainty is coordinateUncertaintyInMeters. It is NULL or zero for
	// many records until normalized.
	Uncertainty sql.NullFloat64

	// SpeciesKey is the GBIF key of the species the record resolves to.
	// NULL or 0 means the occurrence is identified above species rank.
	SpeciesKey sql.NullInt64

	// TaxonKey is the GBIF key of the taxon the record was identified as.
	// It can be a synonym or an infraspecific taxon of SpeciesKey.
	TaxonKey int64

	// ScientificName is the name of the TaxonKey taxon.
	ScientificName string

	// Year of the observation.
	Year sql.NullInt16

	// Passthrough descriptive fields.
	Kingdom          string
	TaxonRank        string
	TaxonomicStatus  string
	Species          string
	CountryCode      string
	OccurrenceStatus string

	// Issues are GBIF interpretation flags separated by ';'.
	Issues string

	// CellCode is the grid cell assigned by the pipeline.
	CellCode sql.NullString
}

// CellUpdate carries values computed by the grid-assignment pipeline
// for one record.
type CellUpdate struct {
	ID          int64
	Uncertainty float64
	CellCode    string
}

// Cursor marks the last committed chunk of a grid-assignment run. It is
// persisted together with the chunk, so a run can be resumed at a chunk
// boundary with the same random stream state.
type Cursor struct {
	// RunID is the fingerprint of the grid settings of the run.
	RunID string

	// Chunk is the zero-based index of the last committed chunk.
	Chunk int

	// LastID is the ID of the last record of that chunk.
	LastID int64

	// Records is the number of records committed so far.
	Records int

	// RNG is the serialized state of the random stream after the chunk.
	RNG []byte
}

// Scanner iterates over all records in ascending ID order. Scans are
// read-only and may run concurrently with each other.
type Scanner interface {
	Scan(ctx context.Context, fn func(Record) error) error
}

// Store is the Coordinate Store. It exclusively owns occurrence records
// for the lifetime of a pipeline run. Records are keyed by ID; inserting
// an existing ID replaces the record.
type Store interface {
	Scanner

	// Insert adds or replaces records.
	Insert(ctx context.Context, recs []Record) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Chunk returns up to limit records with ID greater than afterID,
	// in ascending ID order.
	Chunk(ctx context.Context, afterID int64, limit int) ([]Record, error)

	// UpdateCells writes uncertainty and cell code of a chunk and saves
	// the cursor. Either all updates and the cursor are stored or none.
	UpdateCells(ctx context.Context, ups []CellUpdate, cur Cursor) error

	// Cursor returns the saved cursor of a run.
	Cursor(ctx context.Context, runID string) (Cursor, bool, error)

	// Reset removes all records and cursors.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Analyzer is implemented by stores that can refresh planner
// statistics after bulk updates.
type Analyzer interface {
	Analyze(ctx context.Context) error
}
