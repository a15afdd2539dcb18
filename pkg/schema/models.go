// Package schema provides database models of the occurrence store.
// The same models describe the embedded SQLite store (through DDL tags)
// and the PostgreSQL store (through GORM tags).
package schema

import (
	"database/sql"
	"time"

	"github.com/gnames/gncube/pkg/occurrence"
)

// DDLGenerator defines how Go models generate DDL.
type DDLGenerator interface {
	// TableDDL returns the CREATE TABLE statement for this model.
	TableDDL() string

	// IndexDDL returns CREATE INDEX statements for this model.
	// Returns empty slice if no indexes needed.
	IndexDDL() []string

	// TableName returns the table name for this model.
	TableName() string
}

// Occurrence is a GBIF occurrence record. Column names follow GBIF
// simple download terms.
type Occurrence struct {
	// GbifID is the GBIF identifier of the occurrence.
	GbifID int64 `db:"gbif_id" ddl:"INTEGER PRIMARY KEY" gorm:"column:gbif_id;primaryKey;autoIncrement:false"`

	DecimalLatitude  float64 `db:"decimal_latitude" ddl:"REAL NOT NULL" gorm:"column:decimal_latitude;type:double precision;not null"`
	DecimalLongitude float64 `db:"decimal_longitude" ddl:"REAL NOT NULL" gorm:"column:decimal_longitude;type:double precision;not null"`

	// CoordinateUncertaintyInMeters is NULL or 0 before normalization.
	CoordinateUncertaintyInMeters sql.NullFloat64 `db:"coordinate_uncertainty_in_meters" ddl:"REAL" gorm:"column:coordinate_uncertainty_in_meters;type:double precision"`

	// SpeciesKey is NULL or 0 for records identified above species.
	SpeciesKey sql.NullInt64 `db:"species_key" ddl:"INTEGER" gorm:"column:species_key;type:bigint;index"`

	TaxonKey       int64         `db:"taxon_key" ddl:"INTEGER NOT NULL" gorm:"column:taxon_key;not null"`
	ScientificName string        `db:"scientific_name" ddl:"TEXT" gorm:"column:scientific_name"`
	Year           sql.NullInt16 `db:"year" ddl:"INTEGER" gorm:"column:year;type:smallint"`

	Kingdom          string `db:"kingdom" ddl:"TEXT" gorm:"column:kingdom"`
	TaxonRank        string `db:"taxon_rank" ddl:"TEXT" gorm:"column:taxon_rank"`
	TaxonomicStatus  string `db:"taxonomic_status" ddl:"TEXT" gorm:"column:taxonomic_status"`
	Species          string `db:"species" ddl:"TEXT" gorm:"column:species"`
	CountryCode      string `db:"country_code" ddl:"TEXT" gorm:"column:country_code"`
	OccurrenceStatus string `db:"occurrence_status" ddl:"TEXT" gorm:"column:occurrence_status"`
	Issue            string `db:"issue" ddl:"TEXT" gorm:"column:issue"`

	// EEACellCode is the assigned grid cell.
	EEACellCode sql.NullString `db:"eea_cell_code" ddl:"TEXT" gorm:"column:eea_cell_code;type:text"`
}

// GridCursor is the last committed chunk of a grid assignment run.
type GridCursor struct {
	RunID     string    `db:"run_id" ddl:"TEXT PRIMARY KEY" gorm:"column:run_id;primaryKey"`
	Chunk     int       `db:"chunk" ddl:"INTEGER NOT NULL" gorm:"column:chunk;not null"`
	LastID    int64     `db:"last_id" ddl:"INTEGER NOT NULL" gorm:"column:last_id;not null"`
	Records   int       `db:"records" ddl:"INTEGER NOT NULL" gorm:"column:records;not null"`
	RNG       []byte    `db:"rng" ddl:"BLOB" gorm:"column:rng"`
	UpdatedAt time.Time `db:"updated_at" ddl:"TIMESTAMP" gorm:"column:updated_at"`
}

// NewOccurrence converts a record to a model.
func NewOccurrence(r occurrence.Record) Occurrence {
	return Occurrence{
		GbifID:                        r.ID,
		DecimalLatitude:               r.Latitude,
		DecimalLongitude:              r.Longitude,
		CoordinateUncertaintyInMeters: r.Uncertainty,
		SpeciesKey:                    r.SpeciesKey,
		TaxonKey:                      r.TaxonKey,
		ScientificName:                r.ScientificName,
		Year:                          r.Year,
		Kingdom:                       r.Kingdom,
		TaxonRank:                     r.TaxonRank,
		TaxonomicStatus:               r.TaxonomicStatus,
		Species:                       r.Species,
		CountryCode:                   r.CountryCode,
		OccurrenceStatus:              r.OccurrenceStatus,
		Issue:                         r.Issues,
		EEACellCode:                   r.CellCode,
	}
}

// Record converts a model to a record.
func (o Occurrence) Record() occurrence.Record {
	return occurrence.Record{
		ID:               o.GbifID,
		Latitude:         o.DecimalLatitude,
		Longitude:        o.DecimalLongitude,
		Uncertainty:      o.CoordinateUncertaintyInMeters,
		SpeciesKey:       o.SpeciesKey,
		TaxonKey:         o.TaxonKey,
		ScientificName:   o.ScientificName,
		Year:             o.Year,
		Kingdom:          o.Kingdom,
		TaxonRank:        o.TaxonRank,
		TaxonomicStatus:  o.TaxonomicStatus,
		Species:          o.Species,
		CountryCode:      o.CountryCode,
		OccurrenceStatus: o.OccurrenceStatus,
		Issues:           o.Issue,
		CellCode:         o.EEACellCode,
	}
}

// Values returns column values in the order of Columns.
func (o Occurrence) Values() []any {
	return []any{
		o.GbifID, o.DecimalLatitude, o.DecimalLongitude,
		o.CoordinateUncertaintyInMeters, o.SpeciesKey, o.TaxonKey,
		o.ScientificName, o.Year, o.Kingdom, o.TaxonRank, o.TaxonomicStatus,
		o.Species, o.CountryCode, o.OccurrenceStatus, o.Issue, o.EEACellCode,
	}
}

// ScanDest returns pointers to fields in the order of Columns.
func (o *Occurrence) ScanDest() []any {
	return []any{
		&o.GbifID, &o.DecimalLatitude, &o.DecimalLongitude,
		&o.CoordinateUncertaintyInMeters, &o.SpeciesKey, &o.TaxonKey,
		&o.ScientificName, &o.Year, &o.Kingdom, &o.TaxonRank, &o.TaxonomicStatus,
		&o.Species, &o.CountryCode, &o.OccurrenceStatus, &o.Issue, &o.EEACellCode,
	}
}

// NewGridCursor converts a cursor to a model.
func NewGridCursor(c occurrence.Cursor) GridCursor {
	return GridCursor{
		RunID:     c.RunID,
		Chunk:     c.Chunk,
		LastID:    c.LastID,
		Records:   c.Records,
		RNG:       c.RNG,
		UpdatedAt: time.Now().UTC(),
	}
}

// Cursor converts a model to a cursor.
func (g GridCursor) Cursor() occurrence.Cursor {
	return occurrence.Cursor{
		RunID:   g.RunID,
		Chunk:   g.Chunk,
		LastID:  g.LastID,
		Records: g.Records,
		RNG:     g.RNG,
	}
}
