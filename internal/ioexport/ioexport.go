// Package ioexport writes species cubes, taxonomic compendiums and
// enriched occurrences as delimited text, together with a metadata
// file that records settings of the run.
package ioexport

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gnames/gncube/pkg/compendium"
	"github.com/gnames/gncube/pkg/config"
	"github.com/gnames/gncube/pkg/cube"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/pipeline"
	"gopkg.in/yaml.v3"
)

const (
	CubeFile       = "cube"
	CompendiumFile = "compendium"
	RecordsFile    = "occurrences"
	MetadataFile   = "metadata.yaml"
)

var (
	cubeHeader = []string{
		"year", "eeacellcode", "specieskey", "n",
		"mincoordinateuncertaintyinmeters",
	}

	compendiumHeader = []string{
		"specieskey", "species", "canonicalname", "rank",
		"taxonomicstatus", "kingdom", "includes",
	}

	recordsHeader = []string{
		"gbifid", "decimallatitude", "decimallongitude",
		"coordinateuncertaintyinmeters", "year", "specieskey", "taxonkey",
		"scientificname", "kingdom", "countrycode", "eeacellcode",
	}
)

// Exporter writes files into one directory.
type Exporter struct {
	dir   string
	comma rune
	ext   string
	null  string
}

// New creates an Exporter and its output directory.
func New(cfg config.ExportConfig) (*Exporter, error) {
	res := &Exporter{
		dir:   cfg.Dir,
		comma: '\t',
		ext:   ".tsv",
		null:  cfg.NullMarker,
	}
	if cfg.Delimiter == "comma" {
		res.comma = ','
		res.ext = ".csv"
	}
	if err := os.MkdirAll(res.dir, 0755); err != nil {
		return nil, CreateDirError(res.dir, err)
	}
	return res, nil
}

// Path returns the location of an output file.
func (e *Exporter) Path(name string) string {
	if name == MetadataFile {
		return filepath.Join(e.dir, name)
	}
	return filepath.Join(e.dir, name+e.ext)
}

// Cube writes cube rows.
func (e *Exporter) Cube(rows []cube.Row) (string, error) {
	return e.write(CubeFile, cubeHeader, func(w *csv.Writer) error {
		for _, r := range rows {
			err := w.Write([]string{
				strconv.Itoa(int(r.Year)),
				r.CellCode,
				strconv.FormatInt(r.SpeciesKey, 10),
				strconv.Itoa(r.Count),
				formatFloat(r.MinUncertainty),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Compendium writes compendium rows.
func (e *Exporter) Compendium(rows []compendium.Row) (string, error) {
	return e.write(CompendiumFile, compendiumHeader, func(w *csv.Writer) error {
		for _, r := range rows {
			err := w.Write([]string{
				strconv.FormatInt(r.Key, 10),
				e.str(r.ScientificName),
				e.str(r.CanonicalName),
				e.str(r.Rank),
				e.str(r.TaxonomicStatus),
				e.str(r.Kingdom),
				e.str(r.Includes()),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Records writes enriched occurrences of the scanner.
func (e *Exporter) Records(ctx context.Context, sc occurrence.Scanner) (string, error) {
	return e.write(RecordsFile, recordsHeader, func(w *csv.Writer) error {
		return sc.Scan(ctx, func(r occurrence.Record) error {
			row := []string{
				strconv.FormatInt(r.ID, 10),
				formatFloat(r.Latitude),
				formatFloat(r.Longitude),
				e.null,
				e.null,
				e.null,
				strconv.FormatInt(r.TaxonKey, 10),
				e.str(r.ScientificName),
				e.str(r.Kingdom),
				e.str(r.CountryCode),
				e.null,
			}
			if r.Uncertainty.Valid {
				row[3] = formatFloat(r.Uncertainty.Float64)
			}
			if r.Year.Valid {
				row[4] = strconv.Itoa(int(r.Year.Int16))
			}
			if r.SpeciesKey.Valid {
				row[5] = strconv.FormatInt(r.SpeciesKey.Int64, 10)
			}
			if r.CellCode.Valid {
				row[10] = r.CellCode.String
			}
			return w.Write(row)
		})
	})
}

// Metadata describes an export.
type Metadata struct {
	Version     string            `yaml:"version,omitempty"`
	RunID       string            `yaml:"run_id"`
	Settings    pipeline.Settings `yaml:"settings"`
	Records     int               `yaml:"records"`
	CubeRows    int               `yaml:"cube_rows"`
	Excluded    int               `yaml:"excluded_records"`
	Species     int               `yaml:"species"`
	MissingKeys []int64           `yaml:"missing_species_keys,omitempty"`
	NullMarker  string            `yaml:"null_marker"`
	Delimiter   string            `yaml:"delimiter"`
	CreatedAt   time.Time         `yaml:"created_at"`
}

// Metadata writes metadata.yaml.
func (e *Exporter) Metadata(m Metadata) (string, error) {
	path := e.Path(MetadataFile)
	m.NullMarker = e.null
	m.Delimiter = "tab"
	if e.comma == ',' {
		m.Delimiter = "comma"
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return "", WriteError(path, err)
	}
	if err = os.WriteFile(path, data, 0644); err != nil {
		return "", WriteError(path, err)
	}
	return path, nil
}

func (e *Exporter) write(
	name string,
	header []string,
	fn func(*csv.Writer) error,
) (string, error) {
	path := e.Path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", WriteError(path, err)
	}
	defer f.Close()

	if err = e.encode(f, header, fn); err != nil {
		return "", WriteError(path, err)
	}
	if err = f.Close(); err != nil {
		return "", WriteError(path, err)
	}
	slog.Info("File exported", "path", path)
	return path, nil
}

func (e *Exporter) encode(
	out io.Writer,
	header []string,
	fn func(*csv.Writer) error,
) error {
	w := csv.NewWriter(out)
	w.Comma = e.comma
	if err := w.Write(header); err != nil {
		return err
	}
	if err := fn(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// str writes the null marker for empty values.
func (e *Exporter) str(s string) string {
	if s == "" {
		return e.null
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
