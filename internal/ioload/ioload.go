// Package ioload reads GBIF "simple CSV" occurrence downloads into the
// occurrence store. A download is either a tab-separated file with a
// header row, or a zip archive that contains one.
package ioload

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gncube/pkg/filter"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gnfmt"
)

// required columns of the GBIF simple format.
var required = []string{"gbifID", "decimalLatitude", "decimalLongitude"}

// Stats describes a finished load.
type Stats struct {
	// Read is the number of data lines.
	Read int
	// Loaded is the number of records saved to the store.
	Loaded int
	// Malformed lines have unparseable gbifID.
	Malformed int
	// Rejected records by filter reason.
	Rejected map[filter.Reason]int
}

// Loader moves filtered records from a download into a store.
type Loader struct {
	store    occurrence.Store
	filter   *filter.Filter
	batch    int
	progress bool
}

// Option configures Loader.
type Option func(*Loader)

// OptBatchSize sets the number of records per insert.
func OptBatchSize(i int) Option {
	return func(l *Loader) {
		if i > 0 {
			l.batch = i
		}
	}
}

// OptProgress enables a progress bar.
func OptProgress(b bool) Option {
	return func(l *Loader) {
		l.progress = b
	}
}

// New creates a Loader.
func New(store occurrence.Store, f *filter.Filter, opts ...Option) *Loader {
	res := &Loader{store: store, filter: f, batch: 50_000}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Load replaces the content of the store with records from path.
func (l *Loader) Load(ctx context.Context, path string) (Stats, error) {
	start := time.Now()
	rc, size, err := open(path)
	if err != nil {
		return Stats{}, SourceError(path, err)
	}
	defer rc.Close()

	if err = l.store.Reset(ctx); err != nil {
		return Stats{}, err
	}

	var r io.Reader = rc
	if l.progress {
		bar := pb.Full.Start64(size)
		bar.Set("prefix", "Loading occurrences: ")
		bar.Set(pb.Bytes, true)
		bar.Set(pb.CleanOnFinish, true)
		defer bar.Finish()
		r = bar.NewProxyReader(rc)
	}

	res, err := l.read(ctx, path, r)
	if err != nil {
		return res, err
	}

	slog.Info("Occurrences loaded",
		"file", filepath.Base(path),
		"read", humanize.Comma(int64(res.Read)),
		"loaded", humanize.Comma(int64(res.Loaded)),
		"rejected", humanize.Comma(int64(l.filter.Rejected())),
		"malformed", res.Malformed,
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return res, nil
}

func (l *Loader) read(ctx context.Context, path string, r io.Reader) (Stats, error) {
	var res Stats
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return res, SourceError(path, err)
	}
	cols := columns(header)
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			return res, HeaderError(path, c)
		}
	}

	batch := make([]occurrence.Record, 0, l.batch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.store.Insert(ctx, batch); err != nil {
			return err
		}
		res.Loaded += len(batch)
		batch = batch[:0]
		return nil
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, RecordError(path, line, err)
		}
		res.Read++

		rec, ok := parseRecord(cols, row)
		if !ok {
			res.Malformed++
			slog.Warn("Skipping line with bad gbifID", "line", line)
			continue
		}
		if !l.filter.Keep(rec) {
			continue
		}

		batch = append(batch, rec)
		if len(batch) < l.batch {
			continue
		}
		if err = ctx.Err(); err != nil {
			return res, err
		}
		if err = flush(); err != nil {
			return res, err
		}
	}

	if err = flush(); err != nil {
		return res, err
	}
	res.Rejected = l.filter.Counts()
	delete(res.Rejected, filter.Accepted)
	return res, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc readCloser) Close() error {
	var err error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, rc.closers[i].Close())
	}
	return err
}

// open returns a reader of the occurrence table and its size in bytes.
func open(path string) (io.ReadCloser, int64, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, err
		}
		return f, fi.Size(), nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, 0, err
	}
	for _, zf := range zr.File {
		ext := strings.ToLower(filepath.Ext(zf.Name))
		if zf.FileInfo().IsDir() || (ext != ".csv" && ext != ".txt") {
			continue
		}
		f, err := zf.Open()
		if err != nil {
			zr.Close()
			return nil, 0, err
		}
		rc := readCloser{Reader: f, closers: []io.Closer{zr, f}}
		return rc, int64(zf.UncompressedSize64), nil
	}
	zr.Close()
	return nil, 0, errors.New("no occurrence table in zip archive")
}

func columns(header []string) map[string]int {
	res := make(map[string]int, len(header))
	for i, h := range header {
		// the first header field may carry a UTF-8 BOM
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		res[h] = i
	}
	return res
}

func parseRecord(cols map[string]int, row []string) (occurrence.Record, bool) {
	get := func(name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var res occurrence.Record
	id, err := strconv.ParseInt(get("gbifID"), 10, 64)
	if err != nil {
		return res, false
	}

	res = occurrence.Record{
		ID:               id,
		Latitude:         parseCoord(get("decimalLatitude")),
		Longitude:        parseCoord(get("decimalLongitude")),
		ScientificName:   get("scientificName"),
		Kingdom:          get("kingdom"),
		TaxonRank:        get("taxonRank"),
		TaxonomicStatus:  get("taxonomicStatus"),
		Species:          get("species"),
		CountryCode:      get("countryCode"),
		OccurrenceStatus: get("occurrenceStatus"),
		Issues:           get("issue"),
	}

	if f, err := strconv.ParseFloat(get("coordinateUncertaintyInMeters"), 64); err == nil {
		res.Uncertainty = sql.NullFloat64{Float64: f, Valid: true}
	}
	if k, err := strconv.ParseInt(get("speciesKey"), 10, 64); err == nil {
		res.SpeciesKey = sql.NullInt64{Int64: k, Valid: true}
	}
	if k, err := strconv.ParseInt(get("taxonKey"), 10, 64); err == nil {
		res.TaxonKey = k
	}
	if y, err := strconv.ParseInt(get("year"), 10, 16); err == nil {
		res.Year = sql.NullInt16{Int16: int16(y), Valid: true}
	}
	return res, true
}

// parseCoord returns NaN for empty or invalid coordinates.
func parseCoord(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
