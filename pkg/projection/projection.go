// Package projection converts geographic coordinates of occurrences into
// planar coordinates of a projected reference system.
//
// A Projector is created once per run for a fixed pair of reference
// systems. Changing the pair changes every downstream cell assignment.
// The default pair is WGS84 (EPSG:4326) to ETRS89-LAEA (EPSG:3035), the
// projection of the EEA reference grid.
package projection

import (
	"fmt"
	"math"
	"strings"

	"github.com/ctessum/geom/proj"
)

// Point is a pair of coordinates. For geographic coordinates X is
// longitude and Y is latitude, in degrees. For projected coordinates they
// are easting and northing in meters.
type Point struct {
	X, Y float64
}

const (
	// WGS84 is the geographic reference system of GBIF coordinates.
	WGS84 = "EPSG:4326"
	// LAEAEurope is ETRS89 Lambert Azimuthal Equal Area.
	LAEAEurope = "EPSG:3035"
	// WebMercator is the spherical Mercator used by web maps.
	WebMercator = "EPSG:3857"
)

// proj4 definitions of known codes.
var proj4Defs = map[string]string{
	WGS84: "+proj=longlat",
	WebMercator: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 " +
		"+x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs",
}

// Projector reprojects batches of geographic points.
// It is safe for concurrent use.
type Projector struct {
	source, target string
	trans          proj.Transformer
}

// New creates a Projector from source to target reference systems.
// The source has to be geographic. Both can be given as "EPSG:<code>"
// for known codes or as proj4 strings.
func New(source, target string) (*Projector, error) {
	source = normCRS(source)
	target = normCRS(target)

	if !isGeographic(source) {
		return nil, fmt.Errorf("%w: source %q is not geographic",
			ErrUnsupportedCRS, source)
	}
	if isGeographic(target) {
		return nil, fmt.Errorf("%w: target %q is not projected",
			ErrUnsupportedCRS, target)
	}

	res := &Projector{source: source, target: target}
	if target == LAEAEurope {
		res.trans = newLAEA(etrsLAEA)
		return res, nil
	}

	srcDef, err := proj4(source)
	if err != nil {
		return nil, err
	}
	dstDef, err := proj4(target)
	if err != nil {
		return nil, err
	}

	srcSR, err := proj.Parse(srcDef)
	if err != nil {
		return nil, fmt.Errorf("while parsing %q: %w", source, err)
	}
	dstSR, err := proj.Parse(dstDef)
	if err != nil {
		return nil, fmt.Errorf("while parsing %q: %w", target, err)
	}
	res.trans, err = srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, fmt.Errorf("while creating transform %s -> %s: %w",
			source, target, err)
	}
	return res, nil
}

// Source returns the source reference system.
func (p *Projector) Source() string {
	return p.source
}

// Target returns the target reference system.
func (p *Projector) Target() string {
	return p.target
}

// Project converts geographic points (longitude, latitude) to planar
// points. ids identify the records behind pts and are used only for error
// reporting. Either all points are projected or an *Error listing every
// failing record is returned.
func (p *Projector) Project(ids []int64, pts []Point) ([]Point, error) {
	if len(ids) != len(pts) {
		return nil, fmt.Errorf("got %d ids for %d points", len(ids), len(pts))
	}

	res := make([]Point, len(pts))
	var failed []Failure
	for i, pt := range pts {
		if reason := checkDomain(pt); reason != "" {
			failed = append(failed, Failure{ID: ids[i], Point: pt, Reason: reason})
			continue
		}
		x, y, err := p.trans(pt.X, pt.Y)
		if err != nil {
			failed = append(failed,
				Failure{ID: ids[i], Point: pt, Reason: err.Error()})
			continue
		}
		if !finite(x) || !finite(y) {
			failed = append(failed,
				Failure{ID: ids[i], Point: pt, Reason: "no finite projection"})
			continue
		}
		res[i] = Point{X: x, Y: y}
	}

	if len(failed) > 0 {
		return nil, &Error{Source: p.source, Target: p.target, Failed: failed}
	}
	return res, nil
}

func checkDomain(pt Point) string {
	switch {
	case !finite(pt.X) || !finite(pt.Y):
		return "coordinate is not a finite number"
	case pt.Y < -90 || pt.Y > 90:
		return "latitude out of range"
	case pt.X < -180 || pt.X > 180:
		return "longitude out of range"
	}
	return ""
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func normCRS(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToUpper(s), "EPSG:") {
		return strings.ToUpper(s)
	}
	return s
}

func isGeographic(crs string) bool {
	if crs == WGS84 {
		return true
	}
	return strings.Contains(crs, "+proj=longlat") ||
		strings.Contains(crs, "+proj=latlong")
}

func proj4(crs string) (string, error) {
	if def, ok := proj4Defs[crs]; ok {
		return def, nil
	}
	if strings.HasPrefix(crs, "+proj=") {
		return crs, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCRS, crs)
}
