// Package grid maps planar points to cells of a square reference grid.
//
// Cell codes follow the EEA reference grid notation, for example
// "1kmE3923N3097" is a 1 km cell with easting index 3923 and northing
// index 3097.
package grid

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/gnames/gncube/pkg/projection"
)

// ErrBadCode is returned when a string is not a valid cell code.
var ErrBadCode = errors.New("bad grid cell code")

// Cell is a grid cell.
type Cell struct {
	// Size is the side of the cell in meters.
	Size int
	// East and North are floor-divided planar coordinates.
	East, North int64
}

// String returns the cell code.
func (c Cell) String() string {
	return fmt.Sprintf("%sE%dN%d", Label(c.Size), c.East, c.North)
}

// Assigner computes cells for points. It is pure and safe for
// concurrent use.
type Assigner struct {
	size  int
	label string
}

// New creates an Assigner for a cell size in meters.
func New(size int) (Assigner, error) {
	if size <= 0 {
		return Assigner{}, fmt.Errorf("cell size has to be positive, got %d", size)
	}
	return Assigner{size: size, label: Label(size)}, nil
}

// Size returns the cell size in meters.
func (a Assigner) Size() int {
	return a.size
}

// Cell returns the cell that contains p.
func (a Assigner) Cell(p projection.Point) Cell {
	return Cell{
		Size:  a.size,
		East:  index(p.X, a.size),
		North: index(p.Y, a.size),
	}
}

// Assign returns the code of the cell that contains p.
func (a Assigner) Assign(p projection.Point) string {
	return a.label + "E" + strconv.FormatInt(index(p.X, a.size), 10) +
		"N" + strconv.FormatInt(index(p.Y, a.size), 10)
}

func index(v float64, size int) int64 {
	return int64(math.Floor(v / float64(size)))
}

// Label returns the resolution part of a cell code: kilometers for
// sizes divisible by 1000, meters otherwise.
func Label(size int) string {
	if size%1000 == 0 {
		return strconv.Itoa(size/1000) + "km"
	}
	return strconv.Itoa(size) + "m"
}

var codeRe = regexp.MustCompile(`^(\d+)(km|m)E(-?\d+)N(-?\d+)$`)

// Parse converts a cell code back to a Cell.
func Parse(code string) (Cell, error) {
	var res Cell
	m := codeRe.FindStringSubmatch(code)
	if m == nil {
		return res, fmt.Errorf("%w: %q", ErrBadCode, code)
	}

	size, err := strconv.Atoi(m[1])
	if err != nil || size == 0 {
		return res, fmt.Errorf("%w: %q", ErrBadCode, code)
	}
	if m[2] == "km" {
		size *= 1000
	}
	res.Size = size

	if res.East, err = strconv.ParseInt(m[3], 10, 64); err != nil {
		return res, fmt.Errorf("%w: %q: %w", ErrBadCode, code, err)
	}
	if res.North, err = strconv.ParseInt(m[4], 10, 64); err != nil {
		return res, fmt.Errorf("%w: %q: %w", ErrBadCode, code, err)
	}
	return res, nil
}

// Center returns the planar center of the cell.
func (c Cell) Center() projection.Point {
	half := float64(c.Size) / 2
	return projection.Point{
		X: float64(c.East)*float64(c.Size) + half,
		Y: float64(c.North)*float64(c.Size) + half,
	}
}
