package grid_test

import (
	"errors"
	"testing"

	"github.com/gnames/gncube/pkg/grid"
	"github.com/gnames/gncube/pkg/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := grid.New(0)
	assert.Error(t, err)
	_, err = grid.New(-10)
	assert.Error(t, err)

	a, err := grid.New(1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, a.Size())
}

func TestAssign(t *testing.T) {
	tests := []struct {
		msg  string
		size int
		x, y float64
		code string
	}{
		{"brussels", 1000, 3923550.15, 3097410.48, "1kmE3923N3097"},
		{"cell edge", 1000, 3923000, 3097000, "1kmE3923N3097"},
		{"just below edge", 1000, 3922999.999, 3096999.999, "1kmE3922N3096"},
		{"10 km", 10_000, 3923550.15, 3097410.48, "10kmE392N309"},
		{"meters", 250, 1000.1, 499.9, "250mE4N1"},
		{"negative", 1000, -0.5, -1500, "1kmE-1N-2"},
		{"zero", 1000, 0, 0, "1kmE0N0"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			a, err := grid.New(tt.size)
			require.NoError(t, err)
			p := projection.Point{X: tt.x, Y: tt.y}
			code := a.Assign(p)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.code, a.Cell(p).String())
		})
	}
}

func TestAssignSameCell(t *testing.T) {
	a, err := grid.New(1000)
	require.NoError(t, err)
	pts := []projection.Point{
		{X: 3923000.01, Y: 3097999.99},
		{X: 3923999.99, Y: 3097000},
		{X: 3923500, Y: 3097500},
	}
	for _, p := range pts {
		assert.Equal(t, "1kmE3923N3097", a.Assign(p))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		code string
		cell grid.Cell
		err  bool
	}{
		{"1kmE3923N3097", grid.Cell{Size: 1000, East: 3923, North: 3097}, false},
		{"250mE4N1", grid.Cell{Size: 250, East: 4, North: 1}, false},
		{"1kmE-1N-2", grid.Cell{Size: 1000, East: -1, North: -2}, false},
		{"1kmE3923", grid.Cell{}, true},
		{"0kmE1N1", grid.Cell{}, true},
		{"1miE1N1", grid.Cell{}, true},
		{"", grid.Cell{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cell, err := grid.Parse(tt.code)
			if tt.err {
				assert.True(t, errors.Is(err, grid.ErrBadCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cell, cell)
			assert.Equal(t, tt.code, cell.String())
		})
	}
}

func TestCenter(t *testing.T) {
	c := grid.Cell{Size: 1000, East: 3923, North: 3097}
	a, err := grid.New(1000)
	require.NoError(t, err)
	assert.Equal(t, c, a.Cell(c.Center()))
	assert.Equal(t, projection.Point{X: 3923500, Y: 3097500}, c.Center())
}
