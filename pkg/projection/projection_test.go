package projection_test

import (
	"errors"
	"math"
	"testing"

	"github.com/gnames/gncube/pkg/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		msg      string
		src, dst string
		err      bool
	}{
		{"default", "EPSG:4326", "EPSG:3035", false},
		{"lowercase code", "epsg:4326", "epsg:3035", false},
		{"web mercator", "EPSG:4326", "EPSG:3857", false},
		{"proj4 target", "+proj=longlat",
			"+proj=merc +a=6378137 +b=6378137 +units=m +no_defs", false},
		{"projected source", "EPSG:3035", "EPSG:4326", true},
		{"geographic target", "EPSG:4326", "+proj=longlat", true},
		{"unknown code", "EPSG:4326", "EPSG:9999999", true},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			p, err := projection.New(tt.src, tt.dst)
			if tt.err {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, projection.ErrUnsupportedCRS))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, p.Source())
			assert.NotEmpty(t, p.Target())
		})
	}
}

func TestProjectLAEA(t *testing.T) {
	p, err := projection.New(projection.WGS84, projection.LAEAEurope)
	require.NoError(t, err)

	tests := []struct {
		msg      string
		lon, lat float64
		x, y     float64
		delta    float64
	}{
		{"natural origin", 10, 52, 4321000, 3210000, 1e-6},
		{"reference point", 5, 50, 3962799.45, 2999718.85, 0.02},
		{"brussels", 4.35, 50.85, 3923550.15, 3097410.48, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			res, err := p.Project([]int64{1},
				[]projection.Point{{X: tt.lon, Y: tt.lat}})
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.InDelta(t, tt.x, res[0].X, tt.delta)
			assert.InDelta(t, tt.y, res[0].Y, tt.delta)
		})
	}
}

func TestProjectMercator(t *testing.T) {
	p, err := projection.New(projection.WGS84, projection.WebMercator)
	require.NoError(t, err)

	res, err := p.Project([]int64{1, 2},
		[]projection.Point{{X: 0, Y: 0}, {X: 10, Y: 0}})
	require.NoError(t, err)
	assert.InDelta(t, 0, res[0].X, 1e-6)
	assert.InDelta(t, 0, res[0].Y, 1e-6)
	assert.InDelta(t, 6378137*10*math.Pi/180, res[1].X, 1e-3)
}

func TestProjectErrors(t *testing.T) {
	p, err := projection.New(projection.WGS84, projection.LAEAEurope)
	require.NoError(t, err)

	ids := []int64{1, 2, 3, 4, 5}
	pts := []projection.Point{
		{X: 4.35, Y: 50.85},
		{X: 4.35, Y: 91},
		{X: 181, Y: 50},
		{X: math.NaN(), Y: 50},
		{X: -170, Y: -52},
	}
	res, err := p.Project(ids, pts)
	assert.Nil(t, res)
	require.Error(t, err)

	var perr *projection.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []int64{2, 3, 4, 5}, perr.IDs())
	assert.Equal(t, projection.LAEAEurope, perr.Target)
	assert.Contains(t, err.Error(), "cannot project 4 records")

	_, err = p.Project([]int64{1}, nil)
	assert.Error(t, err)
}

func TestProjectDeterministic(t *testing.T) {
	p, err := projection.New(projection.WGS84, projection.LAEAEurope)
	require.NoError(t, err)
	pts := []projection.Point{{X: 12.5, Y: 41.9}, {X: -3.7, Y: 40.4}}
	ids := []int64{1, 2}
	a, err := p.Project(ids, pts)
	require.NoError(t, err)
	b, err := p.Project(ids, pts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
