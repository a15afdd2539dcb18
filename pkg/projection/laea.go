package projection

import (
	"errors"
	"math"

	"github.com/ctessum/geom/proj"
)

// laeaParams describe an ellipsoidal oblique Lambert Azimuthal Equal Area
// projection (EPSG method 9820).
type laeaParams struct {
	a, invF               float64 // ellipsoid
	lat0, lon0            float64 // natural origin, degrees
	falseEast, falseNorth float64
}

// etrsLAEA is EPSG:3035, ETRS89 on GRS80.
var etrsLAEA = laeaParams{
	a:          6378137.0,
	invF:       298.257222101,
	lat0:       52,
	lon0:       10,
	falseEast:  4321000,
	falseNorth: 3210000,
}

var errAntipode = errors.New("point is antipodal to the projection center")

// newLAEA returns the forward transformation with the formulas of IOGP
// Guidance Note 7-2. It has the same signature as transformers created by
// the proj package so both kinds are interchangeable.
func newLAEA(p laeaParams) proj.Transformer {
	f := 1 / p.invF
	e2 := 2*f - f*f
	e := math.Sqrt(e2)

	q := func(phi float64) float64 {
		s := math.Sin(phi)
		return (1 - e2) * (s/(1-e2*s*s) -
			(1/(2*e))*math.Log((1-e*s)/(1+e*s)))
	}

	phi0 := p.lat0 * math.Pi / 180
	lam0 := p.lon0 * math.Pi / 180
	qP := q(math.Pi / 2)
	beta0 := math.Asin(q(phi0) / qP)
	rq := p.a * math.Sqrt(qP/2)
	sinPhi0 := math.Sin(phi0)
	d := p.a * (math.Cos(phi0) / math.Sqrt(1-e2*sinPhi0*sinPhi0)) /
		(rq * math.Cos(beta0))
	sinB0, cosB0 := math.Sincos(beta0)

	return func(lon, lat float64) (float64, float64, error) {
		phi := lat * math.Pi / 180
		dLam := lon*math.Pi/180 - lam0

		ratio := q(phi) / qP
		// rounding can push |q/qP| over 1 at the poles
		ratio = math.Max(-1, math.Min(1, ratio))
		beta := math.Asin(ratio)
		sinB, cosB := math.Sincos(beta)
		sinL, cosL := math.Sincos(dLam)

		den := 1 + sinB0*sinB + cosB0*cosB*cosL
		if den <= 1e-12 {
			return math.NaN(), math.NaN(), errAntipode
		}
		b := rq * math.Sqrt(2/den)

		x := p.falseEast + (b*d)*cosB*sinL
		y := p.falseNorth + (b/d)*(cosB0*sinB-sinB0*cosB*cosL)
		return x, y, nil
	}
}
