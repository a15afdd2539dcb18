package pipeline

import (
	"errors"
	"math"

	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/projection"
	"github.com/gnames/gncube/pkg/sampler"
	"github.com/gnames/gncube/pkg/uncertainty"
	"golang.org/x/sync/errgroup"
)

// processChunk computes cell updates of a chunk. It returns the updates
// and the number of records that got the default uncertainty.
func (p *Pipeline) processChunk(
	recs []occurrence.Record,
	smp *sampler.Sampler,
) ([]occurrence.CellUpdate, int, error) {
	n := len(recs)
	ids := make([]int64, n)
	geo := make([]projection.Point, n)
	radii := make([]float64, n)

	var subst int
	for i := range recs {
		r := recs[i]
		if uncertainty.NormalizeRecord(&r, p.defaultUnc) {
			subst++
		}
		ids[i] = r.ID
		geo[i] = projection.Point{X: r.Longitude, Y: r.Latitude}
		radii[i] = r.Uncertainty.Float64
	}

	planar, err := p.project(ids, geo)
	if err != nil {
		return nil, 0, err
	}

	draws := smp.Draw(n)

	ups := make([]occurrence.CellUpdate, n)
	parts := ranges(n, p.jobs)
	failed := make([][]int64, len(parts))
	var g errgroup.Group
	for w, rng := range parts {
		g.Go(func() error {
			for i := rng[0]; i < rng[1]; i++ {
				pt := sampler.Offset(planar[i], radii[i], draws, i)
				if math.IsNaN(pt.X) || math.IsNaN(pt.Y) ||
					math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
					failed[w] = append(failed[w], ids[i])
					continue
				}
				ups[i] = occurrence.CellUpdate{
					ID:          ids[i],
					Uncertainty: radii[i],
					CellCode:    p.assigner.Assign(pt),
				}
			}
			if len(failed[w]) > 0 {
				return &SamplingError{IDs: failed[w]}
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		// Wait keeps only the first error, merge all parts
		var bad []int64
		for _, f := range failed {
			bad = append(bad, f...)
		}
		return nil, 0, &SamplingError{IDs: bad}
	}
	return ups, subst, nil
}

// project runs the projector over parts of the chunk in parallel and
// merges failures of all parts in input order.
func (p *Pipeline) project(
	ids []int64,
	pts []projection.Point,
) ([]projection.Point, error) {
	parts := ranges(len(pts), p.jobs)
	if len(parts) == 1 {
		return p.projector.Project(ids, pts)
	}

	res := make([]projection.Point, len(pts))
	errs := make([]error, len(parts))
	var g errgroup.Group
	for w, rng := range parts {
		g.Go(func() error {
			out, err := p.projector.Project(ids[rng[0]:rng[1]], pts[rng[0]:rng[1]])
			if err != nil {
				errs[w] = err
				return err
			}
			copy(res[rng[0]:rng[1]], out)
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		return res, nil
	}

	var merged *projection.Error
	for _, err := range errs {
		if err == nil {
			continue
		}
		var perr *projection.Error
		if !errors.As(err, &perr) {
			return nil, err
		}
		if merged == nil {
			merged = &projection.Error{Source: perr.Source, Target: perr.Target}
		}
		merged.Failed = append(merged.Failed, perr.Failed...)
	}
	return nil, merged
}

// ranges splits [0, n) into at most parts contiguous half-open ranges.
func ranges(n, parts int) [][2]int {
	if parts < 1 {
		parts = 1
	}
	if n < parts {
		parts = max(n, 1)
	}
	res := make([][2]int, 0, parts)
	size := n / parts
	rem := n % parts
	var start int
	for i := range parts {
		end := start + size
		if i < rem {
			end++
		}
		res = append(res, [2]int{start, end})
		start = end
	}
	return res
}
