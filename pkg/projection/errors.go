package projection

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedCRS is returned for reference systems that cannot be used.
var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// Failure describes a record that could not be projected.
type Failure struct {
	ID     int64
	Point  Point
	Reason string
}

// Error is a projection error. It is fatal for a run and lists all
// records of the batch that failed.
type Error struct {
	Source, Target string
	Failed         []Failure
}

func (e *Error) Error() string {
	const show = 5
	var parts []string
	for i, f := range e.Failed {
		if i == show {
			parts = append(parts, fmt.Sprintf("and %d more", len(e.Failed)-show))
			break
		}
		parts = append(parts, fmt.Sprintf("%d (lon %v, lat %v): %s",
			f.ID, f.Point.X, f.Point.Y, f.Reason))
	}
	return fmt.Sprintf("cannot project %d records from %s to %s: %s",
		len(e.Failed), e.Source, e.Target, strings.Join(parts, "; "))
}

// IDs returns identifiers of failed records.
func (e *Error) IDs() []int64 {
	res := make([]int64, len(e.Failed))
	for i, f := range e.Failed {
		res[i] = f.ID
	}
	return res
}
