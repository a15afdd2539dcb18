package pipeline

import (
	"fmt"
	"strconv"

	"github.com/gnames/gnuuid"
)

// Settings are values that define the outcome of a run. Two runs with
// equal Settings over the same records produce the same cells.
type Settings struct {
	SourceCRS          string  `yaml:"source_crs"`
	TargetCRS          string  `yaml:"target_crs"`
	CellSize           int     `yaml:"cell_size"`
	ChunkSize          int     `yaml:"chunk_size"`
	Seed               int64   `yaml:"seed"`
	DefaultUncertainty float64 `yaml:"default_uncertainty"`
}

// Fingerprint returns a UUID v5 of the settings. It is used as a run ID
// so a resumed run continues only runs with identical settings.
func Fingerprint(s Settings) string {
	key := fmt.Sprintf("%s|%s|%d|%d|%d|%s",
		s.SourceCRS, s.TargetCRS, s.CellSize, s.ChunkSize, s.Seed,
		strconv.FormatFloat(s.DefaultUncertainty, 'g', -1, 64),
	)
	return gnuuid.New(key).String()
}
