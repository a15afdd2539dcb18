/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gncube/internal/ioexport"
	"github.com/gnames/gncube/internal/iotaxonomy"
	app "github.com/gnames/gncube/pkg"
	"github.com/gnames/gncube/pkg/compendium"
	"github.com/gnames/gncube/pkg/cube"
	"github.com/gnames/gncube/pkg/errcode"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/parserpool"
	"github.com/gnames/gncube/pkg/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// getCubeCmd returns the cube command.
func getCubeCmd() *cobra.Command {
	var records bool

	cubeCmd := &cobra.Command{
		Use:   "cube",
		Short: "Aggregate occurrences into a species cube",
		Long: `Count occurrences per year, grid cell and species, and build the
taxonomic compendium of the cube.

Occurrences identified above species rank are not part of the cube.
Species are looked up in the GBIF backbone taxonomy; species that cannot
be looked up are reported and left out of the compendium.

Output (tab-separated by default):
  cube.tsv        year, eeacellcode, specieskey, n,
                  mincoordinateuncertaintyinmeters
  compendium.tsv  specieskey, species, canonicalname, rank,
                  taxonomicstatus, kingdom, includes
  metadata.yaml   grid settings and run fingerprint

Examples:
  gncube cube -o out
  gncube cube -o out --records`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFlag(cmd)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			st, err := openStore(ctx)
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			defer st.Close()

			if err = runCube(ctx, st, records); err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	cubeCmd.Flags().StringP("output", "o", "", "output directory")
	cubeCmd.Flags().BoolVarP(
		&records, "records", "r", false,
		"also export occurrences with assigned cells",
	)
	return cubeCmd
}

func runCube(ctx context.Context, st occurrence.Store, records bool) error {
	exp, err := ioexport.New(cfg.Export)
	if err != nil {
		return err
	}

	pool := parserpool.NewPool(cfg.JobsNumber)
	defer pool.Close()
	builder := compendium.New(
		iotaxonomy.New(cfg.Taxonomy),
		compendium.OptJobsNumber(cfg.JobsNumber),
		compendium.OptCanonicalizer(pool),
	)

	var cb *cube.Result
	var cp *compendium.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cb, err = cube.Aggregate(gctx, st)
		return err
	})
	g.Go(func() error {
		var err error
		cp, err = builder.Build(gctx, st)
		return err
	})
	if err = g.Wait(); err != nil {
		return &gn.Error{
			Code: errcode.CubeAggregateError,
			Msg:  "Cannot aggregate occurrences",
			Err:  fmt.Errorf("cube: %w", err),
		}
	}

	if len(cb.Rows) == 0 && cb.MissingKey() > 0 {
		gn.Warn("Occurrences have no grid cells, run <em>gncube grid</em> first")
	}

	paths := make([]string, 0, 4)
	path, err := exp.Cube(cb.Rows)
	if err != nil {
		return err
	}
	paths = append(paths, path)

	if path, err = exp.Compendium(cp.Rows); err != nil {
		return err
	}
	paths = append(paths, path)

	if records {
		if path, err = exp.Records(ctx, st); err != nil {
			return err
		}
		paths = append(paths, path)
	}

	settings := gridSettings()
	path, err = exp.Metadata(ioexport.Metadata{
		Version:     app.Version,
		RunID:       pipeline.Fingerprint(settings),
		Settings:    settings,
		Records:     cb.Records,
		CubeRows:    len(cb.Rows),
		Excluded:    cb.Excluded(),
		Species:     len(cp.Rows),
		MissingKeys: cp.Missing,
	})
	if err != nil {
		return err
	}
	paths = append(paths, path)

	gn.Info("Cube: <em>%s</em> rows from %s occurrences",
		humanize.Comma(int64(len(cb.Rows))), humanize.Comma(int64(cb.Records)))
	if n := cb.NoSpeciesKey + cb.ZeroSpeciesKey; n > 0 {
		gn.Info("  not identified to species: %s", humanize.Comma(int64(n)))
	}
	if n := cb.MissingKey(); n > 0 {
		gn.Warn("  missing year, cell or uncertainty: <em>%s</em>",
			humanize.Comma(int64(n)))
	}
	gn.Info("Compendium: <em>%s</em> species", humanize.Comma(int64(len(cp.Rows))))
	if n := len(cp.Missing); n > 0 {
		gn.Warn("  species not found in taxonomy: <em>%d</em>", n)
	}
	for _, p := range paths {
		gn.Info("Saved <em>%s</em>", p)
	}
	return nil
}
