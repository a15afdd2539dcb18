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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gncube/pkg/errcode"
	"github.com/gnames/gncube/pkg/grid"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/gnames/gncube/pkg/pipeline"
	"github.com/gnames/gncube/pkg/projection"
	"github.com/gnames/gncube/pkg/sampler"
	"github.com/gnames/gnfmt"
	"github.com/spf13/cobra"
)

// getGridCmd returns the grid command.
func getGridCmd() *cobra.Command {
	var resume bool

	gridCmd := &cobra.Command{
		Use:   "grid",
		Short: "Assign grid cells to loaded occurrences",
		Long: `Assign a grid cell to every occurrence in the store.

For each record a random point is drawn inside its coordinate
uncertainty circle (records without uncertainty get the default
radius), and the point is placed into a cell of the grid. Records are
processed in chunks; every committed chunk is saved together with the
state of the random stream.

If a chunk fails (for example, a record has coordinates that cannot be
projected), the IDs of the offending records are reported. After fixing
the data, run the command with --resume to continue after the last
committed chunk. The resumed run gives the same cells as an
uninterrupted one.

Examples:
  gncube grid
  gncube grid --seed 7 --cell-size 10000
  gncube grid --resume`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			st, err := openStore(ctx)
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			defer st.Close()

			if _, err = runGrid(ctx, st, resume); err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	gridCmd.Flags().BoolVarP(
		&resume, "resume", "r", false,
		"continue an interrupted run with the same settings",
	)
	return gridCmd
}

func runGrid(
	ctx context.Context,
	st occurrence.Store,
	resume bool,
) (pipeline.Summary, error) {
	var res pipeline.Summary
	g := cfg.Grid

	prj, err := projection.New(g.SourceCRS, g.TargetCRS)
	if err != nil {
		return res, gridSetupError(err)
	}
	asg, err := grid.New(g.CellSize)
	if err != nil {
		return res, gridSetupError(err)
	}

	total, err := st.Count(ctx)
	if err != nil {
		return res, err
	}
	if total == 0 {
		return res, emptyStoreError()
	}

	runID := pipeline.Fingerprint(gridSettings())
	slog.Info("Grid run", "run_id", runID, "settings", gridSettings())

	bar := pb.Full.Start(total)
	bar.Set("prefix", "Assigning cells: ")
	bar.Set(pb.CleanOnFinish, true)

	p, err := pipeline.New(st, prj, asg,
		pipeline.OptChunkSize(g.ChunkSize),
		pipeline.OptDefaultUncertainty(g.DefaultUncertainty),
		pipeline.OptJobsNumber(cfg.JobsNumber),
		pipeline.OptRunID(runID),
		pipeline.OptResume(resume),
		pipeline.OptOnChunk(func(pr pipeline.Progress) {
			bar.SetCurrent(int64(pr.Records))
		}),
	)
	if err != nil {
		bar.Finish()
		return res, gridSetupError(err)
	}

	res, err = p.Run(ctx, sampler.New(g.Seed))
	bar.Finish()
	if err != nil {
		return res, gridRunError(err)
	}

	if a, ok := st.(occurrence.Analyzer); ok {
		if err = a.Analyze(ctx); err != nil {
			slog.Warn("Cannot refresh store statistics", "error", err)
		}
	}

	if res.ResumedAt >= 0 {
		gn.Info("Resumed at chunk <em>%d</em>", res.ResumedAt)
	}
	gn.Info("Assigned cells to <em>%s</em> occurrences in %s",
		humanize.Comma(int64(res.Records)),
		gnfmt.TimeString(res.Duration.Seconds()))
	if res.Substituted > 0 {
		gn.Info("Default uncertainty of %gm was used for <em>%s</em> occurrences",
			g.DefaultUncertainty, humanize.Comma(int64(res.Substituted)))
	}
	return res, nil
}

func gridSetupError(err error) error {
	return &gn.Error{
		Code: errcode.GridProjectionSetupError,
		Msg:  "Cannot set up the grid, check the grid section of config.yaml",
		Err:  fmt.Errorf("grid setup: %w", err),
	}
}

func gridRunError(err error) error {
	var cerr *pipeline.ChunkError
	if !errors.As(err, &cerr) {
		return err
	}

	ids := cerr.Failed
	more := ""
	if len(ids) > 10 {
		more = fmt.Sprintf(" and %d more", len(ids)-10)
		ids = ids[:10]
	}
	msg := `<err>Grid assignment stopped at chunk %d</err>
   Offending records: %v%s
   Fix or remove them and continue with <em>gncube grid --resume</em>`
	return &gn.Error{
		Code: errcode.GridChunkError,
		Msg:  msg,
		Vars: []any{cerr.Chunk, ids, more},
		Err:  err,
	}
}
