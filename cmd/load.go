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
	"maps"
	"os"
	"os/signal"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gncube/internal/ioload"
	"github.com/gnames/gncube/pkg/filter"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/spf13/cobra"
)

// getLoadCmd returns the load command.
func getLoadCmd() *cobra.Command {
	loadCmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Load a GBIF occurrence download into the store",
		Long: `Read a GBIF "simple CSV" download (tab-separated file, or the .zip
archive GBIF provides) and save filtered occurrences to the store.

Content of the store is replaced. Records are dropped when they have
no coordinates, carry a blacklisted GBIF issue, or have a blacklisted
occurrence or taxonomic status (see the filter section of config.yaml).

Examples:
  gncube load 0001234-250101.zip
  gncube load occurrence.csv --store postgres`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			st, err := openStore(ctx)
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			defer st.Close()

			if _, err = runLoad(ctx, st, args[0]); err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}
	return loadCmd
}

func runLoad(
	ctx context.Context,
	st occurrence.Store,
	path string,
) (ioload.Stats, error) {
	f := filter.New(cfg.Filter)
	l := ioload.New(st, f,
		ioload.OptBatchSize(cfg.Store.BatchSize),
		ioload.OptProgress(true),
	)

	gn.Info("Loading occurrences from <em>%s</em>", path)
	stats, err := l.Load(ctx, path)
	if err != nil {
		return stats, err
	}

	gn.Info("Loaded <em>%s</em> of %s occurrences",
		humanize.Comma(int64(stats.Loaded)), humanize.Comma(int64(stats.Read)))
	for _, reason := range slices.Sorted(maps.Keys(stats.Rejected)) {
		n := stats.Rejected[reason]
		gn.Info("  rejected (%s): %s", reason, humanize.Comma(int64(n)))
	}
	if stats.Malformed > 0 {
		gn.Warn("Skipped <em>%d</em> lines without a valid gbifID", stats.Malformed)
	}
	return stats, nil
}
