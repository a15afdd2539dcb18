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
	"os"
	"os/signal"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/pkg/occurrence"
	"github.com/spf13/cobra"
)

// getRunCmd returns the run command.
func getRunCmd() *cobra.Command {
	var records bool

	runCmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Load, assign cells and build the cube in one go",
		Long: `Run load, grid and cube commands one after another.

Examples:
  gncube run 0001234-250101.zip -o out
  gncube run occurrence.csv -o out --seed 7 --records`,
		Args: cobra.ExactArgs(1),
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

			if err = runAll(ctx, st, args[0], records); err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	runCmd.Flags().StringP("output", "o", "", "output directory")
	runCmd.Flags().BoolVarP(
		&records, "records", "r", false,
		"also export occurrences with assigned cells",
	)
	return runCmd
}

func runAll(
	ctx context.Context,
	st occurrence.Store,
	path string,
	records bool,
) error {
	stats, err := runLoad(ctx, st, path)
	if err != nil {
		return err
	}
	if stats.Loaded == 0 {
		return emptyStoreError()
	}

	if _, err = runGrid(ctx, st, false); err != nil {
		return err
	}

	return runCube(ctx, st, records)
}
