package cmd

import (
	"fmt"
	"os"

	app "github.com/gnames/gncube/pkg"
	"github.com/gnames/gncube/pkg/config"
	"github.com/spf13/cobra"
)

func versionFlag(cmd *cobra.Command) {
	hasVersionFlag, _ := cmd.Flags().GetBool("version")
	if hasVersionFlag {
		fmt.Printf("\nversion: %s\nbuild: %s\n\n", app.Version, app.Build)
		os.Exit(0)
	}
}

// outputFlag applies -o/--output to export settings.
func outputFlag(cmd *cobra.Command) {
	if f := cmd.Flag("output"); f != nil && f.Changed {
		cfg.Update([]config.Option{config.OptExportDir(f.Value.String())})
	}
}
