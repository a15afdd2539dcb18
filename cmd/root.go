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
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/gncube/internal/iofs"
	"github.com/gnames/gncube/internal/iologger"
	app "github.com/gnames/gncube/pkg"
	"github.com/gnames/gncube/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	homeDir   string
	opts      []config.Option
	cfg       *config.Config
	logCloser io.Closer
)

// getRootCmd creates the command tree. A fresh tree is created for
// every Execute call, so flag values do not leak between runs.
func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", app.Version, app.Build),
		Use:     "gncube",
		Short:   "Builds species occurrence cubes from GBIF downloads",
		Long: `GNcube turns a GBIF occurrence download into a species data cube.

Every occurrence is placed into a cell of an equal-area grid (the EEA
reference grid by default). Coordinate uncertainty is taken into account
by sampling a random point inside the uncertainty circle. Occurrences are
then counted per year, grid cell and species, and a taxonomic compendium
lists which taxa were counted under every species.

Runs with the same input and grid settings (CRS, cell size, chunk size,
seed, default uncertainty) produce identical cubes.

Typical workflow:
  gncube load 0001234-250101.zip
  gncube grid
  gncube cube -o out

or all at once:
  gncube run 0001234-250101.zip -o out`,
		PersistentPreRunE: bootstrap,
		RunE: func(cmd *cobra.Command, args []string) error {
			versionFlag(cmd)
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Remove the automatic "gncube version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Flags().BoolP("version", "V", false, "version for gncube")

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "path to config file")
	pf.String("store", "", "occurrence store: sqlite or postgres")
	pf.Int64("seed", 0, "seed of the random stream")
	pf.Int("chunk-size", 0, "records per chunk")
	pf.Int("cell-size", 0, "grid cell size in meters")
	pf.IntP("jobs", "j", 0, "number of concurrent workers")

	rootCmd.AddCommand(
		getLoadCmd(),
		getGridCmd(),
		getCubeCmd(),
		getRunCmd(),
	)
	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfgPath := config.ConfigFilePath(homeDir)
	if s, _ := cmd.Flags().GetString("config"); s != "" {
		cfgPath = s
	}

	var cfgViper *config.Config
	if cfgViper, err = initConfig(cfgPath); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	opts = cfgViper.ToOptions()
	opts = append(opts, flagOptions(cmd)...)
	opts = append(opts, config.OptHomeDir(homeDir))
	cfg.Update(opts)

	logCloser, err = iologger.Init(config.LogDir(homeDir), cfg.Log, false)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded", "config_file", cfgPath)
	return nil
}

// flagOptions converts global flags set by the user into options.
func flagOptions(cmd *cobra.Command) []config.Option {
	var res []config.Option
	if f := cmd.Flag("store"); f != nil && f.Changed {
		res = append(res, config.OptStoreBackend(f.Value.String()))
	}
	if f := cmd.Flag("seed"); f != nil && f.Changed {
		i, _ := cmd.Flags().GetInt64("seed")
		res = append(res, config.OptGridSeed(i))
	}
	if f := cmd.Flag("chunk-size"); f != nil && f.Changed {
		i, _ := cmd.Flags().GetInt("chunk-size")
		res = append(res, config.OptGridChunkSize(i))
	}
	if f := cmd.Flag("cell-size"); f != nil && f.Changed {
		i, _ := cmd.Flags().GetInt("cell-size")
		res = append(res, config.OptGridCellSize(i))
	}
	if f := cmd.Flag("jobs"); f != nil && f.Changed {
		i, _ := cmd.Flags().GetInt("jobs")
		res = append(res, config.OptJobsNumber(i))
	}
	return res
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once.
func Execute() {
	err := getRootCmd().Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func initConfig(cfgPath string) (*config.Config, error) {
	var err error
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// Set environment variables we want.
	// We set them manually so we can see clearly which env variables are allowed.
	// These match the fields included in config.ToOptions() - i.e., persistent
	// configuration that can be stored in config.yaml.
	v.SetEnvPrefix("GNCUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Store configuration
	v.BindEnv("store.backend", "GNCUBE_STORE_BACKEND")
	v.BindEnv("store.path", "GNCUBE_STORE_PATH")
	v.BindEnv("store.batch_size", "GNCUBE_STORE_BATCH_SIZE")

	// Database configuration
	v.BindEnv("database.host", "GNCUBE_DATABASE_HOST")
	v.BindEnv("database.port", "GNCUBE_DATABASE_PORT")
	v.BindEnv("database.user", "GNCUBE_DATABASE_USER")
	v.BindEnv("database.password", "GNCUBE_DATABASE_PASSWORD")
	v.BindEnv("database.database", "GNCUBE_DATABASE_DATABASE")
	v.BindEnv("database.ssl_mode", "GNCUBE_DATABASE_SSL_MODE")

	// Grid configuration
	v.BindEnv("grid.source_crs", "GNCUBE_GRID_SOURCE_CRS")
	v.BindEnv("grid.target_crs", "GNCUBE_GRID_TARGET_CRS")
	v.BindEnv("grid.cell_size", "GNCUBE_GRID_CELL_SIZE")
	v.BindEnv("grid.chunk_size", "GNCUBE_GRID_CHUNK_SIZE")
	v.BindEnv("grid.seed", "GNCUBE_GRID_SEED")
	v.BindEnv("grid.default_uncertainty", "GNCUBE_GRID_DEFAULT_UNCERTAINTY")

	// Taxonomy configuration
	v.BindEnv("taxonomy.url", "GNCUBE_TAXONOMY_URL")
	v.BindEnv("taxonomy.timeout", "GNCUBE_TAXONOMY_TIMEOUT")
	v.BindEnv("taxonomy.retries", "GNCUBE_TAXONOMY_RETRIES")
	v.BindEnv("taxonomy.cache_ttl", "GNCUBE_TAXONOMY_CACHE_TTL")

	// Export configuration
	v.BindEnv("export.dir", "GNCUBE_EXPORT_DIR")
	v.BindEnv("export.delimiter", "GNCUBE_EXPORT_DELIMITER")
	v.BindEnv("export.null_marker", "GNCUBE_EXPORT_NULL_MARKER")

	// Log configuration
	v.BindEnv("log.level", "GNCUBE_LOG_LEVEL")
	v.BindEnv("log.format", "GNCUBE_LOG_FORMAT")
	v.BindEnv("log.destination", "GNCUBE_LOG_DESTINATION")

	// General configuration
	v.BindEnv("jobs_number", "GNCUBE_JOBS_NUMBER")

	v.AutomaticEnv()
}
