// Package config provides configuration management for GNcube.
//
// This package has no I/O dependencies (no file operations, no network calls).
// Validation functions may write user-facing warnings via gn.Warn().
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with gn.Warn() - config remains in valid state
// - ToOptions() converts persistent fields (those in config.yaml)
// - Environment variables match ToOptions() fields exactly
//
// # Reproducibility
//
// Grid settings (source/target CRS, cell size, chunk size, seed and default
// uncertainty) fully determine cell assignment of a given input. Changing
// any of them changes the resulting cube, so all of them are explicit
// fields with documented defaults.
//
// # Persistent vs Runtime Fields
//
// Persistent fields (in ToOptions, config.yaml, and env vars):
//   - Store: backend, path, batch_size
//   - Database: host, port, user, password, database, ssl_mode
//   - Grid: source_crs, target_crs, cell_size, chunk_size, seed,
//     default_uncertainty
//   - Filter: issues, occurrence_statuses, taxonomic_statuses, countries
//   - Taxonomy: url, timeout, retries, cache_ttl
//   - Export: dir, delimiter, null_marker
//   - Log: level, format, destination
//   - General: jobs_number
//
// Runtime-only fields (set by CLI):
//   - HomeDir (set once at startup)
//
// # Environment Variables
//
// Use GNCUBE_ prefix with underscores for nesting:
//
//	GNCUBE_STORE_BACKEND=sqlite
//	GNCUBE_GRID_SEED=42
//	GNCUBE_GRID_CHUNK_SIZE=100000
//	GNCUBE_LOG_LEVEL=info
package config

import (
	"runtime"
)

const (
	// WGS84 is the geographic reference system of GBIF coordinates.
	WGS84 = "EPSG:4326"

	// LAEAEurope is ETRS89 Lambert Azimuthal Equal Area, the projection of
	// the EEA reference grid.
	LAEAEurope = "EPSG:3035"

	// DefaultUncertainty is substituted for missing or non-positive
	// coordinate uncertainty, in meters.
	DefaultUncertainty = 1000.0
)

// Config represents the complete GNcube configuration.
type Config struct {
	// Store selects and configures the occurrence store.
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Database contains PostgreSQL connection settings. Used only when
	// Store.Backend is "postgres".
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Grid contains settings that determine cell assignment.
	Grid GridConfig `mapstructure:"grid" yaml:"grid"`

	// Filter contains blacklists applied while loading occurrences.
	Filter FilterConfig `mapstructure:"filter" yaml:"filter"`

	// Taxonomy configures the species lookup service.
	Taxonomy TaxonomyConfig `mapstructure:"taxonomy" yaml:"taxonomy"`

	// Export configures serialization of the cube and compendium.
	Export ExportConfig `mapstructure:"export" yaml:"export"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent workers for parallel operations.
	// Default value is set accoring to the number of available threads.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and logs directories reside.
	// It must be set by CLI during init, there is no default value for it.
	HomeDir string
}

// StoreConfig selects the occurrence store.
type StoreConfig struct {
	// Backend is either "sqlite" (embedded, default) or "postgres".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the SQLite database file. Empty means the default location
	// in the cache directory (see StorePath).
	Path string `mapstructure:"path" yaml:"path"`

	// BatchSize defines the number of records inserted per transaction
	// during load.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname or IP address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port number.
	Port int `mapstructure:"port" yaml:"port"`

	// User is the PostgreSQL database username.
	User string `mapstructure:"user" yaml:"user"`

	// Password is the PostgreSQL database password.
	Password string `mapstructure:"password" yaml:"password"`

	// Database is the PostgreSQL database name to connect to.
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// GridConfig contains every setting that influences cell assignment.
type GridConfig struct {
	// SourceCRS is the geographic reference system of input coordinates.
	SourceCRS string `mapstructure:"source_crs" yaml:"source_crs"`

	// TargetCRS is the projected reference system of the grid (meters).
	// Accepts "EPSG:3035", "EPSG:3857" or a proj4 string.
	TargetCRS string `mapstructure:"target_crs" yaml:"target_crs"`

	// CellSize is the side of a grid cell in meters.
	CellSize int `mapstructure:"cell_size" yaml:"cell_size"`

	// ChunkSize is the number of records processed per chunk. It bounds
	// memory and is part of the reproducibility contract: the same seed
	// with a different chunk size gives different cells.
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"`

	// Seed initializes the random stream used to sample points inside
	// uncertainty circles.
	Seed int64 `mapstructure:"seed" yaml:"seed"`

	// DefaultUncertainty replaces missing or zero coordinate uncertainty.
	DefaultUncertainty float64 `mapstructure:"default_uncertainty" yaml:"default_uncertainty"`
}

// FilterConfig contains blacklists applied during load.
type FilterConfig struct {
	// Issues are GBIF interpretation issues that exclude a record.
	Issues []string `mapstructure:"issues" yaml:"issues"`

	// OccurrenceStatuses exclude records with these occurrenceStatus values.
	OccurrenceStatuses []string `mapstructure:"occurrence_statuses" yaml:"occurrence_statuses"`

	// TaxonomicStatuses exclude records with these taxonomicStatus values.
	TaxonomicStatuses []string `mapstructure:"taxonomic_statuses" yaml:"taxonomic_statuses"`

	// Countries restricts records to these ISO 3166-1 alpha-2 codes.
	// Empty means no restriction.
	Countries []string `mapstructure:"countries" yaml:"countries"`
}

// TaxonomyConfig configures the species lookup service.
type TaxonomyConfig struct {
	// URL is the base URL of the GBIF API.
	URL string `mapstructure:"url" yaml:"url"`

	// Timeout of a single HTTP request in seconds.
	Timeout int `mapstructure:"timeout" yaml:"timeout"`

	// Retries is the number of retries after a failed request.
	Retries int `mapstructure:"retries" yaml:"retries"`

	// CacheTTL is how long a looked-up species is reused, in minutes.
	CacheTTL int `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// ExportConfig configures delimited-text output.
type ExportConfig struct {
	// Dir is the output directory.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Delimiter is "tab" or "comma".
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`

	// NullMarker is written for missing values, so that null is
	// distinguishable from zero.
	NullMarker string `mapstructure:"null_marker" yaml:"null_marker"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json', 'text' or 'tint' (user-facing and colored).
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Store: StoreConfig{
			Backend:   "sqlite",
			BatchSize: 50_000,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "gncube",
			SSLMode:  "disable",
		},
		Grid: GridConfig{
			SourceCRS:          WGS84,
			TargetCRS:          LAEAEurope,
			CellSize:           1000,
			ChunkSize:          100_000,
			Seed:               42,
			DefaultUncertainty: DefaultUncertainty,
		},
		Filter: FilterConfig{
			Issues: []string{
				"ZERO_COORDINATE",
				"COORDINATE_OUT_OF_RANGE",
				"COORDINATE_INVALID",
				"COUNTRY_COORDINATE_MISMATCH",
				"PRESUMED_SWAPPED_COORDINATE",
				"PRESUMED_NEGATED_LATITUDE",
				"PRESUMED_NEGATED_LONGITUDE",
			},
			OccurrenceStatuses: []string{"ABSENT"},
		},
		Taxonomy: TaxonomyConfig{
			URL:      "https://api.gbif.org/v1",
			Timeout:  30,
			Retries:  3,
			CacheTTL: 60,
		},
		Export: ExportConfig{
			Dir:        ".",
			Delimiter:  "tab",
			NullMarker: "NA",
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(), // Default to number of CPU threads
	}

	return res
}
