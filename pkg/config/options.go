package config

import (
	"math"
	"strings"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// OptStoreBackend sets the occurrence store backend.
// Valid values: "sqlite", "postgres".
func OptStoreBackend(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Store.Backend", s) {
			c.Store.Backend = s
		}
	}
}

// OptStorePath sets the SQLite database file.
func OptStorePath(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Store Path", s) {
			c.Store.Path = s
		}
	}
}

// OptStoreBatchSize sets the number of records inserted per transaction.
func OptStoreBatchSize(i int) Option {
	return func(c *Config) {
		if isValidInt("Batch Size", i) {
			c.Store.BatchSize = i
		}
	}
}

// OptDatabaseHost sets the PostgreSQL server hostname or IP address.
func OptDatabaseHost(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Host", s) {
			c.Database.Host = s
		}
	}
}

// OptDatabasePort sets the PostgreSQL server port number.
func OptDatabasePort(i int) Option {
	return func(c *Config) {
		if isValidInt("Database Port", i) {
			c.Database.Port = i
		}
	}
}

// OptDatabaseUser sets the PostgreSQL database username.
func OptDatabaseUser(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database User", s) {
			c.Database.User = s
		}
	}
}

// OptDatabasePassword sets the PostgreSQL database password.
func OptDatabasePassword(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Password", s) {
			c.Database.Password = s
		}
	}
}

// OptDatabaseDatabase sets the PostgreSQL database name to connect to.
func OptDatabaseDatabase(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Name", s) {
			c.Database.Database = s
		}
	}
}

// OptDatabaseSSLMode sets the SSL connection mode.
// Valid values: "disable", "require", "verify-ca", "verify-full".
func OptDatabaseSSLMode(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Database.SSLMode", s) {
			c.Database.SSLMode = s
		}
	}
}

// OptGridSourceCRS sets the geographic reference system of the input.
func OptGridSourceCRS(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Grid Source CRS", s) {
			c.Grid.SourceCRS = s
		}
	}
}

// OptGridTargetCRS sets the projected reference system of the grid.
func OptGridTargetCRS(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Grid Target CRS", s) {
			c.Grid.TargetCRS = s
		}
	}
}

// OptGridCellSize sets the side of a grid cell in meters.
func OptGridCellSize(i int) Option {
	return func(c *Config) {
		if isValidInt("Grid Cell Size", i) {
			c.Grid.CellSize = i
		}
	}
}

// OptGridChunkSize sets the number of records processed per chunk.
func OptGridChunkSize(i int) Option {
	return func(c *Config) {
		if isValidInt("Grid Chunk Size", i) {
			c.Grid.ChunkSize = i
		}
	}
}

// OptGridSeed sets the seed of the random stream. Any value is valid.
func OptGridSeed(i int64) Option {
	return func(c *Config) {
		c.Grid.Seed = i
	}
}

// OptGridDefaultUncertainty sets the radius used for records without
// a positive coordinate uncertainty.
func OptGridDefaultUncertainty(f float64) Option {
	return func(c *Config) {
		if isValidFloat("Grid Default Uncertainty", f) {
			c.Grid.DefaultUncertainty = f
		}
	}
}

// OptFilterIssues sets the blacklist of GBIF issues.
// Empty slice disables issue filtering.
func OptFilterIssues(ss []string) Option {
	ss = normalizeList(ss)
	return func(c *Config) {
		c.Filter.Issues = ss
	}
}

// OptFilterOccurrenceStatuses sets the blacklist of occurrence statuses.
func OptFilterOccurrenceStatuses(ss []string) Option {
	ss = normalizeList(ss)
	return func(c *Config) {
		c.Filter.OccurrenceStatuses = ss
	}
}

// OptFilterTaxonomicStatuses sets the blacklist of taxonomic statuses
// (for example DOUBTFUL).
func OptFilterTaxonomicStatuses(ss []string) Option {
	ss = normalizeList(ss)
	return func(c *Config) {
		c.Filter.TaxonomicStatuses = ss
	}
}

// OptFilterCountries restricts records to given country codes.
func OptFilterCountries(ss []string) Option {
	ss = normalizeList(ss)
	return func(c *Config) {
		c.Filter.Countries = ss
	}
}

// OptTaxonomyURL sets the base URL of the GBIF API.
func OptTaxonomyURL(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "/")
	return func(c *Config) {
		if isValidString("Taxonomy URL", s) {
			c.Taxonomy.URL = s
		}
	}
}

// OptTaxonomyTimeout sets HTTP timeout in seconds.
func OptTaxonomyTimeout(i int) Option {
	return func(c *Config) {
		if isValidInt("Taxonomy Timeout", i) {
			c.Taxonomy.Timeout = i
		}
	}
}

// OptTaxonomyRetries sets the number of retries of a failed lookup.
// Zero disables retries.
func OptTaxonomyRetries(i int) Option {
	return func(c *Config) {
		if isValidNonNegativeInt("Taxonomy Retries", i) {
			c.Taxonomy.Retries = i
		}
	}
}

// OptTaxonomyCacheTTL sets how many minutes looked-up species are cached.
func OptTaxonomyCacheTTL(i int) Option {
	return func(c *Config) {
		if isValidInt("Taxonomy Cache TTL", i) {
			c.Taxonomy.CacheTTL = i
		}
	}
}

// OptExportDir sets the output directory.
func OptExportDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Export Dir", s) {
			c.Export.Dir = s
		}
	}
}

// OptExportDelimiter sets the field delimiter of exported files.
// Valid values: "tab", "comma".
func OptExportDelimiter(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Export.Delimiter", s) {
			c.Export.Delimiter = s
		}
	}
}

// OptExportNullMarker sets the marker written for missing values.
func OptExportNullMarker(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Export Null Marker", s) {
			c.Export.NullMarker = s
		}
	}
}

// OptLogLevel sets the logging level.
// Valid values: "debug", "info", "warn", "error".
func OptLogLevel(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogFormat sets the log output format.
// Valid values: "json", "text", "tint".
func OptLogFormat(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogDestination sets where logs are written.
// Valid values: "file", "stderr", "stdout".
func OptLogDestination(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Destination", s) {
			c.Log.Destination = s
		}
	}
}

// OptJobsNumber sets the number of concurrent workers for parallel operations.
// Default is runtime.NumCPU().
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if isValidInt("Jobs Number", i) {
			c.JobsNumber = i
		}
	}
}

// OptHomeDir sets the home directory for config, cache, and log locations.
// Set once at startup from os.UserHomeDir().
// Runtime-only field - not in ToOptions().
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Home Directory", s) {
			c.HomeDir = s
		}
	}
}

func normalizeList(ss []string) []string {
	res := make([]string, 0, len(ss))
	for _, v := range ss {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			res = append(res, v)
		}
	}
	return res
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
