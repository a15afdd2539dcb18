package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError
	WriteFileError

	// Logging errors
	CreateLogFileError

	// Store errors
	StoreOpenError
	StoreSchemaError
	StoreInsertError
	StoreQueryError
	StoreUpdateError
	StoreCursorError
	StoreEmptyError
	StoreUnknownBackendError

	// Database (PostgreSQL) errors
	DBConnectionError
	DBNotConnectedError
	SchemaGORMConnectionError
	SchemaCreateError

	// Load errors
	LoadSourceError
	LoadHeaderError
	LoadRecordError

	// Grid errors
	GridProjectionSetupError
	GridChunkError
	GridConfigError

	// Cube errors
	CubeAggregateError
	CubeCompendiumError

	// Taxonomy errors
	TaxonomyLookupError

	// Export errors
	ExportError
)
