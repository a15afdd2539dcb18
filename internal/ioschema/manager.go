// Package ioschema creates PostgreSQL tables of the occurrence store.
// This is an impure I/O package that wraps GORM AutoMigrate
// functionality.
package ioschema

import (
	"context"
	"fmt"

	"github.com/gnames/gncube/pkg/schema"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// collated are text columns that take part in cube ordering. They get
// "C" collation so PostgreSQL compares them byte-wise like SQLite.
var collated = []struct {
	table, column string
}{
	{"occurrences", "eea_cell_code"},
	{"occurrences", "scientific_name"},
}

// Migrate creates or updates occurrence tables using GORM AutoMigrate.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return NotConnectedError()
	}

	db := stdlib.OpenDBFromPool(pool)

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: db}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return GORMConnectionError(err)
	}

	if err = schema.Migrate(gormDB.WithContext(ctx)); err != nil {
		return CreateSchemaError(err)
	}

	return setCollation(ctx, pool)
}

func setCollation(ctx context.Context, pool *pgxpool.Pool) error {
	for _, c := range collated {
		q := formatCollationSQL(c.table, c.column)
		if _, err := pool.Exec(ctx, q); err != nil {
			return CollationError(c.table, c.column, err)
		}
	}
	return nil
}

// formatCollationSQL formats the collation SQL statement.
func formatCollationSQL(table, column string) string {
	return fmt.Sprintf(
		`ALTER TABLE %s ALTER COLUMN %s TYPE TEXT COLLATE "C"`,
		table, column,
	)
}
