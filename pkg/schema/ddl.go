package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// generateDDL creates a CREATE TABLE statement from struct tags.
func generateDDL(model any, tableName string) string {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	var columns []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		dbTag := field.Tag.Get("db")
		ddlTag := field.Tag.Get("ddl")

		if dbTag != "" && ddlTag != "" {
			columns = append(columns, fmt.Sprintf("    %s %s", dbTag, ddlTag))
		}
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);",
		tableName,
		strings.Join(columns, ",\n"))

	return ddl
}

// columns returns db tags of a model in field order.
func columns(model any) []string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	var res []string
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("db"); tag != "" {
			res = append(res, tag)
		}
	}
	return res
}

// Occurrence DDL methods
func (o Occurrence) TableDDL() string {
	return generateDDL(o, "occurrences")
}

func (o Occurrence) IndexDDL() []string {
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_occurrences_species_key ON occurrences(species_key);",
		"CREATE INDEX IF NOT EXISTS idx_occurrences_cube ON occurrences(year, eea_cell_code, species_key);",
	}
}

func (o Occurrence) TableName() string {
	return "occurrences"
}

// Columns returns column names of the occurrences table.
func (o Occurrence) Columns() []string {
	return columns(o)
}

// GridCursor DDL methods
func (g GridCursor) TableDDL() string {
	return generateDDL(g, "grid_cursors")
}

func (g GridCursor) IndexDDL() []string {
	return []string{}
}

func (g GridCursor) TableName() string {
	return "grid_cursors"
}

// Columns returns column names of the grid_cursors table.
func (g GridCursor) Columns() []string {
	return columns(g)
}
