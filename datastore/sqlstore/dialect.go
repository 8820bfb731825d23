// ABOUTME: SQL dialect abstraction covering placeholder style and DDL differences
// ABOUTME: Keeps the store's query builders engine-agnostic between SQLite and Postgres

package sqlstore

import (
	"fmt"
	"strings"
)

// Dialect captures the differences between the supported engines so the
// store can build one set of queries for both.
type Dialect interface {
	// Name identifies the dialect ("sqlite" or "postgres").
	Name() string
	// NewParamBuilder returns a fresh placeholder builder for one statement.
	NewParamBuilder() *ParamBuilder
	// ColumnType maps a field type name to the engine's column type.
	ColumnType(typeName string) string
	// AutoKeyColumn is the full column spec for auto-assigned integer keys.
	AutoKeyColumn(column string) string
	// UseReturning reports whether inserts read auto keys back with a
	// RETURNING clause instead of LastInsertId.
	UseReturning() bool
}

// ParamBuilder collects statement parameters and hands out the matching
// placeholder for each, "?" for SQLite and "$1".."$n" for Postgres.
type ParamBuilder struct {
	numbered bool
	params   []any
}

// Add records one parameter and returns its placeholder.
func (b *ParamBuilder) Add(v any) string {
	b.params = append(b.params, v)
	if b.numbered {
		return fmt.Sprintf("$%d", len(b.params))
	}
	return "?"
}

// Params returns the collected parameters in placeholder order.
func (b *ParamBuilder) Params() []any {
	return b.params
}

type sqliteDialect struct{}

// SQLite returns the dialect for modernc.org/sqlite databases.
func SQLite() Dialect { return sqliteDialect{} }

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) NewParamBuilder() *ParamBuilder { return &ParamBuilder{} }

func (sqliteDialect) UseReturning() bool { return false }

func (sqliteDialect) ColumnType(typeName string) string {
	switch typeName {
	case "int64", "uint64", "bool":
		return "INTEGER"
	case "float64":
		return "REAL"
	default:
		// Strings, timestamps, decimals, and object ids all land in TEXT.
		return "TEXT"
	}
}

func (sqliteDialect) AutoKeyColumn(column string) string {
	return quoteIdent(column) + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

type postgresDialect struct{}

// Postgres returns the dialect for pgx-backed PostgreSQL databases.
func Postgres() Dialect { return postgresDialect{} }

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) NewParamBuilder() *ParamBuilder { return &ParamBuilder{numbered: true} }

func (postgresDialect) UseReturning() bool { return true }

func (postgresDialect) ColumnType(typeName string) string {
	switch typeName {
	case "int64", "uint64":
		return "BIGINT"
	case "bool":
		// Stored as 0/1 so both engines scan the same way.
		return "SMALLINT"
	case "float64":
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func (postgresDialect) AutoKeyColumn(column string) string {
	return quoteIdent(column) + " BIGSERIAL PRIMARY KEY"
}

// quoteIdent double-quotes an identifier. Table and column names are
// derived from Go identifiers, but quoting keeps reserved words like
// "order" usable as field names.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
