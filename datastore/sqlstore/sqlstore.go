// ABOUTME: Relational datastore over database/sql for SQLite and PostgreSQL
// ABOUTME: Derives tables, join tables, and queries from registry metadata

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/2389/modeladmin/datastore"
	"github.com/2389/modeladmin/metadata"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Store persists registered models in a relational database. Scalar
// fields map to columns, many-relations to shared join tables, so a
// pair of models declaring each other see the same links from both
// sides.
type Store struct {
	db      *sql.DB
	reg     *metadata.Registry
	dialect Dialect
	logger  *slog.Logger
}

var (
	_ datastore.Datastore = (*Store)(nil)
	_ datastore.Auditor   = (*Store)(nil)
)

// OpenSQLite opens or creates a SQLite database at path, creating
// parent directories as needed.
func OpenSQLite(reg *metadata.Registry, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL allows concurrent reads while the admin writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return newStore(db, reg, SQLite()), nil
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(reg *metadata.Registry, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return newStore(db, reg, Postgres()), nil
}

func newStore(db *sql.DB, reg *metadata.Registry, d Dialect) *Store {
	return &Store{
		db:      db,
		reg:     reg,
		dialect: d,
		logger:  slog.Default().With("component", "sqlstore"),
	}
}

// Registry returns the model registry the store was built from.
func (s *Store) Registry() *metadata.Registry {
	return s.reg
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema creates the model tables, the join tables behind
// many-relations, and the action audit table. Existing tables are
// left untouched.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, model := range s.reg.Models() {
		if _, err := s.db.ExecContext(ctx, s.tableDDL(model)); err != nil {
			return fmt.Errorf("creating table %s: %w", model.Table, err)
		}
	}

	joins := s.joinTableDDL()
	names := make([]string, 0, len(joins))
	for name := range joins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := s.db.ExecContext(ctx, joins[name]); err != nil {
			return fmt.Errorf("creating join table %s: %w", name, err)
		}
	}

	for _, ddl := range auditDDL {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating audit table: %w", err)
		}
	}

	s.logger.Info("schema initialized", "dialect", s.dialect.Name(), "models", s.reg.Len())
	return nil
}

func (s *Store) tableDDL(model *metadata.Model) string {
	cols := make([]string, 0, len(model.Fields))
	for _, f := range model.Fields {
		if f.Many {
			continue
		}
		if f.PrimaryKey {
			cols = append(cols, s.keyColumnDDL(f))
			continue
		}
		col := quoteIdent(f.Column) + " " + s.dialect.ColumnType(f.TypeName)
		if f.Required {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		quoteIdent(model.Table), strings.Join(cols, ",\n\t"))
}

func (s *Store) keyColumnDDL(f *metadata.Field) string {
	if f.Auto && isIntKind(f.GoType().Kind()) {
		return s.dialect.AutoKeyColumn(f.Column)
	}
	return quoteIdent(f.Column) + " " + s.dialect.ColumnType(f.TypeName) + " PRIMARY KEY"
}

func (s *Store) joinTableDDL() map[string]string {
	ddl := make(map[string]string)
	for _, model := range s.reg.Models() {
		for _, f := range model.ManyFields() {
			target, ok := s.reg.Lookup(f.Relation)
			if !ok {
				continue
			}
			name := metadata.JoinTableName(model.Name, f.Relation)
			if _, done := ddl[name]; done {
				continue
			}
			ownCol, refCol := joinColumns(model.Name, f.Relation)
			ddl[name] = fmt.Sprintf(
				"CREATE TABLE IF NOT EXISTS %s (\n\t%s %s NOT NULL,\n\t%s %s NOT NULL,\n\tPRIMARY KEY (%s, %s)\n)",
				quoteIdent(name),
				quoteIdent(ownCol), s.dialect.ColumnType(model.Key.TypeName),
				quoteIdent(refCol), s.dialect.ColumnType(target.Key.TypeName),
				quoteIdent(ownCol), quoteIdent(refCol))
		}
	}
	return ddl
}

func (s *Store) model(name string) (*metadata.Model, error) {
	model, ok := s.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, datastore.ErrNotRegistered)
	}
	return model, nil
}

// FindPage returns one page of instances ordered by key.
func (s *Store) FindPage(ctx context.Context, modelName string, page, perPage int) (*datastore.Pagination, error) {
	model, err := s.model(modelName)
	if err != nil {
		return nil, err
	}
	page, perPage = datastore.NormalizePage(page, perPage)

	var total int
	countQ := "SELECT COUNT(*) FROM " + quoteIdent(model.Table)
	if err := s.db.QueryRowContext(ctx, countQ).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting %s: %w", modelName, err)
	}

	fields := rowFields(model)
	pb := s.dialect.NewParamBuilder()
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %s OFFSET %s",
		columnList(fields), quoteIdent(model.Table), quoteIdent(model.Key.Column),
		pb.Add(perPage), pb.Add((page-1)*perPage))

	items, err := s.queryInstances(ctx, model, fields, query, pb.Params()...)
	if err != nil {
		return nil, err
	}
	for _, inst := range items {
		if err := s.loadMany(ctx, model, inst); err != nil {
			return nil, err
		}
	}

	return &datastore.Pagination{Page: page, PerPage: perPage, Total: total, Items: items}, nil
}

// Find returns the instance with the given interface key.
func (s *Store) Find(ctx context.Context, modelName, key string) (*metadata.Instance, error) {
	model, err := s.model(modelName)
	if err != nil {
		return nil, err
	}
	param, err := keyParam(model.Key, key)
	if err != nil {
		// A key that does not parse cannot match any row.
		return nil, fmt.Errorf("%s %s: %w", modelName, key, datastore.ErrNotFound)
	}

	fields := rowFields(model)
	pb := s.dialect.NewParamBuilder()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		columnList(fields), quoteIdent(model.Table), quoteIdent(model.Key.Column), pb.Add(param))

	items, err := s.queryInstances(ctx, model, fields, query, pb.Params()...)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s %s: %w", modelName, key, datastore.ErrNotFound)
	}
	inst := items[0]
	if err := s.loadMany(ctx, model, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Save inserts or updates the instance row and rewrites its join-table
// links in the same transaction. Instances with a zero auto key get one
// assigned: integer keys by the database, string keys as UUIDs, object
// id keys as fresh object ids.
func (s *Store) Save(ctx context.Context, modelName string, inst *metadata.Instance) error {
	model, err := s.model(modelName)
	if err != nil {
		return err
	}
	if inst.Model() != model {
		return fmt.Errorf("save %s: instance is a %s", modelName, inst.Model().Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	if inst.KeyIsZero() {
		if !model.Key.Auto {
			return fmt.Errorf("save %s: key required", modelName)
		}
		if err := s.insert(ctx, tx, model, inst); err != nil {
			return err
		}
	} else if err := s.upsert(ctx, tx, model, inst); err != nil {
		return err
	}

	if err := s.saveMany(ctx, tx, model, inst); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, model *metadata.Model, inst *metadata.Instance) error {
	readback, err := assignKey(model, inst)
	if err != nil {
		return fmt.Errorf("save %s: assigning key: %w", model.Name, err)
	}

	fields := rowFields(model)
	if readback {
		fields = withoutKey(fields)
	}
	pb := s.dialect.NewParamBuilder()
	placeholders := make([]string, len(fields))
	for i, f := range fields {
		v, err := encodeValue(f, inst.Get(f))
		if err != nil {
			return fmt.Errorf("save %s: %w", model.Name, err)
		}
		placeholders[i] = pb.Add(v)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(model.Table), columnList(fields), strings.Join(placeholders, ", "))

	if !readback {
		if _, err := tx.ExecContext(ctx, query, pb.Params()...); err != nil {
			return fmt.Errorf("inserting %s: %w", model.Name, err)
		}
		return nil
	}

	if s.dialect.UseReturning() {
		query += " RETURNING " + quoteIdent(model.Key.Column)
		var id int64
		if err := tx.QueryRowContext(ctx, query, pb.Params()...).Scan(&id); err != nil {
			return fmt.Errorf("inserting %s: %w", model.Name, err)
		}
		return inst.Set(model.Key, id)
	}

	res, err := tx.ExecContext(ctx, query, pb.Params()...)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", model.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("inserting %s: reading key: %w", model.Name, err)
	}
	return inst.Set(model.Key, id)
}

// assignKey fills non-integer auto keys before insert and reports
// whether the database assigns the key instead.
func assignKey(model *metadata.Model, inst *metadata.Instance) (readback bool, err error) {
	if model.Key.TypeName == "primitive.ObjectID" {
		return false, inst.Set(model.Key, primitive.NewObjectID())
	}
	if model.Key.GoType().Kind() == reflect.String {
		return false, inst.SetKey(uuid.NewString())
	}
	return true, nil
}

func (s *Store) upsert(ctx context.Context, tx *sql.Tx, model *metadata.Model, inst *metadata.Instance) error {
	keyVal, err := encodeValue(model.Key, inst.Get(model.Key))
	if err != nil {
		return fmt.Errorf("save %s: %w", model.Name, err)
	}

	fields := withoutKey(rowFields(model))
	if len(fields) > 0 {
		pb := s.dialect.NewParamBuilder()
		sets := make([]string, len(fields))
		for i, f := range fields {
			v, err := encodeValue(f, inst.Get(f))
			if err != nil {
				return fmt.Errorf("save %s: %w", model.Name, err)
			}
			sets[i] = quoteIdent(f.Column) + " = " + pb.Add(v)
		}
		query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
			quoteIdent(model.Table), strings.Join(sets, ", "), quoteIdent(model.Key.Column), pb.Add(keyVal))
		res, err := tx.ExecContext(ctx, query, pb.Params()...)
		if err != nil {
			return fmt.Errorf("updating %s %s: %w", model.Name, inst.Key(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("updating %s %s: %w", model.Name, inst.Key(), err)
		}
		if n > 0 {
			return nil
		}
	} else {
		pb := s.dialect.NewParamBuilder()
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s",
			quoteIdent(model.Table), quoteIdent(model.Key.Column), pb.Add(keyVal))
		var n int
		if err := tx.QueryRowContext(ctx, query, pb.Params()...).Scan(&n); err != nil {
			return fmt.Errorf("checking %s %s: %w", model.Name, inst.Key(), err)
		}
		if n > 0 {
			return nil
		}
	}

	// No row under this caller-chosen key yet: insert it.
	all := rowFields(model)
	pb := s.dialect.NewParamBuilder()
	placeholders := make([]string, len(all))
	for i, f := range all {
		v, err := encodeValue(f, inst.Get(f))
		if err != nil {
			return fmt.Errorf("save %s: %w", model.Name, err)
		}
		placeholders[i] = pb.Add(v)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(model.Table), columnList(all), strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, pb.Params()...); err != nil {
		return fmt.Errorf("inserting %s: %w", model.Name, err)
	}
	return nil
}

// saveMany rewrites the instance's join-table rows. Both declared
// sides of a relation share one table, so the links stay symmetric
// without any reverse bookkeeping.
func (s *Store) saveMany(ctx context.Context, tx *sql.Tx, model *metadata.Model, inst *metadata.Instance) error {
	for _, f := range model.ManyFields() {
		target, ok := s.reg.Lookup(f.Relation)
		if !ok {
			continue
		}
		table := metadata.JoinTableName(model.Name, f.Relation)
		ownCol, refCol := joinColumns(model.Name, f.Relation)
		ownVal, err := encodeValue(model.Key, inst.Get(model.Key))
		if err != nil {
			return fmt.Errorf("save %s: %w", model.Name, err)
		}

		pb := s.dialect.NewParamBuilder()
		del := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			quoteIdent(table), quoteIdent(ownCol), pb.Add(ownVal))
		if _, err := tx.ExecContext(ctx, del, pb.Params()...); err != nil {
			return fmt.Errorf("clearing %s.%s links: %w", model.Name, f.Name, err)
		}

		for _, key := range keyList(inst.Get(f)) {
			refVal, err := keyParam(target.Key, key)
			if err != nil {
				return fmt.Errorf("save %s.%s: bad related key %q: %w", model.Name, f.Name, key, err)
			}
			pb := s.dialect.NewParamBuilder()
			ins := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
				quoteIdent(table), quoteIdent(ownCol), quoteIdent(refCol), pb.Add(ownVal), pb.Add(refVal))
			if _, err := tx.ExecContext(ctx, ins, pb.Params()...); err != nil {
				return fmt.Errorf("linking %s.%s: %w", model.Name, f.Name, err)
			}
		}
	}
	return nil
}

// loadMany fills the instance's many fields from its join tables.
func (s *Store) loadMany(ctx context.Context, model *metadata.Model, inst *metadata.Instance) error {
	for _, f := range model.ManyFields() {
		target, ok := s.reg.Lookup(f.Relation)
		if !ok {
			continue
		}
		table := metadata.JoinTableName(model.Name, f.Relation)
		ownCol, refCol := joinColumns(model.Name, f.Relation)
		ownVal, err := encodeValue(model.Key, inst.Get(model.Key))
		if err != nil {
			return fmt.Errorf("loading %s.%s: %w", model.Name, f.Name, err)
		}

		pb := s.dialect.NewParamBuilder()
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s ORDER BY %s",
			quoteIdent(refCol), quoteIdent(table), quoteIdent(ownCol), pb.Add(ownVal), quoteIdent(refCol))
		rows, err := s.db.QueryContext(ctx, query, pb.Params()...)
		if err != nil {
			return fmt.Errorf("loading %s.%s: %w", model.Name, f.Name, err)
		}
		keys, err := collectKeys(rows, target.Key)
		if err != nil {
			return fmt.Errorf("loading %s.%s: %w", model.Name, f.Name, err)
		}
		vals, err := metadata.ParseKeys(f, keys)
		if err != nil {
			return fmt.Errorf("loading %s.%s: %w", model.Name, f.Name, err)
		}
		if err := inst.Set(f, vals); err != nil {
			return fmt.Errorf("loading %s.%s: %w", model.Name, f.Name, err)
		}
	}
	return nil
}

// Delete removes the row and every join-table link referencing it from
// either side.
func (s *Store) Delete(ctx context.Context, modelName, key string) error {
	model, err := s.model(modelName)
	if err != nil {
		return err
	}
	param, err := keyParam(model.Key, key)
	if err != nil {
		return fmt.Errorf("%s %s: %w", modelName, key, datastore.ErrNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	pb := s.dialect.NewParamBuilder()
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		quoteIdent(model.Table), quoteIdent(model.Key.Column), pb.Add(param))
	res, err := tx.ExecContext(ctx, del, pb.Params()...)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", modelName, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", modelName, key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", modelName, key, datastore.ErrNotFound)
	}

	for _, ref := range s.joinRefs(model) {
		pb := s.dialect.NewParamBuilder()
		q := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			quoteIdent(ref.table), quoteIdent(ref.column), pb.Add(param))
		if _, err := tx.ExecContext(ctx, q, pb.Params()...); err != nil {
			return fmt.Errorf("clearing links to %s %s: %w", modelName, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// ListRefs returns key/label pairs ordered by key.
func (s *Store) ListRefs(ctx context.Context, modelName string) ([]datastore.Ref, error) {
	model, err := s.model(modelName)
	if err != nil {
		return nil, err
	}
	fields := rowFields(model)
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		columnList(fields), quoteIdent(model.Table), quoteIdent(model.Key.Column))

	items, err := s.queryInstances(ctx, model, fields, query)
	if err != nil {
		return nil, err
	}
	refs := make([]datastore.Ref, 0, len(items))
	for _, inst := range items {
		refs = append(refs, datastore.Ref{Key: inst.Key(), Label: inst.Display()})
	}
	return refs, nil
}

func (s *Store) queryInstances(ctx context.Context, model *metadata.Model, fields []*metadata.Field, query string, args ...any) ([]*metadata.Instance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", model.Name, err)
	}
	defer rows.Close()

	var items []*metadata.Instance
	for rows.Next() {
		holders := make([]any, len(fields))
		for i, f := range fields {
			holders[i] = scanHolder(f)
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", model.Name, err)
		}
		inst := model.New()
		for i, f := range fields {
			v, err := decodeValue(f, holders[i])
			if err != nil {
				return nil, fmt.Errorf("decoding %s row: %w", model.Name, err)
			}
			if err := inst.Set(f, v); err != nil {
				return nil, fmt.Errorf("decoding %s row: %w", model.Name, err)
			}
		}
		items = append(items, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying %s: %w", model.Name, err)
	}
	return items, nil
}

func collectKeys(rows *sql.Rows, key *metadata.Field) ([]string, error) {
	defer rows.Close()
	var keys []string
	for rows.Next() {
		holder := scanHolder(key)
		if err := rows.Scan(holder); err != nil {
			return nil, err
		}
		v, err := decodeValue(key, holder)
		if err != nil {
			return nil, err
		}
		keys = append(keys, metadata.KeyString(v))
	}
	return keys, rows.Err()
}

type joinRef struct {
	table  string
	column string
}

// joinRefs lists every join table column holding keys of the model,
// from its own many fields and from other models pointing at it.
func (s *Store) joinRefs(model *metadata.Model) []joinRef {
	seen := make(map[joinRef]bool)
	var refs []joinRef
	add := func(r joinRef) {
		if !seen[r] {
			seen[r] = true
			refs = append(refs, r)
		}
	}

	for _, f := range model.ManyFields() {
		if _, ok := s.reg.Lookup(f.Relation); !ok {
			continue
		}
		own, _ := joinColumns(model.Name, f.Relation)
		add(joinRef{metadata.JoinTableName(model.Name, f.Relation), own})
	}
	for _, other := range s.reg.Models() {
		for _, f := range other.ManyFields() {
			if f.Relation != model.Name {
				continue
			}
			_, ref := joinColumns(other.Name, model.Name)
			add(joinRef{metadata.JoinTableName(other.Name, model.Name), ref})
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].table != refs[j].table {
			return refs[i].table < refs[j].table
		}
		return refs[i].column < refs[j].column
	})
	return refs
}

// joinColumns returns the owner and target column names inside a join
// table, disambiguating self-relations.
func joinColumns(ownerModel, targetModel string) (own, ref string) {
	own = metadata.RefColumnName(ownerModel)
	ref = metadata.RefColumnName(targetModel)
	if own == ref {
		ref = "related_" + ref
	}
	return own, ref
}

// rowFields returns the fields stored in the model's own table.
func rowFields(model *metadata.Model) []*metadata.Field {
	out := make([]*metadata.Field, 0, len(model.Fields))
	for _, f := range model.Fields {
		if !f.Many {
			out = append(out, f)
		}
	}
	return out
}

func withoutKey(fields []*metadata.Field) []*metadata.Field {
	out := make([]*metadata.Field, 0, len(fields))
	for _, f := range fields {
		if !f.PrimaryKey {
			out = append(out, f)
		}
	}
	return out
}

func columnList(fields []*metadata.Field) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quoteIdent(f.Column)
	}
	return strings.Join(cols, ", ")
}

// keyParam converts an interface key string to the typed query
// parameter for the key column.
func keyParam(f *metadata.Field, key string) (any, error) {
	switch f.GoType().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(key, 10, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	default:
		return key, nil
	}
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// keyList renders a many-field slice as deduplicated key strings.
func keyList(v any) []string {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil
	}
	seen := make(map[string]bool, rv.Len())
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		k := metadata.KeyString(rv.Index(i).Interface())
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// encodeValue converts a field value to its driver representation.
// Timestamps persist as RFC 3339 UTC text, decimals and object ids as
// text, booleans as 0/1.
func encodeValue(f *metadata.Field, v any) (any, error) {
	switch f.TypeName {
	case "time.Time":
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("field %s: not a time.Time", f.Name)
		}
		if t.IsZero() {
			return "", nil
		}
		return t.UTC().Format(time.RFC3339), nil
	case "decimal.Decimal":
		d, ok := v.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("field %s: not a decimal.Decimal", f.Name)
		}
		return d.String(), nil
	case "primitive.ObjectID":
		id, ok := v.(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("field %s: not an object id", f.Name)
		}
		if id.IsZero() {
			return "", nil
		}
		return id.Hex(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	}
	return nil, fmt.Errorf("field %s: no column encoding for %s", f.Name, f.TypeName)
}

// scanHolder returns a nullable scan target for the field's column.
func scanHolder(f *metadata.Field) any {
	switch f.TypeName {
	case "time.Time", "decimal.Decimal", "primitive.ObjectID":
		return new(sql.NullString)
	}
	switch f.GoType().Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(sql.NullInt64)
	case reflect.Float32, reflect.Float64:
		return new(sql.NullFloat64)
	default:
		return new(sql.NullString)
	}
}

// decodeValue converts a scanned column back to the field's Go value.
// NULLs decode to zero values.
func decodeValue(f *metadata.Field, holder any) (any, error) {
	switch h := holder.(type) {
	case *sql.NullString:
		s := ""
		if h.Valid {
			s = h.String
		}
		switch f.TypeName {
		case "time.Time":
			if s == "" {
				return time.Time{}, nil
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("field %s: parsing timestamp %q: %w", f.Name, s, err)
			}
			return t.UTC(), nil
		case "decimal.Decimal":
			if s == "" {
				return decimal.Decimal{}, nil
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("field %s: parsing decimal %q: %w", f.Name, s, err)
			}
			return d, nil
		case "primitive.ObjectID":
			if s == "" {
				return primitive.NilObjectID, nil
			}
			id, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				return nil, fmt.Errorf("field %s: parsing object id %q: %w", f.Name, s, err)
			}
			return id, nil
		}
		return s, nil
	case *sql.NullInt64:
		if f.GoType().Kind() == reflect.Bool {
			return h.Valid && h.Int64 != 0, nil
		}
		return h.Int64, nil
	case *sql.NullFloat64:
		return h.Float64, nil
	}
	return nil, fmt.Errorf("field %s: unhandled scan holder %T", f.Name, holder)
}
