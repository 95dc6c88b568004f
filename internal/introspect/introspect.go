// Package introspect reads a live PostgreSQL database's catalog views and
// reconstitutes a model.Schema from them: three independent passes
// (columns, foreign keys, indexes) joined in-memory on table name. Each
// dimension lives in a different catalog, so three scoped queries beat one
// row-exploding join.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hiveql/hive/internal/model"
)

// Error is IntrospectionError: raised when a catalog query fails or a row
// has an unexpected shape.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("introspection failed (%s): %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

const columnsQuery = `
SELECT table_name, column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position
`

const foreignKeysQuery = `
SELECT
	tc.table_name,
	kcu.column_name,
	ccu.table_name AS referenced_table,
	ccu.column_name AS referenced_column
FROM information_schema.table_constraints AS tc
JOIN information_schema.key_column_usage AS kcu
	ON tc.constraint_name = kcu.constraint_name
	AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage AS ccu
	ON ccu.constraint_name = tc.constraint_name
	AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
	AND tc.table_schema = 'public'
ORDER BY tc.table_name, kcu.column_name
`

const indexesQuery = `
SELECT
	t.relname AS table_name,
	i.relname AS index_name,
	a.attname AS column_name,
	ix.indisunique AS is_unique,
	am.amname AS index_type
FROM pg_class t
JOIN pg_index ix ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_am am ON i.relam = am.oid
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
JOIN pg_namespace n ON n.oid = t.relnamespace
WHERE n.nspname = 'public'
	AND t.relkind = 'r'
ORDER BY t.relname, i.relname, a.attnum
`

// Introspect populates a model.Schema from the live database reachable
// through db. It runs three independent catalog queries and joins their
// results in-memory on table name.
func Introspect(ctx context.Context, db *sql.DB) (model.Schema, error) {
	schema := model.NewSchema()

	if err := loadColumns(ctx, db, schema); err != nil {
		return model.Schema{}, err
	}
	if err := loadForeignKeys(ctx, db, schema); err != nil {
		return model.Schema{}, err
	}
	if err := loadIndexes(ctx, db, schema); err != nil {
		return model.Schema{}, err
	}

	slog.Debug("introspection complete", slog.Int("tables", len(schema.Tables)))
	return schema, nil
}

func loadColumns(ctx context.Context, db *sql.DB, schema model.Schema) error {
	rows, err := db.QueryContext(ctx, columnsQuery)
	if err != nil {
		return wrap("columns", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var tableName, columnName, dataType, isNullable string
		var def sql.NullString
		if err := rows.Scan(&tableName, &columnName, &dataType, &isNullable, &def); err != nil {
			return wrap("columns scan", err)
		}

		t, ok := schema.Tables[tableName]
		if !ok {
			t = model.Table{}
		}
		col := model.Column{
			Name:       columnName,
			DataType:   dataType,
			IsNullable: isNullable == "YES",
		}
		if def.Valid {
			d := def.String
			col.Default = &d
		}
		t.Columns = append(t.Columns, col)
		schema.Tables[tableName] = t
		count++
	}
	if err := rows.Err(); err != nil {
		return wrap("columns rows", err)
	}
	slog.Debug("introspected columns", slog.Int("rows", count))
	return nil
}

func loadForeignKeys(ctx context.Context, db *sql.DB, schema model.Schema) error {
	rows, err := db.QueryContext(ctx, foreignKeysQuery)
	if err != nil {
		return wrap("foreign_keys", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var tableName, columnName, refTable, refColumn string
		if err := rows.Scan(&tableName, &columnName, &refTable, &refColumn); err != nil {
			return wrap("foreign_keys scan", err)
		}

		t, ok := schema.Tables[tableName]
		if !ok {
			// A foreign key naming a table absent from the column pass is
			// silently dropped.
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, model.ForeignKey{
			Column:           columnName,
			ReferencedTable:  refTable,
			ReferencedColumn: refColumn,
		})
		schema.Tables[tableName] = t
		count++
	}
	if err := rows.Err(); err != nil {
		return wrap("foreign_keys rows", err)
	}
	slog.Debug("introspected foreign keys", slog.Int("rows", count))
	return nil
}

func loadIndexes(ctx context.Context, db *sql.DB, schema model.Schema) error {
	rows, err := db.QueryContext(ctx, indexesQuery)
	if err != nil {
		return wrap("indexes", err)
	}
	defer rows.Close()

	type key struct{ table, index string }
	order := make([]key, 0)
	grouped := make(map[key]*model.Index)
	tableOf := make(map[key]string)

	count := 0
	for rows.Next() {
		var tableName, indexName, columnName, indexType string
		var isUnique bool
		if err := rows.Scan(&tableName, &indexName, &columnName, &isUnique, &indexType); err != nil {
			return wrap("indexes scan", err)
		}

		k := key{tableName, indexName}
		idx, ok := grouped[k]
		if !ok {
			idx = &model.Index{Name: indexName, IsUnique: isUnique, IndexType: indexType}
			grouped[k] = idx
			tableOf[k] = tableName
			order = append(order, k)
		}
		idx.Columns = append(idx.Columns, columnName)
		count++
	}
	if err := rows.Err(); err != nil {
		return wrap("indexes rows", err)
	}

	for _, k := range order {
		t, ok := schema.Tables[tableOf[k]]
		if !ok {
			continue
		}
		t.Indexes = append(t.Indexes, *grouped[k])
		schema.Tables[tableOf[k]] = t
	}
	slog.Debug("introspected indexes", slog.Int("rows", count))
	return nil
}
