// Package sqlgen renders differ.Operation values as executable DDL.
//
// The renderer sits behind a Dialect interface with a single Postgres
// implementation, so a second dialect is a new type, not a rewrite, even
// though PostgreSQL is the only target today.
package sqlgen

import (
	"strings"

	"github.com/hiveql/hive/internal/differ"
	"github.com/hiveql/hive/internal/model"
)

// Dialect renders a single operation as one executable DDL statement.
type Dialect interface {
	Render(op differ.Operation) string
}

// Postgres is the Dialect targeting PostgreSQL.
type Postgres struct{}

var _ Dialect = Postgres{}

// typeMapping normalizes catalog type spellings to DDL type tokens. Applies
// in CREATE TABLE and ADD COLUMN only; anything not listed passes through
// verbatim.
var typeMapping = map[string]string{
	"character varying":           "VARCHAR(255)",
	"timestamp without time zone": "TIMESTAMP",
	"timestamp with time zone":    "TIMESTAMPTZ",
}

func ddlType(catalogType string) string {
	if mapped, ok := typeMapping[catalogType]; ok {
		return mapped
	}
	return catalogType
}

func quote(identifier string) string {
	return `"` + identifier + `"`
}

// Render produces the DDL for op as one string. For AlterColumn that string
// holds three statements joined by ";\n"; RenderMulti returns them apart.
func (Postgres) Render(op differ.Operation) string {
	switch op.Kind {
	case differ.CreateTable:
		return renderCreateTable(op.Table, *op.NewTable)
	case differ.AddColumn:
		return renderAddColumn(op.Table, *op.Column)
	case differ.AlterColumn:
		return renderAlterColumn(op.Table, *op.Column)
	case differ.CreateIndex:
		return renderCreateIndex(op.Table, *op.Index)
	case differ.DropIndex:
		return renderDropIndex(*op.Index)
	case differ.CreateForeignKey:
		return renderAddForeignKey(op.Table, *op.ForeignKey)
	case differ.DropForeignKey:
		return renderDropForeignKey(op.Table, *op.ForeignKey)
	default:
		return ""
	}
}

// RenderMulti returns the statements for op as separate strings. An
// AlterColumn operation yields three independent statements (TYPE, NOT
// NULL, DEFAULT); every other kind yields the single Render result.
func (p Postgres) RenderMulti(op differ.Operation) []string {
	if op.Kind != differ.AlterColumn {
		return []string{p.Render(op)}
	}
	return renderAlterColumnStatements(op.Table, *op.Column)
}

func renderCreateTable(table string, t model.Table) string {
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, "  "+columnDef(c, true))
	}
	if pk := primaryKeyIndex(table, t); pk != nil {
		lines = append(lines, "  PRIMARY KEY ("+strings.Join(quoteAll(pk.Columns), ", ")+")")
	}
	return "CREATE TABLE " + quote(table) + " (\n" + strings.Join(lines, ",\n") + "\n)"
}

func primaryKeyIndex(table string, t model.Table) *model.Index {
	for _, idx := range t.Indexes {
		if idx.IsPrimaryKey(table) {
			idx := idx
			return &idx
		}
	}
	return nil
}

// columnDef renders a column definition. When suppressNextval is true
// (CREATE TABLE only) a default expression containing "nextval" is
// omitted; the sequence is assumed to come from the column's underlying
// SERIAL-style declaration.
func columnDef(c model.Column, suppressNextval bool) string {
	def := quote(c.Name) + " " + ddlType(c.DataType)
	if !c.IsNullable {
		def += " NOT NULL"
	}
	if c.Default != nil {
		if !(suppressNextval && strings.Contains(*c.Default, "nextval")) {
			def += " DEFAULT " + *c.Default
		}
	}
	return def
}

func renderAddColumn(table string, c model.Column) string {
	return "ALTER TABLE " + quote(table) + " ADD COLUMN " + columnDef(c, false)
}

func renderAlterColumn(table string, c model.Column) string {
	return strings.Join(renderAlterColumnStatements(table, c), ";\n")
}

func renderAlterColumnStatements(table string, c model.Column) []string {
	base := "ALTER TABLE " + quote(table) + " ALTER COLUMN " + quote(c.Name)
	typeStmt := base + " TYPE " + c.DataType + " USING " + quote(c.Name) + "::" + c.DataType

	var nullStmt string
	if c.IsNullable {
		nullStmt = base + " DROP NOT NULL"
	} else {
		nullStmt = base + " SET NOT NULL"
	}

	var defaultStmt string
	if c.Default != nil {
		defaultStmt = base + " SET DEFAULT " + *c.Default
	} else {
		defaultStmt = base + " DROP DEFAULT"
	}

	return []string{typeStmt, nullStmt, defaultStmt}
}

func renderCreateIndex(table string, idx model.Index) string {
	unique := ""
	if idx.IsUnique {
		unique = "UNIQUE "
	}
	return "CREATE " + unique + "INDEX " + quote(idx.Name) + " ON " + quote(table) +
		" USING " + idx.IndexType + " (" + strings.Join(quoteAll(idx.Columns), ", ") + ")"
}

func renderDropIndex(idx model.Index) string {
	return "DROP INDEX IF EXISTS " + quote(idx.Name)
}

func foreignKeyConstraintName(table string, fk model.ForeignKey) string {
	return table + "_" + fk.Column + "_fkey"
}

func renderAddForeignKey(table string, fk model.ForeignKey) string {
	name := foreignKeyConstraintName(table, fk)
	return "ALTER TABLE " + quote(table) + " ADD CONSTRAINT " + quote(name) +
		" FOREIGN KEY (" + quote(fk.Column) + ") REFERENCES " +
		quote(fk.ReferencedTable) + "(" + quote(fk.ReferencedColumn) + ")"
}

func renderDropForeignKey(table string, fk model.ForeignKey) string {
	name := foreignKeyConstraintName(table, fk)
	return "ALTER TABLE " + quote(table) + " DROP CONSTRAINT IF EXISTS " + quote(name)
}

func quoteAll(identifiers []string) []string {
	out := make([]string, len(identifiers))
	for i, id := range identifiers {
		out[i] = quote(id)
	}
	return out
}

// MultiDialect is a Dialect that may expand a single Operation into more
// than one statement (AlterColumn does).
type MultiDialect interface {
	Dialect
	RenderMulti(op differ.Operation) []string
}

// Plan renders every operation in order, expanding multi-statement
// operations (AlterColumn) into their constituent statements.
func Plan(dialect MultiDialect, ops []differ.Operation) []string {
	var statements []string
	for _, op := range ops {
		statements = append(statements, dialect.RenderMulti(op)...)
	}
	return statements
}
