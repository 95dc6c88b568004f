// Package model holds the in-memory representation of a database schema:
// tables, columns, foreign keys, and indexes, along with the equality
// semantics the differ relies on.
package model

// Schema is a mapping from table name to Table. The mapping is unordered by
// construction; any ordering required for output is produced by the
// dependency orderer (internal/differ).
type Schema struct {
	Tables map[string]Table
}

// NewSchema returns an empty Schema ready for population.
func NewSchema() Schema {
	return Schema{Tables: make(map[string]Table)}
}

// Table holds a table's columns, foreign keys, and indexes. Column order
// mirrors source ordinal position and is semantically significant only for
// CREATE TABLE; foreign-key and index order is not semantic.
type Table struct {
	Columns     []Column
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Column describes a single table column exactly as the catalog reports it.
type Column struct {
	Name       string
	DataType   string
	IsNullable bool
	Default    *string
}

// ForeignKey is a single-column foreign key. Identity for equality/diff
// purposes is the pair (Column, ReferencedTable); ReferencedColumn is
// carried but not part of that identity.
type ForeignKey struct {
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// Index describes a btree/hash/gin/... index. Indexes named "<table>_pkey"
// designate the primary key and are never emitted as a standalone
// CREATE INDEX/DROP INDEX statement.
type Index struct {
	Name      string
	Columns   []string
	IsUnique  bool
	IndexType string
}

// Identity returns the (column, referenced_table) pair used to compare
// foreign keys for diff purposes.
func (fk ForeignKey) Identity() (string, string) {
	return fk.Column, fk.ReferencedTable
}

// IsPrimaryKey reports whether this index is the table's primary key index
// by the "<table>_pkey" naming convention.
func (idx Index) IsPrimaryKey(tableName string) bool {
	return idx.Name == tableName+"_pkey"
}

// Equal reports whether two columns are identical in every diffable field:
// data type, nullability, and default expression (compared textually).
func (c Column) Equal(other Column) bool {
	if c.Name != other.Name || c.DataType != other.DataType || c.IsNullable != other.IsNullable {
		return false
	}
	return stringPtrEqual(c.Default, other.Default)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Equal reports whether two foreign keys share the same identity pair.
// ReferencedColumn is intentionally excluded, matching the differ's
// (column, referenced_table) identity.
func (fk ForeignKey) Equal(other ForeignKey) bool {
	return fk.Column == other.Column && fk.ReferencedTable == other.ReferencedTable
}

// Equal reports whether two indexes are identical by name. Index identity
// for diff purposes is the name alone (catalog guarantees global
// uniqueness across the schema).
func (idx Index) Equal(other Index) bool {
	return idx.Name == other.Name
}

// Equal reports whether two tables have the same columns (by name and
// value), foreign keys, and indexes, ignoring order.
func (t Table) Equal(other Table) bool {
	if !columnsEqual(t.Columns, other.Columns) {
		return false
	}
	if !foreignKeysEqual(t.ForeignKeys, other.ForeignKeys) {
		return false
	}
	return indexesEqual(t.Indexes, other.Indexes)
}

func columnsEqual(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]Column, len(b))
	for _, c := range b {
		byName[c.Name] = c
	}
	for _, c := range a {
		other, ok := byName[c.Name]
		if !ok || !c.Equal(other) {
			return false
		}
	}
	return true
}

func foreignKeysEqual(a, b []ForeignKey) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(b))
	for _, fk := range b {
		col, ref := fk.Identity()
		seen[col+"\x00"+ref] = true
	}
	for _, fk := range a {
		col, ref := fk.Identity()
		if !seen[col+"\x00"+ref] {
			return false
		}
	}
	return true
}

func indexesEqual(a, b []Index) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]Index, len(b))
	for _, idx := range b {
		byName[idx.Name] = idx
	}
	for _, idx := range a {
		other, ok := byName[idx.Name]
		if !ok || !idx.Equal(other) {
			return false
		}
	}
	return true
}

// Equal reports whether two schemas contain the same set of tables, each
// structurally identical per Table.Equal.
func (s Schema) Equal(other Schema) bool {
	if len(s.Tables) != len(other.Tables) {
		return false
	}
	for name, t := range s.Tables {
		ot, ok := other.Tables[name]
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	return true
}
