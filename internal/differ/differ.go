// Package differ computes the ordered sequence of schema changes needed to
// take a database from its current state to a desired state.
//
// The six-phase ordering below is load-bearing and must not be reshuffled:
// dropping stale foreign keys before altering tables avoids constraint
// violations mid-migration, and new indexes are created before new foreign
// keys so the keys can use them.
package differ

import (
	"fmt"
	"strings"

	"github.com/hiveql/hive/internal/model"
)

// Kind identifies the sort of change a single Operation performs.
type Kind int

const (
	DropForeignKey Kind = iota
	CreateTable
	AddColumn
	AlterColumn
	CreateIndex
	CreateForeignKey
	DropIndex
)

func (k Kind) String() string {
	switch k {
	case DropForeignKey:
		return "drop_foreign_key"
	case CreateTable:
		return "create_table"
	case AddColumn:
		return "add_column"
	case AlterColumn:
		return "alter_column"
	case CreateIndex:
		return "create_index"
	case CreateForeignKey:
		return "create_foreign_key"
	case DropIndex:
		return "drop_index"
	default:
		return "unknown"
	}
}

// Operation is a single, independently-renderable schema change.
type Operation struct {
	Kind  Kind
	Table string

	// Populated depending on Kind.
	NewTable   *model.Table // CreateTable
	Column     *model.Column
	ForeignKey *model.ForeignKey
	Index      *model.Index
}

func (op Operation) String() string {
	return fmt.Sprintf("%s(%s)", op.Kind, op.Table)
}

// Diff compares current (what the database has) against desired (what the
// schema file declares) and returns the ordered list of operations that
// migrates current toward desired. An empty result means the two schemas
// are already equivalent.
func Diff(current, desired model.Schema) []Operation {
	var ops []Operation

	ops = append(ops, diffDroppedForeignKeys(current, desired)...)
	ops = append(ops, diffNewTables(current, desired)...)
	ops = append(ops, diffAlteredTables(current, desired)...)
	ops = append(ops, diffNewIndexes(current, desired)...)
	ops = append(ops, diffNewForeignKeys(current, desired)...)
	ops = append(ops, diffDroppedIndexes(current, desired)...)

	return ops
}

// Phase 1: foreign keys present in current but absent from desired, on
// tables that still exist in desired. FKs on tables being dropped entirely
// are not emitted here; PostgreSQL drops them implicitly with the table
// (not modeled: table drops are a Non-goal).
func diffDroppedForeignKeys(current, desired model.Schema) []Operation {
	var ops []Operation
	for _, tableName := range sortedTableNames(current) {
		curTable := current.Tables[tableName]
		desTable, ok := desired.Tables[tableName]
		if !ok {
			continue
		}
		for _, fk := range curTable.ForeignKeys {
			if !hasForeignKey(desTable.ForeignKeys, fk) {
				fk := fk
				ops = append(ops, Operation{Kind: DropForeignKey, Table: tableName, ForeignKey: &fk})
			}
		}
	}
	return ops
}

// Phase 2: tables present in desired but absent from current, emitted in
// dependency order so a referenced table is created before its referrer.
func diffNewTables(current, desired model.Schema) []Operation {
	var ops []Operation
	for _, tableName := range sortTablesByDependency(desired) {
		if _, exists := current.Tables[tableName]; exists {
			continue
		}
		t := desired.Tables[tableName]
		ops = append(ops, Operation{Kind: CreateTable, Table: tableName, NewTable: &t})
	}
	return ops
}

// Phase 3: for tables present in both, add missing columns first, then
// alter columns whose type/nullability/default changed.
func diffAlteredTables(current, desired model.Schema) []Operation {
	var ops []Operation
	for _, tableName := range sortTablesByDependency(desired) {
		curTable, existedBefore := current.Tables[tableName]
		desTable, exists := desired.Tables[tableName]
		if !exists || !existedBefore {
			continue
		}

		curByName := make(map[string]model.Column, len(curTable.Columns))
		for _, c := range curTable.Columns {
			curByName[c.Name] = c
		}

		var addOps, alterOps []Operation
		for _, desCol := range desTable.Columns {
			curCol, ok := curByName[desCol.Name]
			if !ok {
				desCol := desCol
				addOps = append(addOps, Operation{Kind: AddColumn, Table: tableName, Column: &desCol})
				continue
			}
			if !curCol.Equal(desCol) {
				desCol := desCol
				alterOps = append(alterOps, Operation{Kind: AlterColumn, Table: tableName, Column: &desCol})
			}
		}
		ops = append(ops, addOps...)
		ops = append(ops, alterOps...)
	}
	return ops
}

// Phase 4: indexes present in desired but absent from current. Primary-key
// indexes are excluded; they're created implicitly by CreateTable and are
// not independently manageable.
func diffNewIndexes(current, desired model.Schema) []Operation {
	var ops []Operation
	for _, tableName := range sortTablesByDependency(desired) {
		desTable, exists := desired.Tables[tableName]
		if !exists {
			continue
		}
		curTable := current.Tables[tableName]
		for _, idx := range desTable.Indexes {
			if strings.HasSuffix(idx.Name, "_pkey") {
				continue
			}
			if !hasIndex(curTable.Indexes, idx) {
				idx := idx
				ops = append(ops, Operation{Kind: CreateIndex, Table: tableName, Index: &idx})
			}
		}
	}
	return ops
}

// Phase 5: foreign keys present in desired but absent from current.
// CreateTable only emits columns and the primary key, so this phase also
// covers FKs on brand-new tables; running it after phase 2 guarantees every
// table in the migration exists by the time any FK constraint is added.
func diffNewForeignKeys(current, desired model.Schema) []Operation {
	var ops []Operation
	for _, tableName := range sortTablesByDependency(desired) {
		desTable, exists := desired.Tables[tableName]
		if !exists {
			continue
		}
		curTable := current.Tables[tableName]
		for _, fk := range desTable.ForeignKeys {
			if !hasForeignKey(curTable.ForeignKeys, fk) {
				fk := fk
				ops = append(ops, Operation{Kind: CreateForeignKey, Table: tableName, ForeignKey: &fk})
			}
		}
	}
	return ops
}

// Phase 6: indexes present in current but absent from desired, on tables
// that still exist in desired. Primary-key indexes are never dropped here.
func diffDroppedIndexes(current, desired model.Schema) []Operation {
	var ops []Operation
	for _, tableName := range sortedTableNames(current) {
		curTable := current.Tables[tableName]
		desTable, ok := desired.Tables[tableName]
		if !ok {
			continue
		}
		for _, idx := range curTable.Indexes {
			if strings.HasSuffix(idx.Name, "_pkey") {
				continue
			}
			if !hasIndex(desTable.Indexes, idx) {
				idx := idx
				ops = append(ops, Operation{Kind: DropIndex, Table: tableName, Index: &idx})
			}
		}
	}
	return ops
}

func hasForeignKey(fks []model.ForeignKey, target model.ForeignKey) bool {
	for _, fk := range fks {
		if fk.Equal(target) {
			return true
		}
	}
	return false
}

func hasIndex(indexes []model.Index, target model.Index) bool {
	for _, idx := range indexes {
		if idx.Equal(target) {
			return true
		}
	}
	return false
}
