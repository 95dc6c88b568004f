package differ

import (
	"sort"

	"github.com/hiveql/hive/internal/model"
)

// sortedTableNames returns the schema's table names in lexicographic
// order, for phases whose cross-table ordering carries no dependency
// meaning but should still be stable across runs.
func sortedTableNames(schema model.Schema) []string {
	names := make([]string, 0, len(schema.Tables))
	for name := range schema.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortTablesByDependency orders table names so that a table referenced by
// another table's foreign keys comes before the table that references it.
// It tolerates cycles: a table stuck in a cycle is appended once all of its
// non-cyclic dependencies have been placed, rather than causing a deadlock.
// A repeated-scan worklist rather than a recursive DFS, so cycles degrade
// to "emit whatever's left" instead of infinite recursion.
func sortTablesByDependency(schema model.Schema) []string {
	names := sortedTableNames(schema)

	var ordered []string

	dependsOn := func(table string) []string {
		var deps []string
		for _, fk := range schema.Tables[table].ForeignKeys {
			if fk.ReferencedTable != table {
				deps = append(deps, fk.ReferencedTable)
			}
		}
		return deps
	}

	remaining := make(map[string]bool, len(names))
	for _, n := range names {
		remaining[n] = true
	}

	for len(remaining) > 0 {
		progressed := false
		for _, name := range names {
			if !remaining[name] {
				continue
			}
			ready := true
			for _, dep := range dependsOn(name) {
				if remaining[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, name)
				delete(remaining, name)
				progressed = true
			}
		}
		if !progressed {
			// A cycle: break it by placing the remaining tables in
			// lexicographic order.
			for _, name := range names {
				if remaining[name] {
					ordered = append(ordered, name)
					delete(remaining, name)
				}
			}
		}
	}

	return ordered
}
