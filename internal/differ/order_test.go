package differ

import (
	"testing"

	"github.com/hiveql/hive/internal/model"
)

func indexOf(names []string, target string) int {
	for i, n := range names {
		if n == target {
			return i
		}
	}
	return -1
}

func TestSortTablesByDependency_ReferencedFirst(t *testing.T) {
	schema := model.NewSchema()
	schema.Tables["users"] = model.Table{}
	schema.Tables["posts"] = model.Table{
		ForeignKeys: []model.ForeignKey{{Column: "author_id", ReferencedTable: "users", ReferencedColumn: "id"}},
	}

	order := sortTablesByDependency(schema)

	if indexOf(order, "users") > indexOf(order, "posts") {
		t.Errorf("expected users before posts, got %v", order)
	}
}

func TestSortTablesByDependency_TransitiveChain(t *testing.T) {
	schema := model.NewSchema()
	schema.Tables["a"] = model.Table{}
	schema.Tables["b"] = model.Table{
		ForeignKeys: []model.ForeignKey{{Column: "a_id", ReferencedTable: "a"}},
	}
	schema.Tables["c"] = model.Table{
		ForeignKeys: []model.ForeignKey{{Column: "b_id", ReferencedTable: "b"}},
	}

	order := sortTablesByDependency(schema)

	if !(indexOf(order, "a") < indexOf(order, "b") && indexOf(order, "b") < indexOf(order, "c")) {
		t.Errorf("expected order a, b, c; got %v", order)
	}
}

func TestSortTablesByDependency_ToleratesCycle(t *testing.T) {
	schema := model.NewSchema()
	schema.Tables["a"] = model.Table{
		ForeignKeys: []model.ForeignKey{{Column: "b_id", ReferencedTable: "b"}},
	}
	schema.Tables["b"] = model.Table{
		ForeignKeys: []model.ForeignKey{{Column: "a_id", ReferencedTable: "a"}},
	}

	order := sortTablesByDependency(schema)

	if len(order) != 2 {
		t.Fatalf("expected both tables to be placed despite the cycle, got %v", order)
	}
}

func TestSortTablesByDependency_SelfReferenceIgnored(t *testing.T) {
	schema := model.NewSchema()
	schema.Tables["nodes"] = model.Table{
		ForeignKeys: []model.ForeignKey{{Column: "parent_id", ReferencedTable: "nodes"}},
	}

	order := sortTablesByDependency(schema)

	if len(order) != 1 || order[0] != "nodes" {
		t.Errorf("expected a self-referencing table to place without deadlock, got %v", order)
	}
}

func TestSortTablesByDependency_MissingTargetStillPlaces(t *testing.T) {
	schema := model.NewSchema()
	schema.Tables["posts"] = model.Table{
		ForeignKeys: []model.ForeignKey{{Column: "author_id", ReferencedTable: "users"}},
	}

	order := sortTablesByDependency(schema)

	if len(order) != 1 || order[0] != "posts" {
		t.Errorf("expected posts to place even though its referenced table is absent, got %v", order)
	}
}
