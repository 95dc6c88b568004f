package differ

import (
	"testing"

	"github.com/hiveql/hive/internal/model"
)

func kindsOf(ops []Operation) []Kind {
	kinds := make([]Kind, len(ops))
	for i, op := range ops {
		kinds[i] = op.Kind
	}
	return kinds
}

func TestDiff_EmptyToOneTable(t *testing.T) {
	current := model.NewSchema()
	target := model.NewSchema()
	target.Tables["users"] = model.Table{
		Columns: []model.Column{
			{Name: "id", DataType: "integer", IsNullable: false},
			{Name: "name", DataType: "text", IsNullable: true},
		},
		Indexes: []model.Index{
			{Name: "users_pkey", Columns: []string{"id"}, IsUnique: true, IndexType: "btree"},
		},
	}

	ops := Diff(current, target)

	if len(ops) != 1 {
		t.Fatalf("expected exactly one operation, got %d: %v", len(ops), ops)
	}
	if ops[0].Kind != CreateTable {
		t.Errorf("expected CreateTable, got %s", ops[0].Kind)
	}
}

func TestDiff_AddNullableColumn(t *testing.T) {
	current := model.NewSchema()
	current.Tables["users"] = model.Table{Columns: []model.Column{{Name: "id", DataType: "integer"}}}

	target := model.NewSchema()
	target.Tables["users"] = model.Table{Columns: []model.Column{
		{Name: "id", DataType: "integer"},
		{Name: "email", DataType: "text", IsNullable: true},
	}}

	ops := Diff(current, target)
	if len(ops) != 1 || ops[0].Kind != AddColumn || ops[0].Column.Name != "email" {
		t.Fatalf("expected a single AddColumn(email), got %v", ops)
	}
}

func TestDiff_TightenNullability(t *testing.T) {
	current := model.NewSchema()
	current.Tables["users"] = model.Table{Columns: []model.Column{
		{Name: "email", DataType: "text", IsNullable: true},
	}}

	target := model.NewSchema()
	target.Tables["users"] = model.Table{Columns: []model.Column{
		{Name: "email", DataType: "text", IsNullable: false},
	}}

	ops := Diff(current, target)
	if len(ops) != 1 || ops[0].Kind != AlterColumn {
		t.Fatalf("expected a single AlterColumn, got %v", ops)
	}
}

func TestDiff_DependentTableCreationOrdersBeforeFK(t *testing.T) {
	current := model.NewSchema()

	target := model.NewSchema()
	target.Tables["users"] = model.Table{
		Columns: []model.Column{{Name: "id", DataType: "integer"}},
	}
	target.Tables["posts"] = model.Table{
		Columns:     []model.Column{{Name: "author_id", DataType: "integer"}},
		ForeignKeys: []model.ForeignKey{{Column: "author_id", ReferencedTable: "users", ReferencedColumn: "id"}},
	}

	ops := Diff(current, target)

	var usersCreateIdx, postsCreateIdx, fkIdx int = -1, -1, -1
	for i, op := range ops {
		switch {
		case op.Kind == CreateTable && op.Table == "users":
			usersCreateIdx = i
		case op.Kind == CreateTable && op.Table == "posts":
			postsCreateIdx = i
		case op.Kind == CreateForeignKey && op.Table == "posts":
			fkIdx = i
		}
	}

	if usersCreateIdx == -1 || postsCreateIdx == -1 || fkIdx == -1 {
		t.Fatalf("expected CreateTable(users), CreateTable(posts), and CreateForeignKey(posts) all present, got %v", kindsOf(ops))
	}
	if !(usersCreateIdx < postsCreateIdx && postsCreateIdx < fkIdx) {
		t.Errorf("expected users created, then posts, then its FK; got order %v", ops)
	}
}

func TestDiff_PhaseOrdering(t *testing.T) {
	current := model.NewSchema()
	current.Tables["users"] = model.Table{
		Columns: []model.Column{{Name: "id", DataType: "integer"}, {Name: "old_col", DataType: "text", IsNullable: true}},
		ForeignKeys: []model.ForeignKey{
			{Column: "group_id", ReferencedTable: "groups", ReferencedColumn: "id"},
		},
		Indexes: []model.Index{
			{Name: "users_old_idx", Columns: []string{"old_col"}, IsUnique: false, IndexType: "btree"},
		},
	}
	current.Tables["groups"] = model.Table{Columns: []model.Column{{Name: "id", DataType: "integer"}}}

	target := model.NewSchema()
	target.Tables["users"] = model.Table{
		Columns: []model.Column{
			{Name: "id", DataType: "integer"},
			{Name: "new_col", DataType: "text", IsNullable: true},
		},
		ForeignKeys: []model.ForeignKey{
			{Column: "owner_id", ReferencedTable: "groups", ReferencedColumn: "id"},
		},
		Indexes: []model.Index{
			{Name: "users_new_idx", Columns: []string{"new_col"}, IsUnique: false, IndexType: "btree"},
		},
	}
	target.Tables["groups"] = model.Table{Columns: []model.Column{{Name: "id", DataType: "integer"}}}

	ops := Diff(current, target)
	kinds := kindsOf(ops)

	expectBefore := func(a, b Kind) {
		ai, bi := -1, -1
		for i, k := range kinds {
			if k == a && ai == -1 {
				ai = i
			}
			if k == b && bi == -1 {
				bi = i
			}
		}
		if ai == -1 || bi == -1 {
			t.Fatalf("expected both %s and %s present in %v", a, b, kinds)
		}
		if ai > bi {
			t.Errorf("expected %s before %s, got order %v", a, b, kinds)
		}
	}

	expectBefore(DropForeignKey, AddColumn)
	expectBefore(AddColumn, CreateIndex)
	expectBefore(CreateIndex, CreateForeignKey)
	expectBefore(CreateForeignKey, DropIndex)
}

func TestDiff_PrimaryKeyIndexesNeverTouched(t *testing.T) {
	current := model.NewSchema()
	current.Tables["users"] = model.Table{
		Indexes: []model.Index{{Name: "users_pkey", Columns: []string{"id"}, IsUnique: true, IndexType: "btree"}},
	}
	target := model.NewSchema()
	target.Tables["users"] = model.Table{}

	ops := Diff(current, target)
	for _, op := range ops {
		if op.Kind == DropIndex {
			t.Errorf("did not expect users_pkey to ever be dropped, got %v", op)
		}
	}
}

func TestDiff_EmptyWhenIdentical(t *testing.T) {
	schema := model.NewSchema()
	schema.Tables["users"] = model.Table{Columns: []model.Column{{Name: "id", DataType: "integer"}}}

	ops := Diff(schema, schema)
	if len(ops) != 0 {
		t.Errorf("expected no operations for identical schemas, got %v", ops)
	}
}
