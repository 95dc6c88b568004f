package codegen

import (
	"strings"
	"testing"

	"github.com/hiveql/hive/internal/model"
)

func TestGenerate_StructFieldsAndNullability(t *testing.T) {
	schema := model.NewSchema()
	schema.Tables["user_accounts"] = model.Table{
		Columns: []model.Column{
			{Name: "id", DataType: "integer", IsNullable: false},
			{Name: "email", DataType: "character varying", IsNullable: true},
			{Name: "created_at", DataType: "timestamp with time zone", IsNullable: false},
		},
	}

	files, err := Generate(schema, "models")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	src, ok := files["user_accounts.go"]
	if !ok {
		t.Fatalf("expected a user_accounts.go file, got keys %v", keysOf(files))
	}

	if !strings.Contains(src, "type UserAccounts struct") {
		t.Errorf("expected a UserAccounts struct, got:\n%s", src)
	}
	// gofmt column-aligns the fields to the longest name, CreatedAt.
	if !strings.Contains(src, "Id        int32") {
		t.Errorf("expected non-nullable integer id to be int32, got:\n%s", src)
	}
	if !strings.Contains(src, "Email     *string") {
		t.Errorf("expected nullable varchar email to be *string, got:\n%s", src)
	}
	if !strings.Contains(src, "time.Time") || !strings.Contains(src, `"time"`) {
		t.Errorf("expected timestamptz column to import time and use time.Time, got:\n%s", src)
	}
}

func TestGenerate_UnknownTypeFallsBackToAny(t *testing.T) {
	schema := model.NewSchema()
	schema.Tables["things"] = model.Table{
		Columns: []model.Column{{Name: "payload", DataType: "tsvector", IsNullable: true}},
	}

	files, err := Generate(schema, "models")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(files["things.go"], "*any") {
		t.Errorf("expected unknown catalog type to map to any, got:\n%s", files["things.go"])
	}
}

func keysOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
