package model

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// tomlSchema is the on-disk shape of a schema file: a sequence of
// [[table]] blocks.
type tomlSchema struct {
	Table []tomlTable `toml:"table"`
}

type tomlTable struct {
	Name       string           `toml:"name"`
	Column     []tomlColumn     `toml:"column"`
	ForeignKey []tomlForeignKey `toml:"foreign_key,omitempty"`
	Index      []tomlIndex      `toml:"index,omitempty"`
}

type tomlColumn struct {
	Name       string  `toml:"name"`
	DataType   string  `toml:"data_type"`
	IsNullable bool    `toml:"is_nullable"`
	Default    *string `toml:"default,omitempty"`
}

type tomlForeignKey struct {
	Column           string `toml:"column"`
	ReferencedTable  string `toml:"referenced_table"`
	ReferencedColumn string `toml:"referenced_column"`
}

type tomlIndex struct {
	Name      string   `toml:"name"`
	Columns   []string `toml:"columns"`
	IsUnique  bool     `toml:"is_unique"`
	IndexType string   `toml:"index_type"`
}

// LoadTOML reads a Schema from a TOML file in the [[table]] array-of-tables
// format. The array order in the file is preserved in the returned slice
// for callers that care (e.g. diagnostics); the Schema itself remains an
// unordered map.
func LoadTOML(path string) (Schema, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, nil, fmt.Errorf("read schema file %s: %w", path, err)
	}

	var ts tomlSchema
	if _, err := toml.Decode(string(data), &ts); err != nil {
		return Schema{}, nil, fmt.Errorf("parse schema file %s: %w", path, err)
	}

	schema := NewSchema()
	order := make([]string, 0, len(ts.Table))
	for _, tt := range ts.Table {
		schema.Tables[tt.Name] = Table{
			Columns:     columnsFromTOML(tt.Column),
			ForeignKeys: foreignKeysFromTOML(tt.ForeignKey),
			Indexes:     indexesFromTOML(tt.Index),
		}
		order = append(order, tt.Name)
	}
	return schema, order, nil
}

// SaveTOML writes a Schema to path in the [[table]] format, with tables
// emitted in lexicographic order by name.
func SaveTOML(schema Schema, path string) error {
	names := make([]string, 0, len(schema.Tables))
	for name := range schema.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	ts := tomlSchema{Table: make([]tomlTable, 0, len(names))}
	for _, name := range names {
		t := schema.Tables[name]
		ts.Table = append(ts.Table, tomlTable{
			Name:       name,
			Column:     columnsToTOML(t.Columns),
			ForeignKey: foreignKeysToTOML(t.ForeignKeys),
			Index:      indexesToTOML(t.Indexes),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create schema file %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(ts); err != nil {
		return fmt.Errorf("write schema file %s: %w", path, err)
	}
	return nil
}

func columnsFromTOML(in []tomlColumn) []Column {
	out := make([]Column, len(in))
	for i, c := range in {
		out[i] = Column{Name: c.Name, DataType: c.DataType, IsNullable: c.IsNullable, Default: c.Default}
	}
	return out
}

func columnsToTOML(in []Column) []tomlColumn {
	out := make([]tomlColumn, len(in))
	for i, c := range in {
		out[i] = tomlColumn{Name: c.Name, DataType: c.DataType, IsNullable: c.IsNullable, Default: c.Default}
	}
	return out
}

func foreignKeysFromTOML(in []tomlForeignKey) []ForeignKey {
	out := make([]ForeignKey, len(in))
	for i, fk := range in {
		out[i] = ForeignKey{Column: fk.Column, ReferencedTable: fk.ReferencedTable, ReferencedColumn: fk.ReferencedColumn}
	}
	return out
}

func foreignKeysToTOML(in []ForeignKey) []tomlForeignKey {
	out := make([]tomlForeignKey, len(in))
	for i, fk := range in {
		out[i] = tomlForeignKey{Column: fk.Column, ReferencedTable: fk.ReferencedTable, ReferencedColumn: fk.ReferencedColumn}
	}
	return out
}

func indexesFromTOML(in []tomlIndex) []Index {
	out := make([]Index, len(in))
	for i, idx := range in {
		out[i] = Index{Name: idx.Name, Columns: idx.Columns, IsUnique: idx.IsUnique, IndexType: idx.IndexType}
	}
	return out
}

func indexesToTOML(in []Index) []tomlIndex {
	out := make([]tomlIndex, len(in))
	for i, idx := range in {
		out[i] = tomlIndex{Name: idx.Name, Columns: idx.Columns, IsUnique: idx.IsUnique, IndexType: idx.IndexType}
	}
	return out
}
