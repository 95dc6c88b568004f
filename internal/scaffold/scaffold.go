// Package scaffold lays out a fresh project directory for the init
// command: a schema/ directory with a starter schema.toml, a models/
// directory for generated code, and a .env template.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
)

const starterSchema = "# hive schema file\n# Run `hive introspect --output` with this file's path to populate it from a live database.\n"

const envTemplate = "DATABASE_URL=\n"

// Init creates schema/, schema/schema.toml, models/, and .env under base,
// skipping any file or directory that already exists. It reports each
// action taken through report, one progress line per step.
func Init(base string, report func(string)) error {
	if report == nil {
		report = func(string) {}
	}

	schemaDir := filepath.Join(base, "schema")
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		return fmt.Errorf("create schema directory %s: %w", schemaDir, err)
	}
	report("created " + schemaDir)

	schemaFile := filepath.Join(schemaDir, "schema.toml")
	if created, err := writeIfAbsent(schemaFile, starterSchema); err != nil {
		return err
	} else if created {
		report("created " + schemaFile)
	} else {
		report(schemaFile + " already exists, skipping")
	}

	envFile := filepath.Join(base, ".env")
	if created, err := writeIfAbsent(envFile, envTemplate); err != nil {
		return err
	} else if created {
		report("created " + envFile)
	} else {
		report(envFile + " already exists, skipping")
	}

	modelsDir := filepath.Join(base, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return fmt.Errorf("create models directory %s: %w", modelsDir, err)
	}
	report("created " + modelsDir)

	return nil
}

// writeIfAbsent writes content to path unless the file already exists. It
// reports whether it wrote the file.
func writeIfAbsent(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
