// Package main is the entry point for the hive CLI.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/hiveql/hive/internal/codegen"
	"github.com/hiveql/hive/internal/config"
	"github.com/hiveql/hive/internal/introspect"
	"github.com/hiveql/hive/internal/metrics"
	"github.com/hiveql/hive/internal/migrator"
	"github.com/hiveql/hive/internal/model"
	"github.com/hiveql/hive/internal/scaffold"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	if os.Getenv("HIVE_LOG_LEVEL") == "debug" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "hive",
		Short:   "A declarative schema-management tool for PostgreSQL",
		Long:    "hive introspects a PostgreSQL database, diffs it against a declared TOML schema, and applies the difference as DDL.",
		Version: fmt.Sprintf("%s (commit %s)", version, commit),
	}

	root.AddCommand(newInitCmd(), newIntrospectCmd(), newMigrateCmd(), newGenerateCmd())
	return root
}

func newInitCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new hive project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return scaffold.Init(path, func(msg string) { fmt.Println(msg) })
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "Directory to scaffold into")
	return cmd
}

func newIntrospectCmd() *cobra.Command {
	var dbURL, output string
	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Read the live database schema and write it to a TOML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dbURL, output, "")
			if err != nil {
				return err
			}

			db, err := openDB(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			schema, err := introspect.Introspect(cmd.Context(), db)
			if err != nil {
				return err
			}

			if err := model.SaveTOML(schema, cfg.SchemaPath); err != nil {
				return err
			}

			slog.Info("wrote schema", slog.String("path", cfg.SchemaPath), slog.Int("tables", len(schema.Tables)))
			return nil
		},
	}
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Database connection URL (overrides DATABASE_URL)")
	cmd.Flags().StringVar(&output, "output", "", "Schema file to write (default schema.toml)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var dbURL, schemaPath, metricsAddr string
	var watch bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Diff the live database against the declared schema and apply the difference",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dbURL, schemaPath, metricsAddr)
			if err != nil {
				return err
			}

			db, err := openDB(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			var m *metrics.Metrics
			if cfg.MetricsAddr != "" {
				m = metrics.New()
				go serveMetrics(cfg.MetricsAddr, m)
			}

			runner := migrator.New(db)
			runner.Metrics = m

			if !watch {
				return runOnce(cmd.Context(), runner, cfg.SchemaPath)
			}
			return watchAndRun(cmd.Context(), runner, cfg.SchemaPath)
		},
	}
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Database connection URL (overrides DATABASE_URL)")
	cmd.Flags().StringVar(&schemaPath, "schema-path", "", "Schema file to read (default schema.toml)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (disabled unless set)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-run the migration whenever the schema file changes")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var schemaPath, output, pkg string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate typed Go structs from the declared schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaPath == "" {
				schemaPath = "schema.toml"
			}
			if output == "" {
				output = "models"
			}

			schema, _, err := model.LoadTOML(schemaPath)
			if err != nil {
				return err
			}

			files, err := codegen.Generate(schema, pkg)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(output, 0o755); err != nil {
				return fmt.Errorf("create output directory %s: %w", output, err)
			}
			for name, contents := range files {
				path := filepath.Join(output, name)
				if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Println("wrote", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema-path", "", "Schema file to read (default schema.toml)")
	cmd.Flags().StringVar(&output, "output", "", "Directory to write generated structs to (default models)")
	cmd.Flags().StringVar(&pkg, "package", "models", "Go package name for generated structs")
	return cmd
}

func openDB(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func runOnce(ctx context.Context, runner *migrator.Runner, schemaPath string) error {
	target, _, err := model.LoadTOML(schemaPath)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, target)
	if err != nil {
		return err
	}

	if result.InSync {
		fmt.Println("schema already in sync")
		return nil
	}

	fmt.Printf("applied %d statements (run %s)\n", len(result.Statements), result.RunID)
	return nil
}

// watchAndRun re-runs runOnce every time schemaPath changes, never
// overlapping runs: a change observed while a run is in flight is picked up
// on the next iteration once the channel read resumes, not queued.
func watchAndRun(ctx context.Context, runner *migrator.Runner, schemaPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(schemaPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	slog.Info("watching for schema changes", slog.String("path", schemaPath))
	if err := runOnce(ctx, runner, schemaPath); err != nil {
		slog.Error("migration failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(schemaPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			slog.Info("schema file changed, re-running migration")
			if err := runOnce(ctx, runner, schemaPath); err != nil {
				slog.Error("migration failed", slog.String("error", err.Error()))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	slog.Info("serving metrics", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", slog.String("error", err.Error()))
	}
}
