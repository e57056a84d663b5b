package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// PostgresFS embeds all PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// SQLiteFS embeds the SQLite migrations in golang-migrate layout
// (NNNNNN_name.up.sql / .down.sql).
//
//go:embed sqlite/*.sql
var SQLiteFS embed.FS

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// Script is one migration file.
type Script struct {
	Name string
	SQL  string
}

// Postgres returns the PostgreSQL scripts in lexical order.
func Postgres() ([]Script, error) { return load(PostgresFS, "postgres") }

// Clickhouse returns the ClickHouse scripts in lexical order. ClickHouse
// executes one statement per call, so each file holds a single statement.
func Clickhouse() ([]Script, error) { return load(ClickhouseFS, "clickhouse") }

// load reads every non-empty .sql file under dir. Migrations are expected
// to be idempotent.
func load(fsys fs.FS, dir string) ([]Script, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	scripts := make([]Script, 0, len(files))
	for _, file := range files {
		data, err := fs.ReadFile(fsys, dir+"/"+file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		scripts = append(scripts, Script{Name: file, SQL: string(data)})
	}
	return scripts, nil
}
