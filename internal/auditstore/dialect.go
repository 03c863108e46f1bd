package auditstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// dialect captures what differs between the supported databases.
type dialect struct {
	name   string
	driver string
	schema []string
	// numbered placeholders ($1, $2, ...) instead of ?.
	numbered bool
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS bakes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			protocol TEXT NOT NULL,
			baked_at TEXT NOT NULL,
			step_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bake_steps (
			bake_id INTEGER NOT NULL REFERENCES bakes(id),
			idx INTEGER NOT NULL,
			operator TEXT NOT NULL,
			stage TEXT NOT NULL,
			instructions TEXT NOT NULL,
			substances TEXT NOT NULL,
			trash TEXT NOT NULL,
			PRIMARY KEY (bake_id, idx)
		)`,
	},
}

var postgresDialect = dialect{
	name:     "postgres",
	driver:   "pgx",
	numbered: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS bakes (
			id BIGSERIAL PRIMARY KEY,
			protocol TEXT NOT NULL,
			baked_at TEXT NOT NULL,
			step_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bake_steps (
			bake_id BIGINT NOT NULL REFERENCES bakes(id),
			idx INTEGER NOT NULL,
			operator TEXT NOT NULL,
			stage TEXT NOT NULL,
			instructions TEXT NOT NULL,
			substances JSONB NOT NULL,
			trash JSONB NOT NULL,
			PRIMARY KEY (bake_id, idx)
		)`,
	},
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// parseDSN picks the dialect for dsn and returns the data source name the
// driver expects. postgres:// and postgresql:// URLs go to pgx; "sqlite:"
// prefixed or bare paths go to SQLite.
func parseDSN(dsn string) (dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return dialect{}, "", errors.New("empty audit database DSN")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgresDialect, dsn, nil
	}

	path := strings.TrimPrefix(dsn, "sqlite:")
	if path == "" {
		return dialect{}, "", fmt.Errorf("audit database DSN %q has no path", dsn)
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return dialect{}, "", fmt.Errorf("create dirs: %w", err)
		}
	}
	return sqliteDialect, path, nil
}
