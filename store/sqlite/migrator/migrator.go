// Package migrator loads and applies SQL schema migrations.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"time"
)

// MigrationType is the type of the migration.
type MigrationType string

// Migration types.
const (
	MigrationUp   MigrationType = "up"
	MigrationDown MigrationType = "down"
)

// Migration is a database schema migration.
type Migration struct {
	Name    string
	Applied bool
	Up      sql.Null[string]
	Down    sql.Null[string]
}

// Querier is the subset of *sql.DB used for running migrations.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var fnameRx = regexp.MustCompile(`^(?P<name>\d{1,}-[a-z0-9-_]+)\.(?P<type>up|down)\.sql$`)

// LoadMigrations reads SQL files from dir, and returns the migrations sorted by
// name. Files that don't follow the <number>-<name>.<up|down>.sql naming
// scheme are ignored.
func LoadMigrations(dir fs.FS) ([]*Migration, error) {
	byName := make(map[string]*Migration)

	err := fs.WalkDir(dir, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		matched := fnameRx.FindStringSubmatch(path.Base(p))
		if matched == nil {
			return nil
		}

		data, err := fs.ReadFile(dir, p)
		if err != nil {
			return err
		}

		name := matched[fnameRx.SubexpIndex("name")]
		m, ok := byName[name]
		if !ok {
			m = &Migration{Name: name}
			byName[name] = m
		}

		val := sql.Null[string]{V: string(data), Valid: true}
		if MigrationType(matched[fnameRx.SubexpIndex("type")]) == MigrationUp {
			m.Up = val
		} else {
			m.Down = val
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed loading migrations: %w", err)
	}

	migrations := make([]*Migration, 0, len(byName))
	for _, m := range byName {
		migrations = append(migrations, m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})

	return migrations, nil
}

// Run applies or rolls back migrations up to and including the migration
// named to. to can also be "all".
func Run(
	ctx context.Context, q Querier, migrations []*Migration,
	typ MigrationType, to string, logger *slog.Logger,
) error {
	if err := createHistorySchema(ctx, q); err != nil {
		return fmt.Errorf("failed creating migration history schema: %w", err)
	}

	if err := loadHistory(ctx, q, migrations); err != nil {
		return err
	}

	plan, err := createPlan(migrations, typ, to)
	if err != nil {
		return err
	}

	for _, run := range plan {
		if _, err = q.ExecContext(ctx, run.sql); err != nil {
			return fmt.Errorf("failed running %s migration '%s': %w", run.typ, run.name, err)
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO _migration_history (name, type, time) VALUES (?, ?, ?)`,
			run.name, string(run.typ), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed recording migration '%s': %w", run.name, err)
		}
		logger.Debug("ran store migration", "name", run.name, "type", run.typ)
	}

	return nil
}

func loadHistory(ctx context.Context, q Querier, migrations []*Migration) error {
	byName := make(map[string]*Migration, len(migrations))
	for _, m := range migrations {
		byName[m.Name] = m
	}

	rows, err := q.QueryContext(ctx,
		`SELECT name, type FROM _migration_history ORDER BY time, rowid`)
	if err != nil {
		return fmt.Errorf("failed retrieving migration history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, typ string
		if err = rows.Scan(&name, &typ); err != nil {
			return fmt.Errorf("failed reading migration history: %w", err)
		}

		m, ok := byName[name]
		if !ok {
			return fmt.Errorf("found unknown migration in history: '%s'", name)
		}
		m.Applied = MigrationType(typ) == MigrationUp
	}

	return rows.Err()
}

type migrationRun struct {
	name string
	typ  MigrationType
	sql  string
}

func createPlan(migrations []*Migration, typ MigrationType, to string) ([]migrationRun, error) {
	toIdx := -1
	for i, m := range migrations {
		if m.Name == to {
			toIdx = i
			break
		}
	}
	if toIdx < 0 && to != "all" {
		return nil, fmt.Errorf("migration '%s' doesn't exist", to)
	}

	plan := []migrationRun{}
	for idx, m := range migrations {
		switch {
		case typ == MigrationUp && !m.Applied && (to == "all" || idx <= toIdx):
			plan = append(plan, migrationRun{name: m.Name, typ: MigrationUp, sql: m.Up.V})
		case typ == MigrationDown && m.Applied && (to == "all" || idx > toIdx):
			// Roll back in reverse order.
			plan = append([]migrationRun{{name: m.Name, typ: MigrationDown, sql: m.Down.V}}, plan...)
		}
	}

	return plan, nil
}

func createHistorySchema(ctx context.Context, q Querier) error {
	_, err := q.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migration_history (
			name VARCHAR(128) NOT NULL,
			type VARCHAR(32) CHECK( type IN ('up','down') ) NOT NULL,
			time TIMESTAMP NOT NULL
		);`)
	return err
}
