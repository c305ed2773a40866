package auth

import (
	"context"
	"embed"
	"io/fs"

	"github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// Migrate applies the embedded goose migrations matching the dialect of db.
func Migrate(ctx context.Context, db *bun.DB) error {
	var gooseDialect, dir string
	switch db.Dialect().Name() {
	case dialect.PG:
		gooseDialect, dir = "postgres", "data/sql/migrations/postgres"
	case dialect.SQLite:
		gooseDialect, dir = "sqlite3", "data/sql/migrations/sqlite"
	default:
		return errors.New("unsupported database dialect", errors.CategoryInternal).
			WithMetadata(map[string]any{"dialect": db.Dialect().Name().String()})
	}

	if _, err := fs.Stat(migrationsFS, dir); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "migrations not embedded")
	}

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(gooseDialect); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to select migration dialect")
	}

	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to apply migrations")
	}
	return nil
}
