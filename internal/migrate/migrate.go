// Package migrate applies the numbered SQL migration files.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// Execer is the subset of *sql.DB used to run migrations.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Apply runs every *.up.sql file in fsys in lexical order.
// The migration files are idempotent, so Apply may run on every deploy.
func Apply(ctx context.Context, db Execer, fsys fs.FS) error {
	files, err := list(fsys, upSuffix)
	if err != nil {
		return err
	}
	return run(ctx, db, fsys, files)
}

// Rollback runs every *.down.sql file in fsys in reverse lexical order.
func Rollback(ctx context.Context, db Execer, fsys fs.FS) error {
	files, err := list(fsys, downSuffix)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return run(ctx, db, fsys, files)
}

func list(fsys fs.FS, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func run(ctx context.Context, db Execer, fsys fs.FS, files []string) error {
	for _, name := range files {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
