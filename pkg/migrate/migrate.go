package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migration files are scaffolded, relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Files returns the schema migrations compiled into the binary.
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Runner applies goose migrations from a filesystem to one database.
type Runner struct {
	provider *goose.Provider
}

// NewRunner builds a runner. Pass Files() for the storefront schema.
func NewRunner(db *sql.DB, dialect goose.Dialect, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		return nil, errors.New("migrations filesystem is required")
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Up applies every pending migration and returns the versions it ran.
func (r *Runner) Up(ctx context.Context) ([]int64, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return appliedVersions(results), fmt.Errorf("goose up: %w", err)
	}
	return appliedVersions(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) (int64, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose down: %w", err)
	}
	if result == nil || result.Source == nil {
		return 0, nil
	}
	return result.Source.Version, nil
}

// To moves the schema up or down until the database sits at target.
func (r *Runner) To(ctx context.Context, target string) ([]int64, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	current, err := r.Version(ctx)
	if err != nil {
		return nil, err
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil, nil
	case current < version:
		results, err = r.provider.UpTo(ctx, version)
	default:
		results, err = r.provider.DownTo(ctx, version)
	}
	if err != nil {
		return appliedVersions(results), fmt.Errorf("goose to %d: %w", version, err)
	}
	return appliedVersions(results), nil
}

// Version reports the highest applied migration.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	v, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return v, nil
}

// Status lists every known migration with whether it has been applied.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	return statuses, nil
}

func appliedVersions(results []*goose.MigrationResult) []int64 {
	out := make([]int64, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil || res.Error != nil {
			continue
		}
		out = append(out, res.Source.Version)
	}
	return out
}
