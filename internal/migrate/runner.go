// Package migrate applies versioned SQL scripts to the assistant's
// database, exactly once per version, in filename order, with fail-fast
// semantics: a script and its bookkeeping row commit together or not at
// all, and a failed version halts the run.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/store"
)

// scriptName matches the migration naming contract: a 3-digit ordinal, an
// underscore, a description, and the .sql extension. Anything else in the
// directory is ignored.
var scriptName = regexp.MustCompile(`^(\d{3})_.+\.sql$`)

// Config controls a Runner.
type Config struct {
	Store store.Config
	// Dir is the migrations directory. A missing directory means zero
	// pending migrations, not an error.
	Dir string
}

// Migration is a discovered script. Version is the filename without the
// .sql extension, e.g. "001_create_query_cache".
type Migration struct {
	Version string
	Path    string
}

// Result reports the terminal state of every version touched by a run.
type Result struct {
	Applied []string `json:"applied"`
	Failed  []string `json:"failed"`
	Skipped []string `json:"skipped"`
}

// Status is a read-only report of applied and pending versions.
type Status struct {
	Applied      []string `json:"applied"`
	Pending      []string `json:"pending"`
	TotalApplied int      `json:"total_applied"`
	TotalPending int      `json:"total_pending"`
}

// Runner discovers and applies schema migrations. Connections are acquired
// lazily and released by Close.
type Runner struct {
	cfg Config

	mu sync.Mutex
	db *sqlx.DB

	now func() time.Time
}

// New constructs a Runner for the given store and migrations directory.
func New(cfg Config) *Runner {
	return &Runner{cfg: cfg, now: time.Now}
}

func (r *Runner) conn(ctx context.Context) (*sqlx.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db != nil {
		return r.db, nil
	}
	db, err := store.Open(ctx, r.cfg.Store)
	if err != nil {
		return nil, err
	}
	r.db = db
	return r.db, nil
}

// Close releases the underlying database resources.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// Discover lists migration scripts in the configured directory, sorted by
// version. The fixed-width ordinal makes lexical order numeric order.
func (r *Runner) Discover() ([]Migration, error) {
	entries, err := os.ReadDir(r.cfg.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !scriptName.MatchString(entry.Name()) {
			continue
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(entry.Name(), ".sql"),
			Path:    filepath.Join(r.cfg.Dir, entry.Name()),
		})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// AppliedVersions ensures the bookkeeping table exists and returns the set
// of versions already recorded as applied.
func (r *Runner) AppliedVersions(ctx context.Context) (map[string]struct{}, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`)
	if err != nil {
		return nil, store.Classify("ensure migrations table", err)
	}
	var versions []string
	if err := db.SelectContext(ctx, &versions,
		`SELECT version FROM schema_migrations ORDER BY version`); err != nil {
		return nil, store.Classify("select applied versions", err)
	}
	applied := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}
	return applied, nil
}

func (r *Runner) pending(ctx context.Context) ([]Migration, error) {
	discovered, err := r.Discover()
	if err != nil {
		return nil, err
	}
	applied, err := r.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, m := range discovered {
		if _, ok := applied[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Migrate applies every pending migration in order, stopping at the first
// failure. A non-empty target caps the run: versions whose ordinal exceeds
// the target's are skipped without being attempted. A duplicate-version
// insert means another runner already applied the version; it is reported
// as skipped and the run continues.
func (r *Runner) Migrate(ctx context.Context, target string) (*Result, error) {
	logger := common.Logger()
	result := &Result{}

	pending, err := r.pending(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		logger.Info("migrate: no pending migrations")
		return result, nil
	}
	for _, m := range pending {
		if target != "" && ordinalOf(m.Version) > ordinalOf(target) {
			result.Skipped = append(result.Skipped, m.Version)
			continue
		}
		logger.Info("migrate: applying", "version", m.Version)
		if err := r.apply(ctx, m); err != nil {
			if isAlreadyApplied(err) {
				logger.Info("migrate: already applied by another runner", "version", m.Version)
				result.Skipped = append(result.Skipped, m.Version)
				continue
			}
			logger.Error("migrate: failed", "version", m.Version, "error", err)
			result.Failed = append(result.Failed, m.Version)
			break
		}
		logger.Info("migrate: applied", "version", m.Version)
		result.Applied = append(result.Applied, m.Version)
	}
	return result, nil
}

// apply runs one script and records its version inside a single
// transaction, so the schema change and the bookkeeping row become visible
// atomically.
func (r *Runner) apply(ctx context.Context, m Migration) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	script, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.Version, err)
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return store.Classify("begin migration", err)
	}
	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		tx.Rollback()
		return store.Classify("execute migration "+m.Version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		m.Version, r.now().UTC().Unix()); err != nil {
		tx.Rollback()
		return store.Classify(opRecordVersion, err)
	}
	if err := tx.Commit(); err != nil {
		return store.Classify("commit migration "+m.Version, err)
	}
	return nil
}

// Status reports applied and pending versions without executing anything.
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	applied, err := r.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := r.pending(ctx)
	if err != nil {
		return nil, err
	}
	status := &Status{
		Applied:      make([]string, 0, len(applied)),
		Pending:      make([]string, 0, len(pending)),
		TotalApplied: len(applied),
		TotalPending: len(pending),
	}
	for v := range applied {
		status.Applied = append(status.Applied, v)
	}
	sort.Strings(status.Applied)
	for _, m := range pending {
		status.Pending = append(status.Pending, m.Version)
	}
	return status, nil
}

const opRecordVersion = "record migration version"

// isAlreadyApplied reports whether err is a primary-key violation on the
// bookkeeping insert, i.e. a concurrent runner won the race for this
// version. Constraint failures inside the script itself stay fatal.
func isAlreadyApplied(err error) bool {
	var se *store.Error
	return errors.As(err, &se) && se.Kind == store.KindConstraint && se.Op == opRecordVersion
}

// ordinalOf extracts the numeric 3-digit prefix of a version or target
// string. Comparing ordinals instead of full versions lets operators pass
// either "002" or "002_description" as a ceiling.
func ordinalOf(version string) int {
	if len(version) >= 3 {
		if n, err := strconv.Atoi(version[:3]); err == nil {
			return n
		}
	}
	// Unparseable targets cap nothing.
	return int(^uint(0) >> 1)
}
