// Package cache provides the SQLite-backed response cache for the
// assistant: namespace-scoped, TTL-bounded memoization of query/answer
// pairs with hit accounting.
//
// The database is the sole synchronization point. Read bookkeeping and
// upserts are single statements so concurrent callers sharing the store
// cannot lose updates; no in-process locking guards cross-request state.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/zuru-melon/assistant/internal/common"
	"github.com/zuru-melon/assistant/internal/store"
)

// DefaultNamespace partitions entries written by the classic assistant.
const DefaultNamespace = "classic"

// Config controls a QueryCache instance.
type Config struct {
	Store     store.Config
	Namespace string
	TTL       time.Duration
}

func (c *Config) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.TTL <= 0 {
		c.TTL = 30 * 24 * time.Hour
	}
}

// QueryCache memoizes assistant responses for one namespace. The database
// connection is acquired lazily on first use and released by Close.
type QueryCache struct {
	cfg Config

	mu sync.Mutex
	db *sqlx.DB

	now func() time.Time
}

// New constructs a QueryCache. No connection is opened until the first
// storage-facing operation runs.
func New(cfg Config) *QueryCache {
	cfg.applyDefaults()
	return &QueryCache{cfg: cfg, now: time.Now}
}

// Namespace returns the namespace this instance reads and writes.
func (c *QueryCache) Namespace() string { return c.cfg.Namespace }

// TTL returns the configured entry time-to-live.
func (c *QueryCache) TTL() time.Duration { return c.cfg.TTL }

func (c *QueryCache) conn(ctx context.Context) (*sqlx.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}
	db, err := store.Open(ctx, c.cfg.Store)
	if err != nil {
		return nil, err
	}
	c.db = db
	return c.db, nil
}

// Close releases the underlying database resources. The instance reconnects
// lazily if used again.
func (c *QueryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Get looks up a cached response for the query. A valid hit atomically
// increments hit_count and stamps last_used_at in the same statement the
// row is read with. Misses and expired entries return (nil, nil); storage
// failures return a typed *store.Error so callers can tell "no cached
// answer" from "cache unavailable".
func (c *QueryCache) Get(ctx context.Context, query string) (*CachedResponse, error) {
	db, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now().UTC()
	cutoff := now.Add(-c.cfg.TTL).Unix()

	var row entryRow
	err = db.QueryRowxContext(ctx, `
		UPDATE query_cache
		SET last_used_at = ?, hit_count = hit_count + 1
		WHERE query_hash = ? AND namespace = ? AND created_at > ?
		RETURNING query_normalized, response, routing_action, namespace,
		          hit_count, created_at, last_used_at`,
		now.Unix(), HashQuery(query), c.cfg.Namespace, cutoff,
	).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Classify("cache get", err)
	}
	return row.toResponse(), nil
}

// Set upserts a response for the query. A new key inserts with hit_count 1;
// an existing key replaces the payload, re-stamps both timestamps, and
// increments hit_count. The conflict is resolved server-side on the
// (query_hash, namespace) unique constraint, so two concurrent writers for
// the same key leave exactly one row.
func (c *QueryCache) Set(ctx context.Context, query, response, routingAction string) error {
	db, err := c.conn(ctx)
	if err != nil {
		return err
	}
	now := c.now().UTC().Unix()
	action := sql.NullString{String: routingAction, Valid: routingAction != ""}

	_, err = db.ExecContext(ctx, `
		INSERT INTO query_cache (
			query_hash, query_normalized, response, routing_action,
			namespace, created_at, last_used_at, hit_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (query_hash, namespace) DO UPDATE SET
			response = excluded.response,
			routing_action = excluded.routing_action,
			created_at = excluded.created_at,
			last_used_at = excluded.last_used_at,
			hit_count = query_cache.hit_count + 1`,
		HashQuery(query), Normalize(query), response, action,
		c.cfg.Namespace, now, now,
	)
	if err != nil {
		return store.Classify("cache set", err)
	}
	return nil
}

// Clear deletes every entry in the namespace regardless of TTL validity and
// returns the number of rows removed.
func (c *QueryCache) Clear(ctx context.Context) (int64, error) {
	db, err := c.conn(ctx)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx,
		`DELETE FROM query_cache WHERE namespace = ?`, c.cfg.Namespace)
	if err != nil {
		return 0, store.Classify("cache clear", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, store.Classify("cache clear", err)
	}
	common.Logger().Info("cache: cleared namespace", "namespace", c.cfg.Namespace, "deleted", deleted)
	return deleted, nil
}

// PurgeExpired deletes entries older than the TTL for the namespace and
// returns the number of rows removed. Reads already filter expired rows;
// this reclaims the storage they occupy.
func (c *QueryCache) PurgeExpired(ctx context.Context) (int64, error) {
	db, err := c.conn(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := c.now().UTC().Add(-c.cfg.TTL).Unix()
	res, err := db.ExecContext(ctx,
		`DELETE FROM query_cache WHERE namespace = ? AND created_at <= ?`,
		c.cfg.Namespace, cutoff)
	if err != nil {
		return 0, store.Classify("cache purge", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, store.Classify("cache purge", err)
	}
	common.Logger().Info("cache: purged expired entries", "namespace", c.cfg.Namespace, "deleted", deleted)
	return deleted, nil
}

// Stats reports entry and hit totals for the namespace. Expired entries are
// counted in TotalEntries until purged. Never mutates state.
func (c *QueryCache) Stats(ctx context.Context) (*Stats, error) {
	db, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := c.now().UTC().Add(-c.cfg.TTL).Unix()

	var row statsRow
	err = db.QueryRowxContext(ctx, `
		SELECT
			COUNT(*) AS total_entries,
			COALESCE(SUM(CASE WHEN created_at > ? THEN 1 ELSE 0 END), 0) AS valid_entries,
			COALESCE(SUM(hit_count), 0) AS total_hits,
			COALESCE(AVG(hit_count), 0) AS avg_hits_per_entry,
			COALESCE(MIN(created_at), 0) AS oldest_entry,
			COALESCE(MAX(last_used_at), 0) AS most_recent_use
		FROM query_cache
		WHERE namespace = ?`,
		cutoff, c.cfg.Namespace,
	).StructScan(&row)
	if err != nil {
		return nil, store.Classify("cache stats", err)
	}
	return row.toStats(c.cfg.Namespace, c.cfg.TTL), nil
}
