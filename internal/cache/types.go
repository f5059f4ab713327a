package cache

import (
	"database/sql"
	"time"
)

// CachedResponse is a cache entry returned to callers on a valid hit.
type CachedResponse struct {
	Query         string
	Response      string
	RoutingAction string
	Namespace     string
	HitCount      int64
	CreatedAt     time.Time
	LastUsedAt    time.Time
}

// Stats summarizes a namespace's cache contents. Read-only.
type Stats struct {
	Namespace     string        `json:"namespace"`
	TTL           time.Duration `json:"-"`
	TotalEntries  int64         `json:"total_entries"`
	ValidEntries  int64         `json:"valid_entries"`
	TotalHits     int64         `json:"total_hits"`
	AvgHitsPerUse float64       `json:"avg_hits_per_entry"`
	OldestEntry   *time.Time    `json:"oldest_entry,omitempty"`
	MostRecentUse *time.Time    `json:"most_recent_use,omitempty"`
}

// entryRow mirrors the query_cache table. Timestamps are Unix seconds.
type entryRow struct {
	QueryNormalized string         `db:"query_normalized"`
	Response        string         `db:"response"`
	RoutingAction   sql.NullString `db:"routing_action"`
	Namespace       string         `db:"namespace"`
	HitCount        int64          `db:"hit_count"`
	CreatedAt       int64          `db:"created_at"`
	LastUsedAt      int64          `db:"last_used_at"`
}

func (r entryRow) toResponse() *CachedResponse {
	return &CachedResponse{
		Query:         r.QueryNormalized,
		Response:      r.Response,
		RoutingAction: r.RoutingAction.String,
		Namespace:     r.Namespace,
		HitCount:      r.HitCount,
		CreatedAt:     time.Unix(r.CreatedAt, 0).UTC(),
		LastUsedAt:    time.Unix(r.LastUsedAt, 0).UTC(),
	}
}

type statsRow struct {
	TotalEntries  int64   `db:"total_entries"`
	ValidEntries  int64   `db:"valid_entries"`
	TotalHits     int64   `db:"total_hits"`
	AvgHitsPerUse float64 `db:"avg_hits_per_entry"`
	OldestEntry   int64   `db:"oldest_entry"`
	MostRecentUse int64   `db:"most_recent_use"`
}

func (r statsRow) toStats(namespace string, ttl time.Duration) *Stats {
	stats := &Stats{
		Namespace:     namespace,
		TTL:           ttl,
		TotalEntries:  r.TotalEntries,
		ValidEntries:  r.ValidEntries,
		TotalHits:     r.TotalHits,
		AvgHitsPerUse: r.AvgHitsPerUse,
	}
	if r.OldestEntry > 0 {
		oldest := time.Unix(r.OldestEntry, 0).UTC()
		stats.OldestEntry = &oldest
	}
	if r.MostRecentUse > 0 {
		recent := time.Unix(r.MostRecentUse, 0).UTC()
		stats.MostRecentUse = &recent
	}
	return stats
}
