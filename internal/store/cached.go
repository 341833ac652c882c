package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/galahad/internal/form"
	"github.com/me/galahad/internal/logging"
	"github.com/me/galahad/pkg/galaxy"
)

// CachedSource serves tool schemas from a SchemaStore and falls back to
// the wrapped source on a miss or an expired entry. Cache failures are
// logged and never fail a fetch.
type CachedSource struct {
	source form.SchemaSource
	store  SchemaStore
	server string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewCachedSource wraps source. Entries older than ttl are refetched; a
// ttl of zero or less keeps entries until they are purged.
func NewCachedSource(source form.SchemaSource, st SchemaStore, server string, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		store:  st,
		server: server,
		ttl:    ttl,
		logger: logging.OrDiscard(logger).With("component", "schema-cache"),
		now:    time.Now,
	}
}

// ToolSchema implements form.SchemaSource.
func (c *CachedSource) ToolSchema(ctx context.Context, ref galaxy.ToolRef, values map[string]any) (*galaxy.Tool, error) {
	key := SchemaKey{
		Server:      c.server,
		ToolID:      ref.ID,
		ToolVersion: ref.Version,
		HistoryID:   ref.HistoryID,
		ContextHash: ContextHash(values),
	}

	cached, err := c.store.GetSchema(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("cache lookup failed", "tool", ref.String(), "error", err)
	case cached == nil:
		c.logger.Debug("cache miss", "tool", ref.String(), "history", key.HistoryID, "context", key.ContextHash)
	case c.ttl > 0 && c.now().Sub(cached.FetchedAt) > c.ttl:
		c.logger.Debug("cache expired", "tool", ref.String(), "fetched_at", cached.FetchedAt)
	default:
		c.logger.Debug("cache hit", "tool", ref.String(), "context", key.ContextHash)
		return cached.Tool, nil
	}

	tool, err := c.source.ToolSchema(ctx, ref, values)
	if err != nil {
		return nil, err
	}
	if err := c.store.PutSchema(ctx, key, tool); err != nil {
		c.logger.Warn("cache store failed", "tool", ref.String(), "error", err)
	}
	return tool, nil
}
