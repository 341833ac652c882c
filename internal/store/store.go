package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/me/galahad/pkg/galaxy"
	"github.com/me/galahad/pkg/model"
)

// SchemaStore persists fetched tool schemas.
type SchemaStore interface {
	GetSchema(ctx context.Context, key SchemaKey) (*CachedSchema, error)
	PutSchema(ctx context.Context, key SchemaKey, tool *galaxy.Tool) error
	ListSchemas(ctx context.Context, opts model.ListOptions) ([]model.SchemaEntry, int, error)
	Purge(ctx context.Context, olderThan time.Time) (int64, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// SchemaKey identifies one cached schema. A schema fetched for different
// form values, another tool version or another history is a different
// entry: Galaxy fills dataset options from the history.
type SchemaKey struct {
	Server      string
	ToolID      string
	ToolVersion string
	HistoryID   string
	ContextHash string
}

// CachedSchema is a stored tool schema.
type CachedSchema struct {
	Key       SchemaKey
	Tool      *galaxy.Tool
	FetchedAt time.Time
}

// ContextHash returns a short stable hash of form values; empty values
// hash to "".
func ContextHash(values map[string]any) string {
	if len(values) == 0 {
		return ""
	}
	// encoding/json writes map keys in sorted order.
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
