package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewPagination builds pagination metadata for a page of n items.
func NewPagination(total int, opts ListOptions, n int) *Pagination {
	return &Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+n < total,
	}
}

// ListOptions configures list queries with pagination and filtering.
type ListOptions struct {
	Limit  int
	Offset int
	Query  string // Optional case-insensitive substring filter
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 100, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// Page returns the slice of items selected by opts.
func Page[T any](items []T, opts ListOptions) []T {
	opts.Clamp()
	if opts.Offset >= len(items) {
		return []T{}
	}
	end := min(opts.Offset+opts.Limit, len(items))
	return items[opts.Offset:end]
}

// SchemaEntry describes one cached tool schema.
type SchemaEntry struct {
	ToolID      string    `json:"tool_id"`
	ToolVersion string    `json:"tool_version"`
	HistoryID   string    `json:"history_id,omitempty"`
	ContextHash string    `json:"context_hash"`
	Name        string    `json:"name"`
	Size        int       `json:"size"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Health is the payload of the health endpoint.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Galaxy  string `json:"galaxy"`
	Forms   int    `json:"forms"`
	Uptime  string `json:"uptime"`
}
