package search

import (
	"context"
	"errors"

	"github.com/medikart/masterdata/pkg/db/pagination"
)

// Query is one read against the index. Text is matched fuzzily across the
// weighted default fields unless Fields narrows it; Prefix switches to
// type-ahead matching. DISCONTINUED documents are excluded unless
// IncludeDiscontinued is set.
type Query struct {
	Text                 string
	Prefix               bool
	Fields               []string
	Manufacturer         string
	Form                 string
	Schedule             string
	RequiresPrescription *bool
	Status               string
	IncludeDiscontinued  bool
	Page                 pagination.Page
}

type Result struct {
	Total     int64      `json:"total"`
	Documents []Document `json:"documents"`
}

// Index is the external search collection. Upsert and Delete are
// idempotent; Delete treats a missing document as success.
type Index interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, doc Document) error
	Delete(ctx context.Context, canonicalID string) error
	Search(ctx context.Context, q Query) (*Result, error)
	Count(ctx context.Context) (int64, error)
}

var ErrIndexUnavailable = errors.New("search_index_unavailable")
