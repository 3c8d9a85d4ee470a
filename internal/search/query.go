package search

import (
	"context"
	"strings"

	"github.com/medikart/masterdata/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SearchRequest is the read-side query surface exposed to stores.
type SearchRequest struct {
	Query                string `form:"q"`
	Manufacturer         string `form:"manufacturer"`
	Form                 string `form:"form"`
	Schedule             string `form:"schedule"`
	RequiresPrescription *bool  `form:"requires_prescription"`
	Status               string `form:"status"`
	Discontinued         bool   `form:"discontinued"`
	pagination.Page
}

type ServiceParams struct {
	fx.In

	Log   *zap.Logger
	Index Index
	Sync  *Synchronizer
}

// Service answers catalog queries from the denormalized index.
type Service struct {
	log   *zap.Logger
	index Index
	sync  *Synchronizer
}

func NewService(p ServiceParams) *Service {
	return &Service{
		log:   p.Log.Named("search.service"),
		index: p.Index,
		sync:  p.Sync,
	}
}

// Search runs a weighted fuzzy query across name, generic name,
// composition and manufacturer.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*Result, error) {
	return s.index.Search(ctx, Query{
		Text:                 strings.TrimSpace(req.Query),
		Manufacturer:         strings.TrimSpace(req.Manufacturer),
		Form:                 strings.ToLower(strings.TrimSpace(req.Form)),
		Schedule:             strings.TrimSpace(req.Schedule),
		RequiresPrescription: req.RequiresPrescription,
		Status:               strings.ToUpper(strings.TrimSpace(req.Status)),
		IncludeDiscontinued:  req.Discontinued,
		Page:                 req.Page,
	})
}

// Autocomplete serves type-ahead suggestions on the name fields.
func (s *Service) Autocomplete(ctx context.Context, prefix string, page pagination.Page) (*Result, error) {
	return s.index.Search(ctx, Query{
		Text:   strings.TrimSpace(prefix),
		Prefix: true,
		Fields: []string{"name^3", "generic_name"},
		Page:   page,
	})
}

// ByComposition finds products sharing an active ingredient.
func (s *Service) ByComposition(ctx context.Context, composition string, page pagination.Page) (*Result, error) {
	return s.index.Search(ctx, Query{
		Text:   strings.TrimSpace(composition),
		Fields: []string{"composition_text^2", "generic_name"},
		Page:   page,
	})
}

// ByManufacturer lists a manufacturer's catalog.
func (s *Service) ByManufacturer(ctx context.Context, manufacturer string, page pagination.Page) (*Result, error) {
	return s.index.Search(ctx, Query{
		Manufacturer:        strings.TrimSpace(manufacturer),
		IncludeDiscontinued: true,
		Page:                page,
	})
}

// IndexStats reports document count and drift against the master store.
func (s *Service) IndexStats(ctx context.Context) (*Health, error) {
	return s.sync.Health(ctx)
}
