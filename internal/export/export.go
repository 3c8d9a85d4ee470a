// Package export streams the canonical catalog out as NDJSON or CSV for
// offline sync and analytics. Exports page through the store so memory
// stays flat regardless of catalog size.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/medikart/masterdata/internal/config"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/medikart/masterdata/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options narrows an export. Zero value exports the full catalog.
type Options struct {
	Status       string     `form:"status"`
	Manufacturer string     `form:"manufacturer"`
	Since        *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}

var csvHeader = []string{
	"canonical_id", "name", "generic_name", "composition_text",
	"manufacturer_name", "form", "pack_size", "schedule",
	"requires_prescription", "default_gst_rate", "hsn_code",
	"primary_barcode", "alternate_barcodes", "status",
	"confidence_score", "usage_count", "created_at", "updated_at",
}

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Cfg  config.Config
	Repo meddomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  meddomain.Repository
	batch int
}

func New(p Params) *Service {
	batch := p.Cfg.RebuildBatch
	if batch <= 0 {
		batch = 200
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("export.service"),
		repo:  p.Repo,
		batch: batch,
	}
}

// ExportJSON streams matching records as NDJSON, one record per line, in
// canonical ID order. Returns the number of records written.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer, opts Options) (int, error) {
	enc := json.NewEncoder(w)
	return s.each(ctx, opts, func(m *meddomain.MedicineMaster) error {
		return enc.Encode(m)
	})
}

// ExportCSV streams matching records as CSV with a header row. Alternate
// barcodes are joined with ";".
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, opts Options) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}
	count, err := s.each(ctx, opts, func(m *meddomain.MedicineMaster) error {
		return cw.Write(csvRow(m))
	})
	if err != nil {
		return count, err
	}
	cw.Flush()
	return count, cw.Error()
}

func (s *Service) each(ctx context.Context, opts Options, fn func(*meddomain.MedicineMaster) error) (int, error) {
	filter := meddomain.ListFilter{
		Status:       meddomain.Status(strings.ToUpper(strings.TrimSpace(opts.Status))),
		Manufacturer: strings.TrimSpace(opts.Manufacturer),
		UpdatedSince: opts.Since,
	}

	count := 0
	page := pagination.Page{Limit: s.batch}
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		records, err := s.repo.List(ctx, s.db, filter, page)
		if err != nil {
			return count, err
		}
		if len(records) == 0 {
			return count, nil
		}
		for i := range records {
			if err := fn(&records[i]); err != nil {
				return count, err
			}
			count++
		}
		page = page.Next()
	}
}

// Deserialize reads records back from an NDJSON export.
func Deserialize(r io.Reader) ([]meddomain.MedicineMaster, error) {
	dec := json.NewDecoder(r)
	var records []meddomain.MedicineMaster
	for {
		var m meddomain.MedicineMaster
		if err := dec.Decode(&m); err == io.EOF {
			return records, nil
		} else if err != nil {
			return nil, err
		}
		records = append(records, m)
	}
}

func csvRow(m *meddomain.MedicineMaster) []string {
	return []string{
		m.CanonicalID,
		m.Name,
		strOrEmpty(m.GenericName),
		m.CompositionText,
		m.ManufacturerName,
		m.Form,
		m.PackSize,
		strOrEmpty(m.Schedule),
		strconv.FormatBool(m.RequiresPrescription),
		m.DefaultGstRate.String(),
		strOrEmpty(m.HsnCode),
		strOrEmpty(m.PrimaryBarcode),
		strings.Join(m.AlternateBarcodes, ";"),
		string(m.Status),
		strconv.Itoa(m.ConfidenceScore),
		strconv.FormatInt(m.UsageCount, 10),
		m.CreatedAt.UTC().Format(time.RFC3339),
		m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func strOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
