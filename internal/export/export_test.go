package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/medikart/masterdata/internal/config"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	medrepo "github.com/medikart/masterdata/internal/medicine/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&meddomain.MedicineMaster{}))

	svc := New(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Cfg:  config.Config{RebuildBatch: 2},
		Repo: medrepo.Provide(),
	})
	return svc, db
}

func seed(t *testing.T, db *gorm.DB, id, name, manufacturer string, updatedAt time.Time) {
	t.Helper()
	barcode := "890" + id
	m := &meddomain.MedicineMaster{
		CanonicalID:       id,
		Name:              name,
		CompositionText:   "paracetamol 500mg",
		ManufacturerName:  manufacturer,
		Form:              "tablet",
		PackSize:          "strip of 10",
		DefaultGstRate:    decimal.NewFromInt(12),
		PrimaryBarcode:    &barcode,
		AlternateBarcodes: datatypes.NewJSONSlice([]string{"111", "222"}),
		Status:            meddomain.StatusVerified,
		ConfidenceScore:   90,
		UsageCount:        4,
		CreatedAt:         updatedAt,
		UpdatedAt:         updatedAt,
	}
	require.NoError(t, db.Create(m).Error)
}

func TestExportJSONRoundTrip(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC().Truncate(time.Second)
	for _, id := range []string{"id-a", "id-b", "id-c", "id-d", "id-e"} {
		seed(t, db, id, "Med "+id, "Cipla", now)
	}

	var buf bytes.Buffer
	count, err := svc.ExportJSON(context.Background(), &buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 5, strings.Count(buf.String(), "\n"))

	records, err := Deserialize(&buf)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "id-a", records[0].CanonicalID)
	assert.Equal(t, "Med id-a", records[0].Name)
	assert.True(t, records[0].DefaultGstRate.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, []string{"111", "222"}, []string(records[0].AlternateBarcodes))

	// a second export of the same data is byte-identical
	var again bytes.Buffer
	_, err = svc.ExportJSON(context.Background(), &again, Options{})
	require.NoError(t, err)

	var first bytes.Buffer
	_, err = svc.ExportJSON(context.Background(), &first, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.String(), again.String())
}

func TestExportSince(t *testing.T) {
	svc, db := setupService(t)
	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()
	seed(t, db, "id-old", "Old Med", "Cipla", old)
	seed(t, db, "id-new", "New Med", "Cipla", recent)

	cutoff := time.Now().UTC().Add(-time.Hour)
	var buf bytes.Buffer
	count, err := svc.ExportJSON(context.Background(), &buf, Options{Since: &cutoff})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, buf.String(), "id-new")
	assert.NotContains(t, buf.String(), "id-old")
}

func TestExportFilters(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC()
	seed(t, db, "id-cipla", "Med One", "Cipla", now)
	seed(t, db, "id-gsk", "Med Two", "GSK", now)

	var buf bytes.Buffer
	count, err := svc.ExportJSON(context.Background(), &buf, Options{Manufacturer: "gsk"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, buf.String(), "id-gsk")
}

func TestExportCSV(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now().UTC().Truncate(time.Second)
	seed(t, db, "id-csv", "Med CSV", "Cipla", now)

	var buf bytes.Buffer
	count, err := svc.ExportCSV(context.Background(), &buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])

	row := rows[1]
	assert.Equal(t, "id-csv", row[0])
	assert.Equal(t, "Med CSV", row[1])
	assert.Equal(t, "111;222", row[12])
	assert.Equal(t, "VERIFIED", row[13])
	assert.Equal(t, now.Format(time.RFC3339), row[17])
}

func TestExportEmptyCatalog(t *testing.T) {
	svc, _ := setupService(t)

	var buf bytes.Buffer
	count, err := svc.ExportJSON(context.Background(), &buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Zero(t, buf.Len())
}
