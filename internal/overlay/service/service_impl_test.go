package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	medrepo "github.com/medikart/masterdata/internal/medicine/repository"
	"github.com/medikart/masterdata/internal/overlay/domain"
	overlayrepo "github.com/medikart/masterdata/internal/overlay/repository"
	"github.com/medikart/masterdata/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&meddomain.MedicineMaster{}, &domain.StoreOverlay{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    overlayrepo.Provide(),
		Masters: medrepo.Provide(),
	})
	return svc, db
}

func seedMaster(t *testing.T, db *gorm.DB, id string) *meddomain.MedicineMaster {
	t.Helper()
	m := &meddomain.MedicineMaster{
		CanonicalID:      id,
		Name:             "Dolo 650",
		CompositionText:  "paracetamol 650mg",
		ManufacturerName: "Micro Labs",
		Form:             "tablet",
		PackSize:         "strip of 15",
		DefaultGstRate:   decimal.NewFromInt(12),
		Status:           meddomain.StatusVerified,
		ConfidenceScore:  90,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestSetCreatesOverlay(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "microlabs-dolo-tablet-1a2b3c4d")

	o, err := svc.Set(context.Background(), "store-1", domain.SetRequest{
		CanonicalID:   "microlabs-dolo-tablet-1a2b3c4d",
		CustomMrp:     decPtr(30),
		StockQuantity: intPtr(100),
		RackLocation:  strPtr("A-12"),
	})
	require.NoError(t, err)
	assert.NotZero(t, o.ID)
	assert.Equal(t, 100, o.StockQuantity)
	assert.True(t, o.IsAvailable)
	require.NotNil(t, o.CustomMrp)
	assert.True(t, o.CustomMrp.Equal(decimal.NewFromInt(30)))
}

func TestSetUpdatesExistingOverlayInPlace(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-upd")

	first, err := svc.Set(context.Background(), "store-1", domain.SetRequest{
		CanonicalID:   "id-upd",
		StockQuantity: intPtr(10),
		RackLocation:  strPtr("B-3"),
	})
	require.NoError(t, err)

	// second set changes only stock; the rack location survives
	second, err := svc.Set(context.Background(), "store-1", domain.SetRequest{
		CanonicalID:   "id-upd",
		StockQuantity: intPtr(25),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 25, second.StockQuantity)
	require.NotNil(t, second.RackLocation)
	assert.Equal(t, "B-3", *second.RackLocation)

	var count int64
	require.NoError(t, db.Model(&domain.StoreOverlay{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSetUnknownMasterFails(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Set(context.Background(), "store-1", domain.SetRequest{CanonicalID: "nope"})
	assert.ErrorIs(t, err, meddomain.ErrNotFound)
}

func TestSetValidation(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-val")

	tests := []struct {
		name string
		req  domain.SetRequest
		want error
	}{
		{"negative stock", domain.SetRequest{CanonicalID: "id-val", StockQuantity: intPtr(-1)}, domain.ErrInvalidStock},
		{"discount over 100", domain.SetRequest{CanonicalID: "id-val", CustomDiscount: decPtr(101)}, domain.ErrInvalidDiscount},
		{"gst over cap", domain.SetRequest{CanonicalID: "id-val", CustomGstRate: decPtr(40)}, domain.ErrInvalidGstRate},
		{"negative mrp", domain.SetRequest{CanonicalID: "id-val", CustomMrp: decPtr(-5)}, domain.ErrInvalidPrice},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Set(context.Background(), "store-1", tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGetMergedWithoutOverlay(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-plain")

	view, err := svc.GetMerged(context.Background(), "store-1", "id-plain")
	require.NoError(t, err)
	assert.Equal(t, "Dolo 650", view.Name)
	assert.True(t, view.GstRate.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, 0, view.StockQuantity)
	assert.True(t, view.IsAvailable)
	assert.False(t, view.HasOverlay)
	assert.Nil(t, view.Mrp)
}

func TestGetMergedOverlayWins(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-merged")

	_, err := svc.Set(context.Background(), "store-1", domain.SetRequest{
		CanonicalID:   "id-merged",
		CustomName:    strPtr("Dolo 650 (Promo)"),
		CustomGstRate: decPtr(18),
		StockQuantity: intPtr(40),
	})
	require.NoError(t, err)

	view, err := svc.GetMerged(context.Background(), "store-1", "id-merged")
	require.NoError(t, err)
	assert.Equal(t, "Dolo 650 (Promo)", view.Name)
	assert.True(t, view.GstRate.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, 40, view.StockQuantity)
	assert.True(t, view.IsAvailable)
	assert.True(t, view.HasOverlay)

	// another store still sees the canonical record
	other, err := svc.GetMerged(context.Background(), "store-2", "id-merged")
	require.NoError(t, err)
	assert.Equal(t, "Dolo 650", other.Name)
	assert.True(t, other.GstRate.Equal(decimal.NewFromInt(12)))
}

func TestBulkMerged(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-bulk-a")
	seedMaster(t, db, "id-bulk-b")

	_, err := svc.Set(context.Background(), "store-1", domain.SetRequest{
		CanonicalID:   "id-bulk-a",
		StockQuantity: intPtr(7),
	})
	require.NoError(t, err)

	views, err := svc.BulkMerged(context.Background(), "store-1", []string{"id-bulk-a", "id-bulk-b", "unknown"})
	require.NoError(t, err)
	require.Len(t, views, 2)

	byID := map[string]domain.MergedView{}
	for _, v := range views {
		byID[v.CanonicalID] = v
	}
	assert.Equal(t, 7, byID["id-bulk-a"].StockQuantity)
	assert.True(t, byID["id-bulk-a"].HasOverlay)
	assert.Equal(t, 0, byID["id-bulk-b"].StockQuantity)
	assert.False(t, byID["id-bulk-b"].HasOverlay)
	assert.True(t, byID["id-bulk-b"].IsAvailable)
}

func TestIncrementStockCreatesOverlay(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-inc")

	o, err := svc.IncrementStock(context.Background(), "store-1", "id-inc", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, o.StockQuantity)

	o, err = svc.IncrementStock(context.Background(), "store-1", "id-inc", 3)
	require.NoError(t, err)
	assert.Equal(t, 8, o.StockQuantity)
}

func TestDecrementStockFloorsAtZero(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-dec")

	_, err := svc.IncrementStock(context.Background(), "store-1", "id-dec", 4)
	require.NoError(t, err)

	o, err := svc.DecrementStock(context.Background(), "store-1", "id-dec", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, o.StockQuantity)
}

func TestDecrementStockWithoutOverlayFails(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-dec-missing")

	_, err := svc.DecrementStock(context.Background(), "store-1", "id-dec-missing", 1)
	assert.ErrorIs(t, err, domain.ErrOverlayNotFound)
}

func TestAdjustStockRejectsNonPositiveQty(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.IncrementStock(context.Background(), "store-1", "id-x", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidStock)
	_, err = svc.DecrementStock(context.Background(), "store-1", "id-x", -2)
	assert.ErrorIs(t, err, domain.ErrInvalidStock)
}

func TestLowStock(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-low")
	seedMaster(t, db, "id-ok")

	_, err := svc.Set(context.Background(), "store-1", domain.SetRequest{
		CanonicalID:   "id-low",
		StockQuantity: intPtr(2),
		MinStockLevel: intPtr(5),
	})
	require.NoError(t, err)
	_, err = svc.Set(context.Background(), "store-1", domain.SetRequest{
		CanonicalID:   "id-ok",
		StockQuantity: intPtr(50),
		MinStockLevel: intPtr(5),
	})
	require.NoError(t, err)

	low, err := svc.LowStock(context.Background(), "store-1", pagination.Page{})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "id-low", low[0].CanonicalID)
}

func TestRemoveOverlay(t *testing.T) {
	svc, db := setupService(t)
	seedMaster(t, db, "id-rm")

	_, err := svc.Set(context.Background(), "store-1", domain.SetRequest{CanonicalID: "id-rm"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), "store-1", "id-rm"))
	assert.ErrorIs(t, svc.Remove(context.Background(), "store-1", "id-rm"), domain.ErrOverlayNotFound)

	_, err = svc.Get(context.Background(), "store-1", "id-rm")
	assert.ErrorIs(t, err, domain.ErrOverlayNotFound)
}
