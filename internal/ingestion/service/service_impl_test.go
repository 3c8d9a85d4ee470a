package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/medikart/masterdata/internal/identity"
	"github.com/medikart/masterdata/internal/ingestion/domain"
	ingrepo "github.com/medikart/masterdata/internal/ingestion/repository"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	medrepo "github.com/medikart/masterdata/internal/medicine/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeEnqueuer struct {
	calls []string
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, tx *gorm.DB, op meddomain.SyncOp, canonicalID string) error {
	f.calls = append(f.calls, string(op)+":"+canonicalID)
	return nil
}

func setupService(t *testing.T) (domain.Service, *gorm.DB, *fakeEnqueuer) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&meddomain.MedicineMaster{},
		&meddomain.MedicineVersion{},
		&domain.PendingMedicine{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	masters := medrepo.Provide()
	resolver := identity.NewResolver(identity.Params{
		Log:    zap.NewNop(),
		Source: masters.(identity.CandidateSource),
	})
	enqueuer := &fakeEnqueuer{}

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     ingrepo.Provide(),
		Masters:  masters,
		Resolver: resolver,
		Enqueuer: enqueuer,
	})
	return svc, db, enqueuer
}

func strPtr(v string) *string { return &v }

// fullRequest scores 100: every confidence field is present.
func fullRequest() domain.IngestRequest {
	return domain.IngestRequest{
		Source:               domain.SourceManual,
		Name:                 "Augmentin 625 Duo",
		GenericName:          strPtr("Amoxicillin + Clavulanic Acid"),
		CompositionText:      "amoxicillin 500mg + clavulanic acid 125mg",
		ManufacturerName:     "GSK Pharmaceuticals",
		Form:                 "tablet",
		PackSize:             "strip of 10",
		Schedule:             strPtr("H"),
		RequiresPrescription: true,
		HsnCode:              strPtr("30042039"),
		PrimaryBarcode:       strPtr("8901234567890"),
	}
}

// sparseRequest carries only the mandatory fields and scores 65.
func sparseRequest() domain.IngestRequest {
	return domain.IngestRequest{
		Source:           domain.SourceScan,
		Name:             "Cetzine Tablet",
		CompositionText:  "cetirizine 10mg",
		ManufacturerName: "Dr Reddys",
		Form:             "tablet",
		PackSize:         "strip of 10",
	}
}

func TestScoreConfidence(t *testing.T) {
	assert.Equal(t, 100, ScoreConfidence(fullRequest()))
	assert.Equal(t, 65, ScoreConfidence(sparseRequest()))
	assert.Equal(t, 0, ScoreConfidence(domain.IngestRequest{}))
}

func TestIngestCreatesMaster(t *testing.T) {
	svc, db, enqueuer := setupService(t)

	res, err := svc.Ingest(context.Background(), "store-1", sparseRequest())
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.MatchedExisting)
	assert.True(t, res.InstantlyAvailable)
	assert.Equal(t, 65, res.ConfidenceScore)
	assert.False(t, res.Promoted)
	assert.NotEmpty(t, res.CanonicalID)

	var master meddomain.MedicineMaster
	require.NoError(t, db.First(&master, "canonical_id = ?", res.CanonicalID).Error)
	assert.Equal(t, meddomain.StatusPending, master.Status)
	assert.Equal(t, int64(1), master.UsageCount)
	assert.Equal(t, "Cetzine Tablet", master.Name)

	var pending domain.PendingMedicine
	require.NoError(t, db.First(&pending, "id = ?", res.PendingID).Error)
	assert.Equal(t, domain.PendingStatusPending, pending.Status)
	require.NotNil(t, pending.CanonicalID)
	assert.Equal(t, res.CanonicalID, *pending.CanonicalID)
	assert.Equal(t, []string{"store-1"}, []string(pending.UsedByStoreIDs))

	// creation rode the mutation transaction into the outbox
	require.Len(t, enqueuer.calls, 1)
	assert.Equal(t, "UPSERT:"+res.CanonicalID, enqueuer.calls[0])

	// version 1 written
	var version meddomain.MedicineVersion
	require.NoError(t, db.First(&version, "medicine_id = ?", res.CanonicalID).Error)
	assert.Equal(t, 1, version.VersionNumber)
	assert.Equal(t, meddomain.ChangeCreated, version.ChangeType)
}

func TestIngestDuplicateByBarcodeBumpsUsage(t *testing.T) {
	svc, db, _ := setupService(t)

	first, err := svc.Ingest(context.Background(), "store-1", fullRequest())
	require.NoError(t, err)

	second, err := svc.Ingest(context.Background(), "store-2", fullRequest())
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.True(t, second.MatchedExisting)
	assert.Equal(t, first.CanonicalID, second.CanonicalID)

	var master meddomain.MedicineMaster
	require.NoError(t, db.First(&master, "canonical_id = ?", first.CanonicalID).Error)
	assert.Equal(t, int64(2), master.UsageCount)

	var pending domain.PendingMedicine
	require.NoError(t, db.First(&pending, "canonical_id = ?", first.CanonicalID).Error)
	assert.ElementsMatch(t, []string{"store-1", "store-2"}, []string(pending.UsedByStoreIDs))
	assert.Equal(t, int64(2), pending.UsageCount)

	var count int64
	require.NoError(t, db.Model(&meddomain.MedicineMaster{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngestDuplicateByFuzzyMatch(t *testing.T) {
	svc, _, _ := setupService(t)

	first, err := svc.Ingest(context.Background(), "store-1", sparseRequest())
	require.NoError(t, err)

	// same product with a minor spelling variation
	req := sparseRequest()
	req.Name = "Cetzine Tablets"
	second, err := svc.Ingest(context.Background(), "store-2", req)
	require.NoError(t, err)
	assert.True(t, second.MatchedExisting)
	assert.Equal(t, first.CanonicalID, second.CanonicalID)
}

func TestIngestIDCollisionResolvesAsDuplicate(t *testing.T) {
	svc, db, _ := setupService(t)

	req := sparseRequest()
	id := identity.GenerateID(identity.Attributes{
		Name:             req.Name,
		CompositionText:  req.CompositionText,
		ManufacturerName: req.ManufacturerName,
		Form:             req.Form,
		PackSize:         req.PackSize,
	})
	// a concurrent writer already landed the same content-derived ID,
	// with stored fields the fuzzy scan cannot see
	now := time.Now().UTC()
	require.NoError(t, db.Create(&meddomain.MedicineMaster{
		CanonicalID:      id,
		Name:             "Ctz 10",
		CompositionText:  "ctz 10",
		ManufacturerName: "Rdl",
		Form:             "tablet",
		PackSize:         "strip of 10",
		Status:           meddomain.StatusPending,
		ConfidenceScore:  65,
		UsageCount:       1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}).Error)

	res, err := svc.Ingest(context.Background(), "store-2", req)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.True(t, res.MatchedExisting)
	assert.True(t, res.InstantlyAvailable)
	assert.Equal(t, id, res.CanonicalID)

	var master meddomain.MedicineMaster
	require.NoError(t, db.First(&master, "canonical_id = ?", id).Error)
	assert.Equal(t, int64(2), master.UsageCount)

	var count int64
	require.NoError(t, db.Model(&meddomain.MedicineMaster{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngestThresholdOverride(t *testing.T) {
	svc, _, _ := setupService(t)

	first, err := svc.Ingest(context.Background(), "store-1", sparseRequest())
	require.NoError(t, err)

	// the spelling variation scores ~93 on name: a duplicate at the
	// default cutoff, a distinct record at 95
	req := sparseRequest()
	req.Name = "Cetzine Tablets"
	req.MatchThreshold = 95
	second, err := svc.Ingest(context.Background(), "store-2", req)
	require.NoError(t, err)
	assert.True(t, second.Created)
	assert.NotEqual(t, first.CanonicalID, second.CanonicalID)
}

func TestDuplicateKeepsMasterConfidence(t *testing.T) {
	svc, db, _ := setupService(t)

	first, err := svc.Ingest(context.Background(), "store-1", sparseRequest())
	require.NoError(t, err)
	assert.Equal(t, 65, first.ConfidenceScore)

	// a richer re-submission of the same product scores higher on its
	// own, but never touches the master's score
	rich := sparseRequest()
	rich.GenericName = strPtr("Cetirizine")
	rich.Schedule = strPtr("H")
	rich.HsnCode = strPtr("30045090")
	rich.PrimaryBarcode = strPtr("8900000000001")
	require.Greater(t, ScoreConfidence(rich), 65)

	second, err := svc.Ingest(context.Background(), "store-2", rich)
	require.NoError(t, err)
	assert.True(t, second.MatchedExisting)
	assert.Equal(t, 65, second.ConfidenceScore)

	var master meddomain.MedicineMaster
	require.NoError(t, db.First(&master, "canonical_id = ?", first.CanonicalID).Error)
	assert.Equal(t, 65, master.ConfidenceScore)
}

func TestPromotionAtThreshold(t *testing.T) {
	svc, db, _ := setupService(t)

	r1, err := svc.Ingest(context.Background(), "store-1", fullRequest())
	require.NoError(t, err)
	assert.False(t, r1.Promoted)

	r2, err := svc.Ingest(context.Background(), "store-2", fullRequest())
	require.NoError(t, err)
	assert.False(t, r2.Promoted)

	// third distinct store clears the adoption bar
	r3, err := svc.Ingest(context.Background(), "store-3", fullRequest())
	require.NoError(t, err)
	assert.True(t, r3.Promoted)

	var master meddomain.MedicineMaster
	require.NoError(t, db.First(&master, "canonical_id = ?", r1.CanonicalID).Error)
	assert.Equal(t, meddomain.StatusVerified, master.Status)

	var pending domain.PendingMedicine
	require.NoError(t, db.First(&pending, "canonical_id = ?", r1.CanonicalID).Error)
	assert.Equal(t, domain.PendingStatusApproved, pending.Status)

	var promotedVersion meddomain.MedicineVersion
	require.NoError(t, db.
		Where("medicine_id = ? AND change_type = ?", r1.CanonicalID, meddomain.ChangePromoted).
		First(&promotedVersion).Error)

	// re-ingesting after promotion is a no-op on status
	r4, err := svc.Ingest(context.Background(), "store-4", fullRequest())
	require.NoError(t, err)
	assert.False(t, r4.Promoted)
}

func TestNoPromotionBelowConfidence(t *testing.T) {
	svc, db, _ := setupService(t)

	var last *domain.IngestResult
	for _, store := range []string{"store-1", "store-2", "store-3", "store-4"} {
		res, err := svc.Ingest(context.Background(), store, sparseRequest())
		require.NoError(t, err)
		assert.False(t, res.Promoted)
		last = res
	}

	var master meddomain.MedicineMaster
	require.NoError(t, db.First(&master, "canonical_id = ?", last.CanonicalID).Error)
	assert.Equal(t, meddomain.StatusPending, master.Status)
	assert.Equal(t, 65, master.ConfidenceScore)
}

func TestNoPromotionBelowStoreCount(t *testing.T) {
	svc, db, _ := setupService(t)

	r1, err := svc.Ingest(context.Background(), "store-1", fullRequest())
	require.NoError(t, err)

	// same store again: usage rises, adoption does not
	r2, err := svc.Ingest(context.Background(), "store-1", fullRequest())
	require.NoError(t, err)
	assert.False(t, r2.Promoted)

	var master meddomain.MedicineMaster
	require.NoError(t, db.First(&master, "canonical_id = ?", r1.CanonicalID).Error)
	assert.Equal(t, meddomain.StatusPending, master.Status)
	assert.Equal(t, int64(2), master.UsageCount)
}

func TestIncrementUsagePromotes(t *testing.T) {
	svc, db, _ := setupService(t)

	r1, err := svc.Ingest(context.Background(), "store-1", fullRequest())
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), "store-2", fullRequest())
	require.NoError(t, err)

	master, err := svc.IncrementUsage(context.Background(), "store-3", r1.CanonicalID)
	require.NoError(t, err)
	assert.Equal(t, meddomain.StatusVerified, master.Status)
	assert.Equal(t, int64(3), master.UsageCount)

	var pending domain.PendingMedicine
	require.NoError(t, db.First(&pending, "canonical_id = ?", r1.CanonicalID).Error)
	assert.Equal(t, domain.PendingStatusApproved, pending.Status)
}

func TestExplicitPromote(t *testing.T) {
	svc, db, _ := setupService(t)

	r1, err := svc.Ingest(context.Background(), "store-1", fullRequest())
	require.NoError(t, err)

	// below the store bar: the check runs but nothing changes
	promoted, err := svc.Promote(context.Background(), r1.CanonicalID)
	require.NoError(t, err)
	assert.False(t, promoted)

	_, err = svc.Ingest(context.Background(), "store-2", fullRequest())
	require.NoError(t, err)
	require.NoError(t, db.Model(&domain.PendingMedicine{}).
		Where("canonical_id = ?", r1.CanonicalID).
		Update("used_by_store_ids", `["store-1","store-2","store-3"]`).Error)

	promoted, err = svc.Promote(context.Background(), r1.CanonicalID)
	require.NoError(t, err)
	assert.True(t, promoted)

	// idempotent: a second call is a no-op
	promoted, err = svc.Promote(context.Background(), r1.CanonicalID)
	require.NoError(t, err)
	assert.False(t, promoted)

	_, err = svc.Promote(context.Background(), "missing-id")
	assert.ErrorIs(t, err, meddomain.ErrNotFound)
}

func TestIncrementUsageUnknownRecord(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.IncrementUsage(context.Background(), "store-1", "missing")
	assert.ErrorIs(t, err, meddomain.ErrNotFound)
}

func TestRejectDiscontinuesUnusedMaster(t *testing.T) {
	svc, db, _ := setupService(t)

	res, err := svc.Ingest(context.Background(), "store-1", sparseRequest())
	require.NoError(t, err)

	pending, err := svc.Reject(context.Background(), res.PendingID, "not a real product")
	require.NoError(t, err)
	assert.Equal(t, domain.PendingStatusRejected, pending.Status)
	require.NotNil(t, pending.RejectionReason)
	assert.Equal(t, "not a real product", *pending.RejectionReason)

	var master meddomain.MedicineMaster
	require.NoError(t, db.First(&master, "canonical_id = ?", res.CanonicalID).Error)
	assert.Equal(t, meddomain.StatusDiscontinued, master.Status)

	// rejecting twice fails
	_, err = svc.Reject(context.Background(), res.PendingID, "again")
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestRejectKeepsWidelyUsedMaster(t *testing.T) {
	svc, db, _ := setupService(t)

	res, err := svc.Ingest(context.Background(), "store-1", sparseRequest())
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), "store-2", sparseRequest())
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), res.PendingID, "bad data")
	require.NoError(t, err)

	var master meddomain.MedicineMaster
	require.NoError(t, db.First(&master, "canonical_id = ?", res.CanonicalID).Error)
	assert.Equal(t, meddomain.StatusPending, master.Status)
}

func TestIngestValidation(t *testing.T) {
	svc, _, _ := setupService(t)

	tests := []struct {
		name   string
		mutate func(*domain.IngestRequest)
		want   error
	}{
		{"short name", func(r *domain.IngestRequest) { r.Name = "ab" }, meddomain.ErrInvalidName},
		// two runes even though four bytes
		{"short accented name", func(r *domain.IngestRequest) { r.Name = "éé" }, meddomain.ErrInvalidName},
		{"short composition", func(r *domain.IngestRequest) { r.CompositionText = "x" }, meddomain.ErrInvalidComposition},
		{"short manufacturer", func(r *domain.IngestRequest) { r.ManufacturerName = "g" }, meddomain.ErrInvalidManufacturer},
		{"short accented manufacturer", func(r *domain.IngestRequest) { r.ManufacturerName = "é" }, meddomain.ErrInvalidManufacturer},
		{"gst above cap", func(r *domain.IngestRequest) { d := decimal.NewFromInt(40); r.DefaultGstRate = &d }, meddomain.ErrInvalidGstRate},
		{"negative gst", func(r *domain.IngestRequest) { d := decimal.NewFromInt(-1); r.DefaultGstRate = &d }, meddomain.ErrInvalidGstRate},
		{"empty form", func(r *domain.IngestRequest) { r.Form = " " }, meddomain.ErrInvalidForm},
		{"empty pack size", func(r *domain.IngestRequest) { r.PackSize = "" }, meddomain.ErrInvalidPackSize},
		{"bad source", func(r *domain.IngestRequest) { r.Source = "CARRIER_PIGEON" }, domain.ErrInvalidSource},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := fullRequest()
			tc.mutate(&req)
			_, err := svc.Ingest(context.Background(), "store-1", req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := svc.Ingest(context.Background(), " ", fullRequest())
	assert.ErrorIs(t, err, domain.ErrStoreRequired)
}

func TestBulkIngestIsolatesFailures(t *testing.T) {
	svc, _, _ := setupService(t)

	bad := sparseRequest()
	bad.Name = "x"
	result, err := svc.BulkIngest(context.Background(), "store-1", []domain.IngestRequest{
		sparseRequest(), bad, fullRequest(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Key, "item[1]")
}

func TestListPendingAndStats(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Ingest(context.Background(), "store-1", sparseRequest())
	require.NoError(t, err)
	res, err := svc.Ingest(context.Background(), "store-1", fullRequest())
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), res.PendingID, "dup of catalog entry")
	require.NoError(t, err)

	pending, err := svc.ListPending(context.Background(), domain.PendingListRequest{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Cetzine Tablet", pending[0].Name)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[domain.PendingStatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[domain.PendingStatusRejected])
	assert.Equal(t, int64(1), stats.BySource[domain.SourceScan])
	assert.Equal(t, int64(1), stats.BySource[domain.SourceManual])
}
