package sync_test

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"license-reconciler/core/breaker"
	"license-reconciler/core/config"
	"license-reconciler/feature/extlicense"
	"license-reconciler/feature/license"
	"license-reconciler/feature/license/dedupe"
	"license-reconciler/feature/license/models"
	"license-reconciler/feature/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeAPI serves a fixed record set, optionally gated so a test can hold
// a run open.
type fakeAPI struct {
	records   []extlicense.Record
	skipped   []extlicense.SkippedRecord
	connErr   error
	fetchErr  error
	gate      chan struct{}
	fetchedMu stdsync.Mutex
	fetches   int
}

func (f *fakeAPI) FetchPage(ctx context.Context, pageToken string, pageSize int) (*extlicense.Page, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.fetchedMu.Lock()
	f.fetches++
	f.fetchedMu.Unlock()
	return &extlicense.Page{Records: f.records, Skipped: f.skipped}, nil
}

func (f *fakeAPI) TestConnectivity(ctx context.Context) error {
	return f.connErr
}

func syncConfig() config.Sync {
	return config.Sync{
		BatchSize:        10,
		ConcurrencyLimit: 2,
		InnerConcurrency: 2,
		SmallRunBatches:  3,
		LargeRunBatches:  50,
		TimeoutSeconds:   60,
		AutoThreshold:    90,
		ReviewThreshold:  70,
		FuzzyRatio:       0.85,
	}
}

func newSyncService(t *testing.T, api extlicense.APIClient, cfg config.Sync) (*sync.Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop()

	licRepo := license.NewRepository(db)
	detector := dedupe.NewDetector(dedupe.Config{
		FuzzyRatio:      cfg.FuzzyRatio,
		AutoThreshold:   cfg.AutoThreshold,
		ReviewThreshold: cfg.ReviewThreshold,
	}, log)
	licSvc := license.NewService(licRepo, detector, log)
	br := breaker.New(5, time.Minute)

	svc := sync.NewService(cfg, api, extlicense.NewRepository(db), licRepo, licSvc,
		detector, nil, br, sync.NewRepository(db), log)
	return svc, db
}

func TestRunCreatesAndReportsResult(t *testing.T) {
	api := &fakeAPI{records: seedRecords(15)}
	svc, db := newSyncService(t, api, syncConfig())

	result, err := svc.Run(context.Background(), sync.Options{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, 15, result.Fetched)
	assert.Equal(t, 15, result.Created)
	assert.Zero(t, result.Failed)
	assert.NotEmpty(t, result.OperationID)

	// The snapshot store holds the fetched population.
	snaps, err := extlicense.NewRepository(db).ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, snaps, 15)

	// Operation history is finalized.
	ops, err := svc.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, sync.OperationSuccess, ops[0].Status)
	assert.Equal(t, 15, ops[0].Created)
	assert.NotNil(t, ops[0].EndedAt)
}

func TestRunSecondPassIsIdempotent(t *testing.T) {
	api := &fakeAPI{records: seedRecords(10)}
	svc, _ := newSyncService(t, api, syncConfig())
	ctx := context.Background()

	first, err := svc.Run(ctx, sync.Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, first.Created)

	second, err := svc.Run(ctx, sync.Options{})
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Zero(t, second.Created)
	assert.Zero(t, second.Updated)
	assert.Equal(t, 10, second.Unchanged)
}

func TestRunSingleFlight(t *testing.T) {
	api := &fakeAPI{records: seedRecords(5), gate: make(chan struct{})}
	svc, _ := newSyncService(t, api, syncConfig())

	started := make(chan struct{})
	done := make(chan *sync.Result, 1)
	go func() {
		close(started)
		result, err := svc.Run(context.Background(), sync.Options{})
		if err == nil {
			done <- result
		}
		close(done)
	}()

	<-started
	// Wait until the first run holds the slot.
	require.Eventually(t, svc.InProgress, time.Second, time.Millisecond)

	_, err := svc.Run(context.Background(), sync.Options{})
	assert.ErrorIs(t, err, sync.ErrSyncInProgress)

	close(api.gate)
	result := <-done
	require.NotNil(t, result)
	assert.True(t, result.Success)

	// The slot is released; a new run is accepted.
	_, err = svc.Run(context.Background(), sync.Options{})
	assert.NoError(t, err)
}

func TestRunConnectivityFailureAborts(t *testing.T) {
	api := &fakeAPI{connErr: &extlicense.AuthError{Status: 401}}
	svc, _ := newSyncService(t, api, syncConfig())

	result, err := svc.Run(context.Background(), sync.Options{})
	require.NoError(t, err, "fatal errors are reported inside the result")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.False(t, svc.InProgress())

	ops, err := svc.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, sync.OperationFailed, ops[0].Status)

	report := svc.Status()
	require.NotNil(t, report.LastSyncResult)
	assert.False(t, report.LastSyncResult.Success)
	assert.Equal(t, "closed", report.CircuitBreakerState)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	api := &fakeAPI{records: seedRecords(8)}
	svc, db := newSyncService(t, api, syncConfig())

	result, err := svc.Run(context.Background(), sync.Options{DryRun: true, DetectDuplicates: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.DryRun)
	assert.Equal(t, 8, result.Created)

	ctx := context.Background()
	licenses, err := license.NewRepository(db).FindLicenses(ctx, license.Filter{})
	require.NoError(t, err)
	assert.Empty(t, licenses, "dry run must not create licenses")

	snaps, err := extlicense.NewRepository(db).ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps, "dry run must not write snapshots")
}

func TestRunRoutesDuplicatesToReviewQueue(t *testing.T) {
	// Two unlinked internal licenses for the same business; the external
	// record pairs with both at review confidence.
	api := &fakeAPI{records: []extlicense.Record{
		{AppID: "A1", Email: "billing@acme.com", DBA: "Acme Widgets LLC", Status: 1},
	}}
	svc, db := newSyncService(t, api, syncConfig())
	ctx := context.Background()

	repo := license.NewRepository(db)
	require.NoError(t, repo.Create(ctx, &models.License{
		Key: "L-1", Status: models.StatusActive, DBA: "Acme Widgets",
		ExternalEmail: "billing@acme.com",
	}))

	result, err := svc.Run(ctx, sync.Options{DetectDuplicates: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Positive(t, result.DuplicatesHandled)

	pending, err := repo.PendingReviews(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, pending)
}

func TestRunCountsSkippedRecords(t *testing.T) {
	api := &fakeAPI{
		records: seedRecords(3),
		skipped: []extlicense.SkippedRecord{{AppID: "bad-1", Reason: "missing appId"}},
	}
	svc, _ := newSyncService(t, api, syncConfig())

	result, err := svc.Run(context.Background(), sync.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad-1", result.Failures[0].AppID)
}

func TestRunTimeoutMarksOperationFailed(t *testing.T) {
	cfg := syncConfig()
	cfg.TimeoutSeconds = 1
	api := &fakeAPI{records: seedRecords(2), gate: make(chan struct{})}
	svc, _ := newSyncService(t, api, cfg)

	result, err := svc.Run(context.Background(), sync.Options{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "context deadline exceeded")
	assert.False(t, svc.InProgress())
}
