package dedupe

import (
	"context"
	"testing"
	"time"

	"license-reconciler/feature/extlicense"
	"license-reconciler/feature/license/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDetector() *Detector {
	return NewDetector(DefaultConfig(), zap.NewNop())
}

func datePtr(s string) *time.Time {
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &ts
}

func strPtr(s string) *string { return &s }

func TestDisposition(t *testing.T) {
	d := testDetector()

	cases := []struct {
		score int
		want  Disposition
	}{
		{100, DispositionAuto},
		{90, DispositionAuto},
		{89, DispositionReview},
		{70, DispositionReview},
		{69, DispositionDiscard},
		{0, DispositionDiscard},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, d.Disposition(tc.score), "score %d", tc.score)
	}
}

func TestDetectExternalDuplicates(t *testing.T) {
	d := testDetector()

	records := []extlicense.Record{
		{
			AppID:        "app-1",
			Email:        "billing@acme.com",
			DBA:          "Acme Widgets LLC",
			Zip:          "94107",
			ActivateDate: datePtr("2026-01-01"),
		},
		{
			AppID:        "app-2",
			Email:        "billing@acme.com",
			DBA:          "Acme Widgets Inc",
			Zip:          "94107",
			ActivateDate: datePtr("2026-03-01"),
		},
		{
			AppID: "app-3",
			Email: "ops@zenith.io",
			DBA:   "Zenith Plumbing",
			Zip:   "10001",
		},
	}

	report, err := d.Detect(context.Background(), records, nil)
	require.NoError(t, err)
	require.Len(t, report.External, 1)

	cand := report.External[0]
	assert.Equal(t, ScopeExternal, cand.Scope)
	assert.Len(t, cand.Members, 2)
	// email exact + dba exact + zip = 40 + 35 + 15
	assert.Equal(t, 90, cand.Score)
	assert.Equal(t, DispositionAuto, d.Disposition(cand.Score))
	assert.Contains(t, cand.MatchReasons, "email exact match")
}

func TestDetectExternalSkipsDisjointWindows(t *testing.T) {
	d := testDetector()

	// Same business, but the first license expired before the second
	// started: a renewal, not a duplicate.
	records := []extlicense.Record{
		{
			AppID:             "app-1",
			Email:             "billing@acme.com",
			DBA:               "Acme Widgets",
			ActivateDate:      datePtr("2024-01-01"),
			ComingExpiredDate: datePtr("2024-12-31"),
		},
		{
			AppID:        "app-2",
			Email:        "billing@acme.com",
			DBA:          "Acme Widgets",
			ActivateDate: datePtr("2025-06-01"),
		},
	}

	report, err := d.Detect(context.Background(), records, nil)
	require.NoError(t, err)
	assert.Empty(t, report.External)
}

func TestDetectInternalFuzzyCluster(t *testing.T) {
	d := testDetector()

	licenses := []models.License{
		{
			Key:    "LIC-1",
			DBA:           "Acmee Widgets",
			Zip:           "94107",
			ExternalEmail: "billing@acme.com",
		},
		{
			Key:    "LIC-2",
			DBA:           "Acme Widgets",
			Zip:           "94107",
			ExternalEmail: "ops@acme.com",
		},
		{
			Key: "LIC-3",
			DBA:        "Zenith Plumbing",
			Zip:        "10001",
		},
	}
	licenses[0].ID = 1
	licenses[1].ID = 2
	licenses[2].ID = 3

	report, err := d.Detect(context.Background(), nil, licenses)
	require.NoError(t, err)
	require.Len(t, report.Internal, 1)

	cand := report.Internal[0]
	assert.Equal(t, ScopeInternal, cand.Scope)
	assert.Len(t, cand.Members, 2)
	// fuzzy dba + email domain + zip = 30 + 25 + 15
	assert.Equal(t, 70, cand.Score)
	assert.Equal(t, DispositionReview, d.Disposition(cand.Score))
}

func TestDetectInternalRequiresSecondarySignal(t *testing.T) {
	d := testDetector()

	// Identical DBA but nothing else in common: a common business name is
	// not evidence on its own.
	licenses := []models.License{
		{Key: "LIC-1", DBA: "Main Street Diner", Zip: "94107"},
		{Key: "LIC-2", DBA: "Main Street Diner", Zip: "10001"},
	}
	licenses[0].ID = 1
	licenses[1].ID = 2

	report, err := d.Detect(context.Background(), nil, licenses)
	require.NoError(t, err)
	assert.Empty(t, report.Internal)
}

func TestDetectCrossSystem(t *testing.T) {
	d := testDetector()

	records := []extlicense.Record{
		{
			AppID: "app-9",
			Email: "billing@acme.com",
			DBA:   "Acme Widgets LLC",
			Zip:   "94107",
		},
	}
	linked := models.License{
		Key:    "LIC-LINKED",
		DBA:           "Acme Widgets",
		Zip:           "94107",
		ExternalAppID: strPtr("app-9"),
		ExternalEmail: "billing@acme.com",
	}
	linked.ID = 1
	unlinked := models.License{
		Key:    "LIC-2",
		DBA:           "Acme Widgets Inc",
		Zip:           "94107",
		ExternalEmail: "billing@acme.com",
	}
	unlinked.ID = 2

	report, err := d.Detect(context.Background(), records, []models.License{linked, unlinked})
	require.NoError(t, err)
	require.Len(t, report.CrossSystem, 1)

	cand := report.CrossSystem[0]
	assert.Equal(t, ScopeCrossSystem, cand.Scope)
	// email exact + dba exact + zip = 40 + 35 + 15
	assert.Equal(t, 90, cand.Score)
	require.Len(t, cand.Members, 2)
	assert.Equal(t, "external", cand.Members[0].System)
	assert.Equal(t, "app-9", cand.Members[0].ID)
	assert.Equal(t, "internal", cand.Members[1].System)
	assert.Equal(t, "2", cand.Members[1].ID)
}

func TestCheckAgainst(t *testing.T) {
	d := testDetector()

	licenses := []models.License{
		{Key: "LIC-1", DBA: "Acme Widgets", Zip: "94107", ExternalEmail: "billing@acme.com"},
		{Key: "LIC-2", DBA: "Zenith Plumbing", Zip: "10001"},
	}
	licenses[0].ID = 1
	licenses[1].ID = 2

	hits := d.CheckAgainst("Acme Widgets LLC", "billing@acme.com", licenses, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].Members[0].ID)
	// email exact + dba exact = 40 + 35
	assert.Equal(t, 75, hits[0].Score)
}
