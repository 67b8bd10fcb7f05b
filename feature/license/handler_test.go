package license_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"license-reconciler/feature/license"
	"license-reconciler/feature/license/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *license.Service, *license.Repository) {
	t.Helper()
	svc, db := newService(t)
	app := fiber.New()
	license.NewHandler(svc).RegisterRoutes(app)
	return app, svc, license.NewRepository(db)
}

func TestHandleCheckDuplicates(t *testing.T) {
	app, _, repo := newTestApp(t)
	require.NoError(t, repo.Create(context.Background(), &models.License{
		Key: "L-1", Status: models.StatusActive, DBA: "Acme Widgets", ExternalEmail: "billing@acme.com",
	}))

	t.Run("finds match", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/licenses/duplicates/check?dba=Acme+Widgets+LLC&email=billing@acme.com", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			PotentialDuplicates []struct {
				Score        int      `json:"confidenceScore"`
				MatchReasons []string `json:"matchReasons"`
			} `json:"potentialDuplicates"`
			Count int `json:"count"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 1, body.Count)
		require.Len(t, body.PotentialDuplicates, 1)
		assert.Equal(t, 75, body.PotentialDuplicates[0].Score)
		assert.NotEmpty(t, body.PotentialDuplicates[0].MatchReasons)
	})

	t.Run("requires a probe", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/licenses/duplicates/check", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleConsolidate(t *testing.T) {
	app, _, repo := newTestApp(t)
	ctx := context.Background()

	master := &models.License{Key: "L-1", Status: models.StatusActive, DBA: "Acme"}
	dup := &models.License{Key: "L-2", Status: models.StatusActive, DBA: "Acme Inc"}
	require.NoError(t, repo.Create(ctx, master))
	require.NoError(t, repo.Create(ctx, dup))

	t.Run("merges", func(t *testing.T) {
		payload := fmt.Sprintf(`{"masterLicenseId":%d,"duplicateLicenseIds":[%d],"consolidationStrategy":"merge_records"}`, master.ID, dup.ID)
		req := httptest.NewRequest(http.MethodPost, "/licenses/duplicates/consolidate", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var decision models.ConsolidationDecision
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decision))
		assert.Equal(t, master.ID, decision.MasterID)
		assert.NotEmpty(t, decision.ID)
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		payload := fmt.Sprintf(`{"masterLicenseId":%d,"duplicateLicenseIds":[%d],"consolidationStrategy":"delete_all"}`, master.ID, dup.ID)
		req := httptest.NewRequest(http.MethodPost, "/licenses/duplicates/consolidate", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects missing master", func(t *testing.T) {
		payload := fmt.Sprintf(`{"masterLicenseId":9999,"duplicateLicenseIds":[%d],"consolidationStrategy":"merge_records"}`, dup.ID)
		req := httptest.NewRequest(http.MethodPost, "/licenses/duplicates/consolidate", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestHandleReviewLifecycle(t *testing.T) {
	app, svc, repo := newTestApp(t)
	ctx := context.Background()

	master := &models.License{Key: "L-1", Status: models.StatusActive, DBA: "Acme"}
	dup := &models.License{Key: "L-2", Status: models.StatusActive, DBA: "Acme Inc"}
	require.NoError(t, repo.Create(ctx, master))
	require.NoError(t, repo.Create(ctx, dup))

	item := &models.ReviewItem{
		Scope:           "internal",
		Members:         []byte(`[]`),
		ConfidenceScore: 80,
		MatchReasons:    []byte(`[]`),
	}
	require.NoError(t, repo.QueueReview(ctx, item))

	t.Run("list pending", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/licenses/duplicates/reviews", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var items []models.ReviewItem
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
		assert.Len(t, items, 1)
	})

	t.Run("approve consolidates", func(t *testing.T) {
		payload := fmt.Sprintf(`{"masterLicenseId":%d,"duplicateLicenseIds":[%d],"consolidationStrategy":"merge_records"}`, master.ID, dup.ID)
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/licenses/duplicates/reviews/%d/approve", item.ID), bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		pending, err := svc.PendingReviews(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("reject closes without merging", func(t *testing.T) {
		other := &models.ReviewItem{Scope: "internal", Members: []byte(`[]`), MatchReasons: []byte(`[]`), ConfidenceScore: 71}
		require.NoError(t, repo.QueueReview(ctx, other))

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/licenses/duplicates/reviews/%d/reject", other.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestHandleGetLicense(t *testing.T) {
	app, _, repo := newTestApp(t)
	lic := &models.License{Key: "L-1", Status: models.StatusActive}
	require.NoError(t, repo.Create(context.Background(), lic))

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/licenses/%d", lic.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/licenses/424242", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
