package sync_test

import (
	"encoding/json"
	"testing"
	"time"

	"license-reconciler/feature/extlicense"
	"license-reconciler/feature/license/models"
	"license-reconciler/feature/sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeDiffSelectiveOverwrite(t *testing.T) {
	activate := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	fee := decimal.NewFromFloat(49.99)
	balance := 120

	ext := extlicense.Record{
		AppID:        "A1",
		DBA:          "Biz Corporation",
		Zip:          "94107",
		ActivateDate: &activate,
		MonthlyFee:   &fee,
		SMSBalance:   &balance,
		Note:         strPtr("external note"),
		Package:      json.RawMessage(`{"tier":"gold"}`),
		Workspace:    strPtr("west"),
	}
	lic := models.License{
		Product: "Pro", Plan: "Gold", SeatsTotal: 25,
		DBA: "Biz LLC", Zip: "10001", Notes: "old note",
	}

	diff := sync.ComputeDiff(ext, lic)
	assert.False(t, diff.Empty())

	updates := diff.Updates()
	assert.Equal(t, "Biz Corporation", updates["dba"])
	assert.Equal(t, "94107", updates["zip"])
	assert.Equal(t, activate, updates["starts_at"])
	assert.Equal(t, fee, updates["last_payment"])
	assert.Equal(t, 120, updates["sms_balance"])
	assert.Equal(t, "external note", updates["notes"])
	assert.Equal(t, "west", updates["workspace"])
	assert.JSONEq(t, `{"tier":"gold"}`, string(updates["package_data"].([]byte)))

	// Internally owned fields never appear.
	assert.NotContains(t, updates, "product")
	assert.NotContains(t, updates, "plan")
	assert.NotContains(t, updates, "seats_total")
	assert.NotContains(t, updates, "status")
}

func TestComputeDiffMonthlyFeeOnly(t *testing.T) {
	fee := decimal.NewFromFloat(49.99)
	ext := extlicense.Record{AppID: "A1", MonthlyFee: &fee}
	lic := models.License{Product: "Pro", Plan: "Gold"}

	diff := sync.ComputeDiff(ext, lic)
	updates := diff.Updates()
	assert.Len(t, updates, 1)
	assert.Equal(t, fee, updates["last_payment"])
}

func TestComputeDiffAbsentExternalKeepsInternal(t *testing.T) {
	ext := extlicense.Record{AppID: "A1"}
	lic := models.License{
		DBA: "Biz LLC", Zip: "10001", Notes: "internal note", Workspace: "east",
	}

	diff := sync.ComputeDiff(ext, lic)
	assert.True(t, diff.Empty())
	assert.Empty(t, diff.Updates())
}

func TestComputeDiffEqualValuesProduceNothing(t *testing.T) {
	activate := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	fee := decimal.NewFromFloat(49.99)

	ext := extlicense.Record{
		AppID:        "A1",
		DBA:          "Biz LLC",
		Zip:          "94107",
		ActivateDate: &activate,
		MonthlyFee:   &fee,
	}
	lic := models.License{
		DBA: "Biz LLC", Zip: "94107",
		StartsAt:    &activate,
		LastPayment: &fee,
	}

	diff := sync.ComputeDiff(ext, lic)
	assert.True(t, diff.Empty(), "identical values must not produce a write")
}

func TestComputeDiffDecimalEqualityIgnoresExponent(t *testing.T) {
	a := decimal.RequireFromString("49.990")
	b := decimal.RequireFromString("49.99")

	ext := extlicense.Record{AppID: "A1", MonthlyFee: &a}
	lic := models.License{LastPayment: &b}

	assert.True(t, sync.ComputeDiff(ext, lic).Empty())
}
