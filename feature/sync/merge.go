package sync

import (
	"bytes"
	"time"

	"license-reconciler/feature/extlicense"
	"license-reconciler/feature/license/models"

	"github.com/shopspring/decimal"
)

// Diff is the minimal set of license fields a reconciled external record
// changes. A nil field means "keep the internal value". Product, plan and
// seat counts never appear here: they are internally owned.
type Diff struct {
	DBA         *string
	Zip         *string
	StartsAt    *time.Time
	ExpiresAt   *time.Time
	LastPayment *decimal.Decimal
	SMSBalance  *int
	Notes       *string
	PackageData []byte
	Workspace   *string
}

// Empty reports whether the diff would change nothing. Empty diffs must
// produce no write; idempotent re-syncs depend on that.
func (d Diff) Empty() bool {
	return d.DBA == nil && d.Zip == nil &&
		d.StartsAt == nil && d.ExpiresAt == nil &&
		d.LastPayment == nil && d.SMSBalance == nil &&
		d.Notes == nil && d.PackageData == nil && d.Workspace == nil
}

// Updates renders the diff as a gorm column map.
func (d Diff) Updates() map[string]any {
	out := map[string]any{}
	if d.DBA != nil {
		out["dba"] = *d.DBA
	}
	if d.Zip != nil {
		out["zip"] = *d.Zip
	}
	if d.StartsAt != nil {
		out["starts_at"] = *d.StartsAt
	}
	if d.ExpiresAt != nil {
		out["expires_at"] = *d.ExpiresAt
	}
	if d.LastPayment != nil {
		out["last_payment"] = *d.LastPayment
	}
	if d.SMSBalance != nil {
		out["sms_balance"] = *d.SMSBalance
	}
	if d.Notes != nil {
		out["notes"] = *d.Notes
	}
	if d.PackageData != nil {
		out["package_data"] = d.PackageData
	}
	if d.Workspace != nil {
		out["workspace"] = *d.Workspace
	}
	return out
}

// ComputeDiff applies the selective-overwrite rule per field: a non-null
// external value for a contact or business-metadata field overwrites the
// internal value; an absent external value keeps the internal one. The
// function is pure, it performs no I/O.
func ComputeDiff(ext extlicense.Record, lic models.License) Diff {
	var d Diff

	if ext.DBA != "" && ext.DBA != lic.DBA {
		d.DBA = &ext.DBA
	}
	if ext.Zip != "" && ext.Zip != lic.Zip {
		d.Zip = &ext.Zip
	}
	if ext.ActivateDate != nil && !equalTime(lic.StartsAt, ext.ActivateDate) {
		d.StartsAt = ext.ActivateDate
	}
	if ext.ComingExpiredDate != nil && !equalTime(lic.ExpiresAt, ext.ComingExpiredDate) {
		d.ExpiresAt = ext.ComingExpiredDate
	}
	if ext.MonthlyFee != nil && (lic.LastPayment == nil || !lic.LastPayment.Equal(*ext.MonthlyFee)) {
		d.LastPayment = ext.MonthlyFee
	}
	if ext.SMSBalance != nil && *ext.SMSBalance != lic.SMSBalance {
		d.SMSBalance = ext.SMSBalance
	}
	if ext.Note != nil && *ext.Note != lic.Notes {
		d.Notes = ext.Note
	}
	if len(ext.Package) > 0 && !bytes.Equal(ext.Package, lic.PackageData) {
		d.PackageData = ext.Package
	}
	if ext.Workspace != nil && *ext.Workspace != lic.Workspace {
		d.Workspace = ext.Workspace
	}

	return d
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
