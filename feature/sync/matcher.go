package sync

import (
	"context"

	"license-reconciler/feature/extlicense"
	"license-reconciler/feature/license"
	"license-reconciler/feature/license/models"
)

// MatchReason records which criterion resolved an external record.
type MatchReason string

const (
	MatchByAppID   MatchReason = "app_id"
	MatchByEmail   MatchReason = "email"
	MatchByCountID MatchReason = "count_id"
	MatchNone      MatchReason = "none"
)

// Matcher resolves one external record to zero-or-one internal license.
//
// The priority order is a fixed business rule: appId is ground truth,
// email is a medium-confidence fallback, countId (the external system's
// own surrogate key) a last resort. The first hit wins; there is no
// scoring here, scoring belongs to duplicate detection.
type Matcher struct {
	licenses *license.Repository
}

// NewMatcher creates a matcher over the internal license store.
func NewMatcher(licenses *license.Repository) *Matcher {
	return &Matcher{licenses: licenses}
}

// Match returns the internal license for an external record, or nil with
// MatchNone to signal create-new.
func (m *Matcher) Match(ctx context.Context, rec extlicense.Record) (*models.License, MatchReason, error) {
	if rec.AppID != "" {
		lic, err := m.licenses.FindByExternalAppID(ctx, rec.AppID)
		if err != nil {
			return nil, MatchNone, err
		}
		if lic != nil {
			return lic, MatchByAppID, nil
		}
	}

	if rec.Email != "" {
		lic, err := m.licenses.FindByExternalEmail(ctx, rec.Email)
		if err != nil {
			return nil, MatchNone, err
		}
		if lic != nil {
			return lic, MatchByEmail, nil
		}
	}

	if rec.CountID != nil {
		lic, err := m.licenses.FindByExternalCountID(ctx, *rec.CountID)
		if err != nil {
			return nil, MatchNone, err
		}
		if lic != nil {
			return lic, MatchByCountID, nil
		}
	}

	return nil, MatchNone, nil
}
