package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// License statuses. The lifecycle is owned internally; sync only ever moves
// a record between active/expiring/expired based on external signals.
const (
	StatusActive   = "active"
	StatusExpiring = "expiring"
	StatusExpired  = "expired"
	StatusPending  = "pending"
	StatusCancel   = "cancel"
	StatusDraft    = "draft"
	StatusRevoked  = "revoked"
)

// ValidStatus checks if the status is one of the known lifecycle values.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusExpiring, StatusExpired, StatusPending,
		StatusCancel, StatusDraft, StatusRevoked:
		return true
	default:
		return false
	}
}

// Sync linkage statuses recorded on a license.
const (
	SyncStatusLinked   = "linked"
	SyncStatusCreated  = "created"
	SyncStatusConflict = "conflict"
)

// License is the internal system of record. Product, plan and seat counts
// are internally owned and never overwritten by sync; contact and business
// metadata fields may be refreshed from the external system.
type License struct {
	ID  uint   `gorm:"primaryKey" json:"id"`
	Key string `gorm:"column:license_key;uniqueIndex;size:64" json:"key"`

	Product string `gorm:"column:product" json:"product"`
	Plan    string `gorm:"column:plan" json:"plan"`
	Status  string `gorm:"column:status;index;size:16" json:"status"`
	Term    string `gorm:"column:term" json:"term"`

	SeatsTotal int `gorm:"column:seats_total" json:"seatsTotal"`
	SeatsUsed  int `gorm:"column:seats_used" json:"seatsUsed"`

	StartsAt    *time.Time       `gorm:"column:starts_at" json:"startsAt,omitempty"`
	ExpiresAt   *time.Time       `gorm:"column:expires_at" json:"expiresAt,omitempty"`
	LastPayment *decimal.Decimal `gorm:"column:last_payment;type:decimal(12,2)" json:"lastPayment,omitempty"`

	SMSPurchased int `gorm:"column:sms_purchased" json:"smsPurchased"`
	SMSSent      int `gorm:"column:sms_sent" json:"smsSent"`
	SMSBalance   int `gorm:"column:sms_balance" json:"smsBalance"`

	Agents      int    `gorm:"column:agents" json:"agents"`
	DBA         string `gorm:"column:dba;index" json:"dba"`
	Zip         string `gorm:"column:zip;size:16" json:"zip"`
	Phone       string `gorm:"column:phone;size:32" json:"phone"`
	Notes       string `gorm:"column:notes" json:"notes"`
	PackageData []byte `gorm:"column:package_data" json:"-"`
	Workspace   string `gorm:"column:workspace" json:"workspace"`

	// Sync linkage. A license with a non-null ExternalAppID is never
	// deleted by sync, only updated.
	ExternalAppID      *string    `gorm:"column:external_app_id;uniqueIndex" json:"externalAppId,omitempty"`
	ExternalEmail      string     `gorm:"column:external_email;index" json:"externalEmail,omitempty"`
	ExternalCountID    *int       `gorm:"column:external_count_id;index" json:"externalCountId,omitempty"`
	ExternalSyncStatus string     `gorm:"column:external_sync_status;size:16" json:"externalSyncStatus,omitempty"`
	LastExternalSyncAt *time.Time `gorm:"column:last_external_sync_at" json:"lastExternalSyncAt,omitempty"`

	// ConsolidatedInto points at the master license after a merge.
	ConsolidatedInto *uint `gorm:"column:consolidated_into" json:"consolidatedInto,omitempty"`

	CreatedBy string    `gorm:"column:created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `gorm:"column:updated_by" json:"updatedBy,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName overrides the table name.
func (License) TableName() string {
	return "licenses"
}

// Linked reports whether this license is bound to an external record.
func (l License) Linked() bool {
	return l.ExternalAppID != nil && *l.ExternalAppID != ""
}

// ReviewItem is a duplicate candidate queued for manual review. Candidates
// below the auto-consolidation threshold are never merged silently; they
// wait here for explicit approval.
type ReviewItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Scope           string    `gorm:"column:scope;size:16" json:"scope"` // external|internal|cross-system
	Members         []byte    `gorm:"column:members" json:"-"`          // JSON array of entity refs
	ConfidenceScore int       `gorm:"column:confidence_score" json:"confidenceScore"`
	MatchReasons    []byte    `gorm:"column:match_reasons" json:"-"` // JSON array of strings
	Status          string    `gorm:"column:status;size:16;index" json:"status"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"createdAt"`
}

// TableName overrides the table name.
func (ReviewItem) TableName() string {
	return "duplicate_review_queue"
}

// Review queue statuses.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// ConsolidationDecision is the immutable audit record of a merge.
type ConsolidationDecision struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	MasterID     uint      `gorm:"column:master_id;index" json:"masterLicenseId"`
	DuplicateIDs []byte    `gorm:"column:duplicate_ids" json:"-"` // JSON array of license IDs
	Strategy     string    `gorm:"column:strategy;size:32" json:"strategy"`
	AppliedBy    string    `gorm:"column:applied_by;size:16" json:"appliedBy"` // system|user
	Notes        string    `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"timestamp"`
}

// TableName overrides the table name.
func (ConsolidationDecision) TableName() string {
	return "consolidation_decisions"
}

// Consolidation strategies.
const (
	StrategyMergeRecords = "merge_records"
	StrategyLinkExternal = "link_external"
	StrategyKeepMaster   = "keep_master"
)
