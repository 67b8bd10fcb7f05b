package sync

import (
	"time"
)

// Operation statuses.
const (
	OperationRunning = "running"
	OperationSuccess = "success"
	OperationFailed  = "failed"
)

// Operation types.
const (
	TypeStandard      = "standard"
	TypeComprehensive = "comprehensive"
	TypeDryRun        = "dry-run"
)

// Operation is one sync run, persisted as history. At most one operation
// is running at a time.
type Operation struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	Type              string     `gorm:"column:type;size:16" json:"type"`
	Status            string     `gorm:"column:status;size:16;index" json:"status"`
	StartedAt         time.Time  `gorm:"column:started_at" json:"startedAt"`
	EndedAt           *time.Time `gorm:"column:ended_at" json:"endedAt,omitempty"`
	Fetched           int        `gorm:"column:fetched" json:"fetched"`
	Created           int        `gorm:"column:created" json:"created"`
	Updated           int        `gorm:"column:updated" json:"updated"`
	Unchanged         int        `gorm:"column:unchanged" json:"unchanged"`
	Failed            int        `gorm:"column:failed" json:"failed"`
	DuplicatesHandled int        `gorm:"column:duplicates_handled" json:"duplicatesHandled"`
	Error             string     `gorm:"column:error" json:"error,omitempty"`
}

// TableName overrides the table name.
func (Operation) TableName() string {
	return "sync_operations"
}

// RecordFailure is one per-record failure accumulated at the batch
// boundary. Failures never abort sibling records.
type RecordFailure struct {
	AppID  string `json:"appId"`
	Reason string `json:"reason"`
}

// Result is the outcome of one sync run, returned to the trigger caller
// whether the run succeeded or not.
type Result struct {
	OperationID       string          `json:"operationId"`
	Timestamp         time.Time       `json:"timestamp"`
	Success           bool            `json:"success"`
	DryRun            bool            `json:"dryRun,omitempty"`
	Fetched           int             `json:"fetched"`
	Created           int             `json:"created"`
	Updated           int             `json:"updated"`
	Unchanged         int             `json:"unchanged"`
	Failed            int             `json:"failed"`
	DuplicatesHandled int             `json:"duplicatesHandled"`
	Failures          []RecordFailure `json:"failures,omitempty"`
	Error             string          `json:"error,omitempty"`
}
