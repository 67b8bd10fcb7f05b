package extlicense

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRecord is the persisted form of an external record. The snapshot
// is immutable per sync cycle: every cycle overwrites it wholesale via
// upsert, giving dedup analysis a stable local copy to work from.
type SnapshotRecord struct {
	AppID             string           `gorm:"column:app_id;primaryKey"`
	CountID           *int             `gorm:"column:count_id;index"`
	Email             string           `gorm:"column:email;index"`
	DBA               string           `gorm:"column:dba"`
	Zip               string           `gorm:"column:zip"`
	Status            int              `gorm:"column:status"`
	ActivateDate      *time.Time       `gorm:"column:activate_date"`
	MonthlyFee        *decimal.Decimal `gorm:"column:monthly_fee;type:decimal(12,2)"`
	SMSBalance        *int             `gorm:"column:sms_balance"`
	Note              *string          `gorm:"column:note"`
	Package           []byte           `gorm:"column:package_data"`
	Workspace         *string          `gorm:"column:workspace"`
	ComingExpiredDate *time.Time       `gorm:"column:coming_expired_date"`
	FetchedAt         time.Time        `gorm:"column:fetched_at"`
}

// TableName overrides the table name.
func (SnapshotRecord) TableName() string {
	return "external_license_records"
}

// ToRecord converts the persisted row back to the wire shape.
func (s SnapshotRecord) ToRecord() Record {
	return Record{
		AppID:             s.AppID,
		CountID:           s.CountID,
		Email:             s.Email,
		DBA:               s.DBA,
		Zip:               s.Zip,
		Status:            s.Status,
		ActivateDate:      s.ActivateDate,
		MonthlyFee:        s.MonthlyFee,
		SMSBalance:        s.SMSBalance,
		Note:              s.Note,
		Package:           json.RawMessage(s.Package),
		Workspace:         s.Workspace,
		ComingExpiredDate: s.ComingExpiredDate,
	}
}

func fromRecord(r Record, fetchedAt time.Time) SnapshotRecord {
	return SnapshotRecord{
		AppID:             r.AppID,
		CountID:           r.CountID,
		Email:             r.Email,
		DBA:               r.DBA,
		Zip:               r.Zip,
		Status:            r.Status,
		ActivateDate:      r.ActivateDate,
		MonthlyFee:        r.MonthlyFee,
		SMSBalance:        r.SMSBalance,
		Note:              r.Note,
		Package:           []byte(r.Package),
		Workspace:         r.Workspace,
		ComingExpiredDate: r.ComingExpiredDate,
		FetchedAt:         fetchedAt,
	}
}

// Repository is the external license snapshot store.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a snapshot store.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// BulkUpsert writes the fetched records, inserting new app IDs and
// replacing existing rows.
func (r *Repository) BulkUpsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]SnapshotRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, fromRecord(rec, now))
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "app_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, 500).Error
}

// FindByAppID returns the snapshot record for an app ID, or nil if absent.
func (r *Repository) FindByAppID(ctx context.Context, appID string) (*Record, error) {
	return r.findOne(ctx, "app_id = ?", appID)
}

// FindByEmail returns the first snapshot record with the given email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Record, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByCountID returns the snapshot record for a count ID, or nil.
func (r *Repository) FindByCountID(ctx context.Context, countID int) (*Record, error) {
	return r.findOne(ctx, "count_id = ?", countID)
}

// ListAll returns the whole snapshot ordered by app ID.
func (r *Repository) ListAll(ctx context.Context) ([]Record, error) {
	var rows []SnapshotRecord
	if err := r.db.WithContext(ctx).Order("app_id").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToRecord())
	}
	return records, nil
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*Record, error) {
	var row SnapshotRecord
	err := r.db.WithContext(ctx).Where(query, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := row.ToRecord()
	return &rec, nil
}
