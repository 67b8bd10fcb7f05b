package extlicense

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"license-reconciler/core/utils"

	"github.com/shopspring/decimal"
)

// Record is one license-holder record as served by the external API.
// Optional fields are pointers: absent means "do not touch the internal
// value" during merging, which is different from a present zero.
type Record struct {
	AppID             string           `json:"appId"`
	CountID           *int             `json:"countId,omitempty"`
	Email             string           `json:"email"`
	DBA               string           `json:"dba"`
	Zip               string           `json:"zip"`
	Status            int              `json:"status"` // 0 or 1
	ActivateDate      *time.Time       `json:"activateDate,omitempty"`
	MonthlyFee        *decimal.Decimal `json:"monthlyFee,omitempty"`
	SMSBalance        *int             `json:"smsBalance,omitempty"`
	Note              *string          `json:"note,omitempty"`
	Package           json.RawMessage  `json:"package,omitempty"` // opaque, never interpreted
	Workspace         *string          `json:"workspace,omitempty"`
	ComingExpiredDate *time.Time       `json:"comingExpiredDate,omitempty"`
}

// UnmarshalJSON tolerates the API's loose typing: identifiers and counters
// arrive as numbers or numeric strings depending on the record's vintage,
// and dates as either date-only or RFC3339 strings.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		AppID             any             `json:"appId"`
		CountID           any             `json:"countId"`
		Email             string          `json:"email"`
		DBA               string          `json:"dba"`
		Zip               any             `json:"zip"`
		Status            any             `json:"status"`
		ActivateDate      string          `json:"activateDate"`
		MonthlyFee        any             `json:"monthlyFee"`
		SMSBalance        any             `json:"smsBalance"`
		Note              *string         `json:"note"`
		Package           json.RawMessage `json:"package"`
		Workspace         *string         `json:"workspace"`
		ComingExpiredDate string          `json:"comingExpiredDate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.AppID != nil {
		r.AppID = utils.ToString(raw.AppID)
	}
	if raw.CountID != nil {
		id := utils.ToInt(raw.CountID)
		r.CountID = &id
	}
	r.Email = strings.TrimSpace(raw.Email)
	r.DBA = strings.TrimSpace(raw.DBA)
	if raw.Zip != nil {
		r.Zip = utils.ToString(raw.Zip)
	}
	if raw.Status != nil {
		r.Status = utils.ToInt(raw.Status)
	}
	r.ActivateDate = parseDate(raw.ActivateDate)
	if raw.MonthlyFee != nil {
		// Money as a string stays exact; a float round-trip would not.
		var fee decimal.Decimal
		switch v := raw.MonthlyFee.(type) {
		case string:
			parsed, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("parsing monthlyFee %q: %w", v, err)
			}
			fee = parsed
		default:
			fee = decimal.NewFromFloat(utils.ToFloat(v))
		}
		r.MonthlyFee = &fee
	}
	if raw.SMSBalance != nil {
		bal := utils.ToInt(raw.SMSBalance)
		r.SMSBalance = &bal
	}
	r.Note = raw.Note
	r.Package = raw.Package
	r.Workspace = raw.Workspace
	r.ComingExpiredDate = parseDate(raw.ComingExpiredDate)

	return nil
}

// Validate returns a reason string when the record is unusable, empty otherwise.
func (r Record) Validate() string {
	if r.AppID == "" {
		return "missing appId"
	}
	if r.Email == "" && r.DBA == "" {
		return "neither email nor dba present"
	}
	if r.Status != 0 && r.Status != 1 {
		return "status out of range"
	}
	return ""
}

// Active reports whether the external system considers the license live.
func (r Record) Active() bool {
	return r.Status == 1
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
