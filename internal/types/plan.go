package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Date is a calendar day serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, keeping only the day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want %s", s, DateLayout)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TripPlan is the record written once per successful synthesis run.
type TripPlan struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id,omitempty"`
	Destination  string          `json:"destination"`
	Purpose      string          `json:"purpose"`
	PeopleCount  int             `json:"people_count"`
	StartDate    Date            `json:"start_date"`
	EndDate      Date            `json:"end_date"`
	ImageURL     string          `json:"image_url,omitempty"`
	AISuggestion string          `json:"ai_suggestion"`
	AIMinBudget  decimal.Decimal `json:"ai_min_budget"`
	AIMaxBudget  decimal.Decimal `json:"ai_max_budget"`
	CreatedAt    time.Time       `json:"created_at"`
}
