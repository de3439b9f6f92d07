package booking_models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/joy095/property-booking/utils/validation"
)

// Date is a calendar day in UTC, encoded as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate truncates t to its UTC calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the wire formats accepted by validation.ParseDate.
func ParseDate(s string) (Date, error) {
	t, err := validation.ParseDate(s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Format(validation.DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive interval of calendar days.
type DateRange struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// NewDateRange parses both ends and requires start <= end.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("start date: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("end date: %w", err)
	}
	if e.Before(s.Time) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", e, s)
	}
	return DateRange{Start: s, End: e}, nil
}

// Overlaps is the inclusive intersection test: two ranges that share a
// single boundary day overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End.Time) && !r.End.Before(o.Start.Time)
}

// Nights is ceil((end-start) / 1 day).
func (r DateRange) Nights() int64 {
	d := r.End.Sub(r.Start.Time)
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Hours() / 24))
}

// BillableDays is Nights with a floor of one, so a same-day booking is
// charged for a single day.
func (r DateRange) BillableDays() int64 {
	if n := r.Nights(); n > 0 {
		return n
	}
	return 1
}

func (r DateRange) String() string {
	return r.Start.String() + "–" + r.End.String()
}
