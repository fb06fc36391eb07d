package timesheet

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Day is a weekday in Monday-first order.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Days lists the week in display order.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayKeys = [...]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

func (d Day) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayKeys[d]
}

// ParseDay accepts the short keys used on the wire ("mon".."sun") and full English names.
func ParseDay(s string) (Day, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if len(key) >= 3 {
		key = key[:3]
	}
	for i, k := range dayKeys {
		if k == key {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

// EntryType is the category a row of hours is booked against.
type EntryType string

const (
	TypeProject EntryType = "project"
	TypeLeave   EntryType = "leave"
	TypeHoliday EntryType = "holiday"
)

// ParseEntryType maps input strings onto the three categories.
// "sick" and "vacation" are legacy spellings of leave.
func ParseEntryType(s string) (EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "project":
		return TypeProject, nil
	case "leave", "sick", "sick leave", "vacation":
		return TypeLeave, nil
	case "holiday":
		return TypeHoliday, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEntryType, s)
}

func (t EntryType) Valid() bool {
	return t == TypeProject || t == TypeLeave || t == TypeHoliday
}

type Status string

const (
	StatusNotSubmitted Status = "not-submitted"
	StatusSubmitted    Status = "submitted"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotSubmitted, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// WeekHours holds one hour value per weekday. The zero value means no hours.
type WeekHours struct {
	Mon float64 `json:"mon"`
	Tue float64 `json:"tue"`
	Wed float64 `json:"wed"`
	Thu float64 `json:"thu"`
	Fri float64 `json:"fri"`
	Sat float64 `json:"sat"`
	Sun float64 `json:"sun"`
}

// DailyTotal is the per-day sum across all entries of a timesheet.
type DailyTotal = WeekHours

func (w WeekHours) Get(d Day) float64 {
	switch d {
	case Monday:
		return w.Mon
	case Tuesday:
		return w.Tue
	case Wednesday:
		return w.Wed
	case Thursday:
		return w.Thu
	case Friday:
		return w.Fri
	case Saturday:
		return w.Sat
	case Sunday:
		return w.Sun
	}
	return 0
}

func (w *WeekHours) Set(d Day, hours float64) {
	switch d {
	case Monday:
		w.Mon = hours
	case Tuesday:
		w.Tue = hours
	case Wednesday:
		w.Wed = hours
	case Thursday:
		w.Thu = hours
	case Friday:
		w.Fri = hours
	case Saturday:
		w.Sat = hours
	case Sunday:
		w.Sun = hours
	}
}

// TimeEntry is one category row within a timesheet.
type TimeEntry struct {
	Type    EntryType `json:"type"`
	Name    string    `json:"name"`
	Hours   WeekHours `json:"hours"`
	Comment string    `json:"comment,omitempty"`
}

// Entries is stored as a JSONB column.
type Entries []TimeEntry

// Value implements driver.Valuer for database storage
func (e Entries) Value() (driver.Value, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner for database retrieval
func (e *Entries) Scan(value interface{}) error {
	if value == nil {
		*e = Entries{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Entries", value)
	}
	return json.Unmarshal(raw, e)
}

type Timesheet struct {
	ID            int64
	EmployeeID    string
	EmployeeName  string
	WeekStart     time.Time
	WeekEnd       time.Time
	Status        Status
	TotalHours    float64
	SubmittedDate *time.Time
	Entries       Entries
	Comments      string
	AdminComments string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Editable reports whether the owner may still change entries and comments.
func (t Timesheet) Editable() bool {
	return t.Status == StatusNotSubmitted
}

// Persisted reports whether the timesheet has been stored at least once.
func (t Timesheet) Persisted() bool {
	return t.ID > 0
}

// Clone returns a deep copy so callers can mutate entries without sharing backing arrays.
func (t Timesheet) Clone() Timesheet {
	c := t
	if t.Entries != nil {
		c.Entries = make(Entries, len(t.Entries))
		copy(c.Entries, t.Entries)
	}
	if t.SubmittedDate != nil {
		sd := *t.SubmittedDate
		c.SubmittedDate = &sd
	}
	return c
}

// DefaultEntries are the zero-hour rows a fresh week starts with.
func DefaultEntries() Entries {
	return Entries{
		{Type: TypeProject, Name: "Project"},
		{Type: TypeHoliday, Name: "Holiday"},
		{Type: TypeLeave, Name: "Sick Leave"},
	}
}

// NewTimesheet builds the unsaved timesheet for owner and the week containing weekStart.
func NewTimesheet(owner Actor, weekStart time.Time) Timesheet {
	start := StartOfWeek(weekStart)
	return Timesheet{
		EmployeeID:   owner.EmployeeID,
		EmployeeName: owner.EmployeeName,
		WeekStart:    start,
		WeekEnd:      EndOfWeek(start),
		Status:       StatusNotSubmitted,
		Entries:      DefaultEntries(),
	}
}

// Actor is the authenticated caller acting on timesheets.
type Actor struct {
	EmployeeID   string
	EmployeeName string
	Email        string
	Admin        bool
}

// Owns matches on employee id when both sides carry one, otherwise on name.
func (a Actor) Owns(t Timesheet) bool {
	if a.EmployeeID != "" && t.EmployeeID != "" {
		return a.EmployeeID == t.EmployeeID
	}
	return a.EmployeeName != "" && strings.EqualFold(a.EmployeeName, t.EmployeeName)
}
