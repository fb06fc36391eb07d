package timesheet

import (
	"fmt"
	"math"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/validator"
)

const (
	FullDay      = 8.0
	HalfDay      = 4.0
	MaxDayHours  = 24.0
	ProjectStep  = 0.5
	hoursEpsilon = 1e-9
)

// Owner is the category that owns a calendar day.
type Owner int

const (
	OwnerOpen Owner = iota
	OwnerHoliday
	OwnerLeave
)

func (o Owner) String() string {
	switch o {
	case OwnerHoliday:
		return "holiday"
	case OwnerLeave:
		return "leave"
	}
	return "open"
}

// precedence lists, per owner, the entry types that cannot be edited on that day.
// The owning type itself stays editable so the owner can be removed again.
var precedence = map[Owner]map[EntryType]bool{
	OwnerOpen:    {},
	OwnerHoliday: {TypeProject: true, TypeLeave: true},
	OwnerLeave:   {TypeProject: true, TypeHoliday: true},
}

// DaySlot is the resolved ownership of one day.
type DaySlot struct {
	Day   Day
	Owner Owner
}

// Blocks reports whether entries of type t are disabled on this day.
func (s DaySlot) Blocks(t EntryType) bool {
	return precedence[s.Owner][t]
}

// ResolveDay decides which category owns day d. A full-day holiday wins over a
// full-day leave; half-day leave never claims the day.
func ResolveDay(entries []TimeEntry, d Day) DaySlot {
	var holiday, leave float64
	for _, e := range entries {
		switch e.Type {
		case TypeHoliday:
			holiday += hours(e.Hours.Get(d))
		case TypeLeave:
			leave += hours(e.Hours.Get(d))
		}
	}

	switch {
	case holiday >= FullDay:
		return DaySlot{Day: d, Owner: OwnerHoliday}
	case leave >= FullDay:
		return DaySlot{Day: d, Owner: OwnerLeave}
	default:
		return DaySlot{Day: d, Owner: OwnerOpen}
	}
}

// ResolveWeek resolves all seven days.
func ResolveWeek(entries []TimeEntry) [7]DaySlot {
	var slots [7]DaySlot
	for _, d := range Days {
		slots[d] = ResolveDay(entries, d)
	}
	return slots
}

// Disabled reports whether an input of type t on day d should be locked.
// Nothing is editable once the timesheet has left not-submitted.
func Disabled(entries []TimeEntry, t EntryType, d Day, editable bool) bool {
	if !editable {
		return true
	}
	return ResolveDay(entries, d).Blocks(t)
}

// DayFlags is a per-day boolean row.
type DayFlags struct {
	Mon bool `json:"mon"`
	Tue bool `json:"tue"`
	Wed bool `json:"wed"`
	Thu bool `json:"thu"`
	Fri bool `json:"fri"`
	Sat bool `json:"sat"`
	Sun bool `json:"sun"`
}

func (f DayFlags) Get(d Day) bool {
	switch d {
	case Monday:
		return f.Mon
	case Tuesday:
		return f.Tue
	case Wednesday:
		return f.Wed
	case Thursday:
		return f.Thu
	case Friday:
		return f.Fri
	case Saturday:
		return f.Sat
	case Sunday:
		return f.Sun
	}
	return false
}

func (f *DayFlags) set(d Day, v bool) {
	switch d {
	case Monday:
		f.Mon = v
	case Tuesday:
		f.Tue = v
	case Wednesday:
		f.Wed = v
	case Thursday:
		f.Thu = v
	case Friday:
		f.Fri = v
	case Saturday:
		f.Sat = v
	case Sunday:
		f.Sun = v
	}
}

// Grid returns the disabled matrix for every row of t, in entry order.
func Grid(t Timesheet) []DayFlags {
	slots := ResolveWeek(t.Entries)
	editable := t.Editable()

	grid := make([]DayFlags, len(t.Entries))
	for i, e := range t.Entries {
		for _, d := range Days {
			grid[i].set(d, !editable || slots[d].Blocks(e.Type))
		}
	}
	return grid
}

// LeaveChoice is the enumerated input for leave rows.
type LeaveChoice float64

const (
	LeaveNone    LeaveChoice = 0
	LeaveHalfDay LeaveChoice = HalfDay
	LeaveFullDay LeaveChoice = FullDay
)

func sameHours(a, b float64) bool {
	return math.Abs(a-b) < hoursEpsilon
}

// ValidHours reports whether h is an allowed input for a row of type t.
func ValidHours(t EntryType, h float64) bool {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return false
	}
	switch t {
	case TypeLeave:
		return sameHours(h, float64(LeaveNone)) || sameHours(h, float64(LeaveHalfDay)) || sameHours(h, float64(LeaveFullDay))
	case TypeHoliday:
		return sameHours(h, 0) || sameHours(h, FullDay)
	case TypeProject:
		if h < 0 || h > MaxDayHours {
			return false
		}
		steps := h / ProjectStep
		return sameHours(steps, math.Round(steps))
	}
	return false
}

func allowedHoursMessage(t EntryType) string {
	switch t {
	case TypeLeave:
		return "leave must be 0, 4 or 8 hours"
	case TypeHoliday:
		return "holiday must be 0 or 8 hours"
	default:
		return "project hours must be between 0 and 24 in steps of 0.5"
	}
}

func cellField(row int, d Day) string {
	return fmt.Sprintf("entries[%d].%s", row, d)
}

// SetHours writes a single cell. The write is refused when the timesheet is
// locked, the cell is disabled by the day's owner, or h is outside the row's choice set.
func SetHours(t *Timesheet, row int, d Day, h float64) error {
	if !t.Editable() {
		return ErrNotEditable
	}
	if row < 0 || row >= len(t.Entries) {
		return ErrEntryNotFound
	}
	if d < Monday || d > Sunday {
		return ErrInvalidDay
	}

	entry := t.Entries[row]
	if !ValidHours(entry.Type, h) {
		return validator.ValidationErrors{{
			Field:   cellField(row, d),
			Message: allowedHoursMessage(entry.Type),
		}}
	}
	if h > 0 && ResolveDay(t.Entries, d).Blocks(entry.Type) {
		return validator.ValidationErrors{{
			Field:   cellField(row, d),
			Message: fmt.Sprintf("%s is disabled on %s", entry.Type, d),
		}}
	}

	t.Entries[row].Hours.Set(d, h)
	t.Recalculate()
	return nil
}

// ValidateEntries re-checks every cell before a save or submit.
func ValidateEntries(entries []TimeEntry) error {
	var errs validator.ValidationErrors
	slots := ResolveWeek(entries)

	for i, e := range entries {
		if !e.Type.Valid() {
			errs = append(errs, validator.ValidationError{
				Field:   fmt.Sprintf("entries[%d].type", i),
				Message: "type must be one of project, leave, holiday",
			})
			continue
		}
		if validator.IsEmpty(e.Name) {
			errs = append(errs, validator.ValidationError{
				Field:   fmt.Sprintf("entries[%d].name", i),
				Message: "name is required",
			})
		}
		for _, d := range Days {
			h := e.Hours.Get(d)
			if !ValidHours(e.Type, h) {
				errs = append(errs, validator.ValidationError{
					Field:   cellField(i, d),
					Message: allowedHoursMessage(e.Type),
				})
				continue
			}
			if h > 0 && slots[d].Blocks(e.Type) {
				errs = append(errs, validator.ValidationError{
					Field:   cellField(i, d),
					Message: fmt.Sprintf("%s hours conflict with a full-day %s", e.Type, slots[d].Owner),
				})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
