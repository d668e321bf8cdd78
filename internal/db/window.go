package db

import "fmt"

// WindowUnit is the unit of a rolling extraction window.
type WindowUnit string

const (
	UnitHours  WindowUnit = "hours"
	UnitWeeks  WindowUnit = "weeks"
	UnitMonths WindowUnit = "months"
)

// Window selects records created within [now - amount*unit, now].
type Window struct {
	Unit   WindowUnit
	Amount int
}

// Hours returns a window of n hours.
func Hours(n int) Window { return Window{Unit: UnitHours, Amount: n} }

// Weeks returns a window of n weeks.
func Weeks(n int) Window { return Window{Unit: UnitWeeks, Amount: n} }

// Months returns a window of n months.
func Months(n int) Window { return Window{Unit: UnitMonths, Amount: n} }

// Validate checks the window unit and amount. The unit is interpolated into
// SQL, so anything outside the closed set is rejected here.
func (w Window) Validate() error {
	switch w.Unit {
	case UnitHours, UnitWeeks, UnitMonths:
	default:
		return fmt.Errorf("invalid window unit %q", w.Unit)
	}
	if w.Amount <= 0 {
		return fmt.Errorf("invalid window amount %d", w.Amount)
	}
	return nil
}

// interval renders the window as a make_interval() expression.
// make_interval has no weeks parameter, so weeks become days.
func (w Window) interval() string {
	unit := string(w.Unit)
	amount := w.Amount
	if w.Unit == UnitWeeks {
		unit = "days"
		amount = w.Amount * 7
	}
	return fmt.Sprintf("make_interval(%s => %d)", unit, amount)
}
