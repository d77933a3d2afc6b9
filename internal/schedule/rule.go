// Package schedule computes due dates of recurring care tasks.
package schedule

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Frequency is the unit a rule advances by.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ErrInvalidRule is returned by Validate.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Rule is stored as JSON in tasks.recurrence_rule.
type Rule struct {
	Frequency Frequency `json:"frequency"`
	Interval  int       `json:"interval"`
}

// Validate checks the frequency and interval.
func (r Rule) Validate() error {
	switch r.Frequency {
	case Daily, Weekly, Monthly:
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, r.Frequency)
	}
	if r.Interval < 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidRule)
	}
	if r.Interval > 366 {
		return fmt.Errorf("%w: interval too large", ErrInvalidRule)
	}
	return nil
}

func (r Rule) step() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// Next returns the occurrence one step after t.
func (r Rule) Next(t time.Time) time.Time { return r.At(t, 1) }

// At returns the n-th occurrence of a series anchored at anchor, n = 0 being the anchor.
// Monthly occurrences are counted from the anchor, so a day clamped in a short month
// is restored in the following ones (Jan 31, Feb 28, Mar 31).
func (r Rule) At(anchor time.Time, n int) time.Time {
	switch r.Frequency {
	case Weekly:
		return anchor.AddDate(0, 0, 7*r.step()*n)
	case Monthly:
		return addMonths(anchor, r.step()*n)
	default:
		return anchor.AddDate(0, 0, r.step()*n)
	}
}

// addMonths advances by n months, clamping the day to the target month's length.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// NextAfter returns the first occurrence of the series anchored at anchor that falls
// strictly after `after`. ok is false when that occurrence is past end (a nil end never cuts off).
func NextAfter(r Rule, anchor, after time.Time, end *time.Time) (next time.Time, ok bool) {
	for n := 1; ; n++ {
		next = r.At(anchor, n)
		if next.After(after) {
			break
		}
	}
	if end != nil && next.After(*end) {
		return time.Time{}, false
	}
	return next, true
}

// Occurrences lists occurrences of the series anchored at anchor that fall in [from, to],
// stopping at end when it is set.
func Occurrences(r Rule, anchor, from, to time.Time, end *time.Time) []time.Time {
	var out []time.Time
	for n := 0; ; n++ {
		t := r.At(anchor, n)
		if t.After(to) || (end != nil && t.After(*end)) {
			break
		}
		if !t.Before(from) {
			out = append(out, t)
		}
	}
	return out
}

// IsZero reports whether the rule is unset.
func (r Rule) IsZero() bool { return r.Frequency == "" }

// GormDataType stores the rule as JSON text.
func (Rule) GormDataType() string { return "text" }

// Value implements driver.Valuer. An unset rule is stored as NULL.
func (r Rule) Value() (driver.Value, error) {
	if r.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *Rule) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = Rule{}
		return nil
	case []byte:
		return r.unmarshal(v)
	case string:
		return r.unmarshal([]byte(v))
	default:
		return fmt.Errorf("unsupported recurrence rule source %T", src)
	}
}

func (r *Rule) unmarshal(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*r = Rule{}
		return nil
	}
	return json.Unmarshal(b, r)
}
