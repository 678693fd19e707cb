/*
Package timelog holds the timelog wire types shared by the gateway, the
settlement state machine and the reconciliation view.

An Entry is one unit of logged work. Durations are minutes everywhere
inside the system; they only become hours at display time (money.Hours).
The JSON field names match the accounting API's payloads.
*/
package timelog

import (
	"fmt"
	"time"
)

// ProjectUnassigned is the sentinel project identifier for work that was
// logged without a project.
const ProjectUnassigned = "unassigned"

// Entry is one unit of logged work. The client never mutates an entry
// beyond tagging its disposition during reconciliation.
type Entry struct {
	UserID          string `json:"userid"`
	Project         string `json:"project"`
	DurationMinutes int64  `json:"duration"`
	Year            int    `json:"year"`
	Month           int    `json:"month"`
}

// ProjectLabel returns the project identifier, substituting the
// unassigned sentinel for an empty one.
func (e Entry) ProjectLabel() string {
	if e.Project == "" {
		return ProjectUnassigned
	}
	return e.Project
}

// Logged returns the calendar month the entry was logged in.
func (e Entry) Logged() MonthKey {
	return MonthKey{Year: e.Year, Month: time.Month(e.Month)}
}

// =============================================================================
// MONTH KEY
// =============================================================================

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

func (m MonthKey) Next() MonthKey {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return MonthOf(t)
}

func (m MonthKey) Prev() MonthKey {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return MonthOf(t)
}

func (m MonthKey) Before(o MonthKey) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Month < o.Month)
}

func (m MonthKey) After(o MonthKey) bool { return o.Before(m) }

// Contains reports whether t falls inside the month.
func (m MonthKey) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// String renders the "2006-01" form used in API query parameters and
// monthly field identifiers.
func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// ParseMonthKey parses the "2006-01" form.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}
