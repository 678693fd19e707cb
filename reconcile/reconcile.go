/*
Package reconcile builds the decision view for staged exception entries.

PURPOSE:
  After a month-close commit stages timelog entries written against
  already settled projects, someone has to decide where each entry's
  time belongs: kept on its project, or moved to miscellaneous cost.
  This package turns the staged set into the tabular view those
  decisions are made on.

VIEW SHAPE:
  Entries are partitioned into a current-month bucket and a prior-month
  bucket by comparing each entry's logged month against now. Inside a
  bucket, entries group by project in first-encounter order; a group's
  rowspan is its row count, for rendering the project cell once per
  group. Durations render as hours to one decimal.

DISPOSITIONS:
  Every row starts as DispositionProject. Toggle flips a row between a
  disposition and Undecided, so "uncheck" is expressible. The view is
  complete only when no row is Undecided; the settlement machine
  refuses to clear the staged set before that.

SEE ALSO:
  - settle package: stages the set and consumes Undecided()
  - money package: hour formatting
*/
package reconcile

import (
	"fmt"

	"github.com/moonlake/settlement-engine/money"
	"github.com/moonlake/settlement-engine/settle"
	"github.com/moonlake/settlement-engine/timelog"
)

// Disposition says where a row's time goes.
type Disposition int

const (
	// DispositionProject keeps the time on its project. The default.
	DispositionProject Disposition = iota

	// DispositionMiscellaneous moves the time to miscellaneous cost.
	DispositionMiscellaneous

	// DispositionUndecided blocks completion until resolved.
	DispositionUndecided
)

func (d Disposition) String() string {
	switch d {
	case DispositionProject:
		return "project"
	case DispositionMiscellaneous:
		return "miscellaneous"
	case DispositionUndecided:
		return "undecided"
	}
	return fmt.Sprintf("disposition(%d)", int(d))
}

// Row is one staged entry awaiting a decision.
type Row struct {
	Entry       timelog.Entry
	Disposition Disposition
}

// Hours renders the row's duration as hours to one decimal.
func (r *Row) Hours() string { return money.Hours(r.Entry.DurationMinutes) }

// Group is a bucket's run of rows sharing a project.
type Group struct {
	Project string // display label, "unassigned" for blank projects
	Rows    []*Row
}

// Rowspan is the row count, for rendering the project cell once.
func (g Group) Rowspan() int { return len(g.Rows) }

// Bucket is one month partition of the view.
type Bucket struct {
	Groups []Group
}

// Size is the bucket's total entry count.
func (b Bucket) Size() int {
	n := 0
	for _, g := range b.Groups {
		n += len(g.Rows)
	}
	return n
}

// View is the full decision table for one staged set.
type View struct {
	Current Bucket
	Prior   Bucket

	rows []*Row // flat, current bucket first, insertion order within
}

// BuildView partitions the staged set against now and groups each
// partition by project in first-encounter order.
func BuildView(set settle.StagedExceptionSet, now timelog.MonthKey) *View {
	v := &View{}
	var current, prior []timelog.Entry
	for _, e := range set.Entries {
		if e.Logged() == now {
			current = append(current, e)
		} else {
			prior = append(prior, e)
		}
	}
	v.Current = v.bucket(current)
	v.Prior = v.bucket(prior)
	return v
}

// bucket groups entries by project label, appending the rows to the
// view's flat index as it goes.
func (v *View) bucket(entries []timelog.Entry) Bucket {
	var b Bucket
	index := map[string]int{}
	for _, e := range entries {
		r := &Row{Entry: e, Disposition: DispositionProject}
		v.rows = append(v.rows, r)
		label := e.ProjectLabel()
		gi, ok := index[label]
		if !ok {
			gi = len(b.Groups)
			index[label] = gi
			b.Groups = append(b.Groups, Group{Project: label})
		}
		b.Groups[gi].Rows = append(b.Groups[gi].Rows, r)
	}
	return b
}

// Rows returns every row, current bucket first.
func (v *View) Rows() []*Row { return v.rows }

// Len is the total row count.
func (v *View) Len() int { return len(v.rows) }

// SetDisposition decides row i.
func (v *View) SetDisposition(i int, d Disposition) error {
	if i < 0 || i >= len(v.rows) {
		return fmt.Errorf("row %d out of range [0, %d)", i, len(v.rows))
	}
	v.rows[i].Disposition = d
	return nil
}

// Toggle flips row i between d and Undecided: toggling the current
// disposition unchecks it, toggling the other side switches to it.
func (v *View) Toggle(i int, d Disposition) error {
	if i < 0 || i >= len(v.rows) {
		return fmt.Errorf("row %d out of range [0, %d)", i, len(v.rows))
	}
	if v.rows[i].Disposition == d {
		v.rows[i].Disposition = DispositionUndecided
	} else {
		v.rows[i].Disposition = d
	}
	return nil
}

// Undecided counts rows still awaiting a decision.
func (v *View) Undecided() int {
	n := 0
	for _, r := range v.rows {
		if r.Disposition == DispositionUndecided {
			n++
		}
	}
	return n
}

// Complete reports whether every row is decided.
func (v *View) Complete() bool { return v.Undecided() == 0 }
