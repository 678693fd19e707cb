/*
state.go - In-memory server state for the reference settlement server

PURPOSE:
  Holds the projects, timelog entries, monthly close flags and stored
  monthly figures the reference server operates on. Everything lives in
  memory behind one mutex: the server exists to exercise the client
  workflow end to end, not to be the accounting system of record.

SEE ALSO:
  - handlers.go: Mutates this state under the handler lock
*/
package api

import (
	"time"

	"github.com/moonlake/settlement-engine/timelog"
)

// Project is a registered production the server settles against.
type Project struct {
	ID string

	// Finished marks the project's settlement as closed. Timelog
	// entries against a finished project surface as exceptions when a
	// month closes.
	Finished bool
}

// monthFigures is the stored revenue and purchase-cost rows for one
// project month.
type monthFigures struct {
	payments  []MonthlyPaymentDTO
	purchases []MonthlyPurchaseCostDTO
}

type figuresKey struct {
	Project string
	Month   timelog.MonthKey
}

// State is the reference server's whole world.
type State struct {
	Projects map[string]Project
	Timelogs []timelog.Entry

	// ClosedMonths records which months have been settled.
	ClosedMonths map[timelog.MonthKey]bool

	figures map[figuresKey]*monthFigures

	// Now is substituted in tests.
	Now func() time.Time
}

// NewState returns an empty world with the real clock.
func NewState() *State {
	return &State{
		Projects:     make(map[string]Project),
		ClosedMonths: make(map[timelog.MonthKey]bool),
		figures:      make(map[figuresKey]*monthFigures),
		Now:          time.Now,
	}
}

// AddProject registers a project.
func (s *State) AddProject(id string, finished bool) {
	s.Projects[id] = Project{ID: id, Finished: finished}
}

// AddTimelog appends an entry.
func (s *State) AddTimelog(e timelog.Entry) {
	s.Timelogs = append(s.Timelogs, e)
}

func (s *State) figuresFor(project string, month timelog.MonthKey) *monthFigures {
	k := figuresKey{Project: project, Month: month}
	f, ok := s.figures[k]
	if !ok {
		f = &monthFigures{}
		s.figures[k] = f
	}
	return f
}
