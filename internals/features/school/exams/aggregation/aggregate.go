// file: internals/features/school/exams/aggregation/aggregate.go
package aggregation

import (
	"strings"

	"schooldesk_backend/internals/features/school/exams/grading"

	"github.com/google/uuid"
)

/* ============================================
   INPUT
============================================ */

// Component is one exam configuration (subject x exam type x year).
type Component struct {
	ConfigID   uuid.UUID
	SubjectID  uuid.UUID
	ExamTypeID uuid.UUID
	MaxMarks   float64
}

// SubjectGroup is one report row. Several subjects (e.g. "Science Theory"
// and "Science Internal") may share a group.
type SubjectGroup struct {
	Key        string
	Name       string
	Components []Component
}

type Mark struct {
	MarksObtained *float64
	IsAbsent      bool
}

type SubjectRef struct {
	ID        uuid.UUID
	Name      string
	GroupName string
}

type ConfigRef struct {
	ID         uuid.UUID
	SubjectID  uuid.UUID
	ExamTypeID uuid.UUID
	MaxMarks   float64
}

var groupSuffixes = []string{" internal", " theory"}

// DefaultGroupName derives a group name for a new subject by dropping a
// trailing " Internal" or " Theory". It is applied once when the subject is
// created; afterwards the stored group name is authoritative.
func DefaultGroupName(subjectName string) string {
	name := strings.TrimSpace(subjectName)
	lower := strings.ToLower(name)
	for _, suf := range groupSuffixes {
		if strings.HasSuffix(lower, suf) && len(name) > len(suf) {
			return strings.TrimSpace(name[:len(name)-len(suf)])
		}
	}
	return name
}

// GroupKey is the case-insensitive grouping key for a group name.
func GroupKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// GroupSubjects builds report rows in first-seen subject order. A subject
// without a group name forms its own group.
func GroupSubjects(subjects []SubjectRef, configs []ConfigRef) []SubjectGroup {
	bySubject := make(map[uuid.UUID][]ConfigRef, len(subjects))
	for _, c := range configs {
		bySubject[c.SubjectID] = append(bySubject[c.SubjectID], c)
	}

	out := make([]SubjectGroup, 0, len(subjects))
	idx := make(map[string]int, len(subjects))
	for _, s := range subjects {
		name := strings.TrimSpace(s.GroupName)
		if name == "" {
			name = strings.TrimSpace(s.Name)
		}
		key := GroupKey(name)
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, SubjectGroup{Key: key, Name: name})
		}
		for _, c := range bySubject[s.ID] {
			out[i].Components = append(out[i].Components, Component{
				ConfigID:   c.ID,
				SubjectID:  c.SubjectID,
				ExamTypeID: c.ExamTypeID,
				MaxMarks:   c.MaxMarks,
			})
		}
	}
	return out
}

/* ============================================
   OUTPUT
============================================ */

type SlotCell struct {
	Max      Value `json:"max"`
	Obtained Value `json:"obtained"`
	// Attempted is true when at least one non-absent numeric mark exists.
	Attempted bool `json:"-"`
}

type SubjectRow struct {
	Key           string            `json:"key"`
	Name          string            `json:"name"`
	Cells         map[Slot]SlotCell `json:"cells"`
	TotalMax      float64           `json:"total_max"`
	TotalObtained float64           `json:"total_obtained"`
	Percentage    *float64          `json:"percentage"`
	Grade         string            `json:"grade"`
	Attempted     bool              `json:"-"`
}

type SlotTotal struct {
	Max        float64  `json:"max"`
	Obtained   float64  `json:"obtained"`
	Percentage *float64 `json:"percentage"`
	Attempted  bool     `json:"-"`
}

type GrandTotal struct {
	Slots         map[Slot]SlotTotal `json:"slots"`
	TotalMax      float64            `json:"total_max"`
	TotalObtained float64            `json:"total_obtained"`
	Percentage    *float64           `json:"percentage"`
	Grade         string             `json:"grade"`
	Division      string             `json:"division"`
}

type StudentAggregate struct {
	Subjects  []SubjectRow `json:"subjects"`
	Grand     GrandTotal   `json:"grand_total"`
	Attempted bool         `json:"attempted"`
}

/* ============================================
   AGGREGATE
============================================ */

// Aggregate folds one student's marks into the four-slot report layout.
// It never fails: missing configuration yields NA, all-absent yields AB.
func Aggregate(groups []SubjectGroup, resolver *SlotResolver, marks map[uuid.UUID]Mark) StudentAggregate {
	out := StudentAggregate{
		Subjects: make([]SubjectRow, 0, len(groups)),
		Grand:    GrandTotal{Slots: make(map[Slot]SlotTotal, len(Slots))},
	}

	for _, g := range groups {
		row := SubjectRow{Key: g.Key, Name: g.Name, Cells: make(map[Slot]SlotCell, len(Slots))}
		for _, slot := range Slots {
			cell := aggregateCell(g.Components, resolver, slot, marks)
			row.Cells[slot] = cell
			row.TotalMax += cell.Max.OrZero()
			row.TotalObtained += cell.Obtained.OrZero()
			if cell.Attempted {
				row.Attempted = true
			}

			st := out.Grand.Slots[slot]
			st.Max += cell.Max.OrZero()
			st.Obtained += cell.Obtained.OrZero()
			st.Attempted = st.Attempted || cell.Attempted
			out.Grand.Slots[slot] = st
		}
		row.Percentage = grading.Percentage(row.TotalObtained, row.TotalMax)
		row.Grade = grading.PercentageToGrade(row.Percentage)
		out.Attempted = out.Attempted || row.Attempted
		out.Subjects = append(out.Subjects, row)
	}

	for _, slot := range Slots {
		st := out.Grand.Slots[slot]
		st.Percentage = grading.Percentage(st.Obtained, st.Max)
		out.Grand.Slots[slot] = st
		out.Grand.TotalMax += st.Max
		out.Grand.TotalObtained += st.Obtained
	}
	out.Grand.Percentage = grading.Percentage(out.Grand.TotalObtained, out.Grand.TotalMax)
	out.Grand.Grade = grading.PercentageToGrade(out.Grand.Percentage)
	out.Grand.Division = grading.PercentageToDivision(out.Grand.Percentage)
	return out
}

func aggregateCell(components []Component, resolver *SlotResolver, slot Slot, marks map[uuid.UUID]Mark) SlotCell {
	examTypeID, ok := resolver.ExamTypeFor(slot)
	if !ok {
		return SlotCell{Max: NotApplicable(), Obtained: NotApplicable()}
	}

	var (
		configured bool
		max        float64
		obtained   float64
		rows       int
		absentRows int
		attempted  bool
	)
	for _, c := range components {
		if c.ExamTypeID != examTypeID {
			continue
		}
		configured = true
		max += c.MaxMarks

		m, ok := marks[c.ConfigID]
		if !ok {
			continue
		}
		rows++
		switch {
		case m.IsAbsent:
			absentRows++
		case m.MarksObtained != nil:
			obtained += *m.MarksObtained
			attempted = true
		}
	}

	if !configured {
		return SlotCell{Max: NotApplicable(), Obtained: NotApplicable()}
	}
	if rows > 0 && absentRows == rows {
		return SlotCell{Max: Num(max), Obtained: Absent()}
	}
	return SlotCell{Max: Num(max), Obtained: Num(obtained), Attempted: attempted}
}

// ScopePercentage returns the percentage for one slot, or the overall
// percentage when slot is nil, plus whether the student attempted that scope.
func (a StudentAggregate) ScopePercentage(slot *Slot) (*float64, bool) {
	if slot == nil {
		return a.Grand.Percentage, a.Attempted
	}
	st, ok := a.Grand.Slots[*slot]
	if !ok {
		return nil, false
	}
	return st.Percentage, st.Attempted
}

// ScopeObtained returns a subject's obtained marks for the scope, or nil
// when the student has no numeric mark there.
func (r SubjectRow) ScopeObtained(slot *Slot) *float64 {
	if slot == nil {
		if !r.Attempted {
			return nil
		}
		v := r.TotalObtained
		return &v
	}
	cell, ok := r.Cells[*slot]
	if !ok || !cell.Attempted {
		return nil
	}
	v := cell.Obtained.Number
	return &v
}
