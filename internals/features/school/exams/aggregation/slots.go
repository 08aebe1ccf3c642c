// file: internals/features/school/exams/aggregation/slots.go
package aggregation

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Slot is one of the four canonical assessment periods on the marksheet.
type Slot string

const (
	SlotUnitTest Slot = "unit_test"
	SlotTerm1    Slot = "term_1"
	SlotTerm2    Slot = "term_2"
	SlotAnnual   Slot = "annual"
)

// Slots is the fixed column order of every report.
var Slots = []Slot{SlotUnitTest, SlotTerm1, SlotTerm2, SlotAnnual}

func (s Slot) Valid() bool {
	for _, it := range Slots {
		if it == s {
			return true
		}
	}
	return false
}

func (s Slot) Label() string {
	switch s {
	case SlotUnitTest:
		return "Unit Test"
	case SlotTerm1:
		return "Term 1"
	case SlotTerm2:
		return "Term 2"
	case SlotAnnual:
		return "Annual"
	}
	return string(s)
}

// Keyword fallback used only when an exam type has no explicit slot.
var slotKeywords = map[Slot][]string{
	SlotUnitTest: {"unit"},
	SlotTerm1:    {"i-term", "first term"},
	SlotTerm2:    {"ii-term", "half yearly", "second term"},
	SlotAnnual:   {"annual", "final"},
}

type ExamTypeRef struct {
	ID           uuid.UUID
	Name         string
	Slot         Slot // explicit mapping, may be empty
	Aliases      []string
	DisplayOrder int
}

// SlotResolver maps exam types onto the canonical slots.
type SlotResolver struct {
	types  []ExamTypeRef
	bySlot map[Slot]uuid.UUID
}

// NewSlotResolver resolves each slot to an exam type: an explicit slot
// column wins, otherwise the first exam type in display order whose name
// (or alias) contains one of the slot keywords. When two types match the
// same keyword the earlier one is taken; nothing stricter is attempted.
func NewSlotResolver(types []ExamTypeRef) *SlotResolver {
	sorted := append([]ExamTypeRef(nil), types...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DisplayOrder < sorted[j].DisplayOrder })

	r := &SlotResolver{types: sorted, bySlot: make(map[Slot]uuid.UUID, len(Slots))}
	for _, slot := range Slots {
		for _, t := range sorted {
			if t.Slot == slot {
				r.bySlot[slot] = t.ID
				break
			}
		}
		if _, ok := r.bySlot[slot]; ok {
			continue
		}
		for _, kw := range slotKeywords[slot] {
			if t, ok := r.MatchKeyword(kw); ok && t.Slot == "" {
				r.bySlot[slot] = t.ID
				break
			}
		}
	}
	return r
}

// MatchKeyword returns the first exam type (display order) whose name or
// alias contains keyword, case-insensitive.
func (r *SlotResolver) MatchKeyword(keyword string) (ExamTypeRef, bool) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return ExamTypeRef{}, false
	}
	for _, t := range r.types {
		if strings.Contains(strings.ToLower(t.Name), kw) {
			return t, true
		}
		for _, a := range t.Aliases {
			if strings.Contains(strings.ToLower(a), kw) {
				return t, true
			}
		}
	}
	return ExamTypeRef{}, false
}

func (r *SlotResolver) ExamTypeFor(slot Slot) (uuid.UUID, bool) {
	id, ok := r.bySlot[slot]
	return id, ok
}

// SlotOf returns the first slot mapped to the exam type.
func (r *SlotResolver) SlotOf(examTypeID uuid.UUID) (Slot, bool) {
	for _, slot := range Slots {
		if id, ok := r.bySlot[slot]; ok && id == examTypeID {
			return slot, true
		}
	}
	return "", false
}
