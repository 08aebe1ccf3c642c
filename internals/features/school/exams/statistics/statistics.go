// file: internals/features/school/exams/statistics/statistics.go
package statistics

import (
	"schooldesk_backend/internals/features/school/exams/aggregation"

	"github.com/google/uuid"
)

/* ============================================
   INPUT
============================================ */

type SubjectScore struct {
	Key      string
	Name     string
	Obtained *float64 // nil: absent, not configured or no mark
}

// Entry is one student's figures for a single scope (one slot or overall).
type Entry struct {
	StudentID  uuid.UUID
	Name       string
	RollNumber int
	Percentage *float64
	Attempted  bool
	Subjects   []SubjectScore
}

// EntryFromAggregate projects an aggregate onto a scope. slot == nil means
// the overall total.
func EntryFromAggregate(studentID uuid.UUID, name string, roll int, agg aggregation.StudentAggregate, slot *aggregation.Slot) Entry {
	pct, attempted := agg.ScopePercentage(slot)
	e := Entry{
		StudentID:  studentID,
		Name:       name,
		RollNumber: roll,
		Percentage: pct,
		Attempted:  attempted,
		Subjects:   make([]SubjectScore, 0, len(agg.Subjects)),
	}
	for _, s := range agg.Subjects {
		e.Subjects = append(e.Subjects, SubjectScore{Key: s.Key, Name: s.Name, Obtained: s.ScopeObtained(slot)})
	}
	return e
}

/* ============================================
   OUTPUT
============================================ */

type Topper struct {
	StudentID  uuid.UUID `json:"student_id"`
	Name       string    `json:"name"`
	RollNumber int       `json:"roll_number"`
	Percentage float64   `json:"percentage"`
}

type SubjectExtremes struct {
	Key     string            `json:"key"`
	Name    string            `json:"name"`
	Highest aggregation.Value `json:"highest"`
	Lowest  aggregation.Value `json:"lowest"`
	Entries int               `json:"entries"`
}

type ClassStatistics struct {
	Students     int               `json:"students"`
	Attempted    int               `json:"attempted"`
	ClassAverage *float64          `json:"class_average"`
	Topper       *Topper           `json:"topper"`
	Subjects     []SubjectExtremes `json:"subjects"`
}

/* ============================================
   COMPUTE
============================================ */

// Compute derives class-level figures. Students who attempted nothing are
// left out of the average and cannot be topper. Ties for topper go to the
// first entry encountered.
func Compute(entries []Entry) ClassStatistics {
	out := ClassStatistics{Students: len(entries)}

	var sum float64
	for _, e := range entries {
		if !e.Attempted || e.Percentage == nil {
			continue
		}
		out.Attempted++
		sum += *e.Percentage
		if out.Topper == nil || *e.Percentage > out.Topper.Percentage {
			out.Topper = &Topper{
				StudentID:  e.StudentID,
				Name:       e.Name,
				RollNumber: e.RollNumber,
				Percentage: *e.Percentage,
			}
		}
	}
	if out.Attempted > 0 {
		avg := sum / float64(out.Attempted)
		out.ClassAverage = &avg
	}

	out.Subjects = subjectExtremes(entries)
	return out
}

func subjectExtremes(entries []Entry) []SubjectExtremes {
	var out []SubjectExtremes
	idx := map[string]int{}
	for _, e := range entries {
		for _, s := range e.Subjects {
			i, ok := idx[s.Key]
			if !ok {
				i = len(out)
				idx[s.Key] = i
				out = append(out, SubjectExtremes{
					Key:     s.Key,
					Name:    s.Name,
					Highest: aggregation.NoData(),
					Lowest:  aggregation.NoData(),
				})
			}
			if s.Obtained == nil {
				continue
			}
			v := *s.Obtained
			x := &out[i]
			if !x.Highest.IsNumber() || v > x.Highest.Number {
				x.Highest = aggregation.Num(v)
			}
			if !x.Lowest.IsNumber() || v < x.Lowest.Number {
				x.Lowest = aggregation.Num(v)
			}
			x.Entries++
		}
	}
	return out
}
