// file: internals/features/school/exams/reconcile/marks.go
package reconcile

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

/* ============================================
   Snapshot types (read from the store by the caller)
============================================ */

type StudentRef struct {
	ID            uuid.UUID
	ScholarNumber string
	Name          string
}

type SubjectRef struct {
	ID   uuid.UUID
	Name string
}

// ConfigRef is an existing exam configuration for the class level, exam
// type and academic year being imported.
type ConfigRef struct {
	ID        uuid.UUID
	SubjectID uuid.UUID
	MaxMarks  float64
}

type MarksInput struct {
	ClassLevel   string
	AcademicYear string
	ExamTypeID   uuid.UUID
	Students     []StudentRef
	Subjects     []SubjectRef
	Configs      []ConfigRef
	Sheet        *Sheet
}

/* ============================================
   Preview
============================================ */

// ConfigProposal is a configuration the confirm step creates before the
// marks that depend on it.
type ConfigProposal struct {
	SubjectID   uuid.UUID `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	MaxMarks    float64   `json:"max_marks"`
}

// MarkRow is one upsert. ConfigID is uuid.Nil when the configuration is
// still a proposal.
type MarkRow struct {
	StudentID     uuid.UUID `json:"student_id"`
	SubjectID     uuid.UUID `json:"subject_id"`
	ConfigID      uuid.UUID `json:"config_id"`
	MarksObtained *float64  `json:"marks_obtained"`
	IsAbsent      bool      `json:"is_absent"`
	Row           int       `json:"row"`
}

type MarksPreview struct {
	ClassLevel     string           `json:"class_level"`
	AcademicYear   string           `json:"academic_year"`
	ExamTypeID     uuid.UUID        `json:"exam_type_id"`
	Proposals      []ConfigProposal `json:"config_proposals"`
	Rows           []MarkRow        `json:"rows"`
	Students       int              `json:"students"`
	Warnings       []string         `json:"warnings"`
	SkippedColumns []string         `json:"skipped_columns"`
}

type subjectColumns struct {
	subject SubjectRef
	maxCol  int
	obtCol  int
}

// ReconcileMarks validates a marks upload against the snapshot and returns
// the upsert batch. It never writes; any problem rejects the whole file.
func ReconcileMarks(in MarksInput) (*MarksPreview, error) {
	if in.Sheet == nil {
		return nil, &ValidationError{Kind: KindInvalidFile, Message: "no sheet"}
	}
	sh := in.Sheet
	var c collector

	idCol := findIdentityColumn(sh.Headers)
	if idCol < 0 {
		c.add(1, HeaderScholarNo, KindMissingIdentity, "required column %q not found", HeaderScholarNo)
		return nil, c.err()
	}

	prev := &MarksPreview{
		ClassLevel:   in.ClassLevel,
		AcademicYear: in.AcademicYear,
		ExamTypeID:   in.ExamTypeID,
		Rows:         []MarkRow{},
	}

	subjectsByName := make(map[string]SubjectRef, len(in.Subjects))
	for _, s := range in.Subjects {
		subjectsByName[normalize(s.Name)] = s
	}
	configBySubject := make(map[uuid.UUID]ConfigRef, len(in.Configs))
	for _, cfg := range in.Configs {
		configBySubject[cfg.SubjectID] = cfg
	}

	// columns, in header order
	var cols []*subjectColumns
	colIdx := map[uuid.UUID]*subjectColumns{}
	for i, h := range sh.Headers {
		if i == idCol || isStudentNameColumn(h) || h == "" {
			continue
		}
		n := normalize(h)
		name, isMax := cutSuffix(n, suffixMaxMarks)
		isObt := false
		if !isMax {
			name, isObt = cutSuffix(n, suffixObtainMarks)
		}
		if !sh.Populated(i) {
			prev.SkippedColumns = append(prev.SkippedColumns, h)
			continue
		}
		if !isMax && !isObt {
			prev.Warnings = append(prev.Warnings, fmt.Sprintf("column %q ignored", h))
			continue
		}
		subj, ok := subjectsByName[name]
		if !ok {
			c.add(0, h, KindUnknownSubject, "no subject named %q for class %s", name, in.ClassLevel)
			continue
		}
		sc := colIdx[subj.ID]
		if sc == nil {
			sc = &subjectColumns{subject: subj, maxCol: -1, obtCol: -1}
			colIdx[subj.ID] = sc
			cols = append(cols, sc)
		}
		if isMax {
			sc.maxCol = i
		} else {
			sc.obtCol = i
		}
	}

	// effective maximum per subject
	effMax := make(map[uuid.UUID]float64, len(cols))
	for _, sc := range cols {
		uploaded, ok := uploadedMax(sh, sc, &c)
		cfg, hasCfg := configBySubject[sc.subject.ID]
		switch {
		case hasCfg:
			effMax[sc.subject.ID] = cfg.MaxMarks
			if ok && uploaded != cfg.MaxMarks {
				prev.Warnings = append(prev.Warnings, fmt.Sprintf(
					"%s: uploaded max %s differs from configured max %s; configured value kept",
					sc.subject.Name, fmtNum(uploaded), fmtNum(cfg.MaxMarks)))
			}
		case ok:
			effMax[sc.subject.ID] = uploaded
			prev.Proposals = append(prev.Proposals, ConfigProposal{
				SubjectID: sc.subject.ID, SubjectName: sc.subject.Name, MaxMarks: uploaded,
			})
		case sc.obtCol >= 0:
			c.add(0, sh.Headers[sc.obtCol], KindConfigurationMissing,
				"%s has no configured maximum; add a %q column", sc.subject.Name, MaxMarksHeader(sc.subject.Name))
		}
	}

	studentsByScholar := make(map[string]StudentRef, len(in.Students))
	for _, s := range in.Students {
		studentsByScholar[scholarKey(s.ScholarNumber)] = s
	}

	type key struct{ student, subject uuid.UUID }
	pos := map[key]int{}
	seenScholar := map[string]int{}

	for r := range sh.Rows {
		rowNo := SheetRowNumber(r)
		scholar := sh.Cell(r, idCol)
		if scholar == "" {
			continue
		}
		st, ok := studentsByScholar[scholarKey(scholar)]
		if !ok {
			c.add(rowNo, sh.Headers[idCol], KindUnknownStudent, "no student with scholar number %q in this class", scholar)
			continue
		}
		if first, dup := seenScholar[scholarKey(scholar)]; dup {
			prev.Warnings = append(prev.Warnings, fmt.Sprintf(
				"row %d repeats scholar number %s from row %d; later values win", rowNo, scholar, first))
		} else {
			seenScholar[scholarKey(scholar)] = rowNo
			prev.Students++
		}

		for _, sc := range cols {
			if sc.obtCol < 0 {
				continue
			}
			raw := sh.Cell(r, sc.obtCol)
			if raw == "" {
				continue
			}
			header := sh.Headers[sc.obtCol]
			row := MarkRow{StudentID: st.ID, SubjectID: sc.subject.ID, Row: rowNo}
			if cfg, ok := configBySubject[sc.subject.ID]; ok {
				row.ConfigID = cfg.ID
			}

			if isAbsentToken(raw, true) {
				row.IsAbsent = true
			} else {
				v, ok := parseNumber(raw)
				if !ok {
					c.add(rowNo, header, KindInvalidNumber, "%q is not a number", raw)
					continue
				}
				if v < 0 {
					c.add(rowNo, header, KindNegative, "marks cannot be negative (%s)", raw)
					continue
				}
				if max, ok := effMax[sc.subject.ID]; ok && v > max {
					c.add(rowNo, header, KindExceedsMax, "%s exceeds maximum %s for %s", fmtNum(v), fmtNum(max), sc.subject.Name)
					continue
				}
				row.MarksObtained = &v
			}

			k := key{st.ID, sc.subject.ID}
			if i, dup := pos[k]; dup {
				prev.Rows[i] = row
				continue
			}
			pos[k] = len(prev.Rows)
			prev.Rows = append(prev.Rows, row)
		}
	}

	if err := c.err(); err != nil {
		return nil, err
	}
	return prev, nil
}

// uploadedMax reads the Max Marks column. Every populated cell must agree.
func uploadedMax(sh *Sheet, sc *subjectColumns, c *collector) (float64, bool) {
	if sc.maxCol < 0 {
		return 0, false
	}
	header := sh.Headers[sc.maxCol]
	var (
		found bool
		max   float64
	)
	for r := range sh.Rows {
		raw := sh.Cell(r, sc.maxCol)
		if raw == "" {
			continue
		}
		v, ok := parseNumber(raw)
		if !ok || v <= 0 {
			c.add(SheetRowNumber(r), header, KindInvalidMax, "max marks must be a positive number, got %q", raw)
			return 0, false
		}
		if found && v != max {
			c.add(SheetRowNumber(r), header, KindInvalidMax, "max marks differ between rows (%s vs %s)", fmtNum(max), fmtNum(v))
			return 0, false
		}
		found, max = true, v
	}
	return max, found
}

func fmtNum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
