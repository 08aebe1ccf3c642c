// file: internals/features/school/exams/dto/exam_dto.go
package dto

import (
	"strings"

	"schooldesk_backend/internals/features/school/exams/service"

	"github.com/google/uuid"
)

/* =========================================================
   Exam configuration
   ========================================================= */

type SetMaxMarksRequest struct {
	ClassID      uuid.UUID `json:"class_id"      validate:"required"`
	SubjectID    uuid.UUID `json:"subject_id"    validate:"required"`
	ExamTypeID   uuid.UUID `json:"exam_type_id"  validate:"required"`
	AcademicYear string    `json:"academic_year" validate:"omitempty,max=16"`
	MaxMarks     float64   `json:"max_marks"     validate:"required,gt=0,lte=1000"`
}

func (r SetMaxMarksRequest) ToInput() service.ConfigurationInput {
	return service.ConfigurationInput{
		ClassID:      r.ClassID,
		SubjectID:    r.SubjectID,
		ExamTypeID:   r.ExamTypeID,
		AcademicYear: strings.TrimSpace(r.AcademicYear),
		MaxMarks:     r.MaxMarks,
	}
}

/* =========================================================
   Manual marks entry
   ========================================================= */

type MarkEntryRequest struct {
	StudentID     uuid.UUID `json:"student_id"     validate:"required"`
	MarksObtained *float64  `json:"marks_obtained" validate:"omitempty,gte=0"`
	IsAbsent      bool      `json:"is_absent"`
}

type SaveMarksRequest struct {
	SubjectID    uuid.UUID          `json:"subject_id"    validate:"required"`
	ExamTypeID   uuid.UUID          `json:"exam_type_id"  validate:"required"`
	AcademicYear string             `json:"academic_year" validate:"omitempty,max=16"`
	MaxMarks     *float64           `json:"max_marks"     validate:"omitempty,gt=0,lte=1000"`
	Entries      []MarkEntryRequest `json:"entries"       validate:"required,min=1,dive"`
}

func (r SaveMarksRequest) ToInput() service.SaveMarksInput {
	entries := make([]service.MarkEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, service.MarkEntry{
			StudentID:     e.StudentID,
			MarksObtained: e.MarksObtained,
			IsAbsent:      e.IsAbsent,
		})
	}
	return service.SaveMarksInput{
		MarksQuery: service.MarksQuery{
			ExamTypeID:   r.ExamTypeID,
			SubjectID:    r.SubjectID,
			AcademicYear: strings.TrimSpace(r.AcademicYear),
		},
		MaxMarks: r.MaxMarks,
		Entries:  entries,
	}
}
