package dto

import (
	"schooldesk_backend/internals/features/school/classes/classes/model"

	"github.com/google/uuid"
)

type ClassResponse struct {
	ClassID           uuid.UUID  `json:"class_id"`
	ClassLevel        string     `json:"class_level"`
	ClassSection      *string    `json:"class_section,omitempty"`
	ClassAcademicYear string     `json:"class_academic_year"`
	ClassTeacherID    *uuid.UUID `json:"class_teacher_id,omitempty"`
	ClassDisplayName  string     `json:"class_display_name"`
}

func FromClassModel(m model.ClassModel) ClassResponse {
	return ClassResponse{
		ClassID:           m.ClassID,
		ClassLevel:        m.ClassLevel,
		ClassSection:      m.ClassSection,
		ClassAcademicYear: m.ClassAcademicYear,
		ClassTeacherID:    m.ClassTeacherID,
		ClassDisplayName:  m.DisplayName(),
	}
}

func FromClassModels(rows []model.ClassModel) []ClassResponse {
	out := make([]ClassResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromClassModel(r))
	}
	return out
}
