// file: internals/features/school/exams/model/student_marks_model.go
package model

import (
	"errors"
	"time"

	classModel "schooldesk_backend/internals/features/school/classes/classes/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrMarkAbsentWithValue = errors.New("a mark is either absent or has marks_obtained, never both or neither")

// StudentMarkModel: (student, exam configuration) -> obtained | absent.
type StudentMarkModel struct {
	StudentMarkID                  uuid.UUID `gorm:"column:student_mark_id;type:uuid;default:gen_random_uuid();primaryKey" json:"student_mark_id"`
	StudentMarkStudentID           uuid.UUID `gorm:"column:student_mark_student_id;type:uuid;not null;uniqueIndex:uq_student_marks_student_config" json:"student_mark_student_id"`
	StudentMarkExamConfigurationID uuid.UUID `gorm:"column:student_mark_exam_configuration_id;type:uuid;not null;uniqueIndex:uq_student_marks_student_config;index:idx_student_marks_config" json:"student_mark_exam_configuration_id"`
	StudentMarkMarksObtained       *float64  `gorm:"column:student_mark_marks_obtained;type:numeric(7,2)" json:"student_mark_marks_obtained"`
	StudentMarkIsAbsent            bool      `gorm:"column:student_mark_is_absent;not null;default:false" json:"student_mark_is_absent"`

	StudentMarkCreatedAt time.Time `gorm:"column:student_mark_created_at;type:timestamptz;not null;autoCreateTime" json:"student_mark_created_at"`
	StudentMarkUpdatedAt time.Time `gorm:"column:student_mark_updated_at;type:timestamptz;not null;autoUpdateTime" json:"student_mark_updated_at"`

	// Parents (FK only, never preloaded)
	StudentMarkStudent           *classModel.StudentModel `gorm:"foreignKey:StudentMarkStudentID;references:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	StudentMarkExamConfiguration *ExamConfigurationModel  `gorm:"foreignKey:StudentMarkExamConfigurationID;references:ExamConfigurationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (StudentMarkModel) TableName() string { return "student_marks" }

func (m *StudentMarkModel) BeforeSave(tx *gorm.DB) error {
	return m.Validate()
}

// Validate enforces marks_obtained IS NULL <=> is_absent.
func (m StudentMarkModel) Validate() error {
	if m.StudentMarkIsAbsent == (m.StudentMarkMarksObtained != nil) {
		return ErrMarkAbsentWithValue
	}
	if m.StudentMarkMarksObtained != nil && *m.StudentMarkMarksObtained < 0 {
		return errors.New("student_mark_marks_obtained must be >= 0")
	}
	return nil
}
