// file: internals/features/school/exams/model/exam_configurations_model.go
package model

import (
	"errors"
	"strings"
	"time"

	subjectModel "schooldesk_backend/internals/features/school/academics/subjects/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExamConfigurationModel: (class level, subject, exam type, academic year)
// -> max marks. Created lazily the first time marks are saved.
type ExamConfigurationModel struct {
	ExamConfigurationID           uuid.UUID `gorm:"column:exam_configuration_id;type:uuid;default:gen_random_uuid();primaryKey" json:"exam_configuration_id"`
	ExamConfigurationClassLevel   string    `gorm:"column:exam_configuration_class_level;type:varchar(32);not null;uniqueIndex:uq_exam_configurations_tuple;index:idx_exam_configurations_level_year" json:"exam_configuration_class_level"`
	ExamConfigurationSubjectID    uuid.UUID `gorm:"column:exam_configuration_subject_id;type:uuid;not null;uniqueIndex:uq_exam_configurations_tuple" json:"exam_configuration_subject_id"`
	ExamConfigurationExamTypeID   uuid.UUID `gorm:"column:exam_configuration_exam_type_id;type:uuid;not null;uniqueIndex:uq_exam_configurations_tuple" json:"exam_configuration_exam_type_id"`
	ExamConfigurationAcademicYear string    `gorm:"column:exam_configuration_academic_year;type:varchar(16);not null;uniqueIndex:uq_exam_configurations_tuple;index:idx_exam_configurations_level_year" json:"exam_configuration_academic_year"`
	ExamConfigurationMaxMarks     float64   `gorm:"column:exam_configuration_max_marks;type:numeric(7,2);not null" json:"exam_configuration_max_marks"`

	ExamConfigurationCreatedAt time.Time `gorm:"column:exam_configuration_created_at;type:timestamptz;not null;autoCreateTime" json:"exam_configuration_created_at"`
	ExamConfigurationUpdatedAt time.Time `gorm:"column:exam_configuration_updated_at;type:timestamptz;not null;autoUpdateTime" json:"exam_configuration_updated_at"`

	// Parents (FK only, never preloaded)
	ExamConfigurationSubject  *subjectModel.SubjectModel `gorm:"foreignKey:ExamConfigurationSubjectID;references:SubjectID;constraint:OnDelete:CASCADE" json:"-"`
	ExamConfigurationExamType *ExamTypeModel             `gorm:"foreignKey:ExamConfigurationExamTypeID;references:ExamTypeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ExamConfigurationModel) TableName() string { return "exam_configurations" }

func (m *ExamConfigurationModel) BeforeSave(tx *gorm.DB) error {
	m.ExamConfigurationClassLevel = strings.TrimSpace(m.ExamConfigurationClassLevel)
	m.ExamConfigurationAcademicYear = strings.TrimSpace(m.ExamConfigurationAcademicYear)
	if m.ExamConfigurationMaxMarks <= 0 {
		return errors.New("exam_configuration_max_marks must be > 0")
	}
	return nil
}

// ExamConfigurationKey is the uniqueness tuple of a configuration.
type ExamConfigurationKey struct {
	ClassLevel   string
	SubjectID    uuid.UUID
	ExamTypeID   uuid.UUID
	AcademicYear string
}

func (m ExamConfigurationModel) Key() ExamConfigurationKey {
	return ExamConfigurationKey{
		ClassLevel:   m.ExamConfigurationClassLevel,
		SubjectID:    m.ExamConfigurationSubjectID,
		ExamTypeID:   m.ExamConfigurationExamTypeID,
		AcademicYear: m.ExamConfigurationAcademicYear,
	}
}
