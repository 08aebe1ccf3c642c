// file: internals/features/school/classes/classes/model/classes_model.go
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClassModel is a (class level, academic year) pair with an optional section
// and at most one class teacher.
type ClassModel struct {
	ClassID           uuid.UUID  `gorm:"column:class_id;type:uuid;default:gen_random_uuid();primaryKey" json:"class_id"`
	ClassLevel        string     `gorm:"column:class_level;type:varchar(32);not null;index:idx_classes_level_year" json:"class_level"`
	ClassSection      *string    `gorm:"column:class_section;type:varchar(16)" json:"class_section,omitempty"`
	ClassAcademicYear string     `gorm:"column:class_academic_year;type:varchar(16);not null;index:idx_classes_level_year" json:"class_academic_year"`
	ClassTeacherID    *uuid.UUID `gorm:"column:class_teacher_id;type:uuid;index:idx_classes_teacher" json:"class_teacher_id,omitempty"`

	ClassCreatedAt time.Time `gorm:"column:class_created_at;type:timestamptz;not null;autoCreateTime" json:"class_created_at"`
	ClassUpdatedAt time.Time `gorm:"column:class_updated_at;type:timestamptz;not null;autoUpdateTime" json:"class_updated_at"`
}

func (ClassModel) TableName() string { return "classes" }

func (m *ClassModel) BeforeSave(tx *gorm.DB) error {
	m.ClassLevel = NormalizeClassLevel(m.ClassLevel)
	m.ClassAcademicYear = strings.TrimSpace(m.ClassAcademicYear)
	if m.ClassSection != nil {
		s := strings.ToUpper(strings.TrimSpace(*m.ClassSection))
		if s == "" {
			m.ClassSection = nil
		} else {
			m.ClassSection = &s
		}
	}
	return nil
}

// DisplayName e.g. "5th A (2025-26)".
func (m ClassModel) DisplayName() string {
	if m.ClassSection != nil {
		return fmt.Sprintf("%s %s (%s)", m.ClassLevel, *m.ClassSection, m.ClassAcademicYear)
	}
	return fmt.Sprintf("%s (%s)", m.ClassLevel, m.ClassAcademicYear)
}

// NormalizeClassLevel folds "5TH ", "5th" to one label; pre-primary levels
// (LKG, UKG, NUR) are upper-cased.
func NormalizeClassLevel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	lower := strings.ToLower(s)
	switch lower {
	case "lkg", "ukg", "nur", "nursery":
		return strings.ToUpper(lower)
	}
	return lower
}
