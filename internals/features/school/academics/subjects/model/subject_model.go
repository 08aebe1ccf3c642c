// file: internals/features/school/academics/subjects/model/subject_model.go
package model

import (
	"errors"
	"strings"
	"time"

	"schooldesk_backend/internals/features/school/exams/aggregation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubjectModel is scoped to a class level. Subjects sharing a group name
// ("Science Theory" + "Science Internal" -> "Science") form one report row.
type SubjectModel struct {
	SubjectID           uuid.UUID `gorm:"column:subject_id;type:uuid;default:gen_random_uuid();primaryKey" json:"subject_id"`
	SubjectClassLevel   string    `gorm:"column:subject_class_level;type:varchar(32);not null;uniqueIndex:uq_subjects_name_per_level;index:idx_subjects_level_order" json:"subject_class_level"`
	SubjectName         string    `gorm:"column:subject_name;type:varchar(120);not null;uniqueIndex:uq_subjects_name_per_level" json:"subject_name"`
	SubjectGroupName    string    `gorm:"column:subject_group_name;type:varchar(120);not null" json:"subject_group_name"`
	SubjectDisplayOrder int       `gorm:"column:subject_display_order;not null;default:0;index:idx_subjects_level_order" json:"subject_display_order"`

	SubjectCreatedAt time.Time `gorm:"column:subject_created_at;type:timestamptz;not null;autoCreateTime" json:"subject_created_at"`
	SubjectUpdatedAt time.Time `gorm:"column:subject_updated_at;type:timestamptz;not null;autoUpdateTime" json:"subject_updated_at"`
}

func (SubjectModel) TableName() string { return "subjects" }

// BeforeSave derives the group name only when none is stored; an edited
// group name is kept as is.
func (m *SubjectModel) BeforeSave(tx *gorm.DB) error {
	m.SubjectName = strings.Join(strings.Fields(m.SubjectName), " ")
	m.SubjectGroupName = strings.Join(strings.Fields(m.SubjectGroupName), " ")
	if m.SubjectName == "" {
		return errors.New("subject_name is required")
	}
	m.ApplyDefaults()
	return nil
}

func (m *SubjectModel) ApplyDefaults() {
	if m.SubjectGroupName == "" {
		m.SubjectGroupName = aggregation.DefaultGroupName(m.SubjectName)
	}
}
