// file: internals/features/school/exams/model/exam_types_model.go
package model

import (
	"errors"
	"strings"
	"time"

	"schooldesk_backend/internals/features/school/exams/aggregation"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ExamTypeModel struct {
	ExamTypeID   uuid.UUID `gorm:"column:exam_type_id;type:uuid;default:gen_random_uuid();primaryKey" json:"exam_type_id"`
	ExamTypeName string    `gorm:"column:exam_type_name;type:varchar(80);not null;uniqueIndex:uq_exam_types_name" json:"exam_type_name"`
	// Explicit report slot: unit_test | term_1 | term_2 | annual. NULL falls
	// back to keyword matching on the name and aliases.
	ExamTypeSlot         *string        `gorm:"column:exam_type_slot;type:varchar(16)" json:"exam_type_slot,omitempty"`
	ExamTypeAliases      pq.StringArray `gorm:"column:exam_type_aliases;type:text[]" json:"exam_type_aliases,omitempty"`
	ExamTypeDisplayOrder int            `gorm:"column:exam_type_display_order;not null;default:0" json:"exam_type_display_order"`

	ExamTypeCreatedAt time.Time `gorm:"column:exam_type_created_at;type:timestamptz;not null;autoCreateTime" json:"exam_type_created_at"`
	ExamTypeUpdatedAt time.Time `gorm:"column:exam_type_updated_at;type:timestamptz;not null;autoUpdateTime" json:"exam_type_updated_at"`
}

func (ExamTypeModel) TableName() string { return "exam_types" }

func (m *ExamTypeModel) BeforeSave(tx *gorm.DB) error {
	m.ExamTypeName = strings.TrimSpace(m.ExamTypeName)
	if m.ExamTypeName == "" {
		return errors.New("exam_type_name is required")
	}
	if m.ExamTypeSlot != nil {
		s := strings.TrimSpace(*m.ExamTypeSlot)
		if s == "" {
			m.ExamTypeSlot = nil
		} else if !aggregation.Slot(s).Valid() {
			return errors.New("exam_type_slot must be one of unit_test, term_1, term_2, annual")
		} else {
			m.ExamTypeSlot = &s
		}
	}
	return nil
}

// Ref converts to the aggregator's view of an exam type.
func (m ExamTypeModel) Ref() aggregation.ExamTypeRef {
	ref := aggregation.ExamTypeRef{
		ID:           m.ExamTypeID,
		Name:         m.ExamTypeName,
		Aliases:      []string(m.ExamTypeAliases),
		DisplayOrder: m.ExamTypeDisplayOrder,
	}
	if m.ExamTypeSlot != nil {
		ref.Slot = aggregation.Slot(*m.ExamTypeSlot)
	}
	return ref
}

// DefaultExamTypes is the usual school calendar seeded on a fresh install.
// Schools rename or add their own afterwards.
func DefaultExamTypes() []ExamTypeModel {
	slot := func(s aggregation.Slot) *string {
		v := string(s)
		return &v
	}
	return []ExamTypeModel{
		{ExamTypeName: "Unit Test", ExamTypeSlot: slot(aggregation.SlotUnitTest), ExamTypeAliases: pq.StringArray{"unit", "ut", "periodic"}, ExamTypeDisplayOrder: 1},
		{ExamTypeName: "Half Yearly", ExamTypeSlot: slot(aggregation.SlotTerm1), ExamTypeAliases: pq.StringArray{"term 1", "mid term", "half-yearly"}, ExamTypeDisplayOrder: 2},
		{ExamTypeName: "Term 2", ExamTypeSlot: slot(aggregation.SlotTerm2), ExamTypeAliases: pq.StringArray{"term ii", "pre board"}, ExamTypeDisplayOrder: 3},
		{ExamTypeName: "Annual Exam", ExamTypeSlot: slot(aggregation.SlotAnnual), ExamTypeAliases: pq.StringArray{"annual", "final"}, ExamTypeDisplayOrder: 4},
	}
}
