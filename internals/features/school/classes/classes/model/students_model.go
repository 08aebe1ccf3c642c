// file: internals/features/school/classes/classes/model/students_model.go
package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StudentModel struct {
	StudentID      uuid.UUID `gorm:"column:student_id;type:uuid;default:gen_random_uuid();primaryKey" json:"student_id"`
	StudentClassID uuid.UUID `gorm:"column:student_class_id;type:uuid;not null;uniqueIndex:uq_students_scholar_per_class;index:idx_students_class_roll" json:"student_class_id"`

	// Business key, stable and human-assigned
	StudentScholarNumber string `gorm:"column:student_scholar_number;type:varchar(32);not null;uniqueIndex:uq_students_scholar_per_class" json:"student_scholar_number"`
	// Dense 1..N within the class, reassigned on every roster change
	StudentRollNumber int `gorm:"column:student_roll_number;not null;default:0;index:idx_students_class_roll" json:"student_roll_number"`

	StudentName          string          `gorm:"column:student_name;type:varchar(160);not null" json:"student_name"`
	StudentFatherName    *string         `gorm:"column:student_father_name;type:varchar(160)" json:"student_father_name,omitempty"`
	StudentMotherName    *string         `gorm:"column:student_mother_name;type:varchar(160)" json:"student_mother_name,omitempty"`
	StudentDateOfBirth   *datatypes.Date `gorm:"column:student_date_of_birth;type:date" json:"student_date_of_birth,omitempty"`
	StudentAdmissionNo   *string         `gorm:"column:student_admission_no;type:varchar(32)" json:"student_admission_no,omitempty"`
	StudentAdmissionDate *datatypes.Date `gorm:"column:student_admission_date;type:date" json:"student_admission_date,omitempty"`
	StudentAddress       *string         `gorm:"column:student_address;type:text" json:"student_address,omitempty"`

	StudentCreatedAt time.Time `gorm:"column:student_created_at;type:timestamptz;not null;autoCreateTime" json:"student_created_at"`
	StudentUpdatedAt time.Time `gorm:"column:student_updated_at;type:timestamptz;not null;autoUpdateTime" json:"student_updated_at"`

	// Parent (FK only, never preloaded)
	StudentClass *ClassModel `gorm:"foreignKey:StudentClassID;references:ClassID;constraint:OnDelete:CASCADE" json:"-"`
}

func (StudentModel) TableName() string { return "students" }

func (m *StudentModel) BeforeSave(tx *gorm.DB) error {
	m.StudentScholarNumber = strings.TrimSpace(m.StudentScholarNumber)
	m.StudentName = strings.Join(strings.Fields(m.StudentName), " ")
	if m.StudentScholarNumber == "" {
		return errors.New("student_scholar_number is required")
	}
	if m.StudentName == "" {
		return errors.New("student_name is required")
	}
	m.StudentFatherName = trimPtr(m.StudentFatherName)
	m.StudentMotherName = trimPtr(m.StudentMotherName)
	m.StudentAdmissionNo = trimPtr(m.StudentAdmissionNo)
	m.StudentAddress = trimPtr(m.StudentAddress)
	return nil
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
