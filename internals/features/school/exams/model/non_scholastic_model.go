// file: internals/features/school/exams/model/non_scholastic_model.go
package model

import (
	"errors"
	"strings"
	"time"

	classModel "schooldesk_backend/internals/features/school/classes/classes/model"
	"schooldesk_backend/internals/features/school/exams/grading"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ============================================
   Activities (per class level)
============================================ */

type NonScholasticActivityModel struct {
	NonScholasticActivityID           uuid.UUID `gorm:"column:non_scholastic_activity_id;type:uuid;default:gen_random_uuid();primaryKey" json:"non_scholastic_activity_id"`
	NonScholasticActivityClassLevel   string    `gorm:"column:non_scholastic_activity_class_level;type:varchar(32);not null;uniqueIndex:uq_non_scholastic_activity" json:"non_scholastic_activity_class_level"`
	NonScholasticActivityCategory     string    `gorm:"column:non_scholastic_activity_category;type:varchar(80);not null;uniqueIndex:uq_non_scholastic_activity" json:"non_scholastic_activity_category"`
	NonScholasticActivityName         string    `gorm:"column:non_scholastic_activity_name;type:varchar(120);not null;uniqueIndex:uq_non_scholastic_activity" json:"non_scholastic_activity_name"`
	NonScholasticActivityIsNumeric    bool      `gorm:"column:non_scholastic_activity_is_numeric;not null;default:false" json:"non_scholastic_activity_is_numeric"`
	NonScholasticActivityMaxValue     *float64  `gorm:"column:non_scholastic_activity_max_value;type:numeric(7,2)" json:"non_scholastic_activity_max_value,omitempty"`
	NonScholasticActivityDisplayOrder int       `gorm:"column:non_scholastic_activity_display_order;not null;default:0" json:"non_scholastic_activity_display_order"`

	NonScholasticActivityCreatedAt time.Time `gorm:"column:non_scholastic_activity_created_at;type:timestamptz;not null;autoCreateTime" json:"non_scholastic_activity_created_at"`
}

func (NonScholasticActivityModel) TableName() string { return "non_scholastic_activities" }

/* ============================================
   Student values
============================================ */

var ErrNonScholasticValue = errors.New("a non-scholastic entry holds exactly one of grade, numeric value or absence")

// StudentNonScholasticModel: (student, activity, academic year, exam type)
// -> grade | numeric value | absent.
type StudentNonScholasticModel struct {
	StudentNonScholasticID           uuid.UUID `gorm:"column:student_non_scholastic_id;type:uuid;default:gen_random_uuid();primaryKey" json:"student_non_scholastic_id"`
	StudentNonScholasticStudentID    uuid.UUID `gorm:"column:student_non_scholastic_student_id;type:uuid;not null;uniqueIndex:uq_student_non_scholastic_key" json:"student_non_scholastic_student_id"`
	StudentNonScholasticActivityID   uuid.UUID `gorm:"column:student_non_scholastic_activity_id;type:uuid;not null;uniqueIndex:uq_student_non_scholastic_key" json:"student_non_scholastic_activity_id"`
	StudentNonScholasticAcademicYear string    `gorm:"column:student_non_scholastic_academic_year;type:varchar(16);not null;uniqueIndex:uq_student_non_scholastic_key" json:"student_non_scholastic_academic_year"`
	StudentNonScholasticExamTypeID   uuid.UUID `gorm:"column:student_non_scholastic_exam_type_id;type:uuid;not null;uniqueIndex:uq_student_non_scholastic_key" json:"student_non_scholastic_exam_type_id"`

	StudentNonScholasticGrade        *string  `gorm:"column:student_non_scholastic_grade;type:varchar(4)" json:"student_non_scholastic_grade"`
	StudentNonScholasticNumericValue *float64 `gorm:"column:student_non_scholastic_numeric_value;type:numeric(7,2)" json:"student_non_scholastic_numeric_value"`
	StudentNonScholasticIsAbsent     bool     `gorm:"column:student_non_scholastic_is_absent;not null;default:false" json:"student_non_scholastic_is_absent"`

	StudentNonScholasticCreatedAt time.Time `gorm:"column:student_non_scholastic_created_at;type:timestamptz;not null;autoCreateTime" json:"student_non_scholastic_created_at"`
	StudentNonScholasticUpdatedAt time.Time `gorm:"column:student_non_scholastic_updated_at;type:timestamptz;not null;autoUpdateTime" json:"student_non_scholastic_updated_at"`

	// Parents (FK only, never preloaded)
	StudentNonScholasticStudent  *classModel.StudentModel    `gorm:"foreignKey:StudentNonScholasticStudentID;references:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	StudentNonScholasticActivity *NonScholasticActivityModel `gorm:"foreignKey:StudentNonScholasticActivityID;references:NonScholasticActivityID;constraint:OnDelete:CASCADE" json:"-"`
	StudentNonScholasticExamType *ExamTypeModel              `gorm:"foreignKey:StudentNonScholasticExamTypeID;references:ExamTypeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (StudentNonScholasticModel) TableName() string { return "student_non_scholastic" }

func (m *StudentNonScholasticModel) BeforeSave(tx *gorm.DB) error {
	if m.StudentNonScholasticGrade != nil {
		g, ok := grading.ParseNonScholasticGrade(*m.StudentNonScholasticGrade)
		if !ok {
			return errors.New("student_non_scholastic_grade must be one of " + strings.Join(grading.NonScholasticGrades, ", "))
		}
		m.StudentNonScholasticGrade = &g
	}
	return m.Validate()
}

func (m StudentNonScholasticModel) Validate() error {
	n := 0
	if m.StudentNonScholasticIsAbsent {
		n++
	}
	if m.StudentNonScholasticGrade != nil {
		n++
	}
	if m.StudentNonScholasticNumericValue != nil {
		n++
	}
	if n != 1 {
		return ErrNonScholasticValue
	}
	return nil
}

/* ============================================
   Report remarks (health / attendance free text)
============================================ */

type ReportRemarkModel struct {
	ReportRemarkID             uuid.UUID `gorm:"column:report_remark_id;type:uuid;default:gen_random_uuid();primaryKey" json:"report_remark_id"`
	ReportRemarkStudentID      uuid.UUID `gorm:"column:report_remark_student_id;type:uuid;not null;uniqueIndex:uq_report_remarks_student_year" json:"report_remark_student_id"`
	ReportRemarkAcademicYear   string    `gorm:"column:report_remark_academic_year;type:varchar(16);not null;uniqueIndex:uq_report_remarks_student_year" json:"report_remark_academic_year"`
	ReportRemarkHeight         *string   `gorm:"column:report_remark_height;type:varchar(32)" json:"report_remark_height,omitempty"`
	ReportRemarkWeight         *string   `gorm:"column:report_remark_weight;type:varchar(32)" json:"report_remark_weight,omitempty"`
	ReportRemarkAttendanceText *string   `gorm:"column:report_remark_attendance_text;type:varchar(64)" json:"report_remark_attendance_text,omitempty"`
	ReportRemarkRemarks        *string   `gorm:"column:report_remark_remarks;type:text" json:"report_remark_remarks,omitempty"`

	ReportRemarkUpdatedAt time.Time `gorm:"column:report_remark_updated_at;type:timestamptz;not null;autoUpdateTime" json:"report_remark_updated_at"`

	ReportRemarkStudent *classModel.StudentModel `gorm:"foreignKey:ReportRemarkStudentID;references:StudentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ReportRemarkModel) TableName() string { return "report_remarks" }
