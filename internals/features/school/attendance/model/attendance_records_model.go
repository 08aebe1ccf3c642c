// file: internals/features/school/attendance/model/attendance_records_model.go
package model

import (
	"errors"
	"strings"
	"time"

	classModel "schooldesk_backend/internals/features/school/classes/classes/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

var Statuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

func ValidStatus(s string) bool {
	for _, it := range Statuses {
		if it == s {
			return true
		}
	}
	return false
}

// AttendanceRecordModel: (student, class, date) -> status. A day's marking
// for a class replaces every row of that (class, date).
type AttendanceRecordModel struct {
	AttendanceRecordID        uuid.UUID      `gorm:"column:attendance_record_id;type:uuid;default:gen_random_uuid();primaryKey" json:"attendance_record_id"`
	AttendanceRecordStudentID uuid.UUID      `gorm:"column:attendance_record_student_id;type:uuid;not null;uniqueIndex:uq_attendance_student_date" json:"attendance_record_student_id"`
	AttendanceRecordClassID   uuid.UUID      `gorm:"column:attendance_record_class_id;type:uuid;not null;index:idx_attendance_class_date" json:"attendance_record_class_id"`
	AttendanceRecordDate      datatypes.Date `gorm:"column:attendance_record_date;type:date;not null;uniqueIndex:uq_attendance_student_date;index:idx_attendance_class_date" json:"attendance_record_date"`
	AttendanceRecordStatus    string         `gorm:"column:attendance_record_status;type:varchar(10);not null" json:"attendance_record_status"`
	AttendanceRecordRemark    *string        `gorm:"column:attendance_record_remark;type:text" json:"attendance_record_remark,omitempty"`

	AttendanceRecordCreatedAt time.Time `gorm:"column:attendance_record_created_at;type:timestamptz;not null;autoCreateTime" json:"attendance_record_created_at"`

	// Parents (FK only, never preloaded)
	AttendanceRecordStudent *classModel.StudentModel `gorm:"foreignKey:AttendanceRecordStudentID;references:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	AttendanceRecordClass   *classModel.ClassModel   `gorm:"foreignKey:AttendanceRecordClassID;references:ClassID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AttendanceRecordModel) TableName() string { return "attendance_records" }

func (m *AttendanceRecordModel) BeforeSave(tx *gorm.DB) error {
	m.AttendanceRecordStatus = strings.ToLower(strings.TrimSpace(m.AttendanceRecordStatus))
	if !ValidStatus(m.AttendanceRecordStatus) {
		return errors.New("attendance_record_status must be present, absent, late or excused")
	}
	if m.AttendanceRecordRemark != nil {
		r := strings.TrimSpace(*m.AttendanceRecordRemark)
		if r == "" {
			m.AttendanceRecordRemark = nil
		} else {
			m.AttendanceRecordRemark = &r
		}
	}
	return nil
}

// Day returns the record date as a UTC midnight time.
func (m AttendanceRecordModel) Day() time.Time {
	return DateOnly(time.Time(m.AttendanceRecordDate))
}

// DateOnly truncates t to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
