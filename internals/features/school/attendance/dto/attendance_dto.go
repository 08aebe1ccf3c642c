package dto

import (
	"strings"
	"time"

	"schooldesk_backend/internals/features/school/attendance/service"

	"github.com/google/uuid"
)

type AttendanceEntryRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
	Status    string    `json:"status"     validate:"required"`
	Remark    *string   `json:"remark"     validate:"omitempty,max=500"`
}

// MarkDayRequest: date empty means today in the school's time zone.
type MarkDayRequest struct {
	Date    string                   `json:"date"    validate:"omitempty,datetime=2006-01-02"`
	Entries []AttendanceEntryRequest `json:"entries" validate:"dive"`
}

func (r MarkDayRequest) ToInput(today time.Time) service.MarkDayInput {
	in := service.MarkDayInput{Date: today}
	if d, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date)); err == nil {
		in.Date = d
	}
	in.Entries = make([]service.DayEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		in.Entries = append(in.Entries, service.DayEntry{
			StudentID: e.StudentID,
			Status:    e.Status,
			Remark:    e.Remark,
		})
	}
	return in
}
