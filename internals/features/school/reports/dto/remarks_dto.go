package dto

import (
	"strings"

	"schooldesk_backend/internals/features/school/reports/service"
)

type SaveRemarksRequest struct {
	AcademicYear   string  `json:"academic_year"   validate:"omitempty,max=16"`
	Height         *string `json:"height"          validate:"omitempty,max=32"`
	Weight         *string `json:"weight"          validate:"omitempty,max=32"`
	AttendanceText *string `json:"attendance_text" validate:"omitempty,max=32"`
	Remarks        *string `json:"remarks"         validate:"omitempty,max=1000"`
}

func (r SaveRemarksRequest) ToInput() service.RemarksInput {
	return service.RemarksInput{
		AcademicYear:   strings.TrimSpace(r.AcademicYear),
		Height:         r.Height,
		Weight:         r.Weight,
		AttendanceText: r.AttendanceText,
		Remarks:        r.Remarks,
	}
}
