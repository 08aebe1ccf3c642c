// file: internals/features/school/classes/classes/dto/student_dto.go
package dto

import (
	"errors"
	"strings"
	"time"

	"schooldesk_backend/internals/features/school/classes/classes/model"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

/* =========================================================
   PatchField: tells "absent" apart from "null"
   ========================================================= */

type PatchField[T any] struct {
	Present bool
	Value   *T
}

func (p *PatchField[T]) UnmarshalJSON(b []byte) error {
	p.Present = true
	if string(b) == "null" {
		p.Value = nil
		return nil
	}
	var v T
	if err := sonic.Unmarshal(b, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}

func (p PatchField[T]) Get() (*T, bool) { return p.Value, p.Present }

/* =========================================================
   CREATE
   ========================================================= */

type CreateStudentRequest struct {
	ScholarNumber string  `json:"student_scholar_number" validate:"required,min=1,max=32"`
	Name          string  `json:"student_name"           validate:"required,min=1,max=160"`
	FatherName    *string `json:"student_father_name"    validate:"omitempty,max=160"`
	MotherName    *string `json:"student_mother_name"    validate:"omitempty,max=160"`
	DateOfBirth   *string `json:"student_date_of_birth"  validate:"omitempty,datetime=2006-01-02"`
	AdmissionNo   *string `json:"student_admission_no"   validate:"omitempty,max=32"`
	AdmissionDate *string `json:"student_admission_date" validate:"omitempty,datetime=2006-01-02"`
	Address       *string `json:"student_address"`
}

func (r *CreateStudentRequest) Normalize() {
	r.ScholarNumber = strings.TrimSpace(r.ScholarNumber)
	r.Name = strings.Join(strings.Fields(r.Name), " ")
}

func (r CreateStudentRequest) ToModel() *model.StudentModel {
	return &model.StudentModel{
		StudentScholarNumber: r.ScholarNumber,
		StudentName:          r.Name,
		StudentFatherName:    r.FatherName,
		StudentMotherName:    r.MotherName,
		StudentDateOfBirth:   parseDate(r.DateOfBirth),
		StudentAdmissionNo:   r.AdmissionNo,
		StudentAdmissionDate: parseDate(r.AdmissionDate),
		StudentAddress:       r.Address,
	}
}

/* =========================================================
   PATCH (tri-state)
   ========================================================= */

type PatchStudentRequest struct {
	ScholarNumber PatchField[string] `json:"student_scholar_number"`
	Name          PatchField[string] `json:"student_name"`
	FatherName    PatchField[string] `json:"student_father_name"`
	MotherName    PatchField[string] `json:"student_mother_name"`
	DateOfBirth   PatchField[string] `json:"student_date_of_birth"`
	AdmissionNo   PatchField[string] `json:"student_admission_no"`
	AdmissionDate PatchField[string] `json:"student_admission_date"`
	Address       PatchField[string] `json:"student_address"`
}

// Validate checks what can be checked without the stored row.
func (r PatchStudentRequest) Validate() error {
	if v, ok := r.ScholarNumber.Get(); ok && (v == nil || strings.TrimSpace(*v) == "") {
		return errors.New("student_scholar_number cannot be cleared")
	}
	if v, ok := r.Name.Get(); ok && (v == nil || strings.TrimSpace(*v) == "") {
		return errors.New("student_name cannot be cleared")
	}
	for name, f := range map[string]PatchField[string]{
		"student_date_of_birth":  r.DateOfBirth,
		"student_admission_date": r.AdmissionDate,
	} {
		if v, ok := f.Get(); ok && v != nil && strings.TrimSpace(*v) != "" {
			if _, err := time.Parse(dateLayout, strings.TrimSpace(*v)); err != nil {
				return errors.New(name + " must be YYYY-MM-DD")
			}
		}
	}
	return nil
}

// Apply copies the present fields onto m.
func (r PatchStudentRequest) Apply(m *model.StudentModel) {
	if v, ok := r.ScholarNumber.Get(); ok && v != nil {
		m.StudentScholarNumber = *v
	}
	if v, ok := r.Name.Get(); ok && v != nil {
		m.StudentName = *v
	}
	if v, ok := r.FatherName.Get(); ok {
		m.StudentFatherName = v
	}
	if v, ok := r.MotherName.Get(); ok {
		m.StudentMotherName = v
	}
	if v, ok := r.DateOfBirth.Get(); ok {
		m.StudentDateOfBirth = parseDate(v)
	}
	if v, ok := r.AdmissionNo.Get(); ok {
		m.StudentAdmissionNo = v
	}
	if v, ok := r.AdmissionDate.Get(); ok {
		m.StudentAdmissionDate = parseDate(v)
	}
	if v, ok := r.Address.Get(); ok {
		m.StudentAddress = v
	}
}

func parseDate(s *string) *datatypes.Date {
	if s == nil {
		return nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	d := datatypes.Date(t)
	return &d
}
