// file: internals/features/school/academics/subjects/dto/subject_dto.go
package dto

import (
	"strings"

	"schooldesk_backend/internals/features/school/academics/subjects/model"
)

type CreateSubjectRequest struct {
	ClassLevel   string  `json:"subject_class_level"   validate:"required,min=1,max=32"`
	Name         string  `json:"subject_name"          validate:"required,min=1,max=120"`
	GroupName    *string `json:"subject_group_name"    validate:"omitempty,max=120"`
	DisplayOrder int     `json:"subject_display_order" validate:"gte=0"`
}

func (r *CreateSubjectRequest) Normalize() {
	r.ClassLevel = strings.TrimSpace(r.ClassLevel)
	r.Name = strings.Join(strings.Fields(r.Name), " ")
	if r.GroupName != nil {
		g := strings.Join(strings.Fields(*r.GroupName), " ")
		r.GroupName = &g
	}
}

// ToModel leaves the group empty when not given; the model derives it.
func (r CreateSubjectRequest) ToModel() *model.SubjectModel {
	m := &model.SubjectModel{
		SubjectClassLevel:   r.ClassLevel,
		SubjectName:         r.Name,
		SubjectDisplayOrder: r.DisplayOrder,
	}
	if r.GroupName != nil {
		m.SubjectGroupName = *r.GroupName
	}
	m.ApplyDefaults()
	return m
}
