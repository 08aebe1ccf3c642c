// file: internals/features/school/activity_logs/model/activity_logs_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Action tags
const (
	ActionStudentCreate    = "student.create"
	ActionStudentUpdate    = "student.update"
	ActionStudentDelete    = "student.delete"
	ActionSubjectCreate    = "subject.create"
	ActionAttendanceMark   = "attendance.mark"
	ActionMarksSave        = "marks.save"
	ActionMarksImport      = "marks.import"
	ActionNonScholastic    = "non_scholastic.import"
	ActionConfigUpdate     = "exam_configuration.update"
	ActionReportRemarkSave = "report_remark.save"
)

// ActivityLogModel is append-only.
type ActivityLogModel struct {
	ActivityLogID          uuid.UUID      `gorm:"column:activity_log_id;type:uuid;default:gen_random_uuid();primaryKey" json:"activity_log_id"`
	ActivityLogActorID     *uuid.UUID     `gorm:"column:activity_log_actor_id;type:uuid;index:idx_activity_logs_actor" json:"activity_log_actor_id,omitempty"`
	ActivityLogActorEmail  string         `gorm:"column:activity_log_actor_email;type:varchar(160)" json:"activity_log_actor_email"`
	ActivityLogAction      string         `gorm:"column:activity_log_action;type:varchar(64);not null;index:idx_activity_logs_action" json:"activity_log_action"`
	ActivityLogEntityType  string         `gorm:"column:activity_log_entity_type;type:varchar(64);not null" json:"activity_log_entity_type"`
	ActivityLogEntityID    *uuid.UUID     `gorm:"column:activity_log_entity_id;type:uuid" json:"activity_log_entity_id,omitempty"`
	ActivityLogDescription string         `gorm:"column:activity_log_description;type:text" json:"activity_log_description"`
	ActivityLogMetadata    datatypes.JSON `gorm:"column:activity_log_metadata;type:jsonb" json:"activity_log_metadata,omitempty"`

	ActivityLogCreatedAt time.Time `gorm:"column:activity_log_created_at;type:timestamptz;not null;autoCreateTime;index:idx_activity_logs_created" json:"activity_log_created_at"`
}

func (ActivityLogModel) TableName() string { return "activity_logs" }
