// file: internals/features/school/activity_logs/service/activity_log_service.go
package service

import (
	"context"
	"log"
	"sync"
	"time"

	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	"schooldesk_backend/internals/features/school/store"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const appendTimeout = 5 * time.Second

type Entry struct {
	Action      string
	EntityType  string
	EntityID    *uuid.UUID
	Description string
	Metadata    map[string]any
}

type ActivityLogService interface {
	// Record appends in the background. A failed write is logged and never
	// reaches the caller.
	Record(ctx context.Context, actor helperAuth.Actor, e Entry)
	List(ctx context.Context, f store.ActivityLogFilter) ([]activityModel.ActivityLogModel, int64, error)
	// Wait blocks until pending writes finish; used on shutdown and in tests.
	Wait()
}

type activityLogSvc struct {
	st store.Store
	wg sync.WaitGroup
}

func NewActivityLogService(st store.Store) ActivityLogService {
	return &activityLogSvc{st: st}
}

func (s *activityLogSvc) Record(ctx context.Context, actor helperAuth.Actor, e Entry) {
	row := activityModel.ActivityLogModel{
		ActivityLogActorEmail:  actor.Email,
		ActivityLogAction:      e.Action,
		ActivityLogEntityType:  e.EntityType,
		ActivityLogEntityID:    e.EntityID,
		ActivityLogDescription: e.Description,
	}
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		row.ActivityLogActorID = &id
	}
	if len(e.Metadata) > 0 {
		if b, err := sonic.Marshal(e.Metadata); err == nil {
			row.ActivityLogMetadata = datatypes.JSON(b)
		} else {
			log.Printf("[ACTIVITY] WARN metadata for %s not encodable: %v", e.Action, err)
		}
	}

	// detached from the request so a finished response does not cancel it
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c, cancel := context.WithTimeout(bg, appendTimeout)
		defer cancel()
		if err := s.st.AppendActivityLog(c, &row); err != nil {
			log.Printf("[ACTIVITY] ERROR append action=%s entity=%s actor=%s err=%v", row.ActivityLogAction, row.ActivityLogEntityType, actor.Email, err)
		}
	}()
}

func (s *activityLogSvc) List(ctx context.Context, f store.ActivityLogFilter) ([]activityModel.ActivityLogModel, int64, error) {
	return s.st.ListActivityLogs(ctx, f)
}

func (s *activityLogSvc) Wait() { s.wg.Wait() }
