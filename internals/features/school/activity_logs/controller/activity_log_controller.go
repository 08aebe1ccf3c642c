package controller

import (
	"strings"

	activityModel "schooldesk_backend/internals/features/school/activity_logs/model"
	"schooldesk_backend/internals/features/school/activity_logs/service"
	"schooldesk_backend/internals/features/school/store"
	helper "schooldesk_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
)

type ActivityLogController struct {
	Svc service.ActivityLogService
}

func NewActivityLogController(svc service.ActivityLogService) *ActivityLogController {
	return &ActivityLogController{Svc: svc}
}

// GET /api/activity-logs?page=&per_page=&action=&entity_type=&actor_id=&since=
func (ctrl *ActivityLogController) List(c *fiber.Ctx) error {
	p := helper.ResolvePaging(c, 50, 200)

	actorID, err := helper.ParseUUIDQuery(c, "actor_id")
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	since, err := helper.ParseDateQuery(c, "since")
	if err != nil {
		return helper.FromServiceError(c, err)
	}

	f := store.ActivityLogFilter{
		ActorID:    actorID,
		Action:     strings.TrimSpace(c.Query("action")),
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		Offset:     p.Offset,
		Limit:      p.Limit,
	}
	if !since.IsZero() {
		f.Since = &since
	}

	rows, total, err := ctrl.Svc.List(c.UserContext(), f)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if rows == nil {
		rows = []activityModel.ActivityLogModel{}
	}
	return helper.JsonList(c, "activity logs", rows, helper.BuildPaginationFromOffset(total, p.Offset, p.Limit, len(rows)))
}
