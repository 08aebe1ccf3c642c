// file: internals/helpers/auth/actor.go
package helper

import (
	"strings"

	"schooldesk_backend/internals/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys set by VerifySupabaseJWT
const (
	LocUserID    = "user_id"
	LocUserEmail = "user_email"
	LocUserRole  = "userRole"
)

// Actor is the authenticated staff member behind a request.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

func (a Actor) IsPrincipal() bool { return a.Role == constants.RolePrincipal }

// ActorFromCtx reads the identity the auth middleware stored in locals.
func ActorFromCtx(c *fiber.Ctx) (Actor, error) {
	raw, _ := c.Locals(LocUserID).(string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Actor{}, fiber.NewError(fiber.StatusUnauthorized, "not logged in")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return Actor{}, fiber.NewError(fiber.StatusUnauthorized, "user id in token is not valid")
	}
	role, _ := c.Locals(LocUserRole).(string)
	switch role {
	case constants.RolePrincipal, constants.RoleTeacher:
	default:
		return Actor{}, fiber.NewError(fiber.StatusForbidden, "unknown role")
	}
	email, _ := c.Locals(LocUserEmail).(string)
	return Actor{UserID: id, Email: email, Role: role}, nil
}
