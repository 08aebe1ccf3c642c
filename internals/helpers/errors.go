// file: internals/helpers/errors.go
package helper

import (
	"errors"
	"log"
	"strings"

	"schooldesk_backend/internals/features/school/exams/reconcile"
	"schooldesk_backend/internals/features/school/store"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// FromServiceError turns a service error into the JSON envelope:
//
//	reconcile validation errors -> 422 with per-row details
//	*fiber.Error                -> its own code and message
//	store.ErrNotFound           -> 404
//	store.ErrConflict           -> 409
//	anything else               -> 500, logged
func FromServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}
	if verrs, ok := reconcile.AsValidation(err); ok {
		msg := "validation failed"
		if len(verrs) == 1 {
			msg = verrs[0].Error()
		}
		return JsonRowErrors(c, msg, verrs)
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return JsonError(c, fe.Code, fe.Message)
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return JsonError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		return JsonError(c, fiber.StatusConflict, "already exists")
	}
	log.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	return JsonError(c, fiber.StatusInternalServerError, "")
}

// FromValidator maps validator.v10 errors to field -> tags.
func FromValidator(c *fiber.Ctx, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return JsonError(c, fiber.StatusBadRequest, "invalid input")
	}
	fields := make(map[string][]string, len(ve))
	for _, fe := range ve {
		name := strings.ToLower(fe.Field())
		msg := fe.Tag()
		if p := fe.Param(); p != "" {
			msg += "=" + p
		}
		fields[name] = append(fields[name], msg)
	}
	return JsonValidationError(c, fields)
}
