// file: internals/helpers/dbtime/dbtime.go
package dbtime

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LocSchoolLoc holds the *time.Location set by UseSchoolLocation.
const LocSchoolLoc = "school_loc"

// LoadLocation resolves APP_TIMEZONE, falling back to UTC.
func LoadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[WARN] APP_TIMEZONE %q not loadable, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// UseSchoolLocation stores loc in locals for every request.
func UseSchoolLocation(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(LocSchoolLoc, loc)
		return c.Next()
	}
}

func GetSchoolLocation(c *fiber.Ctx) *time.Location {
	if c != nil {
		if loc, ok := c.Locals(LocSchoolLoc).(*time.Location); ok && loc != nil {
			return loc
		}
	}
	return time.UTC
}

func NowInSchool(c *fiber.Ctx) time.Time {
	return time.Now().In(GetSchoolLocation(c))
}

// TodayInSchool is the school's calendar day as a UTC midnight, the form
// attendance dates are stored in.
func TodayInSchool(c *fiber.Ctx) time.Time {
	return DateOnly(NowInSchool(c))
}

func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
