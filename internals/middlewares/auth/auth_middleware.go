// internals/middlewares/auth/auth_middleware.go
package auth

import (
	"log"
	"strings"
	"time"

	helper "schooldesk_backend/internals/helpers"
	helperAuth "schooldesk_backend/internals/helpers/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const expirySkew = 30 * time.Second

// VerifySupabaseJWT checks the HS256 access token issued by the hosted auth
// provider and stores sub, email and app_metadata.role in locals. Sign-in,
// refresh and password handling stay with the provider.
func VerifySupabaseJWT(secret string) fiber.Handler {
	secret = strings.TrimSpace(secret)
	return func(c *fiber.Ctx) error {
		if secret == "" {
			log.Println("[ERROR] SUPABASE_JWT_SECRET is empty, refusing request")
			return helper.JsonError(c, fiber.StatusInternalServerError, "")
		}

		tokenString, err := extractBearerToken(c)
		if err != nil {
			return helper.JsonError(c, fiber.StatusUnauthorized, err.Error())
		}

		claims := jwt.MapClaims{}
		parser := jwt.Parser{SkipClaimsValidation: true}
		_, err = parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil {
			log.Printf("[AUTH] token rejected %s %s: %v", c.Method(), c.Path(), err)
			return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized - invalid token")
		}

		if err := validateTokenExpiry(claims, expirySkew); err != nil {
			log.Printf("[AUTH] %v", err)
			return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized - token expired")
		}

		userID, err := extractSubject(claims)
		if err != nil {
			log.Printf("[AUTH] sub: %v", err)
			return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized - invalid or missing user id")
		}
		c.Locals(helperAuth.LocUserID, userID.String())
		storeClaimsToLocals(c, claims)
		return c.Next()
	}
}
