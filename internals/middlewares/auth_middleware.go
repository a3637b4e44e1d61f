// file: internals/middlewares/auth_middleware.go
package middlewares

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"schoolkit_backend/internals/configs"
	helper "schoolkit_backend/internals/helpers"
)

// AuthJWT verifies the gateway-issued bearer token (HS256) and places the
// rebuilt helper.Session into locals for the controllers. The gateway already
// authenticated the user; we only verify the signature and expiry here.
func AuthJWT() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := extractBearerToken(c)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		secret := configs.JWTSecret
		if secret == "" {
			log.Println("[ERROR] JWT_SECRET is empty")
			return fiber.NewError(fiber.StatusInternalServerError, "Missing JWT Secret")
		}

		claims := jwt.MapClaims{}
		if _, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Unexpected signing method")
			}
			return []byte(secret), nil
		}); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token parse error")
		}

		if err := validateExpiry(claims, 30*time.Second); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token expired")
		}

		sess, err := sessionFromClaims(claims)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		c.Locals("session", sess)
		return c.Next()
	}
}

// RequireProfiles blocks callers whose gateway profiles contain none of the
// wanted ones. The per-entity authorization resolver still runs afterwards;
// this is only the coarse route gate.
func RequireProfiles(wanted ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := helper.SessionFromLocals(c)
		if err != nil {
			return err
		}
		for _, w := range wanted {
			for _, p := range sess.Profiles {
				if p == w {
					return c.Next()
				}
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Insufficient profile")
	}
}

func extractBearerToken(c *fiber.Ctx) (string, error) {
	authHeader := strings.TrimSpace(c.Get("Authorization"))
	if authHeader == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Malformed Authorization header")
	}
	return parts[1], nil
}

func validateExpiry(claims jwt.MapClaims, leeway time.Duration) error {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing exp claim")
	}
	if time.Now().Add(-leeway).After(time.Unix(int64(exp), 0)) {
		return fiber.NewError(fiber.StatusUnauthorized, "Token expired")
	}
	return nil
}

func sessionFromClaims(claims jwt.MapClaims) (helper.Session, error) {
	sess := helper.Session{}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		sub, _ = claims["user_id"].(string)
	}
	if id, err := uuid.Parse(sub); err == nil {
		sess.UserID = id
	}

	identity, _ := claims["uu_identity"].(string)
	if identity == "" {
		identity, _ = claims["identity"].(string)
	}
	if identity == "" {
		return sess, fiber.NewError(fiber.StatusUnauthorized, "Missing identity claim")
	}
	sess.Identity = identity

	if rawProfiles, ok := claims["profiles"].([]interface{}); ok {
		for _, p := range rawProfiles {
			if s, ok := p.(string); ok {
				sess.Profiles = append(sess.Profiles, s)
			}
		}
	}
	return sess, nil
}
