package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Session is the caller context extracted from the bearer token by the auth
// middleware. Workflows receive it explicitly instead of reading locals.
type Session struct {
	UserID   uuid.UUID
	Identity string    // uuIdentity of the caller
	SchoolID uuid.UUID // tenant (awid)
	Profiles []string  // gateway-granted profiles (Authorities, ... , StandardUsers)
}

// SessionFromLocals rebuilds the Session placed by the auth middleware.
// Returns 401 when the request never went through it.
func SessionFromLocals(c *fiber.Ctx) (Session, error) {
	v := c.Locals("session")
	if v == nil {
		return Session{}, fiber.NewError(fiber.StatusUnauthorized, "Not logged in")
	}
	sess, ok := v.(Session)
	if !ok || sess.Identity == "" {
		return Session{}, fiber.NewError(fiber.StatusUnauthorized, "Not logged in")
	}
	return sess, nil
}

// SchoolIDFromParams resolves the tenant id from the :school_id path param and
// forces it into the session (tenant always comes from the URL, never the body).
func SchoolIDFromParams(c *fiber.Ctx) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Params("school_id"))
	if raw == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Missing school_id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid school_id")
	}
	return id, nil
}

// ResolveSchoolContext combines both: session + tenant from the path.
func ResolveSchoolContext(c *fiber.Ctx) (Session, error) {
	sess, err := SessionFromLocals(c)
	if err != nil {
		return Session{}, err
	}
	schoolID, err := SchoolIDFromParams(c)
	if err != nil {
		return Session{}, err
	}
	sess.SchoolID = schoolID
	return sess, nil
}

// ParamUUID parses a uuid path param, 400 on malformed input.
func ParamUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Params(name))
	if raw == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Missing "+name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}
