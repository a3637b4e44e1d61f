// file: internals/registry/token.go
package registry

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"schoolkit_backend/internals/configs"
	"schoolkit_backend/internals/helpers/errs"
)

// MintToken issues the short-lived per-destination token the registries
// expect, derived from the caller's session identity. Token acquisition
// failure is a hard failure of whichever workflow step needed it.
func MintToken(identity, schoolID, audience string) (string, error) {
	if configs.RegistryJWTSecret == "" {
		return "", errs.RemoteCall("token/mint", errs.Validation("missingRegistrySecret", "REGISTRY_JWT_SECRET is not configured"))
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  identity,
		"awid": schoolID,
		"aud":  audience,
		"iat":  now.Unix(),
		"exp":  now.Add(5 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.RegistryJWTSecret))
	if err != nil {
		return "", errs.RemoteCall("token/mint", err)
	}
	return signed, nil
}
