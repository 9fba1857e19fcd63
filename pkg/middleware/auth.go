// Package middleware holds the fiber middleware shared by the web handlers.
package middleware

import (
	"errors"

	"github.com/amirasaad/studentaid/pkg/config"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// errNoSigningKey rejects every request when no secret is configured.
var errNoSigningKey = errors.New("jwt secret is not configured")

// JwtProtected verifies the HS256 bearer token and stores it in
// c.Locals("user"). Without a secret every request is rejected.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	secret := ""
	if cfg != nil {
		secret = cfg.Secret
	}
	if secret == "" {
		return func(c *fiber.Ctx) error { return jwtError(c, errNoSigningKey) }
	}
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{JWTAlg: jwt.SigningMethodHS256.Alg(), Key: []byte(secret)},
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	status := fiber.StatusUnauthorized
	title := "Invalid or expired JWT"
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		status = fiber.StatusBadRequest
		title = "Missing or malformed JWT"
	}
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   err.Error(),
		"instance": c.OriginalURL(),
	}, "application/problem+json")
}
