package common

import (
	"github.com/amirasaad/studentaid/pkg/domain/user"
	authsvc "github.com/amirasaad/studentaid/pkg/service/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Caller resolves the user behind the verified token stored by the JWT
// middleware. On failure it writes a 401 and returns ok=false.
func Caller(c *fiber.Ctx, authSvc *authsvc.Service) (u user.User, ok bool, err error) {
	token, _ := c.Locals("user").(*jwt.Token)
	u, err = authSvc.CurrentUser(token)
	if err != nil {
		return user.User{}, false, ProblemDetailsJSON(c, "Unauthorized", err, "missing or unknown user", fiber.StatusUnauthorized)
	}
	return u, true, nil
}
