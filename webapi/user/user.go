package user

import (
	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/middleware"
	authsvc "github.com/amirasaad/studentaid/pkg/service/auth"
	usersvc "github.com/amirasaad/studentaid/pkg/service/user"
	"github.com/amirasaad/studentaid/webapi/common"
	"github.com/gofiber/fiber/v2"
)

func Routes(app *fiber.App, userSvc *usersvc.Service, authSvc *authsvc.Service, cfg *config.App) {
	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	app.Get("/user/me", protected, Me(authSvc))
	app.Get("/user/summary", protected, Summary(userSvc, authSvc))
	app.Post("/user/verification", protected, SubmitVerification(userSvc, authSvc))
	app.Get("/admin/verifications", protected, PendingVerifications(userSvc, authSvc))
	app.Post("/admin/users/:id/verification", protected, DecideVerification(userSvc, authSvc))
}

// Me returns the authenticated user.
// @Summary Current user
// @Description Return the account bound to the bearer token
// @Tags users
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /user/me [get]
// @Security Bearer
func Me(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User found", u)
	}
}

// Summary returns the dashboard totals of the authenticated user.
// @Summary Current user totals
// @Description Requests filed and aid received, donations made and total donated
// @Tags users
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /user/summary [get]
// @Security Bearer
func Summary(userSvc *usersvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		sum, err := userSvc.Summary(c.Context(), u.ID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to load summary", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Summary", sum)
	}
}

// SubmitVerification stores identity evidence and puts the caller into review.
// @Summary Submit identity verification
// @Description Record the institution and student ID card of the caller. Resets verification to pending.
// @Tags users
// @Accept json
// @Produce json
// @Param request body VerificationInput true "Verification evidence"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails
// @Router /user/verification [post]
// @Security Bearer
func SubmitVerification(userSvc *usersvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[VerificationInput](c)
		if input == nil {
			return err
		}
		caller, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		u, err := userSvc.SubmitVerification(c.Context(), caller.ID, input.Institution, input.IDCardURL)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't submit verification", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Verification submitted", u)
	}
}

// PendingVerifications lists users awaiting an identity decision.
// @Summary Pending verifications
// @Description Admin review queue of users whose verification is pending
// @Tags admin
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Router /admin/verifications [get]
// @Security Bearer
func PendingVerifications(userSvc *usersvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		users, err := userSvc.PendingVerifications(c.Context(), admin)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Forbidden", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Pending verifications", users)
	}
}

// DecideVerification approves or rejects a user's identity.
// @Summary Decide verification
// @Description Apply an administrator verdict and append an audit entry
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body DecisionInput true "Verdict"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/users/{id}/verification [post]
// @Security Bearer
func DecideVerification(userSvc *usersvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[DecisionInput](c)
		if input == nil {
			return err
		}
		decision, err := domain.ParseDecision(input.Decision)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid decision", err)
		}
		admin, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		u, err := userSvc.DecideVerification(c.Context(), c.Params("id"), decision, admin)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't decide verification", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Verification "+string(decision), u)
	}
}
