package donation

import (
	"errors"

	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/middleware"
	authsvc "github.com/amirasaad/studentaid/pkg/service/auth"
	donationsvc "github.com/amirasaad/studentaid/pkg/service/donation"
	"github.com/amirasaad/studentaid/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// ErrDonorNotVerified is returned when an unverified user tries to donate.
var ErrDonorNotVerified = errors.Join(errors.New("donor identity is not verified"), domain.ErrForbidden)

func Routes(
	app *fiber.App,
	donationSvc *donationsvc.Service,
	authSvc *authsvc.Service,
	idem *common.IdempotencyStore,
	cfg *config.App,
) {
	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	app.Post("/requests/:id/donations", protected, common.Idempotent(idem), Donate(donationSvc, authSvc))
	app.Get("/requests/:id/donations", ForRequest(donationSvc))
	app.Get("/donations/mine", protected, MyDonations(donationSvc, authSvc))
}

// Donate records a settled donation against an approved request.
// @Summary Donate
// @Description Record a donation and raise the request total atomically. Only verified users may donate. Send an Idempotency-Key header to make retries safe.
// @Tags donations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body DonateInput true "Donation"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails
// @Router /requests/{id}/donations [post]
// @Security Bearer
func Donate(donationSvc *donationsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[DonateInput](c)
		if input == nil {
			return err
		}
		donor, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		if !donor.IsVerified {
			return common.ProblemDetailsJSON(c, "Forbidden", ErrDonorNotVerified, "Verify your student identity before donating")
		}
		d, r, err := donationSvc.RecordDonation(c.Context(), c.Params("id"), donor, input.Amount, input.PaymentMode)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't record donation", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Donation recorded", fiber.Map{
			"donation": d,
			"request": fiber.Map{
				"request_id":       r.ID,
				"amount_raised":    r.AmountRaised,
				"requested_amount": r.RequestedAmount,
				"progress":         r.Progress(),
				"funded":           r.IsFunded(),
			},
		})
	}
}

// ForRequest lists the donations made to a request, newest first.
// @Summary Donations for request
// @Tags donations
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} common.Response
// @Router /requests/{id}/donations [get]
func ForRequest(donationSvc *donationsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Donations", donationSvc.ForRequest(c.Context(), c.Params("id")))
	}
}

// MyDonations lists the caller's donations, newest first.
// @Summary My donations
// @Tags donations
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /donations/mine [get]
// @Security Bearer
func MyDonations(donationSvc *donationsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Donations", donationSvc.ByDonor(c.Context(), caller.ID))
	}
}
