package request

import (
	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/middleware"
	authsvc "github.com/amirasaad/studentaid/pkg/service/auth"
	requestsvc "github.com/amirasaad/studentaid/pkg/service/request"
	"github.com/amirasaad/studentaid/webapi/common"
	"github.com/gofiber/fiber/v2"
)

func Routes(app *fiber.App, requestSvc *requestsvc.Service, authSvc *authsvc.Service, cfg *config.App) {
	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	app.Get("/feed", Feed(requestSvc))
	app.Post("/requests", protected, CreateRequest(requestSvc, authSvc))
	app.Get("/requests/mine", protected, MyRequests(requestSvc, authSvc))
	app.Get("/requests/:id", protected, GetRequest(requestSvc, authSvc))
	app.Get("/admin/requests", protected, PendingRequests(requestSvc, authSvc))
	app.Post("/admin/requests/:id/decision", protected, DecideRequest(requestSvc, authSvc))
	app.Post("/admin/requests/:id/close", protected, CloseRequest(requestSvc, authSvc))
}

// Feed lists approved requests, most urgent first.
// @Summary Public feed
// @Description Approved requests ranked by sort: urgency (default, newest first on ties), critical (urgency plus the unfunded gap in thousands) or newest. Hidden identities are masked.
// @Tags requests
// @Produce json
// @Param sort query string false "urgency, critical or newest"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Router /feed [get]
func Feed(requestSvc *requestsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := request.ParseFeedOrder(c.Query("sort"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid sort order", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Feed", toViews(requestSvc.Feed(c.Context(), order)))
	}
}

// CreateRequest opens a pending funding request owned by the caller.
// @Summary Create request
// @Description Raise a funding request. It starts pending with nothing raised.
// @Tags requests
// @Accept json
// @Produce json
// @Param request body CreateRequestInput true "Request data"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 503 {object} common.ProblemDetails
// @Router /requests [post]
// @Security Bearer
func CreateRequest(requestSvc *requestsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[CreateRequestInput](c)
		if input == nil {
			return err
		}
		urgency, err := request.ParseUrgency(input.UrgencyLevel)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid urgency level", err)
		}
		caller, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		r, err := requestSvc.CreateRequest(c.Context(), caller.ID, requestsvc.CreateInput{
			Title:           input.Title,
			Description:     input.Description,
			Category:        request.Category(input.Category),
			RequestedAmount: input.RequestedAmount,
			Urgency:         urgency,
			HideIdentity:    input.HideIdentity,
			Deadline:        input.Deadline,
			ImageURL:        input.ImageURL,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't create request", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Request created", toView(r))
	}
}

// GetRequest returns one request. Owners and admins see it unmasked; other
// callers only see published requests, masked.
// @Summary Get request
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /requests/{id} [get]
// @Security Bearer
func GetRequest(requestSvc *requestsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		r, err := requestSvc.GetRequest(c.Context(), c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Request not found", err)
		}
		if caller.ID != r.UserID && !caller.IsAdmin() {
			if r.Status != request.StatusApproved && r.Status != request.StatusClosed {
				// Unpublished requests are invisible to other students.
				return common.ProblemDetailsJSON(c, "Request not found", request.ErrRequestNotFound)
			}
			r = r.Public()
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Request found", toView(r))
	}
}

// MyRequests lists the caller's own requests, newest first.
// @Summary My requests
// @Tags requests
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /requests/mine [get]
// @Security Bearer
func MyRequests(requestSvc *requestsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Requests", toViews(requestSvc.ByOwner(c.Context(), caller.ID)))
	}
}

// PendingRequests lists the admin review queue, oldest first.
// @Summary Pending requests
// @Tags admin
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Router /admin/requests [get]
// @Security Bearer
func PendingRequests(requestSvc *requestsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		rs, err := requestSvc.Pending(c.Context(), admin)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Forbidden", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Pending requests", toViews(rs))
	}
}

// DecideRequest approves or rejects a pending request.
// @Summary Decide request
// @Description Approve or reject a pending request. Deciding twice is a conflict.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body DecisionInput true "Verdict"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Router /admin/requests/{id}/decision [post]
// @Security Bearer
func DecideRequest(requestSvc *requestsvc.Service, authSvc *authsvc.Service) fiber.Handler {
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
		r, err := requestSvc.DecideRequest(c.Context(), c.Params("id"), decision, admin)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't decide request", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Request "+string(decision), toView(r))
	}
}

// CloseRequest retires an approved request from the feed.
// @Summary Close request
// @Tags admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Router /admin/requests/{id}/close [post]
// @Security Bearer
func CloseRequest(requestSvc *requestsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, ok, err := common.Caller(c, authSvc)
		if !ok {
			return err
		}
		r, err := requestSvc.CloseRequest(c.Context(), c.Params("id"), admin)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't close request", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Request closed", toView(r))
	}
}
