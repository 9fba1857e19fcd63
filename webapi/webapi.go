// Package webapi provides HTTP handlers and API endpoints for the student aid ledger.
// It is organized into sub-packages for different domains:
// - auth: Registration and login
// - user: Profile and identity verification endpoints
// - request: Funding request workflow and the public feed
// - donation: Donation endpoints
// - ledger: Audit log, snapshot and live stream
package webapi

import (
	"errors"
	"strings"
	"time"

	"github.com/amirasaad/studentaid/pkg/app"
	"github.com/amirasaad/studentaid/pkg/config"
	authweb "github.com/amirasaad/studentaid/webapi/auth"
	"github.com/amirasaad/studentaid/webapi/common"
	donationweb "github.com/amirasaad/studentaid/webapi/donation"
	ledgerweb "github.com/amirasaad/studentaid/webapi/ledger"
	requestweb "github.com/amirasaad/studentaid/webapi/request"
	userweb "github.com/amirasaad/studentaid/webapi/user"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/gofiber/swagger"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(app *app.App) *fiber.App {
	cfg := withDefaults(app.Config)

	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := common.ErrorToStatusCode(err)
			return common.ProblemDetailsJSON(c, utils.StatusMessage(code), err, code)
		},
	})
	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		WithCredentials:      true,
		PersistAuthorization: true,
	}))

	// Configure rate limiting middleware
	// Uses X-Forwarded-For header when behind a proxy
	// Falls back to X-Real-IP or direct IP if needed
	fiberApp.Use(limiter.New(limiter.Config{
		Max:          cfg.RateLimit.MaxRequests,
		Expiration:   cfg.RateLimit.Window,
		KeyGenerator: clientKey,
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Health check endpoint
	fiberApp.Get(
		"/",
		func(c *fiber.Ctx) error {
			return c.SendString("Student Aid API is running! 🚀")
		},
	)

	// Debug endpoint to list all routes
	fiberApp.Get("/debug/routes", func(c *fiber.Ctx) error {
		routes := fiberApp.GetRoutes()
		var routeList []map[string]any
		for _, route := range routes {
			if route.Path != "" {
				routeList = append(routeList, map[string]any{
					"method": route.Method,
					"path":   route.Path,
				})
			}
		}
		return c.JSON(routeList)
	})

	idem := common.NewIdempotencyStore(cfg.Idempotency.TTL)
	authweb.Routes(fiberApp, app.AuthService, app.UserService)
	userweb.Routes(fiberApp, app.UserService, app.AuthService, cfg)
	requestweb.Routes(fiberApp, app.RequestService, app.AuthService, cfg)
	donationweb.Routes(fiberApp, app.DonationService, app.AuthService, idem, cfg)
	ledgerweb.Routes(fiberApp, app.Deps.Store, app.AuthService, cfg)
	return fiberApp
}

func clientKey(c *fiber.Ctx) string {
	// Use X-Forwarded-For header if available (for load balancers/proxies)
	// Fall back to X-Real-IP, then to direct IP
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		// Take the first IP in the chain
		if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
			return strings.TrimSpace(forwardedFor[:commaIndex])
		}
		return strings.TrimSpace(forwardedFor)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}

// withDefaults fills the sections the routes dereference, so a partial
// configuration still produces a working app.
func withDefaults(cfg *config.App) *config.App {
	if cfg == nil {
		cfg = &config.App{}
	}
	out := *cfg
	if out.RateLimit == nil {
		out.RateLimit = &config.RateLimit{MaxRequests: 100, Window: time.Minute}
	}
	if out.Auth == nil {
		out.Auth = &config.Auth{}
	}
	if out.Auth.Jwt == nil {
		out.Auth = &config.Auth{Jwt: &config.Jwt{Expiry: 24 * time.Hour}}
	}
	if out.Ledger == nil {
		out.Ledger = &config.Ledger{StreamInterval: 30 * time.Second}
	}
	if out.Idempotency == nil {
		out.Idempotency = &config.Idempotency{TTL: 24 * time.Hour}
	}
	return &out
}
