// Package ledger exposes the audit log, the raw snapshot and a live
// websocket stream of ledger versions.
package ledger

import (
	"context"
	"time"

	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/domain/request"
	"github.com/amirasaad/studentaid/pkg/domain/user"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/amirasaad/studentaid/pkg/middleware"
	authsvc "github.com/amirasaad/studentaid/pkg/service/auth"
	"github.com/amirasaad/studentaid/webapi/common"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const callerKey = "ledger_caller"

// Frame is one message of the live stream. Admins receive the whole
// snapshot; everybody else receives the public feed.
type Frame struct {
	Version   uint64            `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Feed      []request.Request `json:"feed,omitempty"`
	Snapshot  *ledger.Snapshot  `json:"snapshot,omitempty"`
}

// Status reports how far persistence has caught up with the ledger.
type Status struct {
	Version        uint64 `json:"version"`
	DurableVersion uint64 `json:"durable_version"`
	LastSaveError  string `json:"last_save_error,omitempty"`
	Subscribers    int    `json:"subscribers"`
}

func Routes(app *fiber.App, store *ledger.Store, authSvc *authsvc.Service, cfg *config.App) {
	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	interval := 30 * time.Second
	if cfg.Ledger != nil && cfg.Ledger.StreamInterval > 0 {
		interval = cfg.Ledger.StreamInterval
	}
	app.Get("/admin/logs", protected, Logs(store, authSvc))
	app.Get("/admin/ledger", protected, Snapshot(store, authSvc))
	app.Get("/ledger/status", LedgerStatus(store))
	app.Use("/ledger/stream", UpgradeStream(authSvc))
	app.Get("/ledger/stream", websocket.New(Stream(store, interval)))
}

func requireAdmin(c *fiber.Ctx, authSvc *authsvc.Service) (user.User, bool, error) {
	u, ok, err := common.Caller(c, authSvc)
	if !ok {
		return u, false, err
	}
	if err := u.RequireAdmin(); err != nil {
		return u, false, common.ProblemDetailsJSON(c, "Forbidden", err)
	}
	return u, true, nil
}

// Logs lists the administrative audit log, newest first.
// @Summary Audit log
// @Tags admin
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Router /admin/logs [get]
// @Security Bearer
func Logs(store *ledger.Store, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok, err := requireAdmin(c, authSvc); !ok {
			return err
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Admin logs", store.Snapshot().Logs())
	}
}

// Snapshot returns the whole ledger document at its current version.
// @Summary Ledger snapshot
// @Tags admin
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Router /admin/ledger [get]
// @Security Bearer
func Snapshot(store *ledger.Store, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok, err := requireAdmin(c, authSvc); !ok {
			return err
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Ledger snapshot", store.Snapshot())
	}
}

// LedgerStatus reports the current and durable versions.
// @Summary Ledger status
// @Tags ledger
// @Produce json
// @Success 200 {object} common.Response
// @Router /ledger/status [get]
func LedgerStatus(store *ledger.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		durable, err := store.Durability()
		st := Status{
			Version:        store.Version(),
			DurableVersion: durable,
			Subscribers:    store.Subscribers(),
		}
		if err != nil {
			st.LastSaveError = err.Error()
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Ledger status", st)
	}
}

// UpgradeStream authenticates the websocket handshake. Browsers cannot set
// headers on the upgrade request, so the token travels as ?token=.
func UpgradeStream(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return common.ProblemDetailsJSON(c, "Upgrade Required", nil, "websocket upgrade expected", fiber.StatusUpgradeRequired)
		}
		token, err := authSvc.ParseToken(c.Query("token"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
		}
		u, err := authSvc.CurrentUser(token)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
		}
		c.Locals(callerKey, u)
		return c.Next()
	}
}

// Stream pushes a frame for the current version and for every later one,
// and pings the client every interval.
func Stream(store *ledger.Store, interval time.Duration) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		caller, _ := conn.Locals(callerKey).(user.User)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// The reader only notices the close frame.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		snaps := store.Watch(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snaps:
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "ledger closed"))
					return
				}
				if err := conn.WriteJSON(frameFor(caller, snap)); err != nil {
					log.Debugf("ledger stream write failed: %v", err)
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval)); err != nil {
					return
				}
			}
		}
	}
}

func frameFor(caller user.User, snap ledger.Snapshot) Frame {
	f := Frame{Version: snap.Version, UpdatedAt: snap.UpdatedAt}
	if caller.IsAdmin() {
		f.Snapshot = &snap
	} else {
		f.Feed = snap.Feed(request.FeedByUrgency)
	}
	return f
}
