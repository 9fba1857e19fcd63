package app

import (
	"log/slog"
	"time"

	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	"github.com/amirasaad/studentaid/pkg/handler/notification"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/amirasaad/studentaid/pkg/service/auth"
	"github.com/amirasaad/studentaid/pkg/service/donation"
	"github.com/amirasaad/studentaid/pkg/service/request"
	"github.com/amirasaad/studentaid/pkg/service/user"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	Store    *ledger.Store
	EventBus eventbus.Bus
	// Notifier receives decision notifications. Nil means log them.
	Notifier notification.Notifier
	Logger   *slog.Logger
}

type App struct {
	Deps            *Deps
	Config          *config.App
	AuthService     *auth.Service
	UserService     *user.Service
	RequestService  *request.Service
	DonationService *donation.Service
}

func New(deps *Deps, cfg *config.App) *App {
	if deps.Notifier == nil {
		deps.Notifier = notification.LogNotifier{Logger: deps.Logger}
	}
	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	app.setupEventBus()

	var opts []request.Option
	if cfg.Ledger != nil && cfg.Ledger.UrgencyWeight > 0 {
		opts = append(opts, request.WithUrgencyWeight(cfg.Ledger.UrgencyWeight))
	}
	jwtCfg := &config.Jwt{Expiry: 24 * time.Hour}
	if cfg.Auth != nil && cfg.Auth.Jwt != nil {
		jwtCfg = cfg.Auth.Jwt
	}

	app.AuthService = auth.New(deps.Store, jwtCfg, deps.Logger)
	app.UserService = user.New(deps.Store, deps.EventBus, deps.Logger)
	app.RequestService = request.New(deps.Store, deps.EventBus, deps.Logger, opts...)
	app.DonationService = donation.New(deps.Store, deps.EventBus, deps.Logger)
	return app
}
