// Package testutils provides an end-to-end suite that drives the full HTTP
// application over a freshly seeded in-memory ledger.
package testutils

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	infraeventbus "github.com/amirasaad/studentaid/infra/eventbus"
	"github.com/amirasaad/studentaid/pkg/app"
	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/amirasaad/studentaid/webapi"
	"github.com/amirasaad/studentaid/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

// Seeded accounts used across handler tests.
const (
	AdminEmail      = "audit@studentaid.network"
	VerifiedEmail   = "rahul.mehra@bits-pilani.ac.in" // u2, owns r1
	DonorEmail      = "vikram.rao@iitb.ac.in"         // u3
	UnverifiedEmail = "sanya.malhotra@jnu.ac.in"      // u7
)

// E2ETestSuite builds a new application for every test so tests never share
// ledger state.
type E2ETestSuite struct {
	suite.Suite
	App   *app.App
	Fiber *fiber.App
	Bus   *infraeventbus.MemoryEventBus
	Cfg   *config.App
}

// TestConfig returns a configuration with a generous rate limit.
func TestConfig() *config.App {
	return &config.App{
		Env:       "test",
		Auth:      &config.Auth{Jwt: &config.Jwt{Secret: "test-secret", Expiry: time.Hour}},
		RateLimit: &config.RateLimit{MaxRequests: 1000, Window: time.Minute},
		Ledger: &config.Ledger{
			Backend:        config.BackendMemory,
			UrgencyWeight:  25,
			StreamInterval: 50 * time.Millisecond,
		},
	}
}

// NewTestApp opens a seeded in-memory ledger and wires the full application.
func NewTestApp(cfg *config.App) (*app.App, *infraeventbus.MemoryEventBus, func(), error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := ledger.Open(context.Background(), ledger.NewMemoryPersister(), ledger.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	bus := infraeventbus.NewWithMemory(logger)
	a := app.New(&app.Deps{Store: store, EventBus: bus, Logger: logger}, cfg)
	return a, bus, func() { _ = store.Close(context.Background()) }, nil
}

func (s *E2ETestSuite) SetupTest() {
	s.Cfg = TestConfig()
	a, bus, cleanup, err := NewTestApp(s.Cfg)
	s.Require().NoError(err)
	s.T().Cleanup(cleanup)
	s.App = a
	s.Bus = bus
	s.Fiber = webapi.SetupApp(a)
}

// MakeRequest sends a request through the fiber app.
func (s *E2ETestSuite) MakeRequest(method, path, body, token string) *http.Response {
	return s.MakeRequestWithHeaders(method, path, body, token, nil)
}

// MakeRequestWithHeaders is MakeRequest with extra headers.
func (s *E2ETestSuite) MakeRequestWithHeaders(method, path, body, token string, headers map[string]string) *http.Response {
	resp, err := MakeRequestWithApp(s.Fiber, method, path, body, token, headers)
	s.Require().NoError(err)
	return resp
}

// LoginAs returns a bearer token for the seeded account with email.
func (s *E2ETestSuite) LoginAs(email string) string {
	resp := s.MakeRequest(fiber.MethodPost, "/auth/login", `{"email":"`+email+`"}`, "")
	defer resp.Body.Close() //nolint:errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var out common.Response
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	token, _ := out.Data.(map[string]any)["token"].(string)
	s.Require().NotEmpty(token)
	return token
}

// DecodeData decodes the envelope of resp and re-decodes its data into v.
func (s *E2ETestSuite) DecodeData(resp *http.Response, v any) {
	var out struct {
		Data json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	s.Require().NoError(json.Unmarshal(out.Data, v))
}

// MakeRequestWithApp sends a request through app without a suite.
func MakeRequestWithApp(app *fiber.App, method, path, body, token string, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return app.Test(req, -1)
}
