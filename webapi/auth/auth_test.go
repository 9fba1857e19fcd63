package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/amirasaad/studentaid/webapi/common"
	"github.com/amirasaad/studentaid/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

type AuthTestSuite struct {
	testutils.E2ETestSuite
}

func (s *AuthTestSuite) TestLoginRoute_BadRequest() {
	resp := s.MakeRequest("POST", "/auth/login", `{"email":123}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
	s.Equal("application/problem+json", resp.Header.Get("Content-Type"))
}

func (s *AuthTestSuite) TestLoginRoute_ValidationFailed() {
	resp := s.MakeRequest("POST", "/auth/login", `{"email":"not-an-email"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)

	var pd common.ProblemDetails
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&pd))
	s.Equal("Validation failed", pd.Title)
	s.NotEmpty(pd.Errors)
}

func (s *AuthTestSuite) TestLoginRoute_Unauthorized() {
	resp := s.MakeRequest("POST", "/auth/login", `{"email":"nonexistent@example.com"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusUnauthorized, resp.StatusCode)
}

func (s *AuthTestSuite) TestLoginRoute_Success() {
	// Emails match regardless of case.
	resp := s.MakeRequest("POST", "/auth/login", `{"email":"ANKITA.DAS@iitd.ac.in"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusOK, resp.StatusCode)

	var response common.Response
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&response))
	loginResponse := response.Data.(map[string]any)
	s.Require().NotEmpty(loginResponse["token"])
}

func (s *AuthTestSuite) TestRegister() {
	body := `{"full_name":"Ravi Menon","email":"ravi.menon@iisc.ac.in","college_name":"IISc"}`
	resp := s.MakeRequest("POST", "/auth/register", body, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)

	var out struct {
		User struct {
			ID                 string `json:"user_id"`
			IsVerified         bool   `json:"is_verified"`
			VerificationStatus string `json:"verification_status"`
			Role               string `json:"role"`
		} `json:"user"`
		Token string `json:"token"`
	}
	s.DecodeData(resp, &out)
	s.NotEmpty(out.User.ID)
	s.NotEmpty(out.Token)
	s.False(out.User.IsVerified)
	s.Equal("pending", out.User.VerificationStatus)
	s.Equal("STUDENT", out.User.Role)

	me := s.MakeRequest("GET", "/user/me", "", out.Token)
	defer me.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusOK, me.StatusCode)
}

func (s *AuthTestSuite) TestRegister_DuplicateEmail() {
	body := `{"full_name":"Someone Else","email":"Ankita.Das@IITD.ac.in"}`
	resp := s.MakeRequest("POST", "/auth/register", body, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusConflict, resp.StatusCode)
}

func (s *AuthTestSuite) TestRegister_MissingName() {
	resp := s.MakeRequest("POST", "/auth/register", `{"email":"x@y.in"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func TestAuthTestSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}
