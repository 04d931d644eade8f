package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/check-vero/apiserver/internal/services"
	"github.com/check-vero/apiserver/internal/store/memory"
	"github.com/check-vero/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	mem := memory.New()
	userService := services.NewUserService(mem.Users())
	phoneService := services.NewPhoneService(mem.PhoneNumbers(), mem.VerificationLogs())
	reportService := services.NewReportService(mem.Reports(), mem.Users(), nil, nil, nil)
	statsService := services.NewStatsService(mem.Users(), mem.PhoneNumbers(), mem.Reports(), mem.VerificationLogs())

	authMiddleware := RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Get("/health", Health)
		AuthRouter(r, userService, testSecret, time.Hour, authMiddleware)
		PhoneRouter(r, phoneService, authMiddleware)
		ReportRouter(r, reportService, authMiddleware)
		StatsRouter(r, statsService, authMiddleware)
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func registerUser(t *testing.T, router http.Handler, username, role, companyName string) TokenResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/register", "", map[string]string{
		"username":     username,
		"email":        username + "@example.com",
		"password":     "secret123",
		"role":         role,
		"company_name": companyName,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var token TokenResponse
	decode(t, rec, &token)
	require.NotEmpty(t, token.AccessToken)
	require.Equal(t, "bearer", token.TokenType)
	require.Equal(t, role, token.Role)
	return token
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "Check Vero API", body["service"])
}

func TestRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t)

	token := registerUser(t, router, "alice", types.RoleCitizen, "")
	require.NotEmpty(t, token.UserID)

	rec := doJSON(t, router, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login TokenResponse
	decode(t, rec, &login)
	require.Equal(t, token.UserID, login.UserID)
	require.Equal(t, types.RoleCitizen, login.Role)
}

func TestRegisterDuplicates(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", types.RoleCitizen, "")

	rec := doJSON(t, router, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice",
		"email":    "fresh@example.com",
		"password": "secret123",
		"role":     types.RoleCitizen,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	require.Equal(t, "Username already registered", body.Error)

	rec = doJSON(t, router, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "secret123",
		"role":     types.RoleCitizen,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &body)
	require.Equal(t, "Email already registered", body.Error)
}

func TestRegisterValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/register", "", map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "secret123",
		"role":     "superuser",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Business accounts must carry a company name.
	rec = doJSON(t, router, http.MethodPost, "/api/register", "", map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "secret123",
		"role":     types.RoleBusiness,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	router := newTestRouter(t)
	registerUser(t, router, "alice", types.RoleCitizen, "")

	rec := doJSON(t, router, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	require.Equal(t, "Incorrect username or password", body.Error)

	rec = doJSON(t, router, http.MethodPost, "/api/login", "", map[string]string{
		"username": "nobody",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "biz", types.RoleBusiness, "Acme")

	rec := doJSON(t, router, http.MethodGet, "/api/users/profile", token.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user types.User
	decode(t, rec, &user)
	require.Equal(t, token.UserID, user.ID)
	require.Equal(t, "biz", user.Username)
	require.Equal(t, "Acme", user.CompanyName)
	require.NotContains(t, rec.Body.String(), "password")

	rec = doJSON(t, router, http.MethodGet, "/api/users/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/users/profile", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPhoneRegistrationRoles(t *testing.T) {
	router := newTestRouter(t)
	citizen := registerUser(t, router, "alice", types.RoleCitizen, "")
	business := registerUser(t, router, "biz", types.RoleBusiness, "Acme")

	payload := map[string]string{
		"phone_number": "+14155550000",
		"company_name": "Acme",
		"description":  "Support line",
	}

	rec := doJSON(t, router, http.MethodPost, "/api/phone-numbers/register", citizen.AccessToken, payload)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	require.Equal(t, "Only businesses and admins can register phone numbers", body.Error)

	rec = doJSON(t, router, http.MethodPost, "/api/phone-numbers/register", business.AccessToken, payload)
	require.Equal(t, http.StatusOK, rec.Code)

	var registered RegisterPhoneResponse
	decode(t, rec, &registered)
	require.Equal(t, "Phone number registered successfully", registered.Message)
	require.NotEmpty(t, registered.PhoneID)

	rec = doJSON(t, router, http.MethodPost, "/api/phone-numbers/register", business.AccessToken, payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decode(t, rec, &body)
	require.Equal(t, "Phone number already registered", body.Error)
}

func TestVerifyPhone(t *testing.T) {
	router := newTestRouter(t)
	business := registerUser(t, router, "biz", types.RoleBusiness, "Acme")

	rec := doJSON(t, router, http.MethodPost, "/api/phone-numbers/register", business.AccessToken, map[string]string{
		"phone_number": "+14155550000",
		"company_name": "Acme",
		"description":  "Support line",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Verification is public.
	rec = doJSON(t, router, http.MethodPost, "/api/verify-phone", "", map[string]string{
		"phone_number": "+14155550000",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var verified VerifyPhoneResponse
	decode(t, rec, &verified)
	require.True(t, verified.IsVerified)
	require.Equal(t, "Acme", verified.CompanyName)
	require.Equal(t, 1, verified.VerificationCount)
	require.Equal(t, "This number is verified and belongs to Acme", verified.Message)
	require.NotEmpty(t, verified.VerifiedSince)

	rec = doJSON(t, router, http.MethodPost, "/api/verify-phone", "", map[string]string{
		"phone_number": "+14155550000",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &verified)
	require.Equal(t, 2, verified.VerificationCount)

	rec = doJSON(t, router, http.MethodPost, "/api/verify-phone", "", map[string]string{
		"phone_number": "+19995550000",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var missing VerifyPhoneResponse
	decode(t, rec, &missing)
	require.False(t, missing.IsVerified)
	require.NotEmpty(t, missing.Warning)
}

func TestMyNumbers(t *testing.T) {
	router := newTestRouter(t)
	business := registerUser(t, router, "biz", types.RoleBusiness, "Acme")
	other := registerUser(t, router, "other", types.RoleBusiness, "Rival")

	for _, number := range []string{"+1001", "+1002"} {
		rec := doJSON(t, router, http.MethodPost, "/api/phone-numbers/register", business.AccessToken, map[string]string{
			"phone_number": number,
			"company_name": "Acme",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/phone-numbers/my-numbers", business.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var numbers []types.PhoneNumber
	decode(t, rec, &numbers)
	require.Len(t, numbers, 2)
	require.Equal(t, "+1002", numbers[0].Number)

	rec = doJSON(t, router, http.MethodGet, "/api/phone-numbers/my-numbers", other.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &numbers)
	require.Empty(t, numbers)
}

func TestSubmitReport(t *testing.T) {
	router := newTestRouter(t)
	citizen := registerUser(t, router, "alice", types.RoleCitizen, "")

	rec := doJSON(t, router, http.MethodPost, "/api/reports/submit", citizen.AccessToken, map[string]string{
		"report_type": types.ReportTypeCall,
		"description": "URGENT! verify account now or suspended, click here",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var submitted SubmitReportResponse
	decode(t, rec, &submitted)
	require.NotEmpty(t, submitted.ReportID)
	require.Equal(t, "Report submitted and analyzed successfully", submitted.Message)
	require.Equal(t, types.RiskHigh, submitted.Analysis.RiskLevel)
	require.Equal(t, 30, submitted.Analysis.PointsAwarded)

	// Points show up on the profile.
	rec = doJSON(t, router, http.MethodGet, "/api/users/profile", citizen.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user types.User
	decode(t, rec, &user)
	require.Equal(t, 30, user.Points)
}

func TestSubmitReportValidation(t *testing.T) {
	router := newTestRouter(t)
	citizen := registerUser(t, router, "alice", types.RoleCitizen, "")
	business := registerUser(t, router, "biz", types.RoleBusiness, "Acme")

	rec := doJSON(t, router, http.MethodPost, "/api/reports/submit", business.AccessToken, map[string]string{
		"report_type": types.ReportTypeCall,
		"description": "A perfectly long enough description.",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	require.Equal(t, "Only citizens can submit reports", body.Error)

	rec = doJSON(t, router, http.MethodPost, "/api/reports/submit", citizen.AccessToken, map[string]string{
		"report_type": "fax",
		"description": "A perfectly long enough description.",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Nine characters is too short, ten is accepted.
	rec = doJSON(t, router, http.MethodPost, "/api/reports/submit", citizen.AccessToken, map[string]string{
		"report_type": types.ReportTypeCall,
		"description": "too short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/reports/submit", citizen.AccessToken, map[string]string{
		"report_type": types.ReportTypeCall,
		"description": "abcdefghij",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The minimum is counted in characters, not bytes: four CJK runes span
	// twelve bytes but are still too short.
	rec = doJSON(t, router, http.MethodPost, "/api/reports/submit", citizen.AccessToken, map[string]string{
		"report_type": types.ReportTypeCall,
		"description": strings.Repeat("詐", 4),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/reports/submit", citizen.AccessToken, map[string]string{
		"report_type": types.ReportTypeCall,
		"description": strings.Repeat("詐", 10),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestListReports(t *testing.T) {
	router := newTestRouter(t)
	citizen := registerUser(t, router, "alice", types.RoleCitizen, "")
	admin := registerUser(t, router, "root", types.RoleAdmin, "")

	for _, description := range []string{
		"The first call asked about a parcel fee.",
		"The second call claimed an arrest warrant.",
	} {
		rec := doJSON(t, router, http.MethodPost, "/api/reports/submit", citizen.AccessToken, map[string]string{
			"report_type": types.ReportTypeCall,
			"description": description,
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/reports/my-reports", citizen.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var reports []types.Report
	decode(t, rec, &reports)
	require.Len(t, reports, 2)
	require.Contains(t, reports[0].Description, "second")

	rec = doJSON(t, router, http.MethodGet, "/api/reports/all", citizen.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	require.Equal(t, "Admin access required", body.Error)

	rec = doJSON(t, router, http.MethodGet, "/api/reports/all", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &reports)
	require.Len(t, reports, 2)
}

func TestReportScreenshotAccess(t *testing.T) {
	router := newTestRouter(t)
	owner := registerUser(t, router, "alice", types.RoleCitizen, "")
	intruder := registerUser(t, router, "mallory", types.RoleCitizen, "")
	admin := registerUser(t, router, "root", types.RoleAdmin, "")

	raw := []byte("screenshot bytes")
	rec := doJSON(t, router, http.MethodPost, "/api/reports/submit", owner.AccessToken, map[string]string{
		"report_type": types.ReportTypeAIChat,
		"description": "The chat bot asked for my password twice.",
		"screenshot":  base64.StdEncoding.EncodeToString(raw),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var submitted SubmitReportResponse
	decode(t, rec, &submitted)

	path := "/api/reports/" + submitted.ReportID + "/screenshot"

	rec = doJSON(t, router, http.MethodGet, path, owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, raw, rec.Body.Bytes())

	rec = doJSON(t, router, http.MethodGet, path, intruder.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, path, admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/reports/no-such-id/screenshot", owner.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardStats(t *testing.T) {
	router := newTestRouter(t)
	citizen := registerUser(t, router, "alice", types.RoleCitizen, "")
	business := registerUser(t, router, "biz", types.RoleBusiness, "Acme")
	admin := registerUser(t, router, "root", types.RoleAdmin, "")

	rec := doJSON(t, router, http.MethodPost, "/api/phone-numbers/register", business.AccessToken, map[string]string{
		"phone_number": "+14155550000",
		"company_name": "Acme",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/verify-phone", "", map[string]string{
		"phone_number": "+14155550000",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/reports/submit", citizen.AccessToken, map[string]string{
		"report_type":  types.ReportTypeCall,
		"phone_number": "+14155550000",
		"description":  "URGENT! verify account now or suspended, click here",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/stats/dashboard", citizen.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]any
	decode(t, rec, &stats)
	require.EqualValues(t, 1, stats["total_reports"])
	require.EqualValues(t, 30, stats["points_earned"])
	require.EqualValues(t, 1, stats["high_risk_reports"])

	rec = doJSON(t, router, http.MethodGet, "/api/stats/dashboard", business.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stats)
	require.EqualValues(t, 1, stats["registered_numbers"])
	require.EqualValues(t, 1, stats["verification_checks"])
	require.EqualValues(t, 1, stats["reports_mentioning"])

	rec = doJSON(t, router, http.MethodGet, "/api/stats/dashboard", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stats)
	require.EqualValues(t, 3, stats["total_users"])
	require.EqualValues(t, 1, stats["total_reports"])
	require.EqualValues(t, 1, stats["total_phone_numbers"])
	require.EqualValues(t, 1, stats["total_verifications"])
	require.EqualValues(t, 1, stats["high_risk_reports"])
	require.EqualValues(t, 0, stats["pending_reports"])
	require.NotNil(t, stats["recent_verifications"])
}

func TestDashboardRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/stats/dashboard", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
