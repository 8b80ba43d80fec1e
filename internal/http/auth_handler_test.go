package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"starter-api/internal/domain"
	"starter-api/internal/repository"
	"starter-api/internal/service"
	"starter-api/internal/upload"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[user.Email] = user.ID
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) List(_ context.Context, _ repository.UserFilter) ([]domain.User, int, error) {
	users := make([]domain.User, 0, len(m.usersByID))
	for _, u := range m.usersByID {
		users = append(users, u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) Update(_ context.Context, user domain.User) error {
	if _, ok := m.usersByID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.OtpHash = ""
	user.OtpExpiresAt = nil
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) UpdateOTP(_ context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.OtpHash = otpHash
	user.OtpExpiresAt = &otpExpiresAt
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) SetVerified(_ context.Context, id string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Verified = true
	user.OtpHash = ""
	user.OtpExpiresAt = nil
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.usersByEmail, user.Email)
	delete(m.usersByID, id)
	return nil
}

type mockEmailSender struct {
	lastTo   string
	lastBody string
	err      error
}

func (m *mockEmailSender) Send(_ context.Context, toEmail, _, htmlBody string) error {
	m.lastTo = toEmail
	m.lastBody = htmlBody
	return m.err
}

var otpCodePattern = regexp.MustCompile(`>(\d{6})<`)

type testEnv struct {
	router *gin.Engine
	repo   *mockUserRepo
	sender *mockEmailSender
	tokens *service.TokenService
}

func setupRouter(t *testing.T, requireVerification bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMockUserRepo()
	sender := &mockEmailSender{}
	hasher := service.NewPasswordHasher(4)
	tokens := service.NewTokenService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	authSvc := service.NewAuthService(
		zap.NewNop(), repo, hasher,
		service.NewOTPService(hasher, repo),
		tokens, sender, nil, requireVerification,
	)
	userSvc := service.NewUserService(zap.NewNop(), repo, upload.NewDisabledUploader("uploader disabled"))

	authH := NewAuthHandler(zap.NewNop(), authSvc, false)
	userH := NewUserHandler(zap.NewNop(), userSvc)
	return &testEnv{
		router: NewRouter(zap.NewNop(), tokens, authH, userH),
		repo:   repo,
		sender: sender,
		tokens: tokens,
	}
}

func performRequest(r http.Handler, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func withBearer(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookie(name, value string) func(*http.Request) {
	return func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

func registerBody(email string) map[string]string {
	return map[string]string{
		"first_name": "Ada",
		"email":      email,
		"password":   "secret1",
	}
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == refreshCookieName {
			return cookie
		}
	}
	t.Fatalf("expected %s cookie", refreshCookieName)
	return nil
}

func TestAuthHandlerRegister(t *testing.T) {
	env := setupRouter(t, true)

	rec := performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		StatusCode int    `json:"statusCode"`
		Success    bool   `json:"success"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected envelope: %+v", resp)
	}

	body := rec.Body.String()
	if strings.Contains(body, "secret1") || strings.Contains(body, "$2a$") {
		t.Fatalf("response must not leak password material: %s", body)
	}
}

func TestAuthHandlerRegisterDuplicate(t *testing.T) {
	env := setupRouter(t, true)

	if rec := performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com")); rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	rec := performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestAuthHandlerLoginSetsCookie(t *testing.T) {
	env := setupRouter(t, false)

	performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))
	rec := performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cookie := refreshCookie(t, rec)
	if cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected http-only refresh cookie, got %+v", cookie)
	}
	if cookie.MaxAge != refreshCookieMaxAge {
		t.Fatalf("expected cookie max age %d, got %d", refreshCookieMaxAge, cookie.MaxAge)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected same-site lax, got %v", cookie.SameSite)
	}

	if !strings.Contains(rec.Body.String(), "accessToken") {
		t.Fatalf("expected access token in body")
	}
	if strings.Contains(rec.Body.String(), cookie.Value) {
		t.Fatalf("refresh token must travel only in the cookie")
	}
}

func TestAuthHandlerLoginFailures(t *testing.T) {
	env := setupRouter(t, true)

	performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))

	rec := performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@x.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for wrong password, got %d", rec.Code)
	}
	wrongPassBody := rec.Body.String()

	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email": "missing@x.com", "password": "secret1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for unknown email, got %d", rec.Code)
	}
	if rec.Body.String() != wrongPassBody {
		t.Fatalf("login failures must be indistinguishable: %s vs %s", rec.Body.String(), wrongPassBody)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for unverified user, got %d", rec.Code)
	}
}

func TestAuthHandlerRefreshFromCookie(t *testing.T) {
	env := setupRouter(t, false)

	performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))
	login := performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	cookie := refreshCookie(t, login)

	rec := performRequest(env.router, http.MethodPost, "/auth/refresh-token", nil,
		withCookie(refreshCookieName, cookie.Value))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "accessToken") {
		t.Fatalf("expected new access token in body")
	}
}

func TestAuthHandlerRefreshRejectsAccessToken(t *testing.T) {
	env := setupRouter(t, false)

	performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))
	login := performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})

	var resp struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(login.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec := performRequest(env.router, http.MethodPost, "/auth/refresh-token", map[string]string{
		"refresh_token": resp.Data.AccessToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestAuthHandlerForgotVerifyFlow(t *testing.T) {
	env := setupRouter(t, true)

	performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))

	rec := performRequest(env.router, http.MethodPost, "/auth/forgot-password", map[string]string{
		"email": "missing@x.com",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown email, got %d", rec.Code)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/forgot-password", map[string]string{
		"email": "a@x.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.sender.lastTo != "a@x.com" {
		t.Fatalf("expected otp email sent to a@x.com, got %s", env.sender.lastTo)
	}
	match := otpCodePattern.FindStringSubmatch(env.sender.lastBody)
	if match == nil {
		t.Fatalf("no otp code in email body")
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/verify-email", map[string]string{
		"email": "a@x.com", "otp": "000000",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for wrong otp, got %d", rec.Code)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/verify-email", map[string]string{
		"email": "a@x.com", "otp": match[1],
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/verify-email", map[string]string{
		"email": "a@x.com", "otp": match[1],
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for consumed otp, got %d", rec.Code)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login to succeed after verification, got %d", rec.Code)
	}
}

func TestAuthHandlerResetPasswordSetsCookie(t *testing.T) {
	env := setupRouter(t, false)

	performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))
	rec := performRequest(env.router, http.MethodPost, "/auth/reset-password", map[string]string{
		"email": "a@x.com", "new_password": "secret2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookie := refreshCookie(t, rec)
	if cookie.Value == "" {
		t.Fatalf("expected refresh cookie after reset")
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login with new password, got %d", rec.Code)
	}
}

func TestAuthHandlerChangePassword(t *testing.T) {
	env := setupRouter(t, false)

	performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))

	rec := performRequest(env.router, http.MethodPost, "/auth/change-password", map[string]string{
		"old_password": "secret1", "new_password": "secret2",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}

	login := performRequest(env.router, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	var resp struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(login.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/change-password", map[string]string{
		"old_password": "wrong", "new_password": "secret2",
	}, withBearer(resp.Data.AccessToken))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for wrong old password, got %d", rec.Code)
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/change-password", map[string]string{
		"old_password": "secret1", "new_password": "secret2",
	}, withBearer(resp.Data.AccessToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandlerLogoutClearsCookie(t *testing.T) {
	env := setupRouter(t, false)

	rec := performRequest(env.router, http.MethodPost, "/auth/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	cookie := refreshCookie(t, rec)
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cookie)
	}
}

func TestAuthHandlerMailFailureSurfaces(t *testing.T) {
	env := setupRouter(t, true)
	env.sender.err = errors.New("smtp down")

	performRequest(env.router, http.MethodPost, "/auth/register", registerBody("a@x.com"))
	rec := performRequest(env.router, http.MethodPost, "/auth/forgot-password", map[string]string{
		"email": "a@x.com",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 for mail failure, got %d", rec.Code)
	}
}
