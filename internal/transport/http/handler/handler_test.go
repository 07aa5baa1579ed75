package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-membership-api/internal/application/session"
	"github.com/go-membership-api/internal/domain"
	jwtinfra "github.com/go-membership-api/internal/infrastructure/jwt"
	"github.com/go-membership-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) RequestVerification(ctx context.Context, email string) (*domain.IssuedToken, error) {
	args := m.Called(ctx, email)
	if t, _ := args.Get(0).(*domain.IssuedToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) ConsumeToken(ctx context.Context, token, password string) (*domain.ConsumedToken, error) {
	args := m.Called(ctx, token, password)
	if c, _ := args.Get(0).(*domain.ConsumedToken); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Login(ctx context.Context, req domain.LoginRequest) (*session.LoginResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*session.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMemberSvc struct{ mock.Mock }

func (m *mockMemberSvc) Register(ctx context.Context, uid string, req domain.RegisterMemberRequest) (*domain.Member, error) {
	args := m.Called(ctx, uid, req)
	if mem, _ := args.Get(0).(*domain.Member); mem != nil {
		return mem, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMemberSvc) Get(ctx context.Context, memberID string) (*domain.Member, error) {
	args := m.Called(ctx, memberID)
	if mem, _ := args.Get(0).(*domain.Member); mem != nil {
		return mem, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMemberSvc) GetByUID(ctx context.Context, uid string) (*domain.Member, error) {
	args := m.Called(ctx, uid)
	if mem, _ := args.Get(0).(*domain.Member); mem != nil {
		return mem, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMemberSvc) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// --- helpers ---

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

// withClaims attaches verified session claims as the auth middleware would.
func withClaims(r *http.Request, uid string) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), &jwtinfra.Claims{UID: uid, Email: uid + "@x.com"}))
}

func withChiParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- status mapping ---

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrValidation, http.StatusUnprocessableEntity},
		{domain.ErrEmailAlreadyRegistered, http.StatusConflict},
		{fmt.Errorf("%w: %w", domain.ErrCredentialCreation, domain.ErrCredentialExists), http.StatusConflict},
		{domain.ErrTokenInvalid, http.StatusNotFound},
		{domain.ErrTokenExpired, http.StatusGone},
		{domain.ErrIdentifierExhausted, http.StatusServiceUnavailable},
		{domain.ErrIdentifierSpaceExhausted, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", domain.ErrCredentialCreation, domain.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{domain.ErrDeliveryFailed, http.StatusServiceUnavailable},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

// --- registrations ---

func TestRequestEmail_InvalidJSON(t *testing.T) {
	h := NewRegistrationHandler(&mockVerificationSvc{}, nil)
	rr := httptest.NewRecorder()
	h.RequestEmail(rr, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequestEmail_RequiresConsent(t *testing.T) {
	svc := &mockVerificationSvc{}
	h := NewRegistrationHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.RequestEmail(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, map[string]interface{}{"email": "a@x.com"})))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNotCalled(t, "RequestVerification", mock.Anything, mock.Anything)
}

func TestRequestEmail_Accepted_DoesNotLeakToken(t *testing.T) {
	svc := &mockVerificationSvc{}
	exp := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	svc.On("RequestVerification", mock.Anything, "a@x.com").
		Return(&domain.IssuedToken{Email: "a@x.com", Token: "secret-token", ExpiresAt: exp}, nil)

	h := NewRegistrationHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.RequestEmail(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, domain.VerificationRequest{Email: "a@x.com", AgreeToPrivacy: true})))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret-token")
	out := decodeResult(t, rr)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "a@x.com", out["email"])
}

func TestRequestEmail_AlreadyRegistered(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("RequestVerification", mock.Anything, "a@x.com").Return(nil, domain.ErrEmailAlreadyRegistered)

	h := NewRegistrationHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.RequestEmail(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, domain.VerificationRequest{Email: "a@x.com", AgreeToPrivacy: true})))

	assert.Equal(t, http.StatusConflict, rr.Code)
	out := decodeResult(t, rr)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, domain.CodeEmailAlreadyRegistered, out["code"])
}

func TestSetPassword_Mismatch(t *testing.T) {
	h := NewRegistrationHandler(&mockVerificationSvc{}, nil)
	rr := httptest.NewRecorder()
	h.SetPassword(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, domain.SetPasswordRequest{
		Token: "t", Password: "password123", ConfirmPassword: "password124",
	})))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestSetPassword_Created(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("ConsumeToken", mock.Anything, "t", "password123").Return(&domain.ConsumedToken{Email: "a@x.com", UID: "u1"}, nil)

	h := NewRegistrationHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.SetPassword(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, domain.SetPasswordRequest{
		Token: "t", Password: "password123", ConfirmPassword: "password123",
	})))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "u1", decodeResult(t, rr)["uid"])
}

func TestSetPassword_Expired(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("ConsumeToken", mock.Anything, "t", "password123").Return(nil, domain.ErrTokenExpired)

	h := NewRegistrationHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.SetPassword(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, domain.SetPasswordRequest{
		Token: "t", Password: "password123", ConfirmPassword: "password123",
	})))
	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Equal(t, domain.CodeTokenExpired, decodeResult(t, rr)["code"])
}

// --- sessions ---

func TestLogin_SetsCookie(t *testing.T) {
	svc := &mockSessionSvc{}
	exp := time.Date(2026, 10, 6, 9, 0, 0, 0, time.UTC)
	svc.On("Login", mock.Anything, domain.LoginRequest{Email: "A@x.com", Password: "password123"}).
		Return(&session.LoginResult{Bearer: "jwt", UID: "u1", Email: "a@x.com", ExpiresAt: exp}, nil)

	h := NewSessionHandler(svc, true, nil)
	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, domain.LoginRequest{Email: "A@x.com", Password: "password123"})))

	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Equal(t, "jwt", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, "jwt", decodeResult(t, rr)["Bearer"])
}

func TestLogin_Unauthorized(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)

	h := NewSessionHandler(svc, false, nil)
	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, domain.LoginRequest{Email: "a@x.com", Password: "nope"})))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestLogout_ClearsCookie(t *testing.T) {
	h := NewSessionHandler(&mockSessionSvc{}, false, nil)
	rr := httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestGetCurrent(t *testing.T) {
	h := NewSessionHandler(&mockSessionSvc{}, false, nil)

	rr := httptest.NewRecorder()
	h.GetCurrent(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	h.GetCurrent(rr, withClaims(httptest.NewRequest(http.MethodGet, "/", nil), "u1"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", decodeResult(t, rr)["uid"])
}

// --- members ---

func validMemberReq() domain.RegisterMemberRequest {
	return domain.RegisterMemberRequest{Age: 30, Gender: domain.GenderFemale, HairType: domain.HairCurly}
}

func TestRegisterMember_RequiresClaims(t *testing.T) {
	svc := &mockMemberSvc{}
	h := NewMemberHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, validMemberReq())))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterMember_Validation(t *testing.T) {
	h := NewMemberHandler(&mockMemberSvc{}, nil)
	req := validMemberReq()
	req.Age = 5
	rr := httptest.NewRecorder()
	h.Register(rr, withClaims(httptest.NewRequest(http.MethodPost, "/", jsonBody(t, req)), "u1"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRegisterMember_Created(t *testing.T) {
	svc := &mockMemberSvc{}
	svc.On("Register", mock.Anything, "u1", validMemberReq()).
		Return(&domain.Member{UID: "u1", MemberID: "JTA-00000001"}, nil)

	h := NewMemberHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.Register(rr, withClaims(httptest.NewRequest(http.MethodPost, "/", jsonBody(t, validMemberReq())), "u1"))
	assert.Equal(t, http.StatusCreated, rr.Code)
	member := decodeResult(t, rr)["member"].(map[string]interface{})
	assert.Equal(t, "JTA-00000001", member["member_id"])
}

func TestRegisterMember_Exhausted(t *testing.T) {
	svc := &mockMemberSvc{}
	svc.On("Register", mock.Anything, "u1", mock.Anything).Return(nil, domain.ErrIdentifierSpaceExhausted)

	h := NewMemberHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.Register(rr, withClaims(httptest.NewRequest(http.MethodPost, "/", jsonBody(t, validMemberReq())), "u1"))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, domain.CodeIdentifierSpaceExhausted, decodeResult(t, rr)["code"])
}

func TestCard_HidesPersonalFields(t *testing.T) {
	svc := &mockMemberSvc{}
	svc.On("Get", mock.Anything, "JTA-00000001").Return(&domain.Member{
		UID: "u1", Email: "a@x.com", Age: 30, MemberID: "JTA-00000001", HairType: domain.HairCurly,
	}, nil)

	h := NewMemberHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.Card(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/", nil), "memberId", "JTA-00000001"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "a@x.com")
	card := decodeResult(t, rr)["card"].(map[string]interface{})
	assert.Equal(t, "curly", card["hair_type"])
}

func TestCard_NotFound(t *testing.T) {
	svc := &mockMemberSvc{}
	svc.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	h := NewMemberHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.Card(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/", nil), "memberId", "nope"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMe_And_Count(t *testing.T) {
	svc := &mockMemberSvc{}
	svc.On("GetByUID", mock.Anything, "u1").Return(&domain.Member{UID: "u1", MemberID: "JTA-00000002"}, nil)
	svc.On("Count", mock.Anything).Return(int64(7), nil)
	h := NewMemberHandler(svc, nil)

	rr := httptest.NewRecorder()
	h.Me(rr, withClaims(httptest.NewRequest(http.MethodGet, "/", nil), "u1"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.Count(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(7), decodeResult(t, rr)["count"])
}

// --- health ---

func TestPing(t *testing.T) {
	h := NewHealthHandler()
	rr := httptest.NewRecorder()
	h.Ping(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/", nil), "action", "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", decodeResult(t, rr)["message"])

	rr = httptest.NewRecorder()
	h.Ping(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/", nil), "action", "other"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
