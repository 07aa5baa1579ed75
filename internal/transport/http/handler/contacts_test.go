package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-membership-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockContactSvc struct{ mock.Mock }

func (m *mockContactSvc) Submit(ctx context.Context, req domain.ContactRequest) (*domain.ContactMessage, error) {
	args := m.Called(ctx, req)
	if c, _ := args.Get(0).(*domain.ContactMessage); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func validContact() domain.ContactRequest {
	return domain.ContactRequest{Name: "Alice", Email: "a@x.com", Subject: "Hi", Message: "Hello there"}
}

func TestContactSubmit_Created(t *testing.T) {
	svc := &mockContactSvc{}
	svc.On("Submit", mock.Anything, validContact()).
		Return(&domain.ContactMessage{ContactID: "c1", Status: domain.ContactUnread}, nil)

	h := NewContactHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.Submit(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, validContact())))

	require.Equal(t, http.StatusCreated, rr.Code)
	contact := decodeResult(t, rr)["contact"].(map[string]interface{})
	assert.Equal(t, "c1", contact["id"])
	assert.Equal(t, "unread", contact["status"])
}

func TestContactSubmit_Validation(t *testing.T) {
	svc := &mockContactSvc{}
	h := NewContactHandler(svc, nil)

	req := validContact()
	req.Message = strings.Repeat("x", 5001)
	rr := httptest.NewRecorder()
	h.Submit(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, req)))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	req = validContact()
	req.Subject = ""
	rr = httptest.NewRecorder()
	h.Submit(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, req)))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestContactSubmit_StorageUnavailable(t *testing.T) {
	svc := &mockContactSvc{}
	svc.On("Submit", mock.Anything, mock.Anything).Return(nil, domain.ErrStorageUnavailable)

	h := NewContactHandler(svc, nil)
	rr := httptest.NewRecorder()
	h.Submit(rr, httptest.NewRequest(http.MethodPost, "/", jsonBody(t, validContact())))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
