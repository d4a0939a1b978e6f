package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"smartscribe-backend-go/internal/services"
)

func TestWriteServiceErrorMapsStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrNotFound("missing"), http.StatusNotFound},
		{services.ErrBadRequest("bad"), http.StatusBadRequest},
		{services.ErrForbidden("no"), http.StatusForbidden},
		{services.ErrUnauthorized("who"), http.StatusUnauthorized},
		{services.ErrConflict("dup"), http.StatusConflict},
		{services.ErrLocked("locked"), http.StatusLocked},
		{services.ErrTooManyRequests("slow down"), http.StatusTooManyRequests},
		{services.TranscriptionFailed{Err: errors.New("provider down")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		recorder := httptest.NewRecorder()
		WriteServiceError(recorder, tc.err)
		assert.Equal(t, tc.status, recorder.Code, "error %v", tc.err)
		assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	}
}

func TestWriteServiceErrorHidesInternalDetail(t *testing.T) {
	recorder := httptest.NewRecorder()
	WriteServiceError(recorder, errors.New("pq: connection refused"))
	assert.NotContains(t, recorder.Body.String(), "connection refused")
}

func TestClientIPPrefersForwardedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", clientIP(req))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 50, parseInt("", 50))
	assert.Equal(t, 7, parseInt("7", 50))
	assert.Equal(t, 50, parseInt("abc", 50))
	assert.Equal(t, 50, parseInt("-1", 50))
}
