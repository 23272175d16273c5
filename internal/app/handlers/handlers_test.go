package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linemk/auth-service/internal/app/handlers"
	"github.com/linemk/auth-service/internal/dispatcher"
)

// fakeDispatcher — фиктивная реализация, запоминает полученный запрос
type fakeDispatcher struct {
	got  dispatcher.Request
	resp dispatcher.Response
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req dispatcher.Request) dispatcher.Response {
	f.got = req
	return f.resp
}

type fakePinger struct {
	err error
}

func (f fakePinger) PingContext(ctx context.Context) error {
	return f.err
}

func TestAuthHandler_PassesRequest(t *testing.T) {
	fake := &fakeDispatcher{resp: dispatcher.Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json", "Access-Control-Allow-Origin": "*"},
		Body:       `{"success":true}`,
	}}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	handler := handlers.AuthHandler(logger, fake)

	reqBody := `{"action":"login","email":"test@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth?lang=ru", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.MethodPost, fake.got.HTTPMethod)
	assert.Equal(t, reqBody, fake.got.Body)
	assert.Equal(t, map[string]string{"lang": "ru"}, fake.got.QueryStringParameters)

	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
}

func TestAuthHandler_EmptyBody(t *testing.T) {
	fake := &fakeDispatcher{resp: dispatcher.Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Access-Control-Max-Age": "86400"},
	}}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	handler := handlers.AuthHandler(logger, fake)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.MethodOptions, fake.got.HTTPMethod)
	assert.Nil(t, fake.got.QueryStringParameters)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "86400", rr.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rr.Body.String())
}

func TestAuthHandler_BodyTooLarge(t *testing.T) {
	fake := &fakeDispatcher{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	handler := handlers.AuthHandler(logger, fake)

	big := strings.Repeat("a", 2<<20)
	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(big))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, fake.got.HTTPMethod, "dispatcher must not be called")
}

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	rr := httptest.NewRecorder()
	handlers.HealthHandler(logger, fakePinger{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	handlers.HealthHandler(logger, fakePinger{err: errors.New("down")}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
