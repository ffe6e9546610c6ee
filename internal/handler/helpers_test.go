package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/messagely/internal/metrics"
	"github.com/hitoshi/messagely/internal/middleware"
	"github.com/hitoshi/messagely/internal/model"
)

// --- テストヘルパー ---

// withIdentity はテスト用に認証済みIDをリクエストコンテキストに注入するヘルパー。
func withIdentity(r *http.Request, username string) *http.Request {
	return r.WithContext(middleware.ContextWithIdentity(r.Context(), &model.Identity{Username: username}))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest はJSONボディ付きのリクエストを生成する。
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody はレスポンスボディをdstにデコードする。
func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// assertErrorCode はエラーレスポンスのステータスとコードを検証する。
func assertErrorCode(t *testing.T, resp *http.Response, wantStatus int, wantCode string) {
	t.Helper()
	if resp.StatusCode != wantStatus {
		t.Errorf("status = %d, want %d", resp.StatusCode, wantStatus)
	}
	var body middleware.ErrorResponseBody
	decodeBody(t, resp, &body)
	if body.Code != wantCode {
		t.Errorf("code = %q, want %q", body.Code, wantCode)
	}
}

// countingCollector は呼び出し回数を数えるMetricsCollector。
type countingCollector struct {
	metrics.NopCollector
	loginSuccess  int
	loginFailure  int
	registrations int
	sent          int
	read          int
}

func (c *countingCollector) RecordLogin(success bool) {
	if success {
		c.loginSuccess++
		return
	}
	c.loginFailure++
}

func (c *countingCollector) RecordRegistration() { c.registrations++ }
func (c *countingCollector) RecordMessageSent()  { c.sent++ }
func (c *countingCollector) RecordMessageRead()  { c.read++ }
