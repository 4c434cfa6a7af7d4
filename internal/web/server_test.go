package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/deprov/internal/audit"
	"github.com/JonMunkholm/deprov/internal/config"
	"github.com/JonMunkholm/deprov/internal/core"
)

var testNow = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	vars := map[string]string{"RATE_LIMIT_ENABLED": "false"}
	for k, v := range env {
		vars[k] = v
	}
	cfg, err := config.LoadFrom(config.MapLookup(vars))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, history RunLister) *Server {
	t.Helper()
	engine := core.NewEngine(core.WithClock(func() time.Time { return testNow }))
	srv := NewServer(core.NewService(engine, nil), core.NewLimiter(2, time.Second), history, cfg)
	t.Cleanup(func() {
		if srv.rate != nil {
			srv.rate.stop()
		}
	})
	return srv
}

type upload struct {
	field, name, content string
}

func multipartRequest(t *testing.T, path, identity string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField(IdentityField, identity); err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, f.content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

var (
	dlCSV     = "PrimarySmtpAddress;DisplayName\nmario.rossi@consip.it;DL-Finance\nluigi.verdi@consip.it;DL-Roma\n"
	entraCSV  = "UserPrincipalName,GroupName\nmario.rossi@consip.it,DL-Finance\nmario.rossi@consip.it,Azure-VPN\n"
	deviceCSV = "Name,Enabled,Description,Mail,Mobile,userPrincipalName\nPC-001,True,Laptop - mario.rossi - Roma,mario.rossi@consip.it,,\n"
)

// ============================================================================
// Pages
// ============================================================================

func TestHandleIndex(t *testing.T) {
	srv := newTestServer(t, testConfig(t, nil), nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="identity"`, `name="dl"`, `name="sm"`, `name="mg"`, `name="entra"`, `name="device"`, "Estr_MembriGruppi", "20 MB"} {
		if !strings.Contains(body, want) {
			t.Errorf("index page missing %q", want)
		}
	}
}

func TestHandleGenerate_RendersResult(t *testing.T) {
	srv := newTestServer(t, testConfig(t, nil), nil)

	req := multipartRequest(t, "/generate", "mario.rossi",
		upload{"dl", "dl.csv", dlCSV},
		upload{"entra", "entra.csv", entraCSV},
		upload{"device", "device.csv", deviceCSV},
	)
	rec := serve(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Casella di posta - Deprovisioning - Rossi Mario",
		"Rimozione abilitazione dalle DL",
		"Azure-VPN",
		`download="Deprovisioning_Rossi_M.csv"`,
		`download="20240305_Computer_riferimenti_remove[Rossi].csv"`,
		"data:text/csv;charset=utf-8;base64,",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("result page missing %q", want)
		}
	}
}

func TestHandleGenerate_EmptyIdentityRendersAlert(t *testing.T) {
	srv := newTestServer(t, testConfig(t, nil), nil)

	rec := serve(srv, multipartRequest(t, "/generate", "  "))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ID001") {
		t.Errorf("body %q does not carry ID001", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
}

// ============================================================================
// JSON API
// ============================================================================

func TestHandleDeprovision_JSON(t *testing.T) {
	srv := newTestServer(t, testConfig(t, nil), nil)

	req := multipartRequest(t, "/api/deprovision", "Mario.Rossi@consip.it",
		upload{"dl", "dl.csv", dlCSV},
		upload{"entra", "entra.csv", entraCSV},
	)
	rec := serve(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp DeprovisionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	wantID := IdentityJSON{Handle: "mario.rossi", Email: "mario.rossi@consip.it"}
	if diff := cmp.Diff(wantID, resp.Identity); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"DL-Finance"}, resp.Groups.DL); diff != "" {
		t.Errorf("DL groups mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Azure-VPN"}, resp.Groups.AzureRemoval); diff != "" {
		t.Errorf("Azure removal mismatch (-want +got):\n%s", diff)
	}
	if resp.IdentityRecord.FileName != "Deprovisioning_Rossi_M.csv" {
		t.Errorf("identity file = %q", resp.IdentityRecord.FileName)
	}
	if resp.DeviceRecord != nil {
		t.Errorf("DeviceRecord = %+v, want nil without a device export", resp.DeviceRecord)
	}
	if resp.Groups.SM == nil {
		t.Error("SM groups encoded as null, want []")
	}
}

func TestHandleDeprovision_Errors(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name: "empty identity",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/deprovision", "")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ID001",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/deprovision", strings.NewReader(`{"identity":"mario.rossi"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE005",
		},
		{
			name: "file over the size limit",
			env:  map[string]string{"UPLOAD_MAX_FILE_SIZE": "16"},
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/deprovision", "mario.rossi", upload{"dl", "dl.csv", dlCSV})
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE001",
		},
		{
			name: "legacy excel",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/deprovision", "mario.rossi", upload{"mg", "gruppi.xls", "\xd0\xcf\x11\xe0"})
			},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "FILE004",
		},
		{
			name: "broken xlsx",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/deprovision", "mario.rossi", upload{"device", "device.xlsx", "not a zip"})
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE003",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, testConfig(t, tt.env), nil)
			rec := serve(srv, tt.req(t))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeError(t, rec).Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestHandleDeprovision_Busy(t *testing.T) {
	cfg := testConfig(t, nil)
	engine := core.NewEngine()
	limiter := core.NewLimiter(1, 10*time.Millisecond)
	srv := NewServer(core.NewService(engine, nil), limiter, nil, cfg)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer limiter.Release()

	rec := serve(srv, multipartRequest(t, "/api/deprovision", "mario.rossi"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "UPL002" {
		t.Errorf("code = %q, want UPL002", got)
	}
}

// ============================================================================
// Run history
// ============================================================================

type fakeLister struct {
	runs      []audit.Run
	err       error
	lastLimit int
}

func (f *fakeLister) ListRuns(_ context.Context, limit int) ([]audit.Run, error) {
	f.lastLimit = limit
	return f.runs, f.err
}

func TestHandleListRuns_Disabled(t *testing.T) {
	srv := newTestServer(t, testConfig(t, nil), nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "DB001" {
		t.Errorf("code = %q, want DB001", got)
	}
}

func TestHandleListRuns(t *testing.T) {
	lister := &fakeLister{runs: []audit.Run{{ID: "r1", Identity: "mario.rossi", Steps: 12}}}
	srv := newTestServer(t, testConfig(t, map[string]string{"AUDIT_HISTORY_LIMIT": "10"}), lister)

	tests := []struct {
		query     string
		wantLimit int
	}{
		{"", 10},
		{"?limit=3", 3},
		{"?limit=500", 10},
		{"?limit=abc", 10},
	}
	for _, tt := range tests {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/runs"+tt.query, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status = %d", tt.query, rec.Code)
		}
		if lister.lastLimit != tt.wantLimit {
			t.Errorf("%q: limit = %d, want %d", tt.query, lister.lastLimit, tt.wantLimit)
		}
		var runs []audit.Run
		if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || runs[0].ID != "r1" {
			t.Errorf("%q: runs = %+v", tt.query, runs)
		}
	}
}

func TestHandleListRuns_StoreError(t *testing.T) {
	lister := &fakeLister{err: errors.New("list runs: connection refused")}
	srv := newTestServer(t, testConfig(t, nil), lister)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "DB004" {
		t.Errorf("code = %q, want DB004", got)
	}
}

// ============================================================================
// Middleware wiring
// ============================================================================

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig(t, map[string]string{"REQUIRE_API_KEY": "true", "API_KEYS": "k1,k2"})
	srv := newTestServer(t, cfg, &fakeLister{})

	tests := []struct {
		key        string
		wantStatus int
	}{
		{"", http.StatusUnauthorized},
		{"nope", http.StatusForbidden},
		{"k2", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		if tt.key != "" {
			req.Header.Set("X-API-Key", tt.key)
		}
		if rec := serve(srv, req); rec.Code != tt.wantStatus {
			t.Errorf("key %q: status = %d, want %d", tt.key, rec.Code, tt.wantStatus)
		}
	}

	// The form is not behind the API key.
	if rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t, map[string]string{"RATE_LIMIT_ENABLED": "true", "RATE_LIMIT_REQUESTS_PER_MINUTE": "2"})
	srv := newTestServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		if rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if !strings.Contains(rec.Body.String(), "RATE001") {
		t.Errorf("body %q does not carry RATE001", rec.Body.String())
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	rl := &rateLimiter{visitors: map[string]*visitor{}, rate: 1, window: time.Minute, done: make(chan struct{})}
	now := testNow
	rl.now = func() time.Time { return now }

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request rejected")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("second request within the window allowed")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("other client rejected")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.allow("10.0.0.1") {
		t.Fatal("request after the window rejected")
	}
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		csp     string
		wantCSP bool
	}{
		{"true", true},
		{"false", false},
	}
	for _, tt := range tests {
		srv := newTestServer(t, testConfig(t, map[string]string{"SECURITY_ENABLE_CSP": tt.csp}), nil)
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("missing X-Content-Type-Options")
		}
		if got := rec.Header().Get("Content-Security-Policy") != ""; got != tt.wantCSP {
			t.Errorf("CSP set = %v, want %v", got, tt.wantCSP)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, testConfig(t, nil), &fakeLister{})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	want := core.LimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}
	if diff := cmp.Diff(want, resp.Limiter); diff != "" {
		t.Errorf("limiter mismatch (-want +got):\n%s", diff)
	}
	if resp.Status != "ok" || !resp.History {
		t.Errorf("resp = %+v", resp)
	}
}

func TestShutdown_BeforeStart(t *testing.T) {
	srv := newTestServer(t, testConfig(t, map[string]string{"RATE_LIMIT_ENABLED": "true"}), nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
