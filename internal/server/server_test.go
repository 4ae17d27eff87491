package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"barakahit/internal/config"
	"barakahit/internal/database"
	"barakahit/internal/domain"
	"barakahit/internal/notify"
	"barakahit/internal/services"
	"barakahit/internal/store"
	"barakahit/internal/validation"
	apperrors "barakahit/pkg/errors"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Barakah IT Contact API", Env: env},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			MaxAge:         86400,
		},
	}
}

type fakeResolver map[string]error

func (f fakeResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if err, ok := f[name]; ok {
		if err == nil {
			return nil, nil
		}
		return nil, err
	}
	return []*net.MX{{Host: "mx." + name, Pref: 10}}, nil
}

type failingStore struct{ err error }

func (f failingStore) Save(context.Context, *domain.ContactSubmission) error { return f.err }

type countingNotifier struct{ calls int }

func (c *countingNotifier) Send(context.Context, *domain.ContactSubmission) error {
	c.calls++
	return errors.New("smtp: 535 authentication failed")
}

type harness struct {
	handler  http.Handler
	conn     *database.Connector
	notifier *countingNotifier
}

func newHarness(t *testing.T, env string, st store.SubmissionStore, resolver fakeResolver) *harness {
	t.Helper()
	log := zap.NewNop().Sugar()
	cfg := testConfig(env)

	conn := database.NewConnector(config.DatabaseConfig{
		URL:            "sqlite:///:memory:",
		ConnectTimeout: 2 * time.Second,
		WriteTimeout:   2 * time.Second,
	}, log)
	t.Cleanup(func() { _ = conn.Close() })
	if st == nil {
		st = store.NewGormSubmissionStore(conn, 2*time.Second)
	}

	var verifier validation.DomainVerifier
	if resolver != nil {
		verifier = validation.NewMXVerifier(resolver, time.Second, log)
	}

	n := &countingNotifier{}
	var notifier notify.Notifier = n
	contact := services.NewContactService(validation.New(verifier), st, notifier, time.Second, log)
	health := services.NewHealthService(cfg.App.Name, conn)

	return &harness{
		handler:  New(cfg, contact, health, log).Handler(),
		conn:     conn,
		notifier: n,
	}
}

func (h *harness) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

const validBody = `{"name":"Jane Doe","email":"jane@example.com","message":"Hello"}`

func TestContactRejectsOtherMethods(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	for _, method := range []string{
		http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodDelete,
		http.MethodTrace, http.MethodConnect, "PROPFIND", "X-CUSTOM",
	} {
		t.Run(method, func(t *testing.T) {
			rec, out := h.do(method, contactPath, "")
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			assert.Equal(t, false, out["success"])
			assert.Equal(t, "Method not allowed", out["message"])
		})
	}
	assert.False(t, h.conn.Connected(), "rejected methods must not touch the database")
}

func TestContactInvalidJSON(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	rec, out := h.do(http.MethodPost, contactPath, `{"name": "Jane",`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", out["message"])
}

func TestContactRejectsTrailingData(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	for name, body := range map[string]string{
		"garbage":     validBody + "garbage",
		"two objects": validBody + validBody,
	} {
		t.Run(name, func(t *testing.T) {
			rec, out := h.do(http.MethodPost, contactPath, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid request body", out["message"])
		})
	}
	assert.False(t, h.conn.Connected(), "rejected bodies must not touch the database")

	rec, _ := h.do(http.MethodPost, contactPath, validBody+"\n")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestContactBodyIsAlwaysJSON(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	post := func(contentType, body string) (*httptest.ResponseRecorder, map[string]any) {
		req := httptest.NewRequest(http.MethodPost, contactPath, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		var out map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return rec, out
	}

	xmlBody := `<ContactForm><Name>Jane Doe</Name><Email>jane@example.com</Email><Message>Hello</Message></ContactForm>`
	rec, out := post("application/xml", xmlBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", out["message"])
	assert.False(t, h.conn.Connected())

	rec, out = post("text/plain", validBody)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, out["success"])
}

func TestContactBodyTooLarge(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	body := `{"name":"Jane","email":"jane@example.com","message":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec, out := h.do(http.MethodPost, contactPath, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body too large", out["message"])
}

func TestContactMissingFields(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	for name, body := range map[string]string{
		"empty body":         "",
		"missing message":    `{"name":"Jane","email":"jane@example.com"}`,
		"whitespace name":    `{"name":"   ","email":"jane@example.com","message":"Hi"}`,
		"missing everything": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, out := h.do(http.MethodPost, contactPath, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, "Name, email and message are required", out["message"])
			assert.NotContains(t, out, "field")
		})
	}
	assert.False(t, h.conn.Connected())
	assert.Zero(t, h.notifier.calls)
}

func TestContactInvalidEmailFormat(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	rec, out := h.do(http.MethodPost, contactPath, `{"name":"Jane","email":"jane@example","message":"Hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email format", out["message"])
	assert.Equal(t, "email", out["field"])
	assert.False(t, h.conn.Connected())
}

func TestContactUnreachableDomain(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, fakeResolver{
		"nowhere.invalid": &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true},
	})

	rec, out := h.do(http.MethodPost, contactPath, `{"name":"Jane","email":"jane@nowhere.invalid","message":"Hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", out["field"])
	assert.Contains(t, out["message"], "nowhere.invalid")
	assert.False(t, h.conn.Connected())
}

func TestContactInconclusiveDNSIsAccepted(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, fakeResolver{
		"slow.example": &net.DNSError{Err: "i/o timeout", Name: "slow.example", IsTimeout: true},
	})

	rec, out := h.do(http.MethodPost, contactPath, `{"name":"Jane","email":"jane@slow.example","message":"Hi"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, out["success"])
}

func TestContactSuccessPersistsAndIgnoresNotifierFailure(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	rec, out := h.do(http.MethodPost, contactPath,
		`{"name":"  Jane Doe ","email":"Jane@Example.COM","phone":"","message":"Hello\nthere"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Inquiry submitted successfully", out["message"])
	id, _ := out["inquiryId"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, h.notifier.calls)

	db, err := h.conn.Connect(context.Background())
	require.NoError(t, err)
	var row domain.ContactSubmission
	require.NoError(t, db.First(&row, "id = ?", id).Error)
	assert.Equal(t, "Jane Doe", row.Name)
	assert.Equal(t, "jane@example.com", row.Email)
	assert.Equal(t, "", row.Phone)
	assert.Equal(t, "Hello\nthere", row.Message)
	assert.Equal(t, domain.StatusPending, row.Status)
}

func TestContactEachSubmissionGetsItsOwnRow(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	_, first := h.do(http.MethodPost, contactPath, validBody)
	_, second := h.do(http.MethodPost, contactPath, validBody)
	assert.NotEqual(t, first["inquiryId"], second["inquiryId"])

	db, err := h.conn.Connect(context.Background())
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&domain.ContactSubmission{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestContactStoreFailure(t *testing.T) {
	cause := apperrors.Persistence("failed to save contact inquiry", errors.New("duplicate key"))

	t.Run("production hides detail", func(t *testing.T) {
		h := newHarness(t, config.EnvProduction, failingStore{err: cause}, nil)
		rec, out := h.do(http.MethodPost, contactPath, validBody)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to submit inquiry. Please try again later.", out["message"])
		assert.NotContains(t, out, "debug")
		assert.NotContains(t, rec.Body.String(), "duplicate key")
		assert.Zero(t, h.notifier.calls)
	})

	t.Run("development exposes debug", func(t *testing.T) {
		h := newHarness(t, config.EnvDevelopment, failingStore{err: cause}, nil)
		rec, out := h.do(http.MethodPost, contactPath, validBody)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		debug, ok := out["debug"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "PERSISTENCE_ERROR", debug["name"])
		assert.Contains(t, debug["message"], "duplicate key")
	})
}

func TestContactMissingDatabaseURL(t *testing.T) {
	log := zap.NewNop().Sugar()
	conn := database.NewConnector(config.DatabaseConfig{ConnectTimeout: time.Second}, log)
	st := store.NewGormSubmissionStore(conn, time.Second)
	h := newHarness(t, config.EnvDevelopment, st, nil)

	rec, out := h.do(http.MethodPost, contactPath, validBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	debug, ok := out["debug"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CONFIGURATION_ERROR", debug["name"])
}

func TestContactConnectionFailureCanRecover(t *testing.T) {
	log := zap.NewNop().Sugar()
	var attempts int
	open := func(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection refused")
		}
		return database.Open(ctx, cfg)
	}
	conn := database.NewConnector(config.DatabaseConfig{
		URL:            "sqlite:///:memory:",
		ConnectTimeout: time.Second,
		WriteTimeout:   time.Second,
	}, log, database.WithOpenFunc(open))
	t.Cleanup(func() { _ = conn.Close() })
	h := newHarness(t, config.EnvProduction, store.NewGormSubmissionStore(conn, time.Second), nil)

	rec, _ := h.do(http.MethodPost, contactPath, validBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = h.do(http.MethodPost, contactPath, validBody)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, attempts)
}

func TestPreflight(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, contactPath, nil)
	req.Header.Set("Origin", "https://barakah-it.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestCORSRestrictedOrigins(t *testing.T) {
	cfg := testConfig(config.EnvProduction)
	cfg.CORS.AllowedOrigins = []string{"https://barakah-it.com"}
	handler := New(cfg, nil, nil, zap.NewNop().Sugar()).Handler()

	req := httptest.NewRequest(http.MethodOptions, contactPath, nil)
	req.Header.Set("Origin", "https://barakah-it.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://barakah-it.com", rec.Header().Get("Access-Control-Allow-Origin"))

	for _, method := range []string{http.MethodOptions, http.MethodPost} {
		req = httptest.NewRequest(method, contactPath, strings.NewReader(validBody))
		req.Header.Set("Origin", "https://evil.example")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, method)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json", method)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), method)

		var out map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), method)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "Origin not allowed", out["message"])
	}
}

func TestHealthReportsDatabaseState(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	for _, path := range []string{"/api/health", "/health"} {
		rec, out := h.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", out["status"])
		assert.Equal(t, "Barakah IT Contact API", out["service"])
		assert.Equal(t, services.DBStatusNotConnected, out["database"])
		assert.NotEmpty(t, out["timestamp"])
	}
	assert.False(t, h.conn.Connected(), "health must not open a connection")

	_, err := h.conn.Connect(context.Background())
	require.NoError(t, err)
	_, out := h.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, services.DBStatusUp, out["database"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)
	h.do(http.MethodPost, contactPath, validBody)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contact_submissions_total")
}

type panickingSubmitter struct{}

func (panickingSubmitter) Submit(context.Context, domain.ContactForm) (*domain.ContactSubmission, error) {
	panic("nil map write")
}

func TestPanicBecomesJSON500(t *testing.T) {
	handler := New(testConfig(config.EnvProduction), panickingSubmitter{}, nil, zap.NewNop().Sugar()).Handler()

	req := httptest.NewRequest(http.MethodPost, contactPath, strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Failed to submit inquiry. Please try again later.", out["message"])
	assert.NotContains(t, out, "debug")
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t, config.EnvProduction, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
