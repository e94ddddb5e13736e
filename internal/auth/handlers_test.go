package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/config"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testServer struct {
	router     *gin.Engine
	service    *Service
	controller *Controller
	events     *recordedEvents
}

type recordedEvents struct {
	actions []string
}

func (r *recordedEvents) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	r.actions = append(r.actions, action)
}

func newTestServer(t *testing.T, cfg config.Auth) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 4
	}
	if cfg.SessionLifetime == 0 {
		cfg.SessionLifetime = time.Hour
	}

	db := setupTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}

	service := NewService(db, cfg)
	sessions, err := NewSessionManager(sqlDB, cfg)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	events := &recordedEvents{}
	controller := NewController(service, sessions, cfg, events)
	t.Cleanup(controller.Stop)

	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.Use(sessions.LoadAndSave())
	router.Use(CSRFMiddleware(testSecret, false, service))
	router.Use(NewMiddleware(service, sessions, cfg).Handler())

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	controller.RegisterRoutes(router.Group("/api/auth"))
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "auth_type": GetAuthType(c)})
	}
	router.GET("/api/library", whoami)
	router.POST("/api/library/books", whoami)

	return &testServer{router: router, service: service, controller: controller, events: events}
}

// client carries cookies and the latest CSRF token between requests.
type client struct {
	t         *testing.T
	server    *testServer
	cookies   map[string]*http.Cookie
	csrfToken string
	bearer    string
}

func (s *testServer) client(t *testing.T) *client {
	return &client{t: t, server: s, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(method, path string, body any) *httptest.ResponseRecorder {
	cl.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			cl.t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cl.csrfToken != "" {
		req.Header.Set(CSRFTokenHeader, cl.csrfToken)
	}
	if cl.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+cl.bearer)
	}
	for _, cookie := range cl.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	cl.server.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(cl.cookies, cookie.Name)
			continue
		}
		cl.cookies[cookie.Name] = cookie
	}
	if token := w.Header().Get(CSRFTokenHeader); token != "" {
		cl.csrfToken = token
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return body
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func TestNoneMode(t *testing.T) {
	srv := newTestServer(t, config.Auth{Mode: config.AuthModeNone})
	cl := srv.client(t)

	w := cl.do(http.MethodGet, "/api/auth/status", nil)
	expectStatus(t, w, http.StatusOK)
	body := decode(t, w)
	if body["mode"] != "none" || body["authenticated"] != true {
		t.Errorf("unexpected status: %v", body)
	}

	w = cl.do(http.MethodGet, "/api/library", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode(t, w)["user_id"]; got != float64(DefaultUserID) {
		t.Errorf("expected default user, got %v", got)
	}

	w = cl.do(http.MethodPost, "/api/auth/tokens", nil)
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestLocalMode_RequiresAuthentication(t *testing.T) {
	srv := newTestServer(t, config.Auth{Mode: config.AuthModeLocal})
	cl := srv.client(t)

	w := cl.do(http.MethodGet, "/api/library", nil)
	expectStatus(t, w, http.StatusUnauthorized)
	if decode(t, w)["code"] != "unauthenticated" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	w = cl.do(http.MethodGet, "/health", nil)
	expectStatus(t, w, http.StatusOK)
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected security headers")
	}

	w = cl.do(http.MethodGet, "/api/auth/status", nil)
	expectStatus(t, w, http.StatusOK)
	body := decode(t, w)
	if body["setupRequired"] != true || body["authenticated"] != false {
		t.Errorf("unexpected status: %v", body)
	}
	if cl.csrfToken == "" || body["csrfToken"] != cl.csrfToken {
		t.Errorf("expected CSRF token in header and body, got %q and %v", cl.csrfToken, body["csrfToken"])
	}
}

func TestSetupLoginLogout(t *testing.T) {
	srv := newTestServer(t, config.Auth{Mode: config.AuthModeLocal})
	cl := srv.client(t)
	cl.do(http.MethodGet, "/api/auth/status", nil)

	setup := map[string]string{"username": "admin", "email": "admin@example.com", "password": testPassword}

	t.Run("setup without CSRF token is rejected", func(t *testing.T) {
		token := cl.csrfToken
		cl.csrfToken = ""
		w := cl.do(http.MethodPost, "/api/auth/setup", setup)
		cl.csrfToken = token
		expectStatus(t, w, http.StatusForbidden)
		if decode(t, w)["code"] != "csrf_failed" {
			t.Errorf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("setup creates admin and signs in", func(t *testing.T) {
		w := cl.do(http.MethodPost, "/api/auth/setup", setup)
		expectStatus(t, w, http.StatusCreated)
		if _, ok := cl.cookies["readnext_session"]; !ok {
			t.Fatal("expected session cookie")
		}

		w = cl.do(http.MethodGet, "/api/library", nil)
		expectStatus(t, w, http.StatusOK)
		body := decode(t, w)
		if body["auth_type"] != string(AuthTypeSession) || body["user_id"] == float64(0) {
			t.Errorf("unexpected caller: %v", body)
		}
	})

	t.Run("second setup conflicts", func(t *testing.T) {
		w := cl.do(http.MethodPost, "/api/auth/setup", setup)
		expectStatus(t, w, http.StatusConflict)
	})

	t.Run("logout ends session", func(t *testing.T) {
		w := cl.do(http.MethodPost, "/api/auth/logout", nil)
		expectStatus(t, w, http.StatusOK)

		w = cl.do(http.MethodGet, "/api/library", nil)
		expectStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		w := cl.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "wrong-password-123"})
		expectStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("login by email", func(t *testing.T) {
		w := cl.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin@example.com", "password": testPassword})
		expectStatus(t, w, http.StatusOK)

		w = cl.do(http.MethodGet, "/api/library", nil)
		expectStatus(t, w, http.StatusOK)
	})

	want := []string{"setup", "logout", "login_failed", "login"}
	if len(srv.events.actions) != len(want) {
		t.Fatalf("expected events %v, got %v", want, srv.events.actions)
	}
	for i := range want {
		if srv.events.actions[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], srv.events.actions[i])
		}
	}
}

func TestSetupValidation(t *testing.T) {
	srv := newTestServer(t, config.Auth{Mode: config.AuthModeLocal})
	cl := srv.client(t)
	cl.do(http.MethodGet, "/api/auth/status", nil)

	w := cl.do(http.MethodPost, "/api/auth/setup", map[string]string{"username": "admin", "email": "admin@example.com", "password": "short"})
	expectStatus(t, w, http.StatusBadRequest)

	w = cl.do(http.MethodPost, "/api/auth/setup", map[string]string{"username": "admin"})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestLogin_RateLimited(t *testing.T) {
	srv := newTestServer(t, config.Auth{Mode: config.AuthModeLocal, MaxLoginAttempts: 2})
	if _, err := srv.service.Setup("admin", "admin@example.com", testPassword); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	cl := srv.client(t)
	cl.do(http.MethodGet, "/api/auth/status", nil)

	bad := map[string]string{"username": "admin", "password": "wrong-password-123"}
	expectStatus(t, cl.do(http.MethodPost, "/api/auth/login", bad), http.StatusUnauthorized)
	expectStatus(t, cl.do(http.MethodPost, "/api/auth/login", bad), http.StatusUnauthorized)

	w := cl.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": testPassword})
	expectStatus(t, w, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestAPITokens(t *testing.T) {
	srv := newTestServer(t, config.Auth{Mode: config.AuthModeLocal})
	cl := srv.client(t)
	cl.do(http.MethodGet, "/api/auth/status", nil)
	expectStatus(t, cl.do(http.MethodPost, "/api/auth/setup", map[string]string{
		"username": "admin", "email": "admin@example.com", "password": testPassword,
	}), http.StatusCreated)

	w := cl.do(http.MethodPost, "/api/auth/tokens", nil)
	expectStatus(t, w, http.StatusOK)
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatal("expected token in response")
	}

	api := srv.client(t)
	api.bearer = token

	t.Run("bearer authenticates", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/library", nil)
		expectStatus(t, w, http.StatusOK)
		if decode(t, w)["auth_type"] != string(AuthTypeBearer) {
			t.Errorf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("bearer skips CSRF", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/library/books", nil)
		expectStatus(t, w, http.StatusOK)
	})

	t.Run("invalid bearer is not exempt", func(t *testing.T) {
		bogus := srv.client(t)
		bogus.bearer = "not-a-token"
		w := bogus.do(http.MethodPost, "/api/library/books", nil)
		expectStatus(t, w, http.StatusForbidden)
	})

	t.Run("revoke", func(t *testing.T) {
		expectStatus(t, api.do(http.MethodDelete, "/api/auth/tokens", nil), http.StatusOK)
		expectStatus(t, api.do(http.MethodGet, "/api/library", nil), http.StatusUnauthorized)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

func TestStrictTransportSecurity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(StrictTransportSecurityMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set over plain HTTP")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS behind an HTTPS proxy")
	}
}
