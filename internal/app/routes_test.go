package app

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/salesboard/internal/module/sales"
	"github.com/simp-lee/salesboard/internal/pkg"
)

const testCSRFSecret = "test-secret-32-chars-long-enough"

func init() {
	gin.SetMode(gin.TestMode)
}

// --- test helpers ---

// routeTestFS returns a minimal template filesystem for route handler tests.
func routeTestFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/layouts/base.html": &fstest.MapFile{
			Data: []byte(`{{ define "base" }}{{ block "content" . }}{{ end }}{{ end }}`),
		},
		"templates/partials/nav.html": &fstest.MapFile{
			Data: []byte(`{{ define "nav" }}{{ end }}`),
		},
		"templates/errors/404.html": &fstest.MapFile{
			Data: []byte(`{{ template "base" . }}{{ define "content" }}404:{{ .CSRFToken }}{{ end }}`),
		},
		"templates/errors/500.html": &fstest.MapFile{
			Data: []byte(`{{ template "base" . }}{{ define "content" }}500{{ end }}`),
		},
	}
}

// setupTestRouter creates a gin.Engine with the route-test template renderer.
func setupTestRouter() *gin.Engine {
	r := gin.New()
	renderer, err := NewTemplateRenderer(routeTestFS(), true)
	if err != nil {
		panic("setup renderer: " + err.Error())
	}
	r.HTMLRender = renderer
	return r
}

func fixedStatus(st sales.StoreStatus) func() sales.StoreStatus {
	return func() sales.StoreStatus { return st }
}

type healthBody struct {
	Status     string `json:"status"`
	Components struct {
		SalesBackend sales.StoreStatus `json:"sales_backend"`
	} `json:"components"`
}

// --- Health check tests ---

func TestHealthHandler(t *testing.T) {
	loadedAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     sales.StoreStatus
		wantCode   int
		wantStatus string
	}{
		{
			name:       "ok",
			status:     sales.StoreStatus{Status: sales.StatusOK, Count: 12, LoadedAt: loadedAt},
			wantCode:   http.StatusOK,
			wantStatus: sales.StatusOK,
		},
		{
			name:       "first load in flight",
			status:     sales.StoreStatus{Status: sales.StatusLoading, Loading: true},
			wantCode:   http.StatusOK,
			wantStatus: sales.StatusLoading,
		},
		{
			name:       "last load failed",
			status:     sales.StoreStatus{Status: sales.StatusDegraded, Error: "connection refused", LoadedAt: loadedAt},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: sales.StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", healthHandler(fixedStatus(tt.status)))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}

			var body healthBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, body.Status)
			}
			got := body.Components.SalesBackend
			if got.Status != tt.status.Status || got.Count != tt.status.Count || got.Error != tt.status.Error {
				t.Errorf("sales_backend = %+v, want %+v", got, tt.status)
			}
			if !got.LoadedAt.Equal(tt.status.LoadedAt) {
				t.Errorf("loadedAt = %v, want %v", got.LoadedAt, tt.status.LoadedAt)
			}
		})
	}
}

// --- NoRoute handler tests ---

func TestNoRouteHandler_JSON(t *testing.T) {
	r := setupTestRouter()
	r.NoRoute(noRouteHandler(testCSRFSecret))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	req.Header.Set("Accept", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["message"] != "not found" {
		t.Errorf("expected message 'not found', got %v", body["message"])
	}
	if body["data"] != nil {
		t.Errorf("expected data nil, got %v", body["data"])
	}
}

func TestNoRouteHandler_HTML(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		accept string
	}{
		{"html accept", "/nonexistent", "text/html"},
		{"wildcard accept", "/nonexistent", "*/*"},
		// "/api" without a trailing slash is not an API path.
		{"bare api path", "/api", "*/*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTestRouter()
			r.NoRoute(noRouteHandler(testCSRFSecret))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Accept", tt.accept)
			r.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", w.Code)
			}
			body := w.Body.String()
			if !strings.HasPrefix(body, "404:") {
				t.Errorf("expected HTML 404 page, got %q", body)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
				t.Errorf("expected HTML Content-Type, got %q", ct)
			}
		})
	}
}

func TestNoRouteHandler_ReusesCSRFCookie(t *testing.T) {
	r := setupTestRouter()
	if err := RegisterRoutes(r, validRouteDeps(&mockModule{})); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sales", nil))
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "_csrf_token" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected CSRF cookie from page GET")
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(cookie)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if got, want := w.Body.String(), "404:"+cookie.Value; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestNoRouteHandler_APIPaths_PreferJSON(t *testing.T) {
	for _, path := range []string{"/api/nonexistent", "/api/v1/nonexistent"} {
		t.Run(path, func(t *testing.T) {
			r := setupTestRouter()
			r.NoRoute(noRouteHandler(testCSRFSecret))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Accept", "*/*")
			r.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", w.Code)
			}
			var body pkg.Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Code != http.StatusNotFound || body.Message != "not found" {
				t.Errorf("unexpected body %+v", body)
			}
			if w.Header().Get("Set-Cookie") != "" {
				t.Error("API 404 should not issue a CSRF cookie")
			}
		})
	}
}

func TestNoRouteHandler_JSONWithWildcardAccept(t *testing.T) {
	r := setupTestRouter()
	r.NoRoute(noRouteHandler(testCSRFSecret))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	req.Header.Set("Accept", "application/json, */*")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("expected JSON Content-Type, got %q", ct)
	}
}

// --- Static routes tests ---

func TestRegisterStaticRoutes(t *testing.T) {
	for _, mode := range []string{gin.DebugMode, gin.ReleaseMode} {
		t.Run(mode, func(t *testing.T) {
			r := gin.New()
			if err := registerStaticRoutes(r, mode); err != nil {
				t.Fatalf("registerStaticRoutes: %v", err)
			}

			found := false
			for _, route := range r.Routes() {
				if route.Method == http.MethodGet && route.Path == "/static/*filepath" {
					found = true
					break
				}
			}
			if !found {
				t.Fatal("expected /static/*filepath route to be registered")
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("GET /static/app.js: expected 200, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), "showToast") {
				t.Error("expected app.js to register the showToast listener")
			}
		})
	}
}

func TestCacheStaticHandler_SetsCacheControl(t *testing.T) {
	memFS := fstest.MapFS{
		"test.css": &fstest.MapFile{Data: []byte("body{}")},
	}

	r := gin.New()
	r.GET("/static/*filepath", cacheStaticHandler(http.FS(memFS)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/test.css", nil))

	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=86400" {
		t.Errorf("expected Cache-Control 'public, max-age=86400', got %q", cc)
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestStaticFS_SubWorks(t *testing.T) {
	_, err := fs.Sub(fstest.MapFS{
		"static/app.css": &fstest.MapFile{Data: []byte("body{}")},
	}, "static")
	if err != nil {
		t.Fatalf("fs.Sub should not error: %v", err)
	}
}

// --- RegisterRoutes tests ---

// mockModule records the groups it was given and mounts one route on each.
type mockModule struct {
	called bool
}

func (m *mockModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	m.called = true
	api.GET("/sales", func(c *gin.Context) { pkg.Success(c, "api") })
	pages.GET("/sales", func(c *gin.Context) { c.String(http.StatusOK, "page") })
	pages.POST("/sales", func(c *gin.Context) { c.String(http.StatusOK, "submitted") })
}

func validRouteDeps(modules ...Module) *RouteDeps {
	return &RouteDeps{
		Modules:    modules,
		Status:     fixedStatus(sales.StoreStatus{Status: sales.StatusOK}),
		Mode:       gin.ReleaseMode,
		CSRFSecret: testCSRFSecret,
	}
}

func TestRegisterRoutes_Validation(t *testing.T) {
	tests := []struct {
		name    string
		router  *gin.Engine
		deps    *RouteDeps
		wantErr string
	}{
		{"nil router", nil, &RouteDeps{}, "router is nil"},
		{"nil deps", setupTestRouter(), nil, "route dependencies are nil"},
		{
			"no modules",
			setupTestRouter(),
			&RouteDeps{Status: fixedStatus(sales.StoreStatus{}), CSRFSecret: testCSRFSecret},
			"at least one module is required",
		},
		{
			"no status",
			setupTestRouter(),
			&RouteDeps{Modules: []Module{&mockModule{}}, CSRFSecret: testCSRFSecret},
			"store status func is required",
		},
		{
			"empty csrf secret",
			setupTestRouter(),
			&RouteDeps{Modules: []Module{&mockModule{}}, Status: fixedStatus(sales.StoreStatus{})},
			"csrf secret is required",
		},
		{
			"nil module entry",
			setupTestRouter(),
			validRouteDeps(&mockModule{}, nil),
			"module at index 1 is nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RegisterRoutes(tt.router, tt.deps)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q error, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegisterRoutes_ModulesAreCalled(t *testing.T) {
	m := &mockModule{}
	r := setupTestRouter()
	if err := RegisterRoutes(r, validRouteDeps(m)); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	if !m.called {
		t.Error("expected module RegisterRoutes to be called")
	}
}

func TestRegisterRoutes_Surface(t *testing.T) {
	r := setupTestRouter()
	apiHits := 0
	deps := validRouteDeps(&mockModule{})
	deps.API = []gin.HandlerFunc{func(c *gin.Context) {
		apiHits++
		c.Next()
	}}
	if err := RegisterRoutes(r, deps); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}

	t.Run("root redirects to dashboard", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/sales" {
			t.Errorf("expected Location /sales, got %q", loc)
		}
	})

	t.Run("api group runs api middleware", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if apiHits != 1 {
			t.Errorf("expected api middleware to run once, ran %d times", apiHits)
		}
	})

	t.Run("page GET issues csrf cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sales", nil))
		if w.Code != http.StatusOK || w.Body.String() != "page" {
			t.Fatalf("expected page body, got %d %q", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Header().Get("Set-Cookie"), "_csrf_token=") {
			t.Error("expected CSRF cookie on page GET")
		}
		if apiHits != 1 {
			t.Error("api middleware must not run for page routes")
		}
	})

	t.Run("page POST without token is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", nil))
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}
