package login

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/guard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/registry"
	websess "github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/session"
)

// noOpViews is a minimal Fiber Views engine used for tests.
// It writes the "error" field from the provided fiber.Map (if any)
// so tests can assert error messages rendered by handlers.
type noOpViews struct{}

func (noOpViews) Load() error { return nil }

func (noOpViews) Render(w io.Writer, name string, data interface{}, _ ...string) error {
	if m, ok := data.(fiber.Map); ok {
		if v, exists := m["error"]; exists && v != nil && v.(string) != "" {
			_, _ = io.WriteString(w, v.(string))
			return nil
		}
	}
	// write template name to have some content
	_, _ = io.WriteString(w, name)

	return nil
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{Views: noOpViews{}})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate user model: %v", err)
	}

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		DevMode: false,
		Title:   "SGQ Test",
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}
}

type loginFixture struct {
	app      *fiber.App
	provider *identity.LocalProvider
}

func newLoginFixture(t *testing.T, cfg *config.Config) *loginFixture {
	t.Helper()

	db := newTestDB(t)
	app := newTestApp()
	provider := identity.NewLocalProvider(db)
	sessions := websess.NewManager(memory.New(), provider, cfg.Webserver.Session.ExpiryTime)

	var s Service
	if err := s.Init(app, cfg, provider, sessions); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	return &loginFixture{app: app, provider: provider}
}

func (f *loginFixture) createUser(t *testing.T, email, password string) {
	t.Helper()

	id, err := f.provider.CreateIdentity(context.Background(), email, password)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	err = f.provider.UpsertProfile(context.Background(), id, identity.Profile{
		Name:        "Test User",
		Role:        registry.RoleViewer,
		Permissions: registry.DefaultPermissions(registry.RoleViewer),
	})
	if err != nil {
		t.Fatalf("failed to set profile: %v", err)
	}
}

func performPost(t *testing.T, app *fiber.App, target string, form url.Values) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func TestPostSuccessSetsCookieAndRedirects(t *testing.T) {
	cfg := newTestConfig()
	cfg.DevMode = false // Secure cookie expected

	f := newLoginFixture(t, cfg)
	f.createUser(t, "bob@example.com", "s3cr3t")

	form := url.Values{
		"email":    {"bob@example.com"},
		"password": {"s3cr3t"},
	}
	resp := performPost(t, f.app, Path, form)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	if loc := resp.Header.Get("Location"); loc != guard.DefaultPath {
		t.Fatalf("expected redirect to %s, got %s", guard.DefaultPath, loc)
	}

	setCookie := resp.Header.Get("Set-Cookie")
	if !strings.Contains(setCookie, websess.CookieName+"=") {
		t.Fatalf("expected session cookie, got %q", setCookie)
	}

	if !strings.Contains(strings.ToLower(setCookie), "secure") {
		t.Fatalf("expected Secure flag on cookie when DevMode=false, got %q", setCookie)
	}
}

func TestPostDevModeDisablesSecure(t *testing.T) {
	cfg := newTestConfig()
	cfg.DevMode = true // Secure=false expected

	f := newLoginFixture(t, cfg)
	f.createUser(t, "carol@example.com", "pass")

	form := url.Values{
		"email":    {"carol@example.com"},
		"password": {"pass"},
	}
	resp := performPost(t, f.app, Path, form)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	setCookie := resp.Header.Get("Set-Cookie")
	if strings.Contains(strings.ToLower(setCookie), "secure") {
		t.Fatalf("did not expect Secure flag when DevMode=true, got %q", setCookie)
	}
}

func TestPostWrongPasswordRendersError(t *testing.T) {
	f := newLoginFixture(t, newTestConfig())
	f.createUser(t, "dave@example.com", "right")

	form := url.Values{
		"email":    {"dave@example.com"},
		"password": {"wrong"},
	}
	resp := performPost(t, f.app, Path, form)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK on render error page, got %d", resp.StatusCode)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(bodyBytes), "E-mail ou senha inválidos") {
		t.Fatalf("expected error message in body, got %q", string(bodyBytes))
	}

	if setCookie := resp.Header.Get("Set-Cookie"); strings.Contains(setCookie, websess.CookieName+"=") {
		t.Fatalf("failed login must not issue a session cookie, got %q", setCookie)
	}
}

func TestPostUnknownUserRendersError(t *testing.T) {
	f := newLoginFixture(t, newTestConfig())

	form := url.Values{
		"email":    {"nobody@example.com"},
		"password": {"whatever"},
	}
	resp := performPost(t, f.app, Path, form)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK on render error page, got %d", resp.StatusCode)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(bodyBytes), "E-mail ou senha inválidos") {
		t.Fatalf("expected error message in body, got %q", string(bodyBytes))
	}
}

func TestGetRendersLoginPage(t *testing.T) {
	f := newLoginFixture(t, newTestConfig())

	req := httptest.NewRequest(http.MethodGet, Path, nil)

	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(bodyBytes), TemplateName) {
		t.Fatalf("expected login template to be rendered, got %q", string(bodyBytes))
	}
}
