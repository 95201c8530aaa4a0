package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/guard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/login"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/session"
)

// openPrefixes are reachable without a session: static assets and the OIDC
// flow. The login page has its own rule below.
var openPrefixes = []string{"/static", "/auth/oidc"}

// AuthMiddleware creates a Fiber middleware that redirects requests without a
// valid session to the login page, and logged-in visits of the login page to
// the default page. Per-route permission checks stay with the guard; this
// only separates logged-in from anonymous.
func AuthMiddleware(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		originalURL := strings.ToLower(c.OriginalURL())

		for _, prefix := range openPrefixes {
			if strings.HasPrefix(originalURL, prefix) {
				return c.Next()
			}
		}

		store := sessions.Resolve(c)
		loggedIn := store.LoggedIn()

		if store != nil {
			guard.StashStore(c, store)
		}

		if IsLoginPage(c) {
			if loggedIn {
				return c.Redirect(guard.DefaultPath)
			}

			return c.Next()
		}

		if !loggedIn {
			return c.Redirect(login.Path)
		}

		return c.Next()
	}
}

// IsLoginPage checks if the current request is for the login page.
func IsLoginPage(c *fiber.Ctx) bool {
	originalURL := strings.ToLower(c.OriginalURL())
	return strings.HasPrefix(originalURL, login.Path)
}
