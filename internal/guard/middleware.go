package guard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/authstore"
)

// StoreResolver resolves the session store owning the current request.
// Returns nil when the request carries no valid session.
type StoreResolver interface {
	Resolve(c *fiber.Ctx) *authstore.Store
}

// storeKey is the fiber locals key holding the session store resolved for the
// current request.
const storeKey = "sessionStore"

// StashStore records the resolved session store on the request so every later
// step in the chain observes the same instance. Resolving again mid-request
// could come back nil after a concurrent logout revoked the session.
func StashStore(c *fiber.Ctx, store *authstore.Store) {
	c.Locals(storeKey, store)
}

// StoreFromCtx returns the session store stashed on the request, or nil for
// an anonymous request.
func StoreFromCtx(c *fiber.Ctx) *authstore.Store {
	store, _ := c.Locals(storeKey).(*authstore.Store)
	return store
}

func resolveOnce(c *fiber.Ctx, sessions StoreResolver) *authstore.Store {
	if store := StoreFromCtx(c); store != nil {
		return store
	}

	store := sessions.Resolve(c)
	if store != nil {
		StashStore(c, store)
	}

	return store
}

// RequirePermission creates Fiber middleware that guards a route with a
// single permission id. The resolved store is stashed on the request for the
// handler behind it.
func RequirePermission(sessions StoreResolver, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		store := resolveOnce(c, sessions)

		switch Check(store, permission) {
		case Allow:
			return c.Next()

		case RedirectToLogin:
			return c.Redirect(LoginPath)

		default:
			ident := store.CurrentIdentity()
			if ident != nil {
				log.Warn().Str("id", ident.ID).Str("permission", permission).Str("path", c.Path()).
					Msg("permission denied")
			}

			return c.Redirect(DefaultPath)
		}
	}
}

// RequireAnyPermission creates Fiber middleware that lets the request through
// when the session holds at least one of the given permissions. Used for
// pages shared by two catalog entries, like a list page reachable from both
// the register and the consult permission.
func RequireAnyPermission(sessions StoreResolver, permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		store := resolveOnce(c, sessions)

		if len(permissions) == 0 {
			// nothing to satisfy, so nobody passes; a logged-in session
			// still belongs on the default page, not the login form
			if store.LoggedIn() {
				return c.Redirect(DefaultPath)
			}

			return c.Redirect(LoginPath)
		}

		verdict := RedirectToLogin

		for _, permission := range permissions {
			verdict = Check(store, permission)
			if verdict == Allow {
				return c.Next()
			}
		}

		if verdict == RedirectToLogin {
			return c.Redirect(LoginPath)
		}

		return c.Redirect(DefaultPath)
	}
}
