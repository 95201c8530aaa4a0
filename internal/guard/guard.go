// Package guard decides whether a request may reach a guarded page.
//
// The decision is a three-way verdict: allow, send to the login page, or send
// to the default page. Guarding never partially renders; a denied request is
// always redirected whole. Unknown permission ids deny access, they never
// grant it.
package guard

import (
	"github.com/rs/zerolog/log"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/authstore"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
)

// Redirect targets for denied requests.
const (
	// LoginPath is where unauthenticated requests are sent.
	LoginPath = "/login"

	// DefaultPath is where authenticated but unauthorized requests are sent.
	DefaultPath = "/dashboard"
)

// Verdict is the outcome of a guard check.
type Verdict int

const (
	// Allow lets the request through.
	Allow Verdict = iota

	// RedirectToLogin denies the request because no identity is held.
	RedirectToLogin

	// RedirectToDefault denies the request because the identity lacks the permission.
	RedirectToDefault
)

// Check evaluates whether the session held by store may use the given
// permission. A nil store or one with no identity is unauthenticated. A
// permission id outside the catalog is logged and denied; a typo in a route
// registration must fail closed.
func Check(store *authstore.Store, perm string) Verdict {
	if store == nil || !store.LoggedIn() {
		return RedirectToLogin
	}

	if !catalog.Known(perm) {
		log.Error().Str("permission", perm).Msg("guard check against unknown permission id")

		return RedirectToDefault
	}

	if store.HasPermission(perm) {
		return Allow
	}

	return RedirectToDefault
}
