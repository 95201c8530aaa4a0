// Package oidc provides the OpenID Connect login flow handlers.
//
// The flow is optional: when disabled in the configuration, or when the
// provider discovery fails at startup, no routes are registered and the
// console falls back to password login only.
package oidc
