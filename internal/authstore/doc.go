// Package authstore implements the session/identity store of the console.
//
// A Store holds at most one authenticated Identity. It delegates credential
// verification and record persistence to an identity.Provider and resolves
// effective permissions with a single centralized rule: the admin role and
// the "all" sentinel short-circuit every check, everything else is exact
// membership against the explicit permission list. The short-circuit is
// evaluated dynamically on every call and never materialized, so catalog
// additions are covered automatically.
//
// Stores are explicitly constructed and passed by reference; there is no
// ambient global instance. Each web session owns its own Store, created at
// login and disposed at logout.
//
// # Concurrency
//
// Every public operation is serialized against the store's mutex. A busy
// flag rejects a second login or administrative mutation while one is in
// flight (ErrBusy); provider calls run without the lock held. Logout bumps a
// generation counter, so an in-flight operation that resolves afterwards
// discards its result instead of resurrecting stale identity data. Provider
// calls are not retried; every failure surfaces once to the caller.
package authstore
