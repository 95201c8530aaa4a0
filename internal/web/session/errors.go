package session

import "errors"

var (
	// ErrNotLoggedIn is returned when issuing a session for a store that holds no identity.
	ErrNotLoggedIn = errors.New("store holds no authenticated identity")
)
