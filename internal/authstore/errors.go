package authstore

import "errors"

var (
	// ErrBusy is returned when a login or administrative mutation is started
	// while another one is still in flight on the same store.
	ErrBusy = errors.New("another operation is in progress")
)
