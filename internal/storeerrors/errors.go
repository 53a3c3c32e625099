// Package storeerrors holds the photo-store sentinel errors in a leaf
// package so that both models/common (which re-exports them) and
// network (which returns them) can share the same values without an
// import cycle.
package storeerrors

import "errors"

// ErrRecordNotFound is returned by the photo store when no record
// matches the query.
var ErrRecordNotFound = errors.New("photo record not found")

// ErrDuplicateRecord is returned by the photo store when an insert
// hits the unique (user_id, mission_id) index.
var ErrDuplicateRecord = errors.New("photo record already exists for this user and mission")
