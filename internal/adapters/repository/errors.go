package repository

import "errors"

// ErrNotFound is returned when a killmail id is not retained.
var ErrNotFound = errors.New("killmail not found")
