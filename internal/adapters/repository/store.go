// Package repository holds the in-memory killmail retention store.
package repository

import (
	"context"
	"time"

	"github.com/okian/killwatch/internal/domain/model"
)

// Store provides read/write access to retained killmails.
type Store interface {
	// Insert adds or replaces the killmail with the same id.
	Insert(ctx context.Context, k model.Killmail)
	// Contains reports whether id is retained.
	Contains(ctx context.Context, id int64) bool
	// Trim removes every expired killmail and returns how many were removed.
	Trim(ctx context.Context, now time.Time) int

	// Focus selects id when present, otherwise clears the selection.
	Focus(ctx context.Context, id int64)
	// Unfocus clears the selection only when id is the focused killmail.
	Unfocus(ctx context.Context, id int64)

	// Get returns a retained killmail or ErrNotFound.
	Get(ctx context.Context, id int64) (model.Killmail, error)
	// All returns a snapshot ordered by ReceivedAt desc, then id desc.
	All(ctx context.Context) []model.Killmail
	// Focused returns the focused killmail, if any.
	Focused(ctx context.Context) (model.Killmail, bool)
	// Count returns the number of retained killmails.
	Count(ctx context.Context) int
}
