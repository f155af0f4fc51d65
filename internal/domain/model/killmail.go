// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Killmail is a single destruction event as retained by the service.
// Values are never mutated after parsing; replacement is the only update.
type Killmail struct {
	ID            int64     // unique killmail id, the dedupe key
	Time          time.Time // in-game event time
	ReceivedAt    time.Time // local ingestion time
	CharacterID   int64
	CorporationID int64
	AllianceID    *int64 // nil for victims outside an alliance
	ShipTypeID    int64
	SolarSystemID int64
	URL           string  // zKillboard detail page
	TotalValue    float64 // ISK value of the loss
	ScaledValue   float64 // scale(TotalValue), fixed at parse time
}

// Age returns how long ago the killmail was received.
func (k Killmail) Age(now time.Time) time.Duration {
	return now.Sub(k.ReceivedAt)
}

// Lifetime returns how long the killmail is retained: normal scaled by ScaledValue.
// The product saturates at the largest representable duration.
func (k Killmail) Lifetime(normal time.Duration) time.Duration {
	if k.ScaledValue <= 0 || normal <= 0 {
		return 0
	}
	f := float64(normal) * k.ScaledValue
	if f >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(f)
}

// Expired reports whether the killmail's retention lifetime has run out at now.
// A zero ScaledValue is expired regardless of age.
func (k Killmail) Expired(now time.Time, normal time.Duration) bool {
	if k.ScaledValue <= 0 {
		return true
	}
	return k.Age(now) >= k.Lifetime(normal)
}

// HasAlliance reports whether the victim belongs to an alliance.
func (k Killmail) HasAlliance() bool {
	return k.AllianceID != nil
}
