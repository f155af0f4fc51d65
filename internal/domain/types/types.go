// Package types contains the JSON shapes exposed by the HTTP API.
package types

import (
	"time"

	"github.com/okian/killwatch/internal/domain/model"
)

// Killmail is the read shape of a retained killmail.
type Killmail struct {
	ID            int64     `json:"id"`
	Time          time.Time `json:"time"`
	ReceivedAt    time.Time `json:"received_at"`
	CharacterID   int64     `json:"character_id"`
	CorporationID int64     `json:"corporation_id"`
	AllianceID    *int64    `json:"alliance_id,omitempty"`
	ShipTypeID    int64     `json:"ship_type_id"`
	SolarSystemID int64     `json:"solar_system_id"`
	URL           string    `json:"url"`
	TotalValue    float64   `json:"total_value"`
	ScaledValue   float64   `json:"scaled_value"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Focus is the read shape of the current focus selection.
type Focus struct {
	Focused  bool      `json:"focused"`
	Killmail *Killmail `json:"killmail,omitempty"`
}

// Connection reports upstream liveness.
type Connection struct {
	Connected bool      `json:"connected"`
	LastPing  time.Time `json:"last_ping,omitempty"`
	Pings     uint64    `json:"pings"`
	State     string    `json:"poller_state"`
}

// FromKillmail converts a domain killmail to its read shape.
func FromKillmail(k model.Killmail, normalAge time.Duration) Killmail {
	return Killmail{
		ID:            k.ID,
		Time:          k.Time,
		ReceivedAt:    k.ReceivedAt,
		CharacterID:   k.CharacterID,
		CorporationID: k.CorporationID,
		AllianceID:    k.AllianceID,
		ShipTypeID:    k.ShipTypeID,
		SolarSystemID: k.SolarSystemID,
		URL:           k.URL,
		TotalValue:    k.TotalValue,
		ScaledValue:   k.ScaledValue,
		ExpiresAt:     k.ReceivedAt.Add(k.Lifetime(normalAge)),
	}
}
