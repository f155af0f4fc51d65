package model

// Response is the document returned by the RedisQ listen endpoint.
// A nil Package means no event was available.
type Response struct {
	Package *Package `json:"package"`
}

// Package wraps one killmail and its zKillboard metadata.
type Package struct {
	KillID   int64        `json:"killID"`
	Killmail *RawKillmail `json:"killmail"`
	Zkb      *RawZkb      `json:"zkb"`
}

// RawKillmail mirrors the ESI killmail document. Required numeric fields are
// pointers so a missing field can be told apart from zero.
type RawKillmail struct {
	KillmailID    int64      `json:"killmail_id"`
	KillmailTime  string     `json:"killmail_time"`
	SolarSystemID *int64     `json:"solar_system_id"`
	Victim        *RawVictim `json:"victim"`
}

// RawVictim is the victim sub-document.
type RawVictim struct {
	AllianceID    *int64       `json:"alliance_id,omitempty"`
	CharacterID   *int64       `json:"character_id"`
	CorporationID *int64       `json:"corporation_id"`
	ShipTypeID    *int64       `json:"ship_type_id"`
	Position      *RawPosition `json:"position,omitempty"`
}

// RawPosition is the victim's position in space.
type RawPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RawZkb carries zKillboard's valuation and flags.
type RawZkb struct {
	LocationID  int64    `json:"locationID"`
	Hash        string   `json:"hash"`
	FittedValue float64  `json:"fittedValue"`
	TotalValue  *float64 `json:"totalValue"`
	Points      int      `json:"points"`
	NPC         bool     `json:"npc"`
	Solo        bool     `json:"solo"`
	Awox        bool     `json:"awox"`
	URL         string   `json:"url"`
}
