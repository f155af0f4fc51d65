// Package parser converts RedisQ wire payloads into Killmail values.
package parser

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/killwatch/internal/domain/model"
	"github.com/okian/killwatch/internal/domain/scaling"
)

// ISO-8601 layouts accepted for killmail_time. Timestamps without a zone are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ErrParse marks a payload that cannot be turned into a Killmail.
var ErrParse = errors.New("parse killmail")

// FieldError names the offending field of a rejected payload.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrParse, e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrParse) match.
func (e *FieldError) Unwrap() error { return ErrParse }

func missing(field string) error { return &FieldError{Field: field, Reason: "missing"} }

// Option applies a configuration option to the Parser.
type Option func(*Parser)

// WithClock overrides the clock used for ReceivedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// Parser validates raw killmails and derives ReceivedAt and ScaledValue.
type Parser struct {
	scale scaling.Func
	now   func() time.Time
}

// New creates a Parser using scale for ScaledValue. A nil scale falls back to
// the default logarithmic scaler.
func New(scale scaling.Func, opts ...Option) *Parser {
	if scale == nil {
		scale = scaling.NewLogarithmic().Func()
	}
	p := &Parser{
		scale: scale,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EventTime parses only the killmail timestamp. The poller uses it for the
// stale check that precedes full parsing.
func EventTime(raw *model.RawKillmail) (time.Time, error) {
	if raw == nil {
		return time.Time{}, missing("killmail")
	}
	if raw.KillmailTime == "" {
		return time.Time{}, missing("killmail_time")
	}
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw.KillmailTime); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &FieldError{Field: "killmail_time", Reason: err.Error()}
}

// Parse converts a package into a Killmail. ReceivedAt is stamped from the
// parser clock and ScaledValue is computed once from TotalValue.
func (p *Parser) Parse(pkg *model.Package) (model.Killmail, error) {
	if pkg == nil {
		return model.Killmail{}, missing("package")
	}
	raw := pkg.Killmail
	if raw == nil {
		return model.Killmail{}, missing("killmail")
	}
	if raw.KillmailID <= 0 {
		return model.Killmail{}, &FieldError{Field: "killmail_id", Reason: "must be positive"}
	}
	eventTime, err := EventTime(raw)
	if err != nil {
		return model.Killmail{}, err
	}
	if raw.SolarSystemID == nil {
		return model.Killmail{}, missing("solar_system_id")
	}

	victim := raw.Victim
	if victim == nil {
		return model.Killmail{}, missing("victim")
	}
	switch {
	case victim.CharacterID == nil:
		return model.Killmail{}, missing("victim.character_id")
	case victim.CorporationID == nil:
		return model.Killmail{}, missing("victim.corporation_id")
	case victim.ShipTypeID == nil:
		return model.Killmail{}, missing("victim.ship_type_id")
	}

	zkb := pkg.Zkb
	if zkb == nil {
		return model.Killmail{}, missing("zkb")
	}
	if zkb.TotalValue == nil {
		return model.Killmail{}, missing("zkb.totalValue")
	}
	total := *zkb.TotalValue
	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return model.Killmail{}, &FieldError{Field: "zkb.totalValue", Reason: fmt.Sprintf("invalid value %v", total)}
	}
	scaled := p.scale(total)
	if scaled < 0 || math.IsNaN(scaled) || math.IsInf(scaled, 0) {
		return model.Killmail{}, &FieldError{Field: "scaled_value", Reason: fmt.Sprintf("scale(%v) = %v", total, scaled)}
	}

	var alliance *int64
	if victim.AllianceID != nil {
		id := *victim.AllianceID
		alliance = &id
	}

	return model.Killmail{
		ID:            raw.KillmailID,
		Time:          eventTime,
		ReceivedAt:    p.now(),
		CharacterID:   *victim.CharacterID,
		CorporationID: *victim.CorporationID,
		AllianceID:    alliance,
		ShipTypeID:    *victim.ShipTypeID,
		SolarSystemID: *raw.SolarSystemID,
		URL:           zkb.URL,
		TotalValue:    total,
		ScaledValue:   scaled,
	}, nil
}
