package parser_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/killwatch/internal/domain/model"
	"github.com/okian/killwatch/internal/domain/parser"
	"github.com/okian/killwatch/internal/domain/scaling"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr[T any](v T) *T { return &v }

func validPackage() *model.Package {
	return &model.Package{
		KillID: 123456789,
		Killmail: &model.RawKillmail{
			KillmailID:    123456789,
			KillmailTime:  "2026-03-01T11:59:30Z",
			SolarSystemID: ptr(int64(30000142)),
			Victim: &model.RawVictim{
				AllianceID:    ptr(int64(99000001)),
				CharacterID:   ptr(int64(2112000001)),
				CorporationID: ptr(int64(98000001)),
				ShipTypeID:    ptr(int64(587)),
				Position:      &model.RawPosition{X: 1, Y: 2, Z: 3},
			},
		},
		Zkb: &model.RawZkb{
			TotalValue: ptr(250_000_000.0),
			URL:        "https://zkillboard.com/kill/123456789/",
		},
	}
}

func TestParse(t *testing.T) {
	Convey("Given a parser with a fixed clock and doubling scale", t, func() {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		p := parser.New(func(v float64) float64 { return v * 2 }, parser.WithClock(func() time.Time { return now }))

		Convey("When parsing a valid package", func() {
			km, err := p.Parse(validPackage())

			Convey("Then every field should be populated", func() {
				So(err, ShouldBeNil)
				So(km.ID, ShouldEqual, 123456789)
				So(km.Time, ShouldEqual, time.Date(2026, 3, 1, 11, 59, 30, 0, time.UTC))
				So(km.ReceivedAt, ShouldEqual, now)
				So(km.CharacterID, ShouldEqual, 2112000001)
				So(km.CorporationID, ShouldEqual, 98000001)
				So(*km.AllianceID, ShouldEqual, 99000001)
				So(km.ShipTypeID, ShouldEqual, 587)
				So(km.SolarSystemID, ShouldEqual, 30000142)
				So(km.URL, ShouldEqual, "https://zkillboard.com/kill/123456789/")
				So(km.TotalValue, ShouldEqual, 250_000_000.0)
				So(km.ScaledValue, ShouldEqual, 500_000_000.0)
			})
		})

		Convey("When the alliance is absent", func() {
			pkg := validPackage()
			pkg.Killmail.Victim.AllianceID = nil
			km, err := p.Parse(pkg)

			Convey("Then the killmail should have no alliance", func() {
				So(err, ShouldBeNil)
				So(km.AllianceID, ShouldBeNil)
			})
		})

		Convey("When the alliance id is mutated after parsing", func() {
			pkg := validPackage()
			km, err := p.Parse(pkg)
			So(err, ShouldBeNil)
			*pkg.Killmail.Victim.AllianceID = 1

			Convey("Then the killmail should keep its own copy", func() {
				So(*km.AllianceID, ShouldEqual, 99000001)
			})
		})

		Convey("When the timestamp has no zone", func() {
			pkg := validPackage()
			pkg.Killmail.KillmailTime = "2026-03-01T11:59:30"
			km, err := p.Parse(pkg)

			Convey("Then it should be read as UTC", func() {
				So(err, ShouldBeNil)
				So(km.Time, ShouldEqual, time.Date(2026, 3, 1, 11, 59, 30, 0, time.UTC))
			})
		})

		Convey("When the total value is zero", func() {
			pkg := validPackage()
			pkg.Zkb.TotalValue = ptr(0.0)
			km, err := p.Parse(pkg)

			Convey("Then it should parse with a zero scaled value", func() {
				So(err, ShouldBeNil)
				So(km.ScaledValue, ShouldEqual, 0.0)
			})
		})
	})
}

func TestParseFailures(t *testing.T) {
	Convey("Given a parser", t, func() {
		p := parser.New(scaling.Constant(1))

		cases := []struct {
			name   string
			field  string
			mutate func(*model.Package) *model.Package
		}{
			{"nil package", "package", func(*model.Package) *model.Package { return nil }},
			{"missing killmail", "killmail", func(pkg *model.Package) *model.Package { pkg.Killmail = nil; return pkg }},
			{"zero id", "killmail_id", func(pkg *model.Package) *model.Package { pkg.Killmail.KillmailID = 0; return pkg }},
			{"empty time", "killmail_time", func(pkg *model.Package) *model.Package { pkg.Killmail.KillmailTime = ""; return pkg }},
			{"malformed time", "killmail_time", func(pkg *model.Package) *model.Package { pkg.Killmail.KillmailTime = "yesterday"; return pkg }},
			{"missing system", "solar_system_id", func(pkg *model.Package) *model.Package { pkg.Killmail.SolarSystemID = nil; return pkg }},
			{"missing victim", "victim", func(pkg *model.Package) *model.Package { pkg.Killmail.Victim = nil; return pkg }},
			{"missing character", "victim.character_id", func(pkg *model.Package) *model.Package { pkg.Killmail.Victim.CharacterID = nil; return pkg }},
			{"missing corporation", "victim.corporation_id", func(pkg *model.Package) *model.Package { pkg.Killmail.Victim.CorporationID = nil; return pkg }},
			{"missing ship", "victim.ship_type_id", func(pkg *model.Package) *model.Package { pkg.Killmail.Victim.ShipTypeID = nil; return pkg }},
			{"missing zkb", "zkb", func(pkg *model.Package) *model.Package { pkg.Zkb = nil; return pkg }},
			{"missing value", "zkb.totalValue", func(pkg *model.Package) *model.Package { pkg.Zkb.TotalValue = nil; return pkg }},
			{"negative value", "zkb.totalValue", func(pkg *model.Package) *model.Package { pkg.Zkb.TotalValue = ptr(-1.0); return pkg }},
			{"NaN value", "zkb.totalValue", func(pkg *model.Package) *model.Package { pkg.Zkb.TotalValue = ptr(math.NaN()); return pkg }},
		}

		for _, tc := range cases {
			Convey("When the payload has "+tc.name, func() {
				_, err := p.Parse(tc.mutate(validPackage()))

				Convey("Then a field error should name "+tc.field, func() {
					So(errors.Is(err, parser.ErrParse), ShouldBeTrue)
					var fe *parser.FieldError
					So(errors.As(err, &fe), ShouldBeTrue)
					So(fe.Field, ShouldEqual, tc.field)
				})
			})
		}
	})

	Convey("Given a parser whose scale misbehaves", t, func() {
		p := parser.New(func(float64) float64 { return -1 })

		Convey("When parsing a valid package", func() {
			_, err := p.Parse(validPackage())

			Convey("Then the scaled value should be rejected", func() {
				var fe *parser.FieldError
				So(errors.As(err, &fe), ShouldBeTrue)
				So(fe.Field, ShouldEqual, "scaled_value")
			})
		})
	})

	Convey("Given a parser without a scale function", t, func() {
		p := parser.New(nil)

		Convey("Then the default scaler should be used", func() {
			km, err := p.Parse(validPackage())
			So(err, ShouldBeNil)
			So(km.ScaledValue, ShouldEqual, scaling.NewLogarithmic().Scale(250_000_000))
		})
	})
}

func TestEventTime(t *testing.T) {
	Convey("Given raw killmails", t, func() {
		Convey("Then EventTime should parse only the timestamp", func() {
			ts, err := parser.EventTime(&model.RawKillmail{KillmailTime: "2026-03-01T11:59:30.5Z"})
			So(err, ShouldBeNil)
			So(ts, ShouldEqual, time.Date(2026, 3, 1, 11, 59, 30, 500_000_000, time.UTC))
		})

		Convey("And a nil killmail should be an error", func() {
			_, err := parser.EventTime(nil)
			So(errors.Is(err, parser.ErrParse), ShouldBeTrue)
		})
	})
}
