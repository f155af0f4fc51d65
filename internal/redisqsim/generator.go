// Package redisqsim simulates a RedisQ listen endpoint for local runs and tests.
package redisqsim

import (
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/okian/killwatch/internal/domain/model"
)

// Constants for synthetic killmail generation.
const (
	firstKillmailID     = 120_000_000
	minLogValue         = 6  // 1M ISK
	maxLogValue         = 11 // 100B ISK
	allianceProbability = 0.7
	staleAge            = 10 * time.Minute
)

var shipTypes = []int64{587, 603, 11567, 17738, 24690, 28352, 670, 33328}

var solarSystems = []int64{30000142, 30002187, 30002659, 30002510, 30003715, 31000005}

// Generator produces synthetic killmail packages with increasing ids.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	nextID int64
	now    func() time.Time
}

// NewGenerator creates a generator seeded for reproducible output.
func NewGenerator(seed uint64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		nextID: firstKillmailID,
		now:    now,
	}
}

// Next returns a fresh killmail timestamped now.
func (g *Generator) Next() *model.Package {
	return g.next(0)
}

// NextStale returns a killmail whose event time is well past any sane max age.
func (g *Generator) NextStale() *model.Package {
	return g.next(staleAge)
}

func (g *Generator) next(age time.Duration) *model.Package {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++

	value := math.Round(math.Pow(10, minLogValue+g.rng.Float64()*(maxLogValue-minLogValue))*100) / 100
	victim := &model.RawVictim{
		CharacterID:   ptr(2_100_000_000 + g.rng.Int64N(10_000_000)),
		CorporationID: ptr(98_000_000 + g.rng.Int64N(1_000_000)),
		ShipTypeID:    ptr(shipTypes[g.rng.IntN(len(shipTypes))]),
		Position: &model.RawPosition{
			X: g.rng.NormFloat64() * 1e12,
			Y: g.rng.NormFloat64() * 1e10,
			Z: g.rng.NormFloat64() * 1e12,
		},
	}
	if g.rng.Float64() < allianceProbability {
		victim.AllianceID = ptr(99_000_000 + g.rng.Int64N(100_000))
	}

	return &model.Package{
		KillID: id,
		Killmail: &model.RawKillmail{
			KillmailID:    id,
			KillmailTime:  g.now().Add(-age).UTC().Format(time.RFC3339),
			SolarSystemID: ptr(solarSystems[g.rng.IntN(len(solarSystems))]),
			Victim:        victim,
		},
		Zkb: &model.RawZkb{
			LocationID:  40_000_000 + g.rng.Int64N(1_000_000),
			Hash:        "sim",
			FittedValue: value * 0.8,
			TotalValue:  ptr(value),
			Points:      1 + g.rng.IntN(50),
			Solo:        g.rng.IntN(10) == 0,
			URL:         "https://zkillboard.com/kill/" + strconv.FormatInt(id, 10) + "/",
		},
	}
}

func (g *Generator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

func ptr[T any](v T) *T { return &v }
