package simulate

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ethos/internal/domain/progression"
	"github.com/okian/ethos/internal/domain/trait"
)

// Initial trait values are drawn from [0, startCeiling].
const startCeiling = 60

// Script is the ordered snapshot stream of one character together with the
// state the service must end up in once every snapshot is observed and
// committed in order.
type Script struct {
	CharacterID string
	Events      []Event
	Final       trait.Snapshot
	Milestones  int
	Unlocks     int
}

// Plan is the full workload of a run.
type Plan struct {
	Scripts []Script
}

// Events flattens the plan, character by character.
func (p Plan) Events() []Event {
	var out []Event
	for _, s := range p.Scripts {
		out = append(out, s.Events...)
	}
	return out
}

// Generate builds a random-walk plan. Values move in whole steps so snapshots
// regularly land exactly on unlock thresholds. The same seed yields the same
// walk; identifiers are always fresh.
func Generate(cfg *Config, now func() time.Time) Plan {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	plan := Plan{Scripts: make([]Script, cfg.Characters)}
	for i := range plan.Scripts {
		plan.Scripts[i] = walk(rng, cfg, uuid.NewString(), now)
	}
	return plan
}

func walk(rng *rand.Rand, cfg *Config, characterID string, now func() time.Time) Script {
	script := Script{CharacterID: characterID, Events: make([]Event, 0, cfg.Steps)}

	values := make(trait.Snapshot, len(cfg.Traits))
	for _, name := range cfg.Traits {
		values[name] = float64(rng.IntN(startCeiling + 1))
	}

	var previous trait.Snapshot
	for step := 0; step < cfg.Steps; step++ {
		if step > 0 {
			for _, name := range cfg.Traits {
				move := rng.IntN(2*cfg.MaxStep+1) - cfg.MaxStep
				values[name] = trait.Clamp(values[name] + float64(move))
			}
		}
		current := values.Clone()

		// The first snapshot seeds the baseline without events.
		if previous != nil {
			res := progression.Diff(previous, current)
			script.Milestones += len(res.Milestones)
			script.Unlocks += len(res.Unlocks)
		}

		script.Events = append(script.Events, Event{
			EventID:     uuid.NewString(),
			CharacterID: characterID,
			Traits:      current,
			TS:          now().UTC().Format(time.RFC3339),
		})
		previous = current
	}
	script.Final = previous
	return script
}
