package progression

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/ethos/internal/domain/trait"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unlock is an ability granted when a trait lands exactly on a tier threshold.
type Unlock struct {
	ID          string   `json:"id"`
	Trait       string   `json:"trait"`
	Threshold   int      `json:"threshold"`
	Tier        Tier     `json:"tier"`
	Level       string   `json:"level"`
	Ability     string   `json:"ability"`
	Description string   `json:"description"`
	Effects     []string `json:"effects"`
}

// effect is one line of an ability's effect list; format takes the scaled
// magnitude as its only verb.
type effect struct {
	format string
	base   float64
}

// effectsFor is the per-trait effect table. Traits without an entry fall
// through to the generic effect in NewUnlock.
func effectsFor(name string) []effect {
	switch trait.Normalize(name) {
	case "courage":
		return []effect{{"+%s%% resistance to fear", 10}, {"+%s%% damage when outnumbered", 5}}
	case "honesty":
		return []effect{{"+%s%% merchant trust", 10}, {"+%s%% chance to detect lies", 5}}
	case "compassion":
		return []effect{{"+%s%% healing given", 10}, {"+%s%% companion morale", 5}}
	case "wisdom":
		return []effect{{"+%s%% experience gained", 5}, {"+%s%% spell efficiency", 5}}
	case "justice":
		return []effect{{"+%s%% reputation with lawful factions", 10}}
	case "temperance":
		return []effect{{"+%s%% stamina regeneration", 5}}
	case "loyalty":
		return []effect{{"+%s%% ally damage when grouped", 5}}
	case "humility":
		return []effect{{"-%s%% vendor prices", 5}}
	case "generosity":
		return []effect{{"+%s%% quest credit rewards", 5}}
	case "patience":
		return []effect{{"+%s%% crafting quality", 5}}
	case "greed":
		return []effect{{"+%s%% loot found", 10}, {"-%s%% reputation gain", 5}}
	case "wrath":
		return []effect{{"+%s%% critical damage", 10}, {"-%s%% defense while enraged", 5}}
	case "pride":
		return []effect{{"+%s%% leadership", 5}}
	case "deceit":
		return []effect{{"+%s%% stealth", 10}}
	case "cruelty":
		return []effect{{"+%s%% intimidation", 10}}
	default:
		return nil
	}
}

// NewUnlock builds the unlock for name at threshold. It reports false when
// threshold is not an unlock threshold.
func NewUnlock(name string, threshold int) (Unlock, bool) {
	tier, ok := TierFor(threshold)
	if !ok {
		return Unlock{}, false
	}
	level := trait.LevelOf(float64(threshold)).Name
	display := displayName(name)

	mult := tier.Multiplier()
	var effects []string
	for _, e := range effectsFor(name) {
		effects = append(effects, fmt.Sprintf(e.format, formatMagnitude(e.base*mult)))
	}
	if len(effects) == 0 {
		effects = []string{fmt.Sprintf("Enhanced %s abilities (x%s)", strings.ToLower(display), formatMagnitude(mult))}
	}

	return Unlock{
		ID:          UnlockID(name, tier),
		Trait:       name,
		Threshold:   threshold,
		Tier:        tier,
		Level:       level,
		Ability:     level + " " + display,
		Description: fmt.Sprintf("%s reached the %s level (%d).", display, level, threshold),
		Effects:     effects,
	}, true
}

func displayName(name string) string {
	n := strings.ReplaceAll(strings.TrimSpace(name), "_", " ")
	return cases.Title(language.English).String(n)
}

func formatMagnitude(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
