// Package squads routes generation requests to a copywriting squad and awareness stage.
package squads

import "github.com/lumenbrand/lumen-engine/pkg/models"

// Definition is the fixed persona assignment of one copy squad.
type Definition struct {
	Squad           models.CopySquad
	VisualSquad     models.VisualSquad
	PrimaryMaster   string
	SecondaryMaster string
	Philosophy      string
	VisualDirection string
	Forbidden       []string
}

// Definitions is the squad table. Masters do not overlap between squads.
var Definitions = map[models.CopySquad]Definition{
	models.SquadScientists: {
		Squad:           models.SquadScientists,
		VisualSquad:     models.VisualSquadMinimalists,
		PrimaryMaster:   "claude_hopkins",
		SecondaryMaster: "david_ogilvy",
		Philosophy:      "Sell with specifics. Every claim is concrete, measurable and tied to a reason to believe.",
		VisualDirection: "Clean negative space, precise product detail, even studio light, nothing decorative that the product does not need.",
		Forbidden:       []string{"magical", "miracle", "revolutionary", "game-changing", "unbelievable", "dreamy"},
	},
	models.SquadStorytellers: {
		Squad:           models.SquadStorytellers,
		VisualSquad:     models.VisualSquadCinematographers,
		PrimaryMaster:   "joseph_sugarman",
		SecondaryMaster: "gary_halbert",
		Philosophy:      "Pull the reader down the page with a story. Sensory detail first, product second, feeling always.",
		VisualDirection: "Cinematic frames with directional light, atmosphere and a sense of a moment just before or after.",
		Forbidden:       []string{"buy now", "act fast", "hurry", "clinically proven", "don't miss out"},
	},
	models.SquadDisruptors: {
		Squad:           models.SquadDisruptors,
		VisualSquad:     models.VisualSquadProvocateurs,
		PrimaryMaster:   "dan_kennedy",
		Philosophy:      "Direct response. One offer, one reason to act now, no hedging.",
		VisualDirection: "High contrast, bold crops and saturated color that stops the scroll.",
		Forbidden:       []string{"gentle", "subtle", "whisper", "delicate", "perhaps", "maybe"},
	},
}

// Lookup returns the definition for a squad, falling back to the default squad.
func Lookup(squad models.CopySquad) Definition {
	if d, ok := Definitions[squad]; ok {
		return d
	}
	return Definitions[DefaultSquad]
}
