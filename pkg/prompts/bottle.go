package prompts

import (
	"strings"

	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// BottleType is the dispensing mechanism a product image must respect.
type BottleType string

const (
	BottleOil     BottleType = "oil"
	BottleSpray   BottleType = "spray"
	BottleUnknown BottleType = "unknown"
)

// Keyword lists for bottle auto-detection. Matching is whole-word and case-insensitive.
var (
	OilIndicators   = []string{"dropper", "roller", "rollerball", "roll-on", "attar", "concentrate", "pipette", "oil"}
	SprayIndicators = []string{"spray", "atomizer", "atomiser", "mist", "eau de parfum", "eau de toilette", "edp", "edt", "cologne"}

	// ProductOilPhrases force an oil classification even when a spray keyword matches.
	ProductOilPhrases = []string{"perfume oil", "fragrance oil", "parfum oil", "body oil", "face oil"}
)

// bottleScanFields are the product fields searched by auto-detection.
var bottleScanFields = []string{"name", "format", "product_type", "description"}

// ClassifyBottle determines the bottle type of a product. An explicit
// bottle_type value always wins; otherwise the name, format, product type and
// description are scanned. Product-oil phrases and the skincare category force
// oil, then spray keywords win over generic oil keywords.
func ClassifyBottle(p *models.Product) BottleType {
	if p == nil {
		return BottleUnknown
	}
	if explicit := classifyExplicit(p.Field("bottle_type")); explicit != BottleUnknown {
		return explicit
	}

	var parts []string
	for _, name := range bottleScanFields {
		if v := p.Field(name); v != "" {
			parts = append(parts, v)
		}
	}
	text := strings.Join(parts, "\n")

	switch {
	case containsAny(text, ProductOilPhrases), p.NormalizedCategory() == models.CategorySkincare:
		return BottleOil
	case containsAny(text, SprayIndicators):
		return BottleSpray
	case containsAny(text, OilIndicators):
		return BottleOil
	default:
		return BottleUnknown
	}
}

// classifyExplicit maps a bottle_type override onto a bottle type. Unrecognized
// values fall through to auto-detection.
func classifyExplicit(value string) BottleType {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case v == "":
		return BottleUnknown
	case v == string(BottleOil), containsAny(v, OilIndicators):
		return BottleOil
	case v == string(BottleSpray), containsAny(v, SprayIndicators):
		return BottleSpray
	default:
		return BottleUnknown
	}
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if ContainsTerm(text, t) {
			return true
		}
	}
	return false
}

// BottleDirective returns the safety directive placed before every other
// instruction of an image prompt, or "" for unknown bottles.
func BottleDirective(t BottleType) string {
	switch t {
	case BottleOil:
		return "BOTTLE SAFETY (non-negotiable): this product is an oil-based format in a dropper, roller or stoppered bottle. " +
			"Never show a spray nozzle, atomizer, pump or dip tube, and never add any spray mechanism to the bottle."
	case BottleSpray:
		return "BOTTLE SAFETY (non-negotiable): this product is a spray bottle. Keep its spray cap and atomizer exactly as on the product reference. " +
			"Never show a dropper, pipette or roller ball."
	default:
		return ""
	}
}

// BottleAvoid returns the mechanisms repeated in the trailing avoid block.
func BottleAvoid(t BottleType) []string {
	switch t {
	case BottleOil:
		return []string{"spray nozzle", "atomizer", "pump", "dip tube"}
	case BottleSpray:
		return []string{"dropper", "pipette", "roller ball"}
	default:
		return nil
	}
}
