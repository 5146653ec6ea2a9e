package squads

import (
	"regexp"
	"strings"

	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// DefaultSquad wins ties and briefs with no keyword hits.
const DefaultSquad = models.SquadStorytellers

// DefaultStage applies when the brief names no funnel stage.
const DefaultStage = models.StageSolutionAware

var overrideAliases = map[string]models.CopySquad{
	"scientists":   models.SquadScientists,
	"scientific":   models.SquadScientists,
	"data":         models.SquadScientists,
	"storytellers": models.SquadStorytellers,
	"story":        models.SquadStorytellers,
	"narrative":    models.SquadStorytellers,
	"disruptors":   models.SquadDisruptors,
	"direct":       models.SquadDisruptors,
	"bold":         models.SquadDisruptors,
}

var contentTypeSquads = map[string]models.CopySquad{
	"product_description": models.SquadScientists,
	"product_page":        models.SquadScientists,
	"instagram_caption":   models.SquadStorytellers,
	"email":               models.SquadStorytellers,
	"blog_post":           models.SquadStorytellers,
	"ad_copy":             models.SquadDisruptors,
	"landing_page":        models.SquadDisruptors,
	"sms":                 models.SquadDisruptors,
}

// SquadKeywords are the brief keywords scored per squad.
var SquadKeywords = map[models.CopySquad][]string{
	models.SquadScientists: {
		"data", "proof", "proven", "clinical", "study", "studies", "tested", "results",
		"ingredient", "ingredients", "science", "percent", "evidence", "formula", "research",
		"specs", "facts", "longevity",
	},
	models.SquadStorytellers: {
		"story", "journey", "memory", "memories", "emotion", "emotional", "heritage", "ritual",
		"dream", "nostalgia", "romance", "moment", "inspired", "evocative", "founder", "craft",
	},
	models.SquadDisruptors: {
		"urgent", "limited", "launch", "exclusive", "sale", "drop", "last chance", "today",
		"hurry", "flash", "deadline", "countdown", "bold", "offer",
	},
}

// StageKeywords are the brief keywords scored per awareness stage.
var StageKeywords = map[models.AwarenessStage][]string{
	models.StageUnaware:       {"discover", "introduce", "introducing", "curious", "imagine", "did you know"},
	models.StageProblemAware:  {"problem", "struggle", "tired of", "frustrated", "pain", "issue", "worried", "fades"},
	models.StageSolutionAware: {"solution", "alternative", "how to", "better way", "option"},
	models.StageProductAware:  {"compare", "comparison", "versus", "vs", "review", "reviews", "why choose"},
	models.StageMostAware:     {"buy", "order", "discount", "code", "restock", "back in stock", "reorder", "checkout"},
}

var (
	squadPatterns = compileKeywordSets(SquadKeywords)
	stagePatterns = compileKeywordSets(StageKeywords)
)

func compileKeywordSets[K comparable](sets map[K][]string) map[K][]*regexp.Regexp {
	out := make(map[K][]*regexp.Regexp, len(sets))
	for k, words := range sets {
		for _, w := range words {
			out[k] = append(out[k], regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
		}
	}
	return out
}

func countHits(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

// Route picks the squad and awareness stage for a request. It is a pure function:
// override, then content type, then brief keyword scoring.
func Route(contentType, brief, override string) models.RoutingStrategy {
	squad, reason := resolveSquad(contentType, brief, override)
	def := Lookup(squad)

	return models.RoutingStrategy{
		CopySquad:         def.Squad,
		VisualSquad:       def.VisualSquad,
		PrimaryMaster:     def.PrimaryMaster,
		SecondaryMaster:   def.SecondaryMaster,
		AwarenessStage:    DetectStage(brief),
		ForbiddenLanguage: append([]string(nil), def.Forbidden...),
		Reason:            reason,
	}
}

func resolveSquad(contentType, brief, override string) (models.CopySquad, models.RoutingReason) {
	if squad, ok := overrideAliases[normalizeKey(override)]; ok {
		return squad, models.RoutedByOverride
	}
	if squad, ok := contentTypeSquads[normalizeKey(contentType)]; ok {
		return squad, models.RoutedByContentType
	}
	if squad, ok := ScoreBrief(brief); ok {
		return squad, models.RoutedByKeywords
	}
	return DefaultSquad, models.RoutedByDefault
}

// ScoreBrief returns the squad with the strictly highest keyword count.
// ok is false on ties and when nothing matches.
func ScoreBrief(brief string) (models.CopySquad, bool) {
	text := strings.ToLower(brief)

	best, bestScore, tied := models.CopySquad(""), 0, false
	for _, squad := range models.CopySquads {
		score := countHits(text, squadPatterns[squad])
		switch {
		case score > bestScore:
			best, bestScore, tied = squad, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		return "", false
	}
	return best, true
}

// DetectStage returns the awareness stage with the most keyword hits.
// Ties go to the earlier funnel stage; no hits yields DefaultStage.
func DetectStage(brief string) models.AwarenessStage {
	text := strings.ToLower(brief)

	best, bestScore := DefaultStage, 0
	for _, stage := range models.AwarenessStages {
		if score := countHits(text, stagePatterns[stage]); score > bestScore {
			best, bestScore = stage, score
		}
	}
	return best
}

func normalizeKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
