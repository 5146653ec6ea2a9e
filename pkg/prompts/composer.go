package prompts

import (
	"fmt"
	"strings"

	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/squads"
)

// MasterDocument is a copywriter master's persona text.
type MasterDocument struct {
	Name     string
	Document string
}

// ComposedPrompt is the final directive sent to a provider.
type ComposedPrompt struct {
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`

	// Rewrites and Forbidden are reapplied to generated copy.
	Rewrites  []RewriteRule `json:"-"`
	Forbidden []string      `json:"-"`
}

// stageGuidance tells the writer how much the reader already knows.
var stageGuidance = map[models.AwarenessStage]string{
	models.StageUnaware:       "The reader does not know they have this need. Open with a scene or a truth they recognize, not with the product.",
	models.StageProblemAware:  "The reader feels the problem but has no answer yet. Name the frustration precisely before offering relief.",
	models.StageSolutionAware: "The reader knows solutions exist. Show why this one is the right one.",
	models.StageProductAware:  "The reader knows this product. Remove the remaining doubt with specifics and proof.",
	models.StageMostAware:     "The reader is ready. Make the offer clear and the next step effortless.",
}

// CopyInput is everything the copy composer needs.
type CopyInput struct {
	Intent      string
	ContentType string
	Strategy    models.RoutingStrategy
	Masters     []MasterDocument
	Context     *Context
}

// ComposeCopy assembles the copywriting prompt. Context sections keep their
// order; the squad persona follows the global rules and the task comes last.
func ComposeCopy(in CopyInput) ComposedPrompt {
	ctx := in.Context
	if ctx == nil {
		ctx = &Context{}
	}
	forbidden := append(append([]string{}, ctx.Forbidden...), in.Strategy.ForbiddenLanguage...)

	var sections []Section
	for i, s := range ctx.Sections {
		sections = append(sections, s)
		if i == 0 {
			sections = append(sections, personaSection(in.Strategy, in.Masters))
		}
	}
	if len(ctx.Sections) == 0 {
		sections = append(sections, personaSection(in.Strategy, in.Masters))
	}
	sections = append(sections, copyTaskSection(in))

	return ComposedPrompt{
		System:    systemLine(ctx),
		Prompt:    render(sections, ctx.Rewrites, forbidden, ctx.Suppressed),
		Rewrites:  ctx.Rewrites,
		Forbidden: forbidden,
	}
}

func personaSection(s models.RoutingStrategy, masters []MasterDocument) Section {
	if s.CopySquad == "" {
		return Section{}
	}
	def := squads.Lookup(s.CopySquad)
	var docs []string
	for _, m := range masters {
		doc := strings.TrimSpace(m.Document)
		if doc == "" {
			continue
		}
		docs = append(docs, fmt.Sprintf("### %s\n%s", masterTitle(m.Name), doc))
	}
	return Section{
		Title: "Creative approach",
		Body: lines(
			fmt.Sprintf("Squad: %s. %s", s.CopySquad, def.Philosophy),
			strings.Join(docs, "\n\n"),
			labeled("Never use these words", s.ForbiddenLanguage),
		),
		Verbatim: true,
	}
}

// masterTitle turns "claude_hopkins" into "Claude Hopkins".
func masterTitle(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func copyTaskSection(in CopyInput) Section {
	var contentType string
	if ct := strings.TrimSpace(in.ContentType); ct != "" {
		contentType = "Format: " + strings.ReplaceAll(ct, "_", " ")
	}
	var stage string
	if in.Strategy.AwarenessStage != "" {
		stage = fmt.Sprintf("Reader awareness: %s. %s",
			strings.ReplaceAll(string(in.Strategy.AwarenessStage), "_", " "),
			stageGuidance[in.Strategy.AwarenessStage])
	}
	return Section{
		Title: "Task",
		Body:  lines(contentType, stage, strings.TrimSpace(in.Intent)),
	}
}

// ImageInput is everything the image composer needs.
type ImageInput struct {
	Intent              string
	Product             *models.Product
	Context             *Context
	Squad               models.CopySquad
	ReferenceDirectives string
	AspectRatio         string
	Resolution          models.Resolution
	NegativePrompt      string
}

// ComposeImage assembles the image prompt. The bottle safety directive comes
// before every other instruction, reference directives next, then the image
// context, art direction and task, and finally the trailing technical block
// whose avoid list repeats the bottle constraint.
func ComposeImage(in ImageInput) ComposedPrompt {
	ctx := in.Context
	if ctx == nil {
		ctx = &Context{}
	}
	bottle := ClassifyBottle(in.Product)

	sections := []Section{
		{Body: BottleDirective(bottle), Verbatim: true},
		{Title: "Reference images", Body: in.ReferenceDirectives, Verbatim: true},
	}
	sections = append(sections, ctx.Sections...)
	if in.Squad != "" {
		def := squads.Lookup(in.Squad)
		sections = append(sections, Section{
			Title: "Art direction",
			Body:  fmt.Sprintf("%s. %s", strings.ReplaceAll(string(def.VisualSquad), "_", " "), def.VisualDirection),
		})
	}
	sections = append(sections,
		Section{Title: "Shot", Body: strings.TrimSpace(in.Intent)},
		imageTrailer(in, bottle, ctx.Avoid),
	)

	return ComposedPrompt{
		System:    systemLine(ctx),
		Prompt:    render(sections, ctx.Rewrites, ctx.Forbidden, ctx.Suppressed),
		Rewrites:  ctx.Rewrites,
		Forbidden: ctx.Forbidden,
	}
}

func imageTrailer(in ImageInput, bottle BottleType, avoid []string) Section {
	var aspect, resolution, negative string
	if v := strings.TrimSpace(in.AspectRatio); v != "" {
		aspect = "Aspect ratio: " + v
	}
	if in.Resolution != "" {
		resolution = "Resolution: " + strings.ToUpper(string(in.Resolution))
	}
	if v := strings.TrimSpace(in.NegativePrompt); v != "" {
		negative = "Negative prompt: " + v
	}
	all := append(BottleAvoid(bottle), avoid...)
	return Section{
		Title:    "Output",
		Body:     lines(aspect, resolution, negative, labeled("Avoid", all)),
		Verbatim: true,
	}
}

// render applies constraints to every non-verbatim section, joins them, then
// strips suppressed terms from the whole text.
func render(sections []Section, rewrites []RewriteRule, forbidden, suppressed []string) string {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		if !s.Verbatim {
			s.Body = ApplyConstraints(s.Body, rewrites, forbidden)
		}
		out = append(out, s)
	}
	text := Join(out)
	if len(suppressed) > 0 {
		text = ApplyConstraints(text, nil, suppressed)
	}
	return text
}

func systemLine(ctx *Context) string {
	for _, s := range ctx.Sections {
		if s.Title == "Role" {
			first, _, _ := strings.Cut(strings.TrimSpace(s.Body), "\n")
			return first
		}
	}
	return ""
}
