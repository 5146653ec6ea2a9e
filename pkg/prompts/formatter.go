package prompts

import (
	"fmt"
	"strings"

	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// PyramidTerms are the fragrance-pyramid phrases kept out of categories that
// do not describe scent as layered notes.
var PyramidTerms = []string{"top notes", "middle notes", "base notes"}

// Context is the formatted, ordered brand and product context for one request,
// together with the constraints the composer applies.
type Context struct {
	Sections []Section

	// Rewrites come from the vocabulary's preferred phrasing.
	Rewrites []RewriteRule

	// Forbidden terms are stripped from constrained sections and from generated copy.
	Forbidden []string

	// Suppressed terms must not appear anywhere in the composed prompt.
	Suppressed []string

	// Avoid lists visual elements rendered in the trailing avoid block of image prompts.
	Avoid []string

	// Category is the normalized product category, "" without a product.
	Category string
}

// categoryRegister describes how a product category is rendered.
type categoryRegister struct {
	directive   string
	hideFields  map[string]bool
	suppressed  []string
	notesFooter bool
}

var pyramidFields = map[string]bool{"top_notes": true, "middle_notes": true, "base_notes": true}

var categoryRegisters = map[string]categoryRegister{
	models.CategoryPersonalFragrance: {
		directive:   "Describe the fragrance through its notes as recorded below.",
		hideFields:  pyramidFields,
		notesFooter: true,
	},
	models.CategoryHomeFragrance: {
		directive:  "Describe the scent holistically, as one atmosphere that fills the room. Use the scent profile and do not break the scent into tiers or a pyramid.",
		hideFields: pyramidFields,
		suppressed: PyramidTerms,
	},
	models.CategorySkincare: {
		directive:  "Lead with the key ingredients and the benefits they deliver. Keep any mention of scent brief and do not describe it as a perfume.",
		hideFields: pyramidFields,
		suppressed: PyramidTerms,
	},
}

func registerFor(category string) categoryRegister {
	return categoryRegisters[category]
}

// FormatCopyContext renders the copywriting context: global rules, brand voice,
// vocabulary, writing examples, structure, the category-specific product
// specification and the collection context, in that order. Missing knowledge
// omits its section.
func FormatCopyContext(k *models.BrandKnowledge, product *models.Product, rules *GlobalRules) *Context {
	if k == nil {
		k = &models.BrandKnowledge{}
	}
	ctx := newContext(k, product, rules)

	ctx.Sections = append(ctx.Sections,
		globalSection(rules, false),
		voiceSection(k.Voice),
		vocabularySection(k.Vocabulary, ctx.Suppressed),
		examplesSection(k.Examples),
		structureSection(k.Structure),
		productSpecSection(product),
		categoryRulesSection(ctx.Category, k.CategoryGuidelinesFor(ctx.Category), ctx.Suppressed),
		collectionSection(product),
	)
	return ctx
}

// FormatImageContext renders the image context. Visual fields form the primary
// technical specification; semantic fields are demoted to a trailing product
// context block.
func FormatImageContext(k *models.BrandKnowledge, product *models.Product, rules *GlobalRules) *Context {
	if k == nil {
		k = &models.BrandKnowledge{}
	}
	ctx := newContext(k, product, rules)

	if k.Visual != nil {
		ctx.Avoid = append(ctx.Avoid, k.Visual.ForbiddenElements...)
	}
	if v := product.Field("negative_elements"); v != "" {
		ctx.Avoid = append(ctx.Avoid, v)
	}

	ctx.Sections = append(ctx.Sections,
		globalSection(rules, true),
		visualStandardsSection(k.Visual),
		technicalSpecSection(product),
		collectionSection(product),
		productContextSection(product, ctx.Suppressed),
	)
	return ctx
}

func newContext(k *models.BrandKnowledge, product *models.Product, rules *GlobalRules) *Context {
	ctx := &Context{Category: product.NormalizedCategory()}
	reg := registerFor(ctx.Category)
	ctx.Suppressed = append(ctx.Suppressed, reg.suppressed...)

	if rules != nil {
		ctx.Forbidden = append(ctx.Forbidden, rules.Forbidden...)
	}
	if k.Vocabulary != nil {
		ctx.Forbidden = append(ctx.Forbidden, k.Vocabulary.Forbidden...)
		for _, p := range k.Vocabulary.PreferredPhrasing {
			if strings.TrimSpace(p.Avoid) == "" {
				continue
			}
			ctx.Rewrites = append(ctx.Rewrites, RewriteRule{Find: p.Avoid, Replace: p.Prefer})
		}
	}
	if g := k.CategoryGuidelinesFor(ctx.Category); g != nil {
		ctx.Forbidden = append(ctx.Forbidden, g.ForbiddenTerms...)
	}
	ctx.Forbidden = append(ctx.Forbidden, ctx.Suppressed...)
	return ctx
}

func globalSection(rules *GlobalRules, image bool) Section {
	if rules == nil {
		return Section{}
	}
	list, label := rules.CopyRules, "Quality rules"
	if image {
		list, label = rules.ImageRules, "Image quality rules"
	}
	return Section{
		Title:    "Role",
		Body:     lines(rules.System, labeledBlock(label, list)),
		Verbatim: true,
	}
}

func voiceSection(v *models.BrandVoice) Section {
	if v.IsEmpty() {
		return Section{}
	}
	return Section{
		Title: "Brand voice",
		Body: lines(
			strings.TrimSpace(v.Summary),
			labeled("Tone", v.Tone),
			labeled("Personality", v.Personality),
			labeled("Style", v.Style),
			labeled("Characteristics", v.Characteristics),
		),
	}
}

func vocabularySection(v *models.Vocabulary, suppressed []string) Section {
	if v.IsEmpty() {
		return Section{}
	}
	var preferred []string
	for _, p := range v.PreferredPhrasing {
		avoid, prefer := strings.TrimSpace(p.Avoid), strings.TrimSpace(p.Prefer)
		switch {
		case avoid == "":
			continue
		case prefer == "":
			preferred = append(preferred, fmt.Sprintf("Drop %q", avoid))
		default:
			preferred = append(preferred, fmt.Sprintf("Say %q instead of %q", prefer, avoid))
		}
	}
	return Section{
		Title: "Vocabulary",
		Body: lines(
			labeled("Approved terms", v.Approved),
			labeledBlock("Preferred phrasing", preferred),
			labeledBlock("Never use", withoutTerms(v.Forbidden, suppressed)),
		),
		Verbatim: true,
	}
}

func examplesSection(e *models.WritingExamples) Section {
	if e.IsEmpty() {
		return Section{}
	}
	return Section{
		Title:    "Writing examples",
		Body:     lines(renderExamples("Write like this", e.Good), renderExamples("Never write like this", e.Bad)),
		Verbatim: true,
	}
}

func renderExamples(label string, examples []models.WritingExample) string {
	var b strings.Builder
	n := 0
	for _, ex := range examples {
		text := strings.TrimSpace(ex.Text)
		if text == "" {
			continue
		}
		n++
		if n == 1 {
			b.WriteString(label + ":")
		}
		fmt.Fprintf(&b, "\n%d. %s", n, text)
		if why := strings.TrimSpace(ex.Rationale); why != "" {
			fmt.Fprintf(&b, "\n   Why: %s", why)
		}
	}
	return b.String()
}

func structureSection(s *models.StructuralGuidelines) Section {
	if s.IsEmpty() {
		return Section{}
	}
	return Section{
		Title: "Structure",
		Body: lines(
			labeled("Sentences", s.Sentence),
			labeled("Paragraphs", s.Paragraph),
			labeled("Punctuation", s.Punctuation),
			labeled("Rhythm", s.Rhythm),
		),
	}
}

func productSpecSection(p *models.Product) Section {
	if p == nil {
		return Section{}
	}
	category := p.NormalizedCategory()
	reg := registerFor(category)

	var fields []string
	for _, f := range p.SemanticFields() {
		if f.Name == "collection" || f.Name == "category" || reg.hideFields[f.Name] {
			continue
		}
		fields = append(fields, f.Label+": "+f.Value)
	}

	var notes string
	if reg.notesFooter {
		notes = notesBlock(p)
	}

	if len(fields) == 0 && notes == "" {
		return Section{}
	}
	return Section{
		Title: specTitle("Product specification", category),
		Body:  lines(reg.directive, bulletList(fields), notes),
	}
}

// categoryRulesSection renders the organization's category_* fragment.
func categoryRulesSection(category string, g *models.CategoryGuidelines, suppressed []string) Section {
	if g == nil {
		return Section{}
	}
	return Section{
		Title: specTitle("Category rules", category),
		Body: lines(
			bulletList(withoutTerms(g.Guidelines, suppressed)),
			labeled("Always include", withoutTerms(g.RequiredTerms, suppressed)),
			labeled("Never use", withoutTerms(g.ForbiddenTerms, suppressed)),
		),
		Verbatim: true,
	}
}

// notesBlock renders only the recorded pyramid notes.
func notesBlock(p *models.Product) string {
	var notes []string
	for _, name := range models.NotesPyramidFieldNames {
		if v := p.Field(name); v != "" {
			notes = append(notes, models.FieldLabel(name)+": "+v)
		}
	}
	if len(notes) == 0 {
		return "No fragrance notes are recorded for this product. Do not name any."
	}
	return labeledBlock("Fragrance notes (use only these and do not invent additional notes)", notes)
}

func collectionSection(p *models.Product) Section {
	name := p.Field("collection")
	if name == "" {
		return Section{}
	}
	return Section{
		Title: "Collection",
		Body:  fmt.Sprintf("Part of the %s collection. Name the collection no more than once.", name),
	}
}

func visualStandardsSection(v *models.VisualStandards) Section {
	if v.IsEmpty() {
		return Section{}
	}
	return Section{
		Title: "Visual standards",
		Body: lines(
			strings.TrimSpace(v.GoldenRule),
			labeled("Color palette", v.ColorPalette),
			labeledBlock("Lighting", v.LightingMandates),
			labeledBlock("Approved templates", v.Templates),
			labeled("Approved props", v.ApprovedProps),
		),
	}
}

func technicalSpecSection(p *models.Product) Section {
	var fields []string
	for _, f := range p.VisualFields() {
		if f.Name == "negative_elements" {
			continue
		}
		fields = append(fields, f.Label+": "+f.Value)
	}
	if len(fields) == 0 {
		return Section{}
	}
	return Section{Title: "Technical specification", Body: bulletList(fields)}
}

func productContextSection(p *models.Product, suppressed []string) Section {
	if p == nil {
		return Section{}
	}
	reg := registerFor(p.NormalizedCategory())
	var fields []string
	for _, f := range p.SemanticFields() {
		if f.Name == "collection" || f.Name == "category" || reg.hideFields[f.Name] {
			continue
		}
		fields = append(fields, f.Label+": "+f.Value)
	}
	if reg.notesFooter {
		for _, name := range models.NotesPyramidFieldNames {
			if v := p.Field(name); v != "" {
				fields = append(fields, models.FieldLabel(name)+": "+v)
			}
		}
	}
	if len(fields) == 0 {
		return Section{}
	}
	return Section{Title: specTitle("Product context", p.NormalizedCategory()), Body: bulletList(fields)}
}

func specTitle(title, category string) string {
	if category == "" {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, strings.ReplaceAll(category, "_", " "))
}

// withoutTerms drops entries that contain any of the given terms, case-insensitively.
func withoutTerms(values, terms []string) []string {
	if len(terms) == 0 {
		return values
	}
	var out []string
outer:
	for _, v := range values {
		lower := strings.ToLower(v)
		for _, t := range terms {
			if strings.Contains(lower, strings.ToLower(t)) {
				continue outer
			}
		}
		out = append(out, v)
	}
	return out
}
