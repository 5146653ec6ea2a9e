package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product categories with their own vocabulary register.
const (
	CategoryPersonalFragrance = "personal_fragrance"
	CategoryHomeFragrance     = "home_fragrance"
	CategorySkincare          = "skincare"
)

// Product is a sellable item with optional descriptive fields.
// Stored in the products table. Descriptive fields are split into a semantic
// partition (copywriting) and a visual partition (image generation); see
// SemanticFieldNames and VisualFieldNames.
type Product struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Handle         string    `json:"handle"`

	SKU               *string  `json:"sku,omitempty"`
	Price             *float64 `json:"price,omitempty"`
	InventoryQuantity *int     `json:"inventory_quantity,omitempty"`
	InStock           *bool    `json:"in_stock,omitempty"`
	IsBestseller      *bool    `json:"is_bestseller,omitempty"`
	ImageURL          *string  `json:"image_url,omitempty"`

	// Semantic fields
	Name                   *string `json:"name,omitempty"`
	Collection             *string `json:"collection,omitempty"`
	Category               *string `json:"category,omitempty"`
	ProductType            *string `json:"product_type,omitempty"`
	Format                 *string `json:"format,omitempty"`
	Description            *string `json:"description,omitempty"`
	BrandStory             *string `json:"brand_story,omitempty"`
	Tagline                *string `json:"tagline,omitempty"`
	KeyBenefits            *string `json:"key_benefits,omitempty"`
	TargetAudience         *string `json:"target_audience,omitempty"`
	AudiencePsychographics *string `json:"audience_psychographics,omitempty"`
	EmotionalHook          *string `json:"emotional_hook,omitempty"`
	Occasion               *string `json:"occasion,omitempty"`
	Season                 *string `json:"season,omitempty"`
	ScentProfile           *string `json:"scent_profile,omitempty"`
	TopNotes               *string `json:"top_notes,omitempty"`
	MiddleNotes            *string `json:"middle_notes,omitempty"`
	BaseNotes              *string `json:"base_notes,omitempty"`
	KeyIngredients         *string `json:"key_ingredients,omitempty"`
	SensoryDescription     *string `json:"sensory_description,omitempty"`
	Texture                *string `json:"texture,omitempty"`
	UsageRitual            *string `json:"usage_ritual,omitempty"`
	PricePositioning       *string `json:"price_positioning,omitempty"`
	SustainabilityNotes    *string `json:"sustainability_notes,omitempty"`
	Archetype              *string `json:"archetype,omitempty"`

	// Visual fields
	BottleType           *string `json:"bottle_type,omitempty"`
	ShotType             *string `json:"shot_type,omitempty"`
	CameraAngle          *string `json:"camera_angle,omitempty"`
	Lighting             *string `json:"lighting,omitempty"`
	LightingMood         *string `json:"lighting_mood,omitempty"`
	Composition          *string `json:"composition,omitempty"`
	Background           *string `json:"background,omitempty"`
	Surface              *string `json:"surface,omitempty"`
	ColorGrading         *string `json:"color_grading,omitempty"`
	ColorPalette         *string `json:"color_palette,omitempty"`
	Props                *string `json:"props,omitempty"`
	StylingNotes         *string `json:"styling_notes,omitempty"`
	Mood                 *string `json:"mood,omitempty"`
	DepthOfField         *string `json:"depth_of_field,omitempty"`
	PackagingDescription *string `json:"packaging_description,omitempty"`
	BottleColor          *string `json:"bottle_color,omitempty"`
	CapStyle             *string `json:"cap_style,omitempty"`
	LabelDetails         *string `json:"label_details,omitempty"`
	LiquidColor          *string `json:"liquid_color,omitempty"`
	VisualArchetype      *string `json:"visual_archetype,omitempty"`
	PhotographyStyle     *string `json:"photography_style,omitempty"`
	ModelDirection       *string `json:"model_direction,omitempty"`
	NegativeElements     *string `json:"negative_elements,omitempty"`
	SceneSetting         *string `json:"scene_setting,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type productField struct {
	label string
	ref   func(p *Product) **string
}

// productFields maps column names to their display label and struct member.
var productFields = map[string]productField{
	"name":                    {"Product name", func(p *Product) **string { return &p.Name }},
	"collection":              {"Collection", func(p *Product) **string { return &p.Collection }},
	"category":                {"Category", func(p *Product) **string { return &p.Category }},
	"product_type":            {"Product type", func(p *Product) **string { return &p.ProductType }},
	"format":                  {"Format", func(p *Product) **string { return &p.Format }},
	"description":             {"Description", func(p *Product) **string { return &p.Description }},
	"brand_story":             {"Brand story", func(p *Product) **string { return &p.BrandStory }},
	"tagline":                 {"Tagline", func(p *Product) **string { return &p.Tagline }},
	"key_benefits":            {"Key benefits", func(p *Product) **string { return &p.KeyBenefits }},
	"target_audience":         {"Target audience", func(p *Product) **string { return &p.TargetAudience }},
	"audience_psychographics": {"Audience psychographics", func(p *Product) **string { return &p.AudiencePsychographics }},
	"emotional_hook":          {"Emotional hook", func(p *Product) **string { return &p.EmotionalHook }},
	"occasion":                {"Occasion", func(p *Product) **string { return &p.Occasion }},
	"season":                  {"Season", func(p *Product) **string { return &p.Season }},
	"scent_profile":           {"Scent profile", func(p *Product) **string { return &p.ScentProfile }},
	"top_notes":               {"Top notes", func(p *Product) **string { return &p.TopNotes }},
	"middle_notes":            {"Middle notes", func(p *Product) **string { return &p.MiddleNotes }},
	"base_notes":              {"Base notes", func(p *Product) **string { return &p.BaseNotes }},
	"key_ingredients":         {"Key ingredients", func(p *Product) **string { return &p.KeyIngredients }},
	"sensory_description":     {"Sensory description", func(p *Product) **string { return &p.SensoryDescription }},
	"texture":                 {"Texture", func(p *Product) **string { return &p.Texture }},
	"usage_ritual":            {"Usage ritual", func(p *Product) **string { return &p.UsageRitual }},
	"price_positioning":       {"Price positioning", func(p *Product) **string { return &p.PricePositioning }},
	"sustainability_notes":    {"Sustainability", func(p *Product) **string { return &p.SustainabilityNotes }},
	"archetype":               {"Brand archetype", func(p *Product) **string { return &p.Archetype }},

	"bottle_type":           {"Bottle type", func(p *Product) **string { return &p.BottleType }},
	"shot_type":             {"Shot type", func(p *Product) **string { return &p.ShotType }},
	"camera_angle":          {"Camera angle", func(p *Product) **string { return &p.CameraAngle }},
	"lighting":              {"Lighting", func(p *Product) **string { return &p.Lighting }},
	"lighting_mood":         {"Lighting mood", func(p *Product) **string { return &p.LightingMood }},
	"composition":           {"Composition", func(p *Product) **string { return &p.Composition }},
	"background":            {"Background", func(p *Product) **string { return &p.Background }},
	"surface":               {"Surface", func(p *Product) **string { return &p.Surface }},
	"color_grading":         {"Color grading", func(p *Product) **string { return &p.ColorGrading }},
	"color_palette":         {"Color palette", func(p *Product) **string { return &p.ColorPalette }},
	"props":                 {"Props", func(p *Product) **string { return &p.Props }},
	"styling_notes":         {"Styling notes", func(p *Product) **string { return &p.StylingNotes }},
	"mood":                  {"Mood", func(p *Product) **string { return &p.Mood }},
	"depth_of_field":        {"Depth of field", func(p *Product) **string { return &p.DepthOfField }},
	"packaging_description": {"Packaging", func(p *Product) **string { return &p.PackagingDescription }},
	"bottle_color":          {"Bottle color", func(p *Product) **string { return &p.BottleColor }},
	"cap_style":             {"Cap style", func(p *Product) **string { return &p.CapStyle }},
	"label_details":         {"Label details", func(p *Product) **string { return &p.LabelDetails }},
	"liquid_color":          {"Liquid color", func(p *Product) **string { return &p.LiquidColor }},
	"visual_archetype":      {"Visual archetype", func(p *Product) **string { return &p.VisualArchetype }},
	"photography_style":     {"Photography style", func(p *Product) **string { return &p.PhotographyStyle }},
	"model_direction":       {"Model direction", func(p *Product) **string { return &p.ModelDirection }},
	"negative_elements":     {"Negative elements", func(p *Product) **string { return &p.NegativeElements }},
	"scene_setting":         {"Scene setting", func(p *Product) **string { return &p.SceneSetting }},
}

// SemanticFieldNames are the copywriting fields, in rendering order.
var SemanticFieldNames = []string{
	"name", "collection", "category", "product_type", "format", "description",
	"brand_story", "tagline", "key_benefits", "target_audience", "audience_psychographics",
	"emotional_hook", "occasion", "season", "scent_profile", "top_notes", "middle_notes",
	"base_notes", "key_ingredients", "sensory_description", "texture", "usage_ritual",
	"price_positioning", "sustainability_notes", "archetype",
}

// VisualFieldNames are the image-generation fields, in rendering order.
var VisualFieldNames = []string{
	"bottle_type", "shot_type", "camera_angle", "lighting", "lighting_mood", "composition",
	"background", "surface", "color_grading", "color_palette", "props", "styling_notes",
	"mood", "depth_of_field", "packaging_description", "bottle_color", "cap_style",
	"label_details", "liquid_color", "visual_archetype", "photography_style",
	"model_direction", "negative_elements", "scene_setting",
}

// NotesPyramidFieldNames are the fragrance-pyramid fields.
var NotesPyramidFieldNames = []string{"top_notes", "middle_notes", "base_notes"}

// DescriptiveFieldNames returns semantic then visual field names.
func DescriptiveFieldNames() []string {
	names := make([]string, 0, len(SemanticFieldNames)+len(VisualFieldNames))
	names = append(names, SemanticFieldNames...)
	return append(names, VisualFieldNames...)
}

// FieldValue is one populated descriptive field.
type FieldValue struct {
	Name  string
	Label string
	Value string
}

// FieldLabel returns the display label of a descriptive field.
func FieldLabel(name string) string {
	if f, ok := productFields[name]; ok {
		return f.label
	}
	return name
}

// IsDescriptiveField reports whether name is a semantic or visual field.
func IsDescriptiveField(name string) bool {
	_, ok := productFields[name]
	return ok
}

// Field returns the trimmed value of a descriptive field, "" when absent.
func (p *Product) Field(name string) string {
	if p == nil {
		return ""
	}
	f, ok := productFields[name]
	if !ok {
		return ""
	}
	if v := *f.ref(p); v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}

// SetField sets a descriptive field. Blank values clear it. Returns false for unknown names.
func (p *Product) SetField(name, value string) bool {
	f, ok := productFields[name]
	if !ok {
		return false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		*f.ref(p) = nil
		return true
	}
	*f.ref(p) = &value
	return true
}

// FieldRefs returns a **string per named field, for scanning rows. Unknown
// names yield a throwaway target.
func (p *Product) FieldRefs(names []string) []any {
	refs := make([]any, len(names))
	for i, name := range names {
		if f, ok := productFields[name]; ok {
			refs[i] = f.ref(p)
		} else {
			refs[i] = new(*string)
		}
	}
	return refs
}

// FieldArgs returns the current values of the named fields, for query arguments.
func (p *Product) FieldArgs(names []string) []any {
	args := make([]any, len(names))
	for i, name := range names {
		if f, ok := productFields[name]; ok {
			args[i] = *f.ref(p)
		} else {
			args[i] = (*string)(nil)
		}
	}
	return args
}

// SemanticFields returns the populated semantic fields in rendering order.
func (p *Product) SemanticFields() []FieldValue { return p.populated(SemanticFieldNames) }

// VisualFields returns the populated visual fields in rendering order.
func (p *Product) VisualFields() []FieldValue { return p.populated(VisualFieldNames) }

func (p *Product) populated(names []string) []FieldValue {
	var out []FieldValue
	for _, name := range names {
		if v := p.Field(name); v != "" {
			out = append(out, FieldValue{Name: name, Label: FieldLabel(name), Value: v})
		}
	}
	return out
}

// NormalizedCategory returns the product category as a snake_case key.
func (p *Product) NormalizedCategory() string {
	return NormalizeCategory(p.Field("category"))
}

// NormalizeCategory lower-cases a category and joins words with underscores,
// so "Home Fragrance" and "home-fragrance" both become "home_fragrance".
func NormalizeCategory(category string) string {
	fields := strings.FieldsFunc(strings.ToLower(category), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/'
	})
	return strings.Join(fields, "_")
}

// MergeProducts folds duplicates into keep. Duplicates must be ordered newest
// first: a blank field on keep takes the first non-empty value found.
func MergeProducts(keep *Product, newestFirst []*Product) {
	for _, name := range DescriptiveFieldNames() {
		if keep.Field(name) != "" {
			continue
		}
		for _, dup := range newestFirst {
			if v := dup.Field(name); v != "" {
				keep.SetField(name, v)
				break
			}
		}
	}
	for _, dup := range newestFirst {
		if keep.SKU == nil && dup.SKU != nil && strings.TrimSpace(*dup.SKU) != "" {
			keep.SKU = dup.SKU
		}
		if keep.Price == nil && dup.Price != nil {
			keep.Price = dup.Price
		}
		if keep.InventoryQuantity == nil && dup.InventoryQuantity != nil {
			keep.InventoryQuantity = dup.InventoryQuantity
		}
		if keep.InStock == nil && dup.InStock != nil {
			keep.InStock = dup.InStock
		}
		if keep.IsBestseller == nil && dup.IsBestseller != nil {
			keep.IsBestseller = dup.IsBestseller
		}
		if keep.ImageURL == nil && dup.ImageURL != nil && strings.TrimSpace(*dup.ImageURL) != "" {
			keep.ImageURL = dup.ImageURL
		}
	}
}
