package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumenbrand/lumen-engine/pkg/jsonutil"
)

// KnowledgeType identifies which slice of brand guidance a fragment carries.
type KnowledgeType string

const (
	KnowledgeTypeBrandVoice           KnowledgeType = "brand_voice"
	KnowledgeTypeVocabulary           KnowledgeType = "vocabulary"
	KnowledgeTypeWritingExamples      KnowledgeType = "writing_examples"
	KnowledgeTypeStructuralGuidelines KnowledgeType = "structural_guidelines"
	KnowledgeTypeVisualStandards      KnowledgeType = "visual_standards"

	// categoryKnowledgePrefix prefixes per-category guideline fragments,
	// e.g. "category_home_fragrance".
	categoryKnowledgePrefix = "category_"
)

// CoreKnowledgeTypes lists the non-category fragment types in formatter order.
var CoreKnowledgeTypes = []KnowledgeType{
	KnowledgeTypeBrandVoice,
	KnowledgeTypeVocabulary,
	KnowledgeTypeWritingExamples,
	KnowledgeTypeStructuralGuidelines,
	KnowledgeTypeVisualStandards,
}

// CategoryKnowledgeType returns the fragment type for a product category.
func CategoryKnowledgeType(category string) KnowledgeType {
	return KnowledgeType(categoryKnowledgePrefix + NormalizeCategory(category))
}

// IsCategory reports whether t is a category_* fragment type.
func (t KnowledgeType) IsCategory() bool {
	return strings.HasPrefix(string(t), categoryKnowledgePrefix) && len(t) > len(categoryKnowledgePrefix)
}

// Category returns the category name of a category_* type, or "".
func (t KnowledgeType) Category() string {
	if !t.IsCategory() {
		return ""
	}
	return strings.TrimPrefix(string(t), categoryKnowledgePrefix)
}

// Valid reports whether t is a known core type or a category type.
func (t KnowledgeType) Valid() bool {
	for _, core := range CoreKnowledgeTypes {
		if t == core {
			return true
		}
	}
	return t.IsCategory()
}

// KnowledgeFragment is one typed, versioned piece of brand guidance.
// Stored in the brand_knowledge table. Fragments are never edited in place:
// a new version is inserted and the previous active one is deactivated.
type KnowledgeFragment struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	KnowledgeType  KnowledgeType   `json:"knowledge_type"`
	Content        json.RawMessage `json:"content"`
	IsActive       bool            `json:"is_active"`
	Version        int             `json:"version"`
	Source         string          `json:"source"` // 'document', 'website_scan', 'manual'
	CreatedAt      time.Time       `json:"created_at"`
}

// Decode unmarshals the fragment content into v.
func (f *KnowledgeFragment) Decode(v any) error {
	if len(f.Content) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Content, v); err != nil {
		return fmt.Errorf("decode %s v%d: %w", f.KnowledgeType, f.Version, err)
	}
	return nil
}

// BrandVoice is the content shape of a brand_voice fragment.
type BrandVoice struct {
	Tone            jsonutil.StringList `json:"tone"`
	Personality     jsonutil.StringList `json:"personality"`
	Style           jsonutil.StringList `json:"style"`
	Characteristics jsonutil.StringList `json:"characteristics"`
	Summary         string              `json:"summary,omitempty"`
}

// IsEmpty reports whether the voice carries nothing renderable.
func (v *BrandVoice) IsEmpty() bool {
	return v == nil || (len(v.Tone) == 0 && len(v.Personality) == 0 && len(v.Style) == 0 &&
		len(v.Characteristics) == 0 && strings.TrimSpace(v.Summary) == "")
}

// PhrasingPair maps a phrase to avoid onto its preferred replacement.
type PhrasingPair struct {
	Avoid  string `json:"avoid"`
	Prefer string `json:"prefer"`
}

// Vocabulary is the content shape of a vocabulary fragment.
type Vocabulary struct {
	Approved          jsonutil.StringList `json:"approved"`
	Forbidden         jsonutil.StringList `json:"forbidden"`
	PreferredPhrasing []PhrasingPair      `json:"preferred_phrasing"`
}

// IsEmpty reports whether the vocabulary carries nothing renderable.
func (v *Vocabulary) IsEmpty() bool {
	return v == nil || (len(v.Approved) == 0 && len(v.Forbidden) == 0 && len(v.PreferredPhrasing) == 0)
}

// WritingExample is one few-shot sample with the reason it is good or bad.
type WritingExample struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale,omitempty"`
}

// WritingExamples is the content shape of a writing_examples fragment.
type WritingExamples struct {
	Good []WritingExample `json:"good"`
	Bad  []WritingExample `json:"bad"`
}

// IsEmpty reports whether there are no examples.
func (e *WritingExamples) IsEmpty() bool {
	return e == nil || (len(e.Good) == 0 && len(e.Bad) == 0)
}

// StructuralGuidelines is the content shape of a structural_guidelines fragment.
type StructuralGuidelines struct {
	Sentence    jsonutil.StringList `json:"sentence"`
	Paragraph   jsonutil.StringList `json:"paragraph"`
	Punctuation jsonutil.StringList `json:"punctuation"`
	Rhythm      jsonutil.StringList `json:"rhythm"`
}

// IsEmpty reports whether no structural notes are present.
func (s *StructuralGuidelines) IsEmpty() bool {
	return s == nil || (len(s.Sentence) == 0 && len(s.Paragraph) == 0 && len(s.Punctuation) == 0 && len(s.Rhythm) == 0)
}

// VisualStandards is the content shape of a visual_standards fragment.
type VisualStandards struct {
	GoldenRule        string              `json:"golden_rule,omitempty"`
	ColorPalette      jsonutil.StringList `json:"color_palette"`
	LightingMandates  jsonutil.StringList `json:"lighting_mandates"`
	Templates         jsonutil.StringList `json:"templates"`
	ForbiddenElements jsonutil.StringList `json:"forbidden_elements"`
	ApprovedProps     jsonutil.StringList `json:"approved_props"`
}

// IsEmpty reports whether no visual standards are present.
func (v *VisualStandards) IsEmpty() bool {
	return v == nil || (strings.TrimSpace(v.GoldenRule) == "" && len(v.ColorPalette) == 0 &&
		len(v.LightingMandates) == 0 && len(v.Templates) == 0 && len(v.ForbiddenElements) == 0 &&
		len(v.ApprovedProps) == 0)
}

// CategoryGuidelines is the content shape of a category_* fragment.
type CategoryGuidelines struct {
	Guidelines     jsonutil.StringList `json:"guidelines"`
	RequiredTerms  jsonutil.StringList `json:"required_terms"`
	ForbiddenTerms jsonutil.StringList `json:"forbidden_terms"`
}

// BrandKnowledge is the decoded aggregate of an organization's active fragments,
// plus the product when one was requested. Any member may be nil.
type BrandKnowledge struct {
	Voice      *BrandVoice
	Vocabulary *Vocabulary
	Examples   *WritingExamples
	Structure  *StructuralGuidelines
	Visual     *VisualStandards
	Categories map[string]*CategoryGuidelines
	Product    *Product
}

// CategoryGuidelinesFor returns the guidelines for a category, or nil.
func (k *BrandKnowledge) CategoryGuidelinesFor(category string) *CategoryGuidelines {
	if k == nil || k.Categories == nil {
		return nil
	}
	return k.Categories[NormalizeCategory(category)]
}
