package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// MediaKind is the type of artifact a generation produced.
type MediaKind string

const (
	MediaKindText  MediaKind = "text"
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// FallbackMarker is appended to GenerationProvider when a fallback served the request.
const FallbackMarker = " (fallback)"

// Generation is the persisted result of one generation call.
// Stored in the generations table. Records are never updated; refinement
// chains form a forest through ParentID.
type Generation struct {
	ID                 uuid.UUID  `json:"id"`
	OrganizationID     uuid.UUID  `json:"organization_id"`
	ProductID          *uuid.UUID `json:"product_id,omitempty"`
	MediaKind          MediaKind  `json:"media_kind"`
	Prompt             string     `json:"prompt"`       // caller intent, after refinement
	FinalPrompt        string     `json:"final_prompt"` // fully composed directive sent to the provider
	GeneratedText      *string    `json:"generated_text,omitempty"`
	ImageURL           *string    `json:"image_url,omitempty"`
	VideoURL           *string    `json:"video_url,omitempty"`
	GenerationProvider string     `json:"generation_provider"`
	ParentID           *uuid.UUID `json:"parent_id,omitempty"`
	ChainDepth         int        `json:"chain_depth"`
	IsChainOrigin      bool       `json:"is_chain_origin"`
	LibraryCategory    *string    `json:"library_category,omitempty"`
	Squad              *string    `json:"squad,omitempty"`
	AwarenessStage     *string    `json:"awareness_stage,omitempty"`
	AspectRatio        *string    `json:"aspect_ratio,omitempty"`
	Resolution         *string    `json:"resolution,omitempty"`
	Seed               *int64     `json:"seed,omitempty"`
	TierRestricted     bool       `json:"tier_restricted"`
	CreatedAt          time.Time  `json:"created_at"`
}

// SetLineage links g to parent. A nil parent makes g a chain origin.
func (g *Generation) SetLineage(parent *Generation) {
	if parent == nil {
		g.ParentID = nil
		g.ChainDepth = 0
		g.IsChainOrigin = true
		return
	}
	id := parent.ID
	g.ParentID = &id
	g.ChainDepth = parent.ChainDepth + 1
	g.IsChainOrigin = false
}

// MediaAsset holds image bytes produced by providers that return inline data.
// Stored in media_assets and served at /api/media/{id}.
type MediaAsset struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	MimeType       string    `json:"mime_type"`
	Data           []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Library categories used to bucket generations in the asset library.
const (
	LibraryCopy        = "copy"
	LibraryVideo       = "video"
	LibraryProductShot = "product_shot"
	LibraryLifestyle   = "lifestyle"
	LibraryFlatLay     = "flat_lay"
	LibrarySocial      = "social"
	LibraryCampaign    = "campaign"
)

var libraryRules = []struct {
	category string
	pattern  *regexp.Regexp
}{
	{LibraryFlatLay, regexp.MustCompile(`(?i)\b(flat[\s-]?lay|top[\s-]down|overhead|knolling)\b`)},
	{LibraryLifestyle, regexp.MustCompile(`(?i)\b(lifestyle|model|person|woman|man|hands?|wearing|everyday|at home|outdoors?)\b`)},
	{LibrarySocial, regexp.MustCompile(`(?i)\b(instagram|tiktok|story|stories|reel|social|feed post)\b`)},
	{LibraryCampaign, regexp.MustCompile(`(?i)\b(campaign|billboard|banner|hero|advert|ad|launch|editorial)\b`)},
}

// InferLibraryCategory buckets a generation by kind and intent text.
func InferLibraryCategory(kind MediaKind, intent string) string {
	switch kind {
	case MediaKindText:
		return LibraryCopy
	case MediaKindVideo:
		return LibraryVideo
	}
	for _, rule := range libraryRules {
		if rule.pattern.MatchString(intent) {
			return rule.category
		}
	}
	return LibraryProductShot
}
