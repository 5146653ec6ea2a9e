// Package refimages classifies caller-supplied reference images by role and
// materializes them into ordered provider payloads.
package refimages

import (
	"strings"

	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// Label keywords per role, matched as lower-case substrings. A label matching
// none of them is a product reference.
var (
	BackgroundKeywords = []string{"background", "backdrop", "scene", "setting", "environment", "surface", "location"}
	StyleKeywords      = []string{"style", "lighting", "reference", "mood", "aesthetic", "inspiration", "vibe", "palette", "color", "colour"}
	ProductKeywords    = []string{"product", "subject", "bottle", "packshot", "pack shot", "packaging", models.PreviousIterationLabel}
)

var roleKeywords = []struct {
	role     models.ReferenceRole
	keywords []string
}{
	{models.RoleBackground, BackgroundKeywords},
	{models.RoleStyle, StyleKeywords},
	{models.RoleProduct, ProductKeywords},
}

// Classify returns the role of a reference image from its label. Background
// keywords are checked first, then style, then product.
func Classify(img models.ReferenceImage) models.ReferenceRole {
	label := strings.ToLower(strings.TrimSpace(img.Label))
	if label == "" {
		return models.RoleProduct
	}
	for _, rk := range roleKeywords {
		for _, kw := range rk.keywords {
			if strings.Contains(label, kw) {
				return rk.role
			}
		}
	}
	return models.RoleProduct
}

// Categorized holds reference images grouped by role, each in input order.
type Categorized struct {
	Product    []models.ReferenceImage `json:"product"`
	Background []models.ReferenceImage `json:"background"`
	Style      []models.ReferenceImage `json:"style"`
}

// Categorize groups images by role. Images without a URL are dropped.
func Categorize(images []models.ReferenceImage) Categorized {
	var c Categorized
	for _, img := range images {
		img.URL = strings.TrimSpace(img.URL)
		if img.URL == "" {
			continue
		}
		switch Classify(img) {
		case models.RoleBackground:
			c.Background = append(c.Background, img)
		case models.RoleStyle:
			c.Style = append(c.Style, img)
		default:
			c.Product = append(c.Product, img)
		}
	}
	return c
}

// Len returns the number of categorized images.
func (c Categorized) Len() int {
	return len(c.Product) + len(c.Background) + len(c.Style)
}

// roleImage is a reference image with its resolved role.
type roleImage struct {
	role models.ReferenceRole
	img  models.ReferenceImage
}

// ordered flattens the groups into product, background, style order.
func (c Categorized) ordered() []roleImage {
	out := make([]roleImage, 0, c.Len())
	for _, role := range models.ReferenceRoles {
		for _, img := range c.byRole(role) {
			out = append(out, roleImage{role: role, img: img})
		}
	}
	return out
}

func (c Categorized) byRole(role models.ReferenceRole) []models.ReferenceImage {
	switch role {
	case models.RoleProduct:
		return c.Product
	case models.RoleBackground:
		return c.Background
	default:
		return c.Style
	}
}

// WithPreviousIteration prepends the parent generation's image as a product
// reference. Later references with the same URL are dropped.
func WithPreviousIteration(images []models.ReferenceImage, parentImageURL string) []models.ReferenceImage {
	parentImageURL = strings.TrimSpace(parentImageURL)
	if parentImageURL == "" {
		return images
	}
	out := make([]models.ReferenceImage, 0, len(images)+1)
	out = append(out, models.ReferenceImage{URL: parentImageURL, Label: models.PreviousIterationLabel})
	for _, img := range images {
		if strings.TrimSpace(img.URL) == parentImageURL {
			continue
		}
		out = append(out, img)
	}
	return out
}
