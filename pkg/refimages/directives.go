package refimages

import (
	"fmt"
	"strings"

	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// Directives tells the image model how to use each attached reference. Image
// numbers follow payload order, which is the order the images are sent in.
func Directives(payloads []Payload) string {
	var b strings.Builder
	for i, p := range payloads {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Image %d (%s): %s", i+1, roleName(p), roleInstruction(p))
		if p.Description != "" {
			fmt.Fprintf(&b, " Note: %s", p.Description)
		}
	}
	return b.String()
}

func roleName(p Payload) string {
	if strings.EqualFold(p.Label, models.PreviousIterationLabel) {
		return models.PreviousIterationLabel
	}
	return string(p.Role)
}

func roleInstruction(p Payload) string {
	if strings.EqualFold(p.Label, models.PreviousIterationLabel) {
		return "the image being refined. Keep everything the instructions below do not change."
	}
	switch p.Role {
	case models.RoleBackground:
		return "use this environment as the setting. Do not copy any product from it."
	case models.RoleStyle:
		return "borrow lighting, mood and color grading only. Do not copy its objects or layout."
	default:
		return "reproduce this product exactly, including shape, label, cap and colors."
	}
}
