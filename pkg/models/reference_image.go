package models

// ReferenceRole is the part a reference image plays in an image generation.
type ReferenceRole string

const (
	RoleProduct    ReferenceRole = "product"
	RoleBackground ReferenceRole = "background"
	RoleStyle      ReferenceRole = "style"
)

// ReferenceRoles lists roles in materialization order.
var ReferenceRoles = []ReferenceRole{RoleProduct, RoleBackground, RoleStyle}

// PreviousIterationLabel labels the parent image injected into refinement requests.
const PreviousIterationLabel = "previous iteration"

// ReferenceImage is a caller-supplied reference plus role metadata.
// The role is derived from Label; see refimages.Classify.
type ReferenceImage struct {
	URL         string `json:"url"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}
