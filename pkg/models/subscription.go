package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is an organization's subscription level.
type Tier string

const (
	TierEssentials Tier = "essentials"
	TierStudio     Tier = "studio"
	TierSignature  Tier = "signature"
)

// Resolution is an image output size tier.
type Resolution string

const (
	Resolution1K Resolution = "1k"
	Resolution2K Resolution = "2k"
	Resolution4K Resolution = "4k"
)

// rank orders resolutions; unknown values rank below 1k.
func (r Resolution) rank() int {
	switch r {
	case Resolution1K:
		return 1
	case Resolution2K:
		return 2
	case Resolution4K:
		return 3
	}
	return 0
}

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool { return r.rank() > 0 }

// Subscription is stored in organization_subscriptions.
type Subscription struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Tier           Tier      `json:"tier"`
	Status         string    `json:"status"` // 'active', 'past_due', 'canceled'
	UpdatedAt      time.Time `json:"updated_at"`
}

// Entitlement is what a request may use for image and video generation.
type Entitlement struct {
	Tier           Tier       `json:"tier"`
	FreepikAllowed bool       `json:"freepik_allowed"`
	MaxResolution  Resolution `json:"max_resolution"`
	VideoAllowed   bool       `json:"video_allowed"`
	SuperAdmin     bool       `json:"super_admin,omitempty"`
}

// AllowsResolution reports whether r is within the entitlement.
func (e Entitlement) AllowsResolution(r Resolution) bool {
	return r.rank() <= e.MaxResolution.rank()
}

// HighResolutionAllowed reports whether anything above 1k is allowed.
func (e Entitlement) HighResolutionAllowed() bool {
	return e.MaxResolution.rank() > Resolution1K.rank()
}

// ResolveEntitlement maps a subscription to its entitlement. A missing or
// inactive subscription resolves to essentials; super admins get everything.
func ResolveEntitlement(sub *Subscription, superAdmin bool) Entitlement {
	if superAdmin {
		return Entitlement{Tier: TierSignature, FreepikAllowed: true, MaxResolution: Resolution4K, VideoAllowed: true, SuperAdmin: true}
	}

	tier := TierEssentials
	if sub != nil && (sub.Status == "" || sub.Status == "active") {
		tier = sub.Tier
	}

	switch tier {
	case TierSignature:
		return Entitlement{Tier: TierSignature, FreepikAllowed: true, MaxResolution: Resolution4K, VideoAllowed: true}
	case TierStudio:
		return Entitlement{Tier: TierStudio, FreepikAllowed: true, MaxResolution: Resolution2K}
	default:
		return Entitlement{Tier: TierEssentials, MaxResolution: Resolution1K}
	}
}
