package core

// Tier is the account privilege level.
type Tier string

const (
	Free  Tier = "free"
	Pro   Tier = "pro"
	VIP   Tier = "vip"
	Admin Tier = "admin"
)

// Feature names used in upgrade prompts.
const (
	FeatureVoice    = "voice"
	FeatureImage    = "image"
	FeatureBudget   = "budget"
	FeatureAnalysis = "analysis"
	FeatureExport   = "export"
)

// Capabilities is everything a tier allows or shows.
type Capabilities struct {
	Badge              string
	CanVoice           bool
	CanImage           bool
	CanBudget          bool
	CanExportUnlimited bool
	ShowFeedback       bool
	ShowExtend         bool
	ShowAdminPanel     bool
}

// capabilities is the single source for tier based gating.
var capabilities = map[Tier]Capabilities{
	Admin: {
		Badge:              "Administrator",
		CanVoice:           true,
		CanImage:           true,
		CanBudget:          true,
		CanExportUnlimited: true,
		ShowAdminPanel:     true,
	},
	VIP: {
		Badge:              "VIP",
		CanVoice:           true,
		CanImage:           true,
		CanBudget:          true,
		CanExportUnlimited: true,
	},
	Pro: {
		Badge:              "Pro",
		CanVoice:           true,
		CanImage:           true,
		CanBudget:          true,
		CanExportUnlimited: true,
		ShowFeedback:       true,
		ShowExtend:         true,
	},
	Free: {
		Badge:        "Free",
		ShowFeedback: true,
	},
}

// TierFromFlags applies the precedence admin > vip > prem > free.
func TierFromFlags(isPrem, isVIP, isAdmin bool) Tier {
	switch {
	case isAdmin:
		return Admin
	case isVIP:
		return VIP
	case isPrem:
		return Pro
	default:
		return Free
	}
}

// CapabilitiesFor returns the capabilities of t. Unknown tiers get Free.
func CapabilitiesFor(t Tier) Capabilities {
	if c, ok := capabilities[t]; ok {
		return c
	}
	return capabilities[Free]
}

// Capabilities is shorthand for CapabilitiesFor(t).
func (t Tier) Capabilities() Capabilities {
	return CapabilitiesFor(t)
}

// Premium reports whether t is any paid tier.
func (t Tier) Premium() bool {
	return t == Pro || t == VIP || t == Admin
}

// Allows reports whether the tier may use the named feature.
func (c Capabilities) Allows(feature string) bool {
	switch feature {
	case FeatureVoice:
		return c.CanVoice
	case FeatureImage:
		return c.CanImage
	case FeatureBudget, FeatureAnalysis:
		return c.CanBudget
	case FeatureExport:
		return c.CanExportUnlimited
	}
	return true
}

// PlanLabel is the subscription line shown under the badge.
func PlanLabel(t Tier, expiry string) string {
	switch t {
	case Admin:
		return "God Mode"
	case VIP:
		return "Lifetime"
	case Pro:
		if expiry == "" {
			expiry = "Unknown"
		}
		return "Exp: " + expiry
	default:
		return "Basic"
	}
}

// UpgradeRequest asks the operators to upgrade an account, usually after a
// gated feature was refused.
type UpgradeRequest struct {
	UserID  int64
	Tier    Tier
	Feature string
}
