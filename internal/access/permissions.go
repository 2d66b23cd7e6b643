package access

// Feature identifies a gated dashboard capability.
type Feature string

const (
	FeatureDashboardView     Feature = "dashboard_view"
	FeatureCreateCampaign    Feature = "create_campaign"
	FeatureEditCampaign      Feature = "edit_campaign"
	FeatureSendCampaign      Feature = "send_campaign"
	FeatureImportSubscribers Feature = "import_subscribers"
	FeatureExportSubscribers Feature = "export_subscribers"
	FeatureCreateAutomation  Feature = "create_automation"
	FeatureAIWriting         Feature = "ai_writing"
	FeatureViewAnalytics     Feature = "view_analytics"
	FeatureRealTimeData      Feature = "real_time_data"
	FeaturePaidCampaigns     Feature = "paid_campaigns"
	FeaturePayouts           Feature = "payouts"
	FeatureFullPayouts       Feature = "full_payouts"
	FeatureReferralProgram   Feature = "referral_program"
	FeatureAPIAccess         Feature = "api_access"
)

var allFeatures = []Feature{
	FeatureDashboardView,
	FeatureCreateCampaign,
	FeatureEditCampaign,
	FeatureSendCampaign,
	FeatureImportSubscribers,
	FeatureExportSubscribers,
	FeatureCreateAutomation,
	FeatureAIWriting,
	FeatureViewAnalytics,
	FeatureRealTimeData,
	FeaturePaidCampaigns,
	FeaturePayouts,
	FeatureFullPayouts,
	FeatureReferralProgram,
	FeatureAPIAccess,
}

// Features returns every known feature key in display order.
func Features() []Feature {
	out := make([]Feature, len(allFeatures))
	copy(out, allFeatures)
	return out
}

// FeatureAccess describes whether a feature is usable and, when it is not,
// what the creator should do about it. Note carries a caveat on a feature
// that is enabled; Reason is only set on disabled features.
type FeatureAccess struct {
	Enabled   bool   `json:"enabled"`
	Reason    string `json:"reason,omitempty"`
	CTAText   string `json:"ctaText,omitempty"`
	CTAAction string `json:"ctaAction,omitempty"`
	Note      string `json:"note,omitempty"`
}

// NextStep points the creator at the onboarding step to complete next.
type NextStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
	Href        string `json:"href"`
}

// DashboardAccess is the full set of gates for one status.
type DashboardAccess struct {
	CanView      bool                      `json:"canView"`
	IsReadOnly   bool                      `json:"isReadOnly"`
	ShowMockData bool                      `json:"showMockData"`
	Features     map[Feature]FeatureAccess `json:"features"`
	NextStep     *NextStep                 `json:"nextStep,omitempty"`
}

const (
	reasonCompleteSignup  = "Complete signup first"
	reasonCompleteProfile = "Complete your profile first"
	reasonSetPricing      = "Set pricing to enable paid newsletters"
	reasonNoWithdrawal    = "Funds accumulate but cannot withdraw yet"
	reasonSuspended       = "Account suspended"
	reasonUnavailable     = "Feature not available"

	notePayoutReview = "First payout delay and caps enforced"
	notePayoutLimits = "Weekly/bi-weekly limits apply"
)

var (
	on  = FeatureAccess{Enabled: true}
	off = FeatureAccess{}
)

type rule struct {
	canView  bool
	readOnly bool
	mockData bool
	features map[Feature]FeatureAccess
	next     *NextStep
}

// gates returns a map with every feature disabled, then applies set.
func gates(set map[Feature]FeatureAccess) map[Feature]FeatureAccess {
	m := make(map[Feature]FeatureAccess, len(allFeatures))
	for _, f := range allFeatures {
		m[f] = off
	}
	for f, a := range set {
		m[f] = a
	}
	return m
}

var rules = map[CreatorStatus]rule{
	StatusDraft: {
		canView:  false,
		readOnly: true,
		mockData: true,
		features: gates(map[Feature]FeatureAccess{
			FeatureDashboardView: {Reason: reasonCompleteSignup},
		}),
		next: &NextStep{
			Title:       "Complete Signup",
			Description: "Verify your email to access your dashboard",
			Action:      "Verify Email",
			Href:        "/onboarding/verify-email",
		},
	},
	StatusEmailVerified: {
		canView:  true,
		readOnly: true,
		mockData: true,
		features: gates(map[Feature]FeatureAccess{
			FeatureDashboardView:     on,
			FeatureViewAnalytics:     on,
			FeatureCreateCampaign:    {Reason: reasonCompleteProfile, CTAText: "Complete Profile", CTAAction: "/onboarding/profile"},
			FeatureImportSubscribers: {Reason: reasonCompleteProfile},
			FeatureCreateAutomation:  {Reason: reasonCompleteProfile},
			FeatureAIWriting:         {Reason: reasonCompleteProfile},
		}),
		next: &NextStep{
			Title:       "Create Your Profile",
			Description: "Set up your newsletter profile to start creating content",
			Action:      "Complete Profile",
			Href:        "/onboarding/profile",
		},
	},
	StatusProfileCreated: {
		canView:  true,
		readOnly: false,
		mockData: true,
		features: gates(map[Feature]FeatureAccess{
			FeatureDashboardView:     on,
			FeatureCreateCampaign:    on,
			FeatureEditCampaign:      on,
			FeatureSendCampaign:      on,
			FeatureImportSubscribers: on,
			FeatureExportSubscribers: on,
			FeatureCreateAutomation:  on,
			FeatureAIWriting:         on,
			FeatureViewAnalytics:     on,
			FeatureReferralProgram:   on,
			FeaturePaidCampaigns:     {Reason: reasonSetPricing, CTAText: "Set Pricing", CTAAction: "/onboarding/pricing"},
		}),
		next: &NextStep{
			Title:       "Set Your Pricing",
			Description: "Configure your subscription plans to start earning",
			Action:      "Set Pricing",
			Href:        "/onboarding/pricing",
		},
	},
	StatusPricingSet: {
		canView:  true,
		readOnly: false,
		mockData: false,
		features: gates(map[Feature]FeatureAccess{
			FeatureDashboardView:     on,
			FeatureCreateCampaign:    on,
			FeatureEditCampaign:      on,
			FeatureSendCampaign:      on,
			FeatureImportSubscribers: on,
			FeatureExportSubscribers: on,
			FeatureCreateAutomation:  on,
			FeatureAIWriting:         on,
			FeatureViewAnalytics:     on,
			FeatureRealTimeData:      on,
			FeaturePaidCampaigns:     on,
			FeatureReferralProgram:   on,
			FeatureAPIAccess:         on,
			FeaturePayouts:           {Reason: reasonNoWithdrawal, CTAText: "Set Up Payouts", CTAAction: "/onboarding/payout"},
		}),
		next: &NextStep{
			Title:       "Set Up Payouts",
			Description: "Configure your payout method to receive earnings",
			Action:      "Configure Payouts",
			Href:        "/onboarding/payout",
		},
	},
	StatusPayoutPendingReview: {
		canView:  true,
		readOnly: false,
		mockData: false,
		features: earningGates(notePayoutReview),
		next: &NextStep{
			Title:       "Payout Under Review",
			Description: "Your payout setup is being reviewed. First payout will be available soon.",
			Action:      "View Status",
			Href:        "/billing",
		},
	},
	StatusActiveEarning: {
		canView:  true,
		readOnly: false,
		mockData: false,
		features: earningGates(notePayoutLimits),
	},
	StatusPayoutsEnabled: {
		canView:  true,
		readOnly: false,
		mockData: false,
		features: allEnabled(),
	},
	StatusSuspended: {
		canView:  true,
		readOnly: true,
		mockData: false,
		features: suspendedGates(),
	},
}

// earningGates is the pricing_set set plus capped payouts.
func earningGates(payoutNote string) map[Feature]FeatureAccess {
	m := allEnabled()
	m[FeaturePayouts] = FeatureAccess{Enabled: true, Note: payoutNote}
	m[FeatureFullPayouts] = off
	return m
}

func allEnabled() map[Feature]FeatureAccess {
	m := make(map[Feature]FeatureAccess, len(allFeatures))
	for _, f := range allFeatures {
		m[f] = on
	}
	return m
}

// suspendedGates keeps read-only features and blocks every mutation.
func suspendedGates() map[Feature]FeatureAccess {
	m := make(map[Feature]FeatureAccess, len(allFeatures))
	for _, f := range allFeatures {
		m[f] = FeatureAccess{Reason: reasonSuspended}
	}
	for _, f := range []Feature{FeatureDashboardView, FeatureExportSubscribers, FeatureViewAnalytics, FeatureRealTimeData} {
		m[f] = on
	}
	return m
}

// resolve picks the rule for s. Suspended is checked first so that no other
// unlock can apply to it; anything unrecognised gets the draft rule.
func resolve(s CreatorStatus) rule {
	if s == StatusSuspended {
		return rules[StatusSuspended]
	}
	if r, ok := rules[s]; ok {
		return r
	}
	return rules[StatusDraft]
}

// GetDashboardAccess returns the gates for status. It never fails; unknown
// statuses get the draft (least privileged) matrix. The returned value is a
// fresh copy owned by the caller.
func GetDashboardAccess(status CreatorStatus) DashboardAccess {
	r := resolve(status)

	features := make(map[Feature]FeatureAccess, len(r.features))
	for f, a := range r.features {
		features[f] = a
	}

	var next *NextStep
	if r.next != nil {
		n := *r.next
		next = &n
	}

	return DashboardAccess{
		CanView:      r.canView,
		IsReadOnly:   r.readOnly,
		ShowMockData: r.mockData,
		Features:     features,
		NextStep:     next,
	}
}

// GetFeatureAccess returns the gate for a single feature.
func GetFeatureAccess(status CreatorStatus, feature Feature) FeatureAccess {
	if a, ok := resolve(status).features[feature]; ok {
		return a
	}
	return FeatureAccess{Reason: reasonUnavailable}
}

// HasFeatureAccess reports whether feature is enabled for status.
func HasFeatureAccess(status CreatorStatus, feature Feature) bool {
	return GetFeatureAccess(status, feature).Enabled
}

var progress = map[CreatorStatus]int{
	StatusDraft:               0,
	StatusEmailVerified:       20,
	StatusProfileCreated:      40,
	StatusPricingSet:          60,
	StatusPayoutPendingReview: 80,
	StatusActiveEarning:       90,
	StatusPayoutsEnabled:      100,
	StatusSuspended:           0,
}

// GetOnboardingProgress returns onboarding completion as a percentage.
func GetOnboardingProgress(status CreatorStatus) int {
	return progress[status]
}

// StatusInfo is display metadata for a status badge.
type StatusInfo struct {
	Label       string `json:"label"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

var statusInfo = map[CreatorStatus]StatusInfo{
	StatusDraft:               {"Draft", "gray", "Complete signup to get started"},
	StatusEmailVerified:       {"Email Verified", "blue", "Create your profile to continue"},
	StatusProfileCreated:      {"Profile Created", "cyan", "Set pricing to enable paid features"},
	StatusPricingSet:          {"Pricing Set", "purple", "Configure payouts to receive earnings"},
	StatusPayoutPendingReview: {"Payout Review", "amber", "Your payout setup is under review"},
	StatusActiveEarning:       {"Active & Earning", "green", "All features unlocked, payouts active"},
	StatusPayoutsEnabled:      {"Fully Verified", "terminal", "Full access with no restrictions"},
	StatusSuspended:           {"Suspended", "red", "Account suspended - contact support"},
}

// GetStatusInfo returns display metadata; unknown statuses render as draft.
func GetStatusInfo(status CreatorStatus) StatusInfo {
	if info, ok := statusInfo[status]; ok {
		return info
	}
	return statusInfo[StatusDraft]
}
