// Package access implements the creator onboarding state machine and the
// dashboard permission matrix derived from it. Everything here is pure and
// safe for concurrent use.
package access

// CreatorStatus is the onboarding state persisted on a creator account.
type CreatorStatus string

const (
	StatusDraft               CreatorStatus = "draft"
	StatusEmailVerified       CreatorStatus = "email_verified"
	StatusProfileCreated      CreatorStatus = "profile_created"
	StatusPricingSet          CreatorStatus = "pricing_set"
	StatusPayoutPendingReview CreatorStatus = "payout_pending_review"
	StatusActiveEarning       CreatorStatus = "active_earning"
	StatusPayoutsEnabled      CreatorStatus = "payouts_enabled"
	StatusSuspended           CreatorStatus = "suspended"
)

// progression lists the ordered onboarding steps. Suspended is not part of it.
var progression = []CreatorStatus{
	StatusDraft,
	StatusEmailVerified,
	StatusProfileCreated,
	StatusPricingSet,
	StatusPayoutPendingReview,
	StatusActiveEarning,
	StatusPayoutsEnabled,
}

// Progression returns the ordered onboarding steps, first to last.
func Progression() []CreatorStatus {
	out := make([]CreatorStatus, len(progression))
	copy(out, progression)
	return out
}

// Valid reports whether s is one of the known statuses.
func (s CreatorStatus) Valid() bool {
	return s == StatusSuspended || s.rank() >= 0
}

func (s CreatorStatus) String() string { return string(s) }

// rank is the position of s in the progression, -1 for suspended or unknown.
func (s CreatorStatus) rank() int {
	for i, p := range progression {
		if p == s {
			return i
		}
	}
	return -1
}

// ParseCreatorStatus converts raw into a CreatorStatus.
// Unknown values resolve to draft and ok is false.
func ParseCreatorStatus(raw string) (status CreatorStatus, ok bool) {
	s := CreatorStatus(raw)
	if !s.Valid() {
		return StatusDraft, false
	}
	return s, true
}

// Next returns the step following s. It returns false for the final step,
// for suspended and for unknown statuses.
func Next(s CreatorStatus) (CreatorStatus, bool) {
	r := s.rank()
	if r < 0 || r == len(progression)-1 {
		return "", false
	}
	return progression[r+1], true
}

// CanTransition reports whether an onboarding step may move an account from
// one status to another. Only a single step forward is allowed; suspension
// and reinstatement are administrative and handled by CanSuspend and
// CanReinstate.
func CanTransition(from, to CreatorStatus) bool {
	next, ok := Next(from)
	return ok && next == to
}

// CanSuspend reports whether an account in status s may be suspended.
func CanSuspend(s CreatorStatus) bool {
	return s != StatusSuspended && s.Valid()
}

// CanReinstate reports whether a suspended account may be restored to prior.
func CanReinstate(current, prior CreatorStatus) bool {
	return current == StatusSuspended && prior.rank() >= 0
}
