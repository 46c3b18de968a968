package flashsale

import "time"

// TemporalStateOf derives the schedule state for the given instant.
// The window is inclusive on both ends: a campaign is active at exactly
// starts_at and at exactly ends_at.
func TemporalStateOf(now, start, end time.Time) TemporalState {
	if now.Before(start) {
		return StateUpcoming
	}
	if now.After(end) {
		return StateEnded
	}
	return StateActive
}

// TemporalStateAt returns the campaign's schedule state at the given instant
func (c *Campaign) TemporalStateAt(now time.Time) TemporalState {
	return TemporalStateOf(now, c.StartsAt, c.EndsAt)
}

// Visible reports whether the campaign may be exposed on the storefront:
// it must be approved and inside its sale window. Every storefront read and
// every sale recording goes through this gate.
func (c *Campaign) Visible(now time.Time) bool {
	return c.ApprovalStatus == ApprovalApproved && c.TemporalStateAt(now) == StateActive
}

// Locked reports whether allocation caps and prices may no longer be edited.
// Once the window has opened, units may already be sold, so edits are locked
// from that point on rather than tracked with a mutable flag.
func (c *Campaign) Locked(now time.Time) bool {
	return c.TemporalStateAt(now) != StateUpcoming
}
