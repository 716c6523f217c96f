// Package policy holds the static rules of the succession engine:
// which inactivity periods an owner may pick, what each tier allows,
// and the fixed durations of the trigger lifecycle.
package policy

import (
	"time"

	"github.com/core-coin/successio/internal/models"
)

const Day = 24 * time.Hour

// TierPolicy describes one subscription tier.
type TierPolicy struct {
	// MaxBeneficiaries of 0 means unbounded.
	MaxBeneficiaries int
	PriceCents       int
	CheckInReminders bool
}

// Table is pure configuration data; it carries no state.
type Table struct {
	AllowedInactivityDays []int
	Tiers                 map[models.Tier]TierPolicy

	Timelock          time.Duration
	GuardianInviteTTL time.Duration
	// FirstWarningDays and FinalWarningDays are the days-until-trigger thresholds for the two warnings.
	FirstWarningDays int
	FinalWarningDays int
	ReminderInterval time.Duration
}

// Default returns the production policy table.
func Default() *Table {
	return &Table{
		AllowedInactivityDays: []int{30, 90, 180, 365},
		Tiers: map[models.Tier]TierPolicy{
			models.TierEssential: {MaxBeneficiaries: 1, PriceCents: 0, CheckInReminders: false},
			models.TierPremium:   {MaxBeneficiaries: 0, PriceCents: 4900, CheckInReminders: true},
		},
		Timelock:          7 * Day,
		GuardianInviteTTL: 7 * Day,
		FirstWarningDays:  7,
		FinalWarningDays:  1,
		ReminderInterval:  365 * Day,
	}
}

// IsAllowedInactivity reports whether days is one of the selectable inactivity periods.
func (t *Table) IsAllowedInactivity(days int) bool {
	for _, d := range t.AllowedInactivityDays {
		if d == days {
			return true
		}
	}
	return false
}

// BeneficiaryLimit returns the tier's beneficiary cap, 0 meaning unbounded.
func (t *Table) BeneficiaryLimit(tier models.Tier) int {
	return t.Tiers[tier].MaxBeneficiaries
}

// HasCapacity reports whether a vault on tier holding count beneficiaries may add one more.
func (t *Table) HasCapacity(tier models.Tier, count int) bool {
	limit := t.BeneficiaryLimit(tier)
	return limit == 0 || count < limit
}

// Fits reports whether count beneficiaries are within the tier's cap.
func (t *Table) Fits(tier models.Tier, count int) bool {
	limit := t.BeneficiaryLimit(tier)
	return limit == 0 || count <= limit
}

// AllowsReminders reports whether check-in reminders may be enabled on tier.
func (t *Table) AllowsReminders(tier models.Tier) bool {
	return t.Tiers[tier].CheckInReminders
}

// DaysSince returns the number of whole days elapsed from then to now.
func DaysSince(then, now time.Time) int {
	if now.Before(then) {
		return 0
	}
	return int(now.Sub(then) / Day)
}
