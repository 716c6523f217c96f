package models

import "time"

// Tier is the subscription level of a vault.
type Tier string

const (
	TierEssential Tier = "essential"
	TierPremium   Tier = "premium"
)

func (t Tier) Valid() bool {
	return t == TierEssential || t == TierPremium
}

// VaultStatus is the lifecycle state of a vault.
type VaultStatus string

const (
	VaultActive      VaultStatus = "active"
	VaultTriggered   VaultStatus = "triggered"
	VaultDistributed VaultStatus = "distributed"
	VaultCancelled   VaultStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s VaultStatus) Terminal() bool {
	return s == VaultDistributed || s == VaultCancelled
}

// DistributionMethod decides whether the sweep may distribute a triggered vault on its own.
type DistributionMethod string

const (
	DistributionAutomatic DistributionMethod = "automatic"
	DistributionManual    DistributionMethod = "manual"
)

func (m DistributionMethod) Valid() bool {
	return m == DistributionAutomatic || m == DistributionManual
}

// Vault represents an owner's succession plan.
type Vault struct {
	// ID is the unique identifier of the vault.
	ID string `json:"id" gorm:"column:id;primaryKey;size:36"`
	// OwnerID identifies the owner. At most one non-cancelled vault exists per owner.
	OwnerID string `json:"owner_id" gorm:"column:owner_id;index;not null;uniqueIndex:idx_vaults_open_owner,where:status <> 'cancelled'"`
	// OwnerEmail is where warnings and reminders for the owner are sent.
	OwnerEmail string `json:"owner_email" gorm:"column:owner_email"`

	Name                     string             `json:"name" gorm:"column:name;not null"`
	Description              string             `json:"description" gorm:"column:description"`
	Tier                     Tier               `json:"tier" gorm:"column:tier;not null"`
	InactivityDays           int                `json:"inactivity_days" gorm:"column:inactivity_days;not null"`
	DistributionMethod       DistributionMethod `json:"distribution_method" gorm:"column:distribution_method;not null"`
	RequiresGuardianApproval bool               `json:"requires_guardian_approval" gorm:"column:requires_guardian_approval"`
	EnableCheckInReminders   bool               `json:"enable_check_in_reminders" gorm:"column:enable_check_in_reminders"`

	// LastActivityAt only advances when an activity is recorded.
	LastActivityAt time.Time `json:"last_activity_at" gorm:"column:last_activity_at;not null"`
	// TriggerWarningAt is the last time an inactivity warning was recorded.
	TriggerWarningAt *time.Time `json:"trigger_warning_at" gorm:"column:trigger_warning_at"`
	// WarningNotificationsSent is the highest escalation level reached:
	// 0 none, 1 seven-day warning, 2 twenty-four-hour warning.
	WarningNotificationsSent int        `json:"warning_notifications_sent" gorm:"column:warning_notifications_sent"`
	LastCheckInReminderAt    *time.Time `json:"last_check_in_reminder_at" gorm:"column:last_check_in_reminder_at"`

	Status VaultStatus `json:"status" gorm:"column:status;index;not null"`
	// TimelockStartAt and CanDistributeAt are set only while the vault is triggered.
	TimelockStartAt *time.Time `json:"timelock_start_at" gorm:"column:timelock_start_at"`
	CanDistributeAt *time.Time `json:"can_distribute_at" gorm:"column:can_distribute_at"`
	DistributedAt   *time.Time `json:"distributed_at" gorm:"column:distributed_at"`
	CancelledAt     *time.Time `json:"cancelled_at" gorm:"column:cancelled_at"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName specifies the table name for GORM
func (Vault) TableName() string {
	return "vaults"
}

// ResetEscalation clears any pending inactivity warning state.
func (v *Vault) ResetEscalation() {
	v.TriggerWarningAt = nil
	v.WarningNotificationsSent = 0
}

// ClearTimelock removes the trigger timestamps.
func (v *Vault) ClearTimelock() {
	v.TimelockStartAt = nil
	v.CanDistributeAt = nil
}

// VaultDetails is a vault together with its children.
type VaultDetails struct {
	Vault         *Vault         `json:"vault"`
	Beneficiaries []*Beneficiary `json:"beneficiaries"`
	Guardians     []*Guardian    `json:"guardians"`
}

// NewVault holds the owner supplied fields for vault creation.
type NewVault struct {
	OwnerID                  string
	OwnerEmail               string
	Name                     string
	Description              string
	Tier                     Tier
	InactivityDays           int
	DistributionMethod       DistributionMethod
	RequiresGuardianApproval bool
}

// VaultPatch lists the mutable vault settings. Nil fields are left untouched.
type VaultPatch struct {
	Name                     *string             `json:"name"`
	Description              *string             `json:"description"`
	OwnerEmail               *string             `json:"owner_email"`
	InactivityDays           *int                `json:"inactivity_days"`
	DistributionMethod       *DistributionMethod `json:"distribution_method"`
	RequiresGuardianApproval *bool               `json:"requires_guardian_approval"`
	EnableCheckInReminders   *bool               `json:"enable_check_in_reminders"`
}
