package models

import "time"

type ActivityType string

const (
	ActivityVaultCreated         ActivityType = "vault_created"
	ActivityVaultUpdated         ActivityType = "vault_updated"
	ActivityTierUpgraded         ActivityType = "tier_upgraded"
	ActivityCheckIn              ActivityType = "check_in"
	ActivityVaultCancelled       ActivityType = "vault_cancelled"
	ActivityTriggerCancelled     ActivityType = "trigger_cancelled"
	ActivityBeneficiaryAdded     ActivityType = "beneficiary_added"
	ActivityBeneficiaryUpdated   ActivityType = "beneficiary_updated"
	ActivityBeneficiaryRemoved   ActivityType = "beneficiary_removed"
	ActivityBeneficiaryVerified  ActivityType = "beneficiary_verified"
	ActivityGuardianAdded        ActivityType = "guardian_added"
	ActivityGuardianRemoved      ActivityType = "guardian_removed"
	ActivityGuardianInviteResent ActivityType = "guardian_invite_resent"
	ActivityGuardianAccepted     ActivityType = "guardian_accepted"
	ActivityGuardianDeclined     ActivityType = "guardian_declined"
	ActivityGuardianApproved     ActivityType = "guardian_approved"
	ActivityVaultTriggered       ActivityType = "vault_triggered"
	ActivityDistributionComplete ActivityType = "distribution_complete"
)

// Actor records who caused an activity entry.
type Actor string

const (
	ActorOwner       Actor = "owner"
	ActorBeneficiary Actor = "beneficiary"
	ActorGuardian    Actor = "guardian"
	ActorSystem      Actor = "system"
)

// Activity is an append-only audit entry for a vault.
// Recording an entry is the only thing that advances Vault.LastActivityAt.
type Activity struct {
	ID          int64        `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	VaultID     string       `json:"vault_id" gorm:"column:vault_id;index;not null"`
	Type        ActivityType `json:"type" gorm:"column:type;not null"`
	Actor       Actor        `json:"actor" gorm:"column:actor;not null"`
	Description string       `json:"description" gorm:"column:description"`
	CreatedAt   time.Time    `json:"created_at" gorm:"column:created_at;index"`
}

// TableName specifies the table name for GORM
func (Activity) TableName() string {
	return "vault_activities"
}
