package models

import "time"

type GuardianStatus string

const (
	GuardianInvited  GuardianStatus = "invited"
	GuardianActive   GuardianStatus = "active"
	GuardianDeclined GuardianStatus = "declined"
)

// Guardian is an oversight party notified of, and optionally approving, a trigger.
type Guardian struct {
	ID      string `json:"id" gorm:"column:id;primaryKey;size:36"`
	VaultID string `json:"vault_id" gorm:"column:vault_id;not null;uniqueIndex:idx_guardian_vault_email"`

	Name          string `json:"name" gorm:"column:name;not null"`
	Email         string `json:"email" gorm:"column:email;not null;uniqueIndex:idx_guardian_vault_email"`
	WalletAddress string `json:"wallet_address" gorm:"column:wallet_address"`
	Relationship  string `json:"relationship" gorm:"column:relationship"`

	Status GuardianStatus `json:"status" gorm:"column:status;not null"`
	// InviteToken and InviteExpiresAt are cleared on accept or decline.
	InviteToken     *string    `json:"-" gorm:"column:invite_token;uniqueIndex"`
	InviteExpiresAt *time.Time `json:"invite_expires_at" gorm:"column:invite_expires_at"`
	AcceptedAt      *time.Time `json:"accepted_at" gorm:"column:accepted_at"`
	DeclinedAt      *time.Time `json:"declined_at" gorm:"column:declined_at"`
	DeclineReason   string     `json:"decline_reason,omitempty" gorm:"column:decline_reason"`
	// ApprovalToken is mailed to active guardians while the vault is triggered.
	// It is cleared on approval and when the trigger is cancelled.
	ApprovalToken *string `json:"-" gorm:"column:approval_token;uniqueIndex"`
	// ApprovedAt is set when the guardian approves distribution of a triggered vault.
	ApprovedAt *time.Time `json:"approved_at" gorm:"column:approved_at"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (Guardian) TableName() string {
	return "guardians"
}

// GuardianInput is the owner supplied data for inviting a guardian.
type GuardianInput struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	WalletAddress string `json:"wallet_address"`
	Relationship  string `json:"relationship"`
}
