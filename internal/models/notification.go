package models

import (
	"context"
	"time"
)

// NotificationKind identifies the template of an outgoing message.
type NotificationKind string

const (
	NotifyBeneficiaryVerification NotificationKind = "beneficiary_verification"
	NotifyGuardianInvite          NotificationKind = "guardian_invite"
	NotifyGuardianAccepted        NotificationKind = "guardian_accepted"
	NotifyGuardianDeclined        NotificationKind = "guardian_declined"
	NotifyWarning7Days            NotificationKind = "inactivity_warning_7d"
	NotifyWarning24Hours          NotificationKind = "inactivity_warning_24h"
	NotifyCheckInReminder         NotificationKind = "check_in_reminder"
	NotifyOwnerTriggered          NotificationKind = "owner_vault_triggered"
	NotifyBeneficiaryTriggered    NotificationKind = "beneficiary_vault_triggered"
	NotifyGuardianTriggered       NotificationKind = "guardian_vault_triggered"
	NotifyGuardianOverride        NotificationKind = "guardian_owner_override"
	NotifyDistribution            NotificationKind = "beneficiary_distribution"
)

// RecipientRole is the relation of a recipient to the vault.
type RecipientRole string

const (
	RoleOwner       RecipientRole = "owner"
	RoleBeneficiary RecipientRole = "beneficiary"
	RoleGuardian    RecipientRole = "guardian"
)

// Message is a single outgoing notification.
type Message struct {
	Kind          NotificationKind
	VaultID       string
	Recipient     string
	RecipientRole RecipientRole
	Data          map[string]interface{}
}

// Delivery reports the outcome of a send.
type Delivery struct {
	Delivered bool
	Err       error
}

// NotificationService delivers messages. Failures are reported, never panicked.
type NotificationService interface {
	Send(ctx context.Context, msg *Message) Delivery
}

// Notification is an append-only log of every dispatch attempt.
type Notification struct {
	ID            int64            `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	VaultID       string           `json:"vault_id" gorm:"column:vault_id;index;not null"`
	Kind          NotificationKind `json:"kind" gorm:"column:kind;not null"`
	Recipient     string           `json:"recipient" gorm:"column:recipient;not null"`
	RecipientRole RecipientRole    `json:"recipient_role" gorm:"column:recipient_role"`
	Delivered     bool             `json:"delivered" gorm:"column:delivered"`
	Error         string           `json:"error,omitempty" gorm:"column:error"`
	CreatedAt     time.Time        `json:"created_at" gorm:"column:created_at;index"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "vault_notifications"
}
