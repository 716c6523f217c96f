package models

import "time"

// Beneficiary is a recipient of a percentage share of the vault.
type Beneficiary struct {
	ID      string `json:"id" gorm:"column:id;primaryKey;size:36"`
	VaultID string `json:"vault_id" gorm:"column:vault_id;not null;uniqueIndex:idx_beneficiary_vault_email"`

	Name string `json:"name" gorm:"column:name;not null"`
	// Email is unique per vault.
	Email         string  `json:"email" gorm:"column:email;not null;uniqueIndex:idx_beneficiary_vault_email"`
	WalletAddress string  `json:"wallet_address" gorm:"column:wallet_address"`
	Relationship  string  `json:"relationship" gorm:"column:relationship"`
	Percentage    float64 `json:"percentage" gorm:"column:percentage;not null"`

	IsVerified bool `json:"is_verified" gorm:"column:is_verified"`
	// VerificationToken is cleared once the beneficiary is verified.
	VerificationToken *string    `json:"-" gorm:"column:verification_token;uniqueIndex"`
	VerifiedAt        *time.Time `json:"verified_at" gorm:"column:verified_at"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (Beneficiary) TableName() string {
	return "beneficiaries"
}

// BeneficiaryInput is the owner supplied data for adding a beneficiary.
type BeneficiaryInput struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	WalletAddress string  `json:"wallet_address"`
	Relationship  string  `json:"relationship"`
	Percentage    float64 `json:"percentage"`
}

// BeneficiaryPatch lists the mutable beneficiary fields. Nil fields are left untouched.
type BeneficiaryPatch struct {
	Name          *string  `json:"name"`
	WalletAddress *string  `json:"wallet_address"`
	Relationship  *string  `json:"relationship"`
	Percentage    *float64 `json:"percentage"`
}
