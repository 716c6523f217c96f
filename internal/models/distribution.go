package models

import "time"

// DistributionInstruction is the hand-off record for the asset movement component.
// One is written per beneficiary when a vault is distributed.
type DistributionInstruction struct {
	ID             int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	VaultID        string    `json:"vault_id" gorm:"column:vault_id;index;not null"`
	BeneficiaryID  string    `json:"beneficiary_id" gorm:"column:beneficiary_id;not null"`
	Percentage     float64   `json:"percentage" gorm:"column:percentage;not null"`
	WalletAddress  string    `json:"wallet_address" gorm:"column:wallet_address"`
	ClaimReference string    `json:"claim_reference" gorm:"column:claim_reference;uniqueIndex;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (DistributionInstruction) TableName() string {
	return "distribution_instructions"
}
