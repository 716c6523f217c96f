package models

import "context"

// SweepResult is the aggregate outcome of one inactivity sweep.
type SweepResult struct {
	Examined        int  `json:"examined"`
	Processed       int  `json:"processed"`
	Failed          int  `json:"failed"`
	Skipped         int  `json:"skipped"`
	Warned          int  `json:"warned"`
	Reminded        int  `json:"reminded"`
	Triggered       int  `json:"triggered"`
	Distributed     int  `json:"distributed"`
	DispatchFailed  int  `json:"dispatch_failed"`
	DeadlineReached bool `json:"deadline_reached"`
}

// SuccessioI is the vault lifecycle manager as seen by transports.
type SuccessioI interface {
	// Start runs the periodic sweep loop until ctx is cancelled.
	Start(ctx context.Context)

	CreateVault(ctx context.Context, in NewVault) (*Vault, error)
	GetVault(ctx context.Context, vaultID, ownerID string) (*VaultDetails, error)
	UpdateVault(ctx context.Context, vaultID, ownerID string, patch VaultPatch) (*Vault, error)
	UpgradeTier(ctx context.Context, vaultID, ownerID string, tier Tier) (*Vault, error)
	CheckIn(ctx context.Context, vaultID, ownerID string) (*Vault, error)
	CancelVault(ctx context.Context, vaultID, ownerID string) (*Vault, error)
	CancelTrigger(ctx context.Context, vaultID, ownerID string) (*Vault, error)
	ListActivity(ctx context.Context, vaultID, ownerID string, limit int) ([]*Activity, error)
	ListDistributionInstructions(ctx context.Context, vaultID, ownerID string) ([]*DistributionInstruction, error)

	AddBeneficiary(ctx context.Context, vaultID, ownerID string, in BeneficiaryInput) (*Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, vaultID, ownerID, beneficiaryID string, patch BeneficiaryPatch) (*Beneficiary, error)
	RemoveBeneficiary(ctx context.Context, vaultID, ownerID, beneficiaryID string) error
	VerifyBeneficiary(ctx context.Context, token string) (*Beneficiary, error)

	AddGuardian(ctx context.Context, vaultID, ownerID string, in GuardianInput) (*Guardian, error)
	RemoveGuardian(ctx context.Context, vaultID, ownerID, guardianID string) error
	ResendGuardianInvite(ctx context.Context, vaultID, ownerID, guardianID string) (*Guardian, error)
	AcceptGuardianInvite(ctx context.Context, token string) (*Guardian, error)
	DeclineGuardianInvite(ctx context.Context, token, reason string) (*Guardian, error)
	ApproveDistribution(ctx context.Context, token string) (*Guardian, error)

	NotifyGuardiansOfTrigger(ctx context.Context, vaultID string) (int, error)

	ProcessInactivityCheck(ctx context.Context) (SweepResult, error)
}

// APIServer is a transport serving SuccessioI.
type APIServer interface {
	Start()
	Shutdown() error
}
