package models

import (
	"context"
	"time"
)

// Repository is the persistent vault store.
//
// Reads that feed a decision must happen inside WithVaultTx together with
// the write they lead to. The Repository passed to fn is bound to the
// transaction and must be the only one used inside it.
type Repository interface {
	// WithVaultTx runs fn in a transaction holding a row lock on the vault.
	// Returns ErrNotFound if the vault does not exist.
	WithVaultTx(ctx context.Context, vaultID string, fn func(tx Repository) error) error
	// WithTx runs fn in a plain transaction.
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	CreateVault(ctx context.Context, vault *Vault) error
	GetVault(ctx context.Context, vaultID string) (*Vault, error)
	// FindActiveVaultByOwner returns the owner's non-cancelled vault, or nil if there is none.
	FindActiveVaultByOwner(ctx context.Context, ownerID string) (*Vault, error)
	ListVaultsByStatus(ctx context.Context, status VaultStatus) ([]*Vault, error)
	SaveVault(ctx context.Context, vault *Vault) error

	CreateBeneficiary(ctx context.Context, beneficiary *Beneficiary) error
	GetBeneficiary(ctx context.Context, beneficiaryID string) (*Beneficiary, error)
	GetBeneficiaryByToken(ctx context.Context, token string) (*Beneficiary, error)
	ListBeneficiaries(ctx context.Context, vaultID string) ([]*Beneficiary, error)
	SaveBeneficiary(ctx context.Context, beneficiary *Beneficiary) error
	DeleteBeneficiary(ctx context.Context, beneficiaryID string) error

	CreateGuardian(ctx context.Context, guardian *Guardian) error
	GetGuardian(ctx context.Context, guardianID string) (*Guardian, error)
	GetGuardianByToken(ctx context.Context, token string) (*Guardian, error)
	GetGuardianByApprovalToken(ctx context.Context, token string) (*Guardian, error)
	ListGuardians(ctx context.Context, vaultID string) ([]*Guardian, error)
	SaveGuardian(ctx context.Context, guardian *Guardian) error
	DeleteGuardian(ctx context.Context, guardianID string) error

	LogActivity(ctx context.Context, activity *Activity) error
	ListActivities(ctx context.Context, vaultID string, limit int) ([]*Activity, error)
	LogNotification(ctx context.Context, notification *Notification) error
	ListNotifications(ctx context.Context, vaultID string) ([]*Notification, error)

	CreateDistributionInstructions(ctx context.Context, instructions []*DistributionInstruction) error
	ListDistributionInstructions(ctx context.Context, vaultID string) ([]*DistributionInstruction, error)

	// AcquireLock takes or renews the named application lock for instanceID.
	// Returns false if another instance holds an unexpired lock.
	AcquireLock(ctx context.Context, name, instanceID string, now time.Time, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, instanceID string) error

	Close() error
}
