package successio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/pkg/validation"
)

func validatePercentage(p float64) error {
	// NaN fails every comparison
	if !(p > 0 && p <= 100) {
		return validationError("percentage must be greater than 0 and at most 100, got %g", p)
	}
	return nil
}

// allocated sums the percentages of beneficiaries, skipping the one with excludeID.
func allocated(beneficiaries []*models.Beneficiary, excludeID string) float64 {
	total := 0.0
	for _, b := range beneficiaries {
		if b.ID == excludeID {
			continue
		}
		total += b.Percentage
	}
	return total
}

func checkAllocation(current, attempted float64) error {
	if !(current+attempted <= 100+percentEpsilon) {
		return &models.PercentageError{Current: current, Attempted: attempted}
	}
	return nil
}

// AddBeneficiary adds a beneficiary to an active vault and sends them a verification link.
func (s *Successio) AddBeneficiary(ctx context.Context, vaultID, ownerID string, in models.BeneficiaryInput) (*models.Beneficiary, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationError("beneficiary name is required")
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, validationError("beneficiary email: %v", err)
	}
	if err := validatePercentage(in.Percentage); err != nil {
		return nil, err
	}
	if err := validation.ValidateOptionalAddress(in.WalletAddress); err != nil {
		return nil, validationError("beneficiary wallet: %v", err)
	}
	email := validation.NormalizeEmail(in.Email)

	var created *models.Beneficiary
	_, err := s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		if err := requireStatus(vault, models.VaultActive); err != nil {
			return err
		}

		existing, err := tx.ListBeneficiaries(ctx, vault.ID)
		if err != nil {
			return err
		}
		if !s.policy.HasCapacity(vault.Tier, len(existing)) {
			return fmt.Errorf("%s tier allows %d beneficiaries: %w", vault.Tier, s.policy.BeneficiaryLimit(vault.Tier), models.ErrCapacity)
		}
		for _, b := range existing {
			if b.Email == email {
				return fmt.Errorf("beneficiary %s already exists in vault %s: %w", email, vault.ID, models.ErrConflict)
			}
		}
		if err := checkAllocation(allocated(existing, ""), in.Percentage); err != nil {
			return err
		}

		token := newToken()
		created = &models.Beneficiary{
			ID:                newID(),
			VaultID:           vault.ID,
			Name:              name,
			Email:             email,
			WalletAddress:     in.WalletAddress,
			Relationship:      in.Relationship,
			Percentage:        in.Percentage,
			VerificationToken: &token,
			CreatedAt:         s.clock.Now(),
		}
		if err := tx.CreateBeneficiary(ctx, created); err != nil {
			return err
		}

		out.notify(&models.Message{
			Kind:          models.NotifyBeneficiaryVerification,
			VaultID:       vault.ID,
			Recipient:     email,
			RecipientRole: models.RoleBeneficiary,
			Data: map[string]interface{}{
				"Name":       name,
				"VaultName":  vault.Name,
				"Token":      token,
				"Percentage": in.Percentage,
			},
		})
		return s.recordActivity(ctx, tx, vault, models.ActivityBeneficiaryAdded, models.ActorOwner,
			fmt.Sprintf("beneficiary %s added with %g%%", email, in.Percentage))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateBeneficiary changes a beneficiary of an active vault.
// A new percentage is checked against the sum of the other beneficiaries.
func (s *Successio) UpdateBeneficiary(ctx context.Context, vaultID, ownerID, beneficiaryID string, patch models.BeneficiaryPatch) (*models.Beneficiary, error) {
	var updated *models.Beneficiary
	_, err := s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, _ *outbox) error {
		if err := requireStatus(vault, models.VaultActive); err != nil {
			return err
		}

		beneficiaries, err := tx.ListBeneficiaries(ctx, vault.ID)
		if err != nil {
			return err
		}
		var target *models.Beneficiary
		for _, b := range beneficiaries {
			if b.ID == beneficiaryID {
				target = b
				break
			}
		}
		if target == nil {
			return fmt.Errorf("beneficiary %s: %w", beneficiaryID, models.ErrNotFound)
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return validationError("beneficiary name is required")
			}
			target.Name = name
		}
		if patch.WalletAddress != nil {
			if err := validation.ValidateOptionalAddress(*patch.WalletAddress); err != nil {
				return validationError("beneficiary wallet: %v", err)
			}
			target.WalletAddress = *patch.WalletAddress
		}
		if patch.Relationship != nil {
			target.Relationship = *patch.Relationship
		}
		if patch.Percentage != nil {
			if err := validatePercentage(*patch.Percentage); err != nil {
				return err
			}
			if err := checkAllocation(allocated(beneficiaries, target.ID), *patch.Percentage); err != nil {
				return err
			}
			target.Percentage = *patch.Percentage
		}

		if err := tx.SaveBeneficiary(ctx, target); err != nil {
			return err
		}
		updated = target
		return s.recordActivity(ctx, tx, vault, models.ActivityBeneficiaryUpdated, models.ActorOwner,
			fmt.Sprintf("beneficiary %s updated", target.Email))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveBeneficiary deletes a beneficiary from an active vault.
func (s *Successio) RemoveBeneficiary(ctx context.Context, vaultID, ownerID, beneficiaryID string) error {
	_, err := s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, _ *outbox) error {
		if err := requireStatus(vault, models.VaultActive); err != nil {
			return err
		}
		b, err := tx.GetBeneficiary(ctx, beneficiaryID)
		if err != nil {
			return err
		}
		if b.VaultID != vault.ID {
			return fmt.Errorf("beneficiary %s: %w", beneficiaryID, models.ErrNotFound)
		}
		if err := tx.DeleteBeneficiary(ctx, b.ID); err != nil {
			return err
		}
		return s.recordActivity(ctx, tx, vault, models.ActivityBeneficiaryRemoved, models.ActorOwner,
			fmt.Sprintf("beneficiary %s removed", b.Email))
	})
	return err
}

// VerifyBeneficiary confirms a beneficiary's email using the token from their invite.
func (s *Successio) VerifyBeneficiary(ctx context.Context, token string) (*models.Beneficiary, error) {
	if token == "" {
		return nil, models.ErrInvalidToken
	}
	found, err := s.repo.GetBeneficiaryByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, err
	}

	var verified *models.Beneficiary
	_, err = s.withVault(ctx, found.VaultID, func(tx models.Repository, vault *models.Vault, _ *outbox) error {
		b, err := tx.GetBeneficiary(ctx, found.ID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrInvalidToken
			}
			return err
		}
		if b.IsVerified {
			return fmt.Errorf("beneficiary %s: %w", b.ID, models.ErrAlreadyDone)
		}
		if b.VerificationToken == nil || *b.VerificationToken != token {
			return models.ErrInvalidToken
		}

		now := s.clock.Now()
		b.IsVerified = true
		b.VerifiedAt = &now
		b.VerificationToken = nil
		if err := tx.SaveBeneficiary(ctx, b); err != nil {
			return err
		}
		verified = b
		if err := s.recordActivity(ctx, tx, vault, models.ActivityBeneficiaryVerified, models.ActorBeneficiary,
			fmt.Sprintf("beneficiary %s verified", b.Email)); err != nil {
			return err
		}
		return s.saveVault(ctx, tx, vault)
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}
