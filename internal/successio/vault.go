package successio

import (
	"context"
	"fmt"
	"strings"

	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/pkg/validation"
)

// CreateVault opens a new active vault for the owner.
// An owner may hold only one vault that is not cancelled.
func (s *Successio) CreateVault(ctx context.Context, in models.NewVault) (*models.Vault, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, validationError("owner id is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationError("vault name is required")
	}
	if !in.Tier.Valid() {
		return nil, validationError("unknown tier %q", in.Tier)
	}
	if !s.policy.IsAllowedInactivity(in.InactivityDays) {
		return nil, validationError("inactivity period must be one of %v days, got %d", s.policy.AllowedInactivityDays, in.InactivityDays)
	}
	if in.DistributionMethod == "" {
		in.DistributionMethod = models.DistributionAutomatic
	}
	if !in.DistributionMethod.Valid() {
		return nil, validationError("unknown distribution method %q", in.DistributionMethod)
	}
	if err := validation.ValidateEmail(in.OwnerEmail); err != nil {
		return nil, validationError("owner email: %v", err)
	}

	unlock := s.locks.Lock("owner:" + in.OwnerID)
	defer unlock()

	now := s.clock.Now()
	vault := &models.Vault{
		ID:                       newID(),
		OwnerID:                  in.OwnerID,
		OwnerEmail:               validation.NormalizeEmail(in.OwnerEmail),
		Name:                     strings.TrimSpace(in.Name),
		Description:              in.Description,
		Tier:                     in.Tier,
		InactivityDays:           in.InactivityDays,
		DistributionMethod:       in.DistributionMethod,
		RequiresGuardianApproval: in.RequiresGuardianApproval,
		EnableCheckInReminders:   s.policy.AllowsReminders(in.Tier),
		LastActivityAt:           now,
		Status:                   models.VaultActive,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	err := s.repo.WithTx(ctx, func(tx models.Repository) error {
		existing, err := tx.FindActiveVaultByOwner(ctx, in.OwnerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("owner %s already has vault %s: %w", in.OwnerID, existing.ID, models.ErrConflict)
		}
		if err := tx.CreateVault(ctx, vault); err != nil {
			return err
		}
		return tx.LogActivity(ctx, &models.Activity{
			VaultID:     vault.ID,
			Type:        models.ActivityVaultCreated,
			Actor:       models.ActorOwner,
			Description: fmt.Sprintf("vault %q created on %s tier", vault.Name, vault.Tier),
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Vault created", "vault", vault.ID, "owner", vault.OwnerID, "tier", vault.Tier)
	return vault, nil
}

// GetVault returns the owner's vault with its beneficiaries and guardians.
func (s *Successio) GetVault(ctx context.Context, vaultID, ownerID string) (*models.VaultDetails, error) {
	vault, err := s.ownedVault(ctx, vaultID, ownerID)
	if err != nil {
		return nil, err
	}
	beneficiaries, err := s.repo.ListBeneficiaries(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	guardians, err := s.repo.ListGuardians(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	return &models.VaultDetails{Vault: vault, Beneficiaries: beneficiaries, Guardians: guardians}, nil
}

// ListActivity returns the newest activity entries of the owner's vault.
func (s *Successio) ListActivity(ctx context.Context, vaultID, ownerID string, limit int) ([]*models.Activity, error) {
	if _, err := s.ownedVault(ctx, vaultID, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListActivities(ctx, vaultID, limit)
}

// ListDistributionInstructions returns the hand-off records of a distributed vault.
func (s *Successio) ListDistributionInstructions(ctx context.Context, vaultID, ownerID string) ([]*models.DistributionInstruction, error) {
	if _, err := s.ownedVault(ctx, vaultID, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListDistributionInstructions(ctx, vaultID)
}

func (s *Successio) ownedVault(ctx context.Context, vaultID, ownerID string) (*models.Vault, error) {
	vault, err := s.repo.GetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(vault, ownerID); err != nil {
		return nil, err
	}
	return vault, nil
}

// UpdateVault applies patch to an active vault.
func (s *Successio) UpdateVault(ctx context.Context, vaultID, ownerID string, patch models.VaultPatch) (*models.Vault, error) {
	return s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, _ *outbox) error {
		if err := requireStatus(vault, models.VaultActive); err != nil {
			return err
		}

		var changed []string
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return validationError("vault name is required")
			}
			vault.Name = name
			changed = append(changed, "name")
		}
		if patch.Description != nil {
			vault.Description = *patch.Description
			changed = append(changed, "description")
		}
		if patch.OwnerEmail != nil {
			if err := validation.ValidateEmail(*patch.OwnerEmail); err != nil {
				return validationError("owner email: %v", err)
			}
			vault.OwnerEmail = validation.NormalizeEmail(*patch.OwnerEmail)
			changed = append(changed, "owner_email")
		}
		if patch.InactivityDays != nil {
			if !s.policy.IsAllowedInactivity(*patch.InactivityDays) {
				return validationError("inactivity period must be one of %v days, got %d", s.policy.AllowedInactivityDays, *patch.InactivityDays)
			}
			vault.InactivityDays = *patch.InactivityDays
			changed = append(changed, "inactivity_days")
		}
		if patch.DistributionMethod != nil {
			if !patch.DistributionMethod.Valid() {
				return validationError("unknown distribution method %q", *patch.DistributionMethod)
			}
			vault.DistributionMethod = *patch.DistributionMethod
			changed = append(changed, "distribution_method")
		}
		if patch.RequiresGuardianApproval != nil {
			vault.RequiresGuardianApproval = *patch.RequiresGuardianApproval
			changed = append(changed, "requires_guardian_approval")
		}
		if patch.EnableCheckInReminders != nil {
			if *patch.EnableCheckInReminders && !s.policy.AllowsReminders(vault.Tier) {
				return validationError("check-in reminders require the %s tier", models.TierPremium)
			}
			vault.EnableCheckInReminders = *patch.EnableCheckInReminders
			changed = append(changed, "enable_check_in_reminders")
		}

		return s.recordActivity(ctx, tx, vault, models.ActivityVaultUpdated, models.ActorOwner,
			"updated "+strings.Join(changed, ", "))
	})
}

// UpgradeTier moves the vault to another tier. Downgrades are accepted only
// when the current beneficiaries fit the new tier; nothing is ever truncated.
func (s *Successio) UpgradeTier(ctx context.Context, vaultID, ownerID string, tier models.Tier) (*models.Vault, error) {
	if !tier.Valid() {
		return nil, validationError("unknown tier %q", tier)
	}
	return s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, _ *outbox) error {
		if err := requireStatus(vault, models.VaultActive); err != nil {
			return err
		}
		if vault.Tier == tier {
			return validationError("vault is already on the %s tier", tier)
		}

		beneficiaries, err := tx.ListBeneficiaries(ctx, vault.ID)
		if err != nil {
			return err
		}
		if !s.policy.Fits(tier, len(beneficiaries)) {
			return fmt.Errorf("%s tier allows %d beneficiaries, vault has %d: %w",
				tier, s.policy.BeneficiaryLimit(tier), len(beneficiaries), models.ErrCapacity)
		}

		previous := vault.Tier
		vault.Tier = tier
		vault.EnableCheckInReminders = s.policy.AllowsReminders(tier)
		return s.recordActivity(ctx, tx, vault, models.ActivityTierUpgraded, models.ActorOwner,
			fmt.Sprintf("tier changed from %s to %s", previous, tier))
	})
}

// CheckIn records owner activity, restarting the inactivity countdown.
func (s *Successio) CheckIn(ctx context.Context, vaultID, ownerID string) (*models.Vault, error) {
	return s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, _ *outbox) error {
		if err := requireStatus(vault, models.VaultActive); err != nil {
			return err
		}
		return s.recordActivity(ctx, tx, vault, models.ActivityCheckIn, models.ActorOwner, "owner checked in")
	})
}

// CancelVault permanently cancels the vault. This also works during the timelock,
// letting the owner override a pending succession; active guardians are told when that happens.
func (s *Successio) CancelVault(ctx context.Context, vaultID, ownerID string) (*models.Vault, error) {
	return s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		if vault.Status.Terminal() {
			return fmt.Errorf("vault %s is already %s: %w", vault.ID, vault.Status, models.ErrState)
		}

		wasTriggered := vault.Status == models.VaultTriggered
		now := s.clock.Now()
		vault.Status = models.VaultCancelled
		vault.CancelledAt = &now
		vault.ClearTimelock()

		description := "vault cancelled by owner"
		if wasTriggered {
			description = "vault cancelled by owner during timelock"
			guardians, err := tx.ListGuardians(ctx, vault.ID)
			if err != nil {
				return err
			}
			for _, g := range activeGuardians(guardians) {
				out.notify(&models.Message{
					Kind:          models.NotifyGuardianOverride,
					VaultID:       vault.ID,
					Recipient:     g.Email,
					RecipientRole: models.RoleGuardian,
					Data:          map[string]interface{}{"Name": g.Name, "VaultName": vault.Name},
				})
			}
		}
		out.publish(models.Event{Kind: models.EventVaultCancelled, VaultID: vault.ID, OwnerID: vault.OwnerID, OccurredAt: now, Detail: description})
		return s.recordActivity(ctx, tx, vault, models.ActivityVaultCancelled, models.ActorOwner, description)
	})
}

// CancelTrigger returns a triggered vault to active and restarts the countdown.
func (s *Successio) CancelTrigger(ctx context.Context, vaultID, ownerID string) (*models.Vault, error) {
	return s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		if err := requireStatus(vault, models.VaultTriggered); err != nil {
			return err
		}

		vault.Status = models.VaultActive
		vault.ClearTimelock()

		guardians, err := tx.ListGuardians(ctx, vault.ID)
		if err != nil {
			return err
		}
		for _, g := range guardians {
			if g.ApprovedAt == nil && g.ApprovalToken == nil {
				continue
			}
			g.ApprovedAt = nil
			g.ApprovalToken = nil
			if err := tx.SaveGuardian(ctx, g); err != nil {
				return err
			}
		}

		out.publish(models.Event{Kind: models.EventTriggerCancelled, VaultID: vault.ID, OwnerID: vault.OwnerID, OccurredAt: s.clock.Now()})
		return s.recordActivity(ctx, tx, vault, models.ActivityTriggerCancelled, models.ActorOwner, "trigger cancelled by owner")
	})
}
