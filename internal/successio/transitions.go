package successio

import (
	"context"
	"fmt"
	"time"

	"github.com/core-coin/successio/internal/models"
)

// triggerVault moves an active vault into the timelock. Only the sweep calls it.
func (s *Successio) triggerVault(ctx context.Context, tx models.Repository, vault *models.Vault, now time.Time, out *outbox) error {
	if err := requireStatus(vault, models.VaultActive); err != nil {
		return err
	}

	canDistributeAt := now.Add(s.policy.Timelock)
	vault.Status = models.VaultTriggered
	vault.TimelockStartAt = &now
	vault.CanDistributeAt = &canDistributeAt

	beneficiaries, err := tx.ListBeneficiaries(ctx, vault.ID)
	if err != nil {
		return err
	}
	guardians, err := tx.ListGuardians(ctx, vault.ID)
	if err != nil {
		return err
	}

	out.notify(&models.Message{
		Kind:          models.NotifyOwnerTriggered,
		VaultID:       vault.ID,
		Recipient:     vault.OwnerEmail,
		RecipientRole: models.RoleOwner,
		Data: map[string]interface{}{
			"VaultName":       vault.Name,
			"InactivityDays":  vault.InactivityDays,
			"CanDistributeAt": formatTime(vault.CanDistributeAt),
		},
	})
	for _, b := range beneficiaries {
		out.notify(&models.Message{
			Kind:          models.NotifyBeneficiaryTriggered,
			VaultID:       vault.ID,
			Recipient:     b.Email,
			RecipientRole: models.RoleBeneficiary,
			Data: map[string]interface{}{
				"Name":            b.Name,
				"VaultName":       vault.Name,
				"Percentage":      b.Percentage,
				"CanDistributeAt": formatTime(vault.CanDistributeAt),
			},
		})
	}
	notified, err := s.queueGuardianTrigger(ctx, tx, out, vault, guardians)
	if err != nil {
		return err
	}

	out.publish(models.Event{
		Kind:       models.EventVaultTriggered,
		VaultID:    vault.ID,
		OwnerID:    vault.OwnerID,
		OccurredAt: now,
		Detail:     fmt.Sprintf("timelock until %s, %d guardians notified", canDistributeAt.Format(time.RFC3339), notified),
	})
	return s.recordActivity(ctx, tx, vault, models.ActivityVaultTriggered, models.ActorSystem,
		fmt.Sprintf("triggered after %d days of inactivity", vault.InactivityDays))
}

// approvalsPending reports whether a vault that needs guardian approval is still
// waiting for a majority of its active guardians. Vaults without active guardians never wait.
func approvalsPending(vault *models.Vault, guardians []*models.Guardian) (bool, int, int) {
	if !vault.RequiresGuardianApproval {
		return false, 0, 0
	}
	active := activeGuardians(guardians)
	if len(active) == 0 {
		return false, 0, 0
	}
	approvals := 0
	for _, g := range active {
		if g.ApprovedAt != nil {
			approvals++
		}
	}
	threshold := len(active)/2 + 1
	return approvals < threshold, approvals, threshold
}

// processDistribution marks a triggered vault distributed and writes one
// hand-off instruction per beneficiary. Funds are moved elsewhere.
func (s *Successio) processDistribution(ctx context.Context, tx models.Repository, vault *models.Vault, now time.Time, out *outbox) error {
	if err := requireStatus(vault, models.VaultTriggered); err != nil {
		return err
	}

	beneficiaries, err := tx.ListBeneficiaries(ctx, vault.ID)
	if err != nil {
		return err
	}

	instructions := make([]*models.DistributionInstruction, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		instructions = append(instructions, &models.DistributionInstruction{
			VaultID:        vault.ID,
			BeneficiaryID:  b.ID,
			Percentage:     b.Percentage,
			WalletAddress:  b.WalletAddress,
			ClaimReference: newToken(),
			CreatedAt:      now,
		})
	}
	if err := tx.CreateDistributionInstructions(ctx, instructions); err != nil {
		return err
	}

	vault.Status = models.VaultDistributed
	vault.DistributedAt = &now
	vault.ClearTimelock()

	for i, b := range beneficiaries {
		out.notify(&models.Message{
			Kind:          models.NotifyDistribution,
			VaultID:       vault.ID,
			Recipient:     b.Email,
			RecipientRole: models.RoleBeneficiary,
			Data: map[string]interface{}{
				"Name":           b.Name,
				"VaultName":      vault.Name,
				"Percentage":     b.Percentage,
				"ClaimReference": instructions[i].ClaimReference,
			},
		})
	}
	out.publish(models.Event{
		Kind:       models.EventVaultDistributed,
		VaultID:    vault.ID,
		OwnerID:    vault.OwnerID,
		OccurredAt: now,
		Detail:     fmt.Sprintf("%d distribution instructions written", len(instructions)),
	})
	return s.recordActivity(ctx, tx, vault, models.ActivityDistributionComplete, models.ActorSystem,
		fmt.Sprintf("distributed to %d beneficiaries", len(beneficiaries)))
}
