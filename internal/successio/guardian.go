package successio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/pkg/validation"
)

func activeGuardians(guardians []*models.Guardian) []*models.Guardian {
	var active []*models.Guardian
	for _, g := range guardians {
		if g.Status == models.GuardianActive {
			active = append(active, g)
		}
	}
	return active
}

func (s *Successio) inviteMessage(vault *models.Vault, g *models.Guardian) *models.Message {
	return &models.Message{
		Kind:          models.NotifyGuardianInvite,
		VaultID:       vault.ID,
		Recipient:     g.Email,
		RecipientRole: models.RoleGuardian,
		Data: map[string]interface{}{
			"Name":      g.Name,
			"VaultName": vault.Name,
			"Token":     *g.InviteToken,
			"ExpiresAt": formatTime(g.InviteExpiresAt),
		},
	}
}

func (s *Successio) issueInvite(g *models.Guardian) {
	token := newToken()
	expires := s.clock.Now().Add(s.policy.GuardianInviteTTL)
	g.InviteToken = &token
	g.InviteExpiresAt = &expires
}

// AddGuardian invites a guardian to an active vault.
func (s *Successio) AddGuardian(ctx context.Context, vaultID, ownerID string, in models.GuardianInput) (*models.Guardian, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationError("guardian name is required")
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, validationError("guardian email: %v", err)
	}
	if err := validation.ValidateOptionalAddress(in.WalletAddress); err != nil {
		return nil, validationError("guardian wallet: %v", err)
	}
	email := validation.NormalizeEmail(in.Email)

	var created *models.Guardian
	_, err := s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		if err := requireStatus(vault, models.VaultActive); err != nil {
			return err
		}
		existing, err := tx.ListGuardians(ctx, vault.ID)
		if err != nil {
			return err
		}
		for _, g := range existing {
			if g.Email == email {
				return fmt.Errorf("guardian %s already exists in vault %s: %w", email, vault.ID, models.ErrConflict)
			}
		}

		created = &models.Guardian{
			ID:            newID(),
			VaultID:       vault.ID,
			Name:          name,
			Email:         email,
			WalletAddress: in.WalletAddress,
			Relationship:  in.Relationship,
			Status:        models.GuardianInvited,
			CreatedAt:     s.clock.Now(),
		}
		s.issueInvite(created)
		if err := tx.CreateGuardian(ctx, created); err != nil {
			return err
		}

		out.notify(s.inviteMessage(vault, created))
		return s.recordActivity(ctx, tx, vault, models.ActivityGuardianAdded, models.ActorOwner,
			fmt.Sprintf("guardian %s invited", email))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveGuardian deletes a guardian from an active vault.
func (s *Successio) RemoveGuardian(ctx context.Context, vaultID, ownerID, guardianID string) error {
	_, err := s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, _ *outbox) error {
		if err := requireStatus(vault, models.VaultActive); err != nil {
			return err
		}
		g, err := guardianOf(ctx, tx, vault, guardianID)
		if err != nil {
			return err
		}
		if err := tx.DeleteGuardian(ctx, g.ID); err != nil {
			return err
		}
		return s.recordActivity(ctx, tx, vault, models.ActivityGuardianRemoved, models.ActorOwner,
			fmt.Sprintf("guardian %s removed", g.Email))
	})
	return err
}

// ResendGuardianInvite rotates the token and expiry of a pending invitation and sends it again.
func (s *Successio) ResendGuardianInvite(ctx context.Context, vaultID, ownerID, guardianID string) (*models.Guardian, error) {
	var resent *models.Guardian
	_, err := s.mutateOwnedVault(ctx, vaultID, ownerID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		if err := requireStatus(vault, models.VaultActive); err != nil {
			return err
		}
		g, err := guardianOf(ctx, tx, vault, guardianID)
		if err != nil {
			return err
		}
		if g.Status != models.GuardianInvited {
			return fmt.Errorf("guardian %s is %s: %w", g.ID, g.Status, models.ErrAlreadyProcessed)
		}

		s.issueInvite(g)
		if err := tx.SaveGuardian(ctx, g); err != nil {
			return err
		}
		resent = g
		out.notify(s.inviteMessage(vault, g))
		return s.recordActivity(ctx, tx, vault, models.ActivityGuardianInviteResent, models.ActorOwner,
			fmt.Sprintf("guardian invite resent to %s", g.Email))
	})
	if err != nil {
		return nil, err
	}
	return resent, nil
}

// AcceptGuardianInvite activates the guardian holding token and tells the owner.
func (s *Successio) AcceptGuardianInvite(ctx context.Context, token string) (*models.Guardian, error) {
	return s.answerInvite(ctx, token, true, "")
}

// DeclineGuardianInvite marks the guardian holding token as declined and tells the owner.
func (s *Successio) DeclineGuardianInvite(ctx context.Context, token, reason string) (*models.Guardian, error) {
	return s.answerInvite(ctx, token, false, reason)
}

func (s *Successio) answerInvite(ctx context.Context, token string, accept bool, reason string) (*models.Guardian, error) {
	if token == "" {
		return nil, models.ErrInvalidToken
	}
	found, err := s.repo.GetGuardianByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, err
	}

	var answered *models.Guardian
	out, err := s.withVault(ctx, found.VaultID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		g, err := tx.GetGuardian(ctx, found.ID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrInvalidToken
			}
			return err
		}
		if g.InviteToken == nil || *g.InviteToken != token {
			return models.ErrInvalidToken
		}
		if g.Status != models.GuardianInvited {
			return fmt.Errorf("guardian %s is %s: %w", g.ID, g.Status, models.ErrAlreadyProcessed)
		}
		now := s.clock.Now()
		if g.InviteExpiresAt != nil && g.InviteExpiresAt.Before(now) {
			return fmt.Errorf("invite for guardian %s expired at %s: %w", g.ID, g.InviteExpiresAt.Format(time.RFC3339), models.ErrExpired)
		}
		if vault.Status.Terminal() {
			return fmt.Errorf("vault %s is %s: %w", vault.ID, vault.Status, models.ErrState)
		}

		g.InviteToken = nil
		g.InviteExpiresAt = nil
		activityType := models.ActivityGuardianAccepted
		kind := models.NotifyGuardianAccepted
		if accept {
			g.Status = models.GuardianActive
			g.AcceptedAt = &now
		} else {
			g.Status = models.GuardianDeclined
			g.DeclinedAt = &now
			g.DeclineReason = reason
			activityType = models.ActivityGuardianDeclined
			kind = models.NotifyGuardianDeclined
		}
		if err := tx.SaveGuardian(ctx, g); err != nil {
			return err
		}
		answered = g

		out.notify(&models.Message{
			Kind:          kind,
			VaultID:       vault.ID,
			Recipient:     vault.OwnerEmail,
			RecipientRole: models.RoleOwner,
			Data: map[string]interface{}{
				"GuardianName": g.Name,
				"VaultName":    vault.Name,
				"Reason":       reason,
			},
		})
		if accept && vault.Status == models.VaultTriggered {
			if _, err := s.queueGuardianTrigger(ctx, tx, out, vault, []*models.Guardian{g}); err != nil {
				return err
			}
		}
		if err := s.recordActivity(ctx, tx, vault, activityType, models.ActorGuardian,
			fmt.Sprintf("guardian %s %s the invitation", g.Email, g.Status)); err != nil {
			return err
		}
		return s.saveVault(ctx, tx, vault)
	})
	if err != nil {
		return nil, err
	}
	s.flush(ctx, out)
	return answered, nil
}

// ApproveDistribution records the approval of the guardian holding token for
// the distribution of a triggered vault. Tokens are single use.
func (s *Successio) ApproveDistribution(ctx context.Context, token string) (*models.Guardian, error) {
	if token == "" {
		return nil, models.ErrInvalidToken
	}
	found, err := s.repo.GetGuardianByApprovalToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, err
	}

	var approved *models.Guardian
	_, err = s.withVault(ctx, found.VaultID, func(tx models.Repository, vault *models.Vault, _ *outbox) error {
		g, err := tx.GetGuardian(ctx, found.ID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrInvalidToken
			}
			return err
		}
		if g.ApprovalToken == nil || *g.ApprovalToken != token {
			return models.ErrInvalidToken
		}
		if err := requireStatus(vault, models.VaultTriggered); err != nil {
			return err
		}
		if g.Status != models.GuardianActive {
			return fmt.Errorf("guardian %s is %s: %w", g.ID, g.Status, models.ErrState)
		}

		now := s.clock.Now()
		g.ApprovedAt = &now
		g.ApprovalToken = nil
		if err := tx.SaveGuardian(ctx, g); err != nil {
			return err
		}
		approved = g
		if err := s.recordActivity(ctx, tx, vault, models.ActivityGuardianApproved, models.ActorGuardian,
			fmt.Sprintf("guardian %s approved distribution", g.Email)); err != nil {
			return err
		}
		return s.saveVault(ctx, tx, vault)
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// NotifyGuardiansOfTrigger tells every active guardian that the vault was triggered
// and returns how many were notified. Repeated calls notify again.
func (s *Successio) NotifyGuardiansOfTrigger(ctx context.Context, vaultID string) (int, error) {
	var count int
	out, err := s.withVault(ctx, vaultID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		guardians, err := tx.ListGuardians(ctx, vault.ID)
		if err != nil {
			return err
		}
		count, err = s.queueGuardianTrigger(ctx, tx, out, vault, guardians)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.flush(ctx, out)
	return count, nil
}

// queueGuardianTrigger queues the trigger notice for the active guardians. While a vault
// that needs approval is triggered, guardians that have not approved get an approval token.
func (s *Successio) queueGuardianTrigger(
	ctx context.Context,
	tx models.Repository,
	out *outbox,
	vault *models.Vault,
	guardians []*models.Guardian,
) (int, error) {
	active := activeGuardians(guardians)
	for _, g := range active {
		approvalToken := ""
		if vault.Status == models.VaultTriggered && vault.RequiresGuardianApproval && g.ApprovedAt == nil {
			if g.ApprovalToken == nil {
				token := newToken()
				g.ApprovalToken = &token
				if err := tx.SaveGuardian(ctx, g); err != nil {
					return 0, err
				}
			}
			approvalToken = *g.ApprovalToken
		}

		out.notify(&models.Message{
			Kind:          models.NotifyGuardianTriggered,
			VaultID:       vault.ID,
			Recipient:     g.Email,
			RecipientRole: models.RoleGuardian,
			Data: map[string]interface{}{
				"Name":            g.Name,
				"VaultName":       vault.Name,
				"CanDistributeAt": formatTime(vault.CanDistributeAt),
				"ApprovalToken":   approvalToken,
			},
		})
	}
	return len(active), nil
}

func guardianOf(ctx context.Context, tx models.Repository, vault *models.Vault, guardianID string) (*models.Guardian, error) {
	g, err := tx.GetGuardian(ctx, guardianID)
	if err != nil {
		return nil, err
	}
	if g.VaultID != vault.ID {
		return nil, fmt.Errorf("guardian %s: %w", guardianID, models.ErrNotFound)
	}
	return g, nil
}
