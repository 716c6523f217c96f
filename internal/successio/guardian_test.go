package successio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/internal/policy"
)

func (h *harness) addAcceptedGuardian(t *testing.T, vault *models.Vault, email string) *models.Guardian {
	t.Helper()
	invited, err := h.engine.AddGuardian(h.ctx, vault.ID, vault.OwnerID, models.GuardianInput{Name: "Guardian", Email: email})
	require.NoError(t, err)
	accepted, err := h.engine.AcceptGuardianInvite(h.ctx, *invited.InviteToken)
	require.NoError(t, err)
	return accepted
}

func TestGuardianAcceptInvite(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "alice", models.TierPremium, 90, models.DistributionAutomatic)

	invited, err := h.engine.AddGuardian(h.ctx, vault.ID, "alice", models.GuardianInput{Name: "Gus", Email: "gus@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.GuardianInvited, invited.Status)
	require.NotNil(t, invited.InviteToken)
	require.NotNil(t, invited.InviteExpiresAt)
	assert.True(t, invited.InviteExpiresAt.Equal(start.Add(policy.Default().GuardianInviteTTL)))

	invites := h.notifier.sent(models.NotifyGuardianInvite)
	require.Len(t, invites, 1)
	assert.Equal(t, *invited.InviteToken, invites[0].Data["Token"])

	token := *invited.InviteToken
	accepted, err := h.engine.AcceptGuardianInvite(h.ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.GuardianActive, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	assert.Nil(t, accepted.InviteToken)

	notices := h.notifier.sent(models.NotifyGuardianAccepted)
	require.Len(t, notices, 1)
	assert.Equal(t, "alice@example.com", notices[0].Recipient)

	_, err = h.engine.AcceptGuardianInvite(h.ctx, token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	_, err = h.engine.ResendGuardianInvite(h.ctx, vault.ID, "alice", accepted.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyProcessed)

	_, err = h.engine.AddGuardian(h.ctx, vault.ID, "alice", models.GuardianInput{Name: "Gus", Email: "GUS@example.com"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestGuardianDeclineInvite(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "bob", models.TierPremium, 90, models.DistributionAutomatic)
	invited, err := h.engine.AddGuardian(h.ctx, vault.ID, "bob", models.GuardianInput{Name: "Gail", Email: "gail@example.com"})
	require.NoError(t, err)

	declined, err := h.engine.DeclineGuardianInvite(h.ctx, *invited.InviteToken, "travelling")
	require.NoError(t, err)
	assert.Equal(t, models.GuardianDeclined, declined.Status)
	assert.Equal(t, "travelling", declined.DeclineReason)
	require.NotNil(t, declined.DeclinedAt)

	notices := h.notifier.sent(models.NotifyGuardianDeclined)
	require.Len(t, notices, 1)
	assert.Equal(t, "travelling", notices[0].Data["Reason"])
}

func TestGuardianInviteExpiresAndCanBeResent(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "carol", models.TierPremium, 90, models.DistributionAutomatic)
	invited, err := h.engine.AddGuardian(h.ctx, vault.ID, "carol", models.GuardianInput{Name: "Gwen", Email: "gwen@example.com"})
	require.NoError(t, err)
	oldToken := *invited.InviteToken

	h.clock.AdvanceDays(8)
	_, err = h.engine.AcceptGuardianInvite(h.ctx, oldToken)
	assert.ErrorIs(t, err, models.ErrExpired)

	resent, err := h.engine.ResendGuardianInvite(h.ctx, vault.ID, "carol", invited.ID)
	require.NoError(t, err)
	require.NotNil(t, resent.InviteToken)
	assert.NotEqual(t, oldToken, *resent.InviteToken)
	assert.True(t, resent.InviteExpiresAt.After(h.clock.Now()))
	assert.Len(t, h.notifier.sent(models.NotifyGuardianInvite), 2)

	_, err = h.engine.AcceptGuardianInvite(h.ctx, oldToken)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	accepted, err := h.engine.AcceptGuardianInvite(h.ctx, *resent.InviteToken)
	require.NoError(t, err)
	assert.Equal(t, models.GuardianActive, accepted.Status)
}

func TestGuardianInviteRejectedOnCancelledVault(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "dave", models.TierPremium, 90, models.DistributionAutomatic)
	invited, err := h.engine.AddGuardian(h.ctx, vault.ID, "dave", models.GuardianInput{Name: "Gil", Email: "gil@example.com"})
	require.NoError(t, err)

	_, err = h.engine.CancelVault(h.ctx, vault.ID, "dave")
	require.NoError(t, err)

	_, err = h.engine.AcceptGuardianInvite(h.ctx, *invited.InviteToken)
	assert.ErrorIs(t, err, models.ErrState)
}

func TestRemoveGuardian(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "erin", models.TierPremium, 90, models.DistributionAutomatic)
	g := h.addAcceptedGuardian(t, vault, "g@example.com")

	require.NoError(t, h.engine.RemoveGuardian(h.ctx, vault.ID, "erin", g.ID))
	assert.ErrorIs(t, h.engine.RemoveGuardian(h.ctx, vault.ID, "erin", g.ID), models.ErrNotFound)

	other := h.createVault(t, "frank", models.TierPremium, 90, models.DistributionAutomatic)
	foreign := h.addAcceptedGuardian(t, other, "f@example.com")
	assert.ErrorIs(t, h.engine.RemoveGuardian(h.ctx, vault.ID, "erin", foreign.ID), models.ErrNotFound)
}

func TestNotifyGuardiansOfTrigger(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "grace", models.TierPremium, 30, models.DistributionManual)
	h.addAcceptedGuardian(t, vault, "g1@example.com")
	h.addAcceptedGuardian(t, vault, "g2@example.com")
	_, err := h.engine.AddGuardian(h.ctx, vault.ID, "grace", models.GuardianInput{Name: "Pending", Email: "g3@example.com"})
	require.NoError(t, err)

	h.clock.AdvanceDays(30)
	h.sweep(t)
	assert.Len(t, h.notifier.sent(models.NotifyGuardianTriggered), 2)

	count, err := h.engine.NotifyGuardiansOfTrigger(h.ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, h.notifier.sent(models.NotifyGuardianTriggered), 4)
}

// approvalToken returns the token from the latest trigger notice sent to email.
func (h *harness) approvalToken(t *testing.T, email string) string {
	t.Helper()
	sent := h.notifier.sent(models.NotifyGuardianTriggered)
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].Recipient == email {
			token, _ := sent[i].Data["ApprovalToken"].(string)
			return token
		}
	}
	require.Failf(t, "no trigger notice", "recipient %s", email)
	return ""
}

func TestGuardianApprovalGatesDistribution(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "heidi", models.TierPremium, 30, models.DistributionAutomatic)
	approve := true
	_, err := h.engine.UpdateVault(h.ctx, vault.ID, "heidi", models.VaultPatch{RequiresGuardianApproval: &approve})
	require.NoError(t, err)
	h.addBeneficiary(t, vault, "heir@example.com", 100)

	g1 := h.addAcceptedGuardian(t, vault, "g1@example.com")
	h.addAcceptedGuardian(t, vault, "g2@example.com")
	h.addAcceptedGuardian(t, vault, "g3@example.com")

	// ids are visible to the owner and never authorize an approval
	_, err = h.engine.ApproveDistribution(h.ctx, g1.ID)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	_, err = h.engine.ApproveDistribution(h.ctx, "")
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	h.clock.AdvanceDays(30)
	require.Equal(t, 1, h.sweep(t).Triggered)
	first := h.approvalToken(t, "g1@example.com")
	second := h.approvalToken(t, "g2@example.com")
	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	assert.NotEqual(t, first, second)

	h.clock.AdvanceDays(7)
	h.sweep(t)
	assert.Equal(t, models.VaultTriggered, h.reload(t, vault.ID).Status)

	approved, err := h.engine.ApproveDistribution(h.ctx, first)
	require.NoError(t, err)
	require.NotNil(t, approved.ApprovedAt)
	assert.Nil(t, approved.ApprovalToken)
	_, err = h.engine.ApproveDistribution(h.ctx, first)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	h.sweep(t)
	assert.Equal(t, models.VaultTriggered, h.reload(t, vault.ID).Status)

	_, err = h.engine.ApproveDistribution(h.ctx, second)
	require.NoError(t, err)

	result := h.sweep(t)
	assert.Equal(t, 1, result.Distributed)
	assert.Equal(t, models.VaultDistributed, h.reload(t, vault.ID).Status)
}

func TestNotifyGuardiansReusesPendingApprovalToken(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "judy", models.TierPremium, 30, models.DistributionAutomatic)
	approve := true
	_, err := h.engine.UpdateVault(h.ctx, vault.ID, "judy", models.VaultPatch{RequiresGuardianApproval: &approve})
	require.NoError(t, err)
	h.addAcceptedGuardian(t, vault, "g@example.com")
	late, err := h.engine.AddGuardian(h.ctx, vault.ID, "judy", models.GuardianInput{Name: "Late", Email: "late@example.com"})
	require.NoError(t, err)

	h.clock.AdvanceDays(30)
	h.sweep(t)
	token := h.approvalToken(t, "g@example.com")

	_, err = h.engine.NotifyGuardiansOfTrigger(h.ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, token, h.approvalToken(t, "g@example.com"))

	// a guardian accepting during the timelock is sent its own token
	pending, err := h.repo.GetGuardian(h.ctx, late.ID)
	require.NoError(t, err)
	expires := h.clock.Now().Add(policy.Default().GuardianInviteTTL)
	pending.InviteExpiresAt = &expires
	require.NoError(t, h.repo.SaveGuardian(h.ctx, pending))

	_, err = h.engine.AcceptGuardianInvite(h.ctx, *late.InviteToken)
	require.NoError(t, err)
	lateToken := h.approvalToken(t, "late@example.com")
	require.NotEmpty(t, lateToken)
	_, err = h.engine.ApproveDistribution(h.ctx, lateToken)
	require.NoError(t, err)
}

func TestCancelTriggerClearsApprovals(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "ivan", models.TierPremium, 30, models.DistributionAutomatic)
	approve := true
	_, err := h.engine.UpdateVault(h.ctx, vault.ID, "ivan", models.VaultPatch{RequiresGuardianApproval: &approve})
	require.NoError(t, err)
	g := h.addAcceptedGuardian(t, vault, "g@example.com")
	other := h.addAcceptedGuardian(t, vault, "other@example.com")

	h.clock.AdvanceDays(30)
	h.sweep(t)
	_, err = h.engine.ApproveDistribution(h.ctx, h.approvalToken(t, "g@example.com"))
	require.NoError(t, err)
	pending := h.approvalToken(t, "other@example.com")

	_, err = h.engine.CancelTrigger(h.ctx, vault.ID, "ivan")
	require.NoError(t, err)

	stored, err := h.repo.GetGuardian(h.ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ApprovedAt)
	stored, err = h.repo.GetGuardian(h.ctx, other.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ApprovalToken)

	_, err = h.engine.ApproveDistribution(h.ctx, pending)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestGuardianAnswersResetEscalation(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "kim", models.TierPremium, 30, models.DistributionAutomatic)
	accepting, err := h.engine.AddGuardian(h.ctx, vault.ID, "kim", models.GuardianInput{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)
	declining, err := h.engine.AddGuardian(h.ctx, vault.ID, "kim", models.GuardianInput{Name: "D", Email: "d@example.com"})
	require.NoError(t, err)

	warnedAt := h.clock.AdvanceDays(2)
	stored := h.reload(t, vault.ID)
	stored.WarningNotificationsSent = 1
	stored.TriggerWarningAt = &warnedAt
	require.NoError(t, h.repo.SaveVault(h.ctx, stored))

	now := h.clock.AdvanceDays(1)
	_, err = h.engine.AcceptGuardianInvite(h.ctx, *accepting.InviteToken)
	require.NoError(t, err)
	stored = h.reload(t, vault.ID)
	assert.Equal(t, 0, stored.WarningNotificationsSent)
	assert.Nil(t, stored.TriggerWarningAt)
	assert.True(t, stored.LastActivityAt.Equal(now))

	stored.WarningNotificationsSent = 2
	stored.TriggerWarningAt = &now
	require.NoError(t, h.repo.SaveVault(h.ctx, stored))

	now = h.clock.AdvanceDays(1)
	_, err = h.engine.DeclineGuardianInvite(h.ctx, *declining.InviteToken, "")
	require.NoError(t, err)
	stored = h.reload(t, vault.ID)
	assert.Equal(t, 0, stored.WarningNotificationsSent)
	assert.Nil(t, stored.TriggerWarningAt)
	assert.True(t, stored.LastActivityAt.Equal(now))
}
