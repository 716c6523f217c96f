package successio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/successio/internal/config"
	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/internal/policy"
	"github.com/core-coin/successio/internal/repository"
	"github.com/core-coin/successio/internal/repository/repotest"
	"github.com/core-coin/successio/internal/successio"
	"github.com/core-coin/successio/pkg/clock"
	"github.com/core-coin/successio/pkg/logger"
)

var start = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg *models.Message) models.Delivery {
	args := m.Called(ctx, msg)
	return args.Get(0).(models.Delivery)
}

// sent returns the messages of kind in dispatch order.
func (m *mockNotifier) sent(kind models.NotificationKind) []*models.Message {
	var out []*models.Message
	for _, call := range m.Calls {
		msg := call.Arguments.Get(1).(*models.Message)
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) kinds() []models.EventKind {
	var out []models.EventKind
	for _, call := range m.Calls {
		out = append(out, call.Arguments.Get(1).(models.Event).Kind)
	}
	return out
}

type harness struct {
	ctx      context.Context
	engine   *successio.Successio
	repo     *repository.GormDB
	clock    *clock.Manual
	notifier *mockNotifier
	events   *mockPublisher
	config   *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		SweepInterval: time.Hour,
		SweepDeadline: time.Minute,
		SweepWorkers:  4,
		SweepLockTTL:  time.Hour,
		InstanceID:    "test",
	}
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithDelivery(t, models.Delivery{Delivered: true})
}

func newHarnessWithDelivery(t *testing.T, delivery models.Delivery) *harness {
	t.Helper()

	notifier := &mockNotifier{}
	notifier.On("Send", mock.Anything, mock.Anything).Return(delivery)
	events := &mockPublisher{}
	events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	h := &harness{
		ctx:      context.Background(),
		repo:     repotest.New(t),
		clock:    clock.NewManual(start),
		notifier: notifier,
		events:   events,
		config:   testConfig(),
	}
	h.engine = successio.NewSuccessio(h.repo, notifier, events, h.clock, policy.Default(), logger.NewNopLogger(), h.config)
	return h
}

func (h *harness) createVault(t *testing.T, owner string, tier models.Tier, days int, method models.DistributionMethod) *models.Vault {
	t.Helper()
	vault, err := h.engine.CreateVault(h.ctx, models.NewVault{
		OwnerID:            owner,
		OwnerEmail:         owner + "@example.com",
		Name:               "family vault",
		Tier:               tier,
		InactivityDays:     days,
		DistributionMethod: method,
	})
	require.NoError(t, err)
	return vault
}

func (h *harness) addBeneficiary(t *testing.T, vault *models.Vault, email string, percentage float64) *models.Beneficiary {
	t.Helper()
	b, err := h.engine.AddBeneficiary(h.ctx, vault.ID, vault.OwnerID, models.BeneficiaryInput{
		Name:       "Heir",
		Email:      email,
		Percentage: percentage,
	})
	require.NoError(t, err)
	return b
}

func (h *harness) reload(t *testing.T, vaultID string) *models.Vault {
	t.Helper()
	vault, err := h.repo.GetVault(h.ctx, vaultID)
	require.NoError(t, err)
	return vault
}

func (h *harness) sweep(t *testing.T) models.SweepResult {
	t.Helper()
	result, err := h.engine.ProcessInactivityCheck(h.ctx)
	require.NoError(t, err)
	return result
}

func TestCreateVault(t *testing.T) {
	h := newHarness(t)

	vault := h.createVault(t, "alice", models.TierPremium, 90, models.DistributionAutomatic)
	assert.Equal(t, models.VaultActive, vault.Status)
	assert.True(t, vault.EnableCheckInReminders)
	assert.True(t, vault.LastActivityAt.Equal(start))
	assert.Equal(t, "alice@example.com", vault.OwnerEmail)

	stored := h.reload(t, vault.ID)
	assert.Equal(t, vault.Name, stored.Name)
	assert.Equal(t, 0, stored.WarningNotificationsSent)

	activities, err := h.engine.ListActivity(h.ctx, vault.ID, "alice", 10)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivityVaultCreated, activities[0].Type)
}

func TestCreateVaultRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)

	cases := map[string]models.NewVault{
		"inactivity": {OwnerID: "o", OwnerEmail: "o@example.com", Name: "v", Tier: models.TierEssential, InactivityDays: 45},
		"tier":       {OwnerID: "o", OwnerEmail: "o@example.com", Name: "v", Tier: "gold", InactivityDays: 30},
		"name":       {OwnerID: "o", OwnerEmail: "o@example.com", Tier: models.TierEssential, InactivityDays: 30},
		"owner":      {OwnerEmail: "o@example.com", Name: "v", Tier: models.TierEssential, InactivityDays: 30},
		"email":      {OwnerID: "o", OwnerEmail: "not-an-email", Name: "v", Tier: models.TierEssential, InactivityDays: 30},
		"method":     {OwnerID: "o", OwnerEmail: "o@example.com", Name: "v", Tier: models.TierEssential, InactivityDays: 30, DistributionMethod: "lottery"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.engine.CreateVault(h.ctx, in)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestCreateVaultConflictsWithExistingVault(t *testing.T) {
	h := newHarness(t)
	first := h.createVault(t, "bob", models.TierEssential, 30, models.DistributionAutomatic)

	_, err := h.engine.CreateVault(h.ctx, models.NewVault{
		OwnerID: "bob", OwnerEmail: "bob@example.com", Name: "second", Tier: models.TierPremium, InactivityDays: 365,
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = h.engine.CancelVault(h.ctx, first.ID, "bob")
	require.NoError(t, err)

	second := h.createVault(t, "bob", models.TierPremium, 365, models.DistributionManual)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGetVaultHidesOtherOwners(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "carol", models.TierPremium, 90, models.DistributionAutomatic)
	h.addBeneficiary(t, vault, "heir@example.com", 100)

	details, err := h.engine.GetVault(h.ctx, vault.ID, "carol")
	require.NoError(t, err)
	assert.Len(t, details.Beneficiaries, 1)
	assert.Empty(t, details.Guardians)

	_, err = h.engine.GetVault(h.ctx, vault.ID, "mallory")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = h.engine.CheckIn(h.ctx, vault.ID, "mallory")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = h.engine.GetVault(h.ctx, "missing", "carol")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateVault(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "dave", models.TierEssential, 30, models.DistributionAutomatic)

	enable := true
	_, err := h.engine.UpdateVault(h.ctx, vault.ID, "dave", models.VaultPatch{EnableCheckInReminders: &enable})
	assert.ErrorIs(t, err, models.ErrValidation)

	bad := 60
	_, err = h.engine.UpdateVault(h.ctx, vault.ID, "dave", models.VaultPatch{InactivityDays: &bad})
	assert.ErrorIs(t, err, models.ErrValidation)

	h.clock.AdvanceDays(3)
	days := 180
	name := "renamed"
	manual := models.DistributionManual
	updated, err := h.engine.UpdateVault(h.ctx, vault.ID, "dave", models.VaultPatch{
		Name: &name, InactivityDays: &days, DistributionMethod: &manual,
	})
	require.NoError(t, err)
	assert.Equal(t, 180, updated.InactivityDays)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, models.DistributionManual, updated.DistributionMethod)
	assert.True(t, updated.LastActivityAt.Equal(h.clock.Now()))

	stored := h.reload(t, vault.ID)
	assert.Equal(t, 180, stored.InactivityDays)
}

func TestUpgradeAndDowngradeTier(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "erin", models.TierEssential, 30, models.DistributionAutomatic)
	assert.False(t, vault.EnableCheckInReminders)
	h.addBeneficiary(t, vault, "one@example.com", 50)

	_, err := h.engine.UpgradeTier(h.ctx, vault.ID, "erin", models.TierEssential)
	assert.ErrorIs(t, err, models.ErrValidation)

	upgraded, err := h.engine.UpgradeTier(h.ctx, vault.ID, "erin", models.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, upgraded.Tier)
	assert.True(t, upgraded.EnableCheckInReminders)

	h.addBeneficiary(t, vault, "two@example.com", 50)

	_, err = h.engine.UpgradeTier(h.ctx, vault.ID, "erin", models.TierEssential)
	assert.ErrorIs(t, err, models.ErrCapacity)
	assert.Equal(t, models.TierPremium, h.reload(t, vault.ID).Tier)

	details, err := h.engine.GetVault(h.ctx, vault.ID, "erin")
	require.NoError(t, err)
	assert.Len(t, details.Beneficiaries, 2)
}

func TestCheckInResetsEscalation(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "frank", models.TierEssential, 30, models.DistributionAutomatic)

	h.clock.AdvanceDays(24)
	h.sweep(t)
	warned := h.reload(t, vault.ID)
	assert.Equal(t, 1, warned.WarningNotificationsSent)
	require.NotNil(t, warned.TriggerWarningAt)

	now := h.clock.AdvanceDays(1)
	checked, err := h.engine.CheckIn(h.ctx, vault.ID, "frank")
	require.NoError(t, err)
	assert.Equal(t, 0, checked.WarningNotificationsSent)
	assert.Nil(t, checked.TriggerWarningAt)
	assert.True(t, checked.LastActivityAt.Equal(now))

	stored := h.reload(t, vault.ID)
	assert.Equal(t, 0, stored.WarningNotificationsSent)
	assert.Nil(t, stored.TriggerWarningAt)
}

// Owner of a 90 day vault checks in on day 80; the original day 90 passes quietly.
func TestCheckInOnDayEighty(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "grace", models.TierPremium, 90, models.DistributionAutomatic)
	h.addBeneficiary(t, vault, "a@example.com", 60)
	h.addBeneficiary(t, vault, "b@example.com", 40)

	h.clock.Set(start.Add(80 * policy.Day))
	_, err := h.engine.CheckIn(h.ctx, vault.ID, "grace")
	require.NoError(t, err)

	h.clock.Set(start.Add(91 * policy.Day))
	result := h.sweep(t)
	assert.Equal(t, 0, result.Warned)
	assert.Equal(t, 0, result.Triggered)

	stored := h.reload(t, vault.ID)
	assert.Equal(t, models.VaultActive, stored.Status)
	assert.Equal(t, 0, stored.WarningNotificationsSent)
	assert.Equal(t, 79, stored.InactivityDays-policy.DaysSince(stored.LastActivityAt, h.clock.Now()))
	assert.Empty(t, h.notifier.sent(models.NotifyWarning7Days))
	assert.Empty(t, h.notifier.sent(models.NotifyWarning24Hours))
}

func TestCancelTrigger(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "heidi", models.TierEssential, 30, models.DistributionAutomatic)

	_, err := h.engine.CancelTrigger(h.ctx, vault.ID, "heidi")
	assert.ErrorIs(t, err, models.ErrState)

	h.clock.AdvanceDays(30)
	h.sweep(t)
	require.Equal(t, models.VaultTriggered, h.reload(t, vault.ID).Status)

	now := h.clock.AdvanceDays(2)
	restored, err := h.engine.CancelTrigger(h.ctx, vault.ID, "heidi")
	require.NoError(t, err)
	assert.Equal(t, models.VaultActive, restored.Status)

	stored := h.reload(t, vault.ID)
	assert.Equal(t, models.VaultActive, stored.Status)
	assert.Equal(t, 0, stored.WarningNotificationsSent)
	assert.Nil(t, stored.TriggerWarningAt)
	assert.Nil(t, stored.TimelockStartAt)
	assert.Nil(t, stored.CanDistributeAt)
	assert.True(t, stored.LastActivityAt.Equal(now))
	assert.Contains(t, h.events.kinds(), models.EventTriggerCancelled)

	// the countdown restarts from the cancel
	h.clock.AdvanceDays(8)
	assert.Equal(t, 0, h.sweep(t).Triggered)
}

func TestCancelVault(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "ivan", models.TierEssential, 30, models.DistributionAutomatic)

	cancelled, err := h.engine.CancelVault(h.ctx, vault.ID, "ivan")
	require.NoError(t, err)
	assert.Equal(t, models.VaultCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = h.engine.CancelVault(h.ctx, vault.ID, "ivan")
	assert.ErrorIs(t, err, models.ErrState)
	_, err = h.engine.CheckIn(h.ctx, vault.ID, "ivan")
	assert.ErrorIs(t, err, models.ErrState)
	_, err = h.engine.AddBeneficiary(h.ctx, vault.ID, "ivan", models.BeneficiaryInput{Name: "x", Email: "x@example.com", Percentage: 10})
	assert.ErrorIs(t, err, models.ErrState)

	h.clock.AdvanceDays(60)
	result := h.sweep(t)
	assert.Equal(t, 0, result.Examined)
	assert.Equal(t, models.VaultCancelled, h.reload(t, vault.ID).Status)
}

func TestCancelVaultDuringTimelockNotifiesGuardians(t *testing.T) {
	h := newHarness(t)
	vault := h.createVault(t, "judy", models.TierPremium, 30, models.DistributionAutomatic)
	h.addBeneficiary(t, vault, "heir@example.com", 100)
	accepted := h.addAcceptedGuardian(t, vault, "g1@example.com")
	_, err := h.engine.AddGuardian(h.ctx, vault.ID, "judy", models.GuardianInput{Name: "Pending", Email: "g2@example.com"})
	require.NoError(t, err)

	h.clock.AdvanceDays(30)
	h.sweep(t)

	cancelled, err := h.engine.CancelVault(h.ctx, vault.ID, "judy")
	require.NoError(t, err)
	assert.Equal(t, models.VaultCancelled, cancelled.Status)
	assert.Nil(t, cancelled.CanDistributeAt)

	overrides := h.notifier.sent(models.NotifyGuardianOverride)
	require.Len(t, overrides, 1)
	assert.Equal(t, accepted.Email, overrides[0].Recipient)
	assert.Contains(t, h.events.kinds(), models.EventVaultCancelled)

	h.clock.AdvanceDays(10)
	assert.Equal(t, 0, h.sweep(t).Distributed)
	instructions, err := h.engine.ListDistributionInstructions(h.ctx, vault.ID, "judy")
	require.NoError(t, err)
	assert.Empty(t, instructions)
}

func TestDispatchFailureDoesNotRollBack(t *testing.T) {
	h := newHarnessWithDelivery(t, models.Delivery{Err: errors.New("smtp unavailable")})
	vault := h.createVault(t, "ken", models.TierEssential, 30, models.DistributionAutomatic)
	h.addBeneficiary(t, vault, "heir@example.com", 100)

	h.clock.AdvanceDays(30)
	result := h.sweep(t)
	assert.Equal(t, 1, result.Triggered)
	assert.Equal(t, 2, result.DispatchFailed)
	assert.Equal(t, models.VaultTriggered, h.reload(t, vault.ID).Status)

	log, err := h.repo.ListNotifications(h.ctx, vault.ID)
	require.NoError(t, err)
	require.NotEmpty(t, log)
	for _, n := range log {
		assert.False(t, n.Delivered)
		assert.Equal(t, "smtp unavailable", n.Error)
	}
}
