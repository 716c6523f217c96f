package successio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/core-coin/successio/internal/config"
	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/internal/policy"
	"github.com/core-coin/successio/pkg/clock"
	"github.com/core-coin/successio/pkg/logger"
)

const (
	// sweepLockName is the app lock that keeps the sweep single-instance
	sweepLockName = "inactivity_sweep"
	// percentEpsilon absorbs float noise when summing allocations
	percentEpsilon = 1e-9
)

// Successio is the main struct for the Successio application
// It owns every vault state transition, the invariant checks
// and the periodic inactivity sweep
type Successio struct {
	logger *logger.Logger
	config *config.Config
	policy *policy.Table
	clock  clock.Clock

	repo        models.Repository
	notificator models.NotificationService
	events      models.EventPublisher

	locks *keyedMutex
}

// NewSuccessio creates a new Successio instance. events may be nil.
func NewSuccessio(
	repo models.Repository,
	notificator models.NotificationService,
	events models.EventPublisher,
	clock clock.Clock,
	policy *policy.Table,
	logger *logger.Logger,
	config *config.Config,
) *Successio {
	return &Successio{
		repo:        repo,
		notificator: notificator,
		events:      events,
		clock:       clock,
		policy:      policy,
		logger:      logger,
		config:      config,
		locks:       newKeyedMutex(),
	}
}

// Start runs the inactivity sweep once and then every SweepInterval until ctx is done.
func (s *Successio) Start(ctx context.Context) {
	s.runScheduledSweep(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runScheduledSweep(ctx)
		case <-ctx.Done():
			s.logger.Info("Sweep loop stopped")
			return
		}
	}
}

func (s *Successio) runScheduledSweep(ctx context.Context) {
	acquired, err := s.repo.AcquireLock(ctx, sweepLockName, s.config.InstanceID, s.clock.Now(), s.config.SweepLockTTL)
	if err != nil {
		s.logger.Errorw("Failed to acquire sweep lock", "error", err)
		return
	}
	if !acquired {
		s.logger.Debugw("Sweep lock held by another instance, skipping cycle", "instance", s.config.InstanceID)
		return
	}
	defer func() {
		if err := s.repo.ReleaseLock(context.Background(), sweepLockName, s.config.InstanceID); err != nil {
			s.logger.Errorw("Failed to release sweep lock", "error", err)
		}
	}()

	result, err := s.ProcessInactivityCheck(ctx)
	if err != nil {
		s.logger.Errorw("Inactivity sweep finished with failures", "result", result, "error", err)
		return
	}
	s.logger.Infow("Inactivity sweep finished", "result", result)
}

// outbox collects side effects of a transaction. They are dispatched only after commit.
type outbox struct {
	messages []*models.Message
	events   []models.Event
}

func (o *outbox) notify(msg *models.Message) {
	o.messages = append(o.messages, msg)
}

func (o *outbox) publish(event models.Event) {
	o.events = append(o.events, event)
}

// flush sends queued messages, logs each attempt and publishes events.
// It returns the number of failed deliveries. Failures never undo the transition.
func (s *Successio) flush(ctx context.Context, out *outbox) int {
	failed := 0
	for _, msg := range out.messages {
		delivery := s.notificator.Send(ctx, msg)
		record := &models.Notification{
			VaultID:       msg.VaultID,
			Kind:          msg.Kind,
			Recipient:     msg.Recipient,
			RecipientRole: msg.RecipientRole,
			Delivered:     delivery.Delivered,
			CreatedAt:     s.clock.Now(),
		}
		if delivery.Err != nil {
			record.Error = delivery.Err.Error()
		}
		if !delivery.Delivered {
			failed++
			s.logger.Warnw("Notification not delivered", "vault", msg.VaultID, "kind", msg.Kind, "recipient", msg.Recipient, "error", delivery.Err)
		}
		if err := s.repo.LogNotification(ctx, record); err != nil {
			s.logger.Errorw("Failed to log notification", "vault", msg.VaultID, "kind", msg.Kind, "error", err)
		}
	}

	if s.events == nil {
		return failed
	}
	for _, event := range out.events {
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warnw("Failed to publish event", "vault", event.VaultID, "kind", event.Kind, "error", err)
		}
	}
	return failed
}

// withVault serializes on the vault, reloads it inside a locked transaction and runs fn.
// fn's outbox is returned for dispatch once the lock is released.
func (s *Successio) withVault(
	ctx context.Context,
	vaultID string,
	fn func(tx models.Repository, vault *models.Vault, out *outbox) error,
) (*outbox, error) {
	unlock := s.locks.Lock(vaultID)
	defer unlock()

	out := &outbox{}
	err := s.repo.WithVaultTx(ctx, vaultID, func(tx models.Repository) error {
		vault, err := tx.GetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		return fn(tx, vault, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mutateOwnedVault is withVault for owner operations: it checks ownership,
// saves the vault after fn and flushes the outbox.
func (s *Successio) mutateOwnedVault(
	ctx context.Context,
	vaultID, ownerID string,
	fn func(tx models.Repository, vault *models.Vault, out *outbox) error,
) (*models.Vault, error) {
	var saved *models.Vault
	out, err := s.withVault(ctx, vaultID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		if err := checkOwner(vault, ownerID); err != nil {
			return err
		}
		if err := fn(tx, vault, out); err != nil {
			return err
		}
		vault.UpdatedAt = s.clock.Now()
		if err := tx.SaveVault(ctx, vault); err != nil {
			return err
		}
		saved = vault
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.flush(ctx, out)
	return saved, nil
}

// recordActivity appends an activity entry, advances the inactivity clock and
// cancels any pending escalation. The caller saves the vault.
func (s *Successio) recordActivity(
	ctx context.Context,
	tx models.Repository,
	vault *models.Vault,
	activityType models.ActivityType,
	actor models.Actor,
	description string,
) error {
	now := s.clock.Now()
	if err := tx.LogActivity(ctx, &models.Activity{
		VaultID:     vault.ID,
		Type:        activityType,
		Actor:       actor,
		Description: description,
		CreatedAt:   now,
	}); err != nil {
		return err
	}
	vault.LastActivityAt = now
	vault.ResetEscalation()
	return nil
}

// saveVault stamps and persists a vault changed outside mutateOwnedVault.
func (s *Successio) saveVault(ctx context.Context, tx models.Repository, vault *models.Vault) error {
	vault.UpdatedAt = s.clock.Now()
	return tx.SaveVault(ctx, vault)
}

func checkOwner(vault *models.Vault, ownerID string) error {
	if vault.OwnerID != ownerID {
		return fmt.Errorf("vault %s: %w", vault.ID, models.ErrNotFound)
	}
	return nil
}

func requireStatus(vault *models.Vault, status models.VaultStatus) error {
	if vault.Status != status {
		return fmt.Errorf("vault %s is %s, must be %s: %w", vault.ID, vault.Status, status, models.ErrState)
	}
	return nil
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), models.ErrValidation)
}

func newID() string {
	return uuid.NewString()
}

// newToken returns an opaque single-use token for verification and invite links.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC1123)
}
