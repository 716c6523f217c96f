package successio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/internal/policy"
)

type sweepAction int

const (
	actionNone sweepAction = iota
	actionSkipped
	actionWarned
	actionTriggered
	actionDistributed
)

type vaultOutcome struct {
	action         sweepAction
	reminded       bool
	dispatchFailed int
}

// ProcessInactivityCheck evaluates every active and triggered vault against the
// current time. It only compares stored timestamps to now, so running it more
// often than needed, or skipping a run, does not change the outcome.
//
// No new vault is started once SweepDeadline has passed; the rest are picked up
// by the next run. Per-vault failures are counted and returned combined.
func (s *Successio) ProcessInactivityCheck(ctx context.Context) (models.SweepResult, error) {
	var result models.SweepResult

	active, err := s.repo.ListVaultsByStatus(ctx, models.VaultActive)
	if err != nil {
		return result, fmt.Errorf("failed to list active vaults: %w", err)
	}
	triggered, err := s.repo.ListVaultsByStatus(ctx, models.VaultTriggered)
	if err != nil {
		return result, fmt.Errorf("failed to list triggered vaults: %w", err)
	}

	type task struct {
		vaultID string
		run     func(context.Context, string) (vaultOutcome, error)
	}
	tasks := make([]task, 0, len(active)+len(triggered))
	for _, v := range active {
		tasks = append(tasks, task{v.ID, s.evaluateActive})
	}
	for _, v := range triggered {
		if v.DistributionMethod != models.DistributionAutomatic {
			continue
		}
		tasks = append(tasks, task{v.ID, s.evaluateTriggered})
	}
	result.Examined = len(tasks)

	deadline, cancel := context.WithTimeout(ctx, s.config.SweepDeadline)
	defer cancel()

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(s.config.SweepWorkers)

	for i, t := range tasks {
		if deadline.Err() != nil {
			mu.Lock()
			result.DeadlineReached = true
			result.Skipped += len(tasks) - i
			mu.Unlock()
			s.logger.Warnw("Sweep deadline reached, deferring remaining vaults", "remaining", len(tasks)-i)
			break
		}

		t := t
		g.Go(func() error {
			// in-flight work keeps the caller's context so a started vault is finished
			outcome, err := t.run(ctx, t.vaultID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				errs = multierr.Append(errs, fmt.Errorf("vault %s: %w", t.vaultID, err))
				s.logger.Errorw("Failed to process vault", "vault", t.vaultID, "error", err)
				return nil
			}
			result.DispatchFailed += outcome.dispatchFailed
			if outcome.reminded {
				result.Reminded++
			}
			switch outcome.action {
			case actionSkipped:
				result.Skipped++
				return nil
			case actionWarned:
				result.Warned++
			case actionTriggered:
				result.Triggered++
			case actionDistributed:
				result.Distributed++
			}
			result.Processed++
			return nil
		})
	}
	_ = g.Wait()

	return result, errs
}

// evaluateActive runs the countdown for one active vault.
func (s *Successio) evaluateActive(ctx context.Context, vaultID string) (vaultOutcome, error) {
	var outcome vaultOutcome
	out, err := s.withVault(ctx, vaultID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		// an owner action may have moved the vault since it was listed
		if vault.Status != models.VaultActive {
			outcome.action = actionSkipped
			return nil
		}

		now := s.clock.Now()
		daysSinceActivity := policy.DaysSince(vault.LastActivityAt, now)
		daysUntilTrigger := vault.InactivityDays - daysSinceActivity
		changed := false

		switch {
		case daysUntilTrigger <= 0:
			if err := s.triggerVault(ctx, tx, vault, now, out); err != nil {
				return err
			}
			outcome.action = actionTriggered
			changed = true
		case daysUntilTrigger <= s.policy.FinalWarningDays && vault.WarningNotificationsSent < 2:
			s.queueWarning(out, vault, models.NotifyWarning24Hours, daysUntilTrigger)
			vault.WarningNotificationsSent = 2
			vault.TriggerWarningAt = &now
			outcome.action = actionWarned
			changed = true
		case daysUntilTrigger <= s.policy.FirstWarningDays && vault.WarningNotificationsSent < 1:
			s.queueWarning(out, vault, models.NotifyWarning7Days, daysUntilTrigger)
			vault.WarningNotificationsSent = 1
			vault.TriggerWarningAt = &now
			outcome.action = actionWarned
			changed = true
		}

		if vault.Status == models.VaultActive && s.reminderDue(vault, now) {
			out.notify(&models.Message{
				Kind:          models.NotifyCheckInReminder,
				VaultID:       vault.ID,
				Recipient:     vault.OwnerEmail,
				RecipientRole: models.RoleOwner,
				Data:          map[string]interface{}{"VaultName": vault.Name},
			})
			vault.LastCheckInReminderAt = &now
			outcome.reminded = true
			changed = true
		}

		if !changed {
			return nil
		}
		vault.UpdatedAt = now
		return tx.SaveVault(ctx, vault)
	})
	if err != nil {
		return outcome, err
	}
	outcome.dispatchFailed = s.flush(ctx, out)
	return outcome, nil
}

func (s *Successio) queueWarning(out *outbox, vault *models.Vault, kind models.NotificationKind, daysUntilTrigger int) {
	out.notify(&models.Message{
		Kind:          kind,
		VaultID:       vault.ID,
		Recipient:     vault.OwnerEmail,
		RecipientRole: models.RoleOwner,
		Data: map[string]interface{}{
			"VaultName":        vault.Name,
			"DaysUntilTrigger": daysUntilTrigger,
			"InactivityDays":   vault.InactivityDays,
		},
	})
}

// reminderDue reports whether an annual check-in reminder should go out.
// It is independent of the trigger countdown.
func (s *Successio) reminderDue(vault *models.Vault, now time.Time) bool {
	if !vault.EnableCheckInReminders || vault.Tier != models.TierPremium {
		return false
	}
	if vault.LastCheckInReminderAt == nil {
		return true
	}
	return now.Sub(*vault.LastCheckInReminderAt) >= s.policy.ReminderInterval
}

// evaluateTriggered distributes one automatic triggered vault once its timelock has passed.
func (s *Successio) evaluateTriggered(ctx context.Context, vaultID string) (vaultOutcome, error) {
	var outcome vaultOutcome
	out, err := s.withVault(ctx, vaultID, func(tx models.Repository, vault *models.Vault, out *outbox) error {
		if vault.Status != models.VaultTriggered || vault.DistributionMethod != models.DistributionAutomatic {
			outcome.action = actionSkipped
			return nil
		}

		now := s.clock.Now()
		if vault.CanDistributeAt == nil || vault.CanDistributeAt.After(now) {
			return nil
		}

		guardians, err := tx.ListGuardians(ctx, vault.ID)
		if err != nil {
			return err
		}
		if pending, approvals, threshold := approvalsPending(vault, guardians); pending {
			s.logger.Debugw("Distribution waiting for guardian approval", "vault", vault.ID, "approvals", approvals, "threshold", threshold)
			return nil
		}

		if err := s.processDistribution(ctx, tx, vault, now, out); err != nil {
			return err
		}
		outcome.action = actionDistributed
		vault.UpdatedAt = now
		return tx.SaveVault(ctx, vault)
	})
	if err != nil {
		return outcome, err
	}
	outcome.dispatchFailed = s.flush(ctx, out)
	return outcome, nil
}
