package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/core-coin/successio/internal/models"
)

// errLockTaken rolls back an insert that lost the race to another instance.
var errLockTaken = errors.New("lock taken")

// AcquireLock takes the named lock if it is free, expired, or already ours.
func (db *GormDB) AcquireLock(ctx context.Context, name, instanceID string, now time.Time, ttl time.Duration) (bool, error) {
	acquired := false
	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lock models.AppLock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("lock_name = ?", name).First(&lock).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			lock = models.AppLock{
				LockName:   name,
				InstanceID: instanceID,
				AcquiredAt: now.Unix(),
				ExpiresAt:  now.Add(ttl).Unix(),
			}
			if err := tx.Create(&lock).Error; err != nil {
				db.logger.Debugw("Lock insert lost race", "lock", name, "error", err)
				return errLockTaken
			}
			acquired = true
			return nil
		case err != nil:
			return err
		}

		if lock.InstanceID != instanceID && lock.ExpiresAt > now.Unix() {
			return nil
		}
		lock.InstanceID = instanceID
		lock.AcquiredAt = now.Unix()
		lock.ExpiresAt = now.Add(ttl).Unix()
		if err := tx.Save(&lock).Error; err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if errors.Is(err, errLockTaken) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return acquired, nil
}

// ReleaseLock drops the named lock if this instance holds it.
func (db *GormDB) ReleaseLock(ctx context.Context, name, instanceID string) error {
	err := db.Conn.WithContext(ctx).
		Where("lock_name = ? AND instance_id = ?", name, instanceID).
		Delete(&models.AppLock{}).Error
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
