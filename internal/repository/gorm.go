package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/core-coin/successio/internal/models"
	"github.com/core-coin/successio/pkg/logger"
)

// GormDB is the gorm backed vault store.
type GormDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

// NewPostgresDB connects to PostgreSQL and migrates the schema.
func NewPostgresDB(dsn string, logger *logger.Logger) (*GormDB, error) {
	db, err := NewGormDB(postgres.Open(dsn), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return db, nil
}

// NewGormDB opens the given dialector and migrates the schema.
func NewGormDB(dialector gorm.Dialector, logger *logger.Logger) (*GormDB, error) {
	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Vault{},
		&models.Beneficiary{},
		&models.Guardian{},
		&models.Activity{},
		&models.Notification{},
		&models.DistributionInstruction{},
		&models.AppLock{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return &GormDB{Conn: db, logger: logger}, nil
}

func (db *GormDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

func (db *GormDB) bind(tx *gorm.DB) *GormDB {
	return &GormDB{Conn: tx, logger: db.logger}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func (db *GormDB) WithTx(ctx context.Context, fn func(tx models.Repository) error) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(db.bind(tx))
	})
}

func (db *GormDB) WithVaultTx(ctx context.Context, vaultID string, fn func(tx models.Repository) error) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vault models.Vault
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", vaultID).First(&vault).Error
		if err != nil {
			return notFound(err, "vault")
		}
		return fn(db.bind(tx))
	})
}

func (db *GormDB) CreateVault(ctx context.Context, vault *models.Vault) error {
	if err := db.Conn.WithContext(ctx).Create(vault).Error; err != nil {
		// idx_vaults_open_owner allows one non-cancelled vault per owner
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("owner %s already has an open vault: %w", vault.OwnerID, models.ErrConflict)
		}
		return fmt.Errorf("failed to create vault: %w", err)
	}
	return nil
}

func (db *GormDB) GetVault(ctx context.Context, vaultID string) (*models.Vault, error) {
	var vault models.Vault
	if err := db.Conn.WithContext(ctx).Where("id = ?", vaultID).First(&vault).Error; err != nil {
		return nil, notFound(err, "vault")
	}
	return &vault, nil
}

func (db *GormDB) FindActiveVaultByOwner(ctx context.Context, ownerID string) (*models.Vault, error) {
	var vault models.Vault
	err := db.Conn.WithContext(ctx).
		Where("owner_id = ? AND status <> ?", ownerID, models.VaultCancelled).
		First(&vault).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find vault by owner: %w", err)
	}
	return &vault, nil
}

func (db *GormDB) ListVaultsByStatus(ctx context.Context, status models.VaultStatus) ([]*models.Vault, error) {
	var vaults []*models.Vault
	if err := db.Conn.WithContext(ctx).Where("status = ?", status).Order("id").Find(&vaults).Error; err != nil {
		return nil, fmt.Errorf("failed to list vaults: %w", err)
	}
	return vaults, nil
}

func (db *GormDB) SaveVault(ctx context.Context, vault *models.Vault) error {
	if err := db.Conn.WithContext(ctx).Save(vault).Error; err != nil {
		return fmt.Errorf("failed to save vault: %w", err)
	}
	return nil
}

func (db *GormDB) CreateBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error {
	if err := db.Conn.WithContext(ctx).Create(beneficiary).Error; err != nil {
		return fmt.Errorf("failed to create beneficiary: %w", err)
	}
	return nil
}

func (db *GormDB) GetBeneficiary(ctx context.Context, beneficiaryID string) (*models.Beneficiary, error) {
	var beneficiary models.Beneficiary
	if err := db.Conn.WithContext(ctx).Where("id = ?", beneficiaryID).First(&beneficiary).Error; err != nil {
		return nil, notFound(err, "beneficiary")
	}
	return &beneficiary, nil
}

func (db *GormDB) GetBeneficiaryByToken(ctx context.Context, token string) (*models.Beneficiary, error) {
	var beneficiary models.Beneficiary
	if err := db.Conn.WithContext(ctx).Where("verification_token = ?", token).First(&beneficiary).Error; err != nil {
		return nil, notFound(err, "beneficiary")
	}
	return &beneficiary, nil
}

func (db *GormDB) ListBeneficiaries(ctx context.Context, vaultID string) ([]*models.Beneficiary, error) {
	var beneficiaries []*models.Beneficiary
	if err := db.Conn.WithContext(ctx).Where("vault_id = ?", vaultID).Order("created_at, id").Find(&beneficiaries).Error; err != nil {
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	return beneficiaries, nil
}

func (db *GormDB) SaveBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error {
	if err := db.Conn.WithContext(ctx).Save(beneficiary).Error; err != nil {
		return fmt.Errorf("failed to save beneficiary: %w", err)
	}
	return nil
}

func (db *GormDB) DeleteBeneficiary(ctx context.Context, beneficiaryID string) error {
	if err := db.Conn.WithContext(ctx).Where("id = ?", beneficiaryID).Delete(&models.Beneficiary{}).Error; err != nil {
		return fmt.Errorf("failed to delete beneficiary: %w", err)
	}
	return nil
}

func (db *GormDB) CreateGuardian(ctx context.Context, guardian *models.Guardian) error {
	if err := db.Conn.WithContext(ctx).Create(guardian).Error; err != nil {
		return fmt.Errorf("failed to create guardian: %w", err)
	}
	return nil
}

func (db *GormDB) GetGuardian(ctx context.Context, guardianID string) (*models.Guardian, error) {
	var guardian models.Guardian
	if err := db.Conn.WithContext(ctx).Where("id = ?", guardianID).First(&guardian).Error; err != nil {
		return nil, notFound(err, "guardian")
	}
	return &guardian, nil
}

func (db *GormDB) GetGuardianByToken(ctx context.Context, token string) (*models.Guardian, error) {
	var guardian models.Guardian
	if err := db.Conn.WithContext(ctx).Where("invite_token = ?", token).First(&guardian).Error; err != nil {
		return nil, notFound(err, "guardian")
	}
	return &guardian, nil
}

func (db *GormDB) GetGuardianByApprovalToken(ctx context.Context, token string) (*models.Guardian, error) {
	var guardian models.Guardian
	if err := db.Conn.WithContext(ctx).Where("approval_token = ?", token).First(&guardian).Error; err != nil {
		return nil, notFound(err, "guardian")
	}
	return &guardian, nil
}

func (db *GormDB) ListGuardians(ctx context.Context, vaultID string) ([]*models.Guardian, error) {
	var guardians []*models.Guardian
	if err := db.Conn.WithContext(ctx).Where("vault_id = ?", vaultID).Order("created_at, id").Find(&guardians).Error; err != nil {
		return nil, fmt.Errorf("failed to list guardians: %w", err)
	}
	return guardians, nil
}

func (db *GormDB) SaveGuardian(ctx context.Context, guardian *models.Guardian) error {
	if err := db.Conn.WithContext(ctx).Save(guardian).Error; err != nil {
		return fmt.Errorf("failed to save guardian: %w", err)
	}
	return nil
}

func (db *GormDB) DeleteGuardian(ctx context.Context, guardianID string) error {
	if err := db.Conn.WithContext(ctx).Where("id = ?", guardianID).Delete(&models.Guardian{}).Error; err != nil {
		return fmt.Errorf("failed to delete guardian: %w", err)
	}
	return nil
}

func (db *GormDB) LogActivity(ctx context.Context, activity *models.Activity) error {
	if err := db.Conn.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}

func (db *GormDB) ListActivities(ctx context.Context, vaultID string, limit int) ([]*models.Activity, error) {
	var activities []*models.Activity
	query := db.Conn.WithContext(ctx).Where("vault_id = ?", vaultID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func (db *GormDB) LogNotification(ctx context.Context, notification *models.Notification) error {
	if err := db.Conn.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to log notification: %w", err)
	}
	return nil
}

func (db *GormDB) ListNotifications(ctx context.Context, vaultID string) ([]*models.Notification, error) {
	var notifications []*models.Notification
	if err := db.Conn.WithContext(ctx).Where("vault_id = ?", vaultID).Order("id").Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (db *GormDB) CreateDistributionInstructions(ctx context.Context, instructions []*models.DistributionInstruction) error {
	if len(instructions) == 0 {
		return nil
	}
	if err := db.Conn.WithContext(ctx).Create(&instructions).Error; err != nil {
		return fmt.Errorf("failed to create distribution instructions: %w", err)
	}
	return nil
}

func (db *GormDB) ListDistributionInstructions(ctx context.Context, vaultID string) ([]*models.DistributionInstruction, error) {
	var instructions []*models.DistributionInstruction
	if err := db.Conn.WithContext(ctx).Where("vault_id = ?", vaultID).Order("id").Find(&instructions).Error; err != nil {
		return nil, fmt.Errorf("failed to list distribution instructions: %w", err)
	}
	return instructions, nil
}
