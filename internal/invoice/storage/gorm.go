package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/invoice-management/internal"
	invoiceDatamodel "github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore keeps blobs in the invoice_blobs table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// OpenGorm connects to sqlite or postgres. The sqlite schema is created on the
// fly; postgres relies on the goose migrations under db/migrations.
func OpenGorm(cfg internal.StorageConfig, logger *slog.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case internal.StorageDriverSQLite:
		dialector = sqlite.Open(cfg.GetDSN())
	case internal.StorageDriverPostgres:
		dialector = postgres.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("driver %q is not a SQL driver", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.Driver == internal.StorageDriverSQLite {
		if err := db.AutoMigrate(&invoiceDatamodel.Blob{}); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate blob table: %w", err)
		}
	}

	logger.Info("blob database connected", "driver", cfg.Driver)
	return db, nil
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var blob invoiceDatamodel.Blob
	err := s.db.WithContext(ctx).Where("blob_key = ?", key).First(&blob).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return blob.Data, nil
}

func (s *GormStore) Put(ctx context.Context, key string, data []byte) error {
	blob := invoiceDatamodel.Blob{Key: key, Data: data}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&blob).Error
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
