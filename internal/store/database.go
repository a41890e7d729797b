package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/funneldesk/funnel-api/internal/config"
	"github.com/funneldesk/funnel-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// documentRecord is the single-row-per-board table backing database stores
type documentRecord struct {
	Key       string    `gorm:"type:varchar(100);primaryKey"`
	Payload   string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName overrides the default table name to match the migration
func (documentRecord) TableName() string {
	return "documents"
}

// DatabaseStore keeps the board document in a relational document table,
// one row per board key, upserted on every save.
type DatabaseStore struct {
	db     *gorm.DB
	key    string
	logger *zap.Logger
}

// NewDatabaseStore opens the configured database (sqlite or postgres) and
// ensures the document table exists.
func NewDatabaseStore(cfg *config.StoreConfig, boardKey string, logger *zap.Logger) (*DatabaseStore, error) {
	var dialector gorm.Dialector
	switch cfg.Mode {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLite.Path)
	case "postgres":
		dialector = postgres.Open(cfg.Database.ConnectionString())
	default:
		return nil, fmt.Errorf("unsupported database store mode: %s", cfg.Mode)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Mode == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetimeDuration())
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
	}

	// AutoMigrate keeps development setups working without running the
	// migrate command; production schemas come from goose migrations.
	if err := db.AutoMigrate(&documentRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate document table: %w", err)
	}

	return &DatabaseStore{db: db, key: boardKey, logger: logger}, nil
}

// Load fetches and decodes the board row
func (s *DatabaseStore) Load(ctx context.Context) (*domain.Document, error) {
	var rec documentRecord
	err := s.db.WithContext(ctx).First(&rec, "key = ?", s.key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	doc, err := DecodeDocument([]byte(rec.Payload))
	if err != nil {
		s.logger.Warn("stored document is corrupt",
			zap.String("key", s.key),
			zap.Error(err))
		return nil, err
	}
	return doc, nil
}

// Save upserts the board row with the encoded snapshot
func (s *DatabaseStore) Save(ctx context.Context, doc *domain.Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	rec := documentRecord{
		Key:       s.key,
		Payload:   string(data),
		UpdatedAt: time.Now().UTC(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func (s *DatabaseStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck pings the underlying database
func (s *DatabaseStore) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
