package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SessionToken is the row persisted by SQLStore, one per profile.
type SessionToken struct {
	Profile   string `gorm:"primaryKey"`
	Token     string `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name independent of gorm's pluralisation rules.
func (SessionToken) TableName() string { return "session_tokens" }

// SQLStore keeps the token in a relational database through gorm.
type SQLStore struct {
	db      *gorm.DB
	profile string
}

// OpenSQLStore opens dsn and migrates the session table. DSNs starting with
// postgres:// or postgresql:// use Postgres; anything else is a sqlite path.
func OpenSQLStore(dsn, profile string) (*SQLStore, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}

	return migrateOrClose(NewSQLStore(db, profile))
}

// migrateOrClose releases the pool when the table cannot be migrated.
func migrateOrClose(store *SQLStore) (*SQLStore, error) {
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open gorm handle without migrating.
func NewSQLStore(db *gorm.DB, profile string) *SQLStore {
	if profile == "" {
		profile = "default"
	}
	return &SQLStore{db: db, profile: profile}
}

// Migrate creates or updates the session table.
func (s *SQLStore) Migrate() error {
	if err := s.db.AutoMigrate(&SessionToken{}); err != nil {
		return fmt.Errorf("migrate session table: %w", err)
	}
	return nil
}

func (s *SQLStore) SetToken(ctx context.Context, token string) error {
	row := SessionToken{Profile: s.profile, Token: token, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQLStore) Token(ctx context.Context) (string, error) {
	var row SessionToken
	err := s.db.WithContext(ctx).Where("profile = ?", s.profile).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Token, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("profile = ?", s.profile).Delete(&SessionToken{}).Error
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
