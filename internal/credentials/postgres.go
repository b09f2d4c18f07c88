package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tetrisge/rsge/rsge"
)

// settingsModel maps the columns read from the settings table. Other
// columns of that table are left alone.
type settingsModel struct {
	UserID            string  `gorm:"column:user_id"`
	RSServiceUser     *string `gorm:"column:rs_service_user"`
	RSServicePassword *string `gorm:"column:rs_service_password"`
}

func (settingsModel) TableName() string { return "settings" }

// PostgresStore reads per-caller credentials from the settings table.
type PostgresStore struct {
	db *gorm.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens and pings a Postgres-backed gorm pool.
func Connect(ctx context.Context, databaseURL string, logger *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.InfoContext(ctx, "postgres connect completed",
		"operation", "connect",
		"outcome", "success",
	)
	return db, nil
}

func (s *PostgresStore) Resolve(ctx context.Context, callerID string) (rsge.Credentials, error) {
	if callerID == "" {
		return rsge.Credentials{}, &NotConfiguredError{}
	}

	var rec settingsModel
	err := s.db.WithContext(ctx).
		Select("user_id", "rs_service_user", "rs_service_password").
		Where("user_id = ?", callerID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rsge.Credentials{}, &NotConfiguredError{CallerID: callerID}
	}
	if err != nil {
		return rsge.Credentials{}, fmt.Errorf("load rs.ge settings: %w", err)
	}
	return rec.credentials()
}

func (m settingsModel) credentials() (rsge.Credentials, error) {
	creds := rsge.Credentials{
		ServiceUser:     deref(m.RSServiceUser),
		ServicePassword: deref(m.RSServicePassword),
	}
	if err := creds.Validate(); err != nil {
		return rsge.Credentials{}, &NotConfiguredError{CallerID: m.UserID}
	}
	return creds, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
