package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoPolymarket/panelgate/internal/config"
	"github.com/GoPolymarket/panelgate/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore reads and writes resource tables through gorm. Only tables listed
// in owners are reachable.
type GormStore struct {
	db     *gorm.DB
	owners map[string]string
}

func NewGormStore(db *gorm.DB, owners map[string]string) *GormStore {
	return &GormStore{db: db, owners: owners}
}

// OpenPostgres connects gorm to the configured database.
func OpenPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 连接池设置
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(max(cfg.MaxOpenConns/5, 1))
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

type ownershipRow struct {
	ID      string
	OwnerID string
}

func (s *GormStore) FetchOwnership(ctx context.Context, table, id string) (model.Ownership, error) {
	col, err := s.ownerColumn(table)
	if err != nil {
		return model.Ownership{}, err
	}
	var row ownershipRow
	err = s.db.WithContext(ctx).
		Table(table).
		Select("id, ? AS owner_id", clause.Column{Name: col}).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		return model.Ownership{}, notFound(err)
	}
	return model.Ownership{ID: row.ID, OwnerID: row.OwnerID}, nil
}

func (s *GormStore) Get(ctx context.Context, table, id string) (map[string]any, error) {
	if _, err := s.ownerColumn(table); err != nil {
		return nil, err
	}
	return s.get(s.db.WithContext(ctx), table, id)
}

// Update applies fields and returns the stored record, in one transaction.
func (s *GormStore) Update(ctx context.Context, table, id string, fields map[string]any) (map[string]any, error) {
	if _, err := s.ownerColumn(table); err != nil {
		return nil, err
	}
	var out map[string]any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Table(table).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		rec, err := s.get(tx, table, id)
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) Delete(ctx context.Context, table, id string) error {
	if _, err := s.ownerColumn(table); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Exec("DELETE FROM ? WHERE id = ?", clause.Table{Name: table}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) get(db *gorm.DB, table, id string) (map[string]any, error) {
	row := map[string]any{}
	if err := db.Table(table).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row, nil
}

func (s *GormStore) ownerColumn(table string) (string, error) {
	col, ok := s.owners[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return col, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
