package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kcourse/internal/store"
	storemodel "kcourse/internal/store/model"
	"kcourse/internal/types"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tripPlanModel = storemodel.TripPlanModel

// GormStore keeps trip plans in SQLite through gorm.
type GormStore struct {
	db    *gorm.DB
	table string
	now   func() time.Time
}

var _ store.PlanRepository = (*GormStore)(nil)

// NewGormStore opens (creating if needed) the SQLite file at path. Use
// ":memory:" for a throwaway store.
func NewGormStore(path, table string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: sqlite path is required")
	}
	dsn := "file::memory:?cache=shared"
	if path != ":memory:" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	s, err := NewWithDB(db, table)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little read parallelism for concurrent HTTP requests
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return s, nil
}

// NewWithDB migrates table on an existing connection.
func NewWithDB(db *gorm.DB, table string) (*GormStore, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		table = tripPlanModel{}.TableName()
	}
	if err := db.Table(table).AutoMigrate(&tripPlanModel{}); err != nil {
		return nil, fmt.Errorf("gorm store: migrate %s: %w", table, err)
	}
	return &GormStore{db: db, table: table, now: time.Now}, nil
}

func (s *GormStore) plans(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

func (s *GormStore) Insert(ctx context.Context, plan *types.TripPlan) error {
	store.PrepareInsert(plan, s.now())
	row := storemodel.FromTripPlan(plan)
	if err := s.plans(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert trip plan: %w", err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, filter store.ListFilter) ([]types.TripPlan, error) {
	q := s.plans(ctx).Order("created_at DESC").Order("id DESC").Limit(filter.EffectiveLimit())
	if uid := strings.TrimSpace(filter.UserID); uid != "" {
		q = q.Where("user_id = ?", uid)
	}
	var rows []tripPlanModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list trip plans: %w", err)
	}
	out := make([]types.TripPlan, len(rows))
	for i, r := range rows {
		out[i] = r.ToTripPlan()
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*types.TripPlan, error) {
	var row tripPlanModel
	err := s.plans(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trip plan %s: %w", id, err)
	}
	plan := row.ToTripPlan()
	return &plan, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) (*types.TripPlan, error) {
	var deleted *types.TripPlan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row tripPlanModel
		if err := tx.Table(s.table).Where("id = ?", id).Take(&row).Error; err != nil {
			return err
		}
		if err := tx.Table(s.table).Where("id = ?", id).Delete(&tripPlanModel{}).Error; err != nil {
			return err
		}
		plan := row.ToTripPlan()
		deleted = &plan
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete trip plan %s: %w", id, err)
	}
	return deleted, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
