package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/user/crypto-analyser/internal/keywords"
	"github.com/user/crypto-analyser/pkg/config"
)

// Repository provides database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository connects to postgres and migrates the schema.
func NewRepository(cfg config.DatabaseConfig) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
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

	// Auto-migrate models
	if err := db.AutoMigrate(
		&AnalysisRun{},
		&SubjectAnalysis{},
		&MentionRecord{},
		&RecommendationRecord{},
		&AggregateRecord{},
		&Cryptocurrency{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Health pings the database.
func (r *Repository) Health(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Run operations

// SaveRun stores a run together with its subjects and aggregates.
func (r *Repository) SaveRun(ctx context.Context, run *AnalysisRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run with all associations in stored order. A missing
// run yields nil without error.
func (r *Repository) GetRun(ctx context.Context, id uint) (*AnalysisRun, error) {
	byPosition := func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}

	var run AnalysisRun
	err := r.db.WithContext(ctx).
		Preload("Subjects", byPosition).
		Preload("Subjects.Mentions", byPosition).
		Preload("Subjects.Recommendations", byPosition).
		Preload("Aggregates", byPosition).
		First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns lists runs newest first, without associations.
func (r *Repository) ListRuns(ctx context.Context, limit, offset int) ([]AnalysisRun, error) {
	var runs []AnalysisRun
	query := r.db.WithContext(ctx)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Order("run_at DESC").Order("id DESC").Find(&runs).Error
	return runs, err
}

// Catalog operations

// UpsertCatalog stores the latest name and rank for each symbol.
func (r *Repository) UpsertCatalog(ctx context.Context, entries []keywords.Entry) error {
	rows := NewCryptocurrencies(entries)
	if len(rows) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "rank", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert catalog: %w", err)
	}
	return nil
}

// ListCatalog returns stored catalog entries in rank order.
func (r *Repository) ListCatalog(ctx context.Context, limit int) ([]keywords.Entry, error) {
	var rows []Cryptocurrency
	query := r.db.WithContext(ctx).Order("rank ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]keywords.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, keywords.Entry{Name: row.Name, Symbol: row.Symbol, Rank: row.Rank})
	}
	return entries, nil
}
