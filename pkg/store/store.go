// Package store persists submissions with gorm.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"typingscore/models"
)

// ErrPersistence wraps every database failure surfaced by this package.
var ErrPersistence = errors.New("persistence failure")

// Store is the gorm-backed submission repository.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to the Postgres database at dsn.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// DB exposes the underlying connection for callers that manage other tables.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the tables owned by this package.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&models.Submission{}); err != nil {
		return fmt.Errorf("migrate submissions: %w", err)
	}
	if err := s.db.AutoMigrate(&models.Screenshot{}); err != nil {
		return fmt.Errorf("migrate screenshots: %w", err)
	}
	return nil
}

// Insert stores sub in its own transaction. sub.ID is set on success.
func (s *Store) Insert(ctx context.Context, sub *models.Submission) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(sub).Error
	})
	if err != nil {
		return fmt.Errorf("%w: insert submission: %w", ErrPersistence, err)
	}
	return nil
}

// RecordScreenshot stores the audit row of one analysis.
func (s *Store) RecordScreenshot(ctx context.Context, shot *models.Screenshot) error {
	if err := s.db.WithContext(ctx).Create(shot).Error; err != nil {
		return fmt.Errorf("%w: record screenshot: %w", ErrPersistence, err)
	}
	return nil
}

// FindAll returns every stored submission ordered by id.
func (s *Store) FindAll(ctx context.Context) ([]models.Submission, error) {
	var out []models.Submission
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: find submissions: %w", ErrPersistence, err)
	}
	return out, nil
}

// Tx is a unit of work over the submission table. Rollback after Commit is a
// no-op, so callers can always defer Rollback.
type Tx interface {
	LockAll(ctx context.Context) ([]models.Submission, error)
	UpdateScore(ctx context.Context, id uint, score int64) error
	Commit() error
	Rollback() error
}

// Begin opens a transaction.
func (s *Store) Begin(ctx context.Context) (Tx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: begin: %w", ErrPersistence, tx.Error)
	}
	return &gormTx{tx: tx}, nil
}

type gormTx struct {
	tx   *gorm.DB
	done bool
}

// LockAll loads every submission with a row lock held until the transaction ends.
func (t *gormTx) LockAll(ctx context.Context) ([]models.Submission, error) {
	var out []models.Submission
	err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: lock submissions: %w", ErrPersistence, err)
	}
	return out, nil
}

func (t *gormTx) UpdateScore(ctx context.Context, id uint, score int64) error {
	res := t.tx.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Update("score", score)
	if res.Error != nil {
		return fmt.Errorf("%w: update score id=%d: %w", ErrPersistence, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: update score id=%d: row not found", ErrPersistence, id)
	}
	return nil
}

func (t *gormTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Commit().Error; err != nil {
		return fmt.Errorf("%w: commit: %w", ErrPersistence, err)
	}
	return nil
}

func (t *gormTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback().Error; err != nil {
		return fmt.Errorf("%w: rollback: %w", ErrPersistence, err)
	}
	return nil
}

// IsRetryable reports whether err is a serialization failure or deadlock that
// a fresh transaction may not hit again.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
