package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
)

// ScanRepository stores write-once scan records.
type ScanRepository interface {
	Create(ctx context.Context, scan *models.ScanRecord) error
	GetByID(ctx context.Context, id string) (*models.ScanRecord, error)
	ListRecent(ctx context.Context, limit int) ([]models.ScanRecord, error)
}

type scanRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewScanRepository(db *sqlx.DB, logger *zap.Logger) ScanRepository {
	return &scanRepository{db: db, logger: logger}
}

// Create assigns ID, Seq and CreatedAt and inserts the record.
func (r *scanRepository) Create(ctx context.Context, scan *models.ScanRecord) error {
	scan.ID = uuid.NewString()
	scan.CreatedAt = storageClock.Now()
	if scan.Reasons == nil {
		scan.Reasons = models.StringList{}
	}

	query := r.db.Rebind(`
		INSERT INTO scans (id, input_kind, scan_key, status, score, summary, reasons, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq
	`)
	err := write(ctx, func() error {
		return r.db.QueryRowxContext(ctx, query,
			scan.ID,
			scan.InputKind,
			scan.ScanKey,
			scan.Status,
			scan.Score,
			scan.Summary,
			scan.Reasons,
			scan.CreatedAt,
		).Scan(&scan.Seq)
	})
	if err != nil {
		r.logger.Error("Failed to create scan", zap.String("kind", string(scan.InputKind)), zap.Error(err))
		return err
	}
	return nil
}

func (r *scanRepository) GetByID(ctx context.Context, id string) (*models.ScanRecord, error) {
	var scan models.ScanRecord
	query := r.db.Rebind(`
		SELECT id, seq, input_kind, scan_key, status, score, summary, reasons, created_at
		FROM scans
		WHERE id = ?
	`)
	err := read(ctx, func() error {
		return r.db.GetContext(ctx, &scan, query, id)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Scan not found.")
		}
		r.logger.Error("Failed to get scan by ID", zap.String("scan_id", id), zap.Error(err))
		return nil, err
	}
	return &scan, nil
}

// ListRecent returns up to limit scans, newest first.
func (r *scanRepository) ListRecent(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	scans := []models.ScanRecord{}
	query := r.db.Rebind(`
		SELECT id, seq, input_kind, scan_key, status, score, summary, reasons, created_at
		FROM scans
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`)
	err := read(ctx, func() error {
		scans = scans[:0]
		return r.db.SelectContext(ctx, &scans, query, clampLimit(limit))
	})
	if err != nil {
		r.logger.Error("Failed to list recent scans", zap.Error(err))
		return nil, err
	}
	return scans, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
