package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
)

// IocRepository stores sanitized indicators. Nothing in it can hold the
// identity of the submitter.
type IocRepository interface {
	Create(ctx context.Context, ioc *models.IocRecord) error
	ListRecent(ctx context.Context, limit int) ([]models.IocRecord, error)
	CountsByType(ctx context.Context) (map[models.IocType]int, error)
	FindByValues(ctx context.Context, values []string) ([]models.IocRecord, error)
}

type iocRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewIocRepository(db *sqlx.DB, logger *zap.Logger) IocRepository {
	return &iocRepository{db: db, logger: logger}
}

const iocColumns = `id, seq, type, value, confidence, tags, first_seen, created_at`

func (r *iocRepository) Create(ctx context.Context, ioc *models.IocRecord) error {
	ioc.ID = uuid.NewString()
	ioc.CreatedAt = storageClock.Now()
	if ioc.Tags == nil {
		ioc.Tags = models.StringList{}
	}

	query := r.db.Rebind(`
		INSERT INTO iocs (id, type, value, confidence, tags, first_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING seq
	`)
	err := write(ctx, func() error {
		return r.db.QueryRowxContext(ctx, query,
			ioc.ID,
			ioc.Type,
			ioc.Value,
			ioc.Confidence,
			ioc.Tags,
			ioc.FirstSeen,
			ioc.CreatedAt,
		).Scan(&ioc.Seq)
	})
	if err != nil {
		r.logger.Error("Failed to create IoC", zap.String("type", string(ioc.Type)), zap.Error(err))
		return err
	}
	return nil
}

// ListRecent returns up to limit indicators, newest first.
func (r *iocRepository) ListRecent(ctx context.Context, limit int) ([]models.IocRecord, error) {
	iocs := []models.IocRecord{}
	query := r.db.Rebind(`SELECT ` + iocColumns + ` FROM iocs ORDER BY created_at DESC, seq DESC LIMIT ?`)
	err := read(ctx, func() error {
		iocs = iocs[:0]
		return r.db.SelectContext(ctx, &iocs, query, clampLimit(limit))
	})
	if err != nil {
		r.logger.Error("Failed to list recent IoCs", zap.Error(err))
		return nil, err
	}
	return iocs, nil
}

// CountsByType returns a count for every known type, zero when absent.
func (r *iocRepository) CountsByType(ctx context.Context) (map[models.IocType]int, error) {
	var rows []struct {
		Type  models.IocType `db:"type"`
		Count int            `db:"count"`
	}
	err := read(ctx, func() error {
		rows = rows[:0]
		return r.db.SelectContext(ctx, &rows, `SELECT type, COUNT(*) AS count FROM iocs GROUP BY type`)
	})
	if err != nil {
		r.logger.Error("Failed to count IoCs by type", zap.Error(err))
		return nil, err
	}

	counts := make(map[models.IocType]int, len(models.IocTypes))
	for _, t := range models.IocTypes {
		counts[t] = 0
	}
	for _, row := range rows {
		if row.Type.Valid() {
			counts[row.Type] += row.Count
		}
	}
	return counts, nil
}

// FindByValues returns indicators whose value equals one of values,
// ignoring case.
func (r *iocRepository) FindByValues(ctx context.Context, values []string) ([]models.IocRecord, error) {
	iocs := []models.IocRecord{}
	if len(values) == 0 {
		return iocs, nil
	}
	lowered := make([]string, len(values))
	for i, v := range values {
		lowered[i] = strings.ToLower(v)
	}
	query, args, err := sqlx.In(`SELECT `+iocColumns+` FROM iocs WHERE LOWER(value) IN (?) ORDER BY confidence DESC, seq DESC`, lowered)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)
	err = read(ctx, func() error {
		iocs = iocs[:0]
		return r.db.SelectContext(ctx, &iocs, query, args...)
	})
	if err != nil {
		r.logger.Error("Failed to look up IoCs by value", zap.Int("values", len(values)), zap.Error(err))
		return nil, err
	}
	return iocs, nil
}
