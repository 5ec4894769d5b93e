package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/repository"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/scoring"
)

// Evaluator produces a verdict for a fingerprint.
type Evaluator interface {
	Evaluate(ctx context.Context, fp normalizer.Fingerprint) (scoring.Verdict, error)
}

// VerdictNotifier is told about every stored MALICIOUS scan.
type VerdictNotifier interface {
	NotifyMalicious(scan models.ScanRecord)
}

type ScanService interface {
	ScanURL(ctx context.Context, rawURL string) (*models.ScanRecord, error)
	ScanFile(ctx context.Context, fileName string, content io.Reader) (*models.ScanRecord, error)
	ScanHash(ctx context.Context, rawHash string) (*models.ScanRecord, error)
	GetScan(ctx context.Context, scanID string) (*models.ScanRecord, error)
}

type scanService struct {
	engine   Evaluator
	repo     repository.ScanRepository
	notifier VerdictNotifier
	logger   *zap.Logger
}

// NewScanService wires the scan flow. notifier may be nil.
func NewScanService(engine Evaluator, repo repository.ScanRepository, notifier VerdictNotifier, logger *zap.Logger) ScanService {
	return &scanService{
		engine:   engine,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *scanService) ScanURL(ctx context.Context, rawURL string) (*models.ScanRecord, error) {
	fp, err := normalizer.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, fp)
}

// ScanFile hashes the upload; the content itself is never stored.
func (s *scanService) ScanFile(ctx context.Context, fileName string, content io.Reader) (*models.ScanRecord, error) {
	fp, err := normalizer.NormalizeFile(fileName, content)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, fp)
}

func (s *scanService) ScanHash(ctx context.Context, rawHash string) (*models.ScanRecord, error) {
	fp, err := normalizer.NormalizeHash(rawHash)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, fp)
}

func (s *scanService) GetScan(ctx context.Context, scanID string) (*models.ScanRecord, error) {
	return s.repo.GetByID(ctx, scanID)
}

func (s *scanService) scan(ctx context.Context, fp normalizer.Fingerprint) (*models.ScanRecord, error) {
	verdict, err := s.engine.Evaluate(ctx, fp)
	if err != nil {
		s.logger.Warn("Scan could not be scored", zap.String("kind", string(fp.Kind)), zap.Error(err))
		return nil, err
	}

	rec := &models.ScanRecord{
		InputKind: fp.Kind,
		ScanKey:   fp.Key(),
		Status:    verdict.Status,
		Score:     verdict.Score,
		Summary:   verdict.Summary,
		Reasons:   models.StringList(verdict.Reasons),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("Scan completed",
		zap.String("scan_id", rec.ID),
		zap.String("kind", string(rec.InputKind)),
		zap.String("status", string(rec.Status)),
		zap.Int("score", rec.Score))

	if rec.Status == models.StatusMalicious && s.notifier != nil {
		s.notifier.NotifyMalicious(*rec)
	}
	return rec, nil
}
