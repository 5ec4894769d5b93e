package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/ingest"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/repository"
)

// CachePurger drops cached verdicts that a new indicator could change.
type CachePurger interface {
	Purge()
}

type IocService interface {
	Submit(ctx context.Context, principal *models.Principal, raw map[string]json.RawMessage) (*models.IocRecord, error)
}

type iocService struct {
	guard  *ingest.Guard
	repo   repository.IocRepository
	cache  CachePurger
	logger *zap.Logger
}

// NewIocService wires the submission flow. cache may be nil.
func NewIocService(guard *ingest.Guard, repo repository.IocRepository, cache CachePurger, logger *zap.Logger) IocService {
	return &iocService{guard: guard, repo: repo, cache: cache, logger: logger}
}

// Submit sanitizes and stores an indicator. Nothing about principal is stored.
func (s *iocService) Submit(ctx context.Context, principal *models.Principal, raw map[string]json.RawMessage) (*models.IocRecord, error) {
	rec, err := s.guard.Sanitize(principal, raw)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Purge()
	}
	s.logger.Info("IoC stored", zap.String("type", string(rec.Type)))
	return rec, nil
}
