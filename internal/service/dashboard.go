package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/repository"
)

// Limits caps the recent lists of the dashboard.
type Limits struct {
	RecentIocs  int
	RecentScans int
}

type DashboardService interface {
	Summarize(ctx context.Context, principal *models.Principal, limits Limits) (*models.DashboardSummary, error)
}

type dashboardService struct {
	iocs   repository.IocRepository
	scans  repository.ScanRepository
	logger *zap.Logger
}

func NewDashboardService(iocs repository.IocRepository, scans repository.ScanRepository, logger *zap.Logger) DashboardService {
	return &dashboardService{iocs: iocs, scans: scans, logger: logger}
}

func (s *dashboardService) Summarize(ctx context.Context, principal *models.Principal, limits Limits) (*models.DashboardSummary, error) {
	if principal == nil || principal.Email == "" {
		return nil, apperr.Unauthorized("Not authenticated.")
	}
	if limits.RecentIocs == 0 {
		limits.RecentIocs = 10
	}
	if limits.RecentScans == 0 {
		limits.RecentScans = 10
	}

	counts, err := s.iocs.CountsByType(ctx)
	if err != nil {
		return nil, err
	}
	iocs, err := s.iocs.ListRecent(ctx, limits.RecentIocs)
	if err != nil {
		return nil, err
	}
	scans, err := s.scans.ListRecent(ctx, limits.RecentScans)
	if err != nil {
		return nil, err
	}

	summary := &models.DashboardSummary{
		CountsByType: counts,
		RecentIocs:   make([]models.IocPublic, 0, len(iocs)),
		RecentScans:  make([]models.ScanBrief, 0, len(scans)),
	}
	for i := range iocs {
		summary.RecentIocs = append(summary.RecentIocs, iocs[i].Public())
	}
	for _, scan := range scans {
		summary.RecentScans = append(summary.RecentScans, models.ScanBrief{
			ScanID:    scan.ID,
			Status:    scan.Status,
			Score:     scan.Score,
			Summary:   scan.Summary,
			CreatedAt: scan.CreatedAt,
		})
	}
	return summary, nil
}
