package models

import "time"

// ScanBrief is the compact scan shape used in the dashboard.
type ScanBrief struct {
	ScanID    string     `json:"scan_id"`
	Status    ScanStatus `json:"status"`
	Score     int        `json:"score"`
	Summary   string     `json:"summary"`
	CreatedAt time.Time  `json:"created_at"`
}

// DashboardSummary is the response of GET /api/v1/dashboard/summary.
type DashboardSummary struct {
	CountsByType map[IocType]int `json:"counts_by_type"`
	RecentIocs   []IocPublic     `json:"recent_iocs"`
	RecentScans  []ScanBrief     `json:"recent_scans"`
}
