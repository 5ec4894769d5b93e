package models

import "time"

// InputKind is the kind of input a scan was requested for.
type InputKind string

const (
	InputURL  InputKind = "url"
	InputFile InputKind = "file"
	InputHash InputKind = "hash"
)

// ScanStatus is the verdict of a scan.
type ScanStatus string

const (
	StatusSafe       ScanStatus = "SAFE"
	StatusSuspicious ScanStatus = "SUSPICIOUS"
	StatusMalicious  ScanStatus = "MALICIOUS"
)

// Severity orders statuses: a higher value is never safer.
func (s ScanStatus) Severity() int {
	switch s {
	case StatusMalicious:
		return 2
	case StatusSuspicious:
		return 1
	default:
		return 0
	}
}

// ScanRecord is a persisted scan verdict. Records are write-once.
type ScanRecord struct {
	ID        string     `db:"id"`
	Seq       int64      `db:"seq"`
	InputKind InputKind  `db:"input_kind"`
	ScanKey   string     `db:"scan_key"`
	Status    ScanStatus `db:"status"`
	Score     int        `db:"score"`
	Summary   string     `db:"summary"`
	Reasons   StringList `db:"reasons"`
	CreatedAt time.Time  `db:"created_at"`
}

// ScanResponse is the public shape of a scan.
type ScanResponse struct {
	ScanID    string     `json:"scan_id"`
	Status    ScanStatus `json:"status"`
	Score     int        `json:"score"`
	Summary   string     `json:"summary"`
	Reasons   []string   `json:"reasons"`
	CreatedAt time.Time  `json:"created_at"`
}

func (r *ScanRecord) Response() ScanResponse {
	reasons := []string(r.Reasons)
	if reasons == nil {
		reasons = []string{}
	}
	return ScanResponse{
		ScanID:    r.ID,
		Status:    r.Status,
		Score:     r.Score,
		Summary:   r.Summary,
		Reasons:   reasons,
		CreatedAt: r.CreatedAt,
	}
}

// ScanURLRequest is the body of POST /api/v1/scan/url.
type ScanURLRequest struct {
	URL string `json:"url"`
}

// ScanHashRequest is the body of POST /api/v1/scan/hash.
type ScanHashRequest struct {
	Hash string `json:"hash"`
}
