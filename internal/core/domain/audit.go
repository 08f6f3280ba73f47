package domain

import "time"

// Audit listing limits.
const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 1000
)

// AuditRecord is the per-request compliance record.
// Records are append-only and never hold the raw query or answer.
type AuditRecord struct {
	ID                 string        `json:"id"`
	SessionID          string        `json:"session_id"`
	MessageID          string        `json:"message_id"`
	Timestamp          time.Time     `json:"timestamp"`
	InputLength        int           `json:"input_length"`
	OutputLength       int           `json:"output_length"`
	ViolationsCount    int           `json:"violations_count"`
	ViolationTypes     []string      `json:"violation_types"`
	RiskLevel          RiskLevel     `json:"risk_level"`
	PIIDetected        bool          `json:"pii_detected"`
	InjectionAttempted bool          `json:"injection_attempted"`
	TimedOut           bool          `json:"timed_out"`
	ProcessingTime     time.Duration `json:"processing_time"`
}

// AuditFilter narrows an audit listing.
type AuditFilter struct {
	// SessionID restricts to one session when set.
	SessionID string

	// MinRisk restricts to records at or above the level when set.
	MinRisk *RiskLevel

	// Since restricts to records at or after the time when non-zero.
	Since time.Time

	// Limit bounds the number of records returned.
	Limit int
}

// Normalize applies the default and maximum limit.
func (f AuditFilter) Normalize() AuditFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultAuditLimit
	case f.Limit > MaxAuditLimit:
		f.Limit = MaxAuditLimit
	}
	return f
}

// Matches reports whether the record passes the filter.
func (f AuditFilter) Matches(r AuditRecord) bool {
	if f.SessionID != "" && r.SessionID != f.SessionID {
		return false
	}
	if f.MinRisk != nil && r.RiskLevel < *f.MinRisk {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// AuditStats aggregates audit records.
type AuditStats struct {
	TotalRequests      int               `json:"total_requests"`
	ByRiskLevel        map[RiskLevel]int `json:"-"`
	PIIDetected        int               `json:"pii_detected"`
	InjectionAttempted int               `json:"injection_attempted"`
	TimedOut           int               `json:"timed_out"`
	TotalViolations    int               `json:"total_violations"`
}

// NewAuditStats returns empty stats with every risk level present.
func NewAuditStats() AuditStats {
	return AuditStats{
		ByRiskLevel: map[RiskLevel]int{
			RiskLow:      0,
			RiskMedium:   0,
			RiskHigh:     0,
			RiskCritical: 0,
		},
	}
}

// Add folds a record into the stats.
func (s *AuditStats) Add(r AuditRecord) {
	s.TotalRequests++
	s.ByRiskLevel[r.RiskLevel]++
	s.TotalViolations += r.ViolationsCount
	if r.PIIDetected {
		s.PIIDetected++
	}
	if r.InjectionAttempted {
		s.InjectionAttempted++
	}
	if r.TimedOut {
		s.TimedOut++
	}
}
