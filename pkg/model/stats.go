package model

import (
	"sort"
	"time"
)

// AffectedEntity summarises one classified entity within a run.
type AffectedEntity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Kind      AlertKind `json:"kind"`
	Severity  Severity  `json:"severity"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
}

// RunStats is the derived aggregate of one orchestrator invocation.
type RunStats struct {
	Job                string           `json:"job"`
	StartedAt          time.Time        `json:"started_at"`
	FinishedAt         time.Time        `json:"finished_at"`
	Evaluated          int              `json:"evaluated"`
	BySeverity         map[Severity]int `json:"by_severity"`
	Affected           []AffectedEntity `json:"affected"`
	NotFound           []string         `json:"not_found,omitempty"`
	Notified           int              `json:"notified"`
	Suppressed         int              `json:"suppressed"`
	Resolved           int              `json:"resolved"`
	Failed             int              `json:"failed"`
	DeliveryFailures   int              `json:"delivery_failures"`
	BulkNotified       bool             `json:"bulk_notified"`
	OrdersCreated      int              `json:"orders_created"`
	OrdersAutoApproved int              `json:"orders_auto_approved"`
}

// NewRunStats starts an empty aggregate for the given job.
func NewRunStats(job string, now time.Time) *RunStats {
	return &RunStats{
		Job:        job,
		StartedAt:  now,
		BySeverity: make(map[Severity]int),
	}
}

// AddAffected records a classified entity.
func (s *RunStats) AddAffected(e AffectedEntity) {
	s.BySeverity[e.Severity]++
	s.Affected = append(s.Affected, e)
}

// SortAffected orders affected entities by descending severity, then id.
func (s *RunStats) SortAffected() {
	sort.SliceStable(s.Affected, func(i, j int) bool {
		ri, rj := s.Affected[i].Severity.Rank(), s.Affected[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return s.Affected[i].ID < s.Affected[j].ID
	})
}

// HighestSeverity returns the most severe level among affected entities.
func (s *RunStats) HighestSeverity() Severity {
	highest := SeverityNone
	for _, e := range s.Affected {
		if e.Severity.Rank() > highest.Rank() {
			highest = e.Severity
		}
	}
	return highest
}
