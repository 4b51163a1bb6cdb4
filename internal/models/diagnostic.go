package models

import "time"

// DiagnosticKind classifies a non-fatal condition recorded during a run
type DiagnosticKind string

const (
	DiagMissingPrice     DiagnosticKind = "missing_price"
	DiagInsufficientData DiagnosticKind = "insufficient_data"
	DiagFilterReset      DiagnosticKind = "filter_reset"
	DiagNotCointegrated  DiagnosticKind = "not_cointegrated"
	DiagBreakdown        DiagnosticKind = "cointegration_breakdown"
	DiagEntryRejected    DiagnosticKind = "entry_rejected"
	DiagKillSwitch       DiagnosticKind = "kill_switch"
)

// DiagnosticEvent is a data-quality or risk event kept for post-run review
type DiagnosticEvent struct {
	Time   time.Time      `json:"time"`
	PairID string         `json:"pair_id,omitempty"`
	Kind   DiagnosticKind `json:"kind"`
	Detail string         `json:"detail"`
}
