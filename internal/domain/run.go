package domain

import "time"

// RunRecord describes one execution of a backtest.
// RunID is deterministic over strategy, config and data; ExecutionID is unique
// per execution so the same run may be stored more than once.
type RunRecord struct {
	ExecutionID string
	RunID       string
	Strategy    string
	Symbols     []string
	StartedAt   time.Time
	FinishedAt  time.Time
	TicksFed    int64
	Config      []byte // JSON encoded run configuration
}

// SymbolSummary is the per-symbol summary persisted for an execution.
type SymbolSummary struct {
	Symbol     string
	StopReason string
	Summary    Summary
}
