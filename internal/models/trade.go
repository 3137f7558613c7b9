package models

import "time"

// Outcome is the terminal state of a trade.
type Outcome string

const (
	OutcomeWin    Outcome = "WIN"
	OutcomeLoss   Outcome = "LOSS"
	OutcomeFailed Outcome = "FAILED"
)

// TradeRecord represents a settled (or failed) trade on one account.
// It is created once the trade reaches a terminal state and never modified.
type TradeRecord struct {
	ID         string    `json:"id"`
	CycleID    string    `json:"cycle_id,omitempty"`
	Symbol     string    `json:"symbol"`
	Account    string    `json:"account"`
	Role       Role      `json:"role"`
	Direction  Direction `json:"direction"`
	Stake      float64   `json:"stake"`
	ContractID int64     `json:"contract_id,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Profit     float64   `json:"profit"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Won reports whether the trade settled with a positive profit.
func (t TradeRecord) Won() bool {
	return t.Outcome == OutcomeWin
}
