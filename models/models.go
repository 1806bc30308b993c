package models

import (
	"finco/conversions/bridge"
	l1common "finco/conversions/common"
)

// UserStatsResponse is the sponsorship budget summary surfaced per user.
type UserStatsResponse struct {
	Fid             string  `json:"fid"`
	CustodyAddress  string  `json:"custodyAddress"`
	DailyGasLimit   float64 `json:"dailyGasLimit"`
	UsedGasToday    float64 `json:"usedGasToday"`
	PayoutConnected bool    `json:"payoutConnected"`
}

// ConnectAccountResponse carries the payout account id and the one-time
// hosted onboarding URL.
type ConnectAccountResponse struct {
	AccountId     string `json:"accountId"`
	OnboardingURL string `json:"onboardingUrl"`
}

// SubmitTradeResponse echoes the created ledger row.
type SubmitTradeResponse struct {
	BizId        string `json:"bizId"`
	Status       string `json:"status"`
	InputAmount  string `json:"inputAmount"`
	FeeAmount    string `json:"feeAmount"`
	OutputAmount string `json:"outputAmount"`
}

// TradeHistoryResponse is the re-verified recent ledger page.
type TradeHistoryResponse struct {
	Transactions []l1common.Transaction `json:"transactions"`
}

// ReconcileResponse reports how many rows an explicit reconciliation pass
// moved to a terminal status.
type ReconcileResponse struct {
	Checked  int `json:"checked"`
	Advanced int `json:"advanced"`
}

// QuoteResponse is a normalized quote plus display metadata for the input
// token, filled in when the chain answers in time.
type QuoteResponse struct {
	bridge.Quote
	InputTokenSymbol   string `json:"inputTokenSymbol,omitempty"`
	InputTokenDecimals uint8  `json:"inputTokenDecimals,omitempty"`
}

// PayoutResponse reports the payout attempt result.
type PayoutResponse struct {
	BizId      string `json:"bizId"`
	Status     string `json:"status"`
	TransferId string `json:"transferId,omitempty"`
}

// ExecuteTradeResponse reports the server-side orchestration result.
type ExecuteTradeResponse struct {
	BizId       string `json:"bizId"`
	Status      string `json:"status"`
	ChainTxHash string `json:"chainTxHash"`
	Outcome     string `json:"outcome"` // settled, reverted or pending
}
