package bridge

import (
	"math/big"
)

// QuoteRequest describes the route the caller wants priced.
type QuoteRequest struct {
	OriginChainId      int64    `json:"originChainId"`
	DestinationChainId int64    `json:"destinationChainId"`
	InputToken         string   `json:"inputToken"`
	OutputToken        string   `json:"outputToken"`
	Amount             *big.Int `json:"amount"` // smallest token unit
	Depositor          string   `json:"depositor"`
	Recipient          string   `json:"recipient"`
}

// Quote is the canonical normalized form of a bridge collaborator response.
// The collaborator is not contractually stable about field names or nesting;
// nothing outside Normalize should ever look at the raw payload.
type Quote struct {
	OriginChainId       int64  `json:"originChainId"`
	DestinationChainId  int64  `json:"destinationChainId"`
	InputToken          string `json:"inputToken"`
	OutputToken         string `json:"outputToken"`
	InputAmount         string `json:"inputAmount"`  // smallest unit
	OutputAmount        string `json:"outputAmount"` // smallest unit, after fees
	TotalRelayFee       string `json:"totalRelayFee"`
	SpokePoolAddress    string `json:"spokePoolAddress"`
	QuoteTimestamp      uint32 `json:"timestamp"`
	FillDeadline        uint32 `json:"fillDeadline"`
	ExclusivityDeadline uint32 `json:"exclusivityDeadline"`
	ExclusiveRelayer    string `json:"exclusiveRelayer"`
}

// RouteCache stores advisory route-support answers. The check is best-effort
// only, so cache misses and cache failures are both fine.
type RouteCache interface {
	GetRouteSupport(key string) (bool, bool)
	SetRouteSupport(key string, supported bool)
}

// QuoteCache keeps normalized quotes for a short window so a burst of
// identical requests costs one upstream call. Entries must expire well
// before a quote's fill deadline; the client re-checks the deadline on every
// hit regardless.
type QuoteCache interface {
	GetQuote(key string) (Quote, bool)
	SetQuote(key string, q Quote)
}
