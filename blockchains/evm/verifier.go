package evm

import (
	"context"
	stderrors "errors"

	"finco/conversions/errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Outcome of an independent settlement check.
type Outcome int

const (
	OutcomePending Outcome = iota // receipt not found yet, check again later
	OutcomeSettled
	OutcomeReverted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSettled:
		return "settled"
	case OutcomeReverted:
		return "reverted"
	}
	return "pending"
}

// Verifier re-fetches receipts straight from the chain. A caller-supplied
// success flag is never authoritative; payouts gate on this check alone.
//
// TODO: also verify recipient and amount from the transfer event logs before
// payout, not just the receipt status.
type Verifier struct {
	client ChainClient
}

func NewVerifier(client ChainClient) *Verifier {
	return &Verifier{client: client}
}

// Verify returns settled, reverted, or pending. A missing receipt is the
// pending case, not an error: the chain is eventually consistent.
func (v *Verifier) Verify(ctx context.Context, txHash common.Hash) (Outcome, error) {
	receipt, err := v.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if stderrors.Is(err, ethereum.NotFound) {
			return OutcomePending, nil
		}
		return OutcomePending, errors.BuildAndLogErrorMsg(errors.ConfirmTxError, err)
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		return OutcomeSettled, nil
	}
	return OutcomeReverted, nil
}

// VerifyHash is Verify over a hex-encoded hash as stored in the ledger.
func (v *Verifier) VerifyHash(ctx context.Context, txHash string) (Outcome, error) {
	return v.Verify(ctx, common.HexToHash(txHash))
}
