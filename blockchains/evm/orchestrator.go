package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"finco/conversions/bridge"
	l1common "finco/conversions/common"
	"finco/conversions/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"
)

// DepositParams is a quote coerced into the exact shapes the deposit call
// needs. Built only by CoerceQuote.
type DepositParams struct {
	SpokePool           common.Address
	InputToken          common.Address
	OutputToken         common.Address
	InputAmount         *big.Int
	OutputAmount        *big.Int
	DestinationChainId  int64
	ExclusiveRelayer    common.Address
	QuoteTimestamp      uint32
	FillDeadline        uint32
	ExclusivityDeadline uint32
}

// Sponsor submits a batched call list as one gas-sponsored operation for the
// custody account, waits for it to be mined and returns the hash of the
// transaction that carried it.
type Sponsor interface {
	SubmitBatch(ctx context.Context, sender common.Address, calls []Call) (common.Hash, error)
}

// Orchestrator sequences the on-chain calls of one conversion attempt and
// waits for a terminal chain result.
type Orchestrator struct {
	client      ChainClient
	sponsor     Sponsor
	chainId     *big.Int
	gasLimit    uint64
	receiptWait time.Duration
}

func NewOrchestrator(client ChainClient, sponsor Sponsor, chainId *big.Int, gasLimit uint64, receiptWait time.Duration) *Orchestrator {
	return &Orchestrator{
		client:      client,
		sponsor:     sponsor,
		chainId:     chainId,
		gasLimit:    gasLimit,
		receiptWait: receiptWait,
	}
}

// CoerceQuote validates and converts every quote field before anything is
// submitted. Malformed call data must never leave this process: a failure
// here aborts the attempt.
func CoerceQuote(q bridge.Quote) (DepositParams, error) {
	var p DepositParams

	if q.OriginChainId <= 0 || q.DestinationChainId <= 0 {
		return p, errors.BuildAndLogErrorMsg(errors.InvalidQuoteFieldError,
			fmt.Errorf("chain ids %d -> %d", q.OriginChainId, q.DestinationChainId))
	}
	p.DestinationChainId = q.DestinationChainId

	for _, field := range []struct {
		name  string
		value string
		dest  *common.Address
	}{
		{"spokePoolAddress", q.SpokePoolAddress, &p.SpokePool},
		{"inputToken", q.InputToken, &p.InputToken},
		{"outputToken", q.OutputToken, &p.OutputToken},
	} {
		if !common.IsHexAddress(field.value) {
			return p, errors.BuildAndLogErrorMsg(errors.InvalidQuoteFieldError,
				fmt.Errorf("%s %q is not an address", field.name, field.value))
		}
		*field.dest = common.HexToAddress(field.value)
	}

	var ok bool
	p.InputAmount, ok = new(big.Int).SetString(q.InputAmount, 10)
	if !ok || p.InputAmount.Sign() <= 0 {
		return p, errors.BuildAndLogErrorMsg(errors.InvalidQuoteFieldError,
			fmt.Errorf("input amount %q", q.InputAmount))
	}
	p.OutputAmount, ok = new(big.Int).SetString(q.OutputAmount, 10)
	if !ok || p.OutputAmount.Sign() < 0 {
		return p, errors.BuildAndLogErrorMsg(errors.InvalidQuoteFieldError,
			fmt.Errorf("output amount %q", q.OutputAmount))
	}

	p.QuoteTimestamp = q.QuoteTimestamp
	p.FillDeadline = q.FillDeadline
	p.ExclusivityDeadline = q.ExclusivityDeadline

	// A deadline with no relayer is a protocol-level inconsistency the
	// bridge is known to produce; corrected here, never submitted as-is.
	if q.ExclusiveRelayer == "" || q.ExclusiveRelayer == l1common.ZeroAddress {
		p.ExclusiveRelayer = common.Address{}
		if p.ExclusivityDeadline != 0 {
			log.Warnf("exclusivity deadline %d with no exclusive relayer, forcing to zero", p.ExclusivityDeadline)
			p.ExclusivityDeadline = 0
		}
	} else {
		if !common.IsHexAddress(q.ExclusiveRelayer) {
			return p, errors.BuildAndLogErrorMsg(errors.InvalidQuoteFieldError,
				fmt.Errorf("exclusive relayer %q is not an address", q.ExclusiveRelayer))
		}
		p.ExclusiveRelayer = common.HexToAddress(q.ExclusiveRelayer)
	}

	return p, nil
}

// ExecuteBatched submits [permit, pull funds, approve, deposit] as a single
// sponsored operation from the custody account. The ledger row stays PENDING
// when sponsorship is refused.
func (o *Orchestrator) ExecuteBatched(ctx context.Context, custody, owner common.Address, params DepositParams, permit PermitSignature, recipient common.Address) (common.Hash, error) {
	calls := []Call{
		{To: params.InputToken, Value: big.NewInt(0), Data: ERC20PermitCallData(owner, custody, params.InputAmount, permit)},
		{To: params.InputToken, Value: big.NewInt(0), Data: ERC20TransferFromCallData(owner, custody, params.InputAmount)},
		{To: params.InputToken, Value: big.NewInt(0), Data: ERC20ApproveCallData(params.SpokePool, params.InputAmount)},
		{To: params.SpokePool, Value: big.NewInt(0), Data: DepositCallData(params, custody, recipient)},
	}

	// the sponsor reports refusals, timeouts and reverts under their own
	// named errors; callers branch on them
	txHash, err := o.sponsor.SubmitBatch(ctx, custody, calls)
	if err != nil {
		return common.Hash{}, err
	}

	log.Info("sponsored batch mined in tx ", txHash.Hex())
	return txHash, nil
}

// ExecuteDirect submits a single deposit transaction signed by the user's
// own account, which pays its own gas. Funds already sit with the payer, so
// no pull call is needed.
func (o *Orchestrator) ExecuteDirect(ctx context.Context, signer Signer, params DepositParams, recipient common.Address) (common.Hash, error) {
	from := signer.Address()

	nonce, err := o.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, errors.BuildAndLogErrorMsg(errors.NonceReadFailedError, err)
	}

	gasPrice, err := o.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, errors.BuildAndLogErrorMsg(errors.TxBuildError, err)
	}

	callData := DepositCallData(params, from, recipient)
	tx := types.NewTransaction(nonce, params.SpokePool, big.NewInt(0), o.gasLimit, gasPrice, callData)

	signereth := types.NewEIP155Signer(o.chainId)
	sig, err := signer.SignHash(signereth.Hash(tx).Bytes())
	if err != nil {
		return common.Hash{}, errors.BuildAndLogErrorMsg(errors.SignatureRejectedError, err)
	}

	signedTx, err := tx.WithSignature(signereth, sig)
	if err != nil {
		return common.Hash{}, errors.BuildAndLogErrorMsg(errors.SignatureRejectedError, err)
	}

	if err := o.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, errors.BuildAndLogErrorMsg(errors.CommitTxError, err)
	}

	log.Info("deposit submitted, tx hash ", signedTx.Hash().Hex())
	return signedTx.Hash(), nil
}

// WaitForSettlement polls for a terminal receipt until the bounded wait
// elapses. Timing out is not a failure: the caller is told to check back
// later and the ledger row stays pending.
func (o *Orchestrator) WaitForSettlement(ctx context.Context, txHash common.Hash) (Outcome, error) {
	deadline := time.Now().Add(o.receiptWait)
	verifier := NewVerifier(o.client)

	for {
		outcome, err := verifier.Verify(ctx, txHash)
		if err != nil {
			return OutcomePending, err
		}
		if outcome != OutcomePending {
			return outcome, nil
		}

		if time.Now().After(deadline) {
			log.Info("receipt wait elapsed for ", txHash.Hex(), ", still pending")
			return OutcomePending, nil
		}

		select {
		case <-ctx.Done():
			return OutcomePending, ctx.Err()
		case <-time.After(l1common.RetrySleep):
		}
	}
}
