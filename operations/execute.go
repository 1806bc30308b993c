package operations

import (
	"fmt"
	"math/big"
	"net/http"
	"time"

	"finco/conversions/blockchains/evm"
	"finco/conversions/bridge"
	"finco/conversions/common"
	l1common "finco/conversions/common"
	"finco/conversions/errors"
	"finco/conversions/models"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ExecuteTrade drives a full conversion attempt server-side: price the
// route, authorize the pull, submit on-chain, wait for settlement. The
// ledger row is created only once a submittable call list exists; quote and
// authorization failures leave nothing behind.
func ExecuteTrade(c *gin.Context) {
	var input l1common.ExecuteTradeInput

	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", errors.BuildAndLogErrorMsg(errors.DecodeBodyError, err)), c.Writer)
		return
	}

	ctx := c.Request.Context()

	user, err := deps.Store.FindUser(ctx, input.Fid)
	if err != nil {
		if errors.Is(err, errors.UserNotFoundError) {
			common.WriteErrorResponse(http.StatusNotFound, fmt.Sprintf("%s", err), c.Writer)
			return
		}
		common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	amount, ok := new(big.Int).SetString(input.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		common.WriteErrorResponse(http.StatusBadRequest, errors.UnitConversionError, c.Writer)
		return
	}

	mode := resolveMode(input.Mode, user)

	recipient := input.Recipient
	if recipient == "" {
		recipient = user.CustodyAddress
	}
	if !ethcommon.IsHexAddress(recipient) {
		common.WriteErrorResponse(http.StatusBadRequest, errors.AddressError, c.Writer)
		return
	}

	// advisory only; an unsupported answer is logged, never blocking
	if !deps.Quotes.CheckRouteSupport(ctx, input.OriginChainId, input.DestinationChain) {
		log.Warn("route support check negative for ", input.OriginChainId, " -> ", input.DestinationChain)
	}

	quote, err := deps.Quotes.GetQuote(ctx, bridge.QuoteRequest{
		OriginChainId:      input.OriginChainId,
		DestinationChainId: input.DestinationChain,
		InputToken:         input.InputToken,
		OutputToken:        input.OutputToken,
		Amount:             amount,
		Depositor:          user.CustodyAddress,
		Recipient:          recipient,
	})
	if err != nil {
		if errors.Is(err, errors.NoRouteAvailableError) {
			common.WriteErrorResponse(http.StatusNotFound, fmt.Sprintf("%s", err), c.Writer)
			return
		}
		common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	params, err := evm.CoerceQuote(quote)
	if err != nil {
		common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	var txHash ethcommon.Hash
	bizId := uuid.New().String()

	switch mode {
	case l1common.ModeBatched:
		if !ethcommon.IsHexAddress(user.CustodyAddress) {
			common.WriteErrorResponse(http.StatusBadRequest, errors.AddressError+": custody address", c.Writer)
			return
		}
		custody := ethcommon.HexToAddress(user.CustodyAddress)

		permit, owner, err := resolvePermit(c, input, user, custody, params)
		if err != nil {
			common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", err), c.Writer)
			return
		}

		// the permit is worthless if the owner cannot cover the pull; catch
		// that before anything is written or submitted
		if deps.Tokens != nil {
			balance, err := deps.Tokens.TokenBalance(ctx, params.InputToken, owner)
			if err != nil {
				common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
				return
			}
			if balance.Cmp(params.InputAmount) < 0 {
				common.WriteErrorResponse(http.StatusBadRequest,
					fmt.Sprintf("%s: have %s, need %s", errors.InsufficientFundsError, balance, params.InputAmount), c.Writer)
				return
			}
		}

		if err := insertExecutionRow(c, bizId, input, params); err != nil {
			common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
			return
		}

		txHash, err = deps.Orchestrator.ExecuteBatched(ctx, custody, owner, params, permit, ethcommon.HexToAddress(recipient))
		if err != nil {
			if errors.Is(err, errors.TxRevertedError) {
				_, _ = deps.Store.AdvanceStatus(ctx, bizId, l1common.TxPending, l1common.TxFailed)
				common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", err), c.Writer)
				return
			}
			// sponsorship refusal leaves the row PENDING for a later retry
			common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
			return
		}

	case l1common.ModeDirect:
		if deps.CustodySigner == nil {
			common.WriteErrorResponse(http.StatusBadRequest, errors.MissingFieldError+": no signer configured", c.Writer)
			return
		}

		if err := insertExecutionRow(c, bizId, input, params); err != nil {
			common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
			return
		}

		txHash, err = deps.Orchestrator.ExecuteDirect(ctx, deps.CustodySigner, params, ethcommon.HexToAddress(recipient))
		if err != nil {
			_, _ = deps.Store.AdvanceStatus(ctx, bizId, l1common.TxPending, l1common.TxFailed)
			common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
			return
		}

	default:
		common.WriteErrorResponse(http.StatusBadRequest, errors.MissingFieldError+": mode", c.Writer)
		return
	}

	if err := deps.Store.SetChainTxHash(ctx, bizId, txHash.Hex()); err != nil {
		log.Error("submitted ", txHash.Hex(), " but could not record it: ", err)
	}

	outcome, err := deps.Orchestrator.WaitForSettlement(ctx, txHash)
	if err != nil {
		log.Warn("settlement wait aborted for ", txHash.Hex(), ": ", err)
	}

	status := l1common.TxPending
	if outcome == evm.OutcomeReverted {
		if ok, err := deps.Store.AdvanceStatus(ctx, bizId, l1common.TxPending, l1common.TxFailed); err == nil && ok {
			status = l1common.TxFailed
		}
	}

	common.WriteResponse(http.StatusOK, models.ExecuteTradeResponse{
		BizId:       bizId,
		Status:      status,
		ChainTxHash: txHash.Hex(),
		Outcome:     outcome.String(),
	}, c.Writer)
}

// resolveMode honors an explicit request, otherwise walks the configured
// wallet preference order and picks the first mode the user can actually
// drive: the embedded custody wallet runs batched through the sponsor, a
// connected wallet takes the direct path.
func resolveMode(requested string, user l1common.User) string {
	if requested != "" {
		return requested
	}

	for _, wallet := range l1common.ServiceConfigurations.Wallet.Preference {
		switch wallet {
		case l1common.WalletEmbedded:
			if ethcommon.IsHexAddress(user.CustodyAddress) {
				return l1common.ModeBatched
			}
		case l1common.WalletConnected:
			if deps.CustodySigner != nil {
				return l1common.ModeDirect
			}
		}
	}

	return l1common.ModeBatched
}

// resolvePermit uses a client-supplied authorization when present, otherwise
// builds one with the configured signer. Either way the spender is the
// custody account.
func resolvePermit(c *gin.Context, input l1common.ExecuteTradeInput, user l1common.User, custody ethcommon.Address, params evm.DepositParams) (evm.PermitSignature, ethcommon.Address, error) {
	if input.PermitR != "" && input.PermitS != "" {
		if input.PermitDeadlineSec <= time.Now().Unix() {
			return evm.PermitSignature{}, ethcommon.Address{}, errors.New(errors.DeadlineExpiredError)
		}
		if !ethcommon.IsHexAddress(user.SignerAddress) {
			return evm.PermitSignature{}, ethcommon.Address{}, errors.New(errors.AddressError + ": signer address")
		}
		owner := ethcommon.HexToAddress(user.SignerAddress)
		return evm.PermitSignature{
			R:        ethcommon.HexToHash(input.PermitR),
			S:        ethcommon.HexToHash(input.PermitS),
			V:        input.PermitV,
			Deadline: big.NewInt(input.PermitDeadlineSec),
		}, owner, nil
	}

	if deps.CustodySigner == nil || deps.Permits == nil {
		return evm.PermitSignature{}, ethcommon.Address{}, errors.New(errors.MissingFieldError + ": no signer configured")
	}

	permit, err := deps.Permits.Build(c.Request.Context(), params.InputToken, deps.CustodySigner, custody, params.InputAmount, nil)
	if err != nil {
		return evm.PermitSignature{}, ethcommon.Address{}, err
	}
	return permit, deps.CustodySigner.Address(), nil
}

func insertExecutionRow(c *gin.Context, bizId string, input l1common.ExecuteTradeInput, params evm.DepositParams) error {
	now := time.Now().UTC()
	fee := decimal.NewFromBigInt(params.InputAmount, 0).
		Mul(decimal.NewFromFloat(l1common.ServiceConfigurations.Fees.Rate)).
		Floor()
	return deps.Store.InsertTransaction(c.Request.Context(), l1common.Transaction{
		BizId:        bizId,
		Fid:          input.Fid,
		InputAmount:  params.InputAmount.String(),
		FeeAmount:    fee.String(),
		OutputAmount: params.OutputAmount.String(),
		Status:       l1common.TxPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
