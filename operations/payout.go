package operations

import (
	"fmt"
	"net/http"
	"time"

	"finco/conversions/blockchains/evm"
	"finco/conversions/common"
	l1common "finco/conversions/common"
	"finco/conversions/errors"
	"finco/conversions/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CreatePayout verifies the on-chain result independently and, only on a
// settled receipt, moves fiat to the user's connected account. At most one
// processor transfer per attempt: the ledger row transition and the
// processor idempotency key both derive from the same business id.
func CreatePayout(c *gin.Context) {
	var input l1common.CreatePayoutInput

	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", errors.BuildAndLogErrorMsg(errors.DecodeBodyError, err)), c.Writer)
		return
	}
	if input.ChainTxHash == "" {
		common.WriteErrorResponse(http.StatusBadRequest, errors.MissingFieldError, c.Writer)
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
	if user.StripeAccountID == "" {
		common.WriteErrorResponse(http.StatusBadRequest, errors.PayoutAccountMissingError, c.Writer)
		return
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil || !amount.IsPositive() {
		common.WriteErrorResponse(http.StatusBadRequest, errors.UnitConversionError, c.Writer)
		return
	}

	// a completed attempt for the same hash answers the retry without a
	// second transfer
	existing, found, err := deps.Store.FindTransactionByHash(ctx, input.Fid, input.ChainTxHash)
	if err != nil {
		common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
		return
	}
	if found && existing.Status == l1common.TxCompleted {
		common.WriteResponse(http.StatusOK, models.PayoutResponse{
			BizId:      existing.BizId,
			Status:     existing.Status,
			TransferId: existing.TransferID,
		}, c.Writer)
		return
	}
	// a failed attempt never blocks a retry; the retry gets a fresh row and
	// a fresh idempotency key while the failed one stays on record
	if found && existing.Status == l1common.TxFailed {
		found = false
	}

	outcome, err := deps.Checker.VerifyHash(ctx, input.ChainTxHash)
	if err != nil {
		common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
		return
	}
	switch outcome {
	case evm.OutcomePending:
		common.WriteErrorResponse(http.StatusAccepted, errors.ConfirmTxError, c.Writer)
		return
	case evm.OutcomeReverted:
		if found {
			_, _ = deps.Store.AdvanceStatus(ctx, existing.BizId, existing.Status, l1common.TxFailed)
		}
		common.WriteErrorResponse(http.StatusBadRequest, errors.TxRevertedError, c.Writer)
		return
	}

	bizId := existing.BizId
	if found {
		// only the PENDING row may start a transfer; a row already in
		// PROCESSING belongs to a concurrent attempt that got there first
		ok, err := deps.Store.AdvanceStatus(ctx, bizId, l1common.TxPending, l1common.TxProcessing)
		if err != nil {
			common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
			return
		}
		if !ok {
			// lost the race to a concurrent payout; report the row as-is
			common.WriteResponse(http.StatusOK, models.PayoutResponse{BizId: bizId, Status: existing.Status, TransferId: existing.TransferID}, c.Writer)
			return
		}
	} else {
		bizId = uuid.New().String()
		now := time.Now().UTC()
		row := l1common.Transaction{
			BizId:        bizId,
			Fid:          input.Fid,
			InputAmount:  amount.String(),
			FeeAmount:    amount.Mul(decimal.NewFromFloat(l1common.ServiceConfigurations.Fees.Rate)).String(),
			OutputAmount: amount.String(),
			Status:       l1common.TxProcessing,
			ChainTxHash:  input.ChainTxHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := deps.Store.InsertTransaction(ctx, row); err != nil {
			common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
			return
		}
	}

	// smallest currency unit, rounded down so we never overpay
	minor := amount.Mul(decimal.NewFromInt(100)).IntPart()
	currency := l1common.ServiceConfigurations.Payout.Currency
	description := fmt.Sprintf("conversion payout %s", bizId)

	transferId, err := deps.Fiat.Transfer(minor, currency, user.StripeAccountID, description, bizId)
	if err != nil {
		if _, markErr := deps.Store.SetTransfer(ctx, bizId, "", l1common.TxFailed); markErr != nil {
			log.Error("failed to mark payout row FAILED: ", markErr)
		}
		common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	if _, err := deps.Store.SetTransfer(ctx, bizId, transferId, l1common.TxCompleted); err != nil {
		log.Error("transfer ", transferId, " succeeded but final write failed: ", err)
	}

	common.WriteResponse(http.StatusOK, models.PayoutResponse{
		BizId:      bizId,
		Status:     l1common.TxCompleted,
		TransferId: transferId,
	}, c.Writer)
}
