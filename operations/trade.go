package operations

import (
	"context"
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

// SubmitTrade records a conversion attempt the client executed on its own.
// The row starts PENDING; settlement and payout advance it later.
func SubmitTrade(c *gin.Context) {
	var input l1common.SubmitTradeInput

	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", errors.BuildAndLogErrorMsg(errors.DecodeBodyError, err)), c.Writer)
		return
	}

	if _, err := deps.Store.FindUser(c.Request.Context(), input.Fid); err != nil {
		if errors.Is(err, errors.UserNotFoundError) {
			common.WriteErrorResponse(http.StatusNotFound, fmt.Sprintf("%s", err), c.Writer)
			return
		}
		common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", errors.BuildAndLogErrorMsg(errors.UnitConversionError, err)), c.Writer)
		return
	}
	fee := amount.Mul(decimal.NewFromFloat(l1common.ServiceConfigurations.Fees.Rate))

	// estimated output stays 0 until settlement corrects it
	output := input.OutputAmount
	if output == "" {
		output = "0"
	}

	now := time.Now().UTC()
	tx := l1common.Transaction{
		BizId:        uuid.New().String(),
		Fid:          input.Fid,
		InputAmount:  amount.String(),
		FeeAmount:    fee.String(),
		OutputAmount: output,
		Status:       l1common.TxPending,
		ChainTxHash:  input.ChainTxHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := deps.Store.InsertTransaction(c.Request.Context(), tx); err != nil {
		common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	common.WriteResponse(http.StatusOK, models.SubmitTradeResponse{
		BizId:        tx.BizId,
		Status:       tx.Status,
		InputAmount:  tx.InputAmount,
		FeeAmount:    tx.FeeAmount,
		OutputAmount: tx.OutputAmount,
	}, c.Writer)
}

// TradeHistory returns the most recent ledger rows for a user, re-verifying
// non-terminal rows against the chain on the way out.
func TradeHistory(c *gin.Context) {
	fid := c.Param("fid")
	if fid == "" {
		common.WriteErrorResponse(http.StatusBadRequest, errors.MissingFieldError, c.Writer)
		return
	}

	rows, err := deps.Store.RecentTransactions(c.Request.Context(), fid, l1common.HistoryLimit)
	if err != nil {
		common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	_, _ = reconcileRows(c.Request.Context(), rows)

	common.WriteResponse(http.StatusOK, models.TradeHistoryResponse{Transactions: rows}, c.Writer)
}

// Reconcile runs the settlement pass explicitly over a user's recent rows.
// Safe to call any number of times: terminal rows are filtered out by the
// conditional updates underneath.
func Reconcile(c *gin.Context) {
	fid := c.Param("fid")
	if fid == "" {
		common.WriteErrorResponse(http.StatusBadRequest, errors.MissingFieldError, c.Writer)
		return
	}

	rows, err := deps.Store.RecentTransactions(c.Request.Context(), fid, l1common.HistoryLimit)
	if err != nil {
		common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	checked, advanced := reconcileRows(c.Request.Context(), rows)

	common.WriteResponse(http.StatusOK, models.ReconcileResponse{Checked: checked, Advanced: advanced}, c.Writer)
}

// reconcileRows re-checks every non-terminal row that carries a chain hash
// and advances the ones whose fate is now known. Rows are updated in place
// so callers can return the refreshed view. Verification errors skip the row;
// ambiguity never fails a read.
func reconcileRows(ctx context.Context, rows []l1common.Transaction) (checked, advanced int) {
	for i := range rows {
		row := &rows[i]
		if l1common.IsTerminalStatus(row.Status) || row.ChainTxHash == "" {
			continue
		}
		checked++

		outcome, err := deps.Checker.VerifyHash(ctx, row.ChainTxHash)
		if err != nil {
			log.Warn("settlement check skipped for ", row.BizId, ": ", err)
			continue
		}

		switch {
		case outcome == evm.OutcomeReverted && l1common.IsPendingStatus(row.Status):
			if ok, err := deps.Store.AdvanceStatus(ctx, row.BizId, row.Status, l1common.TxFailed); err == nil && ok {
				row.Status = l1common.TxFailed
				advanced++
			}
		case outcome == evm.OutcomeSettled && row.Status == l1common.TxProcessing && row.TransferID != "":
			// payout finished but the final write was lost; complete it now
			if ok, err := deps.Store.AdvanceStatus(ctx, row.BizId, l1common.TxProcessing, l1common.TxCompleted); err == nil && ok {
				row.Status = l1common.TxCompleted
				advanced++
			}
		}
	}
	return checked, advanced
}
