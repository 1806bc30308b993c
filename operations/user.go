package operations

import (
	"fmt"
	"net/http"

	"finco/conversions/common"
	l1common "finco/conversions/common"
	"finco/conversions/errors"
	"finco/conversions/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Login upserts the identity record for a platform user. First login creates
// the row, later logins refresh the wallet addresses.
func Login(c *gin.Context) {
	var input l1common.SyncUserInput

	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", errors.BuildAndLogErrorMsg(errors.DecodeBodyError, err)), c.Writer)
		return
	}

	user, err := deps.Store.UpsertUser(c.Request.Context(), input.Fid, input.CustodyAddress, input.SignerAddress)
	if err != nil {
		common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	common.WriteResponse(http.StatusOK, user, c.Writer)
}

// GetUserStats returns the sponsorship budget and whether a payout account
// is connected.
func GetUserStats(c *gin.Context) {
	fid := c.Param("fid")
	if fid == "" {
		common.WriteErrorResponse(http.StatusBadRequest, errors.MissingFieldError, c.Writer)
		return
	}

	user, err := deps.Store.FindUser(c.Request.Context(), fid)
	if err != nil {
		if errors.Is(err, errors.UserNotFoundError) {
			common.WriteErrorResponse(http.StatusNotFound, fmt.Sprintf("%s", err), c.Writer)
			return
		}
		common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	common.WriteResponse(http.StatusOK, models.UserStatsResponse{
		Fid:             user.Fid,
		CustodyAddress:  user.CustodyAddress,
		DailyGasLimit:   user.DailyGasLimit,
		UsedGasToday:    user.UsedGasToday,
		PayoutConnected: user.StripeAccountID != "",
	}, c.Writer)
}

// ConnectPayoutAccount provisions a fiat payout account for the user when
// missing and returns a fresh onboarding link either way. Calling it twice
// reuses the existing account.
func ConnectPayoutAccount(c *gin.Context) {
	var input struct {
		Fid string `json:"fid" binding:"required"`
	}

	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", errors.BuildAndLogErrorMsg(errors.DecodeBodyError, err)), c.Writer)
		return
	}

	user, err := deps.Store.FindUser(c.Request.Context(), input.Fid)
	if err != nil {
		if errors.Is(err, errors.UserNotFoundError) {
			common.WriteErrorResponse(http.StatusNotFound, fmt.Sprintf("%s", err), c.Writer)
			return
		}
		common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	accountId := user.StripeAccountID
	if accountId == "" {
		accountId, err = deps.Fiat.CreateAccount()
		if err != nil {
			common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
			return
		}
		if err := deps.Store.SetStripeAccount(c.Request.Context(), input.Fid, accountId); err != nil {
			common.WriteErrorResponse(http.StatusInternalServerError, fmt.Sprintf("%s", err), c.Writer)
			return
		}
	}

	link, err := deps.Fiat.OnboardingLink(accountId)
	if err != nil {
		common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	common.WriteResponse(http.StatusOK, models.ConnectAccountResponse{
		AccountId:     accountId,
		OnboardingURL: link,
	}, c.Writer)
}
