package routes

import (
	"finco/conversions/operations"

	"github.com/gin-gonic/gin"
)

func RouteHandler(routeEngine *gin.Engine) {

	router := routeEngine.Group("/api")

	//login syncs the platform identity with its wallet addresses.
	// creates the user on first call, updates addresses after
	router.POST("/auth/login", HandlerWrap(operations.Login))

	//stats returns the sponsorship budget and payout-account state for a user
	router.GET("/user/stats/:fid", HandleAsUserParam(operations.GetUserStats))

	//stripe connect provisions the fiat payout account when missing and
	// returns a fresh onboarding link
	router.POST("/user/stripe/connect", HandleAsUserRequest(operations.ConnectPayoutAccount))

	//submit records a conversion attempt executed client-side as a PENDING
	// ledger row
	router.POST("/trade/submit", HandleAsUserRequest(operations.SubmitTrade))

	//history returns the recent ledger rows, re-verified against the chain
	router.GET("/trade/history/:fid", HandleAsUserParam(operations.TradeHistory))

	//reconcile runs the settlement pass explicitly; idempotent
	router.POST("/trade/reconcile/:fid", HandleAsUserParam(operations.Reconcile))

	//execute drives the full conversion server-side:
	// quote -> authorization -> on-chain submission -> settlement wait
	router.POST("/trade/execute", HandleAsUserRequest(operations.ExecuteTrade))

	//payout verifies the on-chain result and transfers fiat to the
	// connected account, at most once per attempt
	router.POST("/payout/create", HandleAsUserRequest(operations.CreatePayout))

	//quote resolves and normalizes a bridge quote for a route
	router.GET("/quote", HandlerWrap(operations.BridgeQuote))
}
