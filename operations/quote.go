package operations

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"finco/conversions/bridge"
	"finco/conversions/common"
	"finco/conversions/errors"
	"finco/conversions/models"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// BridgeQuote resolves and normalizes a bridge quote for a route. Quote
// failures leave no trace: nothing is written to the ledger here.
func BridgeQuote(c *gin.Context) {
	req, err := parseQuoteQuery(c)
	if err != nil {
		common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	ctx := c.Request.Context()

	quote, err := deps.Quotes.GetQuote(ctx, req)
	if err != nil {
		if errors.Is(err, errors.NoRouteAvailableError) {
			common.WriteErrorResponse(http.StatusNotFound, fmt.Sprintf("%s", err), c.Writer)
			return
		}
		common.WriteErrorResponse(http.StatusBadGateway, fmt.Sprintf("%s", err), c.Writer)
		return
	}

	// token metadata is display sugar; a slow or failing read never blocks
	// the quote itself
	resp := models.QuoteResponse{Quote: quote}
	if deps.Tokens != nil && ethcommon.IsHexAddress(quote.InputToken) {
		token := ethcommon.HexToAddress(quote.InputToken)
		if symbol, err := deps.Tokens.TokenSymbol(ctx, token); err == nil {
			resp.InputTokenSymbol = symbol
		}
		if decimals, err := deps.Tokens.TokenDecimals(ctx, token); err == nil {
			resp.InputTokenDecimals = decimals
		}
	}

	common.WriteResponse(http.StatusOK, resp, c.Writer)
}

func parseQuoteQuery(c *gin.Context) (bridge.QuoteRequest, error) {
	var req bridge.QuoteRequest

	origin, err := strconv.ParseInt(c.Query("originChainId"), 10, 64)
	if err != nil || origin <= 0 {
		return req, errors.New(errors.MissingFieldError + ": originChainId")
	}
	destination, err := strconv.ParseInt(c.Query("destinationChainId"), 10, 64)
	if err != nil || destination <= 0 {
		return req, errors.New(errors.MissingFieldError + ": destinationChainId")
	}

	for name, dest := range map[string]*string{
		"inputToken":  &req.InputToken,
		"outputToken": &req.OutputToken,
	} {
		value := c.Query(name)
		if !ethcommon.IsHexAddress(value) {
			return req, errors.New(errors.AddressError + ": " + name)
		}
		*dest = value
	}

	amount, ok := new(big.Int).SetString(c.Query("amount"), 10)
	if !ok || amount.Sign() <= 0 {
		return req, errors.New(errors.MissingFieldError + ": amount")
	}

	req.OriginChainId = origin
	req.DestinationChainId = destination
	req.Amount = amount
	req.Depositor = c.Query("depositor")
	req.Recipient = c.Query("recipient")

	return req, nil
}
