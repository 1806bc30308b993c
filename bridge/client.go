package bridge

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"finco/conversions/errors"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Client talks to the bridge collaborator's HTTP API.
type Client struct {
	http         *resty.Client
	integratorId string
	cache        RouteCache
	quotes       QuoteCache
}

func NewClient(apiUrl, integratorId string, cache RouteCache, quotes QuoteCache) *Client {
	return &Client{
		http:         resty.New().SetBaseURL(apiUrl),
		integratorId: integratorId,
		cache:        cache,
		quotes:       quotes,
	}
}

// CheckRouteSupport asks the collaborator whether a route exists. Advisory
// only: the collaborator under-reports supported routes, so a negative or
// failed answer must never block a quote attempt.
func (c *Client) CheckRouteSupport(ctx context.Context, originChainId, destinationChainId int64) bool {
	key := fmt.Sprintf("%d-%d", originChainId, destinationChainId)
	if c.cache != nil {
		if supported, ok := c.cache.GetRouteSupport(key); ok {
			return supported
		}
	}

	var routes []map[string]interface{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"originChainId":      strconv.FormatInt(originChainId, 10),
			"destinationChainId": strconv.FormatInt(destinationChainId, 10),
		}).
		SetResult(&routes).
		Get("/available-routes")
	if err != nil || !resp.IsSuccess() {
		log.Warn("route support check failed, proceeding with quote attempt: ", err)
		return true
	}

	supported := len(routes) > 0
	if c.cache != nil {
		c.cache.SetRouteSupport(key, supported)
	}
	return supported
}

// GetQuote calls the collaborator once and normalizes whatever shape comes
// back. A repeat of the same request within the cache window is answered
// locally, as long as the cached quote is still fillable. A failed advisory
// pre-check logs a warning only.
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (Quote, error) {
	key := quoteKey(req)
	if c.quotes != nil {
		if q, ok := c.quotes.GetQuote(key); ok && !quoteExpired(q) {
			return q, nil
		}
	}

	if !c.CheckRouteSupport(ctx, req.OriginChainId, req.DestinationChainId) {
		log.Warnf("route %d -> %d reported as unsupported, proceeding anyway",
			req.OriginChainId, req.DestinationChainId)
	}

	var raw map[string]interface{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"originChainId":      strconv.FormatInt(req.OriginChainId, 10),
			"destinationChainId": strconv.FormatInt(req.DestinationChainId, 10),
			"inputToken":         req.InputToken,
			"outputToken":        req.OutputToken,
			"amount":             req.Amount.String(),
			"depositor":          req.Depositor,
			"recipient":          req.Recipient,
			"integratorId":       c.integratorId,
		}).
		SetResult(&raw).
		Get("/swap/quote")
	if err != nil {
		return Quote{}, errors.BuildAndLogErrorMsg(errors.HttpRequestError, err)
	}
	if resp.StatusCode() == 404 {
		return Quote{}, errors.BuildAndLogErrorMsg(errors.NoRouteAvailableError,
			fmt.Errorf("no candidate routes for %d -> %d", req.OriginChainId, req.DestinationChainId))
	}
	if !resp.IsSuccess() {
		return Quote{}, errors.BuildAndLogErrorMsg(errors.HttpRequestError,
			fmt.Errorf("bridge quote failed: %s", resp.Status()))
	}
	if len(raw) == 0 {
		return Quote{}, errors.BuildAndLogErrorMsg(errors.NoRouteAvailableError,
			fmt.Errorf("empty quote response"))
	}

	quote, err := Normalize(raw, req)
	if err == nil && c.quotes != nil {
		c.quotes.SetQuote(key, quote)
	}
	return quote, err
}

func quoteKey(req QuoteRequest) string {
	return fmt.Sprintf("%d-%d:%s:%s:%s",
		req.OriginChainId, req.DestinationChainId, req.InputToken, req.OutputToken, req.Amount)
}

func quoteExpired(q Quote) bool {
	return q.FillDeadline != 0 && int64(q.FillDeadline) <= time.Now().Unix()
}
