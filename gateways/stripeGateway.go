package gateways

import (
	"fmt"

	l1common "finco/conversions/common"
	"finco/conversions/errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	log "github.com/sirupsen/logrus"
)

// StripeGateway moves settled value into the user's connected fiat account.
// Transfers carry an idempotency key so a retried payout can never pay twice.
type StripeGateway struct {
	api        *client.API
	appBaseURL string
}

func NewStripeGateway(secretKey, appBaseURL string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, appBaseURL: appBaseURL}
}

func StripeConnect() *StripeGateway {
	return NewStripeGateway(l1common.GloabalENVVars.StripeSecretKey, l1common.GloabalENVVars.AppBaseURL)
}

// CreateAccount provisions an express account for payouts.
func (g *StripeGateway) CreateAccount() (string, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}

	account, err := g.api.Accounts.New(params)
	if err != nil {
		return "", errors.BuildAndLogErrorMsg(errors.PayoutTransferError, err)
	}

	log.Info("created payout account ", account.ID)
	return account.ID, nil
}

// OnboardingLink creates a one-time hosted onboarding URL for an account.
func (g *StripeGateway) OnboardingLink(accountId string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountId),
		RefreshURL: stripe.String(g.appBaseURL + "/stripe/refresh"),
		ReturnURL:  stripe.String(g.appBaseURL + "/stripe/return"),
		Type:       stripe.String("account_onboarding"),
	}

	link, err := g.api.AccountLinks.New(params)
	if err != nil {
		return "", errors.BuildAndLogErrorMsg(errors.PayoutTransferError, err)
	}
	return link.URL, nil
}

// Transfer sends amountMinor (smallest currency unit) to a connected account.
// idempotencyKey must be the attempt's business id.
func (g *StripeGateway) Transfer(amountMinor int64, currency, destination, description, idempotencyKey string) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amountMinor),
		Currency:    stripe.String(currency),
		Destination: stripe.String(destination),
		Description: stripe.String(description),
	}
	params.SetIdempotencyKey(idempotencyKey)

	transfer, err := g.api.Transfers.New(params)
	if err != nil {
		return "", errors.BuildAndLogErrorMsg(errors.PayoutTransferError, err)
	}

	log.Info(fmt.Sprintf("transfer %s of %d %s to %s", transfer.ID, amountMinor, currency, destination))
	return transfer.ID, nil
}
