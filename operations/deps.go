package operations

import (
	"context"
	"math/big"
	"time"

	"finco/conversions/blockchains/evm"
	"finco/conversions/bridge"
	l1common "finco/conversions/common"
	"finco/conversions/gateways"

	ethcommon "github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// Store is the ledger surface the handlers need. Backed by Mongo in the
// service, by fakes in tests.
type Store interface {
	UpsertUser(ctx context.Context, fid, custodyAddress, signerAddress string) (l1common.User, error)
	FindUser(ctx context.Context, fid string) (l1common.User, error)
	SetStripeAccount(ctx context.Context, fid, accountId string) error
	InsertTransaction(ctx context.Context, tx l1common.Transaction) error
	FindTransactionByHash(ctx context.Context, fid, chainTxHash string) (l1common.Transaction, bool, error)
	RecentTransactions(ctx context.Context, fid string, limit int64) ([]l1common.Transaction, error)
	AdvanceStatus(ctx context.Context, bizId, from, to string) (bool, error)
	SetChainTxHash(ctx context.Context, bizId, chainTxHash string) error
	SetTransfer(ctx context.Context, bizId, transferId, status string) (bool, error)
}

// FiatProcessor moves settled value off-platform.
type FiatProcessor interface {
	CreateAccount() (string, error)
	OnboardingLink(accountId string) (string, error)
	Transfer(amountMinor int64, currency, destination, description, idempotencyKey string) (string, error)
}

// SettlementChecker answers whether a submitted hash landed.
type SettlementChecker interface {
	VerifyHash(ctx context.Context, txHash string) (evm.Outcome, error)
}

// QuoteProvider prices a route.
type QuoteProvider interface {
	GetQuote(ctx context.Context, req bridge.QuoteRequest) (bridge.Quote, error)
	CheckRouteSupport(ctx context.Context, originChainId, destinationChainId int64) bool
}

// TokenReader answers ERC20 balance and metadata reads on the origin chain.
type TokenReader interface {
	TokenBalance(ctx context.Context, token, owner ethcommon.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token ethcommon.Address) (uint8, error)
	TokenSymbol(ctx context.Context, token ethcommon.Address) (string, error)
}

// Deps collects every collaborator the handlers touch.
type Deps struct {
	Store         Store
	Fiat          FiatProcessor
	Checker       SettlementChecker
	Quotes        QuoteProvider
	Tokens        TokenReader
	Orchestrator  *evm.Orchestrator
	Permits       *evm.PermitBuilder
	CustodySigner evm.Signer // optional, direct mode only
}

var deps Deps

// SetDeps swaps the collaborator set. Tests use this with fakes.
func SetDeps(d Deps) {
	deps = d
}

// InitDeps wires the production collaborators. Called once from main after
// gateways.Init.
func InitDeps() {
	cfg := l1common.ServiceConfigurations

	chainId := big.NewInt(cfg.Chain.ChainId)
	client := gateways.ChainRPC

	var signer evm.Signer
	if l1common.GloabalENVVars.CustodySignerKey != "" {
		local, err := evm.NewLocalSigner(l1common.GloabalENVVars.CustodySignerKey)
		if err != nil {
			log.Fatal("invalid custody signer key: ", err)
		}
		signer = local
	}

	var sponsor evm.Sponsor
	if l1common.GloabalENVVars.BundlerRPCURL != "" && signer != nil {
		sponsor = gateways.NewBundlerGateway(
			l1common.GloabalENVVars.BundlerRPCURL,
			client,
			signer,
			l1common.GloabalENVVars.PaymasterPolicyID,
			ethcommon.HexToAddress(cfg.Chain.EntryPoint),
			chainId,
			time.Duration(cfg.Chain.ReceiptWaitSeconds)*time.Second,
		)
	}

	redisClient, _, _ := gateways.RedisClient()

	deps = Deps{
		Store:   gateways.Mongo,
		Fiat:    gateways.Stripe,
		Checker: evm.NewVerifier(client),
		Quotes: bridge.NewClient(
			cfg.Bridge.ApiUrl,
			cfg.Bridge.IntegratorId,
			gateways.NewRedisRouteCache(redisClient, time.Duration(cfg.Bridge.RouteCacheTTL)*time.Second),
			gateways.NewRedisQuoteCache(time.Duration(cfg.Bridge.QuoteCacheTTL)*time.Second),
		),
		Tokens: gateways.NewErc20Gateway(client),
		Orchestrator: evm.NewOrchestrator(
			client,
			sponsor,
			chainId,
			cfg.Chain.DepositGasLimit,
			time.Duration(cfg.Chain.ReceiptWaitSeconds)*time.Second,
		),
		Permits:       evm.NewPermitBuilder(client, chainId, time.Duration(cfg.Payout.MinDeadlineWindow)*time.Second),
		CustodySigner: signer,
	}
}
