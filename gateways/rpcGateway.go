package gateways

import (
	"context"
	"math/big"

	l1common "finco/conversions/common"
	"finco/conversions/errors"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/metachris/eth-go-bindings/erc20"
	log "github.com/sirupsen/logrus"
)

// ChainRPCClient common client for transactions being submitted on the
// origin chain. This covers the native asset and ERC20 tokens.
func ChainRPCClient() *ethclient.Client {
	client, err := ethclient.Dial(l1common.GloabalENVVars.ChainRPCURL)
	if err != nil {
		log.Fatal(err)
	}

	return client
}

// Erc20Gateway reads token balances and display metadata through the
// generated contract bindings.
type Erc20Gateway struct {
	client *ethclient.Client
}

func NewErc20Gateway(client *ethclient.Client) *Erc20Gateway {
	return &Erc20Gateway{client: client}
}

// TokenBalance reads an owner's ERC20 balance in the token's smallest unit.
func (g *Erc20Gateway) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	contract, err := erc20.NewErc20(token, g.client)
	if err != nil {
		return nil, errors.BuildAndLogErrorMsg(errors.GetBalanceError, err)
	}

	balance, err := contract.BalanceOf(&bind.CallOpts{Context: ctx}, owner)
	if err != nil {
		return nil, errors.BuildAndLogErrorMsg(errors.GetBalanceError, err)
	}

	return balance, nil
}

// TokenDecimals reads the decimals of an ERC20 token contract.
func (g *Erc20Gateway) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	contract, err := erc20.NewErc20(token, g.client)
	if err != nil {
		return 0, err
	}

	return contract.Decimals(&bind.CallOpts{Context: ctx})
}

// TokenSymbol reads an ERC20 token's display symbol.
func (g *Erc20Gateway) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	contract, err := erc20.NewErc20(token, g.client)
	if err != nil {
		return "", err
	}

	return contract.Symbol(&bind.CallOpts{Context: ctx})
}
