package gateways

import (
	l1common "finco/conversions/common"

	"github.com/ethereum/go-ethereum/ethclient"
)

// MongoDB Client instance
var DB *l1common.Database

// Ledger store over DB
var Mongo *MongoStore

// Stripe Client instance
var Stripe *StripeGateway

// Origin chain RPC Client instance
var ChainRPC *ethclient.Client

// Init connects every external system. Called once from main after the
// environment is loaded; tests construct gateways directly instead.
func Init() {
	DB = ConnectDB()
	Mongo = NewMongoStore(DB)
	Stripe = StripeConnect()
	ChainRPC = ChainRPCClient()
}
