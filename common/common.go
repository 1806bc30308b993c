package common

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// User is the identity record synced at login. One custody account, at most
// one externally-owned signer and at most one fiat payout account.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Fid             string             `bson:"fid" json:"fid"`                                   // platform identity key, unique
	CustodyAddress  string             `bson:"custodyAddress" json:"custodyAddress"`             // smart account address
	SignerAddress   string             `bson:"signerAddress,omitempty" json:"signerAddress"`     // externally-owned signer, optional
	StripeAccountID string             `bson:"stripeAccountId,omitempty" json:"stripeAccountId"` // fiat payout account, optional
	DailyGasLimit   float64            `bson:"dailyGasLimit" json:"dailyGasLimit"`               // sponsorship budget per day
	UsedGasToday    float64            `bson:"usedGasToday" json:"usedGasToday"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Transaction is one conversion attempt. Append-only audit trail: rows are
// created and advanced, never deleted, and terminal rows are never rewritten.
type Transaction struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BizId        string             `bson:"bizId" json:"bizId"` // locally generated unique business id
	Fid          string             `bson:"fid" json:"fid"`
	InputAmount  string             `bson:"inputAmount" json:"inputAmount"`   // decimal string, major units
	FeeAmount    string             `bson:"feeAmount" json:"feeAmount"`       // decimal string, major units
	OutputAmount string             `bson:"outputAmount" json:"outputAmount"` // estimated at submit, corrected post-settlement
	Status       string             `bson:"status" json:"status"`
	ChainTxHash  string             `bson:"chainTxHash,omitempty" json:"chainTxHash"` // empty until submitted on-chain
	TransferID   string             `bson:"transferId,omitempty" json:"transferId"`   // empty until payout attempted
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SyncUserInput is the login upsert payload.
type SyncUserInput struct {
	Fid            string `json:"fid" binding:"required"`
	CustodyAddress string `json:"walletAddress" binding:"omitempty,eth_addr"`
	SignerAddress  string `json:"eoaAddress" binding:"omitempty,eth_addr"`
}

// SubmitTradeInput records a conversion attempt executed by the client.
type SubmitTradeInput struct {
	Fid          string `json:"fid" binding:"required"`
	Amount       string `json:"amount" binding:"required,positive_amount"`
	ChainTxHash  string `json:"userOpHash"`
	OutputAmount string `json:"outputAmount" binding:"omitempty,positive_amount"`
}

// CreatePayoutInput triggers verification and a fiat transfer.
type CreatePayoutInput struct {
	Fid         string `json:"fid" binding:"required"`
	Amount      string `json:"amount" binding:"required,positive_amount"`
	ChainTxHash string `json:"txHash"`
}

// ExecuteTradeInput drives the full server-side orchestration.
type ExecuteTradeInput struct {
	Fid               string `json:"fid" binding:"required"`
	Amount            string `json:"amount" binding:"required,positive_amount"` // smallest token unit
	OriginChainId     int64  `json:"originChainId" binding:"required"`
	DestinationChain  int64  `json:"destinationChainId" binding:"required"`
	InputToken        string `json:"inputToken" binding:"required,eth_addr"`
	OutputToken       string `json:"outputToken" binding:"required,eth_addr"`
	Recipient         string `json:"recipient" binding:"omitempty,eth_addr"`
	Mode              string `json:"mode" binding:"omitempty,oneof=batched direct"`
	PermitR           string `json:"permitR"`
	PermitS           string `json:"permitS"`
	PermitV           uint8  `json:"permitV"`
	PermitDeadlineSec int64  `json:"permitDeadline"`
}

type ApiError struct {
	Status bool         `json:"status"`
	Err    ErrorDetails `json:"error"`
}

type ErrorDetails struct {
	Type    string      `json:"type"`
	Message interface{} `json:"message"`
}

type Database struct {
	Users        *mongo.Collection
	Transactions *mongo.Collection
}

type ENVConfigs struct {
	WorkingEnvironment      string
	MongoDbConnectionString string
	MongoDatabase           string
	UsersCollection         string
	TransactionsCollection  string
	GinMode                 string
	RedisHost               string
	RedisPort               string
	ChainRPCURL             string
	BundlerRPCURL           string
	PaymasterPolicyID       string
	StripeSecretKey         string
	AppBaseURL              string
	CustodySignerKey        string
}

// GloabalENVVars is populated once by LoadENVVars in main. Kept as a package
// variable so call sites read like the rest of the service.
var GloabalENVVars *ENVConfigs = &ENVConfigs{}
