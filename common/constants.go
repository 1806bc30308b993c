package common

import (
	"time"
)

// Receipt poll interval while waiting for settlement
const RetrySleep = 3 * time.Second

// Transaction lifecycle states. Terminal rows are never rewritten.
const (
	TxPending    = "PENDING"
	TxProcessing = "PROCESSING"
	TxCompleted  = "COMPLETED"
	TxFailed     = "FAILED"
)

// Legacy states written by earlier deployments. Accepted on read as
// still-pending, never written back.
const (
	TxInit     = "INIT"
	TxBridging = "BRIDGING"
)

// Execution modes for the on-chain leg of a conversion
const (
	ModeBatched = "batched" // custody account pays gas through a sponsor
	ModeDirect  = "direct"  // signer account pays its own gas
)

// Wallet-selection policy values, ordered preference per session
const (
	WalletEmbedded  = "embedded"
	WalletConnected = "connected"
)

// How many ledger rows a history read returns
const HistoryLimit = 20

// Zero address sentinel used by the bridge for "no exclusive relayer"
const ZeroAddress = "0x0000000000000000000000000000000000000000"

const (
	WorkingEnvironment      = "WORKING_ENVIRONMENT"
	MongoDbConnectionString = "MongoDbConnectionString"
	MongoDatabase           = "MONGODB_DATABASE"
	UsersCollection         = "USERS_COLLECTION"
	TransactionsCollection  = "TRANSACTIONS_COLLECTION"
	GinMode                 = "GIN_MODE"
	RedisHost               = "REDIS_HOST"
	RedisPort               = "REDIS_PORT"
	ChainRPCURL             = "CHAIN_RPC_URL"
	BundlerRPCURL           = "BUNDLER_RPC_URL"
	PaymasterPolicyID       = "PAYMASTER_POLICY_ID"
	StripeSecretKey         = "STRIPE_SECRET_KEY"
	AppBaseURL              = "APP_BASE_URL"
	CustodySignerKey        = "CUSTODY_SIGNER_KEY"
)

// IsTerminalStatus reports whether a ledger status permits no further writes.
func IsTerminalStatus(status string) bool {
	return status == TxCompleted || status == TxFailed
}

// IsPendingStatus reports whether a ledger row is still awaiting settlement,
// including the legacy aliases.
func IsPendingStatus(status string) bool {
	return status == TxPending || status == TxInit || status == TxBridging
}
