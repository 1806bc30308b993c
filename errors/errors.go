package errors

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

func BuildErrMsg(errorType string, err error) error {
	return fmt.Errorf("%s : %v", errorType, err)
}

func BuildAndLogErrorMsg(errorType string, err error) error {
	er := BuildErrMsg(errorType, err)
	log.Error(er)
	return er
}

func BuildAndLogErrorMsgWithData(errorType string, err error, args ...interface{}) error {
	log.Error(fmt.Sprintf("Data: %v", args...))
	return BuildAndLogErrorMsg(errorType, err)
}

const (
	MarshallError     = "Error marshalling bytes into structure"
	UnmarshallError   = "Error unmarshalling structure into byte"
	DecodeBodyError   = "Error decoding http request body into structure"
	HexDecodeError    = "Error decoding hex encoded string"
	HttpRequestError  = "Error executing http request"
	ClientError       = "Error creating client"
	ClientUserIdEror  = "Error invalid user id"
	MissingFieldError = "Error missing required field"
	UserNotFoundError = "Error user not found"

	NoRouteAvailableError  = "Error no bridge route available"
	QuoteMalformedError    = "Error bridge quote malformed"
	InvalidQuoteFieldError = "Error invalid quote field"

	SignatureRejectedError = "Error signature rejected by signer"
	NonceReadFailedError   = "Error reading on-chain nonce"
	DeadlineExpiredError   = "Error authorization deadline not in the future"

	TxBuildError           = "Error building transaction"
	CommitTxError          = "Error commiting Tx to Blockchain"
	ConfirmTxError         = "Error waiting for Tx confirmation"
	SponsorshipFailedError = "Error sponsor rejected operation"
	TxRevertedError        = "Error transaction reverted on chain"
	GetBalanceError        = "Error querying balance from Blockchain"
	InsufficientFundsError = "Error insufficient token balance"
	UnitConversionError    = "Error converting value"
	AddressError           = "Error parsing address"

	WriteTxError  = "Error writing Tx to DB"
	ReadTxError   = "Error reading Tx from DB"
	UpdateTxError = "Error update Tx in DB"

	PayoutAccountMissingError = "Stripe account not connected"
	PayoutTransferError       = "Error executing fiat transfer"

	WriteUserError = "Error writing user to DB"
	ReadUserError  = "Error reading user from DB"

	DBConnectionError     = "Error connecting to DB"
	DBInitializationError = "Error initializing DB"
	DBConfigurationError  = "Error configuring DB"
)

func New(message string) error {
	return errors.New(message)
}

// Is reports whether err carries the given error-type prefix.
func Is(err error, errorType string) bool {
	if err == nil {
		return false
	}
	if err.Error() == errorType {
		return true
	}
	return len(err.Error()) > len(errorType) && err.Error()[:len(errorType)] == errorType
}
