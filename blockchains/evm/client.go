package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"finco/conversions/errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ChainClient is the slice of the RPC client this package needs. Satisfied
// by *ethclient.Client.
type ChainClient interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer produces raw 65-byte [R || S || V] signatures over 32-byte digests.
// A declined request surfaces as an error; no retry happens here.
type Signer interface {
	Address() common.Address
	SignHash(digest []byte) ([]byte, error)
}

// LocalSigner signs with a custody-held private key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewLocalSigner(hexKey string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.BuildAndLogErrorMsg(errors.HexDecodeError, err)
	}
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *LocalSigner) Address() common.Address {
	return s.address
}

func (s *LocalSigner) SignHash(digest []byte) ([]byte, error) {
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, errors.BuildAndLogErrorMsg(errors.SignatureRejectedError, err)
	}
	return sig, nil
}
