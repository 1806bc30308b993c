package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"finco/conversions/errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	log "github.com/sirupsen/logrus"
)

// PermitSignature authorizes a spender to pull tokens from an owner without
// the owner submitting an approval transaction. Single use: replay is
// prevented on-chain by nonce consumption, not here.
type PermitSignature struct {
	R        common.Hash `json:"r"`
	S        common.Hash `json:"s"`
	V        uint8       `json:"v"`
	Deadline *big.Int    `json:"deadline"`
}

// PermitBuilder constructs EIP-2612 typed-data authorizations.
type PermitBuilder struct {
	client            ChainClient
	chainId           *big.Int
	minDeadlineWindow time.Duration
}

func NewPermitBuilder(client ChainClient, chainId *big.Int, minDeadlineWindow time.Duration) *PermitBuilder {
	return &PermitBuilder{
		client:            client,
		chainId:           chainId,
		minDeadlineWindow: minDeadlineWindow,
	}
}

// Build reads the owner's current nonce and the token domain, requests a
// typed-data signature from the signer and splits it. The nonce is read
// immediately before signing; a stale read fails rather than retrying.
func (b *PermitBuilder) Build(ctx context.Context, token common.Address, signer Signer, spender common.Address, value *big.Int, deadline *big.Int) (PermitSignature, error) {
	owner := signer.Address()

	nonce, err := b.readNonce(ctx, token, owner)
	if err != nil {
		return PermitSignature{}, errors.BuildAndLogErrorMsg(errors.NonceReadFailedError, err)
	}

	name, err := b.readString(ctx, token, "name()")
	if err != nil {
		return PermitSignature{}, errors.BuildAndLogErrorMsg(errors.NonceReadFailedError, err)
	}

	// Tokens that omit version() get the common default.
	version, err := b.readString(ctx, token, "version()")
	if err != nil || version == "" {
		log.Warn("could not fetch token version, defaulting to \"1\": ", err)
		version = "1"
	}

	if deadline == nil {
		deadline = big.NewInt(time.Now().Add(time.Hour).Unix())
	}
	minDeadline := time.Now().Add(b.minDeadlineWindow).Unix()
	if deadline.Int64() < minDeadline {
		return PermitSignature{}, errors.BuildAndLogErrorMsg(errors.DeadlineExpiredError,
			fmt.Errorf("deadline %d below minimum %d", deadline.Int64(), minDeadline))
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": []apitypes.Type{
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           version,
			ChainId:           (*math.HexOrDecimal256)(b.chainId),
			VerifyingContract: token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    owner.Hex(),
			"spender":  spender.Hex(),
			"value":    value.String(),
			"nonce":    nonce.String(),
			"deadline": deadline.String(),
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return PermitSignature{}, errors.BuildAndLogErrorMsg(errors.SignatureRejectedError, err)
	}

	sig, err := signer.SignHash(digest)
	if err != nil {
		return PermitSignature{}, errors.BuildAndLogErrorMsg(errors.SignatureRejectedError, err)
	}

	return SplitSignature(sig, deadline)
}

// SplitSignature splits a 65-byte signature into r, s and v, normalizing v
// to 27/28.
func SplitSignature(sig []byte, deadline *big.Int) (PermitSignature, error) {
	if len(sig) != 65 {
		return PermitSignature{}, errors.BuildAndLogErrorMsg(errors.SignatureRejectedError,
			fmt.Errorf("signature length %d, want 65", len(sig)))
	}

	v := sig[64]
	if v < 27 {
		v += 27
	}

	return PermitSignature{
		R:        common.BytesToHash(sig[0:32]),
		S:        common.BytesToHash(sig[32:64]),
		V:        v,
		Deadline: deadline,
	}, nil
}

func (b *PermitBuilder) readNonce(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data := methodID("nonces(address)")
	data = append(data, padAddress(owner)...)

	ret, err := b.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(ret) < 32 {
		return nil, fmt.Errorf("short nonce response: %d bytes", len(ret))
	}
	return new(big.Int).SetBytes(ret[:32]), nil
}

func (b *PermitBuilder) readString(ctx context.Context, token common.Address, signature string) (string, error) {
	ret, err := b.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: methodID(signature)}, nil)
	if err != nil {
		return "", err
	}
	return abiDecodeString(ret), nil
}
