package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"finco/conversions/blockchains/evm"
	l1common "finco/conversions/common"
	"finco/conversions/errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"
)

// Placeholder signature used while requesting sponsorship, before the real
// operation hash exists. Length matters to the gas estimate, content does not.
const dummySignature = "0xfffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffc1c"

type rpcRequest struct {
	JsonRPC string        `json:"jsonrpc"`
	Id      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type userOperation struct {
	Sender               string `json:"sender"`
	Nonce                string `json:"nonce"`
	InitCode             string `json:"initCode"`
	CallData             string `json:"callData"`
	CallGasLimit         string `json:"callGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	PaymasterAndData     string `json:"paymasterAndData"`
	Signature            string `json:"signature"`
}

type sponsorResult struct {
	PaymasterAndData     string `json:"paymasterAndData"`
	CallGasLimit         string `json:"callGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas"`
}

type userOpReceipt struct {
	Success *bool `json:"success"`
	Receipt struct {
		TransactionHash string `json:"transactionHash"`
	} `json:"receipt"`
}

// BundlerGateway submits batched calls as a single sponsored user operation
// through a bundler RPC. The paymaster covers gas under the configured policy,
// so the custody account needs no native balance.
type BundlerGateway struct {
	http        *resty.Client
	client      evm.ChainClient
	signer      evm.Signer
	policyId    string
	entryPoint  common.Address
	chainId     *big.Int
	receiptWait time.Duration
}

func NewBundlerGateway(bundlerURL string, client evm.ChainClient, signer evm.Signer, policyId string, entryPoint common.Address, chainId *big.Int, receiptWait time.Duration) *BundlerGateway {
	return &BundlerGateway{
		http:        resty.New().SetBaseURL(bundlerURL),
		client:      client,
		signer:      signer,
		policyId:    policyId,
		entryPoint:  entryPoint,
		chainId:     chainId,
		receiptWait: receiptWait,
	}
}

// SubmitBatch wraps calls into executeBatch calldata, asks the paymaster to
// sponsor the operation, signs its hash, hands it to the bundler and waits
// for it to be mined. The operation hash is a bundler-side identifier with no
// receipt of its own; the hash returned here is the transaction that carried
// the operation, which is what the ledger and the settlement checks need.
func (g *BundlerGateway) SubmitBatch(ctx context.Context, sender common.Address, calls []evm.Call) (common.Hash, error) {
	nonce, err := g.accountNonce(ctx, sender)
	if err != nil {
		return common.Hash{}, errors.BuildAndLogErrorMsg(errors.NonceReadFailedError, err)
	}

	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, errors.BuildAndLogErrorMsg(errors.TxBuildError, err)
	}

	op := userOperation{
		Sender:               sender.Hex(),
		Nonce:                hexutil.EncodeBig(nonce),
		InitCode:             "0x",
		CallData:             hexutil.Encode(evm.BatchCallData(calls)),
		CallGasLimit:         "0x0",
		VerificationGasLimit: "0x0",
		PreVerificationGas:   "0x0",
		MaxFeePerGas:         hexutil.EncodeBig(gasPrice),
		MaxPriorityFeePerGas: hexutil.EncodeBig(gasPrice),
		PaymasterAndData:     "0x",
		Signature:            dummySignature,
	}

	var sponsorship sponsorResult
	raw, err := g.rpcCall(ctx, "pm_sponsorUserOperation", []interface{}{op, g.entryPoint.Hex(), map[string]string{"policyId": g.policyId}})
	if err != nil {
		return common.Hash{}, err
	}
	if err := json.Unmarshal(raw, &sponsorship); err != nil {
		return common.Hash{}, errors.BuildErrMsg(errors.UnmarshallError, err)
	}

	op.PaymasterAndData = sponsorship.PaymasterAndData
	op.CallGasLimit = sponsorship.CallGasLimit
	op.VerificationGasLimit = sponsorship.VerificationGasLimit
	op.PreVerificationGas = sponsorship.PreVerificationGas

	opHash, err := g.userOpHash(op)
	if err != nil {
		return common.Hash{}, errors.BuildErrMsg(errors.TxBuildError, err)
	}

	sig, err := g.signer.SignHash(accounts.TextHash(opHash.Bytes()))
	if err != nil {
		return common.Hash{}, errors.BuildAndLogErrorMsg(errors.SignatureRejectedError, err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	op.Signature = hexutil.Encode(sig)

	raw, err = g.rpcCall(ctx, "eth_sendUserOperation", []interface{}{op, g.entryPoint.Hex()})
	if err != nil {
		return common.Hash{}, err
	}

	var submitted string
	if err := json.Unmarshal(raw, &submitted); err != nil {
		return common.Hash{}, errors.BuildErrMsg(errors.UnmarshallError, err)
	}

	log.Info("bundler accepted user operation ", submitted)
	return g.waitForOperationReceipt(ctx, submitted)
}

// waitForOperationReceipt polls the bundler until the operation lands in a
// block, then extracts the containing transaction hash from its receipt.
func (g *BundlerGateway) waitForOperationReceipt(ctx context.Context, opHash string) (common.Hash, error) {
	deadline := time.Now().Add(g.receiptWait)

	for {
		raw, err := g.rpcCall(ctx, "eth_getUserOperationReceipt", []interface{}{opHash})
		if err != nil {
			log.Warn("operation receipt poll failed for ", opHash, ": ", err)
		} else if len(raw) > 0 && string(raw) != "null" {
			var receipt userOpReceipt
			if err := json.Unmarshal(raw, &receipt); err != nil {
				return common.Hash{}, errors.BuildErrMsg(errors.UnmarshallError, err)
			}
			if receipt.Receipt.TransactionHash == "" {
				return common.Hash{}, errors.BuildAndLogErrorMsg(errors.ConfirmTxError,
					fmt.Errorf("operation receipt for %s carries no transaction hash", opHash))
			}
			if receipt.Success != nil && !*receipt.Success {
				return common.Hash{}, errors.BuildAndLogErrorMsg(errors.TxRevertedError,
					fmt.Errorf("user operation %s reverted in tx %s", opHash, receipt.Receipt.TransactionHash))
			}
			log.Info("user operation ", opHash, " mined in tx ", receipt.Receipt.TransactionHash)
			return common.HexToHash(receipt.Receipt.TransactionHash), nil
		}

		if time.Now().After(deadline) {
			return common.Hash{}, errors.BuildAndLogErrorMsg(errors.ConfirmTxError,
				fmt.Errorf("user operation %s not mined within %s", opHash, g.receiptWait))
		}

		select {
		case <-ctx.Done():
			return common.Hash{}, errors.BuildErrMsg(errors.ConfirmTxError, ctx.Err())
		case <-time.After(l1common.RetrySleep):
		}
	}
}

// accountNonce reads the 4337 nonce from the entry point, not the account.
func (g *BundlerGateway) accountNonce(ctx context.Context, sender common.Address) (*big.Int, error) {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte("getNonce(address,uint192)"))
	data := hash.Sum(nil)[:4]
	data = append(data, common.LeftPadBytes(sender.Bytes(), 32)...)
	data = append(data, make([]byte, 32)...)

	ret, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &g.entryPoint, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(ret) < 32 {
		return nil, fmt.Errorf("short nonce response: %d bytes", len(ret))
	}
	return new(big.Int).SetBytes(ret[:32]), nil
}

// userOpHash computes keccak(keccak(packed op), entryPoint, chainId) per the
// v0.6 entry point.
func (g *BundlerGateway) userOpHash(op userOperation) (common.Hash, error) {
	var packed []byte

	sender := common.HexToAddress(op.Sender)
	packed = append(packed, common.LeftPadBytes(sender.Bytes(), 32)...)

	for _, field := range []string{op.Nonce, op.CallGasLimit, op.VerificationGasLimit, op.PreVerificationGas, op.MaxFeePerGas, op.MaxPriorityFeePerGas} {
		v, err := hexutil.DecodeBig(field)
		if err != nil {
			return common.Hash{}, fmt.Errorf("bad numeric field %q: %w", field, err)
		}
		packed = append(packed, common.LeftPadBytes(v.Bytes(), 32)...)
	}

	// insert the byte-field hashes at their positions: initCode and callData
	// after nonce, paymasterAndData last
	initCode, err := hexutil.Decode(op.InitCode)
	if err != nil {
		return common.Hash{}, err
	}
	callData, err := hexutil.Decode(op.CallData)
	if err != nil {
		return common.Hash{}, err
	}
	paymasterAndData, err := hexutil.Decode(op.PaymasterAndData)
	if err != nil {
		return common.Hash{}, err
	}

	ordered := make([]byte, 0, 10*32)
	ordered = append(ordered, packed[0:64]...) // sender, nonce
	ordered = append(ordered, keccak(initCode)...)
	ordered = append(ordered, keccak(callData)...)
	ordered = append(ordered, packed[64:7*32]...) // gas fields
	ordered = append(ordered, keccak(paymasterAndData)...)

	outer := keccak(ordered)
	outer = append(outer, common.LeftPadBytes(g.entryPoint.Bytes(), 32)...)
	outer = append(outer, common.LeftPadBytes(g.chainId.Bytes(), 32)...)

	return common.BytesToHash(keccak(outer)), nil
}

func keccak(data []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	return hash.Sum(nil)
}

func (g *BundlerGateway) rpcCall(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	var response rpcResponse

	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rpcRequest{JsonRPC: "2.0", Id: 1, Method: method, Params: params}).
		SetResult(&response).
		Post("")
	if err != nil {
		return nil, errors.BuildAndLogErrorMsg(errors.SponsorshipFailedError, err)
	}
	if resp.IsError() {
		return nil, errors.BuildAndLogErrorMsg(errors.SponsorshipFailedError,
			fmt.Errorf("%s returned status %d", method, resp.StatusCode()))
	}
	if response.Error != nil {
		return nil, errors.BuildAndLogErrorMsg(errors.SponsorshipFailedError,
			fmt.Errorf("%s: %s (code %d)", method, response.Error.Message, response.Error.Code))
	}

	return response.Result, nil
}
