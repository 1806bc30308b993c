package bridge

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"finco/conversions/errors"

	ethcommon "github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// Deposit contract fallbacks for chains where the collaborator is known to
// omit or mangle the spoke pool field.
var defaultSpokePools = map[int64]string{
	8453:     "0x09aea4b2242abc8bb4bb78d537a67a245a7bec64", // Base
	84532:    "0x82B564983aE7274c86695917BBf8C99ECb6F0F8F", // Base Sepolia
	11155420: "0x4e8E101924eDE233C13e2D8622DC8aED2872d505", // Optimism Sepolia
}

// Normalize turns a raw collaborator payload into a canonical Quote or a
// named parsing error. All shape defensiveness lives here; call sites get a
// typed quote or nothing.
func Normalize(raw map[string]interface{}, req QuoteRequest) (Quote, error) {
	// Newer responses nest the useful fields under a deposit object.
	flat := raw
	if deposit, ok := raw["deposit"].(map[string]interface{}); ok {
		flat = make(map[string]interface{}, len(raw)+len(deposit))
		for k, v := range raw {
			flat[k] = v
		}
		for k, v := range deposit {
			flat[k] = v
		}
	}

	q := Quote{
		OriginChainId:      req.OriginChainId,
		DestinationChainId: req.DestinationChainId,
		InputToken:         req.InputToken,
		OutputToken:        req.OutputToken,
		InputAmount:        req.Amount.String(),
	}

	if in, ok := bigIntField(flat, "inputAmount"); ok {
		q.InputAmount = in.String()
	}

	fee, feeOk := relayFee(flat)
	if feeOk {
		q.TotalRelayFee = fee.String()
	}

	out, err := outputAmount(flat, q.InputAmount, fee, feeOk)
	if err != nil {
		return Quote{}, err
	}
	q.OutputAmount = out.String()

	input, _ := new(big.Int).SetString(q.InputAmount, 10)
	if out.Sign() < 0 || out.Cmp(input) > 0 {
		return Quote{}, errors.BuildAndLogErrorMsg(errors.QuoteMalformedError,
			fmt.Errorf("output amount %s out of range for input %s", out, input))
	}
	// a quote that charges a fee cannot also promise the full input back
	if feeOk && fee.Sign() > 0 && out.Cmp(input) == 0 {
		return Quote{}, errors.BuildAndLogErrorMsg(errors.QuoteMalformedError,
			fmt.Errorf("output amount %s equals input despite relay fee %s", out, fee))
	}

	q.SpokePoolAddress, err = spokePool(flat, req.OriginChainId)
	if err != nil {
		return Quote{}, err
	}

	q.QuoteTimestamp = timestampField(flat)
	q.FillDeadline = uint32Field(flat, "fillDeadline")
	q.ExclusivityDeadline = uint32Field(flat, "exclusivityDeadline")
	q.ExclusiveRelayer = addressField(flat, "exclusiveRelayer")

	return q, nil
}

// outputAmount derives the expected output from the known field names, then
// falls back to input minus the total relay fee.
func outputAmount(flat map[string]interface{}, inputAmount string, fee *big.Int, feeOk bool) (*big.Int, error) {
	for _, key := range []string{"outputAmount", "expectedOutputAmount", "minOutputAmount"} {
		if v, ok := bigIntField(flat, key); ok {
			return v, nil
		}
	}

	if feeOk {
		input, ok := new(big.Int).SetString(inputAmount, 10)
		if ok {
			return new(big.Int).Sub(input, fee), nil
		}
	}

	return nil, errors.BuildAndLogErrorMsg(errors.QuoteMalformedError,
		fmt.Errorf("output amount not derivable from any known field"))
}

// relayFee reads totalRelayFee or totalRelayerFee, either a scalar or an
// object with a total field.
func relayFee(flat map[string]interface{}) (*big.Int, bool) {
	for _, key := range []string{"totalRelayFee", "totalRelayerFee"} {
		v, present := flat[key]
		if !present {
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			if total, ok := bigIntField(nested, "total"); ok {
				return total, true
			}
			continue
		}
		if n, ok := toBigInt(v); ok {
			return n, true
		}
	}
	return nil, false
}

// spokePool accepts a string address, an object carrying one, or falls back
// to the per-chain default table.
func spokePool(flat map[string]interface{}, originChainId int64) (string, error) {
	v := flat["spokePoolAddress"]

	switch addr := v.(type) {
	case string:
		if ethcommon.IsHexAddress(addr) {
			return addr, nil
		}
	case map[string]interface{}:
		for _, key := range []string{"address", "contractAddress"} {
			if s, ok := addr[key].(string); ok && ethcommon.IsHexAddress(s) {
				return s, nil
			}
		}
	}

	if fallback, ok := defaultSpokePools[originChainId]; ok {
		log.Warnf("spoke pool missing or malformed in quote, using default for chain %d", originChainId)
		return fallback, nil
	}

	return "", errors.BuildAndLogErrorMsg(errors.QuoteMalformedError,
		fmt.Errorf("no spoke pool address for chain %d", originChainId))
}

func timestampField(flat map[string]interface{}) uint32 {
	for _, key := range []string{"quoteTimestamp", "timestamp"} {
		if ts := uint32Field(flat, key); ts != 0 {
			return ts
		}
	}
	return uint32(time.Now().Unix())
}

func addressField(flat map[string]interface{}, key string) string {
	if s, ok := flat[key].(string); ok && ethcommon.IsHexAddress(s) {
		return s
	}
	return ""
}

func uint32Field(flat map[string]interface{}, key string) uint32 {
	if v, ok := bigIntField(flat, key); ok && v.Sign() >= 0 && v.IsUint64() {
		return uint32(v.Uint64())
	}
	return 0
}

func bigIntField(m map[string]interface{}, key string) (*big.Int, bool) {
	v, present := m[key]
	if !present {
		return nil, false
	}
	return toBigInt(v)
}

func toBigInt(v interface{}) (*big.Int, bool) {
	switch n := v.(type) {
	case string:
		if n == "" {
			return nil, false
		}
		out, ok := new(big.Int).SetString(n, 10)
		return out, ok
	case float64:
		return new(big.Int).SetInt64(int64(n)), true
	case json.Number:
		out, ok := new(big.Int).SetString(n.String(), 10)
		return out, ok
	}
	return nil, false
}
