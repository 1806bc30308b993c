package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Call is one element of an execution unit: a target, optional value and
// encoded calldata.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

func methodID(signature string) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(signature))
	return hash.Sum(nil)[:4]
}

func padAddress(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

func padBigInt(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func padUint64(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32)
}

// ERC20PermitCallData encodes permit(owner,spender,value,deadline,v,r,s).
func ERC20PermitCallData(owner, spender common.Address, value *big.Int, sig PermitSignature) []byte {
	data := methodID("permit(address,address,uint256,uint256,uint8,bytes32,bytes32)")
	data = append(data, padAddress(owner)...)
	data = append(data, padAddress(spender)...)
	data = append(data, padBigInt(value)...)
	data = append(data, padBigInt(sig.Deadline)...)
	data = append(data, padUint64(uint64(sig.V))...)
	data = append(data, sig.R.Bytes()...)
	data = append(data, sig.S.Bytes()...)
	return data
}

// ERC20TransferFromCallData encodes transferFrom(from,to,value).
func ERC20TransferFromCallData(from, to common.Address, value *big.Int) []byte {
	data := methodID("transferFrom(address,address,uint256)")
	data = append(data, padAddress(from)...)
	data = append(data, padAddress(to)...)
	data = append(data, padBigInt(value)...)
	return data
}

// ERC20ApproveCallData encodes approve(spender,value).
func ERC20ApproveCallData(spender common.Address, value *big.Int) []byte {
	data := methodID("approve(address,uint256)")
	data = append(data, padAddress(spender)...)
	data = append(data, padBigInt(value)...)
	return data
}

// DepositCallData encodes the spoke pool's depositV3 call with an empty
// message payload.
func DepositCallData(p DepositParams, depositor, recipient common.Address) []byte {
	data := methodID("depositV3(address,address,address,address,uint256,uint256,uint256,address,uint32,uint32,uint32,bytes)")
	data = append(data, padAddress(depositor)...)
	data = append(data, padAddress(recipient)...)
	data = append(data, padAddress(p.InputToken)...)
	data = append(data, padAddress(p.OutputToken)...)
	data = append(data, padBigInt(p.InputAmount)...)
	data = append(data, padBigInt(p.OutputAmount)...)
	data = append(data, padBigInt(new(big.Int).SetInt64(p.DestinationChainId))...)
	data = append(data, padAddress(p.ExclusiveRelayer)...)
	data = append(data, padUint64(uint64(p.QuoteTimestamp))...)
	data = append(data, padUint64(uint64(p.FillDeadline))...)
	data = append(data, padUint64(uint64(p.ExclusivityDeadline))...)
	// dynamic bytes message: offset to tail, then zero length
	data = append(data, padUint64(12*32)...)
	data = append(data, padUint64(0)...)
	return data
}

// BatchCallData encodes the custody account's executeBatch(address[],bytes[])
// over an ordered call list.
func BatchCallData(calls []Call) []byte {
	data := methodID("executeBatch(address[],bytes[])")

	// head: offsets of the two dynamic arrays
	addrArrayOffset := uint64(2 * 32)
	addrArrayLen := uint64(32 * (1 + len(calls)))
	dataArrayOffset := addrArrayOffset + addrArrayLen

	data = append(data, padUint64(addrArrayOffset)...)
	data = append(data, padUint64(dataArrayOffset)...)

	data = append(data, padUint64(uint64(len(calls)))...)
	for _, call := range calls {
		data = append(data, padAddress(call.To)...)
	}

	data = append(data, padUint64(uint64(len(calls)))...)
	var tail []byte
	elementOffset := uint64(32 * len(calls))
	for _, call := range calls {
		data = append(data, padUint64(elementOffset)...)
		element := padUint64(uint64(len(call.Data)))
		element = append(element, call.Data...)
		if pad := len(call.Data) % 32; pad != 0 {
			element = append(element, make([]byte, 32-pad)...)
		}
		tail = append(tail, element...)
		elementOffset += uint64(len(element))
	}
	data = append(data, tail...)

	return data
}

// abiDecodeString decodes a single dynamic string return value.
func abiDecodeString(ret []byte) string {
	if len(ret) < 64 {
		return ""
	}
	strLen := new(big.Int).SetBytes(ret[32:64]).Uint64()
	if uint64(len(ret)) < 64+strLen {
		return ""
	}
	return string(ret[64 : 64+strLen])
}
