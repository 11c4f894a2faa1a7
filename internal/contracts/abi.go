// Package contracts encodes calldata for the program, round, payout
// strategy and token contracts that workflows write to.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const metaPtrComponents = `[{"name":"protocol","type":"uint256"},{"name":"pointer","type":"string"}]`

const programFactoryABI = `[
	{"type":"function","name":"create","stateMutability":"nonpayable","inputs":[{"name":"encodedParameters","type":"bytes"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"ProgramCreated","anonymous":false,"inputs":[
		{"name":"programContractAddress","type":"address","indexed":true},
		{"name":"programImplementation","type":"address","indexed":true}]}
]`

const roundFactoryABI = `[
	{"type":"function","name":"create","stateMutability":"nonpayable","inputs":[{"name":"encodedParameters","type":"bytes"},{"name":"ownedBy","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"RoundCreated","anonymous":false,"inputs":[
		{"name":"roundAddress","type":"address","indexed":true},
		{"name":"ownedBy","type":"address","indexed":true},
		{"name":"roundImplementation","type":"address","indexed":true}]}
]`

const roundABI = `[
	{"type":"function","name":"multicall","stateMutability":"nonpayable","inputs":[{"name":"data","type":"bytes[]"}],"outputs":[{"name":"results","type":"bytes[]"}]},
	{"type":"function","name":"updateRoundMetaPtr","stateMutability":"nonpayable","inputs":[{"name":"newRoundMetaPtr","type":"tuple","components":` + metaPtrComponents + `}],"outputs":[]},
	{"type":"function","name":"updateApplicationMetaPtr","stateMutability":"nonpayable","inputs":[{"name":"newApplicationMetaPtr","type":"tuple","components":` + metaPtrComponents + `}],"outputs":[]},
	{"type":"function","name":"updateMatchAmount","stateMutability":"nonpayable","inputs":[{"name":"newAmount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"updateRoundFeePercentage","stateMutability":"nonpayable","inputs":[{"name":"newFeePercentage","type":"uint32"}],"outputs":[]},
	{"type":"function","name":"updateRoundFeeAddress","stateMutability":"nonpayable","inputs":[{"name":"newFeeAddress","type":"address"}],"outputs":[]},
	{"type":"function","name":"updateStartAndEndTimes","stateMutability":"nonpayable","inputs":[
		{"name":"newApplicationsStartTime","type":"uint256"},
		{"name":"newApplicationsEndTime","type":"uint256"},
		{"name":"newRoundStartTime","type":"uint256"},
		{"name":"newRoundEndTime","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"grantRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"revokeRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"fund","stateMutability":"payable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"tokenAddress","type":"address"},{"name":"recipent","type":"address"}],"outputs":[]},
	{"type":"function","name":"setApplicationStatuses","stateMutability":"nonpayable","inputs":[{"name":"statuses","type":"tuple[]","components":[
		{"name":"index","type":"uint256"},
		{"name":"statusRow","type":"uint256"}]}],"outputs":[]}
]`

const payoutStrategyABI = `[
	{"type":"function","name":"updateDistribution","stateMutability":"nonpayable","inputs":[{"name":"encodedDistribution","type":"bytes"}],"outputs":[]}
]`

const erc20ABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	ProgramFactoryABI = mustParse(programFactoryABI)
	RoundFactoryABI   = mustParse(roundFactoryABI)
	RoundABI          = mustParse(roundABI)
	PayoutStrategyABI = mustParse(payoutStrategyABI)
	ERC20ABI          = mustParse(erc20ABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contracts: invalid abi: " + err.Error())
	}
	return parsed
}

func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic("contracts: invalid type " + t + ": " + err.Error())
	}
	return typ
}

var (
	uint256Type = mustType("uint256", nil)
	uint32Type  = mustType("uint32", nil)
	addressType = mustType("address", nil)
	addrsType   = mustType("address[]", nil)
	bytes32Type = mustType("bytes32", nil)
	metaPtrType = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "protocol", Type: "uint256"},
		{Name: "pointer", Type: "string"},
	})
)
