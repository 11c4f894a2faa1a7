package contracts

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// RoundOperatorRole is keccak256("ROUND_OPERATOR").
var RoundOperatorRole = crypto.Keccak256Hash([]byte("ROUND_OPERATOR"))

var ErrEventNotFound = errors.New("contracts: event not found in receipt logs")

// MetaPtr points at content in a content-addressed store.
type MetaPtr struct {
	Protocol *big.Int
	Pointer  string
}

func NewMetaPtr(pointer string) MetaPtr {
	return MetaPtr{Protocol: big.NewInt(domain.IPFSProtocol), Pointer: pointer}
}

func call(to common.Address, parsed abi.ABI, method string, args ...any) (domain.TransactionParams, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return domain.TransactionParams{}, fmt.Errorf("contracts: pack %s: %w", method, err)
	}
	return domain.TransactionParams{To: to, Data: data, Value: new(big.Int)}, nil
}

// CreateProgram calls ProgramFactory.create with the encoded program init parameters.
func CreateProgram(factory common.Address, meta MetaPtr, admins, operators []common.Address) (domain.TransactionParams, error) {
	encoded, err := abi.Arguments{
		{Type: metaPtrType},
		{Type: addrsType},
		{Type: addrsType},
	}.Pack(meta, nonNil(admins), nonNil(operators))
	if err != nil {
		return domain.TransactionParams{}, fmt.Errorf("contracts: encode program parameters: %w", err)
	}
	return call(factory, ProgramFactoryABI, "create", encoded)
}

type RoundInit struct {
	VotingStrategy  common.Address
	PayoutStrategy  common.Address
	Times           domain.RoundTimes
	MatchAmount     *big.Int
	Token           common.Address
	FeePercentage   uint32
	FeeAddress      common.Address
	RoundMeta       MetaPtr
	ApplicationMeta MetaPtr
	Admins          []common.Address
	Operators       []common.Address
}

// CreateRound calls RoundFactory.create with the encoded round init parameters.
func CreateRound(factory common.Address, init RoundInit, ownedBy common.Address) (domain.TransactionParams, error) {
	encoded, err := abi.Arguments{
		{Type: addressType},
		{Type: addressType},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: addressType},
		{Type: uint32Type},
		{Type: addressType},
		{Type: metaPtrType},
		{Type: metaPtrType},
		{Type: addrsType},
		{Type: addrsType},
	}.Pack(
		init.VotingStrategy,
		init.PayoutStrategy,
		unix(init.Times.ApplicationsStart),
		unix(init.Times.ApplicationsEnd),
		unix(init.Times.RoundStart),
		unix(init.Times.RoundEnd),
		init.MatchAmount,
		init.Token,
		init.FeePercentage,
		init.FeeAddress,
		init.RoundMeta,
		init.ApplicationMeta,
		nonNil(init.Admins),
		nonNil(init.Operators),
	)
	if err != nil {
		return domain.TransactionParams{}, fmt.Errorf("contracts: encode round parameters: %w", err)
	}
	return call(factory, RoundFactoryABI, "create", encoded, ownedBy)
}

// RoundUpdate lists the round fields to change; nil fields are left alone.
type RoundUpdate struct {
	RoundMeta       *MetaPtr
	ApplicationMeta *MetaPtr
	MatchAmount     *big.Int
	FeePercentage   *uint32
	FeeAddress      *common.Address
	Times           *domain.RoundTimes
}

// UpdateRound batches every requested change into a single multicall.
func UpdateRound(round common.Address, u RoundUpdate) (domain.TransactionParams, error) {
	var calls [][]byte
	add := func(method string, args ...any) error {
		data, err := RoundABI.Pack(method, args...)
		if err != nil {
			return fmt.Errorf("contracts: pack %s: %w", method, err)
		}
		calls = append(calls, data)
		return nil
	}

	if u.RoundMeta != nil {
		if err := add("updateRoundMetaPtr", *u.RoundMeta); err != nil {
			return domain.TransactionParams{}, err
		}
	}
	if u.ApplicationMeta != nil {
		if err := add("updateApplicationMetaPtr", *u.ApplicationMeta); err != nil {
			return domain.TransactionParams{}, err
		}
	}
	if u.MatchAmount != nil {
		if err := add("updateMatchAmount", u.MatchAmount); err != nil {
			return domain.TransactionParams{}, err
		}
	}
	if u.FeePercentage != nil {
		if err := add("updateRoundFeePercentage", *u.FeePercentage); err != nil {
			return domain.TransactionParams{}, err
		}
	}
	if u.FeeAddress != nil {
		if err := add("updateRoundFeeAddress", *u.FeeAddress); err != nil {
			return domain.TransactionParams{}, err
		}
	}
	if u.Times != nil {
		err := add("updateStartAndEndTimes",
			unix(u.Times.ApplicationsStart),
			unix(u.Times.ApplicationsEnd),
			unix(u.Times.RoundStart),
			unix(u.Times.RoundEnd),
		)
		if err != nil {
			return domain.TransactionParams{}, err
		}
	}
	if len(calls) == 0 {
		return domain.TransactionParams{}, fmt.Errorf("%w: round update has no changes", domain.ErrInvalidPayload)
	}
	return call(round, RoundABI, "multicall", calls)
}

// UpdateRoles grants and revokes the round operator role in one multicall.
func UpdateRoles(round common.Address, grant, revoke []common.Address) (domain.TransactionParams, error) {
	calls := make([][]byte, 0, len(grant)+len(revoke))
	for _, account := range grant {
		data, err := RoundABI.Pack("grantRole", [32]byte(RoundOperatorRole), account)
		if err != nil {
			return domain.TransactionParams{}, fmt.Errorf("contracts: pack grantRole: %w", err)
		}
		calls = append(calls, data)
	}
	for _, account := range revoke {
		data, err := RoundABI.Pack("revokeRole", [32]byte(RoundOperatorRole), account)
		if err != nil {
			return domain.TransactionParams{}, fmt.Errorf("contracts: pack revokeRole: %w", err)
		}
		calls = append(calls, data)
	}
	return call(round, RoundABI, "multicall", calls)
}

func Approve(token, spender common.Address, amount *big.Int) (domain.TransactionParams, error) {
	return call(token, ERC20ABI, "approve", spender, amount)
}

// Fund deposits amount into the round; native funding attaches the value.
func Fund(round common.Address, amount *big.Int, native bool) (domain.TransactionParams, error) {
	tx, err := call(round, RoundABI, "fund", amount)
	if err != nil {
		return tx, err
	}
	if native {
		tx.Value = new(big.Int).Set(amount)
	}
	return tx, nil
}

func Withdraw(round, token, recipient common.Address) (domain.TransactionParams, error) {
	return call(round, RoundABI, "withdraw", token, recipient)
}

// UpdateDistribution publishes the merkle root and distribution pointer.
func UpdateDistribution(strategy common.Address, root common.Hash, meta MetaPtr) (domain.TransactionParams, error) {
	encoded, err := abi.Arguments{
		{Type: bytes32Type},
		{Type: metaPtrType},
	}.Pack([32]byte(root), meta)
	if err != nil {
		return domain.TransactionParams{}, fmt.Errorf("contracts: encode distribution: %w", err)
	}
	return call(strategy, PayoutStrategyABI, "updateDistribution", encoded)
}

func SetApplicationStatuses(round common.Address, rows []StatusRow) (domain.TransactionParams, error) {
	return call(round, RoundABI, "setApplicationStatuses", rows)
}

// ProgramCreatedAddress extracts the new program contract from a factory receipt.
func ProgramCreatedAddress(logs []*types.Log) (common.Address, error) {
	return firstIndexedAddress(logs, ProgramFactoryABI.Events["ProgramCreated"].ID)
}

// RoundCreatedAddress extracts the new round contract from a factory receipt.
func RoundCreatedAddress(logs []*types.Log) (common.Address, error) {
	return firstIndexedAddress(logs, RoundFactoryABI.Events["RoundCreated"].ID)
}

func firstIndexedAddress(logs []*types.Log, topic common.Hash) (common.Address, error) {
	for _, l := range logs {
		if l == nil || len(l.Topics) < 2 || l.Topics[0] != topic {
			continue
		}
		return common.BytesToAddress(l.Topics[1].Bytes()), nil
	}
	return common.Address{}, ErrEventNotFound
}

func unix(t time.Time) *big.Int {
	return big.NewInt(t.Unix())
}

func nonNil(addrs []common.Address) []common.Address {
	if addrs == nil {
		return []common.Address{}
	}
	return addrs
}
