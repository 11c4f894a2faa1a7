package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type TransactionParams struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Receipt is what the chain writer returns once a transaction is mined.
type Receipt struct {
	BlockNumber uint64
	TxHash      common.Hash
	Logs        []*types.Log
}

// Outcome summarises a successful run.
type Outcome struct {
	TxHash          common.Hash       `json:"txHash"`
	BlockNumber     uint64            `json:"blockNumber"`
	ContractAddress *common.Address   `json:"contractAddress,omitempty"`
	Pointers        map[string]string `json:"pointers,omitempty"`
	MerkleRoot      *common.Hash      `json:"merkleRoot,omitempty"`
}
