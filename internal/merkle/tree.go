// Package merkle builds the payout distribution tree verified on-chain by
// the merkle payout strategy.
//
// Leaves are keccak256(keccak256(abi.encode(uint256 index, address recipient,
// uint256 amount, bytes32 projectId))) and inner nodes hash their children as
// a sorted pair, so proofs verify with the standard MerkleProof.verify.
package merkle

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sort"

	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

var (
	ErrEmptyTree      = errors.New("merkle: no payout records")
	ErrMissingIndex   = errors.New("merkle: payout record has no index")
	ErrDuplicateIndex = errors.New("merkle: duplicate payout index")
	ErrUnknownLeaf    = errors.New("merkle: leaf is not in the tree")
)

// Proof is the ordered list of sibling hashes from a leaf up to the root.
type Proof []common.Hash

var leafArguments = abi.Arguments{
	{Type: mustType("uint256")},
	{Type: mustType("address")},
	{Type: mustType("uint256")},
	{Type: mustType("bytes32")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

func keccak(parts ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return keccak(a[:], b[:])
}

// LeafHash encodes a payout record exactly as the payout strategy does.
func LeafHash(r domain.PayoutRecord) (common.Hash, error) {
	if r.Index == nil {
		return common.Hash{}, fmt.Errorf("%w: project %s", ErrMissingIndex, r.ProjectID)
	}
	if err := r.Validate(); err != nil {
		return common.Hash{}, err
	}
	projectID, err := r.ProjectIDBytes32()
	if err != nil {
		return common.Hash{}, err
	}
	encoded, err := leafArguments.Pack(
		new(big.Int).SetUint64(*r.Index),
		r.RecipientAddress,
		r.AmountInToken,
		projectID,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("merkle: encode leaf %d: %w", *r.Index, err)
	}
	inner := keccak(encoded)
	return keccak(inner[:]), nil
}

// Tree is an array-backed complete binary tree: node i has children 2i+1
// and 2i+2, the root is node 0 and leaves fill the tail of the array.
type Tree struct {
	nodes   []common.Hash
	records []domain.PayoutRecord
	leaves  []common.Hash
	pos     map[common.Hash]int
}

// Build constructs the tree over records ordered by their index. Indexes
// must be present and unique.
func Build(records []domain.PayoutRecord) (*Tree, error) {
	if len(records) == 0 {
		return nil, ErrEmptyTree
	}
	ordered := slices.Clone(records)
	for _, r := range ordered {
		if r.Index == nil {
			return nil, fmt.Errorf("%w: project %s", ErrMissingIndex, r.ProjectID)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return *ordered[i].Index < *ordered[j].Index
	})
	for i := 1; i < len(ordered); i++ {
		if *ordered[i].Index == *ordered[i-1].Index {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateIndex, *ordered[i].Index)
		}
	}

	leaves := make([]common.Hash, len(ordered))
	for i, r := range ordered {
		h, err := LeafHash(r)
		if err != nil {
			return nil, err
		}
		leaves[i] = h
	}

	sortedLeaves := slices.Clone(leaves)
	slices.SortFunc(sortedLeaves, func(a, b common.Hash) int {
		return bytes.Compare(a[:], b[:])
	})

	n := len(sortedLeaves)
	nodes := make([]common.Hash, 2*n-1)
	pos := make(map[common.Hash]int, n)
	for i, leaf := range sortedLeaves {
		p := len(nodes) - 1 - i
		nodes[p] = leaf
		pos[leaf] = p
	}
	for i := len(nodes) - 1 - n; i >= 0; i-- {
		nodes[i] = hashPair(nodes[2*i+1], nodes[2*i+2])
	}

	return &Tree{
		nodes:   nodes,
		records: ordered,
		leaves:  leaves,
		pos:     pos,
	}, nil
}

func (t *Tree) Root() common.Hash {
	return t.nodes[0]
}

func (t *Tree) Len() int {
	return len(t.records)
}

// GetProof returns the sibling path for the record's leaf.
func (t *Tree) GetProof(r domain.PayoutRecord) (Proof, error) {
	leaf, err := LeafHash(r)
	if err != nil {
		return nil, err
	}
	return t.proofForLeaf(leaf)
}

func (t *Tree) proofForLeaf(leaf common.Hash) (Proof, error) {
	i, ok := t.pos[leaf]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeaf, leaf.Hex())
	}
	var proof Proof
	for i > 0 {
		sibling := i - 1
		if i%2 == 1 {
			sibling = i + 1
		}
		proof = append(proof, t.nodes[sibling])
		i = (i - 1) / 2
	}
	return proof, nil
}

// Verify folds proof into leaf and compares the result with root.
func Verify(root, leaf common.Hash, proof Proof) bool {
	computed := leaf
	for _, p := range proof {
		computed = hashPair(computed, p)
	}
	return computed == root
}

// VerifyRecord encodes r and verifies it against root.
func VerifyRecord(root common.Hash, r domain.PayoutRecord, proof Proof) bool {
	leaf, err := LeafHash(r)
	if err != nil {
		return false
	}
	return Verify(root, leaf, proof)
}
