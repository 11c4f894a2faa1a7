package merkle

import (
	"fmt"

	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// AssignIndexes returns a copy of records where every record without an
// index gets the next free one after the current maximum, in slice order.
// Records that already carry an index keep it.
func AssignIndexes(records []domain.PayoutRecord) ([]domain.PayoutRecord, error) {
	out := make([]domain.PayoutRecord, len(records))
	seen := make(map[uint64]struct{}, len(records))
	var next uint64
	for i, r := range records {
		out[i] = r
		if r.Index == nil {
			continue
		}
		if _, dup := seen[*r.Index]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateIndex, *r.Index)
		}
		seen[*r.Index] = struct{}{}
		if *r.Index >= next {
			next = *r.Index + 1
		}
	}
	for i := range out {
		if out[i].Index != nil {
			continue
		}
		idx := next
		out[i].Index = &idx
		next++
	}
	return out, nil
}

type DistributionEntry struct {
	domain.PayoutRecord
	MerkleProof Proof `json:"merkleProof"`
}

// Distribution is the document pinned to the content store when a round
// is finalized.
type Distribution struct {
	MerkleRoot           common.Hash         `json:"merkleRoot"`
	MatchingDistribution []DistributionEntry `json:"matchingDistribution"`
}

// BuildDistribution assigns missing indexes, builds the tree and attaches a
// proof to every entry.
func BuildDistribution(records []domain.PayoutRecord) (*Distribution, *Tree, error) {
	indexed, err := AssignIndexes(records)
	if err != nil {
		return nil, nil, err
	}
	tree, err := Build(indexed)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]DistributionEntry, 0, tree.Len())
	for i, r := range tree.records {
		proof, err := tree.proofForLeaf(tree.leaves[i])
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, DistributionEntry{PayoutRecord: r, MerkleProof: proof})
	}
	return &Distribution{
		MerkleRoot:           tree.Root(),
		MatchingDistribution: entries,
	}, tree, nil
}

// Classify splits the distribution into paid and unpaid records using the
// payouts the indexer reports as executed. Both results keep the order of
// distribution.
func Classify(distribution []domain.PayoutRecord, executed []domain.PaidPayout) (paid, unpaid []domain.ClassifiedPayout) {
	txByProject := make(map[string]string, len(executed))
	for _, p := range executed {
		if _, ok := txByProject[p.ProjectID]; !ok {
			txByProject[p.ProjectID] = p.TxHash
		}
	}

	paid = []domain.ClassifiedPayout{}
	unpaid = []domain.ClassifiedPayout{}
	for _, r := range distribution {
		if tx, ok := txByProject[r.ProjectID]; ok {
			paid = append(paid, domain.ClassifiedPayout{PayoutRecord: r, Status: domain.PayoutPaid, TxHash: tx})
			continue
		}
		unpaid = append(unpaid, domain.ClassifiedPayout{PayoutRecord: r, Status: domain.PayoutUnpaid})
	}
	return paid, unpaid
}
