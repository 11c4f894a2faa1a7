package merkle

import (
	"fmt"
	"math/big"
	"testing"

	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idx(i uint64) *uint64 {
	return &i
}

func projectID(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func sampleRecords(n int) []domain.PayoutRecord {
	records := make([]domain.PayoutRecord, n)
	for i := 0; i < n; i++ {
		records[i] = domain.PayoutRecord{
			ProjectID:        projectID(i + 1),
			RecipientAddress: common.BigToAddress(big.NewInt(int64(1000 + i))),
			AmountInToken:    big.NewInt(int64(100 * (i + 1))),
			Index:            idx(uint64(i)),
		}
	}
	return records
}

func TestBuild_ProofRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 13} {
		t.Run(fmt.Sprintf("%d leaves", n), func(t *testing.T) {
			records := sampleRecords(n)
			tree, err := Build(records)
			require.NoError(t, err)
			assert.Equal(t, n, tree.Len())

			for _, r := range records {
				proof, err := tree.GetProof(r)
				require.NoError(t, err)
				assert.True(t, VerifyRecord(tree.Root(), r, proof), "record %d", *r.Index)
			}
		})
	}
}

func TestBuild_MutatedLeafFailsVerification(t *testing.T) {
	records := sampleRecords(5)
	tree, err := Build(records)
	require.NoError(t, err)

	original := records[2]
	proof, err := tree.GetProof(original)
	require.NoError(t, err)
	require.True(t, VerifyRecord(tree.Root(), original, proof))

	mutations := map[string]func(r *domain.PayoutRecord){
		"index":     func(r *domain.PayoutRecord) { r.Index = idx(*r.Index + 1) },
		"recipient": func(r *domain.PayoutRecord) { r.RecipientAddress = common.HexToAddress("0xdead") },
		"amount":    func(r *domain.PayoutRecord) { r.AmountInToken = new(big.Int).Add(r.AmountInToken, big.NewInt(1)) },
		"projectId": func(r *domain.PayoutRecord) { r.ProjectID = projectID(999) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			mutated := original
			mutate(&mutated)
			assert.False(t, VerifyRecord(tree.Root(), mutated, proof))
		})
	}
}

func TestBuild_DeterministicAcrossInputOrder(t *testing.T) {
	records := sampleRecords(6)
	reversed := make([]domain.PayoutRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}

	a, err := Build(records)
	require.NoError(t, err)
	b, err := Build(reversed)
	require.NoError(t, err)

	assert.Equal(t, a.Root(), b.Root())
	assert.Equal(t, a.records, b.records)
}

func TestBuild_SingleLeafRootIsLeaf(t *testing.T) {
	records := sampleRecords(1)
	tree, err := Build(records)
	require.NoError(t, err)

	leaf, err := LeafHash(records[0])
	require.NoError(t, err)
	assert.Equal(t, leaf, tree.Root())

	proof, err := tree.GetProof(records[0])
	require.NoError(t, err)
	assert.Empty(t, proof)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrEmptyTree)

	records := sampleRecords(2)
	records[1].Index = nil
	_, err = Build(records)
	assert.ErrorIs(t, err, ErrMissingIndex)

	records = sampleRecords(2)
	records[1].Index = idx(0)
	_, err = Build(records)
	assert.ErrorIs(t, err, ErrDuplicateIndex)

	records = sampleRecords(1)
	records[0].ProjectID = "not-a-hash"
	_, err = Build(records)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	tree, err := Build(sampleRecords(3))
	require.NoError(t, err)
	stranger := sampleRecords(4)[3]
	_, err = tree.GetProof(stranger)
	assert.ErrorIs(t, err, ErrUnknownLeaf)
}

func TestHashPair_Commutative(t *testing.T) {
	a := common.HexToHash("0x01")
	b := common.HexToHash("0x02")
	assert.Equal(t, hashPair(a, b), hashPair(b, a))
}

func TestLeafHash_DoubleHashedABIEncoding(t *testing.T) {
	r := sampleRecords(1)[0]

	// abi.encode of four static words
	var encoded []byte
	encoded = append(encoded, common.LeftPadBytes(big.NewInt(0).Bytes(), 32)...)
	encoded = append(encoded, common.LeftPadBytes(r.RecipientAddress.Bytes(), 32)...)
	encoded = append(encoded, common.LeftPadBytes(r.AmountInToken.Bytes(), 32)...)
	encoded = append(encoded, common.HexToHash(r.ProjectID).Bytes()...)
	inner := keccak(encoded)
	want := keccak(inner[:])

	got, err := LeafHash(r)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
