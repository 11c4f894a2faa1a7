package merkle

import (
	"math/big"
	"testing"

	"go-roundflow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignIndexes(t *testing.T) {
	records := sampleRecords(4)
	records[0].Index = nil
	records[2].Index = nil
	records[1].Index = idx(7)
	records[3].Index = idx(2)

	out, err := AssignIndexes(records)
	require.NoError(t, err)

	assert.Equal(t, uint64(8), *out[0].Index)
	assert.Equal(t, uint64(7), *out[1].Index)
	assert.Equal(t, uint64(9), *out[2].Index)
	assert.Equal(t, uint64(2), *out[3].Index)
	assert.Nil(t, records[0].Index, "input must not be modified")

	again, err := AssignIndexes(out)
	require.NoError(t, err)
	assert.Equal(t, out, again)

	records[2].Index = idx(7)
	_, err = AssignIndexes(records)
	assert.ErrorIs(t, err, ErrDuplicateIndex)
}

func TestBuildDistribution(t *testing.T) {
	records := sampleRecords(3)
	for i := range records {
		records[i].Index = nil
	}

	dist, tree, err := BuildDistribution(records)
	require.NoError(t, err)
	require.Len(t, dist.MatchingDistribution, 3)
	assert.Equal(t, tree.Root(), dist.MerkleRoot)

	for i, e := range dist.MatchingDistribution {
		assert.Equal(t, uint64(i), *e.Index)
		assert.True(t, VerifyRecord(dist.MerkleRoot, e.PayoutRecord, e.MerkleProof))
	}
}

func TestClassify(t *testing.T) {
	distribution := []domain.PayoutRecord{
		{ProjectID: "1", AmountInToken: big.NewInt(100)},
		{ProjectID: "2", AmountInToken: big.NewInt(200)},
	}
	executed := []domain.PaidPayout{{ProjectID: "2", TxHash: "0xabc"}}

	paid, unpaid := Classify(distribution, executed)

	require.Len(t, paid, 1)
	require.Len(t, unpaid, 1)
	assert.Equal(t, "2", paid[0].ProjectID)
	assert.Equal(t, domain.PayoutPaid, paid[0].Status)
	assert.Equal(t, "0xabc", paid[0].TxHash)
	assert.Equal(t, "1", unpaid[0].ProjectID)
	assert.Equal(t, domain.PayoutUnpaid, unpaid[0].Status)

	paid2, unpaid2 := Classify(distribution, executed)
	assert.Equal(t, paid, paid2)
	assert.Equal(t, unpaid, unpaid2)
}

func TestClassify_PreservesOrder(t *testing.T) {
	distribution := []domain.PayoutRecord{
		{ProjectID: "c", AmountInToken: big.NewInt(1)},
		{ProjectID: "a", AmountInToken: big.NewInt(1)},
		{ProjectID: "b", AmountInToken: big.NewInt(1)},
		{ProjectID: "d", AmountInToken: big.NewInt(1)},
	}
	executed := []domain.PaidPayout{{ProjectID: "d"}, {ProjectID: "c"}}

	paid, unpaid := Classify(distribution, executed)

	assert.Equal(t, "c", paid[0].ProjectID)
	assert.Equal(t, "d", paid[1].ProjectID)
	assert.Equal(t, "a", unpaid[0].ProjectID)
	assert.Equal(t, "b", unpaid[1].ProjectID)

	none, all := Classify(distribution, nil)
	assert.Empty(t, none)
	assert.Len(t, all, 4)
}
