package domain

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTimes_Validate(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	good := RoundTimes{
		ApplicationsStart: base,
		ApplicationsEnd:   base.Add(24 * time.Hour),
		RoundStart:        base.Add(48 * time.Hour),
		RoundEnd:          base.Add(96 * time.Hour),
	}
	require.NoError(t, good.Validate())

	bad := good
	bad.RoundEnd = base
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPayload)

	assert.ErrorIs(t, RoundTimes{}.Validate(), ErrInvalidPayload)
}

func TestBulkUpdateApplicationsPayload_Validate(t *testing.T) {
	round := common.HexToAddress("0x1")

	p := BulkUpdateApplicationsPayload{
		Round: round,
		Applications: []ApplicationStatusEntry{
			{Index: 0, Status: ApplicationApproved},
			{Index: 1, Status: ApplicationRejected},
		},
		Changed: []uint64{1},
	}
	require.NoError(t, p.Validate())

	p.Changed = []uint64{7}
	assert.ErrorIs(t, p.Validate(), ErrInvalidPayload)

	p.Changed = nil
	p.Applications = append(p.Applications, ApplicationStatusEntry{Index: 1, Status: ApplicationPending})
	assert.ErrorIs(t, p.Validate(), ErrInvalidPayload)
}

func TestPayoutRecord_ProjectIDBytes32(t *testing.T) {
	r := PayoutRecord{
		ProjectID:     "0xab" + strings.Repeat("0", 62),
		AmountInToken: big.NewInt(1),
	}
	id, err := r.ProjectIDBytes32()
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), id[0])

	r.ProjectID = "1"
	_, err = r.ProjectIDBytes32()
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestApplicationStatus_Code(t *testing.T) {
	code, err := ApplicationCanceled.Code()
	require.NoError(t, err)
	assert.Equal(t, uint8(3), code)

	_, err = ApplicationStatus("WITHDRAWN").Code()
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
