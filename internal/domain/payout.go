package domain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PayoutRecord is one entry of a round's matching distribution.
// Index is assigned once when the distribution is finalized and never
// recomputed from slice position.
type PayoutRecord struct {
	ProjectID        string         `json:"projectId"`
	RecipientAddress common.Address `json:"recipientAddress"`
	AmountInToken    *big.Int       `json:"amountInToken"`
	Index            *uint64        `json:"index,omitempty"`
}

func (r PayoutRecord) Validate() error {
	if r.ProjectID == "" {
		return fmt.Errorf("%w: payout record without project id", ErrInvalidPayload)
	}
	if r.AmountInToken == nil || r.AmountInToken.Sign() < 0 {
		return fmt.Errorf("%w: project %s has invalid amount", ErrInvalidPayload, r.ProjectID)
	}
	return nil
}

// ProjectIDBytes32 decodes a 0x-prefixed 32-byte hex project id.
func (r PayoutRecord) ProjectIDBytes32() ([32]byte, error) {
	var out [32]byte
	raw := strings.TrimPrefix(strings.TrimPrefix(r.ProjectID, "0x"), "0X")
	if len(raw) != 64 {
		return out, fmt.Errorf("%w: project id %q is not bytes32", ErrInvalidPayload, r.ProjectID)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return out, fmt.Errorf("%w: project id %q: %v", ErrInvalidPayload, r.ProjectID, err)
	}
	copy(out[:], b)
	return out, nil
}

// PaidPayout is a payout the indexer has already seen executed.
type PaidPayout struct {
	ProjectID string `json:"projectId"`
	TxHash    string `json:"txHash"`
}

type PayoutStatus string

const (
	PayoutPaid   PayoutStatus = "Paid"
	PayoutUnpaid PayoutStatus = "Unpaid"
)

type ClassifiedPayout struct {
	PayoutRecord
	Status PayoutStatus `json:"status"`
	TxHash string       `json:"txHash,omitempty"`
}

type FinalizationState string

const (
	NotFinalized    FinalizationState = "NOT_FINALIZED"
	PendingIndexing FinalizationState = "PENDING_INDEXING"
	Finalized       FinalizationState = "FINALIZED"
)

// FinalizationStateOf derives the distribution lifecycle from a finalize run.
func FinalizationStateOf(s Snapshot) FinalizationState {
	if s.Kind != OpFinalizeRound {
		return NotFinalized
	}
	switch {
	case s.Status(PhaseIndexing) == PhaseSuccess:
		return Finalized
	case s.Status(PhaseWriting) == PhaseSuccess:
		return PendingIndexing
	default:
		return NotFinalized
	}
}
