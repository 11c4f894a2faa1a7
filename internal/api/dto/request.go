package dto

import (
	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// ClassifyPayoutsRequest splits a finalized distribution into paid and
// unpaid records. When Paid is omitted the executed payouts are read from
// the indexer for ChainID and PayoutStrategy.
type ClassifyPayoutsRequest struct {
	ChainID        uint64                `json:"chain_id"`
	PayoutStrategy common.Address        `json:"payout_strategy"`
	Distribution   []domain.PayoutRecord `json:"distribution" binding:"required,min=1"`
	Paid           []domain.PaidPayout   `json:"paid,omitempty"`
}
