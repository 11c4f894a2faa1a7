package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// IPFSProtocol is the MetaPtr protocol id for content-addressed pointers.
const IPFSProtocol = 1

type ProgramMetadata struct {
	Name        string `json:"name"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
}

type CreateProgramPayload struct {
	Metadata  ProgramMetadata  `json:"metadata"`
	Operators []common.Address `json:"operators"`
}

func (p CreateProgramPayload) Validate() error {
	if p.Metadata.Name == "" {
		return fmt.Errorf("%w: program name is required", ErrInvalidPayload)
	}
	return nil
}

type QuadraticFundingConfig struct {
	MatchingFundsAvailable float64 `json:"matchingFundsAvailable"`
	MatchingCap            bool    `json:"matchingCap"`
	MatchingCapAmount      float64 `json:"matchingCapAmount,omitempty"`
	MinDonationThreshold   bool    `json:"minDonationThreshold"`
	MinDonationAmount      float64 `json:"minDonationThresholdAmount,omitempty"`
	SybilDefense           bool    `json:"sybilDefense"`
}

type RoundSupport struct {
	Type string `json:"type"`
	Info string `json:"info"`
}

type RoundMetadata struct {
	Name                   string                 `json:"name"`
	Description            string                 `json:"description,omitempty"`
	ProgramContractAddress string                 `json:"programContractAddress,omitempty"`
	Eligibility            []string               `json:"eligibility,omitempty"`
	QuadraticFundingConfig QuadraticFundingConfig `json:"quadraticFundingConfig"`
	Support                *RoundSupport          `json:"support,omitempty"`
}

type ApplicationQuestion struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Required  bool   `json:"required"`
	Encrypted bool   `json:"encrypted"`
	Hidden    bool   `json:"hidden"`
}

type ApplicationMetadata struct {
	Version   string                `json:"version,omitempty"`
	Questions []ApplicationQuestion `json:"questions"`
}

type RoundTimes struct {
	ApplicationsStart time.Time `json:"applicationsStart"`
	ApplicationsEnd   time.Time `json:"applicationsEnd"`
	RoundStart        time.Time `json:"roundStart"`
	RoundEnd          time.Time `json:"roundEnd"`
}

func (t RoundTimes) Validate() error {
	switch {
	case t.ApplicationsStart.IsZero(), t.ApplicationsEnd.IsZero(), t.RoundStart.IsZero(), t.RoundEnd.IsZero():
		return fmt.Errorf("%w: all round times are required", ErrInvalidPayload)
	case t.ApplicationsEnd.Before(t.ApplicationsStart):
		return fmt.Errorf("%w: applications end before they start", ErrInvalidPayload)
	case t.RoundEnd.Before(t.RoundStart):
		return fmt.Errorf("%w: round ends before it starts", ErrInvalidPayload)
	case t.RoundStart.Before(t.ApplicationsStart):
		return fmt.Errorf("%w: round starts before applications open", ErrInvalidPayload)
	}
	return nil
}

type CreateRoundPayload struct {
	ProgramID           common.Address      `json:"programId"`
	RoundMetadata       RoundMetadata       `json:"roundMetadata"`
	ApplicationMetadata ApplicationMetadata `json:"applicationMetadata"`
	Times               RoundTimes          `json:"times"`
	Token               common.Address      `json:"token"`
	MatchAmount         *big.Int            `json:"matchAmount"`
	FeePercentage       uint32              `json:"feePercentage"`
	FeeAddress          common.Address      `json:"feeAddress"`
	VotingStrategy      common.Address      `json:"votingStrategy"`
	PayoutStrategy      common.Address      `json:"payoutStrategy"`
	Operators           []common.Address    `json:"operators"`
}

func (p CreateRoundPayload) Validate() error {
	if p.ProgramID == (common.Address{}) {
		return fmt.Errorf("%w: program id is required", ErrInvalidPayload)
	}
	if p.RoundMetadata.Name == "" {
		return fmt.Errorf("%w: round name is required", ErrInvalidPayload)
	}
	if p.MatchAmount == nil || p.MatchAmount.Sign() < 0 {
		return fmt.Errorf("%w: match amount must be non-negative", ErrInvalidPayload)
	}
	return p.Times.Validate()
}

// UpdateRoundPayload changes only the fields that are set.
type UpdateRoundPayload struct {
	Round               common.Address       `json:"round"`
	RoundMetadata       *RoundMetadata       `json:"roundMetadata,omitempty"`
	ApplicationMetadata *ApplicationMetadata `json:"applicationMetadata,omitempty"`
	MatchAmount         *big.Int             `json:"matchAmount,omitempty"`
	FeePercentage       *uint32              `json:"feePercentage,omitempty"`
	FeeAddress          *common.Address      `json:"feeAddress,omitempty"`
	Times               *RoundTimes          `json:"times,omitempty"`
}

func (p UpdateRoundPayload) Validate() error {
	if p.Round == (common.Address{}) {
		return fmt.Errorf("%w: round address is required", ErrInvalidPayload)
	}
	if p.RoundMetadata == nil && p.ApplicationMetadata == nil && p.MatchAmount == nil &&
		p.FeePercentage == nil && p.FeeAddress == nil && p.Times == nil {
		return fmt.Errorf("%w: nothing to update", ErrInvalidPayload)
	}
	if p.Times != nil {
		return p.Times.Validate()
	}
	return nil
}

type UpdateRolesPayload struct {
	Round  common.Address   `json:"round"`
	Grant  []common.Address `json:"grant"`
	Revoke []common.Address `json:"revoke"`
}

func (p UpdateRolesPayload) Validate() error {
	if p.Round == (common.Address{}) {
		return fmt.Errorf("%w: round address is required", ErrInvalidPayload)
	}
	if len(p.Grant) == 0 && len(p.Revoke) == 0 {
		return fmt.Errorf("%w: no role changes", ErrInvalidPayload)
	}
	return nil
}

// FundRoundPayload funds a round; a zero Token means the native coin.
type FundRoundPayload struct {
	Round  common.Address `json:"round"`
	Token  common.Address `json:"token"`
	Amount *big.Int       `json:"amount"`
}

func (p FundRoundPayload) Native() bool {
	return p.Token == (common.Address{})
}

func (p FundRoundPayload) Validate() error {
	if p.Round == (common.Address{}) {
		return fmt.Errorf("%w: round address is required", ErrInvalidPayload)
	}
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPayload)
	}
	return nil
}

type ReclaimFundsPayload struct {
	Round     common.Address `json:"round"`
	Token     common.Address `json:"token"`
	Recipient common.Address `json:"recipient"`
}

func (p ReclaimFundsPayload) Validate() error {
	if p.Round == (common.Address{}) || p.Recipient == (common.Address{}) {
		return fmt.Errorf("%w: round and recipient are required", ErrInvalidPayload)
	}
	return nil
}

type FinalizeRoundPayload struct {
	Round          common.Address `json:"round"`
	PayoutStrategy common.Address `json:"payoutStrategy"`
	Distribution   []PayoutRecord `json:"distribution"`
}

func (p FinalizeRoundPayload) Validate() error {
	if p.Round == (common.Address{}) || p.PayoutStrategy == (common.Address{}) {
		return fmt.Errorf("%w: round and payout strategy are required", ErrInvalidPayload)
	}
	if len(p.Distribution) == 0 {
		return fmt.Errorf("%w: empty distribution", ErrInvalidPayload)
	}
	for _, r := range p.Distribution {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
	ApplicationCanceled ApplicationStatus = "CANCELED"
)

// Code is the 2-bit on-chain encoding of the status.
func (s ApplicationStatus) Code() (uint8, error) {
	switch s {
	case ApplicationPending:
		return 0, nil
	case ApplicationApproved:
		return 1, nil
	case ApplicationRejected:
		return 2, nil
	case ApplicationCanceled:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: unknown application status %q", ErrInvalidPayload, s)
	}
}

type ApplicationStatusEntry struct {
	Index  uint64            `json:"index"`
	Status ApplicationStatus `json:"status"`
}

// BulkUpdateApplicationsPayload carries the full status set of the round's
// applications with the updates applied. Changed lists the indexes that were
// edited; when empty every application counts as changed.
type BulkUpdateApplicationsPayload struct {
	Round        common.Address           `json:"round"`
	Applications []ApplicationStatusEntry `json:"applications"`
	Changed      []uint64                 `json:"changed,omitempty"`
}

func (p BulkUpdateApplicationsPayload) Validate() error {
	if p.Round == (common.Address{}) {
		return fmt.Errorf("%w: round address is required", ErrInvalidPayload)
	}
	if len(p.Applications) == 0 {
		return fmt.Errorf("%w: no applications", ErrInvalidPayload)
	}
	known := make(map[uint64]struct{}, len(p.Applications))
	for _, a := range p.Applications {
		if _, err := a.Status.Code(); err != nil {
			return err
		}
		if _, dup := known[a.Index]; dup {
			return fmt.Errorf("%w: duplicate application index %d", ErrInvalidPayload, a.Index)
		}
		known[a.Index] = struct{}{}
	}
	for _, idx := range p.Changed {
		if _, ok := known[idx]; !ok {
			return fmt.Errorf("%w: changed index %d is not in the application set", ErrInvalidPayload, idx)
		}
	}
	return nil
}
