package workflow

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"go-roundflow/internal/contracts"
	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	signer      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	programID   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	roundAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	tokenAddr   = common.HexToAddress("0x00000000000000000000000000000000000000d4")
	strategy    = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	newContract = common.HexToAddress("0x00000000000000000000000000000000000000f6")
)

type fakeStore struct {
	mu      sync.Mutex
	pointer string
	errs    []error
	block   chan struct{}
	names   []string
	content []any
}

func (s *fakeStore) Save(ctx context.Context, name string, content any) (string, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	call := len(s.names)
	s.names = append(s.names, name)
	s.content = append(s.content, content)
	if call < len(s.errs) && s.errs[call] != nil {
		return "", s.errs[call]
	}
	return s.pointer, nil
}

func (s *fakeStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

type fakeWriter struct {
	mu        sync.Mutex
	block     uint64
	logs      []*types.Log
	err       error
	submitted []domain.TransactionParams
}

func (w *fakeWriter) Submit(ctx context.Context, tx domain.TransactionParams) (domain.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitted = append(w.submitted, tx)
	if w.err != nil {
		return domain.Receipt{}, w.err
	}
	return domain.Receipt{
		BlockNumber: w.block,
		TxHash:      common.BigToHash(big.NewInt(int64(len(w.submitted)))),
		Logs:        w.logs,
	}, nil
}

func (w *fakeWriter) ChainID() uint64 { return 10 }

func (w *fakeWriter) Address() common.Address { return signer }

func (w *fakeWriter) Submitted() []domain.TransactionParams {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.TransactionParams(nil), w.submitted...)
}

type fakeSync struct {
	mu    sync.Mutex
	block uint64
	calls int
}

func (s *fakeSync) CurrentBlock(ctx context.Context, chainID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.block, nil
}

func (s *fakeSync) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeFinalization struct {
	finalized bool
}

func (f fakeFinalization) IsFinalized(ctx context.Context, chainID uint64, payoutStrategy common.Address) (bool, error) {
	return f.finalized, nil
}

type harness struct {
	store  *fakeStore
	writer *fakeWriter
	sync   *fakeSync
	deps   Deps
}

func newHarness() *harness {
	h := &harness{
		store:  &fakeStore{pointer: "bafabcdef"},
		writer: &fakeWriter{block: 10},
		sync:   &fakeSync{block: 10},
	}
	h.deps = Deps{
		Store:        h.store,
		Writer:       h.writer,
		Sync:         h.sync,
		Finalization: fakeFinalization{},
		Contracts: Contracts{
			ProgramFactory: common.HexToAddress("0x0000000000000000000000000000000000000f01"),
			RoundFactory:   common.HexToAddress("0x0000000000000000000000000000000000000f02"),
		},
		PollInterval: time.Millisecond,
	}
	return h
}

func createdLog(event common.Hash, addr common.Address) *types.Log {
	return &types.Log{Topics: []common.Hash{event, common.BytesToHash(addr.Bytes())}}
}

func programCreatedTopic() common.Hash {
	return contracts.ProgramFactoryABI.Events["ProgramCreated"].ID
}

func roundCreatedLog() *types.Log {
	return createdLog(contracts.RoundFactoryABI.Events["RoundCreated"].ID, newContract)
}

func testTimes() domain.RoundTimes {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.RoundTimes{
		ApplicationsStart: start,
		ApplicationsEnd:   start.Add(7 * 24 * time.Hour),
		RoundStart:        start.Add(8 * 24 * time.Hour),
		RoundEnd:          start.Add(22 * 24 * time.Hour),
	}
}

func testDistribution() []domain.PayoutRecord {
	return []domain.PayoutRecord{
		{ProjectID: "0x" + "01" + strings.Repeat("0", 62), RecipientAddress: common.HexToAddress("0x1111111111111111111111111111111111111111"), AmountInToken: big.NewInt(100)},
		{ProjectID: "0x" + "02" + strings.Repeat("0", 62), RecipientAddress: common.HexToAddress("0x2222222222222222222222222222222222222222"), AmountInToken: big.NewInt(250)},
		{ProjectID: "0x" + "03" + strings.Repeat("0", 62), RecipientAddress: common.HexToAddress("0x3333333333333333333333333333333333333333"), AmountInToken: big.NewInt(75)},
	}
}

// validPayloads has one well-formed payload per operation kind.
func validPayloads() map[domain.OperationKind]any {
	fee := uint32(5)
	return map[domain.OperationKind]any{
		domain.OpCreateProgram: domain.CreateProgramPayload{
			Metadata: domain.ProgramMetadata{Name: "Gitcoin Grants"},
		},
		domain.OpCreateRound: domain.CreateRoundPayload{
			ProgramID:     programID,
			RoundMetadata: domain.RoundMetadata{Name: "Climate Round"},
			Times:         testTimes(),
			Token:         tokenAddr,
			MatchAmount:   big.NewInt(1000),
		},
		domain.OpUpdateRound: domain.UpdateRoundPayload{
			Round:         roundAddr,
			RoundMetadata: &domain.RoundMetadata{Name: "Climate Round II"},
			FeePercentage: &fee,
		},
		domain.OpUpdateRoles: domain.UpdateRolesPayload{
			Round: roundAddr,
			Grant: []common.Address{signer},
		},
		domain.OpFundRound: domain.FundRoundPayload{
			Round:  roundAddr,
			Token:  tokenAddr,
			Amount: big.NewInt(500),
		},
		domain.OpReclaimFunds: domain.ReclaimFundsPayload{
			Round:     roundAddr,
			Token:     tokenAddr,
			Recipient: signer,
		},
		domain.OpFinalizeRound: domain.FinalizeRoundPayload{
			Round:          roundAddr,
			PayoutStrategy: strategy,
			Distribution:   testDistribution(),
		},
		domain.OpBulkUpdateApplications: domain.BulkUpdateApplicationsPayload{
			Round: roundAddr,
			Applications: []domain.ApplicationStatusEntry{
				{Index: 0, Status: domain.ApplicationApproved},
				{Index: 1, Status: domain.ApplicationRejected},
			},
		},
	}
}
