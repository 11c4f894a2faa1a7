package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go-roundflow/internal/domain"
	"go-roundflow/internal/workflow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanQueue chan uuid.UUID

func (q chanQueue) Push(ctx context.Context, runID uuid.UUID) error {
	q <- runID
	return nil
}

func (q chanQueue) Pop(ctx context.Context) (uuid.UUID, error) {
	select {
	case id := <-q:
		return id, nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

type memRepo struct {
	mu       sync.Mutex
	runs     map[uuid.UUID]*domain.WorkflowRun
	finishes []domain.RunResult
	statuses []domain.RunStatus
}

func newMemRepo(runs ...*domain.WorkflowRun) *memRepo {
	r := &memRepo{runs: make(map[uuid.UUID]*domain.WorkflowRun)}
	for _, run := range runs {
		r.runs[run.ID] = run
	}
	return r
}

func (r *memRepo) Create(ctx context.Context, run *domain.WorkflowRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, runID uuid.UUID) (*domain.WorkflowRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

func (r *memRepo) ApplyTransition(ctx context.Context, event domain.PhaseTransitionEvent) error {
	return nil
}

func (r *memRepo) Finish(ctx context.Context, runID uuid.UUID, result domain.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishes = append(r.finishes, result)
	r.statuses = append(r.statuses, result.Status)
	return nil
}

func (r *memRepo) MarkPending(ctx context.Context, runID uuid.UUID) error {
	return r.mark(runID, domain.RunPending)
}

func (r *memRepo) MarkRunning(ctx context.Context, runID uuid.UUID) error {
	return r.mark(runID, domain.RunRunning)
}

func (r *memRepo) mark(runID uuid.UUID, status domain.RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[runID]; !ok {
		return domain.ErrRunNotFound
	}
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *memRepo) UpdatePayload(ctx context.Context, runID uuid.UUID, payload []byte) error {
	return nil
}

func (r *memRepo) Finishes() []domain.RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RunResult(nil), r.finishes...)
}

func (r *memRepo) Statuses() []domain.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RunStatus(nil), r.statuses...)
}

type memBus struct {
	mu     sync.Mutex
	events []domain.PhaseTransitionEvent
}

func (b *memBus) PublishPhaseTransition(ctx context.Context, event domain.PhaseTransitionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *memBus) SubscribeToEvents(ctx context.Context) (<-chan domain.PhaseTransitionEvent, error) {
	return make(chan domain.PhaseTransitionEvent), nil
}

func (b *memBus) Events() []domain.PhaseTransitionEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.PhaseTransitionEvent(nil), b.events...)
}

type flakyWriter struct {
	mu    sync.Mutex
	fails int
}

func (w *flakyWriter) Submit(ctx context.Context, tx domain.TransactionParams) (domain.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fails > 0 {
		w.fails--
		return domain.Receipt{}, domain.ErrUserRejected
	}
	return domain.Receipt{BlockNumber: 7, TxHash: common.HexToHash("0x07")}, nil
}

func (w *flakyWriter) ChainID() uint64 { return 1 }

func (w *flakyWriter) Address() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000a1")
}

type staticSync uint64

func (s staticSync) CurrentBlock(ctx context.Context, chainID uint64) (uint64, error) {
	return uint64(s), nil
}

func newRolesRun(t *testing.T) *domain.WorkflowRun {
	t.Helper()
	payload, err := json.Marshal(domain.UpdateRolesPayload{
		Round: common.HexToAddress("0x00000000000000000000000000000000000000c3"),
		Grant: []common.Address{common.HexToAddress("0x00000000000000000000000000000000000000b2")},
	})
	require.NoError(t, err)
	return domain.NewWorkflowRun(uuid.New(), domain.OpUpdateRoles, 1, payload)
}

func newTestWorker(repo *memRepo, bus *memBus, writer *flakyWriter, q chanQueue) *Worker {
	deps := workflow.Deps{
		Store:        noStore{},
		Writer:       writer,
		Sync:         staticSync(7),
		PollInterval: time.Millisecond,
	}
	return NewWorker(q, repo, deps, NewStateRegistry(PublishTransitions(bus)), nil)
}

func TestExecuteRecordsFailureThenRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	run := newRolesRun(t)
	repo, bus := newMemRepo(run), &memBus{}
	w := newTestWorker(repo, bus, &flakyWriter{fails: 1}, nil)

	_, err := w.Execute(ctx, run)
	require.ErrorIs(t, err, domain.ErrUserRejected)

	out, err := w.Execute(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), out.BlockNumber)

	fins := repo.Finishes()
	require.Len(t, fins, 2)
	assert.Equal(t, uint64(1), fins[0].Generation)
	assert.Equal(t, domain.RunFailed, fins[0].Status)
	assert.Nil(t, fins[0].Outcome)
	assert.Contains(t, fins[0].LastError, "updating")
	require.Len(t, fins[0].Phases, 3)
	assert.Equal(t, domain.PhaseError, fins[0].Phases[0].Status)
	assert.Equal(t, uint64(2), fins[1].Generation)
	assert.Equal(t, domain.RunSucceeded, fins[1].Status)
	assert.Contains(t, string(fins[1].Outcome), `"blockNumber":7`)
	assert.True(t, domain.Snapshot{Phases: fins[1].Phases}.Succeeded())

	assert.Equal(t, []domain.RunStatus{domain.RunRunning, domain.RunFailed, domain.RunRunning, domain.RunSucceeded}, repo.Statuses())

	_, live := w.states.Get(run.ID)
	assert.False(t, live, "finished run keeps no live state")

	events := bus.Events()
	require.NotEmpty(t, events)
	first := events[0]
	assert.Equal(t, run.ID, first.RunID)
	assert.Equal(t, domain.PhaseUpdating, first.Phase)
	assert.Equal(t, domain.PhaseInProgress, first.To)
	last := events[len(events)-1]
	assert.Equal(t, uint64(2), last.Generation)
	assert.Equal(t, domain.PhaseRedirecting, last.Phase)
	assert.Equal(t, domain.PhaseSuccess, last.To)
}

func TestExecuteRestoresPersistedGeneration(t *testing.T) {
	run := newRolesRun(t)
	run.Generation = 4
	repo := newMemRepo(run)
	w := newTestWorker(repo, &memBus{}, &flakyWriter{}, nil)

	_, err := w.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), repo.Finishes()[0].Generation)
}

func TestPoolProcessesQueuedRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := newRolesRun(t)
	repo := newMemRepo(run)
	q := make(chanQueue, 1)
	w := newTestWorker(repo, &memBus{}, &flakyWriter{}, q)

	stopped := make(chan struct{})
	go func() {
		w.StartPool(ctx, 2)
		close(stopped)
	}()

	require.NoError(t, q.Push(ctx, run.ID))
	require.Eventually(t, func() bool { return len(repo.Finishes()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.RunSucceeded, repo.Finishes()[0].Status)
	assert.Equal(t, []domain.RunStatus{domain.RunRunning, domain.RunSucceeded}, repo.Statuses())

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}
}

func TestNewRunIsPendingUntilPicked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := newRolesRun(t)
	assert.Equal(t, domain.RunPending, run.Status)
	assert.False(t, run.IsFinished())

	repo := newMemRepo(run)
	q := make(chanQueue, 1)
	w := newTestWorker(repo, &memBus{}, &flakyWriter{}, q)
	assert.Empty(t, repo.Statuses())

	require.NoError(t, q.Push(ctx, run.ID))
	w.ProcessNextRun(ctx)
	assert.Equal(t, []domain.RunStatus{domain.RunRunning, domain.RunSucceeded}, repo.Statuses())
}

func TestOverlappingAcquiresPublishOnce(t *testing.T) {
	bus := &memBus{}
	states := NewStateRegistry(PublishTransitions(bus))
	run := newRolesRun(t)

	first := states.Acquire(run)
	second := states.Acquire(run)
	require.Same(t, first, second)

	gen := first.Reset()
	require.NoError(t, first.Transition(gen, domain.PhaseUpdating, domain.PhaseInProgress, nil))
	require.Len(t, bus.Events(), 1)

	states.Release(run.ID)
	_, live := states.Get(run.ID)
	assert.True(t, live, "still held by the second execution")

	states.Release(run.ID)
	_, live = states.Get(run.ID)
	assert.False(t, live)

	require.NoError(t, first.Transition(gen, domain.PhaseUpdating, domain.PhaseSuccess, nil))
	assert.Len(t, bus.Events(), 1, "released state is no longer published")

	restored := states.Acquire(&domain.WorkflowRun{ID: run.ID, Kind: run.Kind, Generation: gen})
	assert.NotSame(t, first, restored)
	assert.Equal(t, gen, restored.Generation())
	states.Release(run.ID)
}

type noStore struct{}

func (noStore) Save(ctx context.Context, name string, content any) (string, error) {
	return "", nil
}
