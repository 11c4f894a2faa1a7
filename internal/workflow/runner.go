package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-roundflow/internal/core/ports"
	"go-roundflow/internal/domain"
	"go-roundflow/internal/indexer"
	"go-roundflow/internal/metrics"

	"github.com/ethereum/go-ethereum/common"
)

// Contracts holds the factory addresses for the connected chain.
type Contracts struct {
	ProgramFactory common.Address
	RoundFactory   common.Address
}

// Deps are the collaborators shared by every operation.
type Deps struct {
	Store        ports.ContentStore
	Writer       ports.ChainWriter
	Sync         ports.IndexerSync
	Finalization ports.FinalizationChecker
	Contracts    Contracts

	// PollInterval between indexer polls; zero polls back to back
	PollInterval time.Duration
	// SyncTimeout bounds the indexing phase; zero waits indefinitely
	SyncTimeout time.Duration

	Metrics *metrics.Collector
}

// ready checks prerequisites. It runs before a state is reset so a missing
// signer leaves the state untouched.
func (d Deps) ready() error {
	if d.Writer == nil {
		return domain.ErrNoSigner
	}
	if d.Store == nil || d.Sync == nil {
		return fmt.Errorf("workflow: content store and indexer sync are required")
	}
	return nil
}

// storePhase pins content and records its pointer.
func storePhase(name domain.PhaseName, store ports.ContentStore, label string, content any, pointer *string) Phase {
	return Phase{
		Name: name,
		Run: func(ctx context.Context) error {
			ptr, err := store.Save(ctx, label, content)
			if err != nil {
				return fmt.Errorf("store %s: %w", label, err)
			}
			*pointer = ptr
			return nil
		},
	}
}

// writePhase builds the transaction once earlier phases have run and waits
// for it to be mined.
func writePhase(name domain.PhaseName, writer ports.ChainWriter, build func() (domain.TransactionParams, error), receipt *domain.Receipt) Phase {
	return Phase{
		Name: name,
		Run: func(ctx context.Context) error {
			tx, err := build()
			if err != nil {
				return err
			}
			r, err := writer.Submit(ctx, tx)
			if err != nil {
				return err
			}
			log.Printf("Orchestrator: tx %s mined in block %d", r.TxHash.Hex(), r.BlockNumber)
			*receipt = r
			return nil
		},
	}
}

// indexPhase waits until the indexer has processed the receipt's block.
func indexPhase(d Deps, receipt *domain.Receipt) Phase {
	return Phase{
		Name: domain.PhaseIndexing,
		Run: func(ctx context.Context) error {
			_, err := indexer.WaitForSubgraphSyncTo(ctx, d.Sync, d.Writer.ChainID(), receipt.BlockNumber,
				indexer.WithInterval(d.PollInterval),
				indexer.WithTimeout(d.SyncTimeout),
				indexer.WithPollHook(d.Metrics.ObservePoll),
			)
			return err
		},
	}
}

func derivedPhase(name domain.PhaseName) Phase {
	return Phase{Name: name}
}

func outcomeOf(receipt domain.Receipt, pointers map[string]string) *domain.Outcome {
	out := &domain.Outcome{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
	}
	if len(pointers) > 0 {
		out.Pointers = pointers
	}
	return out
}
