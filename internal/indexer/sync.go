// Package indexer waits for the off-chain indexer to catch up with the chain.
package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-roundflow/internal/core/ports"
	"go-roundflow/internal/domain"
)

const DefaultPollInterval = time.Second

type options struct {
	interval time.Duration
	timeout  time.Duration
	onPoll   func(chainID uint64, block uint64, err error)
}

type Option func(*options)

// WithInterval sets the delay between polls. Zero polls back to back.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithTimeout bounds the total wait. Zero waits until ctx is done.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithPollHook is called after every poll with its result.
func WithPollHook(fn func(chainID uint64, block uint64, err error)) Option {
	return func(o *options) {
		o.onPoll = fn
	}
}

// WaitForSubgraphSyncTo polls sync until it reports a block >= target and
// returns that block. A failed poll counts as a poll and is retried on the
// next tick.
func WaitForSubgraphSyncTo(ctx context.Context, sync ports.IndexerSync, chainID, target uint64, opts ...Option) (uint64, error) {
	o := options{interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	var deadline <-chan time.Time
	if o.timeout > 0 {
		timer := time.NewTimer(o.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for poll := 1; ; poll++ {
		block, err := sync.CurrentBlock(ctx, chainID)
		if o.onPoll != nil {
			o.onPoll(chainID, block, err)
		}
		if err != nil {
			log.Printf("Indexer: poll %d for chain %d failed: %v", poll, chainID, err)
		} else if block >= target {
			return block, nil
		}

		wait := time.NewTimer(o.interval)
		select {
		case <-ctx.Done():
			wait.Stop()
			return 0, fmt.Errorf("%w: waiting for block %d on chain %d: %v", domain.ErrIndexerFailure, target, chainID, ctx.Err())
		case <-deadline:
			wait.Stop()
			return 0, fmt.Errorf("%w: chain %d target %d after %s", domain.ErrIndexerTimeout, chainID, target, o.timeout)
		case <-wait.C:
		}
	}
}
