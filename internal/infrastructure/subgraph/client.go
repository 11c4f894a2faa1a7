// Package subgraph reads indexing progress, finalization and payouts from
// the round manager subgraph of each chain.
package subgraph

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-roundflow/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/machinebox/graphql"
)

const (
	metaQuery = `query { _meta { block { number } } }`

	strategyQuery = `query ($id: String!) {
  payoutStrategy(id: $id) { id isReadyForPayout }
}`

	payoutsQuery = `query ($id: String!, $first: Int!, $skip: Int!) {
  payouts(where: { payoutStrategy: $id }, first: $first, skip: $skip, orderBy: createdAt) { projectId txnHash }
}`

	pageSize = 1000
)

// Client implements ports.IndexerSync, ports.FinalizationChecker and
// ports.PayoutSource. Every chain has its own subgraph endpoint.
type Client struct {
	chains map[uint64]*graphql.Client
}

func NewClient(endpoints map[uint64]string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	chains := make(map[uint64]*graphql.Client, len(endpoints))
	for chainID, endpoint := range endpoints {
		chains[chainID] = graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient))
	}
	return &Client{chains: chains}
}

func (c *Client) CurrentBlock(ctx context.Context, chainID uint64) (uint64, error) {
	var data struct {
		Meta struct {
			Block struct {
				Number uint64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}
	if err := c.query(ctx, chainID, metaQuery, nil, &data); err != nil {
		return 0, err
	}
	return data.Meta.Block.Number, nil
}

func (c *Client) IsFinalized(ctx context.Context, chainID uint64, payoutStrategy common.Address) (bool, error) {
	var data struct {
		PayoutStrategy *struct {
			IsReadyForPayout bool `json:"isReadyForPayout"`
		} `json:"payoutStrategy"`
	}
	vars := map[string]any{"id": strategyID(payoutStrategy)}
	if err := c.query(ctx, chainID, strategyQuery, vars, &data); err != nil {
		return false, err
	}
	return data.PayoutStrategy != nil && data.PayoutStrategy.IsReadyForPayout, nil
}

func (c *Client) PaidPayouts(ctx context.Context, chainID uint64, payoutStrategy common.Address) ([]domain.PaidPayout, error) {
	paid := []domain.PaidPayout{}
	for skip := 0; ; skip += pageSize {
		var data struct {
			Payouts []struct {
				ProjectID string `json:"projectId"`
				TxnHash   string `json:"txnHash"`
			} `json:"payouts"`
		}
		vars := map[string]any{"id": strategyID(payoutStrategy), "first": pageSize, "skip": skip}
		if err := c.query(ctx, chainID, payoutsQuery, vars, &data); err != nil {
			return nil, err
		}
		for _, p := range data.Payouts {
			paid = append(paid, domain.PaidPayout{ProjectID: p.ProjectID, TxHash: p.TxnHash})
		}
		if len(data.Payouts) < pageSize {
			return paid, nil
		}
	}
}

func strategyID(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func (c *Client) query(ctx context.Context, chainID uint64, query string, vars map[string]any, out any) error {
	client, ok := c.chains[chainID]
	if !ok {
		return fmt.Errorf("%w: no subgraph configured for chain %d", domain.ErrIndexerFailure, chainID)
	}

	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	if err := client.Run(ctx, req, out); err != nil {
		return fmt.Errorf("%w: chain %d: %v", domain.ErrIndexerFailure, chainID, err)
	}
	return nil
}
