// Package ethereum submits round manager transactions over JSON-RPC.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"

	"go-roundflow/internal/domain"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Backend is the part of ethclient.Client the writer uses.
type Backend interface {
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg geth.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// gas limit headroom over the node's estimate, in percent
const gasHeadroom = 20

// Writer implements ports.ChainWriter. Submissions are serialized so nonces
// are assigned in order.
type Writer struct {
	backend Backend
	signer  Signer
	chainID *big.Int

	mu sync.Mutex
}

// NewWriter asks the backend for its chain id once.
func NewWriter(ctx context.Context, backend Backend, signer Signer) (*Writer, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: chain id: %v", domain.ErrRPCFailure, err)
	}
	return &Writer{backend: backend, signer: signer, chainID: chainID}, nil
}

// Dial connects to rpcURL and returns a writer signing with signer.
func Dial(ctx context.Context, rpcURL string, signer Signer) (*Writer, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial %s: %v", domain.ErrRPCFailure, rpcURL, err)
	}
	w, err := NewWriter(ctx, client, signer)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return w, client, nil
}

func (w *Writer) ChainID() uint64 {
	return w.chainID.Uint64()
}

func (w *Writer) Address() common.Address {
	return w.signer.Address()
}

// Submit signs and sends tx, then blocks until it is mined.
func (w *Writer) Submit(ctx context.Context, p domain.TransactionParams) (domain.Receipt, error) {
	signed, err := w.send(ctx, p)
	if err != nil {
		return domain.Receipt{}, err
	}
	log.Printf("ChainWriter: sent tx %s to %s", signed.Hash().Hex(), p.To.Hex())

	receipt, err := bind.WaitMined(ctx, w.backend, signed)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%w: waiting for %s: %v", domain.ErrRPCFailure, signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.Receipt{}, fmt.Errorf("%w: tx %s", domain.ErrReverted, signed.Hash().Hex())
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	return domain.Receipt{BlockNumber: block, TxHash: receipt.TxHash, Logs: receipt.Logs}, nil
}

func (w *Writer) send(ctx context.Context, p domain.TransactionParams) (*types.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	from := w.signer.Address()
	value := p.Value
	if value == nil {
		value = new(big.Int)
	}
	to := p.To

	nonce, err := w.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", domain.ErrRPCFailure, err)
	}
	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: gas price: %v", domain.ErrRPCFailure, err)
	}
	gas, err := w.backend.EstimateGas(ctx, geth.CallMsg{From: from, To: &to, Value: value, Data: p.Data})
	if err != nil {
		return nil, estimateError(err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas + gas*gasHeadroom/100,
		GasPrice: gasPrice,
		Data:     p.Data,
	})
	signed, err := w.signer.SignTx(tx, w.chainID)
	if err != nil {
		if errors.Is(err, domain.ErrUserRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUserRejected, err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: send: %v", domain.ErrRPCFailure, err)
	}
	return signed, nil
}

// revertErrorCode is the JSON-RPC code nodes use for execution reverted.
const revertErrorCode = 3

// estimateError maps a failed gas estimate: a revert during simulation
// means the transaction itself would revert.
func estimateError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		if reason, ok := revertReason(err); ok {
			return fmt.Errorf("%w: %s", domain.ErrReverted, reason)
		}
		return fmt.Errorf("%w: %v", domain.ErrReverted, err)
	}
	// some nodes answer reverts with a generic code
	if strings.Contains(strings.ToLower(err.Error()), "revert") {
		return fmt.Errorf("%w: %v", domain.ErrReverted, err)
	}
	return fmt.Errorf("%w: estimate gas: %v", domain.ErrRPCFailure, err)
}

// revertReason decodes an Error(string) payload carried in the error data.
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return "", false
	}
	encoded, ok := dataErr.ErrorData().(string)
	if !ok {
		return "", false
	}
	reason, unpackErr := abi.UnpackRevert(common.FromHex(encoded))
	if unpackErr != nil {
		return "", false
	}
	return reason, true
}
