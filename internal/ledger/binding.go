package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/olehkaliuzhnyi/bookstore-demo/internal/wallet"
)

// StoreABI is the interface description of the BookStore contract.
const StoreABI = `[
	{"inputs":[{"internalType":"string","name":"_bookName","type":"string"},{"internalType":"uint256","name":"_stock","type":"uint256"}],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[],"name":"bookName","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"stock","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"quantity","type":"uint256"}],"name":"buyBook","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"quantity","type":"uint256"}],"name":"returnBook","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// ErrReverted is returned when a mined transaction's execution failed.
var ErrReverted = errors.New("transaction reverted")

var storeABI = mustParseABI(StoreABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse store ABI: %v", err))
	}
	return parsed
}

// Binding couples the fixed store contract address and interface to an
// active signing account. It must be re-created whenever the session's
// account changes; a stale binding must not be reused.
type Binding struct {
	address      common.Address
	abi          abi.ABI
	backend      Backend
	provider     wallet.Provider
	from         common.Address
	pollInterval time.Duration
	logger       *slog.Logger
}

// Bind constructs a binding for the given session account. Construction
// is synchronous and does not touch the chain; failures surface when
// calls are made.
func Bind(backend Backend, address common.Address, provider wallet.Provider, from common.Address, pollInterval time.Duration) *Binding {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Binding{
		address:      address,
		abi:          storeABI,
		backend:      backend,
		provider:     provider,
		from:         from,
		pollInterval: pollInterval,
		logger:       slog.Default().With("component", "ledger_binding"),
	}
}

// Address returns the fixed contract address.
func (b *Binding) Address() common.Address {
	return b.address
}

// From returns the signing account backing this binding.
func (b *Binding) From() common.Address {
	return b.from
}

// BookName reads the tracked book's name.
func (b *Binding) BookName(ctx context.Context) (string, error) {
	out, err := b.call(ctx, "bookName")
	if err != nil {
		return "", err
	}
	name, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("bookName: unexpected output type %T", out[0])
	}
	return name, nil
}

// Stock reads the tracked book's stock count.
func (b *Binding) Stock(ctx context.Context) (uint64, error) {
	out, err := b.call(ctx, "stock")
	if err != nil {
		return 0, err
	}
	stock, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("stock: unexpected output type %T", out[0])
	}
	return stock.Uint64(), nil
}

// BuyBook submits a payable buyBook call with the given value attached.
// Gas is estimated against the pending state.
func (b *Binding) BuyBook(ctx context.Context, quantity uint64, value *big.Int) (*types.Transaction, error) {
	return b.transact(ctx, "buyBook", value, 0, new(big.Int).SetUint64(quantity))
}

// ReturnBook submits a returnBook call bounded by the given gas ceiling.
func (b *Binding) ReturnBook(ctx context.Context, quantity uint64, gasLimit uint64) (*types.Transaction, error) {
	return b.transact(ctx, "returnBook", nil, gasLimit, new(big.Int).SetUint64(quantity))
}

// WaitMined blocks until the transaction is included and returns its
// receipt. A receipt with failed status yields ErrReverted. The wait is
// bounded only by ctx.
func (b *Binding) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := b.backend.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, tx.Hash().Hex())
			}
			b.logger.Info("transaction confirmed",
				"tx_hash", tx.Hash().Hex(),
				"block", receipt.BlockNumber,
			)
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			b.logger.Warn("receipt query failed", "tx_hash", tx.Hash().Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Binding) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	res, err := b.backend.CallContract(ctx, ethereum.CallMsg{To: &b.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	out, err := b.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// transact builds, signs, and broadcasts a state-changing call.
// A gasLimit of 0 estimates gas instead of using a fixed ceiling.
func (b *Binding) transact(ctx context.Context, method string, value *big.Int, gasLimit uint64, args ...interface{}) (*types.Transaction, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := b.backend.PendingNonceAt(ctx, b.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := b.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	if gasLimit == 0 {
		gasLimit, err = b.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:     b.from,
			To:       &b.address,
			GasPrice: gasPrice,
			Value:    value,
			Data:     data,
		})
		if err != nil {
			return nil, fmt.Errorf("estimate gas: %w", err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &b.address,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	b.logger.Info("submitting transaction",
		"method", method,
		"from", b.from.Hex(),
		"nonce", nonce,
		"gas", gasLimit,
		"value", value,
	)

	signed, err := b.provider.SignTx(ctx, b.from, tx)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", method, err)
	}

	if err := b.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	return signed, nil
}
