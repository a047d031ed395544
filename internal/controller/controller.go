package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/olehkaliuzhnyi/bookstore-demo/internal/config"
	"github.com/olehkaliuzhnyi/bookstore-demo/internal/ledger"
	"github.com/olehkaliuzhnyi/bookstore-demo/internal/storage"
	"github.com/olehkaliuzhnyi/bookstore-demo/internal/wallet"
	"github.com/olehkaliuzhnyi/bookstore-demo/pkg/models"
)

// Sentinel errors for precondition failures. None of them leave any
// state behind or reach the chain.
var (
	ErrNoProvider      = errors.New("wallet provider unavailable")
	ErrNotConnected    = errors.New("no connected session")
	ErrBusy            = errors.New("another transaction is in flight")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
)

// Controller owns the wallet session, the ledger binding, the cached
// book snapshot, and the last status message. Its methods are the only
// mutators of that state.
type Controller struct {
	cfg      config.Config
	backend  ledger.Backend
	provider wallet.Provider // nil when detection found no capability
	ops      storage.OperationStore
	contract common.Address
	logger   *slog.Logger
	onChange func()

	mu       sync.Mutex
	session  *common.Address
	binding  *ledger.Binding
	book     models.Book
	status   statusReporter
	inflight bool
}

// New creates a controller. provider may be nil when no wallet
// capability was detected; every operation then reports accordingly.
func New(cfg config.Config, backend ledger.Backend, provider wallet.Provider, ops storage.OperationStore) *Controller {
	return &Controller{
		cfg:      cfg,
		backend:  backend,
		provider: provider,
		ops:      ops,
		contract: common.HexToAddress(cfg.ContractAddress),
		logger:   slog.Default().With("component", "controller"),
	}
}

// Subscribe registers a callback invoked after every state mutation.
// The presentation layer uses it to re-render.
func (c *Controller) Subscribe(fn func()) {
	c.onChange = fn
}

// ProviderAvailable reports whether a wallet capability was detected.
func (c *Controller) ProviderAvailable() bool {
	return c.provider != nil
}

// Account returns the active session account, if connected.
func (c *Controller) Account() (common.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return common.Address{}, false
	}
	return *c.session, true
}

// Connected reports whether a session is active.
func (c *Controller) Connected() bool {
	_, ok := c.Account()
	return ok
}

// Book returns the cached inventory snapshot.
func (c *Controller) Book() models.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.book
}

// Status returns the last outcome message, empty if none.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Message()
}

// Operations returns the log of confirmed operations.
func (c *Controller) Operations() ([]models.Operation, error) {
	if c.ops == nil {
		return nil, nil
	}
	return c.ops.List()
}

// RefreshAccounts passively reads already-authorized accounts and
// applies the first-entry-or-clear rule. It fails silently: a passive
// check must not surface errors to the user.
func (c *Controller) RefreshAccounts(ctx context.Context) {
	if c.provider == nil {
		return
	}
	accounts, err := c.provider.Accounts(ctx)
	if err != nil {
		c.logger.Warn("passive account check failed", "error", err)
		return
	}
	c.applyAccounts(accounts)
	c.initialRefresh(ctx)
}

// Connect performs the interactive account-authorization request.
// Without a provider it surfaces the blocking notice and changes
// nothing; on rejection or failure the session stays disconnected.
func (c *Controller) Connect(ctx context.Context) error {
	if c.provider == nil {
		c.setStatus(StatusProviderRequired)
		return ErrNoProvider
	}

	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		c.logger.Warn("account authorization failed", "error", err)
		c.setStatus(fmt.Sprintf("Error connecting account: %v", err))
		return fmt.Errorf("connect: %w", err)
	}

	c.applyAccounts(accounts)
	c.initialRefresh(ctx)
	return nil
}

// Refresh reads the book name and stock through the binding and
// atomically replaces the snapshot. A failed read keeps the previous
// snapshot; the next render re-triggers the fetch.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	binding := c.binding
	c.mu.Unlock()
	if binding == nil {
		return ErrNotConnected
	}

	name, err := binding.BookName(ctx)
	if err != nil {
		return fmt.Errorf("refresh name: %w", err)
	}
	stock, err := binding.Stock(ctx)
	if err != nil {
		return fmt.Errorf("refresh stock: %w", err)
	}

	c.mu.Lock()
	c.book = models.Book{Name: name, Stock: stock}
	c.mu.Unlock()
	c.notify()
	return nil
}

// Buy purchases quantity books, attaching quantity x unit price as the
// payable amount.
func (c *Controller) Buy(ctx context.Context, quantity uint64) error {
	return c.execute(ctx, models.Intent{Kind: models.KindBuy, Quantity: quantity})
}

// Return returns quantity books under the configured gas ceiling.
func (c *Controller) Return(ctx context.Context, quantity uint64) error {
	return c.execute(ctx, models.Intent{Kind: models.KindReturn, Quantity: quantity})
}

// execute runs one transaction intent through submission, confirmation
// wait, snapshot refresh, and status reporting. Only one intent may be
// in flight at a time.
func (c *Controller) execute(ctx context.Context, intent models.Intent) error {
	if intent.Quantity == 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	if c.binding == nil || c.session == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.inflight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.inflight = true
	binding := c.binding
	c.status.Clear()
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		c.inflight = false
		c.mu.Unlock()
	}()

	logger := c.logger.With("kind", string(intent.Kind), "quantity", intent.Quantity)

	var (
		tx     *types.Transaction
		amount *big.Int
		err    error
	)
	switch intent.Kind {
	case models.KindBuy:
		amount = new(big.Int).Mul(new(big.Int).SetUint64(intent.Quantity), c.cfg.UnitPriceWei)
		tx, err = binding.BuyBook(ctx, intent.Quantity, amount)
	case models.KindReturn:
		tx, err = binding.ReturnBook(ctx, intent.Quantity, c.cfg.ReturnGasLimit)
	default:
		err = fmt.Errorf("unknown intent kind %q", intent.Kind)
	}
	if err != nil {
		return c.fail(logger, intent, err)
	}

	receipt, err := binding.WaitMined(ctx, tx)
	if err != nil {
		return c.fail(logger, intent, err)
	}

	// The snapshot is stale now that the call took effect; re-fetch
	// before reporting success.
	if err := c.Refresh(ctx); err != nil {
		logger.Warn("post-confirmation refresh failed", "error", err)
	}

	if c.ops != nil {
		op := &models.Operation{
			ID:          uuid.NewString(),
			Kind:        intent.Kind,
			Quantity:    intent.Quantity,
			Amount:      amount,
			TxHash:      tx.Hash(),
			Account:     binding.From(),
			BlockNumber: receipt.BlockNumber.Uint64(),
			Timestamp:   time.Now(),
		}
		if err := c.ops.Record(op); err != nil {
			logger.Warn("record operation failed", "error", err)
		}
	}

	c.setStatus(successMessage(intent.Kind))
	logger.Info("operation confirmed",
		"tx_hash", tx.Hash().Hex(),
		"block", receipt.BlockNumber,
	)
	return nil
}

// fail classifies a transaction failure into the declined or generic
// bucket, reports it, and leaves the snapshot untouched.
func (c *Controller) fail(logger *slog.Logger, intent models.Intent, err error) error {
	declined := errors.Is(err, wallet.ErrDeclined)
	c.setStatus(failureMessage(intent.Kind, declined))
	if declined {
		logger.Info("operation declined by user")
	} else {
		logger.Error("operation failed", "error", err)
	}
	return err
}

// applyAccounts applies the first-entry-or-clear rule and re-derives
// the binding whenever the session account changes. A cleared session
// also drops the binding: it must never outlive its signer.
func (c *Controller) applyAccounts(accounts []common.Address) {
	c.mu.Lock()
	if len(accounts) == 0 {
		c.session = nil
		c.binding = nil
	} else {
		first := accounts[0]
		if c.session == nil || *c.session != first {
			c.session = &first
			c.binding = ledger.Bind(c.backend, c.contract, c.provider, first, c.cfg.ReceiptPollInterval)
		}
	}
	c.mu.Unlock()
	c.notify()
}

// initialRefresh fetches the snapshot the first time a session connects
// while the stock is still at its uninitialized value. Errors are left
// to the lazy-retry path.
func (c *Controller) initialRefresh(ctx context.Context) {
	c.mu.Lock()
	needed := c.binding != nil && c.book.Stock == 0
	c.mu.Unlock()
	if !needed {
		return
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial refresh failed", "error", err)
	}
}

func (c *Controller) setStatus(msg string) {
	c.mu.Lock()
	c.status.Set(msg)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

func successMessage(kind models.TxKind) string {
	if kind == models.KindBuy {
		return StatusBuySuccess
	}
	return StatusReturnSuccess
}

func failureMessage(kind models.TxKind, declined bool) string {
	switch {
	case kind == models.KindBuy && declined:
		return StatusBuyDeclined
	case kind == models.KindBuy:
		return StatusBuyFailed
	case declined:
		return StatusReturnDeclined
	default:
		return StatusReturnFailed
	}
}
