package ledger

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/olehkaliuzhnyi/bookstore-demo/internal/wallet"
)

var (
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testAccount  = common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
)

// mockBackend simulates the chain surface needed by the binding.
type mockBackend struct {
	mu        sync.Mutex
	name      string
	stock     *big.Int
	nonce     uint64
	gasEst    uint64
	estimates int
	sent      []*types.Transaction
	receipts  map[common.Hash]*types.Receipt
	callErr   error
	sendErr   error
}

func newMockBackend(name string, stock int64) *mockBackend {
	return &mockBackend{
		name:     name,
		stock:    big.NewInt(stock),
		gasEst:   60_000,
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (m *mockBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return nil, m.callErr
	}
	if *msg.To != testContract {
		return nil, errors.New("unexpected call target")
	}

	switch {
	case bytes.Equal(msg.Data[:4], storeABI.Methods["bookName"].ID):
		return storeABI.Methods["bookName"].Outputs.Pack(m.name)
	case bytes.Equal(msg.Data[:4], storeABI.Methods["stock"].ID):
		return storeABI.Methods["stock"].Outputs.Pack(m.stock)
	}
	return nil, errors.New("unknown method")
}

func (m *mockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonce, nil
}

func (m *mockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (m *mockBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estimates++
	return m.gasEst, nil
}

func (m *mockBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, tx)
	m.nonce++
	return nil
}

func (m *mockBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	receipt, ok := m.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (m *mockBackend) setReceipt(txHash common.Hash, status uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[txHash] = &types.Receipt{Status: status, BlockNumber: big.NewInt(1), TxHash: txHash}
}

// mockProvider signs nothing; it returns the transaction as-is unless
// told to decline.
type mockProvider struct {
	decline bool
}

func (p *mockProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{testAccount}, nil
}

func (p *mockProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{testAccount}, nil
}

func (p *mockProvider) SignTx(ctx context.Context, from common.Address, tx *types.Transaction) (*types.Transaction, error) {
	if p.decline {
		return nil, wallet.ErrDeclined
	}
	return tx, nil
}

func newTestBinding(backend Backend) *Binding {
	return Bind(backend, testContract, &mockProvider{}, testAccount, 10*time.Millisecond)
}

func TestBinding_Reads(t *testing.T) {
	backend := newMockBackend("The Go Programming Language", 100)
	b := newTestBinding(backend)
	ctx := context.Background()

	name, err := b.BookName(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if name != "The Go Programming Language" {
		t.Errorf("BookName() = %q", name)
	}

	stock, err := b.Stock(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stock != 100 {
		t.Errorf("Stock() = %d, want 100", stock)
	}
}

func TestBinding_ReadError(t *testing.T) {
	backend := newMockBackend("x", 1)
	backend.callErr = errors.New("rpc down")
	b := newTestBinding(backend)

	if _, err := b.BookName(context.Background()); err == nil {
		t.Fatal("expected read error")
	}
}

func TestBinding_BuyBook(t *testing.T) {
	backend := newMockBackend("x", 100)
	b := newTestBinding(backend)

	value := big.NewInt(30_000_000_000_000_000) // 3 books at 0.01 ether
	tx, err := b.BuyBook(context.Background(), 3, value)
	if err != nil {
		t.Fatal(err)
	}

	if len(backend.sent) != 1 {
		t.Fatalf("expected 1 broadcast transaction, got %d", len(backend.sent))
	}
	if tx.Value().Cmp(value) != 0 {
		t.Errorf("tx value = %s, want %s", tx.Value(), value)
	}
	if *tx.To() != testContract {
		t.Errorf("tx target = %s, want contract", tx.To().Hex())
	}
	if tx.Gas() != backend.gasEst {
		t.Errorf("buy should use estimated gas, got %d", tx.Gas())
	}
	if !bytes.Equal(tx.Data()[:4], storeABI.Methods["buyBook"].ID) {
		t.Error("calldata does not select buyBook")
	}
}

func TestBinding_ReturnBook(t *testing.T) {
	backend := newMockBackend("x", 100)
	b := newTestBinding(backend)

	tx, err := b.ReturnBook(context.Background(), 2, 100_000)
	if err != nil {
		t.Fatal(err)
	}

	if tx.Gas() != 100_000 {
		t.Errorf("return should use the fixed gas ceiling, got %d", tx.Gas())
	}
	if backend.estimates != 0 {
		t.Error("return must not estimate gas")
	}
	if tx.Value().Sign() != 0 {
		t.Errorf("return must not attach value, got %s", tx.Value())
	}
	if !bytes.Equal(tx.Data()[:4], storeABI.Methods["returnBook"].ID) {
		t.Error("calldata does not select returnBook")
	}
}

func TestBinding_TransactDeclined(t *testing.T) {
	backend := newMockBackend("x", 100)
	b := Bind(backend, testContract, &mockProvider{decline: true}, testAccount, 10*time.Millisecond)

	_, err := b.BuyBook(context.Background(), 1, big.NewInt(1))
	if !errors.Is(err, wallet.ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
	if len(backend.sent) != 0 {
		t.Error("declined transaction must not be broadcast")
	}
}

func TestBinding_WaitMined(t *testing.T) {
	backend := newMockBackend("x", 100)
	b := newTestBinding(backend)
	ctx := context.Background()

	tx, err := b.ReturnBook(ctx, 1, 100_000)
	if err != nil {
		t.Fatal(err)
	}

	// Receipt shows up after a couple of polls.
	go func() {
		time.Sleep(30 * time.Millisecond)
		backend.setReceipt(tx.Hash(), types.ReceiptStatusSuccessful)
	}()

	receipt, err := b.WaitMined(ctx, tx)
	if err != nil {
		t.Fatal(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Errorf("receipt status = %d", receipt.Status)
	}
}

func TestBinding_WaitMinedReverted(t *testing.T) {
	backend := newMockBackend("x", 100)
	b := newTestBinding(backend)
	ctx := context.Background()

	tx, err := b.ReturnBook(ctx, 1, 100_000)
	if err != nil {
		t.Fatal(err)
	}
	backend.setReceipt(tx.Hash(), types.ReceiptStatusFailed)

	if _, err := b.WaitMined(ctx, tx); !errors.Is(err, ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
}

func TestBinding_WaitMinedContextCancelled(t *testing.T) {
	backend := newMockBackend("x", 100)
	b := newTestBinding(backend)

	tx, err := b.ReturnBook(context.Background(), 1, 100_000)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := b.WaitMined(ctx, tx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
