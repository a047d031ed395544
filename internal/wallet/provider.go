package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tyler-smith/go-bip39"
)

// MnemonicEnv is the environment variable inspected by Detect.
const MnemonicEnv = "BOOKSTORE_WALLET_MNEMONIC"

// Detect inspects the host environment once for a wallet capability.
// If no usable mnemonic is present the system stays without a provider
// for the whole session; there is no polling or retry.
func Detect(chainID int64, index uint32, approve ApproveFunc) (Provider, bool) {
	mnemonic := os.Getenv(MnemonicEnv)
	if mnemonic == "" {
		return nil, false
	}

	p, err := NewHDProvider(mnemonic, chainID, index, approve)
	if err != nil {
		slog.Default().Warn("wallet capability present but unusable", "error", err)
		return nil, false
	}
	return p, true
}

// HDProvider is a headless wallet provider backed by a BIP-39 mnemonic.
// It holds a single derived account and answers the same surface a
// browser-injected provider would: passive account reads, interactive
// authorization, and per-transaction signing prompts.
type HDProvider struct {
	acct    *account
	signer  types.Signer
	approve ApproveFunc
	logger  *slog.Logger

	mu         sync.Mutex
	authorized bool
}

var _ Provider = (*HDProvider)(nil)

// NewHDProvider derives the account at the given index and returns an
// unauthorized provider. Authorization happens via RequestAccounts.
func NewHDProvider(mnemonic string, chainID int64, index uint32, approve ApproveFunc) (*HDProvider, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	if approve == nil {
		return nil, fmt.Errorf("approve callback is required")
	}

	seed := bip39.NewSeed(mnemonic, "")
	acct, err := deriveAccount(seed, index)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}

	return &HDProvider{
		acct:    acct,
		signer:  types.NewEIP155Signer(big.NewInt(chainID)),
		approve: approve,
		logger:  slog.Default().With("component", "wallet_provider"),
	}, nil
}

// Address returns the provider's derived account address.
func (p *HDProvider) Address() common.Address {
	return p.acct.address
}

// Accounts returns the authorized account list without prompting.
// Before authorization the list is empty.
func (p *HDProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authorized {
		return nil, nil
	}
	return []common.Address{p.acct.address}, nil
}

// RequestAccounts prompts for account authorization.
func (p *HDProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	if p.authorized {
		defer p.mu.Unlock()
		return []common.Address{p.acct.address}, nil
	}
	p.mu.Unlock()

	if !p.approve(ctx, Approval{Intent: "connect account"}) {
		p.logger.Info("account authorization declined")
		return nil, ErrDeclined
	}

	p.mu.Lock()
	p.authorized = true
	p.mu.Unlock()

	p.logger.Info("account authorized", "address", p.acct.address.Hex())
	return []common.Address{p.acct.address}, nil
}

// SignTx prompts for transaction authorization and signs on approval.
func (p *HDProvider) SignTx(ctx context.Context, from common.Address, tx *types.Transaction) (*types.Transaction, error) {
	p.mu.Lock()
	authorized := p.authorized
	p.mu.Unlock()

	if !authorized {
		return nil, fmt.Errorf("account %s is not authorized", from.Hex())
	}
	if from != p.acct.address {
		return nil, fmt.Errorf("unknown account %s", from.Hex())
	}

	if !p.approve(ctx, Approval{Intent: "sign transaction", From: from, Tx: tx}) {
		p.logger.Info("transaction authorization declined", "nonce", tx.Nonce())
		return nil, ErrDeclined
	}

	signed, err := types.SignTx(tx, p.signer, p.acct.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	p.logger.Info("transaction signed",
		"tx_hash", signed.Hash().Hex(),
		"nonce", signed.Nonce(),
	)
	return signed, nil
}
