package wallet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrDeclined is returned when the user rejects an authorization prompt,
// either for account access or for signing a transaction.
var ErrDeclined = errors.New("authorization declined")

// Provider defines the wallet capability consumed by the controller.
// It mirrors the injected-provider surface of a browser wallet:
// a passive account query, an interactive authorization request, and
// a signing capability for state-changing calls.
type Provider interface {
	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)

	// RequestAccounts interactively requests account authorization.
	// Returns ErrDeclined if the user rejects the prompt.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// SignTx asks the user to authorize and sign a transaction from the
	// given account. Returns ErrDeclined if the prompt is rejected.
	SignTx(ctx context.Context, from common.Address, tx *types.Transaction) (*types.Transaction, error)
}

// Approval describes a pending authorization prompt.
type Approval struct {
	// Intent is a human-readable description of what is being authorized.
	Intent string
	// From is the account involved, zero for account-access requests.
	From common.Address
	// Tx is the transaction awaiting signature, nil for account-access requests.
	Tx *types.Transaction
}

// ApproveFunc answers an authorization prompt. Returning false declines it.
// In production this is the wallet UI; tests inject their own.
type ApproveFunc func(ctx context.Context, req Approval) bool
