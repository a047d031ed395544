package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Book is the last-fetched view of the tracked store record.
// Mutated only by a successful read-refresh; stale after any
// state-changing call until re-fetched.
type Book struct {
	Name  string `json:"name"`
	Stock uint64 `json:"stock"`
}

// TxKind identifies the kind of state-changing call.
type TxKind string

// Supported store operations.
const (
	KindBuy    TxKind = "BUY"
	KindReturn TxKind = "RETURN"
)

// Intent is a user request to buy or return books. It exists only for
// the duration of one orchestrated call.
type Intent struct {
	Kind     TxKind `json:"kind"`
	Quantity uint64 `json:"quantity"`
}

// Operation records one confirmed state-changing call.
type Operation struct {
	ID          string         `json:"id"`
	Kind        TxKind         `json:"kind"`
	Quantity    uint64         `json:"quantity"`
	Amount      *big.Int       `json:"amount,omitempty"` // wei attached to the call, buys only
	TxHash      common.Hash    `json:"tx_hash"`
	Account     common.Address `json:"account"`
	BlockNumber uint64         `json:"block_number"`
	Timestamp   time.Time      `json:"timestamp"`
}
