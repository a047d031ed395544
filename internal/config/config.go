package config

import (
	"math/big"
	"os"
	"strconv"
	"time"
)

// Config holds all configurable parameters for the bookstore controller.
type Config struct {
	// Chain connection
	RPCURL  string
	ChainID int64

	// Fixed store contract address (printed by bookstore-deploy)
	ContractAddress string

	// Pricing policy: cost of one book in wei
	UnitPriceWei *big.Int

	// Gas ceiling applied to return calls
	ReturnGasLimit uint64

	// Confirmation wait
	ReceiptPollInterval time.Duration
	ContextTimeout      time.Duration

	// HD account index used by the headless wallet
	AccountIndex uint32
}

// Default returns a Config populated with default values. The contract
// address default is the first deployment address of a fresh local
// hardhat node.
func Default() Config {
	return Config{
		RPCURL:          "http://127.0.0.1:8545",
		ChainID:         31337,
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",

		UnitPriceWei:   big.NewInt(10_000_000_000_000_000), // 0.01 ether per book
		ReturnGasLimit: 100_000,

		ReceiptPollInterval: 1 * time.Second,
		ContextTimeout:      15 * time.Second,

		AccountIndex: 0,
	}
}

// FromEnv returns a Config populated from environment variables,
// falling back to defaults for unset values.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("BOOKSTORE_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("BOOKSTORE_CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ChainID = n
		}
	}
	if v := os.Getenv("BOOKSTORE_CONTRACT_ADDRESS"); v != "" {
		cfg.ContractAddress = v
	}
	if v := os.Getenv("BOOKSTORE_UNIT_PRICE_WEI"); v != "" {
		if price, ok := new(big.Int).SetString(v, 10); ok {
			cfg.UnitPriceWei = price
		}
	}
	if v := os.Getenv("BOOKSTORE_RETURN_GAS_LIMIT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.ReturnGasLimit = n
		}
	}
	if v := os.Getenv("BOOKSTORE_RECEIPT_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReceiptPollInterval = d
		}
	}
	if v := os.Getenv("BOOKSTORE_CONTEXT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ContextTimeout = d
		}
	}
	if v := os.Getenv("BOOKSTORE_ACCOUNT_INDEX"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.AccountIndex = uint32(n)
		}
	}

	return cfg
}
