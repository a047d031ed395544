// bookstore-deploy instantiates the BookStore contract with an initial
// (name, stock) pair and prints the resulting address. One-shot: exits
// 0 on success, 1 on any error.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	"github.com/olehkaliuzhnyi/bookstore-demo/internal/config"
	"github.com/olehkaliuzhnyi/bookstore-demo/internal/ledger"
	"github.com/olehkaliuzhnyi/bookstore-demo/internal/wallet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	name := flag.String("name", "Sample Book", "initial book name")
	stock := flag.Uint64("stock", 100, "initial stock count")
	binPath := flag.String("bin", "artifacts/BookStore.bin", "path to the compiled contract bytecode (hex)")
	flag.Parse()

	cfg := config.FromEnv()

	// The bootstrap signs without prompting.
	autoApprove := func(ctx context.Context, req wallet.Approval) bool { return true }
	provider, ok := wallet.Detect(cfg.ChainID, cfg.AccountIndex, autoApprove)
	if !ok {
		return fmt.Errorf("no deployer wallet: set %s", wallet.MnemonicEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ContextTimeout)
	defer cancel()

	accounts, err := provider.RequestAccounts(ctx)
	if err != nil {
		return fmt.Errorf("authorize deployer: %w", err)
	}
	from := accounts[0]

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.RPCURL, err)
	}
	defer client.Close()

	bytecode, err := readBytecode(*binPath)
	if err != nil {
		return err
	}

	parsed, err := abi.JSON(strings.NewReader(ledger.StoreABI))
	if err != nil {
		return fmt.Errorf("parse ABI: %w", err)
	}
	ctorArgs, err := parsed.Pack("", *name, new(big.Int).SetUint64(*stock))
	if err != nil {
		return fmt.Errorf("pack constructor: %w", err)
	}
	data := append(bytecode, ctorArgs...)

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, Data: data})
	if err != nil {
		return fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		Gas:      gas,
		GasPrice: gasPrice,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := provider.SignTx(ctx, from, tx)
	if err != nil {
		return fmt.Errorf("sign deployment: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send deployment: %w", err)
	}

	receipt, err := waitMined(ctx, client, signed, cfg.ReceiptPollInterval)
	if err != nil {
		return err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return fmt.Errorf("deployment transaction %s reverted", signed.Hash().Hex())
	}

	fmt.Printf("BookStore deployed to: %s\n", receipt.ContractAddress.Hex())
	return nil
}

func readBytecode(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bytecode: %w", err)
	}
	s := strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x")
	code, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}
	return code, nil
}

func waitMined(ctx context.Context, client *ethclient.Client, tx *types.Transaction, interval time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			log.Printf("receipt query failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
