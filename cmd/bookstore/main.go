package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	"github.com/olehkaliuzhnyi/bookstore-demo/internal/config"
	"github.com/olehkaliuzhnyi/bookstore-demo/internal/controller"
	"github.com/olehkaliuzhnyi/bookstore-demo/internal/storage"
	"github.com/olehkaliuzhnyi/bookstore-demo/internal/wallet"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg := config.FromEnv()

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", cfg.RPCURL, err)
	}
	defer client.Close()

	stdin := bufio.NewReader(os.Stdin)
	provider, detected := wallet.Detect(cfg.ChainID, cfg.AccountIndex, stdinApprover(stdin))
	if !detected {
		fmt.Printf("No wallet capability detected. Set %s to connect a wallet.\n", wallet.MnemonicEnv)
	}

	ctrl := controller.New(cfg, client, provider, storage.NewMemoryOperationStore())
	ctrl.Subscribe(func() { render(ctrl) })

	// Passive check for an already-authorized account.
	readCtx, cancel := context.WithTimeout(context.Background(), cfg.ContextTimeout)
	ctrl.RefreshAccounts(readCtx)
	cancel()

	fmt.Println("Book Portal: Step Into a World of Books")
	fmt.Println("Commands: connect, refresh, buy <n>, return <n>, log, quit")
	render(ctrl)

	for {
		fmt.Print("> ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "connect":
			readCtx, cancel := context.WithTimeout(context.Background(), cfg.ContextTimeout)
			if err := ctrl.Connect(readCtx); err != nil {
				fmt.Printf("connect failed: %v\n", err)
			}
			cancel()

		case "refresh":
			readCtx, cancel := context.WithTimeout(context.Background(), cfg.ContextTimeout)
			if err := ctrl.Refresh(readCtx); err != nil {
				fmt.Printf("refresh failed: %v\n", err)
			}
			cancel()

		case "buy", "return":
			quantity, err := parseQuantity(fields)
			if err != nil {
				fmt.Println(err)
				continue
			}
			// Confirmation waits are bounded by the chain, not by the
			// read timeout.
			if fields[0] == "buy" {
				err = ctrl.Buy(context.Background(), quantity)
			} else {
				err = ctrl.Return(context.Background(), quantity)
			}
			if err != nil {
				fmt.Printf("%s failed: %v\n", fields[0], err)
			}

		case "log":
			ops, err := ctrl.Operations()
			if err != nil {
				fmt.Printf("log failed: %v\n", err)
				continue
			}
			for _, op := range ops {
				fmt.Printf("%s  %-6s x%d  tx=%s block=%d\n",
					op.Timestamp.Format("15:04:05"), op.Kind, op.Quantity, op.TxHash.Hex(), op.BlockNumber)
			}

		case "quit", "exit":
			return

		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

// stdinApprover answers authorization prompts from the terminal.
func stdinApprover(stdin *bufio.Reader) wallet.ApproveFunc {
	return func(ctx context.Context, req wallet.Approval) bool {
		if req.Tx != nil {
			fmt.Printf("Authorize transaction to %s (value %s wei, gas %d)? [y/N]: ",
				req.Tx.To().Hex(), req.Tx.Value(), req.Tx.Gas())
		} else {
			fmt.Print("Authorize account access? [y/N]: ")
		}
		line, err := stdin.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

func parseQuantity(fields []string) (uint64, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("usage: %s <quantity>", fields[0])
	}
	quantity, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil || quantity == 0 {
		return 0, fmt.Errorf("quantity must be a positive integer")
	}
	return quantity, nil
}

func render(ctrl *controller.Controller) {
	if account, ok := ctrl.Account(); ok {
		fmt.Printf("Your Account: %s\n", account.Hex())
	} else {
		fmt.Println("Not connected.")
	}

	book := ctrl.Book()
	if book.Name != "" {
		fmt.Printf("Book: %s\nStock: %d\n", book.Name, book.Stock)
	}

	if msg := ctrl.Status(); msg != "" {
		fmt.Printf("** %s **\n", msg)
	}
}
