// Command ledgerctl administers the reference SQL ledger.
//
//	ledgerctl create <account> <initial balance>
//	ledgerctl balance <account>
//	ledgerctl deposit <account> <amount>
package main

import (
	"context"
	"fmt"
	"os"

	"example/marketplace/internal/config"
	"example/marketplace/internal/ledger"
	"example/marketplace/internal/logger"
	"example/marketplace/internal/server"

	"github.com/shopspring/decimal"
)

func main() {
	logger.InitLoggerDev()
	defer logger.Sync()

	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: ledgerctl create|balance|deposit <account> [amount]")
		os.Exit(2)
	}

	cfg := config.Load()
	db, err := server.OpenDatabase(cfg.DB)
	if err != nil {
		logger.Log.Fatalw("Failed to initialize database", "error", err)
	}
	defer server.CloseDatabase(db)

	ctx := context.Background()
	bank := ledger.NewSQLBank(db)
	if err := bank.CreateSchema(ctx); err != nil {
		logger.Log.Fatalw("Failed to create ledger schema", "error", err)
	}

	op, account := os.Args[1], os.Args[2]
	amount := decimal.Zero
	if len(os.Args) > 3 {
		if amount, err = decimal.NewFromString(os.Args[3]); err != nil {
			logger.Log.Fatalw("Bad amount", "amount", os.Args[3], "error", err)
		}
	}

	switch op {
	case "create":
		err = bank.CreateAccount(ctx, account, amount)
	case "deposit":
		err = bank.Deposit(ctx, account, amount)
	case "balance":
	default:
		logger.Log.Fatalw("Unknown operation", "op", op)
	}
	if err != nil {
		logger.Log.Fatalw("Ledger operation failed", "op", op, "account", account, "error", err)
	}

	bal, err := bank.Balance(ctx, account)
	if err != nil {
		logger.Log.Fatalw("Balance lookup failed", "account", account, "error", err)
	}
	fmt.Printf("%s: %s\n", account, bal.StringFixed(2))
}
