package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/config"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/models"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/storage/backend"
)

const usage = `walletctl maintains the tracked wallet registry.

Usage:
  walletctl [-driver postgres|sqlite] [-sqlite path] <command> [args]

Commands:
  add <address> <name> <category>   add or replace a tracked wallet
  remove <address>                  stop tracking a wallet
  list                              list tracked wallets
  history <wallet> <mint>           show the trade count for a pair
`

var errUsage = errors.New("invalid usage")

func main() {
	driverFlag := flag.String("driver", "", "store driver (defaults to STORE_DRIVER)")
	sqliteFlag := flag.String("sqlite", "", "sqlite database path (defaults to SQLITE_PATH)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_ = godotenv.Load()

	cfg := config.Load()
	if *driverFlag != "" {
		cfg.StoreDriver = strings.ToLower(*driverFlag)
	}
	if *sqliteFlag != "" {
		cfg.SQLitePath = *sqliteFlag
	}
	if cfg.StoreDriver == config.DriverMemory {
		logger.Fatal("walletctl needs a persistent store, use postgres or sqlite")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer store.Close()

	if err := run(ctx, store, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		logger.WithError(err).Error("walletctl failed")
		store.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, store storage.Store, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "add":
		if len(rest) != 3 {
			return fmt.Errorf("add takes <address> <name> <category>: %w", errUsage)
		}
		address, err := parseAddress(rest[0])
		if err != nil {
			return err
		}
		w := models.Wallet{
			Address:  address,
			Name:     strings.TrimSpace(rest[1]),
			Category: strings.TrimSpace(rest[2]),
		}
		if w.Name == "" || w.Category == "" {
			return fmt.Errorf("name and category are required: %w", errUsage)
		}
		if err := store.UpsertWallet(ctx, w); err != nil {
			return err
		}
		fmt.Fprintf(out, "tracking %s as %s (%s)\n", w.Address, w.Name, w.Category)
		return nil

	case "remove":
		if len(rest) != 1 {
			return fmt.Errorf("remove takes <address>: %w", errUsage)
		}
		address, err := parseAddress(rest[0])
		if err != nil {
			return err
		}
		if err := store.DeleteWallet(ctx, address); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%s is not tracked", address)
			}
			return err
		}
		fmt.Fprintf(out, "removed %s\n", address)
		return nil

	case "list":
		wallets, err := store.ListWallets(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ADDRESS\tNAME\tCATEGORY")
		for _, w := range wallets {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", w.Address, w.Name, w.Category)
		}
		return tw.Flush()

	case "history":
		if len(rest) != 2 {
			return fmt.Errorf("history takes <wallet> <mint>: %w", errUsage)
		}
		wallet, err := parseAddress(rest[0])
		if err != nil {
			return err
		}
		mint, err := parseAddress(rest[1])
		if err != nil {
			return err
		}
		h, err := store.Get(ctx, wallet, mint)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Fprintln(out, "no history")
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "tx_count=%d updated_at=%s\n", h.TxCount, h.UpdatedAt.UTC().Format(time.RFC3339))
		return nil

	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func parseAddress(s string) (string, error) {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", s, err)
	}
	return pk.String(), nil
}
