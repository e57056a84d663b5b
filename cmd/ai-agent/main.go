package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/ai"
	"github.com/aman-zulfiqar/solana-wallet-tracker/internal/config"
)

type asker interface {
	Ask(ctx context.Context, question string) (*ai.AskResult, error)
}

// ai-agent asks natural language questions about archived wallet trades,
// either once (-q) or interactively.
func main() {
	queryFlag := flag.String("q", "", "ask a single question and exit")
	modelFlag := flag.String("model", "", "OpenRouter model name (defaults to AI_MODEL)")
	timeoutFlag := flag.Duration("timeout", 45*time.Second, "per-question timeout")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.WarnLevel)

	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.OpenRouterAPIKey == "" {
		logger.Fatal("OPENROUTER_API_KEY is required")
	}
	if cfg.ClickHouseAddr == "" {
		logger.Fatal("CLICKHOUSE_ADDR is required, the agent reads the wallet_trades archive")
	}
	model := cfg.AIModel
	if *modelFlag != "" {
		model = *modelFlag
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              model,
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create ai agent")
	}
	defer agent.Close()

	if q := strings.TrimSpace(*queryFlag); q != "" {
		if err := ask(ctx, agent, q, *timeoutFlag, os.Stdout); err != nil {
			logger.WithError(err).Fatal("question failed")
		}
		return
	}

	repl(ctx, agent, *timeoutFlag, os.Stdin, os.Stdout)
}

func ask(ctx context.Context, a asker, q string, timeout time.Duration, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := a.Ask(ctx, q)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "SQL:\n%s\n\nAnswer:\n%s\n", res.SQL, res.Answer)
	return nil
}

func repl(ctx context.Context, a asker, timeout time.Duration, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "Wallet tracker AI agent. Ask about tracked wallet trades; empty line exits.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			fmt.Fprintln(out, "bye")
			return
		}

		err := ask(ctx, a, q, timeout, out)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			fmt.Fprintln(out, "error:", err)
		}
		fmt.Fprintln(out)
	}
}
