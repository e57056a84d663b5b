package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultModel   = "openai/gpt-4.1-mini"
	openRouterBase = "https://openrouter.ai/api/v1"
	maxResultRows  = 200
)

// AgentConfig holds configuration for the AI agent.
type AgentConfig struct {
	// ClickHouse connection settings.
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// OpenRouter / LLM settings.
	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	Logger *logrus.Logger
}

// Agent answers natural-language questions about tracked wallet activity by
// generating read-only SQL over wallet_trades.
type Agent struct {
	llm    llms.Model
	db     *sql.DB
	table  string
	logger *logrus.Logger
}

// NewAgent creates an Agent with its own ClickHouse and LLM clients.
func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL(openRouterBase),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse from AI agent: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.ClickHouseAddr,
		"database": cfg.ClickHouseDatabase,
		"model":    cfg.Model,
	}).Info("initialized AI agent")

	return newAgent(llm, db, cfg.ClickHouseDatabase, cfg.Logger), nil
}

func newAgent(llm llms.Model, db *sql.DB, database string, logger *logrus.Logger) *Agent {
	table := tradesTable
	if database != "" {
		table = database + "." + tradesTable
	}
	return &Agent{llm: llm, db: db, table: table, logger: logger}
}

// Close closes underlying resources.
func (a *Agent) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// AskResult is the structured result of an Ask call.
type AskResult struct {
	SQL    string
	Answer string
}

// Ask generates SQL for question, runs it and summarises the rows.
func (a *Agent) Ask(ctx context.Context, question string) (*AskResult, error) {
	sqlQuery, err := a.generateSQL(ctx, question)
	if err != nil {
		return nil, err
	}

	rowsJSON, err := a.runQuery(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}

	answer, err := a.summarise(ctx, question, sqlQuery, rowsJSON)
	if err != nil {
		return nil, err
	}

	return &AskResult{SQL: sqlQuery, Answer: answer}, nil
}

func (a *Agent) generateSQL(ctx context.Context, question string) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, a.llm, sqlPrompt(a.table, question), llms.WithMaxTokens(512))
	if err != nil {
		return "", fmt.Errorf("LLM SQL generation failed: %w", err)
	}

	sqlQuery := sanitizeSQL(resp)
	if err := validateSQL(sqlQuery, a.table); err != nil {
		return "", err
	}

	a.logger.WithField("sql", sqlQuery).Debug("generated SQL from question")
	return sqlQuery, nil
}

// runQuery executes sqlQuery and encodes at most maxResultRows rows as JSON.
func (a *Agent) runQuery(ctx context.Context, sqlQuery string) (string, error) {
	rows, err := a.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return "", fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("failed to get columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() && len(out) < maxResultRows {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return "", fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("row iteration error: %w", err)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}
	return string(data), nil
}

func (a *Agent) summarise(ctx context.Context, question, sqlQuery, rowsJSON string) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, a.llm, summaryPrompt(question, sqlQuery, rowsJSON), llms.WithMaxTokens(512))
	if err != nil {
		return "", fmt.Errorf("LLM summarisation failed: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

func sqlPrompt(table, question string) string {
	return fmt.Sprintf(`
You are an expert ClickHouse SQL generator.

Use ONLY the following table, referenced as %s:
%s

Rules:
- Return a single SELECT query in ClickHouse SQL, nothing else.
- Use processed_at for time filtering.
- Use count, sum, avg and uniqExact when appropriate.
- For "top" or "most" questions use ORDER BY ... DESC and LIMIT.
- Never modify data: no INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, TRUNCATE.

User question:
%s
`, table, tradesSchemaDescription, question)
}

func summaryPrompt(question, sqlQuery, rowsJSON string) string {
	return fmt.Sprintf(`
You are an assistant summarising on-chain activity of tracked Solana wallets.

User question:
%s

SQL that was executed:
%s

Query results in JSON (array of objects, can be empty):
%s

Instructions:
- If the result set is empty, say that no matching trades were found.
- Otherwise answer concisely in bullet points, naming wallets by wallet_name when present.
- Include key numbers (counts, amounts) rounded reasonably.
- Do not restate the raw JSON.
`, question, sqlQuery, rowsJSON)
}

// sanitizeSQL strips code fences, a leading "sql" tag and trailing semicolons.
func sanitizeSQL(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "sql") {
		s = s[3:]
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// validateSQL only admits a single SELECT reading table.
func validateSQL(s, table string) error {
	if s == "" {
		return errors.New("empty SQL generated by LLM")
	}

	upper := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if !strings.HasPrefix(upper, "SELECT ") && !strings.HasPrefix(upper, "WITH ") {
		return fmt.Errorf("only SELECT queries are allowed, got: %s", upper[:min(20, len(upper))])
	}

	for _, kw := range []string{
		"INSERT ", "UPDATE ", "DELETE ", "DROP ", "ALTER ", "TRUNCATE ",
		"CREATE ", "RENAME ", "ATTACH ", "DETACH ", "SYSTEM ", "GRANT ",
	} {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("disallowed SQL keyword %q in generated query", strings.TrimSpace(kw))
		}
	}

	if strings.Contains(s, ";") {
		return errors.New("multiple statements or semicolons are not allowed")
	}

	bare := strings.ToUpper(tradesTable)
	qualified := strings.ToUpper(table)
	if !strings.Contains(upper, "FROM "+bare) && !strings.Contains(upper, "FROM "+qualified) {
		return fmt.Errorf("query must target %s", table)
	}

	return nil
}
