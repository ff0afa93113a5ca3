package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds           int
	ShutdownBudgetSeconds  int
	APIPort                int
	APIToken               string
	ClaudeAPIKey           string
	ClaudeModel            string
	DatabaseURL            string
	SlackWebhookURL        string
	EvidenceDir            string
	DecisionTimeoutSeconds int
	MaxReasonLen           int
	SLARefreshSeconds      int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API routes (empty = no auth)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for decision notifications")
	fs.StringVar(&c.EvidenceDir, "evidence-dir", "", "directory for evidence document storage (empty = in-memory)")
	fs.IntVar(&c.DecisionTimeoutSeconds, "decision-timeout-seconds", 60, "per-claim classifier call timeout (1..600)")
	fs.IntVar(&c.MaxReasonLen, "max-reason-len", 2000, "maximum stored length of a classifier reason (1..10000)")
	fs.IntVar(&c.SLARefreshSeconds, "sla-refresh-seconds", 300, "interval for reloading SLA configuration from the store (0 = load once at startup)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Claude API key is required for automated decisioning
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for automated decisioning
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.DecisionTimeoutSeconds <= 0 || c.DecisionTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid DECISION_TIMEOUT_SECONDS %d (must be 1..600)", c.DecisionTimeoutSeconds))
	}

	if c.MaxReasonLen <= 0 || c.MaxReasonLen > 10000 {
		errs = append(errs, fmt.Errorf("invalid MAX_REASON_LEN %d (must be 1..10000)", c.MaxReasonLen))
	}

	if c.SLARefreshSeconds < 0 || c.SLARefreshSeconds > 86400 {
		errs = append(errs, fmt.Errorf("invalid SLA_REFRESH_SECONDS %d (must be 0..86400)", c.SLARefreshSeconds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
