package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:           60,
		ShutdownBudgetSeconds:  90,
		APIPort:                8080,
		ClaudeAPIKey:           "sk-test-key",
		ClaudeModel:            "claude-sonnet-4-20250514",
		DecisionTimeoutSeconds: 60,
		MaxReasonLen:           2000,
		SLARefreshSeconds:      300,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
	if c.DecisionTimeoutSeconds != 60 {
		t.Errorf("DecisionTimeoutSeconds = %d, want 60", c.DecisionTimeoutSeconds)
	}
	if c.MaxReasonLen != 2000 {
		t.Errorf("MaxReasonLen = %d, want 2000", c.MaxReasonLen)
	}
	if c.SLARefreshSeconds != 300 {
		t.Errorf("SLARefreshSeconds = %d, want 300", c.SLARefreshSeconds)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-api-token", "tok-override",
		"-claude-api-key", "sk-override",
		"-claude-model", "claude-opus-4-20250514",
		"-database-url", "postgres://localhost/claimflow",
		"-evidence-dir", "/var/lib/claimflow/evidence",
		"-decision-timeout-seconds", "30",
		"-sla-refresh-seconds", "0",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.APIToken != "tok-override" {
		t.Errorf("APIToken = %q, want %q", c.APIToken, "tok-override")
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q, want %q", c.ClaudeAPIKey, "sk-override")
	}
	if c.ClaudeModel != "claude-opus-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-opus-4-20250514")
	}
	if c.DatabaseURL != "postgres://localhost/claimflow" {
		t.Errorf("DatabaseURL = %q", c.DatabaseURL)
	}
	if c.EvidenceDir != "/var/lib/claimflow/evidence" {
		t.Errorf("EvidenceDir = %q", c.EvidenceDir)
	}
	if c.DecisionTimeoutSeconds != 30 {
		t.Errorf("DecisionTimeoutSeconds = %d, want 30", c.DecisionTimeoutSeconds)
	}
	if c.SLARefreshSeconds != 0 {
		t.Errorf("SLARefreshSeconds = %d, want 0", c.SLARefreshSeconds)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "base is valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "minimum valid values",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 1, 2, 1
				c.DecisionTimeoutSeconds, c.MaxReasonLen, c.SLARefreshSeconds = 1, 1, 0
			},
			wantErr: false,
		},
		{
			name: "maximum valid values",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 299, 300, 65535
				c.DecisionTimeoutSeconds, c.MaxReasonLen, c.SLARefreshSeconds = 600, 10000, 86400
			},
			wantErr: false,
		},
		{
			name:      "drain zero",
			mutate:    func(c *Config) { c.DrainSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			mutate:    func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 301, 302 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "budget zero",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget equals drain",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = c.DrainSeconds },
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "budget less than drain",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 30 },
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "port zero",
			mutate:    func(c *Config) { c.APIPort = 0 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			mutate:    func(c *Config) { c.APIPort = 65536 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "empty claude api key",
			mutate:    func(c *Config) { c.ClaudeAPIKey = "" },
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name:      "empty claude model",
			mutate:    func(c *Config) { c.ClaudeModel = "" },
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
		{
			name:      "decision timeout zero",
			mutate:    func(c *Config) { c.DecisionTimeoutSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DECISION_TIMEOUT_SECONDS"},
		},
		{
			name:      "decision timeout above max",
			mutate:    func(c *Config) { c.DecisionTimeoutSeconds = 601 },
			wantErr:   true,
			errSubstr: []string{"DECISION_TIMEOUT_SECONDS"},
		},
		{
			name:      "max reason len zero",
			mutate:    func(c *Config) { c.MaxReasonLen = 0 },
			wantErr:   true,
			errSubstr: []string{"MAX_REASON_LEN"},
		},
		{
			name:      "sla refresh negative",
			mutate:    func(c *Config) { c.SLARefreshSeconds = -1 },
			wantErr:   true,
			errSubstr: []string{"SLA_REFRESH_SECONDS"},
		},
		{
			name: "all fields invalid",
			mutate: func(c *Config) {
				*c = Config{}
			},
			wantErr: true,
			errSubstr: []string{
				"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT",
				"CLAUDE_API_KEY", "CLAUDE_MODEL", "DECISION_TIMEOUT_SECONDS", "MAX_REASON_LEN",
			},
		},
		{
			name: "extreme negative values",
			mutate: func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = math.MinInt32, math.MinInt32, math.MinInt32
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validBase()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, timeout, reasonLen, refresh int
		key, model                                       string
	}{
		{60, 90, 8080, 60, 2000, 300, "sk-test", "claude-sonnet"},
		{1, 2, 1, 1, 1, 0, "k", "m"},
		{299, 300, 65535, 600, 10000, 86400, "k", "m"},
		{0, 0, 0, 0, 0, 0, "", ""},
		{-1, -1, -1, -1, -1, -1, "", ""},
		{150, 100, 8080, 60, 2000, 300, "k", "m"},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.timeout, s.reasonLen, s.refresh, s.key, s.model)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, timeout, reasonLen, refresh int, key, model string) {
		c := Config{
			DrainSeconds:           drain,
			ShutdownBudgetSeconds:  budget,
			APIPort:                port,
			DecisionTimeoutSeconds: timeout,
			MaxReasonLen:           reasonLen,
			SLARefreshSeconds:      refresh,
			ClaudeAPIKey:           key,
			ClaudeModel:            model,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		keyOK := key != ""
		modelOK := model != ""
		timeoutOK := timeout >= 1 && timeout <= 600
		reasonOK := reasonLen >= 1 && reasonLen <= 10000
		refreshOK := refresh >= 0 && refresh <= 86400

		allValid := drainOK && budgetOK && portOK && crossOK && keyOK && modelOK && timeoutOK && reasonOK && refreshOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
