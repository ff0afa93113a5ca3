package claim

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"
)

// Verdict is a categorical triage outcome from the automated path. The
// automated path never produces rejected; anything a classifier returns
// outside this set is coerced to VerdictReferred.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictReferred Verdict = "referred"
)

// ClassifyRequest is the context handed to the external decision capability.
type ClassifyRequest struct {
	ClaimNumber string        `json:"claim_number"`
	ClaimType   Type          `json:"claim_type"`
	ProductName string        `json:"product_name"`
	Coverage    []string      `json:"coverage"`
	Description string        `json:"description"`
	Evidence    EvidenceFlags `json:"evidence_flags"`
}

// EvidenceFlags summarizes which required evidence types are present.
type EvidenceFlags struct {
	HasPhoto   bool `json:"has_photo"`
	HasReceipt bool `json:"has_receipt"`
}

// Classifier is the narrow interface to the external decision capability.
// The decision comes back as a raw string so the adapter owns the contract
// check; errors from outages or rate limits should already be a
// *ClassifierUnavailableError so the orchestrator leaves the claim retryable.
type Classifier interface {
	Classify(ctx context.Context, req *ClassifyRequest) (decision, reason string, err error)
}

// Adapter wraps a Classifier with the engine's policy invariants: a bounded
// call timeout, reason truncation, and coercion of any out-of-contract
// verdict to referred. Uncertainty escalates to a human, never auto-denies.
type Adapter struct {
	classifier   Classifier
	timeout      time.Duration
	maxReasonLen int
	logger       log.Logger
	metrics      *Metrics
}

// NewAdapter creates a classifier adapter. A nil metrics is allowed in tests.
func NewAdapter(c Classifier, timeout time.Duration, maxReasonLen int, logger log.Logger, m *Metrics) *Adapter {
	if logger == nil {
		logger = log.Nop()
	}
	return &Adapter{
		classifier:   c,
		timeout:      timeout,
		maxReasonLen: maxReasonLen,
		logger:       logger,
		metrics:      m,
	}
}

// Classify calls the underlying classifier and enforces the verdict
// contract. On success the verdict is always in {accepted, referred}.
func (a *Adapter) Classify(ctx context.Context, req *ClassifyRequest) (Verdict, string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	decision, reason, err := a.classifier.Classify(ctx, req)
	if a.metrics != nil {
		a.metrics.ClassifierDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if a.metrics != nil {
			a.metrics.ClassifierFailures.Inc()
		}
		return "", "", err
	}

	if a.maxReasonLen > 0 && len(reason) > a.maxReasonLen {
		// back up to a rune boundary so the cut never leaves invalid UTF-8
		cut := a.maxReasonLen
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}

	verdict := Verdict(decision)
	if verdict != VerdictAccepted && verdict != VerdictReferred {
		// contract violation: recover locally, escalate to a human
		a.logger.Warn(ctx, "classifier returned out-of-contract decision, coercing to referred",
			"decision", decision,
			"claim_number", req.ClaimNumber,
		)
		if a.metrics != nil {
			a.metrics.CoercedVerdicts.Inc()
		}
		verdict = VerdictReferred
	}

	return verdict, reason, nil
}
