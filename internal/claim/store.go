package claim

import (
	"context"

	"github.com/linnemanlabs/claimflow/internal/fulfillment"
	"github.com/linnemanlabs/claimflow/internal/sla"
)

// Store is the persistence boundary for the claims engine. Implementations
// must make BeginDecision a single atomic conditional update and must apply
// transitions guarded on the expected current status, so that no status
// update ever commits without its history entry.
type Store interface {
	CreateClaim(ctx context.Context, c *Claim) error
	GetClaim(ctx context.Context, id string) (*Claim, bool, error)
	ListOpenClaims(ctx context.Context) ([]*Claim, error)

	// ApplyTransition persists the claim's new status (and decision fields)
	// together with the history entry in one atomic write, conditional on
	// the stored status still being from. Returns ErrTransitionConflict if
	// the claim moved underneath the caller.
	ApplyTransition(ctx context.Context, c *Claim, from Status, entry *HistoryEntry) error
	History(ctx context.Context, claimID string) ([]HistoryEntry, error)

	AddEvidence(ctx context.Context, doc *EvidenceDocument) error
	EvidenceTypes(ctx context.Context, claimID string) (map[EvidenceType]bool, error)

	// BeginDecision atomically claims the right to run automated triage:
	// it sets decision_started only if the claim is still notified and the
	// flag is unset. Exactly one of two racing uploads wins.
	BeginDecision(ctx context.Context, claimID string) (bool, error)
	// ClearDecision releases the flag after a classifier failure so the
	// claim stays retryable in notified.
	ClearDecision(ctx context.Context, claimID string) error

	CreateFulfillment(ctx context.Context, f *fulfillment.Fulfillment) error
	GetFulfillment(ctx context.Context, claimID string) (*fulfillment.Fulfillment, bool, error)
	UpdateFulfillment(ctx context.Context, f *fulfillment.Fulfillment) error
	AddRepairCost(ctx context.Context, rc *fulfillment.RepairCost) error
	RepairCosts(ctx context.Context, fulfillmentID string) ([]fulfillment.RepairCost, error)

	GetPolicy(ctx context.Context, id string) (*Policy, bool, error)
	GetProduct(ctx context.Context, id string) (*Product, bool, error)

	SLAEntries(ctx context.Context) ([]sla.Entry, error)
}
