package claim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/claimflow/internal/blob"
	"github.com/linnemanlabs/claimflow/internal/fulfillment"
	"github.com/linnemanlabs/claimflow/internal/sla"
)

// Service is the business boundary for claims lifecycle operations: the
// evidence gate, the decision orchestrator, manual transitions, and
// fulfillment progression.
type Service struct {
	store    Store
	adapter  *Adapter
	blobs    blob.Store
	sla      *sla.Table
	notifier Notifier
	logger   log.Logger
	metrics  *Metrics
}

// NewService creates a new claims service. notifier and metrics may be nil.
func NewService(store Store, adapter *Adapter, blobs blob.Store, slaTable *sla.Table, notifier Notifier, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		adapter:  adapter,
		blobs:    blobs,
		sla:      slaTable,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// SubmitRequest is the input for creating a new claim.
type SubmitRequest struct {
	Type        Type   `json:"type"`
	PolicyID    string `json:"policy_id"`
	Description string `json:"description,omitempty"`
}

// Submit creates a new claim in the initial notified state.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	switch req.Type {
	case TypeBreakdown, TypeDamage, TypeTheft:
	default:
		return nil, fmt.Errorf("invalid claim type %q", req.Type)
	}

	policy, ok, err := s.store.GetPolicy(ctx, req.PolicyID)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("policy %q not found", req.PolicyID)
	}

	id := ulid.Make().String()
	now := time.Now()
	c := &Claim{
		ID:              id,
		Number:          "CLM-" + id[len(id)-8:],
		Type:            req.Type,
		Status:          StatusNotified,
		Description:     req.Description,
		PolicyID:        policy.ID,
		ProgramID:       policy.ProgramID,
		SubmittedAt:     now,
		StatusChangedAt: now,
	}

	if err := s.store.CreateClaim(ctx, c); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}

	s.logger.Info(ctx, "claim submitted",
		"claim_id", c.ID,
		"claim_number", c.Number,
		"claim_type", c.Type,
		"policy_id", c.PolicyID,
	)

	return &SubmitResult{ID: c.ID, Number: c.Number}, nil
}

// Get retrieves a claim by ID.
func (s *Service) Get(ctx context.Context, id string) (*Claim, bool, error) {
	return s.store.GetClaim(ctx, id)
}

// History retrieves the append-only status audit trail for a claim.
func (s *Service) History(ctx context.Context, claimID string) ([]HistoryEntry, error) {
	return s.store.History(ctx, claimID)
}

// UploadEvidence stores an evidence document and runs the evidence gate:
// when the upload completes the required set and the claim is still
// notified, exactly one upload wins the atomic BeginDecision guard and
// automated triage is kicked off asynchronously.
func (s *Service) UploadEvidence(ctx context.Context, claimID string, docType EvidenceType, content io.Reader) (*UploadResult, error) {
	switch docType {
	case EvidencePhoto, EvidenceReceipt, EvidenceOther:
	default:
		return nil, fmt.Errorf("invalid evidence type %q", docType)
	}

	c, ok, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("load claim: %w", err)
	}
	if !ok {
		return nil, ErrClaimNotFound
	}

	docID := ulid.Make().String()
	doc := &EvidenceDocument{
		ID:         docID,
		ClaimID:    claimID,
		Type:       docType,
		BlobKey:    claimID + "-" + docID,
		UploadedAt: time.Now(),
	}

	if err := s.blobs.Put(ctx, doc.BlobKey, content); err != nil {
		s.countUpload(docType, "blob_error")
		return nil, fmt.Errorf("store evidence blob: %w", err)
	}

	if err := s.store.AddEvidence(ctx, doc); err != nil {
		// compensate: a record insert failure must not leave an orphaned blob
		if delErr := s.blobs.Delete(ctx, doc.BlobKey); delErr != nil {
			s.logger.Error(ctx, delErr, "failed to delete orphaned evidence blob",
				"claim_id", claimID, "blob_key", doc.BlobKey)
		}
		s.countUpload(docType, "record_error")
		return nil, fmt.Errorf("record evidence: %w", err)
	}
	s.countUpload(docType, "stored")

	res := &UploadResult{DocumentID: docID, Stored: true}

	// evidence gate: re-read the full set of types, then take the atomic
	// conditional guard. Two racing uploads can both see a complete set;
	// only one wins BeginDecision.
	if c.Status != StatusNotified {
		s.countGate("not_notified")
		return res, nil
	}

	present, err := s.store.EvidenceTypes(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("read evidence set: %w", err)
	}
	for _, req := range RequiredEvidence {
		if !present[req] {
			s.countGate("incomplete")
			return res, nil
		}
	}

	won, err := s.store.BeginDecision(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("begin decision: %w", err)
	}
	if !won {
		s.countGate("lost_race")
		return res, nil
	}
	s.countGate("triggered")

	s.logger.Info(ctx, "evidence set complete, starting automated triage",
		"claim_id", claimID, "claim_number", c.Number)

	// run triage detached from the upload request's lifetime
	go func(ctx context.Context) {
		if err := s.Decide(ctx, claimID); err != nil {
			s.logger.Error(ctx, err, "automated decisioning failed", "claim_id", claimID)
		}
	}(context.WithoutCancel(ctx))

	res.TriggeredAutoDecision = true
	return res, nil
}

// Decide is the decision orchestrator: it loads the claim context, calls
// the classifier through the adapter, applies the resulting transition, and
// creates the fulfillment record for accepted claims. On classifier or
// persist failure the claim is left unchanged in notified and the guard
// flag is released so re-invocation is always safe.
func (s *Service) Decide(ctx context.Context, claimID string) error {
	start := time.Now()

	c, ok, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	if !ok {
		return ErrClaimNotFound
	}
	if c.Status != StatusNotified {
		// already decided. An earlier run may have committed the accepted
		// transition and then failed before creating the fulfillment
		// record, so repair that on re-invocation instead of bailing out.
		if c.Status == StatusAccepted && c.Decision == DecisionApproved {
			return s.ensureFulfillment(ctx, c)
		}
		return nil
	}

	L := s.logger.With("claim_id", c.ID, "claim_number", c.Number)

	policy, ok, err := s.store.GetPolicy(ctx, c.PolicyID)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}
	if !ok {
		return fmt.Errorf("policy %q not found", c.PolicyID)
	}
	product, ok, err := s.store.GetProduct(ctx, policy.ProductID)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if !ok {
		return fmt.Errorf("product %q not found", policy.ProductID)
	}

	present, err := s.store.EvidenceTypes(ctx, claimID)
	if err != nil {
		return fmt.Errorf("read evidence set: %w", err)
	}

	verdict, reason, err := s.adapter.Classify(ctx, &ClassifyRequest{
		ClaimNumber: c.Number,
		ClaimType:   c.Type,
		ProductName: product.Name,
		Coverage:    product.Coverage,
		Description: c.Description,
		Evidence: EvidenceFlags{
			HasPhoto:   present[EvidencePhoto],
			HasReceipt: present[EvidenceReceipt],
		},
	})
	if err != nil {
		// release the gate so a later upload or retry can re-trigger
		if clearErr := s.store.ClearDecision(ctx, claimID); clearErr != nil {
			L.Error(ctx, clearErr, "failed to clear decision guard after classifier failure")
		}
		return fmt.Errorf("classify claim: %w", err)
	}

	target := StatusReferred
	if verdict == VerdictAccepted {
		target = StatusAccepted
	}

	entry, err := Transition(c, target, reason, ActorSystem)
	if err != nil {
		return fmt.Errorf("apply verdict: %w", err)
	}
	if err := s.store.ApplyTransition(ctx, c, StatusNotified, entry); err != nil {
		// a transient persist failure must not strand the claim: release
		// the gate so a later upload or retry can re-trigger. On a
		// conflict the claim already moved, so the guard stays with the
		// winner.
		if !errors.Is(err, ErrTransitionConflict) {
			if clearErr := s.store.ClearDecision(ctx, claimID); clearErr != nil {
				L.Error(ctx, clearErr, "failed to clear decision guard after persist failure")
			}
		}
		return fmt.Errorf("persist transition: %w", err)
	}
	s.countTransition(StatusNotified, target)
	if s.metrics != nil {
		s.metrics.DecisionsTotal.WithLabelValues(string(verdict)).Inc()
		s.metrics.DecisionDuration.Observe(time.Since(start).Seconds())
	}

	L.Info(ctx, "automated decision applied",
		"verdict", verdict,
		"status", c.Status,
		"decision", c.Decision,
	)

	// fulfillment is constructed only after the accepted transition committed
	if verdict == VerdictAccepted {
		f := fulfillment.New(ulid.Make().String(), c.ID, product.Excess1, product.DeviceValue)
		if err := s.store.CreateFulfillment(ctx, f); err != nil {
			return fmt.Errorf("create fulfillment: %w", err)
		}
		L.Info(ctx, "fulfillment created",
			"fulfillment_id", f.ID,
			"excess_amount", f.ExcessAmount,
		)
	}

	s.dispatchNotification(ctx, &DecisionEvent{
		Claim:   c,
		Verdict: verdict,
		Reason:  reason,
		At:      time.Now(),
	})

	return nil
}

// ensureFulfillment backfills the fulfillment record for an accepted claim
// whose earlier decision run committed the transition but failed before
// CreateFulfillment. No-op when the record already exists.
func (s *Service) ensureFulfillment(ctx context.Context, c *Claim) error {
	_, ok, err := s.store.GetFulfillment(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load fulfillment: %w", err)
	}
	if ok {
		return nil
	}

	policy, ok, err := s.store.GetPolicy(ctx, c.PolicyID)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}
	if !ok {
		return fmt.Errorf("policy %q not found", c.PolicyID)
	}
	product, ok, err := s.store.GetProduct(ctx, policy.ProductID)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if !ok {
		return fmt.Errorf("product %q not found", policy.ProductID)
	}

	f := fulfillment.New(ulid.Make().String(), c.ID, product.Excess1, product.DeviceValue)
	if err := s.store.CreateFulfillment(ctx, f); err != nil {
		return fmt.Errorf("create fulfillment: %w", err)
	}
	s.logger.Info(ctx, "fulfillment backfilled for accepted claim",
		"claim_id", c.ID,
		"fulfillment_id", f.ID,
		"excess_amount", f.ExcessAmount,
	)
	return nil
}

// dispatchNotification hands the decision event to the notifier on a
// detached goroutine. Dispatch failures are logged and never roll back the
// claim state.
func (s *Service) dispatchNotification(ctx context.Context, ev *DecisionEvent) {
	if s.notifier == nil {
		return
	}
	go func(ctx context.Context) {
		if err := s.notifier.Send(ctx, ev); err != nil {
			s.logger.Error(ctx, err, "decision notification failed",
				"claim_id", ev.Claim.ID, "verdict", ev.Verdict)
			if s.metrics != nil {
				s.metrics.NotifyFailures.Inc()
			}
		}
	}(context.WithoutCancel(ctx))
}

// ManualTransition applies a human-driven status change, including the
// rejection path the automated engine may never take.
func (s *Service) ManualTransition(ctx context.Context, claimID string, target Status, note string) error {
	c, ok, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	if !ok {
		return ErrClaimNotFound
	}

	from := c.Status
	entry, err := Transition(c, target, note, ActorAgent)
	if err != nil {
		return err
	}
	if err := s.store.ApplyTransition(ctx, c, from, entry); err != nil {
		return fmt.Errorf("persist transition: %w", err)
	}
	s.countTransition(from, target)

	s.logger.Info(ctx, "manual transition applied",
		"claim_id", c.ID,
		"from", from,
		"to", target,
	)
	return nil
}

// OverdueClaim pairs an open claim with its breached deadline.
type OverdueClaim struct {
	Claim    *Claim    `json:"claim"`
	Deadline time.Time `json:"deadline"`
}

// Overdue lists open claims that have breached the SLA for their current
// status. Terminal claims and statuses with no configured SLA never appear.
func (s *Service) Overdue(ctx context.Context) ([]OverdueClaim, error) {
	claims, err := s.store.ListOpenClaims(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open claims: %w", err)
	}

	now := time.Now()
	var out []OverdueClaim
	for _, c := range claims {
		if IsTerminal(c.Status) {
			continue
		}
		deadline, ok := s.sla.Deadline(c.ProgramID, string(c.Status), c.StatusChangedAt)
		if !ok || now.Before(deadline) {
			continue
		}
		out = append(out, OverdueClaim{Claim: c, Deadline: deadline})
	}
	return out, nil
}

// RefreshSLA reloads the SLA table snapshot from the store. Called on a
// timer from main; the admin tool mutates the rows out-of-band.
func (s *Service) RefreshSLA(ctx context.Context) error {
	entries, err := s.store.SLAEntries(ctx)
	if err != nil {
		return fmt.Errorf("load sla entries: %w", err)
	}
	s.sla.Replace(entries)
	return nil
}

func (s *Service) countTransition(from, to Status) {
	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	}
}

func (s *Service) countGate(outcome string) {
	if s.metrics != nil {
		s.metrics.GateChecksTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countUpload(t EvidenceType, result string) {
	if s.metrics != nil {
		s.metrics.EvidenceUploads.WithLabelValues(string(t), result).Inc()
	}
}
