// Package memstore provides an in-memory implementation of claim.Store.
// Suitable for dev/testing. The BeginDecision guard runs under the write
// lock, so it is atomic the same way the SQL conditional update is.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/linnemanlabs/claimflow/internal/claim"
	"github.com/linnemanlabs/claimflow/internal/fulfillment"
	"github.com/linnemanlabs/claimflow/internal/sla"
)

// Store holds the claims engine state in memory.
type Store struct {
	mu           sync.RWMutex
	claims       map[string]*claim.Claim
	history      map[string][]claim.HistoryEntry          // claim ID -> ordered entries
	evidence     map[string][]claim.EvidenceDocument      // claim ID -> documents
	fulfillments map[string]*fulfillment.Fulfillment      // claim ID -> fulfillment
	repairCosts  map[string][]fulfillment.RepairCost      // fulfillment ID -> line items
	policies     map[string]*claim.Policy
	products     map[string]*claim.Product
	slaEntries   []sla.Entry
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		claims:       make(map[string]*claim.Claim),
		history:      make(map[string][]claim.HistoryEntry),
		evidence:     make(map[string][]claim.EvidenceDocument),
		fulfillments: make(map[string]*fulfillment.Fulfillment),
		repairCosts:  make(map[string][]fulfillment.RepairCost),
		policies:     make(map[string]*claim.Policy),
		products:     make(map[string]*claim.Product),
	}
}

// CreateClaim stores a new claim together with its initial history entry so
// the audit trail starts at notification.
func (s *Store) CreateClaim(_ context.Context, c *claim.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claims[c.ID]; exists {
		return fmt.Errorf("claim %q already exists", c.ID)
	}
	cp := *c
	s.claims[c.ID] = &cp
	s.history[c.ID] = append(s.history[c.ID], claim.HistoryEntry{
		ClaimID:   c.ID,
		Status:    c.Status,
		Actor:     claim.ActorSystem,
		Timestamp: c.SubmittedAt,
	})
	return nil
}

// GetClaim retrieves a claim by ID. Returns a copy.
func (s *Store) GetClaim(_ context.Context, id string) (*claim.Claim, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

// ListOpenClaims returns copies of all claims not in a terminal status.
func (s *Store) ListOpenClaims(_ context.Context) ([]*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*claim.Claim
	for _, c := range s.claims {
		if claim.IsTerminal(c.Status) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// ApplyTransition persists the claim's new state and appends the history
// entry, conditional on the stored status still matching from.
func (s *Store) ApplyTransition(_ context.Context, c *claim.Claim, from claim.Status, entry *claim.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.claims[c.ID]
	if !ok {
		return claim.ErrClaimNotFound
	}
	if stored.Status != from {
		return claim.ErrTransitionConflict
	}
	cp := *c
	s.claims[c.ID] = &cp
	s.history[c.ID] = append(s.history[c.ID], *entry)
	return nil
}

// History returns the ordered status audit trail for a claim.
func (s *Store) History(_ context.Context, claimID string) ([]claim.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[claimID]
	out := make([]claim.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// AddEvidence appends an evidence document record.
func (s *Store) AddEvidence(_ context.Context, doc *claim.EvidenceDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[doc.ClaimID]; !ok {
		return claim.ErrClaimNotFound
	}
	s.evidence[doc.ClaimID] = append(s.evidence[doc.ClaimID], *doc)
	return nil
}

// EvidenceTypes returns the set of distinct document types present.
func (s *Store) EvidenceTypes(_ context.Context, claimID string) (map[claim.EvidenceType]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[claim.EvidenceType]bool)
	for _, doc := range s.evidence[claimID] {
		out[doc.Type] = true
	}
	return out, nil
}

// BeginDecision atomically sets the decision guard if the claim is still
// notified and unguarded. Exactly one caller wins.
func (s *Store) BeginDecision(_ context.Context, claimID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return false, claim.ErrClaimNotFound
	}
	if c.Status != claim.StatusNotified || c.DecisionStarted {
		return false, nil
	}
	c.DecisionStarted = true
	return true, nil
}

// ClearDecision releases the decision guard after a classifier failure.
func (s *Store) ClearDecision(_ context.Context, claimID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return claim.ErrClaimNotFound
	}
	c.DecisionStarted = false
	return nil
}

// CreateFulfillment stores the fulfillment record for a claim, exactly once.
func (s *Store) CreateFulfillment(_ context.Context, f *fulfillment.Fulfillment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.fulfillments[f.ClaimID]; exists {
		return fmt.Errorf("fulfillment for claim %q already exists", f.ClaimID)
	}
	cp := *f
	s.fulfillments[f.ClaimID] = &cp
	return nil
}

// GetFulfillment retrieves a claim's fulfillment record. Returns a copy.
func (s *Store) GetFulfillment(_ context.Context, claimID string) (*fulfillment.Fulfillment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fulfillments[claimID]
	if !ok {
		return nil, false, nil
	}
	cp := *f
	return &cp, true, nil
}

// UpdateFulfillment stores a copy of the updated fulfillment record.
func (s *Store) UpdateFulfillment(_ context.Context, f *fulfillment.Fulfillment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fulfillments[f.ClaimID]; !ok {
		return claim.ErrFulfillmentNotFound
	}
	cp := *f
	s.fulfillments[f.ClaimID] = &cp
	return nil
}

// AddRepairCost appends a repair cost line item.
func (s *Store) AddRepairCost(_ context.Context, rc *fulfillment.RepairCost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repairCosts[rc.FulfillmentID] = append(s.repairCosts[rc.FulfillmentID], *rc)
	return nil
}

// RepairCosts returns the line items for a fulfillment in insertion order.
func (s *Store) RepairCosts(_ context.Context, fulfillmentID string) ([]fulfillment.RepairCost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	costs := s.repairCosts[fulfillmentID]
	out := make([]fulfillment.RepairCost, len(costs))
	copy(out, costs)
	return out, nil
}

// PutPolicy seeds a policy. Reference data loader / test helper.
func (s *Store) PutPolicy(p *claim.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.policies[p.ID] = &cp
}

// GetPolicy retrieves a policy by ID. Returns a copy.
func (s *Store) GetPolicy(_ context.Context, id string) (*claim.Policy, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

// PutProduct seeds a product. Reference data loader / test helper.
func (s *Store) PutProduct(p *claim.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

// GetProduct retrieves a product by ID. Returns a copy.
func (s *Store) GetProduct(_ context.Context, id string) (*claim.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

// PutSLAEntries replaces the stored SLA configuration.
func (s *Store) PutSLAEntries(entries []sla.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slaEntries = make([]sla.Entry, len(entries))
	copy(s.slaEntries, entries)
}

// SLAEntries returns the stored SLA configuration rows.
func (s *Store) SLAEntries(_ context.Context) ([]sla.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sla.Entry, len(s.slaEntries))
	copy(out, s.slaEntries)
	return out, nil
}
