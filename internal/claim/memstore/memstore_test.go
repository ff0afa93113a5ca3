package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/claimflow/internal/claim"
	"github.com/linnemanlabs/claimflow/internal/fulfillment"
	"github.com/linnemanlabs/claimflow/internal/sla"
)

func newClaim(id string) *claim.Claim {
	now := time.Now()
	return &claim.Claim{
		ID: id, Number: "CLM-" + id, Type: claim.TypeDamage,
		Status: claim.StatusNotified, PolicyID: "pol-1",
		SubmittedAt: now, StatusChangedAt: now,
	}
}

func TestStore_CreateAndGetClaim(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.CreateClaim(ctx, newClaim("c-1")); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}

	got, ok, err := s.GetClaim(ctx, "c-1")
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if !ok {
		t.Fatal("expected claim to be found")
	}
	if got.ID != "c-1" {
		t.Errorf("ID = %q, want %q", got.ID, "c-1")
	}

	// duplicate IDs are refused
	if err := s.CreateClaim(ctx, newClaim("c-1")); err == nil {
		t.Error("expected error creating duplicate claim")
	}
}

func TestStore_CreateClaimWritesInitialHistory(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.CreateClaim(ctx, newClaim("c-h"))

	history, err := s.History(ctx, "c-h")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	if history[0].Status != claim.StatusNotified {
		t.Errorf("initial status = %q, want notified", history[0].Status)
	}
}

func TestStore_GetClaimMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.GetClaim(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing ID")
	}
}

func TestStore_ApplyTransition(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.CreateClaim(ctx, newClaim("c-t"))

	c, _, _ := s.GetClaim(ctx, "c-t")
	entry, err := claim.Transition(c, claim.StatusAccepted, "ok", claim.ActorSystem)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := s.ApplyTransition(ctx, c, claim.StatusNotified, entry); err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}

	got, _, _ := s.GetClaim(ctx, "c-t")
	if got.Status != claim.StatusAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}
	history, _ := s.History(ctx, "c-t")
	if len(history) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history))
	}
	if history[1].Status != claim.StatusAccepted {
		t.Errorf("appended status = %q, want accepted", history[1].Status)
	}
}

func TestStore_ApplyTransitionConflict(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.CreateClaim(ctx, newClaim("c-conf"))

	c, _, _ := s.GetClaim(ctx, "c-conf")
	entry, _ := claim.Transition(c, claim.StatusAccepted, "", claim.ActorSystem)

	// guard on the wrong expected status: the stored claim is still notified
	err := s.ApplyTransition(ctx, c, claim.StatusReferred, entry)
	if !errors.Is(err, claim.ErrTransitionConflict) {
		t.Fatalf("error = %v, want ErrTransitionConflict", err)
	}

	// the failed write must not touch the stored claim or its history
	got, _, _ := s.GetClaim(ctx, "c-conf")
	if got.Status != claim.StatusNotified {
		t.Errorf("status = %q, want notified", got.Status)
	}
	history, _ := s.History(ctx, "c-conf")
	if len(history) != 1 {
		t.Errorf("history entries = %d, want 1", len(history))
	}
}

func TestStore_EvidenceTypes(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.CreateClaim(ctx, newClaim("c-e"))

	docs := []claim.EvidenceType{claim.EvidencePhoto, claim.EvidencePhoto, claim.EvidenceReceipt}
	for i, dt := range docs {
		doc := &claim.EvidenceDocument{
			ID: fmt.Sprintf("d-%d", i), ClaimID: "c-e", Type: dt,
			BlobKey: fmt.Sprintf("c-e-d-%d", i), UploadedAt: time.Now(),
		}
		if err := s.AddEvidence(ctx, doc); err != nil {
			t.Fatalf("AddEvidence: %v", err)
		}
	}

	types, err := s.EvidenceTypes(ctx, "c-e")
	if err != nil {
		t.Fatalf("EvidenceTypes: %v", err)
	}
	if len(types) != 2 {
		t.Errorf("distinct types = %d, want 2", len(types))
	}
	if !types[claim.EvidencePhoto] || !types[claim.EvidenceReceipt] {
		t.Errorf("types = %v, want photo and receipt", types)
	}
}

func TestStore_AddEvidenceUnknownClaim(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.AddEvidence(context.Background(), &claim.EvidenceDocument{ID: "d-1", ClaimID: "missing"})
	if !errors.Is(err, claim.ErrClaimNotFound) {
		t.Fatalf("error = %v, want ErrClaimNotFound", err)
	}
}

func TestStore_BeginDecision(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.CreateClaim(ctx, newClaim("c-bd"))

	won, err := s.BeginDecision(ctx, "c-bd")
	if err != nil {
		t.Fatalf("BeginDecision: %v", err)
	}
	if !won {
		t.Fatal("first caller should win the guard")
	}

	won, err = s.BeginDecision(ctx, "c-bd")
	if err != nil {
		t.Fatalf("BeginDecision: %v", err)
	}
	if won {
		t.Fatal("second caller must lose the guard")
	}

	// releasing the guard makes the claim eligible again
	if err := s.ClearDecision(ctx, "c-bd"); err != nil {
		t.Fatalf("ClearDecision: %v", err)
	}
	won, _ = s.BeginDecision(ctx, "c-bd")
	if !won {
		t.Fatal("guard should be winnable again after ClearDecision")
	}
}

func TestStore_BeginDecisionRequiresNotified(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	c := newClaim("c-dec")
	c.Status = claim.StatusAccepted
	_ = s.CreateClaim(ctx, c)

	won, err := s.BeginDecision(ctx, "c-dec")
	if err != nil {
		t.Fatalf("BeginDecision: %v", err)
	}
	if won {
		t.Fatal("decided claims must not be eligible for the guard")
	}
}

func TestStore_BeginDecisionConcurrent_ExactlyOneWinner(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.CreateClaim(ctx, newClaim("c-race"))

	const n = 64
	var mu sync.Mutex
	wins := 0
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			won, err := s.BeginDecision(ctx, "c-race")
			if err != nil {
				t.Errorf("BeginDecision: %v", err)
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
}

func TestStore_FulfillmentLifecycle(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	f := fulfillment.New("f-1", "c-f", 5000, 40000)

	if err := s.CreateFulfillment(ctx, f); err != nil {
		t.Fatalf("CreateFulfillment: %v", err)
	}
	// one fulfillment per claim, ever
	if err := s.CreateFulfillment(ctx, fulfillment.New("f-2", "c-f", 0, 0)); err == nil {
		t.Error("expected error creating second fulfillment for same claim")
	}

	got, ok, err := s.GetFulfillment(ctx, "c-f")
	if err != nil {
		t.Fatalf("GetFulfillment: %v", err)
	}
	if !ok {
		t.Fatal("expected fulfillment")
	}
	if got.ID != "f-1" {
		t.Errorf("ID = %q, want %q", got.ID, "f-1")
	}

	got.Status = fulfillment.StatusExcessPaid
	if err := s.UpdateFulfillment(ctx, got); err != nil {
		t.Fatalf("UpdateFulfillment: %v", err)
	}
	reread, _, _ := s.GetFulfillment(ctx, "c-f")
	if reread.Status != fulfillment.StatusExcessPaid {
		t.Errorf("status = %q, want excess_paid", reread.Status)
	}

	if err := s.UpdateFulfillment(ctx, fulfillment.New("f-x", "missing", 0, 0)); !errors.Is(err, claim.ErrFulfillmentNotFound) {
		t.Errorf("error = %v, want ErrFulfillmentNotFound", err)
	}
}

func TestStore_RepairCosts(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	for i, amount := range []int64{5000, 3000} {
		rc := &fulfillment.RepairCost{
			ID: fmt.Sprintf("rc-%d", i), FulfillmentID: "f-rc",
			CostType: "parts", Amount: amount, CreatedAt: time.Now(),
		}
		if err := s.AddRepairCost(ctx, rc); err != nil {
			t.Fatalf("AddRepairCost: %v", err)
		}
	}

	costs, err := s.RepairCosts(ctx, "f-rc")
	if err != nil {
		t.Fatalf("RepairCosts: %v", err)
	}
	if len(costs) != 2 {
		t.Fatalf("line items = %d, want 2", len(costs))
	}
	if costs[0].Amount != 5000 || costs[1].Amount != 3000 {
		t.Errorf("amounts = %d, %d, want 5000, 3000 (insertion order)", costs[0].Amount, costs[1].Amount)
	}
}

func TestStore_ListOpenClaims(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.CreateClaim(ctx, newClaim("open"))
	closed := newClaim("closed")
	closed.Status = claim.StatusClosed
	_ = s.CreateClaim(ctx, closed)
	rejected := newClaim("rejected")
	rejected.Status = claim.StatusRejected
	_ = s.CreateClaim(ctx, rejected)

	claims, err := s.ListOpenClaims(ctx)
	if err != nil {
		t.Fatalf("ListOpenClaims: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("open claims = %d, want 1", len(claims))
	}
	if claims[0].ID != "open" {
		t.Errorf("open claim = %q, want %q", claims[0].ID, "open")
	}
}

func TestStore_ReferenceData(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	s.PutPolicy(&claim.Policy{ID: "pol-1", ProgramID: "prog-1", ProductID: "prod-1"})
	s.PutProduct(&claim.Product{ID: "prod-1", Name: "Phone", Excess1: 5000})
	s.PutSLAEntries([]sla.Entry{{Status: "notified", Hours: 24, Active: true}})

	p, ok, err := s.GetPolicy(ctx, "pol-1")
	if err != nil || !ok {
		t.Fatalf("GetPolicy: %v, ok=%v", err, ok)
	}
	if p.ProductID != "prod-1" {
		t.Errorf("ProductID = %q, want %q", p.ProductID, "prod-1")
	}

	prod, ok, err := s.GetProduct(ctx, "prod-1")
	if err != nil || !ok {
		t.Fatalf("GetProduct: %v, ok=%v", err, ok)
	}
	if prod.Excess1 != 5000 {
		t.Errorf("Excess1 = %d, want 5000", prod.Excess1)
	}

	entries, err := s.SLAEntries(ctx)
	if err != nil {
		t.Fatalf("SLAEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("sla entries = %d, want 1", len(entries))
	}
}
