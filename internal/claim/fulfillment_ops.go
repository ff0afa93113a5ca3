package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/claimflow/internal/fulfillment"
)

// Fulfillment mutations are independent per-claim and may run concurrently
// with SLA reads. Every operation loads the record, applies the sub-machine
// edge, and persists the whole row.

// GetFulfillment retrieves the fulfillment record for a claim.
func (s *Service) GetFulfillment(ctx context.Context, claimID string) (*fulfillment.Fulfillment, bool, error) {
	return s.store.GetFulfillment(ctx, claimID)
}

func (s *Service) loadFulfillment(ctx context.Context, claimID string) (*fulfillment.Fulfillment, error) {
	f, ok, err := s.store.GetFulfillment(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("load fulfillment: %w", err)
	}
	if !ok {
		return nil, ErrFulfillmentNotFound
	}
	return f, nil
}

// AdvanceFulfillment moves a fulfillment along a plain edge of the
// sub-machine (inspection, repair start, completion and the like).
func (s *Service) AdvanceFulfillment(ctx context.Context, claimID string, target fulfillment.Status) error {
	f, err := s.loadFulfillment(ctx, claimID)
	if err != nil {
		return err
	}
	if err := fulfillment.Advance(f, target); err != nil {
		return err
	}
	if err := s.store.UpdateFulfillment(ctx, f); err != nil {
		return fmt.Errorf("persist fulfillment: %w", err)
	}
	s.logger.Info(ctx, "fulfillment advanced", "claim_id", claimID, "status", target)
	return nil
}

// RecordExcessPayment marks the customer excess as paid and moves the
// fulfillment to excess_paid. Zero-excess fulfillments take the same edge
// directly from pending_excess.
func (s *Service) RecordExcessPayment(ctx context.Context, claimID string) error {
	f, err := s.loadFulfillment(ctx, claimID)
	if err != nil {
		return err
	}
	if err := fulfillment.Advance(f, fulfillment.StatusExcessPaid); err != nil {
		return err
	}
	f.ExcessPaid = true
	if err := s.store.UpdateFulfillment(ctx, f); err != nil {
		return fmt.Errorf("persist fulfillment: %w", err)
	}
	s.logger.Info(ctx, "excess payment recorded",
		"claim_id", claimID, "excess_amount", f.ExcessAmount)
	return nil
}

// AddRepairCost appends a repairer line item to the fulfillment.
func (s *Service) AddRepairCost(ctx context.Context, claimID, costType, description string, amount int64) (*fulfillment.RepairCost, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("repair cost amount must be positive, got %d", amount)
	}
	f, err := s.loadFulfillment(ctx, claimID)
	if err != nil {
		return nil, err
	}
	rc := &fulfillment.RepairCost{
		ID:            ulid.Make().String(),
		FulfillmentID: f.ID,
		CostType:      costType,
		Description:   description,
		Amount:        amount,
		CreatedAt:     time.Now(),
	}
	if err := s.store.AddRepairCost(ctx, rc); err != nil {
		return nil, fmt.Errorf("record repair cost: %w", err)
	}
	return rc, nil
}

// SubmitQuote records a repairer quote and moves the fulfillment to
// quote_pending.
func (s *Service) SubmitQuote(ctx context.Context, claimID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("quote amount must be positive, got %d", amount)
	}
	f, err := s.loadFulfillment(ctx, claimID)
	if err != nil {
		return err
	}
	if err := fulfillment.Advance(f, fulfillment.StatusQuotePending); err != nil {
		return err
	}
	f.QuoteAmount = amount
	f.QuoteStatus = fulfillment.QuotePending
	if err := s.store.UpdateFulfillment(ctx, f); err != nil {
		return fmt.Errorf("persist fulfillment: %w", err)
	}
	s.logger.Info(ctx, "quote submitted", "claim_id", claimID, "quote_amount", amount)
	return nil
}

// ApproveQuote approves the pending repairer quote; from then on the quote
// amount is the fulfillment's total cost.
func (s *Service) ApproveQuote(ctx context.Context, claimID string) error {
	f, err := s.loadFulfillment(ctx, claimID)
	if err != nil {
		return err
	}
	if f.QuoteStatus != fulfillment.QuotePending {
		return fmt.Errorf("no pending quote for claim %s", claimID)
	}
	if err := fulfillment.Advance(f, fulfillment.StatusQuoteApproved); err != nil {
		return err
	}
	f.QuoteStatus = fulfillment.QuoteApproved
	if err := s.store.UpdateFulfillment(ctx, f); err != nil {
		return fmt.Errorf("persist fulfillment: %w", err)
	}
	s.logger.Info(ctx, "quote approved", "claim_id", claimID, "quote_amount", f.QuoteAmount)
	return nil
}

// SettleBER resolves the fulfillment as beyond economic repair with a cash
// or voucher settlement instead of a repair.
func (s *Service) SettleBER(ctx context.Context, claimID string, berType fulfillment.Type, settlement int64, reason string) error {
	var target fulfillment.Status
	switch berType {
	case fulfillment.TypeBERCash:
		target = fulfillment.StatusBERCash
	case fulfillment.TypeBERVoucher:
		target = fulfillment.StatusBERVoucher
	default:
		return fmt.Errorf("invalid BER type %q", berType)
	}
	if settlement <= 0 {
		return fmt.Errorf("settlement amount must be positive, got %d", settlement)
	}

	f, err := s.loadFulfillment(ctx, claimID)
	if err != nil {
		return err
	}
	if err := fulfillment.Advance(f, target); err != nil {
		return err
	}
	f.Type = berType
	f.SettlementAmount = settlement
	f.BERReason = reason
	if err := s.store.UpdateFulfillment(ctx, f); err != nil {
		return fmt.Errorf("persist fulfillment: %w", err)
	}
	s.logger.Info(ctx, "BER settlement recorded",
		"claim_id", claimID,
		"ber_type", berType,
		"settlement_amount", settlement,
	)
	return nil
}

// TotalCost reports the claim's final cost figure through the single
// fulfillment cost rule.
func (s *Service) TotalCost(ctx context.Context, claimID string) (int64, error) {
	f, err := s.loadFulfillment(ctx, claimID)
	if err != nil {
		return 0, err
	}
	costs, err := s.store.RepairCosts(ctx, f.ID)
	if err != nil {
		return 0, fmt.Errorf("load repair costs: %w", err)
	}
	return fulfillment.TotalCost(f, costs), nil
}
