// Package fulfillment implements the sub-workflow that resolves an accepted
// claim: excess collection, repair and logistics, quote approval, and
// beyond-economic-repair settlement. It owns its own state machine and the
// single total-cost rule shared by every cost-reporting consumer.
package fulfillment

import (
	"fmt"
	"time"
)

// Status tracks where a fulfillment is in its workflow. Values are
// wire-stable.
type Status string

const (
	StatusPendingExcess    Status = "pending_excess"
	StatusAwaitingExcess   Status = "awaiting_excess_payment"
	StatusExcessPaid       Status = "excess_paid"
	StatusInspection       Status = "inspection"
	StatusRepairInProgress Status = "repair_in_progress"
	StatusQuotePending     Status = "quote_pending"
	StatusQuoteApproved    Status = "quote_approved"
	StatusBERCash          Status = "ber_cash"
	StatusBERVoucher       Status = "ber_voucher"
	StatusCompleted        Status = "completed"
)

// Type records how the claim is being resolved.
type Type string

const (
	TypeRepair     Type = "repair"
	TypeBERCash    Type = "ber_cash"
	TypeBERVoucher Type = "ber_voucher"
)

// QuoteStatus tracks repairer quote approval.
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteApproved QuoteStatus = "approved"
)

// Fulfillment is created exactly once per claim, only when the claim's
// decision is approved. All money amounts are integer cents.
type Fulfillment struct {
	ID               string      `json:"id"`
	ClaimID          string      `json:"claim_id"`
	Status           Status      `json:"status"`
	Type             Type        `json:"type"`
	ExcessAmount     int64       `json:"excess_amount"`
	ExcessPaid       bool        `json:"excess_paid"`
	QuoteAmount      int64       `json:"quote_amount,omitempty"`
	QuoteStatus      QuoteStatus `json:"quote_status,omitempty"`
	DeviceValue      int64       `json:"device_value,omitempty"`
	SettlementAmount int64       `json:"settlement_amount,omitempty"`
	BERReason        string      `json:"ber_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// RepairCost is one repairer line item. Append-only; summed for the
// repairer total when no approved quote or BER settlement applies.
type RepairCost struct {
	ID            string    `json:"id"`
	FulfillmentID string    `json:"fulfillment_id"`
	CostType      string    `json:"cost_type"`
	Description   string    `json:"description,omitempty"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// InvalidTransitionError reports a fulfillment status change that is not an
// edge of the sub-machine's table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid fulfillment transition %s -> %s", e.From, e.To)
}

// transitions is the fixed edge set of the sub-machine. BER settlement is
// reachable from any state after inspection.
var transitions = map[Status]map[Status]bool{
	StatusPendingExcess: {
		StatusAwaitingExcess: true,
		StatusExcessPaid:     true, // zero-excess claims skip payment
	},
	StatusAwaitingExcess: {
		StatusExcessPaid: true,
	},
	StatusExcessPaid: {
		StatusInspection:       true,
		StatusRepairInProgress: true,
	},
	StatusInspection: {
		StatusRepairInProgress: true,
		StatusQuotePending:     true,
		StatusBERCash:          true,
		StatusBERVoucher:       true,
	},
	StatusRepairInProgress: {
		StatusQuotePending: true,
		StatusBERCash:      true,
		StatusBERVoucher:   true,
		StatusCompleted:    true,
	},
	StatusQuotePending: {
		StatusQuoteApproved: true,
		StatusBERCash:       true,
		StatusBERVoucher:    true,
	},
	StatusQuoteApproved: {
		StatusCompleted:  true,
		StatusBERCash:    true,
		StatusBERVoucher: true,
	},
	StatusBERCash: {
		StatusCompleted: true,
	},
	StatusBERVoucher: {
		StatusCompleted: true,
	},
	StatusCompleted: {},
}

// CanAdvance reports whether from -> to is an edge of the table.
func CanAdvance(from, to Status) bool { return transitions[from][to] }

// Advance moves the fulfillment to target after validating the edge.
func Advance(f *Fulfillment, target Status) error {
	if !CanAdvance(f.Status, target) {
		return &InvalidTransitionError{From: f.Status, To: target}
	}
	f.Status = target
	f.UpdatedAt = time.Now()
	return nil
}

// New creates the initial fulfillment record for an approved claim.
func New(id, claimID string, excessAmount, deviceValue int64) *Fulfillment {
	now := time.Now()
	return &Fulfillment{
		ID:           id,
		ClaimID:      claimID,
		Status:       StatusPendingExcess,
		Type:         TypeRepair,
		ExcessAmount: excessAmount,
		DeviceValue:  deviceValue,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsBER reports whether the fulfillment resolved as a settlement rather
// than a repair.
func (f *Fulfillment) IsBER() bool {
	return f.Type == TypeBERCash || f.Type == TypeBERVoucher
}

// TotalCost is the single cost rule for a fulfillment: BER settlements cost
// the settlement amount, an approved quote costs the quote amount, and
// otherwise the repairer line items are summed. Every cost-reporting
// consumer must go through here.
func TotalCost(f *Fulfillment, costs []RepairCost) int64 {
	if f.IsBER() {
		return f.SettlementAmount
	}
	if f.QuoteStatus == QuoteApproved {
		return f.QuoteAmount
	}
	var sum int64
	for _, rc := range costs {
		sum += rc.Amount
	}
	return sum
}
