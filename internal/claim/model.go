package claim

import "time"

// Status tracks where a claim is in its lifecycle. Values are wire-stable.
type Status string

const (
	// StatusNotified is the initial state: claim submitted, awaiting evidence.
	StatusNotified Status = "notified"

	// StatusAccepted means the claim passed triage and enters fulfillment.
	StatusAccepted Status = "accepted"

	// StatusRejected is terminal and only ever set by a human agent.
	StatusRejected Status = "rejected"

	// StatusReferred means triage escalated the claim to a human reviewer.
	StatusReferred Status = "referred"

	StatusReferredPendingInfo  Status = "referred_pending_info"
	StatusReferredInfoReceived Status = "referred_info_received"

	StatusExcessDue          Status = "excess_due"
	StatusExcessPaidPending  Status = "excess_paid_fulfillment_pending"
	StatusInspectionBooked   Status = "fulfillment_inspection_booked"
	StatusEstimateReceived   Status = "estimate_received"
	StatusFulfillmentOutcome Status = "fulfillment_outcome"
	StatusInboundLogistics   Status = "inbound_logistics"
	StatusRepair             Status = "repair"
	StatusOutboundLogistics  Status = "outbound_logistics"

	// StatusClosed is the terminal archive state; claims are never deleted.
	StatusClosed Status = "closed"
)

// Decision is the categorical outcome of triage.
type Decision string

const (
	DecisionApproved      Decision = "approved"
	DecisionPendingReview Decision = "pending_review"
	DecisionRejected      Decision = "rejected"
)

// Type categorizes what happened to the insured device.
type Type string

const (
	TypeBreakdown Type = "breakdown"
	TypeDamage    Type = "damage"
	TypeTheft     Type = "theft"
)

// Actor identifies who is driving a transition. The automated path is
// forbidden from setting StatusRejected.
type Actor string

const (
	ActorSystem Actor = "system"
	ActorAgent  Actor = "agent"
)

// EvidenceType classifies an uploaded evidence document.
type EvidenceType string

const (
	EvidencePhoto   EvidenceType = "photo"
	EvidenceReceipt EvidenceType = "receipt"
	EvidenceOther   EvidenceType = "other"
)

// RequiredEvidence is the set of document types that must be present before
// automated triage runs. Fixed for all claim types in the base design.
var RequiredEvidence = []EvidenceType{EvidencePhoto, EvidenceReceipt}

// Claim is a customer's request for coverage under a policy. Status is
// mutated only through Transition; claims are archived via StatusClosed,
// never deleted.
type Claim struct {
	ID              string    `json:"id"`
	Number          string    `json:"number"`
	Type            Type      `json:"type"`
	Status          Status    `json:"status"`
	Decision        Decision  `json:"decision,omitempty"`
	DecisionReason  string    `json:"decision_reason,omitempty"`
	Description     string    `json:"description,omitempty"`
	PolicyID        string    `json:"policy_id"`
	ProgramID       string    `json:"program_id,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
	StatusChangedAt time.Time `json:"status_changed_at"`

	// DecisionStarted guards the evidence gate: set once, atomically, by the
	// upload that completes the required evidence set. Lives on the row so
	// the guard survives restarts and works across worker instances.
	DecisionStarted bool `json:"decision_started,omitempty"`
}

// HistoryEntry is one row of the append-only status audit trail. Entries are
// written once per successful transition and never rewritten.
type HistoryEntry struct {
	ClaimID   string    `json:"claim_id"`
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// EvidenceDocument records one uploaded evidence item. Append-only; the
// evidence gate reads only the set of distinct types present.
type EvidenceDocument struct {
	ID         string       `json:"id"`
	ClaimID    string       `json:"claim_id"`
	Type       EvidenceType `json:"type"`
	BlobKey    string       `json:"blob_key"`
	Quality    float64      `json:"quality,omitempty"` // optional AI quality score
	UploadedAt time.Time    `json:"uploaded_at"`
}

// Policy links a claim to its program and product.
type Policy struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	ProgramID string `json:"program_id,omitempty"`
	ProductID string `json:"product_id"`
}

// Product is the covered product's reference data. Money is in cents.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Coverage    []string `json:"coverage,omitempty"`
	Excess1     int64    `json:"excess_1"`
	DeviceValue int64    `json:"device_value"`
}

// DecisionEvent is handed to the notification dispatcher after a successful
// automated transition. Dispatch failures never roll back claim state.
type DecisionEvent struct {
	Claim   *Claim    `json:"claim"`
	Verdict Verdict   `json:"verdict"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// UploadResult is the outcome of an evidence upload.
type UploadResult struct {
	DocumentID            string `json:"document_id"`
	Stored                bool   `json:"stored"`
	TriggeredAutoDecision bool   `json:"triggered_auto_decision"`
}

// SubmitResult is the outcome of submitting a new claim.
type SubmitResult struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}
