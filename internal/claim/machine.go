package claim

import "time"

// transitions is the fixed set of allowed status edges. A target absent from
// the current status's set is an InvalidTransitionError, never a write.
var transitions = map[Status]map[Status]bool{
	StatusNotified: {
		StatusAccepted: true,
		StatusReferred: true,
		StatusRejected: true,
	},
	StatusReferred: {
		StatusReferredPendingInfo: true,
		StatusAccepted:            true,
		StatusRejected:            true,
	},
	StatusReferredPendingInfo: {
		StatusReferredInfoReceived: true,
		StatusRejected:             true,
	},
	StatusReferredInfoReceived: {
		StatusAccepted: true,
		StatusRejected: true,
	},
	StatusAccepted: {
		StatusExcessDue: true,
	},
	StatusExcessDue: {
		StatusExcessPaidPending: true,
	},
	StatusExcessPaidPending: {
		StatusInspectionBooked: true,
		StatusInboundLogistics: true,
	},
	StatusInspectionBooked: {
		StatusEstimateReceived: true,
	},
	StatusEstimateReceived: {
		StatusFulfillmentOutcome: true,
	},
	StatusFulfillmentOutcome: {
		StatusInboundLogistics: true,
		StatusClosed:           true,
	},
	StatusInboundLogistics: {
		StatusRepair: true,
	},
	StatusRepair: {
		StatusOutboundLogistics: true,
	},
	StatusOutboundLogistics: {
		StatusClosed: true,
	},
	StatusRejected: {},
	StatusClosed:   {},
}

// terminal statuses never accrue SLA time and accept no further transitions.
var terminal = map[Status]bool{
	StatusClosed:   true,
	StatusRejected: true,
}

// IsTerminal reports whether s accepts no further transitions.
func IsTerminal(s Status) bool { return terminal[s] }

// CanTransition reports whether from -> to is an edge of the table.
func CanTransition(from, to Status) bool { return transitions[from][to] }

// decisionFor maps the statuses that leave notified to the decision they
// stamp on the claim.
func decisionFor(target Status) Decision {
	switch target {
	case StatusAccepted:
		return DecisionApproved
	case StatusReferred:
		return DecisionPendingReview
	case StatusRejected:
		return DecisionRejected
	}
	return ""
}

// Transition is the single legal way to mutate a claim's status. It
// validates the edge, mutates the claim in place, and returns the history
// entry the caller must persist together with the claim. Setting rejected is
// reserved for human actors; the automated path is coerced upstream and may
// never reach it.
func Transition(c *Claim, target Status, note string, actor Actor) (*HistoryEntry, error) {
	if !CanTransition(c.Status, target) {
		return nil, &InvalidTransitionError{From: c.Status, To: target}
	}
	if target == StatusRejected && actor != ActorAgent {
		return nil, &InvalidTransitionError{From: c.Status, To: target, Why: "rejected is human-only"}
	}

	now := time.Now()
	c.Status = target
	c.StatusChangedAt = now

	if c.Decision == "" {
		if d := decisionFor(target); d != "" {
			c.Decision = d
			c.DecisionReason = note
		}
	}

	return &HistoryEntry{
		ClaimID:   c.ID,
		Status:    target,
		Note:      note,
		Actor:     actor,
		Timestamp: now,
	}, nil
}
