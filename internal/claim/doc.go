// Package claim provides the business boundary for the claims lifecycle
// engine. It defines the fixed status transition table, the Service
// (evidence gate, decision orchestration, fulfillment progression), the
// Classifier adapter (never-auto-reject fail-safe), the Store interface
// (persistence), and the domain models.
package claim
