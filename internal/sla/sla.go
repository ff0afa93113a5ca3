// Package sla computes status deadlines from the SLA configuration table.
// Entries are pure configuration, mutated by an external admin tool and
// refreshed here out-of-band; lookups are lock-free reads under an RWMutex.
package sla

import (
	"sync"
	"time"
)

// Entry is one SLA configuration row. An empty ProgramID is the global
// default for the status.
type Entry struct {
	ProgramID   string `json:"program_id,omitempty"`
	Status      string `json:"claim_status"`
	Hours       int    `json:"sla_hours"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"is_active"`
}

type key struct {
	programID string
	status    string
}

// Table is an in-memory snapshot of the SLA configuration. Missing or
// inactive entries mean "no SLA" rather than an error, so unconfigured
// statuses never raise false alarms.
type Table struct {
	mu      sync.RWMutex
	entries map[key]int // hours
}

// NewTable builds a table from the given entries. Inactive and non-positive
// rows are dropped at load time.
func NewTable(entries []Entry) *Table {
	t := &Table{}
	t.Replace(entries)
	return t
}

// Replace swaps in a fresh snapshot of the configuration.
func (t *Table) Replace(entries []Entry) {
	m := make(map[key]int, len(entries))
	for _, e := range entries {
		if !e.Active || e.Hours <= 0 {
			continue
		}
		m[key{e.ProgramID, e.Status}] = e.Hours
	}
	t.mu.Lock()
	t.entries = m
	t.mu.Unlock()
}

// Hours returns the allowed hours for the status, preferring a per-program
// override and falling back to the global default.
func (t *Table) Hours(programID, status string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if programID != "" {
		if h, ok := t.entries[key{programID, status}]; ok {
			return h, true
		}
	}
	h, ok := t.entries[key{"", status}]
	return h, ok
}

// Deadline returns when a claim that entered status at enteredAt breaches
// its SLA. ok is false when no SLA is configured.
func (t *Table) Deadline(programID, status string, enteredAt time.Time) (time.Time, bool) {
	h, ok := t.Hours(programID, status)
	if !ok {
		return time.Time{}, false
	}
	return enteredAt.Add(time.Duration(h) * time.Hour), true
}

// IsOverdue reports whether a claim in the given non-terminal status has
// breached its deadline as of now. Callers must exclude terminal statuses
// themselves; the table only knows configuration.
func (t *Table) IsOverdue(programID, status string, enteredAt, now time.Time) bool {
	deadline, ok := t.Deadline(programID, status, enteredAt)
	if !ok {
		return false
	}
	return now.After(deadline)
}
