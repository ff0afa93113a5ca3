package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linnemanlabs/claimflow/internal/claim"
)

func testEvent(verdict claim.Verdict) *claim.DecisionEvent {
	return &claim.DecisionEvent{
		Claim: &claim.Claim{
			ID:       "01JTEST",
			Number:   "CLM-ABC12345",
			Type:     claim.TypeDamage,
			Status:   claim.StatusAccepted,
			Decision: claim.DecisionApproved,
		},
		Verdict: verdict,
		Reason:  "clear damage within coverage",
		At:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSend_PostsBlocks(t *testing.T) {
	t.Parallel()

	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.Send(context.Background(), testEvent(claim.VerdictAccepted)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var msg map[string]any
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if _, ok := msg["blocks"]; !ok {
		t.Fatal("payload missing blocks")
	}

	payload := string(body)
	for _, want := range []string{"CLM-ABC12345", "Claim Accepted", "clear damage within coverage", "claimflow"} {
		if !strings.Contains(payload, want) {
			t.Errorf("payload missing %q", want)
		}
	}
}

func TestSend_ReferredTitle(t *testing.T) {
	t.Parallel()

	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	if err := New(srv.URL).Send(context.Background(), testEvent(claim.VerdictReferred)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(string(body), "Claim Referred") {
		t.Error("payload missing referred title")
	}
}

func TestSend_NoWebhookIsNoop(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	n := New("")
	if err := n.Send(context.Background(), testEvent(claim.VerdictAccepted)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if hits.Load() != 0 {
		t.Error("no-op notifier made a request")
	}
}

func TestSend_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL).Send(context.Background(), testEvent(claim.VerdictAccepted))
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %v, want status code in message", err)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 100); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	long := strings.Repeat("x", 200)
	got := truncate(long, 100)
	if len(got) != 100 {
		t.Errorf("len = %d, want 100", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated string should end with ellipsis, got %q", got[len(got)-5:])
	}
}
