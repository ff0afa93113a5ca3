package postgres

import (
	"context"
	"testing"
	"time"
)

func TestQueryObserverFunc(t *testing.T) {
	var gotMethod, gotRoute, gotOutcome string
	var gotDur time.Duration

	f := QueryObserverFunc(func(_ context.Context, method, route, outcome string, dur time.Duration) {
		gotMethod, gotRoute, gotOutcome, gotDur = method, route, outcome, dur
	})
	f.ObserveQuery(context.Background(), "GET", "/api/v1/claims/{id}", "ok", 5*time.Millisecond)

	if gotMethod != "GET" {
		t.Errorf("method = %q, want GET", gotMethod)
	}
	if gotRoute != "/api/v1/claims/{id}" {
		t.Errorf("route = %q", gotRoute)
	}
	if gotOutcome != "ok" {
		t.Errorf("outcome = %q, want ok", gotOutcome)
	}
	if gotDur != 5*time.Millisecond {
		t.Errorf("dur = %v, want 5ms", gotDur)
	}
}

func TestSetQueryObserver(t *testing.T) {
	// observer is a process-wide global, no t.Parallel here
	defer SetQueryObserver(nil)

	called := false
	SetQueryObserver(QueryObserverFunc(func(context.Context, string, string, string, time.Duration) {
		called = true
	}))

	obs := getQueryObserver()
	if obs == nil {
		t.Fatal("expected observer to be set")
	}
	obs.ObserveQuery(context.Background(), "POST", "/", "ok", time.Millisecond)
	if !called {
		t.Error("observer not invoked")
	}

	SetQueryObserver(nil)
	if getQueryObserver() != nil {
		t.Error("expected observer to be cleared")
	}
}

func TestWithHTTPMethod(t *testing.T) {
	t.Parallel()

	ctx := WithHTTPMethod(context.Background(), "PUT")
	if got := httpMethodFromContext(ctx); got != "PUT" {
		t.Errorf("method = %q, want PUT", got)
	}

	// empty method leaves the context untouched
	base := context.Background()
	if WithHTTPMethod(base, "") != base {
		t.Error("empty method should return the original context")
	}
	if got := httpMethodFromContext(base); got != "" {
		t.Errorf("method on bare context = %q, want empty", got)
	}
}
