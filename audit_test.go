package fxauth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type recordingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *recordingSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) byType(eventType string) []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []AuditEvent
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func buildAuditTestEngine(t *testing.T, cfg Config, sink AuditSink) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialVerifier(newTestVerifier()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	engine, _ := buildAuditTestEngine(t, cfg, sink)

	if _, err := engine.Login(context.Background(), "alice@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	engine.Close()

	if got := sink.count.Load(); got != 0 {
		t.Fatalf("expected no sink calls with audit disabled, got %d", got)
	}
}

func TestAuditLoginEvents(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Audit.Enabled = true

	sink := &recordingSink{}
	engine, _ := buildAuditTestEngine(t, cfg, sink)
	ctx := WithClientIP(context.Background(), "192.0.2.10")

	if _, err := engine.Login(ctx, "alice@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "wrong-password"); err == nil {
		t.Fatal("expected login failure")
	}
	engine.Close()

	successes := sink.byType("login_success")
	if len(successes) != 1 {
		t.Fatalf("expected 1 login_success event, got %d", len(successes))
	}
	if successes[0].Subject != "subject-alice" {
		t.Fatalf("expected subject-alice, got %q", successes[0].Subject)
	}
	if successes[0].IP != "192.0.2.10" {
		t.Fatalf("expected client IP in event, got %q", successes[0].IP)
	}

	failures := sink.byType("login_failure")
	if len(failures) != 1 {
		t.Fatalf("expected 1 login_failure event, got %d", len(failures))
	}
	if failures[0].Success {
		t.Fatal("login_failure event must not be marked successful")
	}
	if failures[0].Metadata["identifier"] != "alice@example.com" {
		t.Fatalf("expected identifier in failure metadata, got %v", failures[0].Metadata)
	}
}

func TestAuditReuseEmitsContainmentTrail(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Audit.Enabled = true

	sink := &recordingSink{}
	engine, _ := buildAuditTestEngine(t, cfg, sink)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice@example.com", "correct-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatal("expected reuse failure")
	}
	engine.Close()

	reuses := sink.byType("refresh_reuse_detected")
	if len(reuses) != 1 {
		t.Fatalf("expected 1 refresh_reuse_detected event, got %d", len(reuses))
	}
	if reuses[0].Subject != "subject-alice" {
		t.Fatalf("expected subject-alice on reuse event, got %q", reuses[0].Subject)
	}

	sweeps := sink.byType("mass_revocation")
	if len(sweeps) != 1 {
		t.Fatalf("expected 1 mass_revocation event, got %d", len(sweeps))
	}
	if sweeps[0].Metadata["trigger"] != "refresh_reuse" {
		t.Fatalf("expected refresh_reuse trigger, got %v", sweeps[0].Metadata)
	}
}

func TestAuditDropIfFullCountsDrops(t *testing.T) {
	cfg := engineTestConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true

	sink := &gateSink{gate: make(chan struct{})}
	engine, _ := buildAuditTestEngine(t, cfg, sink)
	ctx := context.Background()

	// The blocked sink lets at most one event into the worker and one into
	// the buffer; the rest must be dropped, never blocking the caller.
	for i := 0; i < 8; i++ {
		if _, err := engine.Login(ctx, "alice@example.com", "wrong-password"); err == nil {
			t.Fatal("expected login failure")
		}
	}

	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	close(sink.gate)
	engine.Close()
}
