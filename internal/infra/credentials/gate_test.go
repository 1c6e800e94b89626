package credentials

import (
	"context"
	"errors"
	"testing"
)

type failingSource struct {
	key    string
	getErr error
	setErr error
}

func (s *failingSource) APIKey(ctx context.Context) (string, error) {
	return s.key, s.getErr
}

func (s *failingSource) SetAPIKey(ctx context.Context, key string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.key = key
	return nil
}

func TestGateStartsUnknown(t *testing.T) {
	gate := NewGate(NewMemorySource(""))
	if got := gate.Presence(); got != PresenceUnknown {
		t.Fatalf("Presence() = %v, want unknown", got)
	}
}

func TestGateCheckPresent(t *testing.T) {
	gate := NewGate(NewMemorySource("sk-123"))
	if got := gate.Check(context.Background()); got != PresencePresent {
		t.Fatalf("Check() = %v, want present", got)
	}
	if gate.Key() != "sk-123" {
		t.Fatalf("Key() = %q, want sk-123", gate.Key())
	}
}

func TestGateCheckFailsSoft(t *testing.T) {
	gate := NewGate(&failingSource{getErr: errors.New("boom")})
	if got := gate.Check(context.Background()); got != PresenceAbsent {
		t.Fatalf("Check() = %v, want absent on source error", got)
	}
	if gate.Key() != "" {
		t.Fatalf("Key() = %q, want empty", gate.Key())
	}
}

func TestGateSelectUnblocks(t *testing.T) {
	gate := NewGate(NewMemorySource(""))
	gate.Check(context.Background())
	if err := gate.Select(context.Background(), "sk-456"); err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if gate.Presence() != PresencePresent {
		t.Fatalf("Presence() = %v after Select, want present", gate.Presence())
	}
	if gate.Key() != "sk-456" {
		t.Fatalf("Key() = %q, want sk-456", gate.Key())
	}
}

func TestGateSelectFailureKeepsState(t *testing.T) {
	gate := NewGate(&failingSource{setErr: errors.New("write failed")})
	gate.Check(context.Background())
	if err := gate.Select(context.Background(), "sk-789"); err == nil {
		t.Fatal("Select expected error")
	}
	if gate.Presence() != PresenceAbsent {
		t.Fatalf("Presence() = %v after failed Select, want absent", gate.Presence())
	}
}

func TestGateInvalidate(t *testing.T) {
	gate := NewGate(NewMemorySource("sk-123"))
	gate.Check(context.Background())
	gate.Invalidate()
	if gate.Presence() != PresenceAbsent {
		t.Fatalf("Presence() = %v after Invalidate, want absent", gate.Presence())
	}
	if gate.Key() != "" {
		t.Fatalf("Key() = %q after Invalidate, want empty", gate.Key())
	}
}

func TestGateRevocationSurvivesCheck(t *testing.T) {
	source := NewMemorySource("sk-stale")
	gate := NewGate(source)
	gate.Check(context.Background())
	gate.Invalidate()

	// the source still holds the rejected key; re-checking must not resurrect it
	if got := gate.Check(context.Background()); got != PresenceAbsent {
		t.Fatalf("Check() = %v after Invalidate, want absent", got)
	}

	// a different key clears the revocation, whether stored out-of-band...
	if err := source.SetAPIKey(context.Background(), "sk-fresh"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if got := gate.Check(context.Background()); got != PresencePresent {
		t.Fatalf("Check() = %v with fresh key, want present", got)
	}

	// ...or selected through the gate
	gate.Invalidate()
	if err := gate.Select(context.Background(), "sk-fresh"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if gate.Presence() != PresencePresent {
		t.Fatalf("Presence() = %v after Select, want present", gate.Presence())
	}
}
