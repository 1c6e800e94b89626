package credentials

import (
	"context"
	"sync"
)

// Presence describes what the gate knows about the API key.
type Presence int

const (
	PresenceUnknown Presence = iota
	PresenceAbsent
	PresencePresent
)

func (p Presence) String() string {
	switch p {
	case PresenceAbsent:
		return "absent"
	case PresencePresent:
		return "present"
	default:
		return "unknown"
	}
}

// Gate guards the generation pipeline behind API-key presence. It owns the
// tri-state presence flag; generation may only start while the gate reports
// present. The gate is created once by the top-level container and passed by
// reference wherever the credential is consulted.
type Gate struct {
	mu       sync.RWMutex
	source   Source
	presence Presence
	key      string
	revoked  string
}

// NewGate returns a gate in the unknown state backed by the given source.
func NewGate(source Source) *Gate {
	return &Gate{source: source, presence: PresenceUnknown}
}

// Check refreshes the cached key from the source and reports presence. Any
// source failure is treated as absent; checking never errors. A key the remote
// service has rejected stays absent until a different one shows up, so a
// revocation is not undone by re-reading the same stored value.
func (g *Gate) Check(ctx context.Context) Presence {
	key, err := g.source.APIKey(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil || key == "" || (g.revoked != "" && key == g.revoked) {
		g.presence = PresenceAbsent
		g.key = ""
		return g.presence
	}
	g.presence = PresencePresent
	g.key = key
	return g.presence
}

// Select stores a new key and unblocks the pipeline. On failure the previous
// state is left untouched so the caller may simply re-invoke.
func (g *Gate) Select(ctx context.Context, key string) error {
	if err := g.source.SetAPIKey(ctx, key); err != nil {
		return err
	}
	refreshed, err := g.source.APIKey(ctx)
	if err != nil || refreshed == "" {
		refreshed = key
	}
	g.mu.Lock()
	g.presence = PresencePresent
	g.key = refreshed
	g.revoked = ""
	g.mu.Unlock()
	return nil
}

// Invalidate revokes the cached presence flag. Called when the remote service
// rejects a key that previously looked valid.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	g.revoked = g.key
	g.presence = PresenceAbsent
	g.key = ""
	g.mu.Unlock()
}

// Presence returns the last observed state without consulting the source.
func (g *Gate) Presence() Presence {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.presence
}

// Key returns the cached API key, or the empty string when absent.
func (g *Gate) Key() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.key
}
