package cache

import (
	"testing"
	"time"
)

func TestKeyNormalization(t *testing.T) {
	if Key("Workshop") != Key("  workshop ") {
		t.Error("keys should match regardless of case and whitespace")
	}
	if Key("workshop") == Key("yoga") {
		t.Error("different queries must not collide")
	}
}

func TestEntryFresh(t *testing.T) {
	entry := Entry{Value: "x", Timestamp: time.Now()}
	if !entry.Fresh(time.Minute) {
		t.Error("new entry should be fresh within TTL")
	}
	if entry.Fresh(0) {
		t.Error("zero TTL disables caching")
	}

	stale := Entry{Value: "x", Timestamp: time.Now().Add(-2 * time.Minute)}
	if stale.Fresh(time.Minute) {
		t.Error("expired entry should not be fresh")
	}
}
