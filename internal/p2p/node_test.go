package p2p

import (
	"path/filepath"
	"testing"
)

func TestLoadOrCreateKeyPersists(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "data", "identity.key")

	first, created, err := loadOrCreateKey(keyFile)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created {
		t.Fatal("expected a new key on first run")
	}

	second, created, err := loadOrCreateKey(keyFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if created {
		t.Fatal("expected the stored key to be reused")
	}
	if !first.Equals(second) {
		t.Fatal("reloaded key differs from the generated one")
	}
}
