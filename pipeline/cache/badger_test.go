package cache

import (
	"testing"
	"time"
)

func TestBadgerTierRoundTrip(t *testing.T) {
	tier, err := NewBadgerTier(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerTier failed: %v", err)
	}
	defer tier.Close()

	if _, found, err := tier.Get("missing"); err != nil || found {
		t.Errorf("Get on empty store = found %v, err %v; want miss without error", found, err)
	}

	if err := tier.Put(Key("abc"), []byte("record"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, found, err := tier.Get(Key("abc"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || string(value) != "record" {
		t.Errorf("Get = %q, %v; want record, true", value, found)
	}
}

func TestBadgerTierTTLExpiry(t *testing.T) {
	tier, err := NewBadgerTier(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerTier failed: %v", err)
	}
	defer tier.Close()

	if err := tier.Put("k", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if _, found, err := tier.Get("k"); err != nil || found {
		t.Errorf("expired entry still served: found %v, err %v", found, err)
	}
}

func TestStoreWithBadgerSharedTier(t *testing.T) {
	tier, err := NewBadgerTier(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerTier failed: %v", err)
	}

	store := NewStore(nil, tier)
	defer store.Close()

	store.Put(Key("x"), []byte("value"))
	got, found := store.Get(Key("x"))
	if !found || string(got) != "value" {
		t.Errorf("Get = %q, %v; want value, true", got, found)
	}
	if store.Degraded() {
		t.Error("store degraded with a healthy badger tier")
	}
}
