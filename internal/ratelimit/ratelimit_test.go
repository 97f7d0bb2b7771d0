package ratelimit

import (
	"testing"
	"time"
)

func TestTryAcquire_ConsumesCapacity(t *testing.T) {
	l := New(map[string]BucketConfig{
		"openweathermap": {Capacity: 3, RefillPerSecond: 0.001},
	})

	for i := 0; i < 3; i++ {
		if !l.TryAcquire("openweathermap") {
			t.Fatalf("TryAcquire() #%d = false, want true while tokens remain", i+1)
		}
	}
	if l.TryAcquire("openweathermap") {
		t.Error("TryAcquire() = true with empty bucket, want false")
	}
}

func TestTryAcquire_Refills(t *testing.T) {
	// 1000 tokens/sec so the bucket is full again after a few milliseconds.
	l := New(map[string]BucketConfig{
		"openmeteo": {Capacity: 2, RefillPerSecond: 1000},
	})

	if !l.TryAcquire("openmeteo") || !l.TryAcquire("openmeteo") {
		t.Fatal("expected initial capacity of 2 tokens")
	}

	time.Sleep(10 * time.Millisecond) // capacity / refill_rate elapsed, bucket full again

	if !l.TryAcquire("openmeteo") || !l.TryAcquire("openmeteo") {
		t.Error("bucket did not refill to capacity after capacity/refill_rate seconds")
	}
	if l.TryAcquire("openmeteo") {
		t.Error("refill exceeded capacity")
	}
}

func TestTryAcquire_UnknownProvider(t *testing.T) {
	l := New(nil)
	if l.TryAcquire("nope") {
		t.Error("TryAcquire() = true for unconfigured provider, want false")
	}
}

func TestTryAcquire_IndependentBuckets(t *testing.T) {
	l := New(map[string]BucketConfig{
		"weatherapi": {Capacity: 1, RefillPerSecond: 0.001},
		"openmeteo":  {Capacity: 1, RefillPerSecond: 0.001},
	})

	if !l.TryAcquire("weatherapi") {
		t.Fatal("weatherapi bucket should start full")
	}
	if l.TryAcquire("weatherapi") {
		t.Error("weatherapi bucket should be empty")
	}
	// Draining one provider must not affect another.
	if !l.TryAcquire("openmeteo") {
		t.Error("openmeteo bucket drained by weatherapi acquisitions")
	}
}

func TestSnapshot(t *testing.T) {
	cfg := map[string]BucketConfig{
		"openweathermap": {Capacity: 60, RefillPerSecond: 1.0},
		"weatherapi":     {Capacity: 100, RefillPerSecond: 1.5},
	}
	l := New(cfg)

	snap := l.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() has %d entries, want 2", len(snap))
	}
	if snap["openweathermap"] != cfg["openweathermap"] {
		t.Errorf("Snapshot()[openweathermap] = %+v, want %+v", snap["openweathermap"], cfg["openweathermap"])
	}

	// Mutating the snapshot must not affect the limiter.
	snap["weatherapi"] = BucketConfig{Capacity: 1, RefillPerSecond: 1}
	if l.Snapshot()["weatherapi"].Capacity != 100 {
		t.Error("Snapshot() returned internal map")
	}
}
