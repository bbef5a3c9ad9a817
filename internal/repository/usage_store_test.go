package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestUsageStore_UnknownUserGetsFreshRecord(t *testing.T) {
	store, err := NewUsageStore(filepath.Join(t.TempDir(), "usage.json"))
	if err != nil {
		t.Fatalf("NewUsageStore error: %v", err)
	}

	usage, err := store.Get(context.Background(), "newcomer")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if usage.UserID != "newcomer" {
		t.Errorf("expected UserID newcomer, got %q", usage.UserID)
	}
	if usage.FileCount != 0 || usage.StorageBytes != 0 {
		t.Errorf("expected zeroed counters, got files=%d storage=%d", usage.FileCount, usage.StorageBytes)
	}
	if usage.PeriodStart.IsZero() {
		t.Error("expected PeriodStart to be set")
	}
}

func TestUsageStore_GetReturnsIndependentCopy(t *testing.T) {
	store, err := NewUsageStore(filepath.Join(t.TempDir(), "usage.json"))
	if err != nil {
		t.Fatalf("NewUsageStore error: %v", err)
	}
	ctx := context.Background()

	usage, _ := store.Get(ctx, "u1")
	usage.FileCount = 2
	if err := store.Save(ctx, usage); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// Mutating the saved or fetched record must not change the store.
	usage.FileCount = 100
	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.FileCount != 2 {
		t.Errorf("stored record changed through caller pointer: files=%d", got.FileCount)
	}
	got.StorageBytes = 9999
	again, _ := store.Get(ctx, "u1")
	if again.StorageBytes != 0 {
		t.Errorf("stored record changed through fetched pointer: storage=%d", again.StorageBytes)
	}
}

func TestUsageStore_SaveAndRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	store, err := NewUsageStore(path)
	if err != nil {
		t.Fatalf("NewUsageStore error: %v", err)
	}
	ctx := context.Background()

	usage, _ := store.Get(ctx, "u1")
	usage.FileCount = 3
	usage.StorageBytes = 4096
	usage.QuizzesGenerated = 2
	usage.PeriodStart = time.Now().Add(-time.Hour)
	if err := store.Save(ctx, usage); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	reopened, err := NewUsageStore(path)
	if err != nil {
		t.Fatalf("NewUsageStore (reopen) error: %v", err)
	}
	got, err := reopened.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get after restore error: %v", err)
	}
	if got.FileCount != 3 || got.StorageBytes != 4096 || got.QuizzesGenerated != 2 {
		t.Errorf("restored usage mismatch: %+v", got)
	}
}
