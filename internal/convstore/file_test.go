package convstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/chatcart-backend/internal/conversation"
	pkgerrors "github.com/angelmondragon/chatcart-backend/pkg/errors"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "carts.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStoreGetOrCreate(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	rec, err := store.GetOrCreate(ctx, "91900000")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if rec.State != conversation.StateNew || rec.Version != 1 {
		t.Fatalf("fresh record: state=%s version=%d", rec.State, rec.Version)
	}

	again, err := store.GetOrCreate(ctx, "91900000")
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if again.Version != rec.Version {
		t.Fatal("second read must return the same record, not a new one")
	}
}

func TestFileStoreReplaceBumpsVersion(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	rec, _ := store.GetOrCreate(ctx, "91900000")
	rec.State = conversation.StateCategory

	stored, err := store.Replace(ctx, "91900000", rec)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if stored.Version != rec.Version+1 {
		t.Fatalf("got version %d, want %d", stored.Version, rec.Version+1)
	}
	if stored.UpdatedAt.IsZero() {
		t.Fatal("store must stamp UpdatedAt")
	}

	reread, _ := store.GetOrCreate(ctx, "91900000")
	if reread.State != conversation.StateCategory {
		t.Fatalf("got state %s after persist", reread.State)
	}
}

func TestFileStoreReplaceDetectsConcurrentWrite(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	first, _ := store.GetOrCreate(ctx, "91900000")
	second := first.Clone()

	first.State = conversation.StateCategory
	if _, err := store.Replace(ctx, "91900000", first); err != nil {
		t.Fatalf("first Replace: %v", err)
	}

	second.State = conversation.StateItem
	_, err := store.Replace(ctx, "91900000", second)
	if err == nil {
		t.Fatal("stale write must be rejected")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("got error %v, want CONFLICT", err)
	}

	reread, _ := store.GetOrCreate(ctx, "91900000")
	if reread.State != conversation.StateCategory {
		t.Fatalf("lost update: state %s", reread.State)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carts.json")
	ctx := context.Background()

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	rec, _ := store.GetOrCreate(ctx, "91900000")
	rec.Cart.Add("cake_choco", "Chocolate Cake", decimal.NewFromInt(500), 2)
	rec.State = conversation.StateCart
	if _, err := store.Replace(ctx, "91900000", rec); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reread, err := reopened.GetOrCreate(ctx, "91900000")
	if err != nil {
		t.Fatalf("GetOrCreate after reopen: %v", err)
	}
	if reread.State != conversation.StateCart || reread.Cart["cake_choco"].Qty != 2 {
		t.Fatalf("state lost across reopen: %+v", reread)
	}
	if reread.Cart["cake_choco"].UnitPrice.String() != "500" {
		t.Fatalf("price lost across reopen: %s", reread.Cart["cake_choco"].UnitPrice)
	}
}

func TestFileStoreListAll(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "91900001"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := store.GetOrCreate(ctx, "91900002"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}
