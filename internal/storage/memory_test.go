package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/olehkaliuzhnyi/bookstore-demo/pkg/models"
)

func TestMemoryOperationStore_RecordAndGet(t *testing.T) {
	s := NewMemoryOperationStore()

	op := &models.Operation{
		ID:        uuid.NewString(),
		Kind:      models.KindBuy,
		Quantity:  3,
		Timestamp: time.Now(),
	}
	if err := s.Record(op); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(op.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Quantity != 3 {
		t.Errorf("Get returned %+v", got)
	}

	missing, err := s.Get("nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("expected nil for unknown ID")
	}
}

func TestMemoryOperationStore_ListOrder(t *testing.T) {
	s := NewMemoryOperationStore()

	kinds := []models.TxKind{models.KindBuy, models.KindReturn, models.KindBuy}
	for _, k := range kinds {
		if err := s.Record(&models.Operation{ID: uuid.NewString(), Kind: k}); err != nil {
			t.Fatal(err)
		}
	}

	ops, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(ops))
	}
	for i, k := range kinds {
		if ops[i].Kind != k {
			t.Errorf("ops[%d].Kind = %s, want %s", i, ops[i].Kind, k)
		}
	}
}
