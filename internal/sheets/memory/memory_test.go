package memory

import (
	"context"
	"testing"

	"granaflow/internal/core"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()
	wallet := core.Wallet{ID: 1, Name: "Casa"}

	ref, err := s.AppendTransactions(context.Background(), wallet, []core.Transaction{
		{ID: 1, Name: "A", Type: core.Income, Amount: "1", TransactionDate: "2025-01-01"},
		{ID: 2, Name: "B", Type: core.Outcome, Amount: "2", TransactionDate: "2025-01-02"},
	})
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	ref, err = s.AppendTransactions(context.Background(), wallet, []core.Transaction{
		{ID: 3, Name: "C", Type: core.Income, Amount: "3", TransactionDate: "2025-01-03"},
	})
	if err != nil || ref != "mem:3-3" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if got := len(s.Rows()); got != 3 {
		t.Errorf("expected 3 rows, got %d", got)
	}
}

func TestMemoryStoreEmptyAppend(t *testing.T) {
	s := New()
	ref, err := s.AppendTransactions(context.Background(), core.Wallet{}, nil)
	if err != nil || ref != "" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
}
