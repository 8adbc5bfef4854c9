package memory

import (
	"context"
	"fmt"
	"sync"

	"granaflow/internal/core"
	ports "granaflow/internal/sheets"
)

var _ ports.TransactionWriter = (*Store)(nil)

// Store keeps exported rows in memory. Used for dry runs and tests.
type Store struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Store {
	return &Store{}
}

// AppendTransactions stores the rows and returns a synthetic range reference.
func (s *Store) AppendTransactions(_ context.Context, wallet core.Wallet, txs []core.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.rows) + 1
	s.rows = append(s.rows, ports.Rows(wallet, txs)...)
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	copy(out, s.rows)
	return out
}
