package feature

import (
	"fmt"
	"strings"
	"sync"

	"granaflow/internal/core"
	"granaflow/internal/store"
)

// Method selects which transactions the payments list shows.
type Method string

const (
	MethodAll     Method = ""
	MethodIncome  Method = "INCOME"
	MethodOutcome Method = "OUTCOME"
	MethodFuture  Method = "FUTURE"
)

// ParseMethod accepts the method names case-insensitively; "all" and the
// empty string both mean MethodAll.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodAll, "ALL":
		return MethodAll, nil
	case MethodIncome, MethodOutcome, MethodFuture:
		return m, nil
	default:
		return MethodAll, fmt.Errorf("unknown payments filter %q", s)
	}
}

// Filter picks the transactions shown for m.
func Filter(snap store.TransactionsSnapshot, m Method) []core.Transaction {
	switch m {
	case MethodAll:
		return snap.Mine
	case MethodFuture:
		return snap.Future
	default:
		var out []core.Transaction
		for _, tx := range snap.Mine {
			if string(tx.Type) == string(m) {
				out = append(out, tx)
			}
		}
		return out
	}
}

// Payments is the filtered transaction list of the selected wallet.
type Payments struct {
	store *store.TransactionStore

	mu     sync.Mutex
	method Method
}

func NewPayments(s *store.TransactionStore) *Payments {
	return &Payments{store: s}
}

func (p *Payments) SetMethod(m Method) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.method = m
}

func (p *Payments) Method() Method {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.method
}

// Selected returns the transactions matching the current method.
func (p *Payments) Selected() []core.Transaction {
	return Filter(p.store.Snapshot(), p.Method())
}
