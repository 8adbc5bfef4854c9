// Package apitest provides an in-process fake of the GranaFlow backend for
// tests. It rotates refresh tokens like the real service and only accepts the
// access tokens it has issued.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"granaflow/internal/core"
)

// Grant is what the refresh endpoint hands out for a given refresh token.
type Grant struct {
	Token        string
	RefreshToken string
	IsPremium    bool
}

// Request is a recorded call.
type Request struct {
	Method string
	Path   string
	Query  string
	Bearer string
	Body   map[string]any
}

type failure struct {
	status  int
	message string
}

// Backend is a fake GranaFlow API.
type Backend struct {
	Server *httptest.Server

	// Hook runs before each request is handled, outside the lock.
	Hook func(r *http.Request)

	mu       sync.Mutex
	grants   map[string]Grant
	access   map[string]bool
	counter  int
	nextID   int64
	wallets  []core.Wallet
	until    map[int64][]core.Transaction
	future   map[int64][]core.Transaction
	annual   map[string][]core.AnnualReportEntry
	month    map[string]core.MonthReport
	failures map[string]failure
	requests []Request
}

// NewBackend starts a fake backend. It is closed when the test ends.
func NewBackend(t interface{ Cleanup(func()) }) *Backend {
	b := &Backend{
		grants:   make(map[string]Grant),
		access:   make(map[string]bool),
		nextID:   1000,
		until:    make(map[int64][]core.Transaction),
		future:   make(map[int64][]core.Transaction),
		annual:   make(map[string][]core.AnnualReportEntry),
		month:    make(map[string]core.MonthReport),
		failures: make(map[string]failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /refresh/", b.handleRefresh)
	mux.HandleFunc("GET /api/wallet", b.authed(b.handleWallets))
	mux.HandleFunc("GET /api/transaction", b.authed(b.handleListTransactions))
	mux.HandleFunc("POST /api/transaction/single", b.authed(b.handleCreateSingle))
	mux.HandleFunc("POST /api/transaction/recurrent", b.authed(b.handleCreateRecurrent))
	mux.HandleFunc("GET /api/transaction/{id}/{wallet}", b.authed(b.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transaction/{id}/{wallet}", b.authed(b.handlePatchTransaction))
	mux.HandleFunc("DELETE /api/transaction/{id}/{wallet}", b.authed(b.handleDeleteTransaction))
	mux.HandleFunc("GET /api/wallet/{id}/reports/annual", b.authed(b.handleAnnual))
	mux.HandleFunc("GET /api/wallet/{id}/reports/month", b.authed(b.handleMonth))

	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if b.Hook != nil {
			b.Hook(r)
		}
		if f, ok := b.failureFor(r); ok {
			writeError(w, f.status, f.message)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the base URL of the fake.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Issue makes refresh a valid refresh token with generated rotation.
func (b *Backend) Issue(refresh string) {
	b.Grant(refresh, Grant{})
}

// Grant makes refresh a valid refresh token that yields g.
func (b *Backend) Grant(refresh string, g Grant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.grants[refresh] = g
}

// Fail makes every request to method+path answer status with message.
// A zero status removes the failure.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(b.failures, key)
		return
	}
	b.failures[key] = failure{status: status, message: message}
}

func (b *Backend) SetWallets(wallets []core.Wallet) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wallets = wallets
}

// SetTransactions replaces a wallet's past and future transactions.
func (b *Backend) SetTransactions(walletID int64, until, future []core.Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until[walletID] = until
	b.future[walletID] = future
}

func (b *Backend) SetAnnualReport(walletID int64, year int, entries []core.AnnualReportEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.annual[fmt.Sprintf("%d/%d", walletID, year)] = entries
}

func (b *Backend) SetMonthReport(walletID int64, year, month int, report core.MonthReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.month[fmt.Sprintf("%d/%d/%d", walletID, year, month)] = report
}

// Requests returns the recorded calls, oldest first.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many recorded calls hit method+path.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Transactions returns the stored past transactions of a wallet.
func (b *Backend) Transactions(walletID int64) []core.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Transaction(nil), b.until[walletID]...)
}

func (b *Backend) record(r *http.Request) {
	rec := Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Bearer: bearer(r),
	}
	if r.Body != nil && r.ContentLength != 0 {
		data, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(data)))
		var body map[string]any
		if json.Unmarshal(data, &body) == nil {
			rec.Body = body
		}
	}
	b.mu.Lock()
	b.requests = append(b.requests, rec)
	b.mu.Unlock()
}

func (b *Backend) failureFor(r *http.Request) (failure, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.failures[r.Method+" "+r.URL.Path]
	return f, ok
}

func (b *Backend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		ok := b.access[bearer(r)]
		b.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}
		next(w, r)
	}
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	token := bearer(r)
	g, ok := b.grants[token]
	if !ok {
		b.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	delete(b.grants, token)
	b.counter++
	if g.Token == "" {
		g.Token = fmt.Sprintf("access-%d", b.counter)
	}
	if g.RefreshToken == "" {
		g.RefreshToken = fmt.Sprintf("refresh-%d", b.counter)
	}
	b.grants[g.RefreshToken] = Grant{IsPremium: g.IsPremium}
	b.access[g.Token] = true
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"token":         g.Token,
		"refresh_token": g.RefreshToken,
		"is_premium":    g.IsPremium,
	})
}

func (b *Backend) handleWallets(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	wallets := append([]core.Wallet{}, b.wallets...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"wallets": wallets})
}

func (b *Backend) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	walletID, err := strconv.ParseInt(r.URL.Query().Get("wallet_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "wallet_id is required")
		return
	}
	b.mu.Lock()
	source := b.until
	if r.URL.Query().Get("is_after_today") == "true" {
		source = b.future
	}
	txs := append([]core.Transaction{}, source[walletID]...)
	b.mu.Unlock()

	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit < len(txs) {
		txs = txs[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (b *Backend) handleCreateSingle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string               `json:"name"`
		Type            core.TransactionType `json:"type"`
		Amount          string               `json:"amount"`
		TransactionDate string               `json:"transaction_date"`
		Subtype         string               `json:"subtype"`
		Description     string               `json:"description"`
		ProofURL        *string              `json:"proof_url"`
		WalletID        int64                `json:"wallet_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	b.nextID++
	tx := core.Transaction{
		ID:              b.nextID,
		Name:            req.Name,
		Type:            req.Type,
		Description:     req.Description,
		Amount:          req.Amount,
		TransactionDate: req.TransactionDate,
		Subtype:         req.Subtype,
		ProofURL:        req.ProofURL,
		WalletID:        req.WalletID,
	}
	b.until[req.WalletID] = append(b.until[req.WalletID], tx)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": tx})
}

func (b *Backend) handleCreateRecurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]any{"message": "created"})
}

func (b *Backend) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, walletID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, tx := range b.until[walletID] {
		if tx.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
			return
		}
	}
	writeError(w, http.StatusNotFound, "transaction not found")
}

func (b *Backend) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	id, walletID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	txs := b.until[walletID]
	for i := range txs {
		if txs[i].ID != id {
			continue
		}
		if v, ok := patch["name"].(string); ok {
			txs[i].Name = v
		}
		if v, ok := patch["amount"].(string); ok {
			txs[i].Amount = v
		}
		if v, ok := patch["description"].(string); ok {
			txs[i].Description = v
		}
		if v, ok := patch["type"].(string); ok {
			txs[i].Type = core.TransactionType(v)
		}
		if v, ok := patch["subtype"].(string); ok {
			txs[i].Subtype = v
		}
		if v, ok := patch["transaction_date"].(string); ok {
			txs[i].TransactionDate = v
		}
		writeJSON(w, http.StatusOK, map[string]any{"transaction": txs[i]})
		return
	}
	writeError(w, http.StatusNotFound, "transaction not found")
}

func (b *Backend) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, walletID, ok := pathIDs(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	txs := b.until[walletID]
	for i := range txs {
		if txs[i].ID == id {
			b.until[walletID] = append(txs[:i:i], txs[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "transaction not found")
}

func (b *Backend) handleAnnual(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("id") + "/" + r.URL.Query().Get("year")
	b.mu.Lock()
	entries := append([]core.AnnualReportEntry{}, b.annual[key]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"report": entries})
}

func (b *Backend) handleMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := r.PathValue("id") + "/" + q.Get("year") + "/" + q.Get("month")
	b.mu.Lock()
	report := b.month[key]
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func pathIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	id, err1 := strconv.ParseInt(r.PathValue("id"), 10, 64)
	walletID, err2 := strconv.ParseInt(r.PathValue("wallet"), 10, 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "invalid ids")
		return 0, 0, false
	}
	return id, walletID, true
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, map[string]string{"message": message})
}
