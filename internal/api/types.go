package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"granaflow/internal/core"
	"granaflow/internal/session"
)

// WireBool decodes a boolean that the backend may send either as a JSON bool
// or as the strings "true"/"false". Any other string is false.
type WireBool bool

func (b *WireBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("decode bool string: %w", err)
		}
		*b = WireBool(session.DecodeWireBool(s))
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode bool: %w", err)
	}
	*b = WireBool(v)
	return nil
}

// RefreshResponse is the body of GET /refresh/.
type RefreshResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	IsPremium    WireBool `json:"is_premium"`
}

// TransactionWindow selects which side of today a listing covers.
type TransactionWindow int

const (
	UntilToday TransactionWindow = iota
	AfterToday
)

// ListTransactionsParams filters GET /api/transaction.
type ListTransactionsParams struct {
	WalletID int64
	// Limit caps the result size; zero means no limit.
	Limit  int
	Window TransactionWindow
}

// SingleTransactionRequest is the body of POST /api/transaction/single.
type SingleTransactionRequest struct {
	Name            string               `json:"name"`
	Type            core.TransactionType `json:"type"`
	Amount          string               `json:"amount"`
	TransactionDate string               `json:"transaction_date"`
	Subtype         string               `json:"subtype"`
	Description     string               `json:"description"`
	ProofURL        *string              `json:"proof_url"`
	WalletID        int64                `json:"wallet_id"`
}

// RecurrentTransactionRequest is the body of POST /api/transaction/recurrent.
// The backend expands it into one transaction per period between the dates.
type RecurrentTransactionRequest struct {
	Name        string               `json:"name"`
	Type        core.TransactionType `json:"type"`
	Amount      string               `json:"amount"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
	Subtype     string               `json:"subtype"`
	Description string               `json:"description"`
	ProofURL    *string              `json:"proof_url"`
	WalletID    int64                `json:"wallet_id"`
}

// TransactionPatch is the body of PATCH /api/transaction/{id}/{walletId}.
// Nil fields are left untouched.
type TransactionPatch struct {
	Name            *string               `json:"name,omitempty"`
	Type            *core.TransactionType `json:"type,omitempty"`
	Amount          *string               `json:"amount,omitempty"`
	TransactionDate *string               `json:"transaction_date,omitempty"`
	Subtype         *string               `json:"subtype,omitempty"`
	Description     *string               `json:"description,omitempty"`
	ProofURL        *string               `json:"proof_url,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Amount == nil && p.TransactionDate == nil &&
		p.Subtype == nil && p.Description == nil && p.ProofURL == nil
}

type walletsResponse struct {
	Wallets []core.Wallet `json:"wallets"`
}

type transactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
}

type transactionResponse struct {
	Transaction core.Transaction `json:"transaction"`
}

type annualReportResponse struct {
	Report []core.AnnualReportEntry `json:"report"`
}

type monthReportResponse struct {
	Report core.MonthReport `json:"report"`
}

type errorResponse struct {
	Message string `json:"message"`
}
