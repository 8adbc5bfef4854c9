package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"granaflow/internal/core"
)

// Client is an API client bound to one access token. Obtain it from
// Wrapper.Authenticate; it is meant for the calls of a single user action.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	logger  *slog.Logger
}

func newClient(ctx context.Context, baseURL string, base *http.Client, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    bearerClient(ctx, base, token),
		token:   token,
		logger:  logger,
	}
}

// BearerToken returns the access token the client authenticates with.
func (c *Client) BearerToken() string {
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return call(ctx, c.http, c.logger, c.baseURL, method, path, query, body, out)
}

// ListWallets returns the current user's wallets.
func (c *Client) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	var resp walletsResponse
	if err := c.do(ctx, http.MethodGet, "/api/wallet", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Wallets, nil
}

// ListTransactions returns the transactions of a wallet on one side of today.
func (c *Client) ListTransactions(ctx context.Context, p ListTransactionsParams) ([]core.Transaction, error) {
	q := url.Values{}
	q.Set("wallet_id", strconv.FormatInt(p.WalletID, 10))
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	switch p.Window {
	case AfterToday:
		q.Set("is_after_today", "true")
	default:
		q.Set("is_until_today", "true")
	}

	var resp transactionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/transaction", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) CreateSingleTransaction(ctx context.Context, req SingleTransactionRequest) error {
	return c.do(ctx, http.MethodPost, "/api/transaction/single", nil, req, nil)
}

func (c *Client) CreateRecurrentTransaction(ctx context.Context, req RecurrentTransactionRequest) error {
	return c.do(ctx, http.MethodPost, "/api/transaction/recurrent", nil, req, nil)
}

func (c *Client) GetTransaction(ctx context.Context, id, walletID int64) (core.Transaction, error) {
	var resp transactionResponse
	if err := c.do(ctx, http.MethodGet, transactionPath(id, walletID), nil, nil, &resp); err != nil {
		return core.Transaction{}, err
	}
	return resp.Transaction, nil
}

func (c *Client) EditTransaction(ctx context.Context, id, walletID int64, patch TransactionPatch) error {
	return c.do(ctx, http.MethodPatch, transactionPath(id, walletID), nil, patch, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id, walletID int64) error {
	return c.do(ctx, http.MethodDelete, transactionPath(id, walletID), nil, nil, nil)
}

// AnnualReport returns the per-month report of a wallet for year.
func (c *Client) AnnualReport(ctx context.Context, walletID int64, year int) ([]core.AnnualReportEntry, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))

	var resp annualReportResponse
	path := fmt.Sprintf("/api/wallet/%d/reports/annual", walletID)
	if err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Report, nil
}

// MonthReport returns the category breakdown of a wallet for one month.
func (c *Client) MonthReport(ctx context.Context, walletID int64, year, month int) (core.MonthReport, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))

	var resp monthReportResponse
	path := fmt.Sprintf("/api/wallet/%d/reports/month", walletID)
	if err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return core.MonthReport{}, err
	}
	return resp.Report, nil
}

func transactionPath(id, walletID int64) string {
	return fmt.Sprintf("/api/transaction/%d/%d", id, walletID)
}
