package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"granaflow/internal/amqp"
	"granaflow/internal/api"
	"granaflow/internal/core"
	applog "granaflow/internal/log"
	"granaflow/internal/notify"
)

const (
	msgFillNameAndAmount = "Por favor, preencha os campos de nome e valor corretamente!"
	msgInvalidDateRange  = "Por favor, escolha uma data final maior que a inicial!"
	msgCreated           = "Transação criada com sucesso."
	msgCreateFailed      = "Erro inesperado ao criar transação."
	msgRecurrentFailed   = "Erro ao criar transações recorrentes."
)

// TransactionForm holds the fields of the create-transaction form.
type TransactionForm struct {
	Name        string
	Description string
	Type        core.TransactionType
	Subtype     string
	Amount      string
	ProofURL    *string

	Recurring bool
	// Date is used for single transactions, Start and End for recurring ones.
	Date  core.DateParts
	Start core.DateParts
	End   core.DateParts
}

// NewTransactionForm returns a form with the defaults: an income in the
// FOOD category dated today (UTC), with a one-day recurrence range.
func NewTransactionForm(now time.Time) TransactionForm {
	today := core.DateOf(now.UTC())
	return TransactionForm{
		Type:    core.Income,
		Subtype: core.SubtypeFood,
		Date:    today,
		Start:   today,
		End:     today,
	}
}

// Validate checks the form without touching the network.
func (f TransactionForm) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(f.Name)) < 3 {
		return ErrNameTooShort
	}
	if strings.TrimSpace(f.Amount) == "" {
		return ErrAmountRequired
	}
	if _, err := core.ParseAmount(f.Amount); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidType, f.Type)
	}
	if !f.Recurring {
		return f.Date.Validate()
	}
	if err := f.Start.Validate(); err != nil {
		return err
	}
	if err := f.End.Validate(); err != nil {
		return err
	}
	if f.End.Before(f.Start) {
		return ErrInvalidDateRange
	}
	return nil
}

type CreatorDeps struct {
	Auth      Authenticator
	Refetcher Refetcher
	// Reports may be nil when no report cache is kept.
	Reports   ReportInvalidator
	Publisher ChangePublisher
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// Creator submits new transactions to one wallet.
type Creator struct {
	walletID int64
	deps     CreatorDeps
	logger   *slog.Logger

	mu       sync.Mutex
	creating bool
}

func NewCreator(walletID int64, deps CreatorDeps) *Creator {
	return &Creator{
		walletID: walletID,
		deps:     deps,
		logger:   applog.ForComponent(deps.Logger, applog.ComponentFeature).With("feature", "create"),
	}
}

func (c *Creator) Creating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creating
}

// Submit validates form and creates the transaction. Invalid forms are
// rejected before any network call. On success the wallet is refetched and
// the change broadcast.
func (c *Creator) Submit(ctx context.Context, form TransactionForm) error {
	if err := form.Validate(); err != nil {
		msg := msgFillNameAndAmount
		if errors.Is(err, ErrInvalidDateRange) {
			msg = msgInvalidDateRange
		}
		c.notify(ctx, notify.New(notify.Warn, msg))
		return err
	}

	client, err := c.deps.Auth.Authenticate(ctx)
	if err != nil {
		return err
	}

	c.setCreating(true)
	defer c.setCreating(false)

	amount, _ := core.ParseAmount(form.Amount)
	kind := amqp.ChangeCreated
	fallback := msgCreateFailed
	if form.Recurring {
		kind = amqp.ChangeRecurrentCreated
		fallback = msgRecurrentFailed
		err = client.CreateRecurrentTransaction(ctx, api.RecurrentTransactionRequest{
			Name:        form.Name,
			Type:        form.Type,
			Amount:      core.FormatAmount(amount),
			StartDate:   form.Start.APITimestamp(),
			EndDate:     form.End.APITimestamp(),
			Subtype:     form.Subtype,
			Description: form.Description,
			WalletID:    c.walletID,
		})
	} else {
		err = client.CreateSingleTransaction(ctx, api.SingleTransactionRequest{
			Name:            form.Name,
			Type:            form.Type,
			Amount:          core.FormatAmount(amount),
			TransactionDate: form.Date.APITimestamp(),
			Subtype:         form.Subtype,
			Description:     form.Description,
			ProofURL:        form.ProofURL,
			WalletID:        c.walletID,
		})
	}
	if err != nil {
		applog.LogError(ctx, c.logger, "Failed to create transaction", err, applog.OpCreate,
			applog.NewFields().WithWallet(c.walletID))
		notify.Surface(ctx, c.deps.Notifier, err, fallback)
		return fmt.Errorf("create transaction: %w", err)
	}

	c.logger.InfoContext(ctx, "Transaction created",
		applog.FieldWalletID, c.walletID, "recurring", form.Recurring)
	c.notify(ctx, notify.New(notify.Success, msgCreated))
	afterChange(ctx, c.logger, c.deps.Refetcher, c.deps.Reports, c.deps.Publisher,
		amqp.NewTransactionChangeMessage(kind, c.walletID, 0))
	return nil
}

func (c *Creator) notify(ctx context.Context, msg notify.Message) {
	if c.deps.Notifier != nil {
		c.deps.Notifier.Notify(ctx, msg)
	}
}

func (c *Creator) setCreating(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creating = v
}

// afterChange drops the wallet's cached reports, refetches the wallet and
// broadcasts msg. Failures here do not undo the change that already
// happened, so they are only logged.
func afterChange(ctx context.Context, logger *slog.Logger, r Refetcher, inv ReportInvalidator, p ChangePublisher, msg *amqp.TransactionChangeMessage) {
	if inv != nil {
		inv.InvalidateWallet(msg.WalletID)
	}
	if r != nil {
		if err := r.Refetch(ctx); err != nil {
			logger.WarnContext(ctx, "Refetch after change failed", applog.FieldError, err.Error())
		}
	}
	if p != nil {
		if err := p.PublishTransactionChange(ctx, msg); err != nil {
			logger.WarnContext(ctx, "Failed to publish transaction change",
				applog.FieldError, err.Error(), applog.FieldWalletID, msg.WalletID)
		}
	}
}
