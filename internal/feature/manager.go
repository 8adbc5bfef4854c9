package feature

import (
	"context"
	"fmt"
	"log/slog"

	"granaflow/internal/amqp"
	"granaflow/internal/api"
	"granaflow/internal/core"
	applog "granaflow/internal/log"
	"granaflow/internal/notify"
)

type ManagerDeps struct {
	Auth      Authenticator
	Refetcher Refetcher
	// Reports may be nil when no report cache is kept.
	Reports   ReportInvalidator
	Publisher ChangePublisher
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// TransactionManager reads, edits and deletes single transactions.
type TransactionManager struct {
	deps   ManagerDeps
	logger *slog.Logger
}

func NewTransactionManager(deps ManagerDeps) *TransactionManager {
	return &TransactionManager{
		deps:   deps,
		logger: applog.ForComponent(deps.Logger, applog.ComponentFeature).With("feature", "manager"),
	}
}

func (m *TransactionManager) Get(ctx context.Context, id, walletID int64) (core.Transaction, error) {
	client, err := m.deps.Auth.Authenticate(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := client.GetTransaction(ctx, id, walletID)
	if err != nil {
		m.fail(ctx, "Failed to get transaction", err, applog.OpRead, id, walletID, "Erro ao buscar transação.")
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// Edit applies patch to a transaction.
func (m *TransactionManager) Edit(ctx context.Context, id, walletID int64, patch api.TransactionPatch) error {
	if patch.Empty() {
		return ErrEmptyPatch
	}
	client, err := m.deps.Auth.Authenticate(ctx)
	if err != nil {
		return err
	}
	if err := client.EditTransaction(ctx, id, walletID, patch); err != nil {
		m.fail(ctx, "Failed to edit transaction", err, applog.OpUpdate, id, walletID, "Erro ao editar transação.")
		return fmt.Errorf("edit transaction %d: %w", id, err)
	}

	m.success(ctx, "Transação atualizada.")
	afterChange(ctx, m.logger, m.deps.Refetcher, m.deps.Reports, m.deps.Publisher,
		amqp.NewTransactionChangeMessage(amqp.ChangeUpdated, walletID, id))
	return nil
}

func (m *TransactionManager) Delete(ctx context.Context, id, walletID int64) error {
	client, err := m.deps.Auth.Authenticate(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteTransaction(ctx, id, walletID); err != nil {
		m.fail(ctx, "Failed to delete transaction", err, applog.OpDelete, id, walletID, "Erro ao excluir transação.")
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	m.success(ctx, "Transação excluída.")
	afterChange(ctx, m.logger, m.deps.Refetcher, m.deps.Reports, m.deps.Publisher,
		amqp.NewTransactionChangeMessage(amqp.ChangeDeleted, walletID, id))
	return nil
}

func (m *TransactionManager) fail(ctx context.Context, msg string, err error, op string, id, walletID int64, fallback string) {
	applog.LogError(ctx, m.logger, msg, err, op,
		applog.NewFields().WithWallet(walletID).WithTransaction(id))
	notify.Surface(ctx, m.deps.Notifier, err, fallback)
}

func (m *TransactionManager) success(ctx context.Context, detail string) {
	if m.deps.Notifier != nil {
		m.deps.Notifier.Notify(ctx, notify.New(notify.Success, detail))
	}
}
