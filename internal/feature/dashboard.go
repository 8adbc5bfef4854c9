package feature

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"granaflow/internal/core"
	applog "granaflow/internal/log"
	"granaflow/internal/notify"
	"granaflow/internal/store"
)

// UndatedLabel groups transactions whose date cannot be read.
const UndatedLabel = "Sem data"

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the Portuguese name of month (1-12).
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// MonthGroup is one "<Month> <Year>" bucket of transactions.
type MonthGroup struct {
	Label        string
	Transactions []core.Transaction
}

// GroupByMonth buckets transactions by the calendar month of their date,
// read straight from the YYYY-MM-DD prefix so no time zone can shift a date
// across a month boundary. Groups appear in the order their first
// transaction appears.
func GroupByMonth(txs []core.Transaction) []MonthGroup {
	var groups []MonthGroup
	index := make(map[string]int)
	for _, tx := range txs {
		label := UndatedLabel
		if d, err := core.ParseDateParts(tx.TransactionDate); err == nil {
			label = fmt.Sprintf("%s %d", MonthName(d.Month), d.Year)
		}
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, MonthGroup{Label: label})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
	}
	return groups
}

// Flatten concatenates groups back into one list.
func Flatten(groups []MonthGroup) []core.Transaction {
	var out []core.Transaction
	for _, g := range groups {
		out = append(out, g.Transactions...)
	}
	return out
}

// Balance sums income minus outcome. Transactions whose amount does not
// parse are left out of the sum and returned so the caller can flag them.
func Balance(txs []core.Transaction) (decimal.Decimal, []core.Transaction) {
	total := decimal.Zero
	var malformed []core.Transaction
	for _, tx := range txs {
		signed, err := tx.SignedAmount()
		if err != nil {
			malformed = append(malformed, tx)
			continue
		}
		total = total.Add(signed)
	}
	return total, malformed
}

// DashboardView is what the wallet dashboard shows.
type DashboardView struct {
	WalletID  int64
	Loading   bool
	Balance   decimal.Decimal
	Malformed []core.Transaction
	Months    []MonthGroup
	Future    []core.Transaction
}

type Dashboard struct {
	store    *store.TransactionStore
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewDashboard(s *store.TransactionStore, notifier notify.Notifier, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		store:    s,
		notifier: notifier,
		logger:   applog.ForComponent(logger, applog.ComponentFeature).With("feature", "dashboard"),
	}
}

// Open selects walletID and loads its transactions. The returned view is
// valid even when loading failed; it then shows what the store had.
func (d *Dashboard) Open(ctx context.Context, walletID int64) (DashboardView, error) {
	d.store.SetWallet(walletID)
	if err := d.store.Fetch(ctx); err != nil {
		notify.Surface(ctx, d.notifier, err, "Erro ao buscar transações")
		return d.View(), err
	}
	return d.View(), nil
}

// View computes the dashboard from the store's current contents.
func (d *Dashboard) View() DashboardView {
	snap := d.store.Snapshot()
	balance, malformed := Balance(snap.Mine)
	if len(malformed) > 0 {
		d.logger.Warn("Transactions with malformed amounts left out of balance",
			applog.FieldWalletID, snap.WalletID, applog.FieldCount, len(malformed))
	}
	return DashboardView{
		WalletID:  snap.WalletID,
		Loading:   snap.Loading,
		Balance:   balance,
		Malformed: malformed,
		Months:    GroupByMonth(snap.Mine),
		Future:    snap.Future,
	}
}
