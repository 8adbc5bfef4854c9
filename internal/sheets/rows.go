package sheets

import (
	"strconv"

	"granaflow/internal/core"
)

// Header is the first row of an export sheet.
var Header = []any{"Carteira", "Data", "Nome", "Tipo", "Categoria", "Valor", "Descrição", "ID"}

// Rows converts transactions to sheet rows in Header order. Amounts are
// signed, so a column sum gives the balance; malformed amounts are exported
// verbatim.
func Rows(wallet core.Wallet, txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs))
	for _, tx := range txs {
		amount := tx.Amount
		if signed, err := tx.SignedAmount(); err == nil {
			amount = core.FormatAmount(signed)
		}
		date := tx.TransactionDate
		if d, err := core.ParseDateParts(tx.TransactionDate); err == nil {
			date = d.String()
		}
		rows = append(rows, []any{
			wallet.Name,
			date,
			tx.Name,
			string(tx.Type),
			tx.Subtype,
			amount,
			tx.Description,
			strconv.FormatInt(tx.ID, 10),
		})
	}
	return rows
}
