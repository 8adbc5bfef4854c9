package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"granaflow/internal/api"
	"granaflow/internal/auth"
	"granaflow/internal/backend"
	"granaflow/internal/cli"
	"granaflow/internal/core"
	"granaflow/internal/feature"
	"granaflow/internal/sheets"
	"granaflow/internal/sheets/memory"
)

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := e.flags("login")
	timeout := fs.Duration("timeout", 5*time.Minute, "how long to wait for the login callback")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	srv, err := auth.NewCallbackServer(e.cfg.CallbackAddr(), sess.Auth, e.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Aguardando o retorno do login em %s\n", srv.URL())
	if err := sess.Auth.Login(ctx); err != nil {
		_ = srv.Close()
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	state, err := srv.Wait(wctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if state != auth.Authenticated {
		return errors.New("login não concluído")
	}
	profile, _, _ := sess.Auth.UserProfile(ctx)
	fmt.Fprintf(e.stdout, "Bem-vindo, %s!\n", profile.Name)
	return nil
}

func cmdLogout(ctx context.Context, e *env, args []string) error {
	if err := e.flags("logout").Parse(args); err != nil {
		return err
	}
	sess, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	out, err := sess.Auth.Logout(ctx)
	if err != nil {
		return err
	}
	if out {
		fmt.Fprintln(e.stdout, "Sessão encerrada.")
	} else {
		fmt.Fprintln(e.stdout, "Saída cancelada.")
	}
	return nil
}

func cmdStatus(ctx context.Context, e *env, args []string) error {
	if err := e.flags("status").Parse(args); err != nil {
		return err
	}
	sess, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	state := sess.Init(ctx)
	fmt.Fprintf(e.stdout, "Estado: %s\n", state)
	if state != auth.Authenticated {
		return nil
	}
	if profile, ok, err := sess.Auth.UserProfile(ctx); err == nil && ok {
		fmt.Fprintf(e.stdout, "Usuário: %s <%s>\n", profile.Name, profile.Email)
	}
	if premium, ok, err := sess.Store.IsPremium(ctx); err == nil && ok {
		fmt.Fprintf(e.stdout, "Premium: %t\n", premium)
	}
	return nil
}

func cmdWallets(ctx context.Context, e *env, args []string) error {
	if err := e.flags("wallets").Parse(args); err != nil {
		return err
	}
	sess, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := sess.Wallets.Load(ctx); err != nil {
		return err
	}
	wallets := sess.Wallets.Snapshot().Wallets
	if len(wallets) == 0 {
		fmt.Fprintln(e.stdout, "Nenhuma carteira encontrada.")
		return nil
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOME\tDESCRIÇÃO")
	for _, w := range wallets {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", w.ID, w.Name, w.Description)
	}
	return tw.Flush()
}

func cmdTransactions(ctx context.Context, e *env, args []string) error {
	fs := e.flags("transactions")
	walletID := fs.Int64("wallet", 0, "wallet id")
	method := fs.String("method", "all", "filter: all, income, outcome or future")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := feature.ParseMethod(*method)
	if err != nil {
		return err
	}

	sess, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := openWallet(ctx, sess, *walletID); err != nil {
		return err
	}
	if _, err := sess.Dashboard().Open(ctx, *walletID); err != nil {
		return err
	}
	payments := sess.Payments()
	payments.SetMethod(m)
	return printTransactions(e.stdout, payments.Selected())
}

func cmdDashboard(ctx context.Context, e *env, args []string) error {
	fs := e.flags("dashboard")
	walletID := fs.Int64("wallet", 0, "wallet id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := openWallet(ctx, sess, *walletID); err != nil {
		return err
	}
	view, err := sess.Dashboard().Open(ctx, *walletID)
	if err != nil {
		return err
	}
	return printDashboard(e.stdout, view)
}

func cmdCreate(ctx context.Context, e *env, args []string) error {
	form := feature.NewTransactionForm(time.Now())

	fs := e.flags("create")
	walletID := fs.Int64("wallet", 0, "wallet id")
	fs.StringVar(&form.Name, "name", "", "transaction name (at least 3 characters)")
	fs.StringVar(&form.Amount, "amount", "", "amount, e.g. 100.00")
	fs.StringVar(&form.Description, "description", "", "description")
	fs.StringVar(&form.Subtype, "subtype", form.Subtype, "category")
	txType := fs.String("type", string(form.Type), "INCOME or OUTCOME")
	proof := fs.String("proof", "", "proof URL")
	fs.BoolVar(&form.Recurring, "recurrent", false, "create a recurring transaction")
	date := fs.String("date", form.Date.String(), "date of a single transaction (YYYY-MM-DD)")
	start := fs.String("start", form.Start.String(), "first date of a recurring transaction")
	end := fs.String("end", form.End.String(), "last date of a recurring transaction")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := core.ParseTransactionType(*txType)
	if err != nil {
		return err
	}
	form.Type = t
	if *proof != "" {
		form.ProofURL = proof
	}
	for _, d := range []struct {
		raw string
		dst *core.DateParts
	}{{*date, &form.Date}, {*start, &form.Start}, {*end, &form.End}} {
		parsed, err := core.ParseDateParts(d.raw)
		if err != nil {
			return err
		}
		*d.dst = parsed
	}

	sess, err := e.open(ctx, true)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := openWallet(ctx, sess, *walletID); err != nil {
		return err
	}
	return sess.Creator(*walletID).Submit(ctx, form)
}

func cmdShow(ctx context.Context, e *env, args []string) error {
	fs := e.flags("show")
	walletID := fs.Int64("wallet", 0, "wallet id")
	id := fs.Int64("id", 0, "transaction id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := openWallet(ctx, sess, *walletID); err != nil {
		return err
	}
	tx, err := sess.Manager(*walletID).Get(ctx, *id, *walletID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", tx.ID)
	fmt.Fprintf(tw, "Nome\t%s\n", tx.Name)
	fmt.Fprintf(tw, "Tipo\t%s\n", tx.Type)
	fmt.Fprintf(tw, "Categoria\t%s\n", tx.Subtype)
	fmt.Fprintf(tw, "Valor\t%s\n", tx.Amount)
	fmt.Fprintf(tw, "Data\t%s\n", displayDate(tx.TransactionDate))
	fmt.Fprintf(tw, "Descrição\t%s\n", tx.Description)
	if tx.ProofURL != nil {
		fmt.Fprintf(tw, "Comprovante\t%s\n", *tx.ProofURL)
	}
	return tw.Flush()
}

func cmdEdit(ctx context.Context, e *env, args []string) error {
	fs := e.flags("edit")
	walletID := fs.Int64("wallet", 0, "wallet id")
	id := fs.Int64("id", 0, "transaction id")
	name := fs.String("name", "", "new name")
	amount := fs.String("amount", "", "new amount")
	txType := fs.String("type", "", "new type")
	subtype := fs.String("subtype", "", "new category")
	description := fs.String("description", "", "new description")
	date := fs.String("date", "", "new date (YYYY-MM-DD)")
	proof := fs.String("proof", "", "new proof URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var patch api.TransactionPatch
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "amount":
			if _, err := core.ParseAmount(*amount); err != nil {
				parseErr = err
				return
			}
			patch.Amount = amount
		case "type":
			t, err := core.ParseTransactionType(*txType)
			if err != nil {
				parseErr = err
				return
			}
			patch.Type = &t
		case "subtype":
			patch.Subtype = subtype
		case "description":
			patch.Description = description
		case "date":
			d, err := core.ParseDateParts(*date)
			if err != nil {
				parseErr = err
				return
			}
			ts := d.APITimestamp()
			patch.TransactionDate = &ts
		case "proof":
			patch.ProofURL = proof
		}
	})
	if parseErr != nil {
		return parseErr
	}

	sess, err := e.open(ctx, true)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := openWallet(ctx, sess, *walletID); err != nil {
		return err
	}
	return sess.Manager(*walletID).Edit(ctx, *id, *walletID, patch)
}

func cmdDelete(ctx context.Context, e *env, args []string) error {
	fs := e.flags("delete")
	walletID := fs.Int64("wallet", 0, "wallet id")
	id := fs.Int64("id", 0, "transaction id")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := e.open(ctx, true)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := openWallet(ctx, sess, *walletID); err != nil {
		return err
	}
	if !*yes {
		ok, err := cli.NewConfirmer(e.stdin, e.stdout).Confirm(ctx, fmt.Sprintf("Excluir a transação %d?", *id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(e.stdout, "Exclusão cancelada.")
			return nil
		}
	}
	return sess.Manager(*walletID).Delete(ctx, *id, *walletID)
}

func cmdReport(ctx context.Context, e *env, args []string) error {
	fs := e.flags("report")
	walletID := fs.Int64("wallet", 0, "wallet id")
	year := fs.Int("year", 0, "report year (default: current year)")
	month := fs.Int("month", 0, "month 1-12 for a monthly report; 0 for the annual one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := openWallet(ctx, sess, *walletID); err != nil {
		return err
	}
	reports := sess.ReportsFor(*walletID)
	if *year != 0 {
		if err := reports.SelectYear(*year); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	if *month == 0 {
		entries, err := reports.Annual(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Relatório anual %d\n", reports.SelectedYear())
		fmt.Fprintln(tw, "MÊS\tENTRADAS\tSAÍDAS\tSALDO\t")
		for _, entry := range entries {
			label := entry.Month
			if m, err := strconv.Atoi(entry.Month); err == nil {
				label = feature.MonthName(m)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", label, entry.Income, entry.Outcome, entry.FinalBalance)
		}
		return tw.Flush()
	}

	report, err := reports.Month(ctx, *month)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s %d\n", feature.MonthName(*month), reports.SelectedYear())
	fmt.Fprintf(e.stdout, "Entradas: %s  Saídas: %s  Saldo: %s\n", report.TotalIncome, report.TotalOutcome, report.FinalBalance)
	fmt.Fprintln(tw, "CATEGORIA\tTIPO\tTOTAL\t%\t")
	for _, st := range report.Subtypes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", st.Subtype, st.Type, st.Total, st.Percentage)
	}
	return tw.Flush()
}

func cmdExport(ctx context.Context, e *env, args []string) error {
	fs := e.flags("export")
	walletID := fs.Int64("wallet", 0, "wallet id")
	future := fs.Bool("future", false, "include future transactions")
	dryRun := fs.Bool("dry-run", false, "print the rows instead of writing to the spreadsheet")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bcfg, err := backend.FromAppConfig(e.cfg, e.ephemeral)
	if err != nil {
		return err
	}
	writer, err := backend.NewFactory(e.logger).CreateExporter(ctx, bcfg, *dryRun)
	if err != nil {
		return err
	}

	sess, err := e.open(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := openWallet(ctx, sess, *walletID); err != nil {
		return err
	}
	res, err := sess.ExportWallet(ctx, *walletID, *future, writer)
	if err != nil {
		return err
	}

	if mem, ok := writer.(*memory.Store); ok {
		fmt.Fprintln(e.stdout, joinRow(sheets.Header))
		for _, row := range mem.Rows() {
			fmt.Fprintln(e.stdout, joinRow(row))
		}
		return nil
	}
	fmt.Fprintf(e.stdout, "%d transações de %q exportadas para %s\n", res.Count, res.Wallet.Name, res.Ref)
	return nil
}

func cmdWatch(ctx context.Context, e *env, args []string) error {
	fs := e.flags("watch")
	walletID := fs.Int64("wallet", 0, "wallet id")
	interval := fs.Duration("interval", e.cfg.RefreshInterval, "periodic refresh interval (0 disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := e.open(ctx, true)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	if err := signedIn(ctx, sess); err != nil {
		return err
	}
	if err := openWallet(ctx, sess, *walletID); err != nil {
		return err
	}
	dashboard := sess.Dashboard()
	view, err := dashboard.Open(ctx, *walletID)
	if err != nil {
		return err
	}
	if err := printDashboard(e.stdout, view); err != nil {
		return err
	}

	events := sess.Events()
	if events == nil && *interval <= 0 {
		return errors.New("nada a acompanhar: configure AMQP_URL ou use -interval")
	}

	ctx, cancel := cli.SignalContext(ctx, e.logger, nil)
	defer cancel()

	watcher := sess.Watcher()
	watcher.OnRefresh = func(context.Context) {
		fmt.Fprintln(e.stdout, "---")
		_ = printDashboard(e.stdout, dashboard.View())
	}

	errCh := make(chan error, 1)
	if events != nil {
		go func() {
			errCh <- events.ConsumeTransactionChanges(ctx, watcher.HandleChange)
		}()
	}
	if *interval > 0 {
		go watcher.PeriodicRefresh(ctx, *interval)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("watch: %w", err)
	}
}

func printTransactions(w io.Writer, txs []core.Transaction) error {
	if len(txs) == 0 {
		fmt.Fprintln(w, "Nenhuma transação encontrada.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATA\tNOME\tTIPO\tCATEGORIA\tVALOR")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, displayDate(tx.TransactionDate), tx.Name, tx.Type, tx.Subtype, tx.Amount)
	}
	return tw.Flush()
}

func printDashboard(w io.Writer, view feature.DashboardView) error {
	fmt.Fprintf(w, "Saldo: %s\n", core.FormatAmount(view.Balance))
	if n := len(view.Malformed); n > 0 {
		fmt.Fprintf(w, "Atenção: %d transação(ões) com valor inválido fora do saldo.\n", n)
	}
	for _, group := range view.Months {
		fmt.Fprintf(w, "\n%s\n", group.Label)
		if err := printTransactions(w, group.Transactions); err != nil {
			return err
		}
	}
	if len(view.Future) > 0 {
		fmt.Fprintf(w, "\nFuturas (%d)\n", len(view.Future))
		return printTransactions(w, view.Future)
	}
	return nil
}

// displayDate shows the calendar part of a wire date as DD/MM/YYYY.
func displayDate(s string) string {
	if len(s) > 10 {
		s = s[:10]
	}
	return feature.FormatDateBR(s)
}

func joinRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "\t")
}
