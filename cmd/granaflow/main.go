package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"granaflow/internal/auth"
	"granaflow/internal/cli"
	"granaflow/internal/config"
	"granaflow/internal/notify"
	"granaflow/internal/router"
	"granaflow/internal/services"
)

var errNotSignedIn = errors.New("sessão não autenticada: execute 'granaflow login'")

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"login", "entra com a conta Google", cmdLogin},
	{"logout", "encerra a sessão", cmdLogout},
	{"status", "mostra o estado da sessão", cmdStatus},
	{"wallets", "lista as carteiras", cmdWallets},
	{"transactions", "lista as transações de uma carteira", cmdTransactions},
	{"dashboard", "saldo e transações agrupadas por mês", cmdDashboard},
	{"create", "cria uma transação única ou recorrente", cmdCreate},
	{"show", "mostra uma transação", cmdShow},
	{"edit", "altera uma transação", cmdEdit},
	{"delete", "exclui uma transação", cmdDelete},
	{"report", "relatório anual ou mensal", cmdReport},
	{"export", "exporta transações para o Google Sheets", cmdExport},
	{"watch", "acompanha uma carteira e recarrega quando ela muda", cmdWatch},
}

func main() {
	cli.LoadEnvFile()
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command gets: configuration and the process streams.
type env struct {
	cfg       *config.Config
	logger    *slog.Logger
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	ephemeral bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("granaflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ephemeral := fs.Bool("ephemeral", false, "keep the session in memory only")
	logLevel := fs.String("log-level", "", "override GRANAFLOW_LOG_LEVEL")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: granaflow [flags] <command> [command flags]")
		fmt.Fprintln(stderr, "\nCommands:")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-13s %s\n", c.name, c.usage)
		}
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == rest[0] {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fs.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg := config.Load()
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e := &env{
		cfg:       cfg,
		logger:    cli.SetupLogger(stderr, cfg.LogLevel),
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		ephemeral: *ephemeral,
	}
	return cmd.run(ctx, e, rest[1:])
}

func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("granaflow "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// open builds a session. withEvents connects to the broker when one is
// configured.
func (e *env) open(ctx context.Context, withEvents bool) (*services.Session, error) {
	return cli.OpenSession(ctx, e.cfg, cli.SessionOptions{
		Ephemeral: e.ephemeral,
		Events:    withEvents,
		Confirmer: cli.NewConfirmer(e.stdin, e.stdout),
		Browser:   cli.URLPrinter{Out: e.stdout},
		Notifier:  notify.Multi{notify.NewWriter(e.stderr), notify.NewLog(e.logger)},
	}, e.logger)
}

// signedIn validates the persisted session and fails unless it is usable.
func signedIn(ctx context.Context, sess *services.Session) error {
	if sess.Init(ctx) != auth.Authenticated {
		return errNotSignedIn
	}
	return nil
}

// openWallet routes to the wallet dashboard; the guard bounces signed-out
// users back home.
func openWallet(ctx context.Context, sess *services.Session, walletID int64) error {
	if walletID <= 0 {
		return errors.New("informe a carteira com -wallet")
	}
	if route := sess.Router.Navigate(ctx, router.DashboardPath(walletID)); route.Name != router.Dashboard {
		return errNotSignedIn
	}
	return nil
}
