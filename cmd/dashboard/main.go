// Command dashboard is the terminal client of the Efarina TV finance
// service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/bootstrap"
	"github.com/taufik7000/efarina-finance-flow/internal/cache"
	"github.com/taufik7000/efarina-finance-flow/internal/client"
	"github.com/taufik7000/efarina-finance-flow/internal/config"
	"github.com/taufik7000/efarina-finance-flow/internal/gateway"
	"github.com/taufik7000/efarina-finance-flow/internal/logging"
	"github.com/taufik7000/efarina-finance-flow/internal/notify"
	"github.com/taufik7000/efarina-finance-flow/internal/prompt"
	"github.com/taufik7000/efarina-finance-flow/internal/session"
	"github.com/taufik7000/efarina-finance-flow/internal/storage"
)

const usage = `Usage: dashboard [-config path] <command> [flags]

Commands:
  login       sign in (prompts for missing email and password)
  logout      sign out
  whoami      show the signed-in identity and profile
  signup      register a new account
  profile     change your name or department
  password    change your password
  demo        create the demo account
  watch       follow session events until interrupted
  tx          list | add | update | delete | summary
  users       list | add | update | delete
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the client-side components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	stdout   io.Writer
	prompt   *prompt.Reader
	remote   *client.Client
	store    *session.Store
	routine  *bootstrap.Routine
	cache    *cache.Client
	txs      *gateway.Transactions
	users    *gateway.Users
	bootWait time.Duration
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "Path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	persisted, err := storage.Open(cfg.Client.SessionPath)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer persisted.Close()

	a, err := newApp(cfg, logger, persisted, stdin, stdout)
	if err != nil {
		return err
	}
	defer a.store.Close()

	task := a.routine.Start(ctx)
	defer task.Close()
	waitCtx, cancel := context.WithTimeout(ctx, a.bootWait)
	rep, err := task.Wait(waitCtx)
	cancel()
	if err != nil {
		logger.Warn("startup still running", "error", err)
	} else {
		logger.Debug("startup finished", "restored", rep.Restored, "demo", rep.Demo, "duration", rep.Duration)
	}

	return a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}

func newApp(cfg *config.Config, logger *slog.Logger, persisted session.Persister, stdin io.Reader, stdout io.Writer) (*app, error) {
	remote, err := client.New(cfg.Backend.URL, cfg.Backend.AnonKey,
		client.WithTimeout(cfg.Client.Timeout),
		client.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	toasts := notify.NewWriter(stdout)
	store := session.New(remote,
		session.WithPersister(persisted),
		session.WithNotifications(remote),
		session.WithLogger(logger),
		session.WithNotifier(toasts),
		session.WithRefreshMargin(cfg.Client.RefreshMargin))

	c := cache.New()
	gwOpts := []gateway.Option{gateway.WithLogger(logger), gateway.WithNotifier(toasts)}
	a := &app{
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		prompt: prompt.New(stdin, stdout),
		remote: remote,
		store:  store,
		cache:  c,
		txs:    gateway.NewTransactions(remote, store, c, gwOpts...),
		users:  gateway.NewUsers(remote, store, c, gwOpts...),
	}
	// the profile list shows names, so identity changes make it stale
	a.routine = bootstrap.New(store, remote, cfg.Demo,
		bootstrap.WithLogger(logger),
		bootstrap.WithNotifier(toasts),
		bootstrap.WithListener(func(ev backend.EventType, _ *backend.Session) {
			if ev == backend.EventUserUpdated || ev == backend.EventSignedOut {
				c.Invalidate(a.users.Key())
			}
		}))
	a.bootWait = cfg.Client.BootstrapWait
	if a.bootWait <= 0 {
		a.bootWait = 10 * time.Second
	}
	return a, nil
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "signup":
		return a.signup(ctx, args)
	case "profile":
		return a.profile(ctx, args)
	case "password":
		return a.password(ctx)
	case "demo":
		return a.routine.ProvisionDemo(ctx)
	case "watch":
		return a.watch(ctx)
	case "tx":
		return a.tx(ctx, args)
	case "users":
		return a.usersCmd(ctx, args)
	case "help":
		fmt.Fprint(a.stdout, usage)
		return nil
	}
	fmt.Fprint(a.stdout, usage)
	return fmt.Errorf("unknown command %q", cmd)
}
