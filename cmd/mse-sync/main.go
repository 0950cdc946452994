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

	"github.com/rickgao/mse-history/internal/config"
	"github.com/rickgao/mse-history/internal/logging"
	"github.com/rickgao/mse-history/internal/tracing"
	"github.com/rickgao/mse-history/internal/version"
)

const usage = `Usage: mse-sync <command> [flags]

Commands:
  sync      Bring every listed issuer up to date once
  issuers   Print the issuer codes that would be synced
  sample    Print stored rows, newest first
  serve     Run syncs on a schedule and expose /metrics and /health
  version   Print build information

Run "mse-sync <command> -h" for command flags.
`

// exitFatal is the exit code for batch-fatal errors. Partial failures exit 0.
const exitFatal = 1

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "version" {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, args, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "mse-sync %s: %v\n", cmd, err)
		os.Exit(exitFatal)
	}
}

// globalFlags are accepted by every command.
type globalFlags struct {
	configPath string
	envFile    string
	workers    int
	storePath  string
	driver     string
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "path to YAML config file (defaults apply when empty)")
	fs.StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	fs.IntVar(&g.workers, "workers", 0, "max concurrent issuer jobs (overrides sync.max_workers)")
	fs.StringVar(&g.storePath, "store", "", "SQLite file (overrides store.sqlite.path)")
	fs.StringVar(&g.driver, "driver", "", "store driver: sqlite or postgres (overrides store.driver)")
}

func run(ctx context.Context, cmd string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var g globalFlags
	g.register(fs)

	switch cmd {
	case "sync":
		issuers := fs.String("issuers", "", "comma-separated issuer codes to sync instead of discovering them")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withApp(ctx, g, func(a *app) error {
			return a.syncOnce(ctx, splitCodes(*issuers), stdout)
		})

	case "issuers":
		dropdown := fs.Bool("dropdown", false, "read codes from the history page dropdown instead of the listings")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withApp(ctx, g, func(a *app) error {
			return a.printIssuers(ctx, *dropdown, stdout)
		})

	case "sample":
		issuer := fs.String("issuer", "", "issuer code, empty for all")
		limit := fs.Int("limit", 0, "rows to print (1-500, default 30)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withApp(ctx, g, func(a *app) error {
			return a.printSample(ctx, *issuer, *limit, stdout)
		})

	case "serve":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withApp(ctx, g, func(a *app) error {
			return a.serve(ctx)
		})

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadConfig reads .env, the YAML file and the environment, then applies
// flag overrides and validates.
func loadConfig(g globalFlags) (*config.Config, error) {
	if err := config.LoadDotEnv(g.envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.LoadWithDefaults(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if g.workers != 0 {
		cfg.Sync.MaxWorkers = config.NormalizeWorkers(g.workers)
	}
	if g.storePath != "" {
		cfg.Store.SQLite.Path = g.storePath
	}
	if g.driver != "" {
		cfg.Store.Driver = g.driver
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// withApp builds the logger, tracer and app for one command and tears them
// down afterwards.
func withApp(ctx context.Context, g globalFlags, fn func(*app) error) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("starting mse-sync",
		"version", version.Version,
		"commit", version.Commit,
		"config", g.configPath,
	)

	tp, shutdownTracing, err := tracing.Setup(cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracing shutdown failed", "err", err)
		}
	}()

	a, err := newApp(ctx, cfg, tp, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
