// Command engine replays a CSV log of client transactions and prints the
// resulting account balances as CSV on stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ruralpay/payment-engine/internal/audit"
	"github.com/ruralpay/payment-engine/internal/config"
	"github.com/ruralpay/payment-engine/internal/handlers"
	"github.com/ruralpay/payment-engine/internal/logger"
	"github.com/ruralpay/payment-engine/internal/server"
	"github.com/ruralpay/payment-engine/internal/services"
)

const usage = "Usage: engine [flags] <input.csv> > <output.csv>"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one replay and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("engine", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n%s\n", err, usage)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	cfg, err := config.LoadEngineConfig(viper.New(), fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer log.Sync()

	if err := replay(ctx, cfg, fs.Arg(0), stdout, log); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func replay(ctx context.Context, cfg *config.EngineConfig, path string, stdout io.Writer, log *zap.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	engine := services.NewLedgerEngine(services.WithOverdraftProtection(cfg.OverdraftProtection))
	replayer := services.NewReplayer(engine, audit.NewAuditLogger(log))

	if err := replayer.Run(ctx, services.NewEventReader(file, cfg.HasHeader)); err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}

	summary := replayer.Stats().Summary()
	log.Info("replay finished",
		zap.String("input", path),
		zap.Int64("applied", summary.Applied),
		zap.Int64("skipped", summary.Skipped),
		zap.Int64("malformed", summary.Malformed),
		zap.Duration("duration", summary.Duration),
	)

	snapshot := engine.Snapshot()
	if err := services.WriteSnapshot(stdout, snapshot); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if !cfg.ServeEnabled() {
		return nil
	}
	srv := server.New(handlers.NewLedgerHandler(snapshot, replayer.Stats()), server.Options{
		Addr:            cfg.ListenAddr,
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.AllowedOrigins,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, log)
	return srv.Run(ctx)
}
