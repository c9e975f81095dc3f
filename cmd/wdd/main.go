package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sryze/wdd/internal/config"
	"github.com/sryze/wdd/internal/engine"
	"github.com/sryze/wdd/internal/progress"
	"github.com/sryze/wdd/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		showVersion bool
		verbose     bool
		quiet       bool
	)

	rootCmd := &cobra.Command{
		Use:   "wdd if=<file> of=<file> [bs=N[k|m|g]] [count=N] [status=progress]",
		Short: "Copy raw blocks between files and devices",
		Long: `wdd copies raw bytes from a source file or block device to a
destination file or block device, dd-style. Raw destination volumes are
dismounted and locked for exclusive access before any sector is written.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "wdd %s\n", version)
				return nil
			}

			opts, err := parseOperands(args)
			if err != nil {
				return err
			}

			// Configure logging.
			logLevel := slog.LevelWarn
			if verbose {
				logLevel = slog.LevelDebug
			}
			if quiet {
				logLevel = slog.LevelError
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			}))
			slog.SetDefault(logger)

			// Load optional config file.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			if err := applyConfigDefaults(cfg.Defaults, &opts); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return copyMain(ctx, opts, os.Stdout, os.Stderr)
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress warnings")

	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// copySession is the part of engine.Session the outcome mapping needs.
type copySession interface {
	Run(ctx context.Context) engine.Result
	Started() bool
	Close() error
}

// copyMain runs one copy session and maps its outcome to a process exit
// code.
func copyMain(ctx context.Context, opts Options, stdout, stderr io.Writer) error {
	var reporter *progress.Reporter
	if opts.Status == "progress" {
		reporter = progress.NewReporter(stdout, ui.IsTTY(os.Stdout.Fd()), nil)
	}

	sess, err := engine.Open(engine.Config{
		If:        opts.If,
		Of:        opts.Of,
		BlockSize: opts.BlockSize,
		Count:     opts.Count,
		Reporter:  reporter,
	})
	if err != nil {
		fmt.Fprintf(stderr, "wdd: %v\n", err)
		return &exitError{code: 1}
	}

	return runSession(ctx, sess, reporter, stdout, stderr)
}

// runSession drives an open session to completion. Every fatal path
// converges here, so cleanup happens exactly once and exactly one status
// line is printed: the final totals on success, the partial totals on a
// mid-copy failure, and none at all if the transfer never started.
func runSession(ctx context.Context, sess copySession, reporter *progress.Reporter, stdout, stderr io.Writer) error {
	res := sess.Run(ctx)
	started := sess.Started()
	if cerr := sess.Close(); cerr != nil {
		slog.Warn("cleanup failed", "error", cerr)
	}

	if reporter != nil {
		reporter.Clear()
	}

	if res.Err != nil {
		fmt.Fprintf(stderr, "wdd: %v\n", res.Err)
		if started {
			progress.PrintStatus(stdout, res.BytesOut, res.Elapsed)
		}
		return &exitError{code: 1}
	}

	progress.PrintStatus(stdout, res.BytesOut, res.Elapsed)
	return nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
