// Command nibogctl is the operator tool for payments and certificates.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/u3m2a1/nibog-sub001/internal/app"
	"github.com/u3m2a1/nibog-sub001/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "nibogctl",
		Short:        "Operate NIBOG payments, bookings and certificates",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	logger := func() *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	connect := func(cmd *cobra.Command) (*app.Deps, error) {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		return app.Build(cmd.Context(), cfg, logger())
	}

	root.AddCommand(
		newStatusCmd(connect),
		newRecheckCmd(connect),
		newResendCmd(connect),
		newCertificatesCmd(connect),
		newWatchCmd(connect),
	)

	return root
}

type connectFunc func(cmd *cobra.Command) (*app.Deps, error)

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
