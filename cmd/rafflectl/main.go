package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ArowuTest/rifamania-backend/internal/app"
	"github.com/ArowuTest/rifamania-backend/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "rafflectl",
		Short:         "Operator tasks for the raffle payment backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(reprocessCmd())
	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, wires the application and runs fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a)
}
