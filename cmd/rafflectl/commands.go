package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/app"
	"github.com/ArowuTest/rifamania-backend/internal/config"
	"github.com/ArowuTest/rifamania-backend/internal/middleware"
	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue reservations and release their numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				total := 0
				for {
					n, err := a.Sweeper.SweepExpired(ctx)
					total += n
					if err != nil {
						return err
					}
					if n == 0 {
						break
					}
				}
				repaired, err := a.Sweeper.RepairHolds(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d reservations, released %d stale holds\n", total, repaired)
				return nil
			})
		},
	}
}

func reprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reprocess-webhooks",
		Short: "Replay stored webhook notifications that failed to reconcile",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Reconciler.ReprocessInbox(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed %d notifications\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 500, "Maximum notifications to replay")
	return cmd
}

func quoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote [pool-size]",
		Short: "Show the publication fee for a pool size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pool size %q", args[0])
			}
			return printQuote(cmd, configuredResolver(), size)
		},
	}
}

// configuredResolver uses the configured tiers when the config loads, the
// default table otherwise. Quoting needs no storage.
func configuredResolver() *pricing.Resolver {
	cfg, err := config.Load()
	if err != nil || len(cfg.Pricing.Tiers) == 0 {
		return pricing.MustDefault()
	}
	resolver, err := pricing.NewResolver(cfg.Pricing.Tiers)
	if err != nil {
		return pricing.MustDefault()
	}
	return resolver
}

func printQuote(cmd *cobra.Command, resolver *pricing.Resolver, size int) error {
	q, err := resolver.Resolve(size)
	if err != nil {
		return err
	}
	if q.ManualApproval {
		fmt.Fprintf(cmd.OutOrStdout(), "%d numbers: manual approval required\n", size)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d numbers: %s\n", size, q.Fee)
	return nil
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [owner-id]",
		Short: "Issue a seller token for the publication endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := middleware.IssueSellerToken(cfg.JWT.Secret, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
