// Command ethos-sim drives a running ethos service with simulated
// characters and verifies the tracked state.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/ethos/internal/simulate"
	"github.com/okian/ethos/pkg/logger"
	"github.com/spf13/cobra"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ethos-sim",
		Short:        "Simulate trait snapshots against an ethos service",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newGenerateCmd())
	return root
}

// bindWalkFlags registers the flags shared by run and generate.
func bindWalkFlags(cmd *cobra.Command, cfg *simulate.Config) {
	f := cmd.Flags()
	f.IntVar(&cfg.Characters, "characters", cfg.Characters, "Number of simulated characters")
	f.IntVar(&cfg.Steps, "steps", cfg.Steps, "Snapshots per character")
	f.StringSliceVar(&cfg.Traits, "traits", cfg.Traits, "Trait names carried by every snapshot")
	f.IntVar(&cfg.MaxStep, "max-step", cfg.MaxStep, "Largest per-step move of a trait")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random walk seed (0 picks one from the clock)")
}

func newRunCmd() *cobra.Command {
	cfg := simulate.NewConfig()
	var (
		verbose bool
		limit   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a simulated workload and verify every character",
		Long: `Generate random-walk trait snapshots, post them to /v1/snapshots
preserving per-character order, re-send a few to check deduplication and
finally compare each character's state with a local replay.

The service must run with auto_commit enabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			log, err := newLogger(cmd, level)
			if err != nil {
				return err
			}

			runner, err := simulate.NewRunner(cfg, simulate.WithLogger(log))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), limit)
			defer cancel()

			stats, err := runner.Run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(),
				"submitted=%d accepted=%d duplicate=%d failed=%d verified=%d mismatched=%d milestones=%d unlocks=%d duration=%s\n",
				stats.EventsSubmitted, stats.EventsAccepted, stats.EventsDuplicate, stats.EventsFailed,
				stats.CharactersVerified, stats.CharactersMismatch,
				stats.ExpectedMilestones, stats.ExpectedUnlocks, stats.Duration)
			return err
		},
	}

	bindWalkFlags(cmd, cfg)
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of concurrent submitters")
	f.IntVar(&cfg.Duplicates, "duplicates", cfg.Duplicates, "Events re-sent to exercise deduplication")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", cfg.Settle, "How long to wait for asynchronous application")
	f.StringVar(&cfg.OutputFile, "output", "", "Also write the generated events to this JSON file")
	f.DurationVar(&limit, "limit", defaultRunTimeout, "Overall run deadline")
	f.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cfg := simulate.NewConfig()
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a simulated workload to a JSON file without submitting it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			plan := simulate.Generate(cfg, time.Now)
			events := plan.Events()
			if err := simulate.SaveEvents(out, events); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events for %d characters to %s\n",
				len(events), len(plan.Scripts), out)
			return nil
		},
	}

	bindWalkFlags(cmd, cfg)
	cmd.Flags().StringVarP(&out, "out", "o", "events.json", "Output file")
	return cmd
}

func newLogger(cmd *cobra.Command, level slog.Level) (logger.Logger, error) {
	lv := new(slog.LevelVar)
	lv.Set(level)
	return logger.New(logger.WithWriter(cmd.ErrOrStderr()), logger.WithLevelVar(lv))
}
