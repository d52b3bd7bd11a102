package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"libralend/internal/config"
	"libralend/internal/scenario"
)

var simulateVerbose bool

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the built-in lending scenarios on a virtual clock",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if simulateVerbose {
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		}

		out := cmd.OutOrStdout()
		scenarios := scenario.Builtin(cfg.Lending.ApprovalDelay, cfg.Lending.IssueDelay)
		runner := scenario.NewRunner(cfg.Lending.ApprovalDelay, cfg.Lending.IssueDelay, logger)

		held, err := runner.RunAll(cmd.Context(), out, scenarios)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n%d/%d scenarios held\n", held, len(scenarios))
		if held != len(scenarios) {
			return fmt.Errorf("%d scenarios violated", len(scenarios)-held)
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVarP(&simulateVerbose, "verbose", "v", false, "log engine transitions")
}
